package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"casedocs/internal/model"
	"casedocs/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// IsNoRowsError reports whether err means no matching row.
func IsNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

const documentColumns = `id, owner_id, case_id, pending_item_id, upload_session_id, type,
		uploader_id, stored_filename, original_filename, storage_key, size,
		mime_type, content_hash, description, reusable, metadata, public_url,
		created_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d        model.Document
		metadata []byte
	)
	if err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.CaseID,
		&d.PendingItemID,
		&d.UploadSessionID,
		&d.Type,
		&d.UploaderID,
		&d.StoredFilename,
		&d.OriginalFilename,
		&d.StorageKey,
		&d.Size,
		&d.MimeType,
		&d.ContentHash,
		&d.Description,
		&d.Reusable,
		&metadata,
		&d.PublicURL,
		&d.CreatedAt,
		&d.DeletedAt,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	var metadata []byte
	if len(doc.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(doc.Metadata); err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
	}

	q := `
		INSERT INTO documents (id, owner_id, case_id, pending_item_id, upload_session_id, type,
			uploader_id, stored_filename, original_filename, storage_key, size,
			mime_type, content_hash, description, reusable, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + documentColumns

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.OwnerID,
		doc.CaseID,
		doc.PendingItemID,
		doc.UploadSessionID,
		doc.Type,
		doc.UploaderID,
		doc.StoredFilename,
		doc.OriginalFilename,
		doc.StorageKey,
		doc.Size,
		doc.MimeType,
		doc.ContentHash,
		doc.Description,
		doc.Reusable,
		metadata,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single non-deleted document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND deleted_at IS NULL
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByIDWithRelations fetches a document joined with its owner and uploader summaries.
func (r *DocumentPostgres) FindByIDWithRelations(ctx context.Context, id string) (*model.DocumentWithRelations, error) {
	q := `
		SELECT d.id, d.owner_id, d.case_id, d.pending_item_id, d.upload_session_id, d.type,
			d.uploader_id, d.stored_filename, d.original_filename, d.storage_key, d.size,
			d.mime_type, d.content_hash, d.description, d.reusable, d.metadata, d.public_url,
			d.created_at, d.deleted_at,
			o.id, o.name, o.email,
			u.id, u.name, u.email
		FROM documents d
		JOIN users o ON o.id = d.owner_id
		JOIN users u ON u.id = d.uploader_id
		WHERE d.id = $1 AND d.deleted_at IS NULL
	`
	row := r.db.QueryRowContext(ctx, q, id)

	var (
		d        model.DocumentWithRelations
		metadata []byte
	)
	if err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.CaseID,
		&d.PendingItemID,
		&d.UploadSessionID,
		&d.Type,
		&d.UploaderID,
		&d.StoredFilename,
		&d.OriginalFilename,
		&d.StorageKey,
		&d.Size,
		&d.MimeType,
		&d.ContentHash,
		&d.Description,
		&d.Reusable,
		&metadata,
		&d.PublicURL,
		&d.CreatedAt,
		&d.DeletedAt,
		&d.Owner.ID,
		&d.Owner.Name,
		&d.Owner.Email,
		&d.Uploader.ID,
		&d.Uploader.Name,
		&d.Uploader.Email,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &d, nil
}

// FindByHashAndOwner returns reuse candidates: non-deleted rows matching the
// content hash and owner, optionally narrowed by type. Newest first so the
// resolver can prefer the most recent copy.
func (r *DocumentPostgres) FindByHashAndOwner(ctx context.Context, hash, ownerID string, docType *model.DocumentType) ([]model.Document, error) {
	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE content_hash = $1 AND owner_id = $2 AND deleted_at IS NULL
	`
	args := []any{hash, ownerID}
	if docType != nil {
		q += ` AND type = $3`
		args = append(args, *docType)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// AttachPublicURL records the public URL on an existing row.
func (r *DocumentPostgres) AttachPublicURL(ctx context.Context, id, url string) error {
	const q = `UPDATE documents SET public_url = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id, url)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SoftDelete marks a document deleted. Already-deleted or missing rows are
// left untouched and reported via sql.ErrNoRows.
func (r *DocumentPostgres) SoftDelete(ctx context.Context, id string) error {
	const q = `UPDATE documents SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns non-deleted documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	// Count total rows
	const qCount = `SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	qList := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}
