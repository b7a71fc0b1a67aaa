package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"casedocs/internal/model"
	"casedocs/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentCols = []string{
	"id", "owner_id", "case_id", "pending_item_id", "upload_session_id", "type",
	"uploader_id", "stored_filename", "original_filename", "storage_key", "size",
	"mime_type", "content_hash", "description", "reusable", "metadata", "public_url",
	"created_at", "deleted_at",
}

func documentRow(doc *model.Document) *sqlmock.Rows {
	return sqlmock.NewRows(documentCols).AddRow(
		doc.ID, doc.OwnerID, doc.CaseID, doc.PendingItemID, doc.UploadSessionID, doc.Type,
		doc.UploaderID, doc.StoredFilename, doc.OriginalFilename, doc.StorageKey, doc.Size,
		doc.MimeType, doc.ContentHash, doc.Description, doc.Reusable, []byte(`{"source":"portal"}`), doc.PublicURL,
		doc.CreatedAt, doc.DeletedAt,
	)
}

func sampleDocument() *model.Document {
	return &model.Document{
		ID:               "doc-1",
		OwnerID:          "owner-1",
		Type:             model.DocumentTypeEvidence,
		UploaderID:       "uploader-1",
		StoredFilename:   "gen.pdf",
		OriginalFilename: "report.pdf",
		StorageKey:       "documents/2026/01/02/owner-1/evidence/gen.pdf",
		Size:             1024,
		MimeType:         "application/pdf",
		ContentHash:      "deadbeef",
		Reusable:         true,
		Metadata:         map[string]string{"source": "portal"},
		CreatedAt:        time.Now().UTC(),
	}
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	doc := sampleDocument()

	mock.ExpectQuery("INSERT INTO documents").
		WillReturnRows(documentRow(doc))

	result, err := repo.Create(ctx, doc)

	assert.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, doc.ID, result.ID)
	assert.Equal(t, doc.ContentHash, result.ContentHash)
	assert.Equal(t, map[string]string{"source": "portal"}, result.Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Create_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)

	mock.ExpectQuery("INSERT INTO documents").
		WillReturnError(sql.ErrConnDone)

	result, err := repo.Create(context.Background(), sampleDocument())

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = (.+) AND deleted_at IS NULL").
			WithArgs("doc-1").
			WillReturnRows(documentRow(sampleDocument()))

		doc, err := repo.FindByID(ctx, "doc-1")

		assert.NoError(t, err)
		require.NotNil(t, doc)
		assert.Equal(t, "doc-1", doc.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id = (.+) AND deleted_at IS NULL").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByID(ctx, "missing")

		assert.Error(t, err)
		assert.True(t, IsNoRowsError(err))
		assert.Nil(t, doc)
	})
}

func TestDocumentPostgres_FindByHashAndOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("without type filter", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents\\s+WHERE content_hash = (.+) AND owner_id = (.+) AND deleted_at IS NULL").
			WithArgs("deadbeef", "owner-1").
			WillReturnRows(documentRow(sampleDocument()))

		docs, err := repo.FindByHashAndOwner(ctx, "deadbeef", "owner-1", nil)

		assert.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "doc-1", docs[0].ID)
	})

	t.Run("with type filter", func(t *testing.T) {
		docType := model.DocumentTypeEvidence
		mock.ExpectQuery("SELECT (.+) FROM documents\\s+WHERE content_hash = (.+) AND type = (.+)").
			WithArgs("deadbeef", "owner-1", docType).
			WillReturnRows(documentRow(sampleDocument()))

		docs, err := repo.FindByHashAndOwner(ctx, "deadbeef", "owner-1", &docType)

		assert.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("no candidates", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs("cafe", "owner-1").
			WillReturnRows(sqlmock.NewRows(documentCols))

		docs, err := repo.FindByHashAndOwner(ctx, "cafe", "owner-1", nil)

		assert.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestDocumentPostgres_FindByIDWithRelations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	doc := sampleDocument()

	cols := append(append([]string{}, documentCols...),
		"o_id", "o_name", "o_email", "u_id", "u_name", "u_email")
	rows := sqlmock.NewRows(cols).AddRow(
		doc.ID, doc.OwnerID, doc.CaseID, doc.PendingItemID, doc.UploadSessionID, doc.Type,
		doc.UploaderID, doc.StoredFilename, doc.OriginalFilename, doc.StorageKey, doc.Size,
		doc.MimeType, doc.ContentHash, doc.Description, doc.Reusable, []byte(nil), doc.PublicURL,
		doc.CreatedAt, doc.DeletedAt,
		"owner-1", "Owner One", "owner@example.com",
		"uploader-1", "Uploader One", "uploader@example.com",
	)

	mock.ExpectQuery("SELECT (.+) FROM documents d\\s+JOIN users o").
		WithArgs("doc-1").
		WillReturnRows(rows)

	result, err := repo.FindByIDWithRelations(context.Background(), "doc-1")

	assert.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "doc-1", result.ID)
	assert.Equal(t, "Owner One", result.Owner.Name)
	assert.Equal(t, "uploader@example.com", result.Uploader.Email)
}

func TestDocumentPostgres_AttachPublicURL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("updated", func(t *testing.T) {
		mock.ExpectExec("UPDATE documents SET public_url").
			WithArgs("doc-1", "https://cdn/doc-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.AttachPublicURL(ctx, "doc-1", "https://cdn/doc-1"))
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec("UPDATE documents SET public_url").
			WithArgs("missing", "https://cdn/missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.AttachPublicURL(ctx, "missing", "https://cdn/missing")
		assert.True(t, IsNoRowsError(err))
	})
}

func TestDocumentPostgres_SoftDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec("UPDATE documents SET deleted_at = now").
			WithArgs("doc-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SoftDelete(ctx, "doc-1"))
	})

	t.Run("already deleted", func(t *testing.T) {
		mock.ExpectExec("UPDATE documents SET deleted_at = now").
			WithArgs("doc-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SoftDelete(ctx, "doc-1")
		assert.True(t, IsNoRowsError(err))
	})
}

func TestDocumentPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE deleted_at IS NULL").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM documents\\s+WHERE deleted_at IS NULL\\s+ORDER BY created_at DESC").
		WithArgs(10, 0).
		WillReturnRows(documentRow(sampleDocument()))

	res, err := repo.List(context.Background(), repository.PageQuery{Limit: 10, Offset: 0})

	assert.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Total)
	assert.Len(t, res.Items, 1)
}
