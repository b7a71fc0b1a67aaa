package repository

import (
	"context"

	"casedocs/internal/model"
)

// DocumentRepository defines data access for document records using SQL queries only.
// No business logic here — strictly persistence operations. Single-record
// writes are atomic; a failed Create leaves no row visible.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a non-deleted document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByIDWithRelations returns a document hydrated with owner and
	// uploader summaries.
	FindByIDWithRelations(ctx context.Context, id string) (*model.DocumentWithRelations, error)

	// FindByHashAndOwner returns non-deleted documents matching the content
	// hash and owner, optionally narrowed to a document type.
	FindByHashAndOwner(ctx context.Context, hash, ownerID string, docType *model.DocumentType) ([]model.Document, error)

	// AttachPublicURL records the public URL on an existing document.
	AttachPublicURL(ctx context.Context, id, url string) error

	// SoftDelete marks a document deleted. Soft-deleted rows are excluded
	// from reads and reuse lookups.
	SoftDelete(ctx context.Context, id string) error

	// List returns a paginated list of non-deleted documents and a total count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
