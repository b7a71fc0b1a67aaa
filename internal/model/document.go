package model

import "time"

// DocumentType is the declared category of an uploaded document.
type DocumentType string

const (
	DocumentTypeIdentity       DocumentType = "identity"
	DocumentTypeMedical        DocumentType = "medical"
	DocumentTypeEvidence       DocumentType = "evidence"
	DocumentTypeCorrespondence DocumentType = "correspondence"
	DocumentTypeForm           DocumentType = "form"
	DocumentTypeOther          DocumentType = "other"
)

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeIdentity, DocumentTypeMedical, DocumentTypeEvidence,
		DocumentTypeCorrespondence, DocumentTypeForm, DocumentTypeOther:
		return true
	}
	return false
}

// Document represents an ingested file's metadata record.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Document struct {
	ID               string            `json:"id"`
	OwnerID          string            `json:"owner_id"`
	CaseID           *string           `json:"case_id,omitempty"`
	PendingItemID    *string           `json:"pending_item_id,omitempty"`
	UploadSessionID  *string           `json:"upload_session_id,omitempty"`
	Type             DocumentType      `json:"type"`
	UploaderID       string            `json:"uploader_id"`
	StoredFilename   string            `json:"stored_filename"`
	OriginalFilename string            `json:"original_filename"`
	StorageKey       string            `json:"storage_key"`
	Size             int64             `json:"size"`
	MimeType         string            `json:"mime_type"`
	ContentHash      string            `json:"content_hash"`
	Description      *string           `json:"description,omitempty"`
	Reusable         bool              `json:"reusable"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	PublicURL        *string           `json:"public_url,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	DeletedAt        *time.Time        `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the record has been soft-deleted.
func (d *Document) IsDeleted() bool {
	return d.DeletedAt != nil
}

// UserSummary is the minimal projection of a user loaded alongside a document.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DocumentWithRelations is a document hydrated with its owner and uploader summaries.
type DocumentWithRelations struct {
	Document
	Owner    UserSummary `json:"owner"`
	Uploader UserSummary `json:"uploader"`
}
