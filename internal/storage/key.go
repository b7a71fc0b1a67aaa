package storage

import (
	"fmt"
	"path"
	"time"

	"casedocs/internal/model"
)

// BuildKey generates the hierarchical object key for an ingested document:
//
//	documents/{year}/{month}/{day}/{ownerID}/{type}/{generatedFilename}
//
// Buckets are derived from ingestion time, never from file metadata time.
// The type segment is omitted when docType is empty. The result is a pure
// function of its inputs.
func BuildKey(ingestedAt time.Time, ownerID string, docType model.DocumentType, filename string) string {
	t := ingestedAt.UTC()
	datePart := fmt.Sprintf("%04d/%02d/%02d", t.Year(), int(t.Month()), t.Day())
	if docType == "" {
		return path.Join("documents", datePart, ownerID, filename)
	}
	return path.Join("documents", datePart, ownerID, string(docType), filename)
}
