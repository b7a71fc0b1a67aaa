package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ProcessResult carries the content hash and generated storage filename for
// one ingest attempt.
type ProcessResult struct {
	ContentHash    string
	StoredFilename string
}

// HashLength is the hex length of the content digest.
const HashLength = sha256.Size * 2

// HashContent computes the deterministic content digest of the payload.
// Identical bytes always produce the identical hex string.
func HashContent(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// ValidHash reports whether s has the digest's expected length and charset.
func ValidHash(s string) bool {
	if len(s) != HashLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Process hashes the payload and generates a unique storage filename that
// embeds the correlation id, so identical original names never collide.
func Process(payload []byte, originalName, correlationID string) ProcessResult {
	ext := strings.ToLower(filepath.Ext(originalName))
	return ProcessResult{
		ContentHash:    HashContent(payload),
		StoredFilename: fmt.Sprintf("%s-%s%s", correlationID, uuid.NewString(), ext),
	}
}
