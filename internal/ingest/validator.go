package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"casedocs/internal/config"
	"casedocs/internal/storage"
)

// ValidationResult is the structured outcome of the pre-flight checks. All
// rules are evaluated independently so the caller receives every reason at
// once instead of fixing problems one round-trip at a time.
type ValidationResult struct {
	IsValid       bool
	Reasons       []string
	CorrelationID string
}

// Validator runs structural pre-flight checks on an upload request. It has no
// storage or persistence side effects.
type Validator struct {
	cfg config.UploadConfig
}

// NewValidator creates a Validator with an explicit upload policy.
func NewValidator(cfg config.UploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate applies every structural rule to the request; no short-circuit.
func (v *Validator) Validate(req IngestRequest, correlationID string) ValidationResult {
	var reasons []string

	if len(req.Content) == 0 {
		reasons = append(reasons, "payload is empty")
	}
	if req.OwnerID == "" {
		reasons = append(reasons, "owner id is required")
	}
	if req.UploaderID == "" {
		reasons = append(reasons, "uploader id is required")
	}
	if req.Type == "" {
		reasons = append(reasons, "document type is required")
	} else if !req.Type.Valid() {
		reasons = append(reasons, fmt.Sprintf("unknown document type %q", req.Type))
	}
	if req.DeclaredSize > v.cfg.MaxSizeBytes {
		reasons = append(reasons, fmt.Sprintf("size %d exceeds ceiling %d", req.DeclaredSize, v.cfg.MaxSizeBytes))
	}
	if !v.extensionAllowed(req.OriginalName) {
		reasons = append(reasons, fmt.Sprintf("extension %q is not allowed", strings.ToLower(filepath.Ext(req.OriginalName))))
	}

	return ValidationResult{
		IsValid:       len(reasons) == 0,
		Reasons:       reasons,
		CorrelationID: correlationID,
	}
}

func (v *Validator) extensionAllowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, allowed := range v.cfg.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// CheckWiring is the startup-time configuration sanity check. It fails fast
// when no storage backend has been registered, before any request is served.
func CheckWiring(backend storage.Backend) error {
	if backend == nil {
		return fmt.Errorf("no storage backend registered")
	}
	return nil
}
