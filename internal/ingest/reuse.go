package ingest

import (
	"context"
	"fmt"

	"casedocs/internal/model"
	"casedocs/internal/repository"
)

// ReuseDecision is the structured outcome of the dedup lookup.
type ReuseDecision struct {
	CanReuse bool
	Existing *model.Document
	Reason   string
}

// ReuseResolver looks up prior copies of identical content. It is read-only
// and accepts the benign check-then-act race under concurrent identical
// uploads; duplicate storage in that rare case is a storage-efficiency cost,
// not a correctness violation.
type ReuseResolver struct {
	repo    repository.DocumentRepository
	enabled bool
}

// NewReuseResolver creates a resolver. The enabled switch is a
// deployment-level decision: when off, candidates are still looked up and
// reported for audit but reuse is never granted.
func NewReuseResolver(repo repository.DocumentRepository, enabled bool) *ReuseResolver {
	return &ReuseResolver{repo: repo, enabled: enabled}
}

// Resolve finds a reusable prior document for (hash, owner, type). A
// candidate qualifies only while not soft-deleted and while both its storage
// key and hash are non-empty, guarding against partially-written rows.
func (r *ReuseResolver) Resolve(ctx context.Context, hash, ownerID string, docType *model.DocumentType) (ReuseDecision, error) {
	candidates, err := r.repo.FindByHashAndOwner(ctx, hash, ownerID, docType)
	if err != nil {
		return ReuseDecision{}, fmt.Errorf("reuse lookup: %w", err)
	}

	candidate := pickCandidate(candidates, hash, ownerID, docType)
	if candidate == nil {
		return ReuseDecision{Reason: "no reusable prior copy"}, nil
	}

	if !r.enabled {
		// Looked up and reported for audit, but never granted per-call.
		return ReuseDecision{
			CanReuse: false,
			Existing: candidate,
			Reason:   "reuse disabled by configuration",
		}, nil
	}

	return ReuseDecision{
		CanReuse: true,
		Existing: candidate,
		Reason:   "identical content already stored",
	}, nil
}

func pickCandidate(candidates []model.Document, hash, ownerID string, docType *model.DocumentType) *model.Document {
	for i := range candidates {
		c := &candidates[i]
		if c.IsDeleted() {
			continue
		}
		if c.OwnerID != ownerID || c.ContentHash != hash {
			continue
		}
		if docType != nil && c.Type != *docType {
			continue
		}
		if c.StorageKey == "" || c.ContentHash == "" {
			continue
		}
		return c
	}
	return nil
}
