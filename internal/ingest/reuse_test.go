package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"casedocs/internal/model"
	repoMocks "casedocs/internal/repository/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate() model.Document {
	return model.Document{
		ID:          "existing-1",
		OwnerID:     "owner-1",
		Type:        model.DocumentTypeEvidence,
		StorageKey:  "documents/2026/01/02/owner-1/evidence/a.pdf",
		ContentHash: "abc123",
	}
}

func TestReuseResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	docType := model.DocumentTypeEvidence
	deleted := time.Now().UTC()

	tests := []struct {
		name         string
		enabled      bool
		candidates   []model.Document
		lookupErr    error
		wantCanReuse bool
		wantExisting bool
		wantErr      bool
	}{
		{
			name:         "reusable candidate found",
			enabled:      true,
			candidates:   []model.Document{candidate()},
			wantCanReuse: true,
			wantExisting: true,
		},
		{
			name:       "no candidates",
			enabled:    true,
			candidates: nil,
		},
		{
			name:    "reuse disabled still reports the candidate",
			enabled: false,
			candidates: []model.Document{
				candidate(),
			},
			wantCanReuse: false,
			wantExisting: true,
		},
		{
			name:    "soft-deleted candidate skipped",
			enabled: true,
			candidates: func() []model.Document {
				c := candidate()
				c.DeletedAt = &deleted
				return []model.Document{c}
			}(),
		},
		{
			name:    "partially-written row skipped",
			enabled: true,
			candidates: func() []model.Document {
				c := candidate()
				c.StorageKey = ""
				return []model.Document{c}
			}(),
		},
		{
			name:    "type mismatch skipped",
			enabled: true,
			candidates: func() []model.Document {
				c := candidate()
				c.Type = model.DocumentTypeForm
				return []model.Document{c}
			}(),
		},
		{
			name:      "lookup failure propagates",
			enabled:   true,
			lookupErr: errors.New("db down"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			if tt.lookupErr != nil {
				mRepo.On("FindByHashAndOwner", ctx, "abc123", "owner-1", &docType).
					Return(nil, tt.lookupErr)
			} else {
				mRepo.On("FindByHashAndOwner", ctx, "abc123", "owner-1", &docType).
					Return(tt.candidates, nil)
			}

			r := NewReuseResolver(mRepo, tt.enabled)
			decision, err := r.Resolve(ctx, "abc123", "owner-1", &docType)

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCanReuse, decision.CanReuse)
			if tt.wantExisting {
				require.NotNil(t, decision.Existing)
				assert.Equal(t, "existing-1", decision.Existing.ID)
			} else {
				assert.Nil(t, decision.Existing)
			}
			assert.NotEmpty(t, decision.Reason)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestReuseResolver_DisabledNeverGrantsReuse(t *testing.T) {
	ctx := context.Background()
	mRepo := new(repoMocks.MockDocumentRepository)
	mRepo.On("FindByHashAndOwner", ctx, "abc123", "owner-1", (*model.DocumentType)(nil)).
		Return([]model.Document{candidate()}, nil)

	r := NewReuseResolver(mRepo, false)
	decision, err := r.Resolve(ctx, "abc123", "owner-1", nil)

	require.NoError(t, err)
	assert.False(t, decision.CanReuse)
	// Candidate is surfaced for audit even though reuse is off.
	require.NotNil(t, decision.Existing)
	assert.Equal(t, "reuse disabled by configuration", decision.Reason)
}
