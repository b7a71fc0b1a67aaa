package audit

import (
	"context"
	"log/slog"
	"time"
)

// Stage identifies the ingestion pipeline stage an event was emitted from.
type Stage string

const (
	StageValidation     Stage = "validation"
	StageClassification Stage = "classification"
	StageReuse          Stage = "reuse"
	StageStorage        Stage = "storage"
	StagePersistence    Stage = "persistence"
)

// Outcome is the result of an audited stage.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailure  Outcome = "failure"
)

// Severity ranks how urgently an event should be reviewed. Security
// rejections are emitted at SeverityWarn; infrastructure failures at
// SeverityError.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event is one structured fact about an ingestion attempt. Every stage of the
// pipeline emits exactly one event carrying the attempt's correlation id.
type Event struct {
	CorrelationID string         `json:"correlation_id"`
	OwnerID       string         `json:"owner_id"`
	UploaderID    string         `json:"uploader_id"`
	Stage         Stage          `json:"stage"`
	Outcome       Outcome        `json:"outcome"`
	Severity      Severity       `json:"severity"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Sink receives audit events. Implementations must not fail the ingestion
// attempt; emission is fire-and-forget from the pipeline's point of view.
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// LogSink writes audit events to a structured logger, one JSON object per
// event.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a Sink backed by the given logger.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log.With("component", "audit")}
}

func (s *LogSink) Emit(ctx context.Context, e Event) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	attrs := []any{
		"correlation_id", e.CorrelationID,
		"owner_id", e.OwnerID,
		"uploader_id", e.UploaderID,
		"stage", string(e.Stage),
		"outcome", string(e.Outcome),
	}
	if len(e.Details) > 0 {
		attrs = append(attrs, "details", e.Details)
	}

	switch e.Severity {
	case SeverityError:
		s.log.ErrorContext(ctx, "audit_event", attrs...)
	case SeverityWarn:
		s.log.WarnContext(ctx, "audit_event", attrs...)
	default:
		s.log.InfoContext(ctx, "audit_event", attrs...)
	}
}
