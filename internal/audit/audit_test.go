package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink_Emit(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.Emit(context.Background(), Event{
		CorrelationID: "corr-1",
		OwnerID:       "owner-1",
		UploaderID:    "uploader-1",
		Stage:         StageClassification,
		Outcome:       OutcomeRejected,
		Severity:      SeverityWarn,
		Details:       map[string]any{"flags": []string{"signature-mismatch"}},
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "audit_event", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "corr-1", entry["correlation_id"])
	assert.Equal(t, "classification", entry["stage"])
	assert.Equal(t, "rejected", entry["outcome"])
}

func TestLogSink_SeverityRouting(t *testing.T) {
	tests := []struct {
		severity Severity
		level    string
	}{
		{SeverityInfo, "INFO"},
		{SeverityWarn, "WARN"},
		{SeverityError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

			sink.Emit(context.Background(), Event{
				Stage:    StageStorage,
				Outcome:  OutcomeFailure,
				Severity: tt.severity,
			})

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.level, entry["level"])
		})
	}
}
