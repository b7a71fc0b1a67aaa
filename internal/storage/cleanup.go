package storage

import (
	"context"
	"log/slog"
)

// Cleanup removes an already-written object as a compensating step after a
// downstream failure. It is idempotent: a missing key is a no-op, and any
// error is logged but never returned so it cannot mask the failure that
// triggered the cleanup.
func Cleanup(ctx context.Context, b Backend, key string, log *slog.Logger) {
	if key == "" {
		return
	}
	if err := b.Delete(ctx, key); err != nil {
		log.ErrorContext(ctx, "storage cleanup failed",
			"backend", b.Name(),
			"storage_key", key,
			"error", err.Error(),
		)
		return
	}
	log.InfoContext(ctx, "storage cleanup completed",
		"backend", b.Name(),
		"storage_key", key,
	)
}
