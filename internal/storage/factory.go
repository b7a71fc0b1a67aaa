package storage

import (
	"fmt"

	"casedocs/internal/config"
)

// New selects and constructs the configured storage backend. The choice is
// made once at wiring time; callers only ever see the Backend interface.
func New(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "minio":
		return NewMinIO(cfg.MinIO)
	case "local":
		return NewLocal(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
