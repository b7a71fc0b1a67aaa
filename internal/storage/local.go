package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"casedocs/internal/config"
)

// localBackend implements the Backend interface on the local filesystem.
// All operations are confined to baseDir to prevent path traversal.
// Presigned URLs degrade to plain public URLs since the filesystem cannot
// issue time-limited credentials.
type localBackend struct {
	baseDir string
	baseURL string
}

// NewLocal creates a filesystem-backed storage backend rooted at cfg.LocalDir.
// The directory is created if missing.
func NewLocal(cfg config.StorageConfig) (Backend, error) {
	if cfg.LocalDir == "" {
		return nil, fmt.Errorf("local storage dir is required")
	}

	absBase, err := filepath.Abs(cfg.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}
	if err := os.MkdirAll(absBase, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &localBackend{baseDir: absBase, baseURL: baseURL}, nil
}

func (l *localBackend) Name() string { return "local" }

// resolve maps an object key onto an absolute path under baseDir, rejecting
// any key that would escape the base directory.
func (l *localBackend) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	abs := filepath.Join(l.baseDir, clean)
	if !strings.HasPrefix(abs, l.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return abs, nil
}

func (l *localBackend) Save(ctx context.Context, key string, r io.Reader, opt SaveOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	abs, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	dst, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		// Remove the partial file so a failed save leaves nothing behind.
		_ = os.Remove(abs)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(abs)
		return "", fmt.Errorf("close file: %w", err)
	}
	return key, nil
}

func (l *localBackend) Read(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	abs, err := l.resolve(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	return f, ObjectInfo{Key: key, Size: st.Size(), LastModified: st.ModTime()}, nil
}

// Delete removes a file; a missing file is a silent no-op.
func (l *localBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	abs, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *localBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	abs, err := l.resolve(key)
	if err != nil {
		return false, err
	}
	st, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !st.IsDir(), nil
}

func (l *localBackend) List(ctx context.Context, prefix string, maxKeys int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := filepath.WalkDir(l.baseDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		keys = append(keys, key)
		if maxKeys > 0 && len(keys) >= maxKeys {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (l *localBackend) Copy(ctx context.Context, srcKey, dstKey string) (string, error) {
	src, _, err := l.Read(ctx, srcKey)
	if err != nil {
		return "", err
	}
	defer src.Close()

	return l.Save(ctx, dstKey, src, SaveOptions{Size: -1})
}

// PresignGet joins the configured public base URL with the key. Local files
// carry no credentials, so the expiry is ignored.
func (l *localBackend) PresignGet(ctx context.Context, key string, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if l.baseURL == "" {
		return "", fmt.Errorf("no public base URL configured for local storage")
	}
	u, err := url.JoinPath(l.baseURL, key)
	if err != nil {
		return "", err
	}
	return u, nil
}
