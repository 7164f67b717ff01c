package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/signvault/internal/filex"
	"github.com/google/uuid"
)

// Local stores files in a single flat directory. Names follow the
// YYYYMMDD_<token>_<filename> pattern so the purge job can reason about age
// from metadata alone and collisions are impossible.
type Local struct {
	dir string
}

// NewLocal creates the storage directory when missing and returns a store
// rooted at it.
func NewLocal(dir string) (*Local, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &Local{dir: abs}, nil
}

// Dir returns the absolute storage directory.
func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Persist(ctx context.Context, r io.Reader, name string) (string, error) {
	base := sanitize(filepath.Base(name))
	token := uuid.NewString()[:8]
	dest := filepath.Join(l.dir, fmt.Sprintf("%s_%s_%s", time.Now().Format("20060102"), token, base))

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	return dest, nil
}

func (l *Local) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// PurgeOlderThan removes files whose modification time predates the
// retention window. Retention is purely time-based: a referenced artifact
// older than the window is deleted all the same.
func (l *Local) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	threshold := time.Now().Add(-retention)

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0, fmt.Errorf("read dir %s: %w", l.dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(threshold) {
			if err := os.Remove(filepath.Join(l.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func sanitize(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	return replacer.Replace(name)
}
