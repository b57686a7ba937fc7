package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// LocalArchive copies source files into a base directory, grouped by year and
// month, with a random prefix so repeated imports of the same filename never
// collide.
type LocalArchive struct {
	basePath string
	now      func() time.Time
}

// NewLocalArchive creates the archive root if needed.
func NewLocalArchive(basePath string) (*LocalArchive, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &LocalArchive{basePath: basePath, now: time.Now}, nil
}

// Archive copies srcPath into the archive and returns the destination path.
func (a *LocalArchive) Archive(ctx context.Context, srcPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("opening source file: %w", err)
	}
	defer src.Close()

	dir := filepath.Join(a.basePath, a.now().Format("2006/01"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive subdirectory: %w", err)
	}

	dest := filepath.Join(dir, uuid.New().String()[:8]+"-"+filepath.Base(srcPath))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("creating archive file: %w", err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("copying to archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing archive file: %w", err)
	}
	return dest, nil
}
