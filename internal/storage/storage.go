package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// GamelistContentType is stored on every uploaded gamelist object.
const GamelistContentType = "application/xml; charset=utf-8"

// Client stores gamelist documents of backup runs.
type Client interface {
	PutGamelist(ctx context.Context, key, localPath string) error
	// GetGamelist downloads key to localPath. localPath is only replaced
	// once the whole object has been received.
	GetGamelist(ctx context.Context, key, localPath string) error
}

// GamelistKey returns the object key of a system's gamelist in a backup run.
func GamelistKey(prefix, runID, system string) string {
	parts := make([]string, 0, 4)
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, runID, system, "gamelist.xml")
	return path.Join(parts...)
}

func replaceFile(dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", dest, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	return nil
}
