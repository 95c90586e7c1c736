package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps artifacts in a directory on disk. It is the default when
// no MinIO endpoint is configured.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Store(ctx context.Context, filename string, data []byte) (string, error) {
	name := objectName(filename)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	return name, nil
}

func (s *LocalStore) Preview(ctx context.Context, ref string, limit int) (string, error) {
	// Refs are names we issued ourselves; refuse anything that walks out
	// of the artifact directory.
	if strings.Contains(ref, "/") || strings.Contains(ref, "..") {
		return "", fmt.Errorf("invalid artifact ref %q", ref)
	}
	file, err := os.Open(filepath.Join(s.dir, ref))
	if err != nil {
		return "", fmt.Errorf("open artifact %s: %w", ref, err)
	}
	defer file.Close()
	return readLimited(file, limit)
}
