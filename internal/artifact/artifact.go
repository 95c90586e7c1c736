// Package artifact stores uploaded submission files in MinIO, or on the
// local filesystem when no object store is configured.
package artifact

import (
	"context"
	"fmt"
	"io"
	"strings"

	"mltf/portal/internal/util"
)

// Store is where submission files live. Refs returned by Put are opaque to
// callers and only meaningful to the store that issued them.
type Store interface {
	Store(ctx context.Context, filename string, data []byte) (string, error)
	Preview(ctx context.Context, ref string, limit int) (string, error)
}

func objectName(filename string) string {
	cleaned := strings.ToLower(strings.TrimSpace(filename))
	var b strings.Builder
	for _, r := range cleaned {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "upload"
	}
	return util.ShortID() + "-" + name
}

func readLimited(r io.Reader, limit int) (string, error) {
	if limit <= 0 {
		limit = 64 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	return string(data), nil
}
