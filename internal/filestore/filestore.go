package filestore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/docvault/docnode/internal/errors"
)

// Store is the physical blob store keyed by storage location. It fails
// independently of the database; every implementation must keep Delete and
// DeleteIfPresent safe to invoke more than once, since the sweeper relies on
// them for idempotent compensation.
type Store interface {
	// Store writes the blob under the given key, creating the base
	// directory or bucket first if needed.
	Store(ctx context.Context, key string, data []byte) error

	// Get reads the blob back.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob. Absence is not an error; any other failure
	// is systemic.
	Delete(ctx context.Context, key string) error

	// DeleteIfPresent removes the blob if it exists and reports whether
	// something was deleted. This is the primitive CREATE compensation uses,
	// since the file may never have been written before the failure.
	DeleteIfPresent(ctx context.Context, key string) (bool, error)
}

// GenerateStorageKey derives a collision-resistant storage key from the
// client-supplied file name: sanitized base name plus a nanosecond timestamp,
// original extension preserved. The key depends on nothing the action log or
// the database has not yet seen.
func GenerateStorageKey(originalName string) (string, error) {
	name := filepath.Base(strings.TrimSpace(originalName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", errors.InvalidFileName(originalName, "empty file name")
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		// Dotfiles like ".env" keep their whole name as the base.
		base = ext
		ext = ""
	}
	base = sanitize(base)

	return fmt.Sprintf("%s_%d%s", base, time.Now().UnixNano(), ext), nil
}

// sanitize keeps letters, digits, dash, underscore and dot; everything else
// becomes an underscore so keys are safe as file names and object keys.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
