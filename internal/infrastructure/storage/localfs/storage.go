package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

// Storage opens corpus source files below a base directory.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "."
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("stat corpus dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", basePath)
	}
	return &Storage{basePath: basePath}, nil
}

// Open opens key relative to the base directory. Keys that would escape it
// are rejected.
func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if !filepath.IsLocal(clean) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open source", fmt.Errorf("path %q escapes corpus dir", key))
	}
	f, err := os.Open(filepath.Join(s.basePath, clean)) // #nosec G304 -- confined to basePath above
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}
