package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/extractor/xlsx"
)

// Registry picks a text extractor by the source's file extension.
type Registry struct {
	byExt map[string]ports.TextExtractor
}

func NewRegistry(storage ports.ObjectStorage) *Registry {
	text := plaintext.NewExtractor(storage)
	return &Registry{byExt: map[string]ports.TextExtractor{
		".pdf":  pdf.NewExtractor(storage),
		".xlsx": xlsx.NewExtractor(storage),
		".txt":  text,
		".md":   text,
	}}
}

// Register adds or replaces the extractor for ext (with leading dot).
func (r *Registry) Register(ext string, extractor ports.TextExtractor) {
	r.byExt[strings.ToLower(ext)] = extractor
}

func (r *Registry) Extract(ctx context.Context, src domain.Source) (string, error) {
	ext := strings.ToLower(filepath.Ext(src.Path))
	extractor, ok := r.byExt[ext]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("unsupported source type %q for %s", ext, src.Path))
	}
	return extractor.Extract(ctx, src)
}
