package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, src domain.Source) (string, error) {
	reader, err := e.storage.Open(ctx, src.Path)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("%s is not valid UTF-8", src.Path))
	}

	// Normalize CRLF so paragraph breaks are always "\n\n".
	return strings.TrimSpace(strings.ReplaceAll(string(raw), "\r\n", "\n")), nil
}
