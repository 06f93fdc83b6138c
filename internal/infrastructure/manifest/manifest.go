package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

// LoadSources reads the corpus manifest: a YAML or JSON list of
// {title, url, path} entries. Entries without a path are rejected.
func LoadSources(path string) ([]domain.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var sources []domain.Source
	if err := decode(path, raw, &sources); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse manifest", err)
	}
	for i, src := range sources {
		if strings.TrimSpace(src.Path) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse manifest", fmt.Errorf("entry %d has no path", i))
		}
	}
	return sources, nil
}

type question struct {
	Q string `json:"q" yaml:"q"`
}

// LoadQuestions reads an evaluation question list of the form [{"q": "..."}].
func LoadQuestions(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}

	var items []question
	if err := decode(path, raw, &items); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse questions", err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if q := strings.TrimSpace(item.Q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse questions", errors.New("no questions"))
	}
	return out, nil
}

func decode(path string, raw []byte, out any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Unmarshal(raw, out)
	case ".yaml", ".yml":
		return yaml.Unmarshal(raw, out)
	default:
		return fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
}
