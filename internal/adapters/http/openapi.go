package httpadapter

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

//go:embed openapi.json
var openAPIDocument []byte

type apiSchema struct {
	doc *openapi3.T
}

func loadAPISchema(ctx context.Context) (*apiSchema, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPIDocument)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return &apiSchema{doc: doc}, nil
}

// validateBody checks a JSON request body against a named component schema.
func (s *apiSchema) validateBody(name string, body []byte) error {
	ref, ok := s.doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return fmt.Errorf("openapi schema %q not found", name)
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
	}
	if err := ref.Value.VisitJSON(value); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate request", err)
	}
	return nil
}
