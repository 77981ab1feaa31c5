package ports

import (
	"context"
	"errors"
)

type Segment struct {
	Context      string
	Text         string
	Comment      string
	Placeholders []string
	Tags         []string
}

type TranslateParams struct {
	SourceLang   string
	TargetLang   string
	Model        string
	Temperature  float64
	SystemPrompt string
	UserPrompt   string
}

type TranslateResult struct {
	Translation string
	Raw         string
}

type ModelInfo struct {
	Name          string
	Description   string
	ContextTokens int
}

// Provider represents a single LLM provider implementation.
type Provider interface {
	Translate(ctx context.Context, seg Segment, p TranslateParams) (TranslateResult, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
	Test(ctx context.Context) error
}

// ErrUnparsable is returned when a model answered but no translation could
// be extracted from its reply. Callers may retry.
var ErrUnparsable = errors.New("unparsable model reply")
