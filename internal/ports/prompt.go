package ports

import "context"

type PromptData struct {
	SrcLang      string
	TgtLang      string
	Context      string
	Comment      string
	Text         string
	Placeholders []string
	Tags         []string
}

type PromptRenderer interface {
	Render(ctx context.Context, typ, role string, data PromptData) (string, error)
}
