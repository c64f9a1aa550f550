package translate

import "context"

// Prompt is a free-form completion request: one system instruction and one
// user turn.
type Prompt struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	// JSON asks engines that support it for a JSON-only response.
	JSON bool
}

// Completer runs a single completion and returns the trimmed text. Failures
// are ErrUnavailable, like translations.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, p Prompt) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}

// Oracle is an engine that both translates and completes.
type Oracle interface {
	Translator
	Completer
}
