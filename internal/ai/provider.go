package ai

import "context"

// LLMProvider sends a single-turn prompt to a chat model and returns the raw
// text of the first choice.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
