package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/template"

	"github.com/amishk599/coldmail/internal/model"
)

// LLMEmailComposer implements model.EmailComposer using an LLM.
type LLMEmailComposer struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMEmailComposer creates a composer. A nil tmpl uses ColdEmailTemplate.
func NewLLMEmailComposer(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMEmailComposer {
	if tmpl == nil {
		tmpl = ColdEmailTemplate
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LLMEmailComposer{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// Compose returns the model's email for job, citing links. The reply is
// returned unmodified.
func (c *LLMEmailComposer) Compose(ctx context.Context, job model.JobPosting, links []string) (string, error) {
	if links == nil {
		links = []string{}
	}
	var linkList bytes.Buffer
	enc := json.NewEncoder(&linkList)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(links); err != nil {
		return "", fmt.Errorf("encode links: %w", err)
	}

	var promptBuf bytes.Buffer
	if err := c.tmpl.Execute(&promptBuf, struct{ JobDescription, LinkList string }{
		JobDescription: job.String(),
		LinkList:       strings.TrimSpace(linkList.String()),
	}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	email, err := c.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}

	c.logger.Debug("email composed", "links", len(links), "email_len", len(email))
	return email, nil
}
