package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/template"

	"github.com/amishk599/coldmail/internal/model"
)

// LLMJobExtractor implements model.JobExtractor using an LLM.
type LLMJobExtractor struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMJobExtractor creates an extractor. A nil tmpl uses ExtractJobTemplate.
func NewLLMJobExtractor(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMJobExtractor {
	if tmpl == nil {
		tmpl = ExtractJobTemplate
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LLMJobExtractor{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// Extract asks the model for the job fields found in pageText. A reply that is
// not a JSON object (or an array starting with one) yields
// *model.ExtractionParseError carrying the reply verbatim.
func (e *LLMJobExtractor) Extract(ctx context.Context, pageText string) (model.JobPosting, error) {
	var promptBuf bytes.Buffer
	if err := e.tmpl.Execute(&promptBuf, struct{ PageText string }{PageText: pageText}); err != nil {
		return model.JobPosting{}, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := e.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.JobPosting{}, fmt.Errorf("llm complete: %w", err)
	}

	job, err := parseJobPosting(raw)
	if err != nil {
		e.logger.Debug("extraction reply rejected", "error", err, "reply_len", len(raw))
		return model.JobPosting{}, err
	}

	e.logger.Debug("job extracted", "role", job.Role, "skills", job.Skills)
	return job, nil
}
