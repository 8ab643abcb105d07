package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amishk599/coldmail/internal/model"
)

// Result holds everything one request produced. Fields after the failing
// stage are left empty.
type Result struct {
	URL      string
	PageText string
	Preview  string
	Job      *model.JobPosting
	Links    []string
	Email    string
}

// Options tunes the content gate and the match size.
type Options struct {
	MinChars     int
	PreviewChars int
	TopK         int
}

// Observer is told about every stage transition, including the terminal one.
type Observer func(Stage)

// Pipeline owns one generate request end to end:
// fetch → extract → match → compose.
type Pipeline struct {
	fetcher   model.PageFetcher
	extractor model.JobExtractor
	matcher   model.LinkMatcher
	composer  model.EmailComposer
	opts      Options
	logger    *slog.Logger
}

// New creates a pipeline wired with all its dependencies.
func New(
	fetcher model.PageFetcher,
	extractor model.JobExtractor,
	matcher model.LinkMatcher,
	composer model.EmailComposer,
	opts Options,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		matcher:   matcher,
		composer:  composer,
		opts:      opts,
		logger:    logger,
	}
}

var errEmptyURL = errors.New("job url is empty")

// Run executes one request for url. The returned Result is never nil; on
// error it carries whatever was produced before the failure (notably the
// preview once the page was fetched).
func (p *Pipeline) Run(ctx context.Context, url string, observe Observer) (*Result, error) {
	if observe == nil {
		observe = func(Stage) {}
	}
	start := time.Now()
	url = strings.TrimSpace(url)
	res := &Result{URL: url}

	fail := func(stage Stage, err error) (*Result, error) {
		p.logger.Warn("generate failed",
			"url", url,
			"stage", stage.String(),
			"kind", model.Classify(err).String(),
			"error", err,
		)
		observe(StageError)
		return res, err
	}

	if url == "" {
		return fail(StageIdle, errEmptyURL)
	}

	observe(StageFetching)
	text, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return fail(StageFetching, err)
	}
	res.PageText = text
	res.Preview = truncateRunes(text, p.opts.PreviewChars)
	p.logger.Debug("page fetched", "url", url, "chars", utf8.RuneCountInString(text))

	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < p.opts.MinChars {
		return fail(StageFetching, &model.ScrapeInsufficientError{Length: n, Min: p.opts.MinChars})
	}

	observe(StageExtracting)
	job, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return fail(StageExtracting, fmt.Errorf("extract job: %w", err))
	}
	res.Job = &job

	observe(StageMatching)
	links, err := p.matcher.Match(ctx, job.Skills, p.opts.TopK)
	if err != nil {
		return fail(StageMatching, fmt.Errorf("match portfolio: %w", err))
	}
	res.Links = links

	observe(StageComposing)
	email, err := p.composer.Compose(ctx, job, links)
	if err != nil {
		return fail(StageComposing, fmt.Errorf("compose email: %w", err))
	}
	res.Email = email

	observe(StageDone)
	p.logger.Info("email generated",
		"url", url,
		"role", job.Role,
		"links", len(links),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res, nil
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
