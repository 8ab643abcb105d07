package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/amishk599/coldmail/internal/ai"
	"github.com/amishk599/coldmail/internal/embed"
	"github.com/amishk599/coldmail/internal/model"
	"github.com/amishk599/coldmail/internal/portfolio"
	"github.com/amishk599/coldmail/internal/store"
)

// --- Fakes ---

type fakeFetcher struct {
	text  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeExtractor struct {
	job   model.JobPosting
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (model.JobPosting, error) {
	f.calls++
	return f.job, f.err
}

type fakeMatcher struct {
	links     []string
	err       error
	calls     int
	gotSkills string
	gotK      int
}

func (f *fakeMatcher) Match(_ context.Context, skills string, k int) ([]string, error) {
	f.calls++
	f.gotSkills = skills
	f.gotK = k
	return f.links, f.err
}

type fakeComposer struct {
	email    string
	err      error
	calls    int
	gotLinks []string
}

func (f *fakeComposer) Compose(_ context.Context, _ model.JobPosting, links []string) (string, error) {
	f.calls++
	f.gotLinks = links
	return f.email, f.err
}

// scriptedProvider answers LLM calls in order.
type scriptedProvider struct {
	replies []string
	calls   int
}

func (p *scriptedProvider) Complete(_ context.Context, _ string) (string, error) {
	if p.calls >= len(p.replies) {
		return "", errors.New("unexpected llm call")
	}
	r := p.replies[p.calls]
	p.calls++
	return r, nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var defaultOpts = Options{MinChars: 100, PreviewChars: 1500, TopK: 2}

var longPage = "Senior Backend Engineer at Acme. " + strings.Repeat("We build APIs in Python and Django. ", 10)

type fixture struct {
	fetcher   *fakeFetcher
	extractor *fakeExtractor
	matcher   *fakeMatcher
	composer  *fakeComposer
	pipeline  *Pipeline
}

func newFixture(pageText string) *fixture {
	f := &fixture{
		fetcher:   &fakeFetcher{text: pageText},
		extractor: &fakeExtractor{job: model.JobPosting{Role: "Backend Engineer", Skills: "Python, Django"}},
		matcher:   &fakeMatcher{links: []string{"https://example.com/proj1"}},
		composer:  &fakeComposer{email: "Dear Hiring Manager"},
	}
	f.pipeline = New(f.fetcher, f.extractor, f.matcher, f.composer, defaultOpts, discardLogger())
	return f
}

func recordStages() (*[]Stage, Observer) {
	var stages []Stage
	return &stages, func(s Stage) { stages = append(stages, s) }
}

// --- Tests ---

func TestRun_Success(t *testing.T) {
	f := newFixture(longPage)
	stages, observe := recordStages()

	res, err := f.pipeline.Run(context.Background(), "  https://example.com/job  ", observe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.URL != "https://example.com/job" {
		t.Errorf("URL = %q, want trimmed", res.URL)
	}
	if res.Email != "Dear Hiring Manager" {
		t.Errorf("Email = %q", res.Email)
	}
	if res.Job == nil || res.Job.Role != "Backend Engineer" {
		t.Errorf("Job = %+v", res.Job)
	}
	if f.matcher.gotSkills != "Python, Django" || f.matcher.gotK != 2 {
		t.Errorf("matcher called with %q, k=%d", f.matcher.gotSkills, f.matcher.gotK)
	}
	if !reflect.DeepEqual(f.composer.gotLinks, []string{"https://example.com/proj1"}) {
		t.Errorf("composer links = %v", f.composer.gotLinks)
	}

	want := []Stage{StageFetching, StageExtracting, StageMatching, StageComposing, StageDone}
	if !reflect.DeepEqual(*stages, want) {
		t.Errorf("stages = %v, want %v", *stages, want)
	}
}

func TestRun_ShortContentHaltsBeforeLLM(t *testing.T) {
	page := "   " + strings.Repeat("x", 99) + "\n\n"
	f := newFixture(page)
	stages, observe := recordStages()

	res, err := f.pipeline.Run(context.Background(), "https://example.com/job", observe)
	if model.Classify(err) != model.KindScrapeInsufficient {
		t.Fatalf("Classify = %v, want scrape_insufficient (err=%v)", model.Classify(err), err)
	}
	if f.extractor.calls != 0 || f.matcher.calls != 0 || f.composer.calls != 0 {
		t.Errorf("later stages ran: extract=%d match=%d compose=%d", f.extractor.calls, f.matcher.calls, f.composer.calls)
	}
	if res.Preview != page {
		t.Errorf("preview should be shown even when content is too short")
	}
	if last := (*stages)[len(*stages)-1]; last != StageError {
		t.Errorf("last stage = %v, want error", last)
	}
}

func TestRun_ExactlyMinCharsPasses(t *testing.T) {
	f := newFixture(strings.Repeat("é", 100))

	if _, err := f.pipeline.Run(context.Background(), "https://example.com/job", nil); err != nil {
		t.Fatalf("100 characters should pass the gate: %v", err)
	}
}

func TestRun_ExtractionParseErrorSkipsMatching(t *testing.T) {
	f := newFixture(longPage)
	f.extractor.err = &model.ExtractionParseError{Raw: "not json", Err: errors.New("invalid character")}

	res, err := f.pipeline.Run(context.Background(), "https://example.com/job", nil)
	if model.Classify(err) != model.KindExtractionParse {
		t.Fatalf("Classify = %v, want extraction_parse", model.Classify(err))
	}
	if got := model.UserMessage(err); got != "Invalid JSON from model:\n\nnot json" {
		t.Errorf("UserMessage = %q", got)
	}
	if f.matcher.calls != 0 || f.composer.calls != 0 {
		t.Error("matching and composing must not run after a parse failure")
	}
	if res.Preview == "" {
		t.Error("preview should survive a later failure")
	}
}

func TestRun_FetchErrorIsUnclassified(t *testing.T) {
	f := newFixture("")
	f.fetcher.err = &model.HTTPError{StatusCode: 403}

	res, err := f.pipeline.Run(context.Background(), "https://example.com/job", nil)
	if model.Classify(err) != model.KindUnclassified {
		t.Fatalf("Classify = %v, want unclassified", model.Classify(err))
	}
	if !strings.HasPrefix(model.UserMessage(err), "Something went wrong: ") {
		t.Errorf("UserMessage = %q", model.UserMessage(err))
	}
	if res.Preview != "" {
		t.Errorf("Preview = %q, want empty when fetch failed", res.Preview)
	}
}

func TestRun_MatchAndComposeErrors(t *testing.T) {
	f := newFixture(longPage)
	f.matcher.err = errors.New("vector store unavailable")
	if _, err := f.pipeline.Run(context.Background(), "https://example.com/job", nil); err == nil {
		t.Fatal("expected match error")
	}
	if f.composer.calls != 0 {
		t.Error("composer must not run after a match failure")
	}

	f = newFixture(longPage)
	f.composer.err = errors.New("timeout")
	res, err := f.pipeline.Run(context.Background(), "https://example.com/job", nil)
	if err == nil {
		t.Fatal("expected compose error")
	}
	if len(res.Links) != 1 {
		t.Errorf("Links = %v, want links kept from the match stage", res.Links)
	}
}

func TestRun_EmptyURL(t *testing.T) {
	f := newFixture(longPage)

	if _, err := f.pipeline.Run(context.Background(), "   ", nil); err == nil {
		t.Fatal("expected error for blank url")
	}
	if f.fetcher.calls != 0 {
		t.Error("fetcher should not be called for a blank url")
	}
}

func TestRun_PreviewIsTruncated(t *testing.T) {
	page := strings.Repeat("ü", 2000)
	f := newFixture(page)

	res, err := f.pipeline.Run(context.Background(), "https://example.com/job", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len([]rune(res.Preview)); got != 1500 {
		t.Errorf("preview runes = %d, want 1500", got)
	}
	if res.PageText != page {
		t.Error("PageText should hold the full text")
	}
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	source := filepath.Join(t.TempDir(), "my_portfolio.csv")
	if err := os.WriteFile(source, []byte("Techstack,Links\n\"Python, Django\",https://example.com/proj1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	vs, err := store.NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer vs.Close()

	index := portfolio.NewIndex(source, portfolio.Columns{TechStack: "Techstack", Link: "Links"}, vs, "portfolio", embed.NewHashEmbedder(384), discardLogger())
	provider := &scriptedProvider{replies: []string{
		`{"role":"Backend Engineer","experience":"2 years","skills":"Python, Django","description":"Build APIs"}`,
		"Subject: Backend Engineer\n\nHello, see https://example.com/proj1",
	}}

	p := New(
		&fakeFetcher{text: longPage},
		ai.NewLLMJobExtractor(provider, nil, discardLogger()),
		portfolio.NewMatcher(index),
		ai.NewLLMEmailComposer(provider, nil, discardLogger()),
		defaultOpts,
		discardLogger(),
	)

	res, err := p.Run(ctx, "https://example.com/careers/123", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(res.Links, []string{"https://example.com/proj1"}) {
		t.Errorf("Links = %v", res.Links)
	}
	if !strings.Contains(res.Email, "https://example.com/proj1") {
		t.Errorf("Email = %q", res.Email)
	}
	if provider.calls != 2 {
		t.Errorf("llm calls = %d, want 2", provider.calls)
	}
}

func TestStageString(t *testing.T) {
	if StageComposing.String() != "composing" || StageError.Label() != "Failed" {
		t.Error("unexpected stage text")
	}
	if !StageDone.Terminal() || StageMatching.Terminal() {
		t.Error("unexpected Terminal result")
	}
}
