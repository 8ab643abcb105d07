package model

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// JobPosting is the job record the LLM extracted from a careers page.
// Field presence and types are whatever the model returned; Raw keeps the
// original object so nothing is lost when it is handed back to the model.
type JobPosting struct {
	Role        string
	Experience  string
	Skills      string
	Description string
	Raw         map[string]any
}

// String renders the job as the model returned it (JSON of Raw).
// Falls back to the normalized fields when Raw is empty.
func (j JobPosting) String() string {
	src := j.Raw
	if len(src) == 0 {
		src = map[string]any{
			"role":        j.Role,
			"experience":  j.Experience,
			"skills":      j.Skills,
			"description": j.Description,
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(src); err != nil {
		return j.Role
	}
	return strings.TrimRight(buf.String(), "\n")
}

// PageFetcher retrieves the readable text of a single web page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// JobExtractor turns scraped page text into a JobPosting.
type JobExtractor interface {
	Extract(ctx context.Context, pageText string) (JobPosting, error)
}

// LinkMatcher returns up to k portfolio links relevant to the skills text.
type LinkMatcher interface {
	Match(ctx context.Context, skills string, k int) ([]string, error)
}

// EmailComposer drafts a cold email for the job citing the given links.
type EmailComposer interface {
	Compose(ctx context.Context, job JobPosting, links []string) (string, error)
}
