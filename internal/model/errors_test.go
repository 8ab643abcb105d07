package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"short scrape", &ScrapeInsufficientError{Length: 12, Min: 100}, KindScrapeInsufficient},
		{"wrapped parse", fmt.Errorf("extract: %w", &ExtractionParseError{Raw: "nope", Err: errors.New("bad")}), KindExtractionParse},
		{"http", &HTTPError{StatusCode: 503}, KindUnclassified},
		{"plain", errors.New("boom"), KindUnclassified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUserMessage_ParseErrorIncludesRawReply(t *testing.T) {
	err := fmt.Errorf("extract job: %w", &ExtractionParseError{Raw: "Sure! Here is the job", Err: errors.New("invalid character")})

	msg := UserMessage(err)
	if !strings.HasPrefix(msg, "Invalid JSON from model:") {
		t.Errorf("message = %q, want invalid JSON prefix", msg)
	}
	if !strings.HasSuffix(msg, "Sure! Here is the job") {
		t.Errorf("message = %q, want raw reply at the end", msg)
	}
}

func TestUserMessage_ShortScrape(t *testing.T) {
	msg := UserMessage(&ScrapeInsufficientError{Length: 0, Min: 100})
	if msg != scrapeInsufficientMessage {
		t.Errorf("message = %q", msg)
	}
}

func TestUserMessage_CatchAll(t *testing.T) {
	msg := UserMessage(&HTTPError{StatusCode: 500})
	if msg != "Something went wrong: HTTP 500" {
		t.Errorf("message = %q", msg)
	}
}

func TestJobPostingString_UsesRaw(t *testing.T) {
	job := JobPosting{Role: "ignored", Raw: map[string]any{"role": "SRE", "extra": 1}}
	s := job.String()
	if !strings.Contains(s, `"role": "SRE"`) || !strings.Contains(s, `"extra": 1`) {
		t.Errorf("String() = %s", s)
	}
}

func TestJobPostingString_FallsBackToFields(t *testing.T) {
	job := JobPosting{Role: "Backend Engineer", Skills: "Go"}
	s := job.String()
	if !strings.Contains(s, `"role": "Backend Engineer"`) || !strings.Contains(s, `"skills": "Go"`) {
		t.Errorf("String() = %s", s)
	}
}

func TestJobPostingString_KeepsHTMLCharacters(t *testing.T) {
	job := JobPosting{Raw: map[string]any{"description": "R&D team <remote>"}}
	if s := job.String(); !strings.Contains(s, "R&D team <remote>") {
		t.Errorf("String() = %s", s)
	}
}
