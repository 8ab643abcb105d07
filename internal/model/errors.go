package model

import (
	"errors"
	"fmt"
)

// HTTPError wraps an unexpected HTTP status from a page or LLM endpoint.
type HTTPError struct {
	StatusCode int
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ScrapeInsufficientError reports scraped text that is empty or shorter than
// the configured minimum after trimming.
type ScrapeInsufficientError struct {
	Length int
	Min    int
}

func (e *ScrapeInsufficientError) Error() string {
	return fmt.Sprintf("scraped content too short: %d chars, need at least %d", e.Length, e.Min)
}

// ExtractionParseError reports an extraction reply that is not a usable JSON
// job object. Raw is the model reply verbatim.
type ExtractionParseError struct {
	Raw string
	Err error
}

func (e *ExtractionParseError) Error() string {
	return fmt.Sprintf("invalid JSON from model: %v", e.Err)
}

func (e *ExtractionParseError) Unwrap() error {
	return e.Err
}

// ErrorKind groups pipeline failures for display and tests.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindScrapeInsufficient
	KindExtractionParse
	KindUnclassified
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindScrapeInsufficient:
		return "scrape_insufficient"
	case KindExtractionParse:
		return "extraction_parse"
	default:
		return "unclassified"
	}
}

// Classify maps err onto one of the three failure kinds.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var short *ScrapeInsufficientError
	if errors.As(err, &short) {
		return KindScrapeInsufficient
	}
	var parse *ExtractionParseError
	if errors.As(err, &parse) {
		return KindExtractionParse
	}
	return KindUnclassified
}

const scrapeInsufficientMessage = "Scraped content is empty or too short. The website might block scraping or use JavaScript."

// UserMessage renders err as the banner shown to the user.
func UserMessage(err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindScrapeInsufficient:
		return scrapeInsufficientMessage
	case KindExtractionParse:
		var parse *ExtractionParseError
		errors.As(err, &parse)
		return "Invalid JSON from model:\n\n" + parse.Raw
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}
