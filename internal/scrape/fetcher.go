package scrape

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/coldmail/internal/model"
)

// Ensure Fetcher implements model.PageFetcher.
var _ model.PageFetcher = (*Fetcher)(nil)

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 5 << 20

// Output formats for extracted page content.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// noiseSelectors are removed before text extraction.
var noiseSelectors = []string{"script", "style", "noscript", "template", "svg", "iframe", "head"}

// Fetcher downloads a single page and extracts its readable content.
// One attempt per call; no retry, no JavaScript.
type Fetcher struct {
	client    *http.Client
	userAgent string
	format    string
}

// NewFetcher creates a Fetcher. format is FormatText or FormatMarkdown.
func NewFetcher(client *http.Client, userAgent, format string) *Fetcher {
	return &Fetcher{client: client, userAgent: userAgent, format: format}
}

// Fetch retrieves url and returns its extracted text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("fetch %s: unexpected status", url),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("fetch %s: read body: %w", url, err)
	}

	if isPlainText(resp.Header.Get("Content-Type")) {
		return strings.TrimSpace(string(body)), nil
	}

	text, err := f.extract(string(body))
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return text, nil
}

func (f *Fetcher) extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(strings.Join(noiseSelectors, ", ")).Remove()

	if f.format == FormatMarkdown {
		cleaned, err := doc.Html()
		if err != nil {
			return "", fmt.Errorf("render cleaned html: %w", err)
		}
		md, err := htmltomarkdown.ConvertString(cleaned)
		if err != nil {
			return "", fmt.Errorf("convert to markdown: %w", err)
		}
		return joinTitle(title, strings.TrimSpace(md)), nil
	}

	return joinTitle(title, TextOf(doc.Selection)), nil
}

// TextOf returns the text under sel with block elements on their own lines,
// runs of whitespace collapsed and blank lines dropped.
func TextOf(sel *goquery.Selection) string {
	sel.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6, section, article, header, footer, ul, ol, table, pre, blockquote").
		Each(func(_ int, s *goquery.Selection) {
			s.BeforeHtml("\n")
			s.AfterHtml("\n")
		})

	var lines []string
	for _, line := range strings.Split(sel.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func joinTitle(title, body string) string {
	if title == "" || strings.HasPrefix(body, title) {
		return body
	}
	if body == "" {
		return title
	}
	return title + "\n" + body
}

func isPlainText(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/plain"
}
