package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/extract_job.md
var extractJobPromptRaw string

//go:embed prompts/cold_email.md
var coldEmailPromptRaw string

// ExtractJobTemplate renders the extraction prompt. Data: struct{ PageText string }.
var ExtractJobTemplate = template.Must(template.New("extract_job").Parse(extractJobPromptRaw))

// ColdEmailTemplate renders the email prompt. Data: struct{ JobDescription, LinkList string }.
var ColdEmailTemplate = template.Must(template.New("cold_email").Parse(coldEmailPromptRaw))
