package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/amishk599/coldmail/internal/model"
)

var (
	errEmptyArray = errors.New("reply is an empty JSON array")
	errNotObject  = errors.New("reply is not a JSON object")
)

// parseJobPosting decodes an extraction reply. The reply may be wrapped in a
// markdown code fence. When it is an array only the first element is used.
func parseJobPosting(raw string) (model.JobPosting, error) {
	var v any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &v); err != nil {
		return model.JobPosting{}, &model.ExtractionParseError{Raw: raw, Err: err}
	}

	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return model.JobPosting{}, &model.ExtractionParseError{Raw: raw, Err: errEmptyArray}
		}
		v = arr[0]
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return model.JobPosting{}, &model.ExtractionParseError{Raw: raw, Err: fmt.Errorf("%w: got %T", errNotObject, v)}
	}

	return model.JobPosting{
		Role:        fieldString(lookup(obj, "role")),
		Experience:  fieldString(lookup(obj, "experience")),
		Skills:      fieldString(lookup(obj, "skills")),
		Description: fieldString(lookup(obj, "description")),
		Raw:         obj,
	}, nil
}

// stripCodeFence returns the body of the first ``` block in s, or s trimmed
// when there is none.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}
	body := s[start+3:]
	// drop the info string (```json)
	if nl := strings.Index(body, "\n"); nl != -1 {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// lookup finds key exactly, then case-insensitively.
func lookup(obj map[string]any, key string) any {
	if v, ok := obj[key]; ok {
		return v
	}
	for k, v := range obj {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return v
		}
	}
	return nil
}

// fieldString coerces a decoded JSON value to display text. Lists are joined
// with ", " and nested objects are re-encoded as JSON.
func fieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := fieldString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		s, err := cast.ToStringE(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return strings.TrimSpace(s)
	}
}
