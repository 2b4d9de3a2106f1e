// Package ai provides response cleaning and generator wrappers for the
// generative model collaborator.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pranavk-10/GAP-Github/internal/domain"
)

var (
	fenceRe         = regexp.MustCompile("```(?:json|JSON)?")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// ResponseCleaner recovers a JSON object from free-form model output.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

// ExtractObject strips markdown fences, then tries the whole text, the first
// balanced {...} span and finally the greedy span from the first '{' to the
// last '}'. It fails with *ParseError when none of them is a JSON object.
func (rc *ResponseCleaner) ExtractObject(response string) (map[string]any, error) {
	cleaned := rc.removeMarkdownBlocks(response)
	if cleaned == "" {
		return nil, &ParseError{Original: response, Message: "empty response"}
	}
	if obj, ok := decodeObject(cleaned); ok {
		return obj, nil
	}
	for _, candidate := range []string{rc.extractJSON(cleaned), greedySpan(cleaned)} {
		if candidate == "" {
			continue
		}
		if obj, ok := decodeObject(candidate); ok {
			return obj, nil
		}
		if obj, ok := decodeObject(rc.fixTrailingCommas(candidate)); ok {
			return obj, nil
		}
	}
	return nil, &ParseError{Original: response, Cleaned: cleaned, Message: "no JSON object found in model response"}
}

// CleanJSONResponse returns the JSON text of the recovered object.
func (rc *ResponseCleaner) CleanJSONResponse(response string) (string, error) {
	obj, err := rc.ExtractObject(response)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", &ParseError{Original: response, Message: err.Error()}
	}
	return string(b), nil
}

// removeMarkdownBlocks removes every ``` / ```json marker.
func (rc *ResponseCleaner) removeMarkdownBlocks(response string) string {
	response = fenceRe.ReplaceAllString(response, "")
	return strings.TrimSpace(response)
}

// extractJSON returns the first brace-balanced span starting at the first '{'.
// Braces inside JSON strings are ignored.
func (rc *ResponseCleaner) extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

// greedySpan returns the text from the first '{' to the last '}'.
func greedySpan(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return ""
	}
	return response[start : end+1]
}

// fixTrailingCommas drops commas directly before a closing brace or bracket.
func (rc *ResponseCleaner) fixTrailingCommas(response string) string {
	return trailingCommaRe.ReplaceAllString(response, "$1")
}

// IsValidJSON checks if a string is valid JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	var temp interface{}
	return json.Unmarshal([]byte(response), &temp) == nil
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// ParseError reports model output from which no JSON object could be recovered.
type ParseError struct {
	Original string
	Cleaned  string
	Message  string
}

func (e *ParseError) Error() string {
	return e.Message
}

// Unwrap makes parse failures match domain.ErrMalformedOutput.
func (e *ParseError) Unwrap() error { return domain.ErrMalformedOutput }
