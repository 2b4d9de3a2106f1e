package triage

import (
	"fmt"
	"strings"

	"github.com/pranavk-10/GAP-Github/internal/domain"
)

// Source tells where a payload came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Outcome is the result of one turn: the payload plus how it was obtained.
type Outcome struct {
	Stage  domain.DialogueStage
	Source Source
	// Reason explains a fallback; empty for model payloads.
	Reason string
}

// DecodeError reports an object that cannot become the requested payload.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Field, e.Reason)
}

// Unwrap makes decode failures match domain.ErrMalformedOutput.
func (e *DecodeError) Unwrap() error { return domain.ErrMalformedOutput }

// DecodeStage turns an extracted JSON object into the payload for sel. A
// missing "stage" is taken from sel; a stage naming the other variant, or any
// missing or empty field, is a DecodeError. QuestionNumber always comes from
// sel, never from the model.
func DecodeStage(obj map[string]any, sel Selection) (domain.DialogueStage, error) {
	if obj == nil {
		return nil, &DecodeError{Field: "object", Reason: "nil"}
	}
	if raw, ok := obj["stage"]; ok {
		s, isStr := raw.(string)
		if !isStr {
			return nil, &DecodeError{Field: "stage", Reason: "not a string"}
		}
		if domain.StageKind(strings.ToLower(strings.TrimSpace(s))) != sel.Kind {
			return nil, &DecodeError{Field: "stage", Reason: fmt.Sprintf("got %q, want %q", s, sel.Kind)}
		}
	}
	if sel.IsFinal() {
		return decodeFinal(obj)
	}
	q, err := requireString(obj, "question")
	if err != nil {
		return nil, err
	}
	return &domain.Questioning{Question: q, QuestionNumber: sel.QuestionNumber}, nil
}

func decodeFinal(obj map[string]any) (*domain.Final, error) {
	assessment, err := requireString(obj, "assessment")
	if err != nil {
		return nil, err
	}
	advice, err := requireList(obj, "advice", domain.FinalAdviceItems)
	if err != nil {
		return nil, err
	}
	redFlags, err := requireList(obj, "red_flags", domain.FinalRedFlagItems)
	if err != nil {
		return nil, err
	}
	disclaimer, err := requireString(obj, "disclaimer")
	if err != nil {
		return nil, err
	}
	return &domain.Final{Assessment: assessment, Advice: advice, RedFlags: redFlags, Disclaimer: disclaimer}, nil
}

func requireString(obj map[string]any, field string) (string, error) {
	raw, ok := obj[field]
	if !ok {
		return "", &DecodeError{Field: field, Reason: "missing"}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &DecodeError{Field: field, Reason: "not a string"}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &DecodeError{Field: field, Reason: "empty"}
	}
	return s, nil
}

func requireList(obj map[string]any, field string, n int) ([]string, error) {
	raw, ok := obj[field]
	if !ok {
		return nil, &DecodeError{Field: field, Reason: "missing"}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &DecodeError{Field: field, Reason: "not a list"}
	}
	if len(items) != n {
		return nil, &DecodeError{Field: field, Reason: fmt.Sprintf("got %d items, want %d", len(items), n)}
	}
	out := make([]string, 0, n)
	for i, it := range items {
		s, ok := it.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, &DecodeError{Field: fmt.Sprintf("%s[%d]", field, i), Reason: "not a non-empty string"}
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, nil
}
