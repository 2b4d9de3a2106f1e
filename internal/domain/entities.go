// Package domain holds the triage dialogue types, the error taxonomy and the
// ports implemented by adapters.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrEmptyQuery         = fmt.Errorf("%w: query cannot be empty", ErrInvalidArgument)
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrUpstream           = errors.New("upstream error")
	ErrMalformedOutput    = errors.New("malformed model output")
	ErrRateLimited        = errors.New("rate limited")
)

// UpstreamError reports a failed call to the generative model. It matches
// both ErrUpstream and the underlying cause with errors.Is.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("model request failed: %v", e.Err)
	}
	return fmt.Sprintf("model request failed (%s): %v", e.Provider, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// MaxQuestions is the number of follow-up questions asked before the final assessment.
const MaxQuestions = 5

// Field limits enforced at the transport boundary.
const (
	MaxQueryChars   = 2000
	MaxContentChars = 4000
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RolePatient   Role = "patient"
	RoleAssistant Role = "assistant"
)

// UnmarshalJSON accepts "user" as an alias for patient.
func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient", "user":
		*r = RolePatient
	case "assistant":
		*r = RoleAssistant
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, s)
	}
	return nil
}

// ChatMessage is one prior turn supplied by the caller.
type ChatMessage struct {
	Role    Role   `json:"role" validate:"required,oneof=patient assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

// QueryRequest is one inbound turn. History is chronological, oldest first.
type QueryRequest struct {
	Query         string        `json:"query" validate:"required,max=2000"`
	History       []ChatMessage `json:"history" validate:"dive"`
	QuestionCount int           `json:"question_count" validate:"gte=0,lte=10"`
}

// Language is the closed two-value classification used for prompts and fallbacks.
type Language string

const (
	English Language = "en"
	Hindi   Language = "hi"
)

// Name returns the language name as used in prompt instructions.
func (l Language) Name() string {
	if l == Hindi {
		return "Hindi"
	}
	return "English"
}

// StageKind is the value of the "stage" discriminator.
type StageKind string

const (
	StageQuestioning StageKind = "questioning"
	StageFinal       StageKind = "final"
)

// DialogueStage is the closed set of payloads a turn can produce:
// *Questioning or *Final.
type DialogueStage interface {
	Kind() StageKind
	isDialogueStage()
}

// Questioning asks the patient one more follow-up question.
type Questioning struct {
	Question       string `json:"question"`
	QuestionNumber int    `json:"question_number"`
}

// Kind implements DialogueStage.
func (*Questioning) Kind() StageKind { return StageQuestioning }
func (*Questioning) isDialogueStage() {}

// MarshalJSON emits the stage discriminator alongside the fields.
func (q *Questioning) MarshalJSON() ([]byte, error) {
	type alias Questioning
	return json.Marshal(struct {
		Stage StageKind `json:"stage"`
		*alias
	}{StageQuestioning, (*alias)(q)})
}

// Final is the educational assessment closing the interview.
type Final struct {
	Assessment string   `json:"assessment"`
	Advice     []string `json:"advice"`
	RedFlags   []string `json:"red_flags"`
	Disclaimer string   `json:"disclaimer"`
}

// Kind implements DialogueStage.
func (*Final) Kind() StageKind { return StageFinal }
func (*Final) isDialogueStage() {}

// MarshalJSON emits the stage discriminator alongside the fields.
func (f *Final) MarshalJSON() ([]byte, error) {
	type alias Final
	return json.Marshal(struct {
		Stage StageKind `json:"stage"`
		*alias
	}{StageFinal, (*alias)(f)})
}

// Number of list items a final assessment carries.
const (
	FinalAdviceItems  = 4
	FinalRedFlagItems = 3
)

// Ports

// Generator invokes the external generative text model with a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LanguageDetector returns an ISO 639-1 code for text or fails when the text
// carries no detectable language.
type LanguageDetector interface {
	Detect(text string) (string, error)
}
