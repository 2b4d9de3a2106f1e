// Package triage implements the pure parts of the triage dialogue engine:
// language classification, transcript formatting, stage selection, prompt
// construction, payload decoding and the canned fallback content.
package triage

import (
	"log/slog"
	"strings"

	"github.com/pranavk-10/GAP-Github/internal/domain"
)

// Classifier collapses a statistical language detector into the two
// languages the assistant speaks.
type Classifier struct {
	detector domain.LanguageDetector
}

// NewClassifier wraps detector. A nil detector classifies everything as English.
func NewClassifier(detector domain.LanguageDetector) *Classifier {
	return &Classifier{detector: detector}
}

// Classify never fails: detection errors and any language other than Hindi
// yield English.
func (c *Classifier) Classify(text string) domain.Language {
	if c == nil || c.detector == nil {
		return domain.English
	}
	code, err := c.detector.Detect(text)
	if err != nil {
		slog.Debug("language detection failed, defaulting to english", slog.Any("error", err))
		return domain.English
	}
	if strings.EqualFold(strings.TrimSpace(code), string(domain.Hindi)) {
		return domain.Hindi
	}
	return domain.English
}
