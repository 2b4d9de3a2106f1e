// Package langdetect adapts statistical language detection to domain.LanguageDetector.
package langdetect

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// ErrUndetectable is returned when the text carries no recognisable script.
var ErrUndetectable = errors.New("language undetectable")

// Whatlang detects languages with trigram profiles. Detection is limited to
// the languages the assistant can answer in, so that short Devanagari input
// is not split across Hindi, Marathi and Nepali.
type Whatlang struct {
	opts whatlanggo.Options
}

// NewWhatlang returns a detector restricted to English and Hindi.
func NewWhatlang() *Whatlang {
	return &Whatlang{opts: whatlanggo.Options{
		Whitelist: map[whatlanggo.Lang]bool{
			whatlanggo.Eng: true,
			whatlanggo.Hin: true,
		},
	}}
}

// Detect returns the ISO 639-1 code of text.
func (w *Whatlang) Detect(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrUndetectable
	}
	info := whatlanggo.DetectWithOptions(text, w.opts)
	if info.Script == nil || info.Lang < 0 {
		return "", ErrUndetectable
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", ErrUndetectable
	}
	return code, nil
}
