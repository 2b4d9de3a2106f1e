package triage

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pranavk-10/GAP-Github/internal/domain"
)

//go:embed fallback.yaml
var fallbackYAML []byte

type finalYAML struct {
	Assessment string   `yaml:"assessment"`
	Advice     []string `yaml:"advice"`
	RedFlags   []string `yaml:"red_flags"`
	Disclaimer string   `yaml:"disclaimer"`
}

type languageBank struct {
	Questions []string  `yaml:"questions"`
	Final     finalYAML `yaml:"final"`
}

// Fallbacks holds the deterministic per-language content substituted for
// unusable model output.
type Fallbacks struct {
	banks map[domain.Language]languageBank
}

// LoadFallbacks parses YAML shaped like the embedded fallback.yaml and checks
// that every language can produce payloads satisfying the stage invariants.
func LoadFallbacks(data []byte) (*Fallbacks, error) {
	raw := map[string]languageBank{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("op=triage.LoadFallbacks: %w", err)
	}
	fb := &Fallbacks{banks: make(map[domain.Language]languageBank, len(raw))}
	for code, bank := range raw {
		lang := domain.Language(code)
		if len(bank.Questions) == 0 {
			return nil, fmt.Errorf("op=triage.LoadFallbacks: %s: empty question bank", code)
		}
		f := bank.Final
		if f.Assessment == "" || f.Disclaimer == "" ||
			len(f.Advice) != domain.FinalAdviceItems || len(f.RedFlags) != domain.FinalRedFlagItems {
			return nil, fmt.Errorf("op=triage.LoadFallbacks: %s: incomplete final payload", code)
		}
		fb.banks[lang] = bank
	}
	if _, ok := fb.banks[domain.English]; !ok {
		return nil, fmt.Errorf("op=triage.LoadFallbacks: english bank missing")
	}
	return fb, nil
}

// DefaultFallbacks returns the content compiled into the binary.
func DefaultFallbacks() *Fallbacks {
	fb, err := LoadFallbacks(fallbackYAML)
	if err != nil {
		panic(err)
	}
	return fb
}

func (f *Fallbacks) bank(lang domain.Language) languageBank {
	if b, ok := f.banks[lang]; ok {
		return b
	}
	return f.banks[domain.English]
}

// Question returns the canned question for questionNumber (1-based), clamped
// into the bank.
func (f *Fallbacks) Question(lang domain.Language, questionNumber int) *domain.Questioning {
	qs := f.bank(lang).Questions
	idx := questionNumber - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(qs) {
		idx = len(qs) - 1
	}
	return &domain.Questioning{Question: qs[idx], QuestionNumber: questionNumber}
}

// Final returns the canned final assessment. Slices are copied so callers
// cannot mutate the bank.
func (f *Fallbacks) Final(lang domain.Language) *domain.Final {
	src := f.bank(lang).Final
	return &domain.Final{
		Assessment: src.Assessment,
		Advice:     append([]string(nil), src.Advice...),
		RedFlags:   append([]string(nil), src.RedFlags...),
		Disclaimer: src.Disclaimer,
	}
}

// For returns the fallback payload matching sel.
func (f *Fallbacks) For(sel Selection, lang domain.Language) domain.DialogueStage {
	if sel.IsFinal() {
		return f.Final(lang)
	}
	return f.Question(lang, sel.QuestionNumber)
}
