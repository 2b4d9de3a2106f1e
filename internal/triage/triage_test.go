package triage

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pranavk-10/GAP-Github/internal/domain"
)

type mockDetector struct{ mock.Mock }

func (m *mockDetector) Detect(text string) (string, error) {
	args := m.Called(text)
	return args.String(0), args.Error(1)
}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name string
		code string
		err  error
		want domain.Language
	}{
		{"hindi", "hi", nil, domain.Hindi},
		{"hindi upper", " HI ", nil, domain.Hindi},
		{"english", "en", nil, domain.English},
		{"other language collapses", "fr", nil, domain.English},
		{"detector error", "", errors.New("no features"), domain.English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &mockDetector{}
			d.On("Detect", "text").Return(tt.code, tt.err).Once()
			assert.Equal(t, tt.want, NewClassifier(d).Classify("text"))
			d.AssertExpectations(t)
		})
	}
}

func TestClassifier_NilDetector(t *testing.T) {
	assert.Equal(t, domain.English, NewClassifier(nil).Classify("मुझे सिरदर्द है"))
	var c *Classifier
	assert.Equal(t, domain.English, c.Classify("anything"))
}

func TestFormatHistory_Empty(t *testing.T) {
	assert.Equal(t, NoHistory, FormatHistory(nil))
	assert.Equal(t, "No previous conversation.", FormatHistory([]domain.ChatMessage{}))
}

func TestFormatHistory_LabelsAndTrims(t *testing.T) {
	got := FormatHistory([]domain.ChatMessage{
		{Role: domain.RolePatient, Content: "  I have a headache \n"},
		{Role: domain.RoleAssistant, Content: "How long?"},
		{Role: domain.RolePatient, Content: "Two days"},
	})
	assert.Equal(t, "Patient: I have a headache\nDoctor: How long?\nPatient: Two days", got)
}

func TestFormatHistory_KeepsTrailingWindow(t *testing.T) {
	var history []domain.ChatMessage
	for i := 0; i < 20; i++ {
		role := domain.RolePatient
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		history = append(history, domain.ChatMessage{Role: role, Content: fmt.Sprintf("m%d", i)})
	}

	lines := strings.Split(FormatHistory(history), "\n")
	require.Len(t, lines, HistoryWindow)
	assert.Equal(t, "Patient: m8", lines[0])
	assert.Equal(t, "Doctor: m19", lines[len(lines)-1])
	for i, line := range lines {
		assert.True(t, strings.HasSuffix(line, fmt.Sprintf("m%d", i+8)), line)
	}
}

func TestFormatHistory_ExactlyWindow(t *testing.T) {
	history := make([]domain.ChatMessage, HistoryWindow)
	for i := range history {
		history[i] = domain.ChatMessage{Role: domain.RolePatient, Content: fmt.Sprintf("m%d", i)}
	}
	lines := strings.Split(FormatHistory(history), "\n")
	require.Len(t, lines, HistoryWindow)
	assert.Equal(t, "Patient: m0", lines[0])
}

func TestSelectStage(t *testing.T) {
	for count := 0; count < domain.MaxQuestions; count++ {
		sel := SelectStage(count)
		assert.Equal(t, domain.StageQuestioning, sel.Kind, "count=%d", count)
		assert.Equal(t, count+1, sel.QuestionNumber)
		assert.False(t, sel.IsFinal())
	}
	for _, count := range []int{5, 6, 10, 100} {
		sel := SelectStage(count)
		assert.Equal(t, domain.StageFinal, sel.Kind, "count=%d", count)
		assert.True(t, sel.IsFinal())
	}
	assert.Equal(t, Selection{Kind: domain.StageQuestioning, QuestionNumber: 1}, SelectStage(-2))
}

func TestBuildQuestioningPrompt(t *testing.T) {
	p := BuildQuestioningPrompt("I have a headache", "No previous conversation.", domain.English, 3)

	assert.Contains(t, p, "Respond ONLY in English.")
	assert.Contains(t, p, "This is question number 3 of 5.")
	assert.Contains(t, p, `"question_number": 3`)
	assert.Contains(t, p, `"stage": "questioning"`)
	assert.Contains(t, p, "no markdown, no extra text")
	assert.Contains(t, p, "Do NOT provide any advice, diagnosis, or assessment yet.")
	assert.True(t, strings.HasSuffix(p, "Patient's initial complaint / latest message:\nI have a headache"))
	assert.Less(t, strings.Index(p, "RULES:"), strings.Index(p, "Conversation so far:\nNo previous conversation."))
}

func TestBuildFinalPrompt(t *testing.T) {
	p := BuildFinalPrompt("still hurts", "Patient: headache\nDoctor: How long?", domain.Hindi)

	assert.Contains(t, p, "Respond ONLY in Hindi.")
	assert.Contains(t, p, `"stage": "final"`)
	assert.Contains(t, p, `"red_flags"`)
	assert.Contains(t, p, "exactly 4 advice items and exactly 3 red flags")
	assert.Contains(t, p, "Do NOT provide an official diagnosis")
	assert.Contains(t, p, "Conversation so far:\nPatient: headache\nDoctor: How long?")
	assert.True(t, strings.HasSuffix(p, "Patient's latest message:\nstill hurts"))
	assert.NotContains(t, p, "question_number")
}

func TestBuildPrompt_Dispatch(t *testing.T) {
	q := BuildPrompt(SelectStage(0), "q", NoHistory, domain.English)
	assert.Contains(t, q, `"stage": "questioning"`)
	f := BuildPrompt(SelectStage(5), "q", NoHistory, domain.English)
	assert.Contains(t, f, `"stage": "final"`)
}

func TestDefaultFallbacks_Questions(t *testing.T) {
	fb := DefaultFallbacks()

	q := fb.Question(domain.English, 1)
	assert.Equal(t, "How long have you been experiencing these symptoms?", q.Question)
	assert.Equal(t, 1, q.QuestionNumber)

	q = fb.Question(domain.Hindi, 3)
	assert.Equal(t, "क्या इसके साथ कोई और लक्षण भी हैं?", q.Question)

	// Clamped to the last entry while keeping the requested number.
	q = fb.Question(domain.English, 9)
	assert.Equal(t, "Have you taken any medications or tried any remedies? If so, did they help?", q.Question)
	assert.Equal(t, 9, q.QuestionNumber)

	q = fb.Question(domain.Language("fr"), 0)
	assert.Equal(t, "How long have you been experiencing these symptoms?", q.Question)
}

func TestDefaultFallbacks_Final(t *testing.T) {
	fb := DefaultFallbacks()
	for _, lang := range []domain.Language{domain.English, domain.Hindi} {
		f := fb.Final(lang)
		assert.Len(t, f.Advice, domain.FinalAdviceItems)
		assert.Len(t, f.RedFlags, domain.FinalRedFlagItems)
		assert.NotEmpty(t, f.Assessment)
		assert.NotEmpty(t, f.Disclaimer)
	}
	assert.Contains(t, fb.Final(domain.Hindi).Disclaimer, "शैक्षिक")

	// Mutating a returned payload must not leak into the bank.
	f := fb.Final(domain.English)
	f.Advice[0] = "changed"
	assert.NotEqual(t, "changed", fb.Final(domain.English).Advice[0])
}

func TestFallbacks_For(t *testing.T) {
	fb := DefaultFallbacks()
	assert.IsType(t, &domain.Questioning{}, fb.For(SelectStage(2), domain.English))
	assert.IsType(t, &domain.Final{}, fb.For(SelectStage(7), domain.Hindi))
}

func TestLoadFallbacks_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "en: [",
		"empty questions": "en:\n  questions: []\n",
		"short advice": `en:
  questions: ["q"]
  final:
    assessment: a
    advice: [a, b]
    red_flags: [x, y, z]
    disclaimer: d
`,
		"no english": `hi:
  questions: ["q"]
  final:
    assessment: a
    advice: [a, b, c, d]
    red_flags: [x, y, z]
    disclaimer: d
`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFallbacks([]byte(data))
			require.Error(t, err)
		})
	}
}

func validFinalObject() map[string]any {
	return map[string]any{
		"stage":      "final",
		"assessment": "Likely a tension headache.",
		"advice":     []any{"Rest", "Hydrate", "Limit screens", "See a doctor if it persists"},
		"red_flags":  []any{"Worst headache of your life", "Stiff neck with fever", "Confusion"},
		"disclaimer": "Educational only.",
	}
}

func TestDecodeStage_Questioning(t *testing.T) {
	sel := SelectStage(1)

	got, err := DecodeStage(map[string]any{"stage": "questioning", "question": " Where is the pain? ", "question_number": 7.0}, sel)
	require.NoError(t, err)
	assert.Equal(t, &domain.Questioning{Question: "Where is the pain?", QuestionNumber: 2}, got)

	// Missing stage is injected from the selection.
	got, err = DecodeStage(map[string]any{"question": "Any fever?"}, sel)
	require.NoError(t, err)
	assert.Equal(t, domain.StageQuestioning, got.Kind())
}

func TestDecodeStage_Final(t *testing.T) {
	sel := SelectStage(5)

	got, err := DecodeStage(validFinalObject(), sel)
	require.NoError(t, err)
	f, ok := got.(*domain.Final)
	require.True(t, ok)
	assert.Len(t, f.Advice, 4)
	assert.Len(t, f.RedFlags, 3)

	obj := validFinalObject()
	delete(obj, "stage")
	got, err = DecodeStage(obj, sel)
	require.NoError(t, err)
	assert.Equal(t, domain.StageFinal, got.Kind())
}

func TestDecodeStage_Failures(t *testing.T) {
	tooFewAdvice := validFinalObject()
	tooFewAdvice["advice"] = []any{"Rest"}
	numericFlag := validFinalObject()
	numericFlag["red_flags"] = []any{"a", 2.0, "c"}
	noDisclaimer := validFinalObject()
	delete(noDisclaimer, "disclaimer")

	tests := []struct {
		name string
		obj  map[string]any
		sel  Selection
	}{
		{"nil object", nil, SelectStage(0)},
		{"stage mismatch", map[string]any{"stage": "final", "question": "q"}, SelectStage(0)},
		{"stage not string", map[string]any{"stage": 1.0, "question": "q"}, SelectStage(0)},
		{"missing question", map[string]any{"stage": "questioning"}, SelectStage(0)},
		{"blank question", map[string]any{"question": "  "}, SelectStage(0)},
		{"question not string", map[string]any{"question": []any{"q"}}, SelectStage(0)},
		{"final asked, questioning given", map[string]any{"question": "q"}, SelectStage(5)},
		{"too few advice", tooFewAdvice, SelectStage(5)},
		{"non-string red flag", numericFlag, SelectStage(5)},
		{"missing disclaimer", noDisclaimer, SelectStage(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeStage(tt.obj, tt.sel)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedOutput)
			var de *DecodeError
			assert.ErrorAs(t, err, &de)
		})
	}
}
