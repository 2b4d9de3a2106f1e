package triage

import (
	"fmt"
	"strings"

	"github.com/pranavk-10/GAP-Github/internal/domain"
)

// BuildQuestioningPrompt asks the model for exactly one follow-up question.
// index is embedded both in the rules and in the required output shape.
func BuildQuestioningPrompt(query, historyText string, lang domain.Language, index int) string {
	return strings.TrimSpace(fmt.Sprintf(`You are a calm, empathetic medical assistant conducting a structured patient interview.

RULES:
- Respond ONLY in %[1]s.
- Ask exactly ONE short, clear follow-up question based on the patient's previous answers.
- This is question number %[2]d of %[3]d.
- The question must be specific and clinically relevant (e.g. duration, severity, location, associated symptoms, past medical history, medications taken).
- Do NOT repeat questions already asked in the conversation history.
- Do NOT provide any advice, diagnosis, or assessment yet.
- Do NOT ask multiple questions at once.
- Keep the question concise (1-2 sentences).
- Return ONLY valid JSON in exactly this format (no markdown, no extra text):

{
  "stage": "questioning",
  "question": "<your single question here>",
  "question_number": %[2]d
}

Conversation so far:
%[4]s

Patient's initial complaint / latest message:
%[5]s
`, lang.Name(), index, domain.MaxQuestions, historyText, query))
}

// BuildFinalPrompt asks the model to close the interview with an educational
// assessment of fixed shape.
func BuildFinalPrompt(query, historyText string, lang domain.Language) string {
	return strings.TrimSpace(fmt.Sprintf(`You are a calm, empathetic medical assistant who has now gathered enough information about the patient.

RULES:
- Respond ONLY in %[1]s.
- Based on all conversation history, provide a complete educational assessment.
- Do NOT provide an official diagnosis; provide educational guidance and next steps.
- Be practical, compassionate, and clear.
- Give exactly %[4]d advice items and exactly %[5]d red flags.
- Return ONLY valid JSON in exactly this format (no markdown, no extra text):

{
  "stage": "final",
  "assessment": "<2-4 sentence summary of what the patient likely has or what is going on, based on their symptoms>",
  "advice": [
    "<actionable advice step 1>",
    "<actionable advice step 2>",
    "<actionable advice step 3>",
    "<actionable advice step 4>"
  ],
  "red_flags": [
    "<warning sign that requires immediate medical attention 1>",
    "<warning sign 2>",
    "<warning sign 3>"
  ],
  "disclaimer": "<1 sentence educational disclaimer>"
}

Conversation so far:
%[2]s

Patient's latest message:
%[3]s
`, lang.Name(), historyText, query, domain.FinalAdviceItems, domain.FinalRedFlagItems))
}

// BuildPrompt dispatches on the selected stage.
func BuildPrompt(sel Selection, query, historyText string, lang domain.Language) string {
	if sel.IsFinal() {
		return BuildFinalPrompt(query, historyText, lang)
	}
	return BuildQuestioningPrompt(query, historyText, lang, sel.QuestionNumber)
}
