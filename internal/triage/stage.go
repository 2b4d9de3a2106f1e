package triage

import "github.com/pranavk-10/GAP-Github/internal/domain"

// Selection is the stage chosen for the current turn.
type Selection struct {
	Kind domain.StageKind
	// QuestionNumber is question_count+1; only meaningful for questioning turns.
	QuestionNumber int
}

// IsFinal reports whether the turn closes the interview.
func (s Selection) IsFinal() bool { return s.Kind == domain.StageFinal }

// SelectStage picks questioning until MaxQuestions answers have been
// collected, then final. Negative counts are treated as zero.
func SelectStage(questionCount int) Selection {
	if questionCount < 0 {
		questionCount = 0
	}
	if questionCount >= domain.MaxQuestions {
		return Selection{Kind: domain.StageFinal, QuestionNumber: questionCount + 1}
	}
	return Selection{Kind: domain.StageQuestioning, QuestionNumber: questionCount + 1}
}
