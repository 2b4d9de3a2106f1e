package triage

import (
	"strings"

	"github.com/pranavk-10/GAP-Github/internal/domain"
)

// HistoryWindow is the number of trailing messages included in a prompt.
const HistoryWindow = 12

// NoHistory is the transcript used when the conversation has just started.
const NoHistory = "No previous conversation."

// FormatHistory renders the trailing window of history as "Patient:"/"Doctor:"
// lines in chronological order.
func FormatHistory(history []domain.ChatMessage) string {
	if len(history) == 0 {
		return NoHistory
	}
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	lines := make([]string, 0, len(history))
	for _, m := range history {
		label := "Doctor"
		if m.Role == domain.RolePatient {
			label = "Patient"
		}
		lines = append(lines, label+": "+strings.TrimSpace(m.Content))
	}
	return strings.Join(lines, "\n")
}
