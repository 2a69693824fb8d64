package stage

import (
	"strings"

	"github.com/claritycoach/backend/internal/model/chat"
)

const (
	// ScanWindow is how many trailing messages Classify inspects.
	ScanWindow = 6
	// minClassifiable is the shortest history that carries enough signal.
	minClassifiable = 3
)

type rule struct {
	stage   chat.Stage
	matches func(buffer string) bool
}

// rules are ordered from the latest stage to the earliest; the first match wins,
// so a buffer holding both an early and a late marker resolves to the later one.
var rules = buildRules()

func buildRules() []rule {
	out := make([]rule, 0, len(sigmaMarkers)+1)
	out = append(out, rule{stage: chat.StageCompleted, matches: completionEmitted})
	for i := len(sigmaMarkers) - 1; i >= 0; i-- {
		phrases := sigmaMarkers[i].Phrases()
		out = append(out, rule{
			stage: sigmaMarkers[i].Stage,
			matches: func(buffer string) bool {
				return containsAny(buffer, phrases)
			},
		})
	}
	return out
}

// Classify infers the stage of a conversation from its most recent messages.
// A completed prior stage is absorbing.
func Classify(history []chat.Message, prior chat.Stage) chat.Stage {
	if prior == chat.StageCompleted {
		return chat.StageCompleted
	}
	if len(history) < minClassifiable {
		return chat.StageIntro
	}

	if matched, ok := match(scanBuffer(history)); ok {
		return matched
	}
	return chat.StageIntro
}

// ClassifyReply inspects a single generated reply. Without a marker the prior
// stage is kept.
func ClassifyReply(reply string, prior chat.Stage) chat.Stage {
	if prior == chat.StageCompleted {
		return chat.StageCompleted
	}
	if matched, ok := match(reply); ok {
		return matched
	}
	return prior
}

// Reduce folds newly generated text into the caller's stage.
func Reduce(prior chat.Stage, text string) chat.Stage {
	return ClassifyReply(text, prior)
}

func match(buffer string) (chat.Stage, bool) {
	if buffer == "" {
		return "", false
	}
	for _, r := range rules {
		if r.matches(buffer) {
			return r.stage, true
		}
	}
	return "", false
}

func scanBuffer(history []chat.Message) string {
	start := len(history) - ScanWindow
	if start < 0 {
		start = 0
	}

	var builder strings.Builder
	for i, msg := range history[start:] {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(msg.Content)
	}
	return builder.String()
}

func completionEmitted(buffer string) bool {
	return strings.Contains(buffer, SnapshotHeading) && containsAny(buffer, completionProbes)
}

func containsAny(buffer string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(buffer, phrase) {
			return true
		}
	}
	return false
}
