package coach

import "github.com/claritycoach/backend/internal/model/chat"

// trimThreshold is the history length from which Optimize starts dropping turns.
const trimThreshold = 5

// RecentTurns is how many trailing dialogue turns are forwarded at a stage.
// Later stages need facts from further back, so the count never shrinks along
// the protocol order.
func RecentTurns(s chat.Stage) int {
	switch s {
	case chat.StageIntro, chat.StageSituation:
		return 4
	case chat.StageIdentify, chat.StageGut:
		return 6
	case chat.StageMental, chat.StageAction:
		return 8
	case chat.StageCompleted:
		return 12
	default:
		return 6
	}
}

// Optimize selects the messages forwarded to the provider: every instruction
// message, the first user message and the most recent dialogue turns for the
// stage. Short histories are returned as they are. The input is never modified.
func Optimize(history []chat.Message, s chat.Stage) []chat.Message {
	if len(history) < trimThreshold {
		return append([]chat.Message(nil), history...)
	}

	result := make([]chat.Message, 0, RecentTurns(s)+4)
	push := func(msg chat.Message) {
		for _, existing := range result {
			if existing.Same(msg) {
				return
			}
		}
		result = append(result, msg)
	}

	dialogue := make([]chat.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == chat.RoleSystem {
			push(msg)
			continue
		}
		if msg.IsDialogue() {
			dialogue = append(dialogue, msg)
		}
	}

	for _, msg := range dialogue {
		if msg.Role == chat.RoleUser {
			push(msg)
			break
		}
	}

	start := len(dialogue) - RecentTurns(s)
	if start < 0 {
		start = 0
	}
	for _, msg := range dialogue[start:] {
		push(msg)
	}

	return result
}
