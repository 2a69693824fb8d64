package coach

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/claritycoach/backend/internal/analysis/stage"
	"github.com/claritycoach/backend/internal/model/chat"
)

func TestInstructionForIsPureAndTotal(t *testing.T) {
	seen := make(map[string]chat.Stage)
	for _, s := range chat.Stages() {
		first := InstructionFor(s)
		assert.NotEmpty(t, first)
		assert.Equal(t, first, InstructionFor(s))

		if other, dup := seen[first]; dup {
			t.Fatalf("stages %s and %s share an instruction", s, other)
		}
		seen[first] = s
	}

	fallback := InstructionFor(chat.Stage("mystery"))
	assert.NotEmpty(t, fallback)
	_, dup := seen[fallback]
	assert.False(t, dup)
}

func TestInstructionsNameTheNextMarker(t *testing.T) {
	stages := chat.Stages()
	for i, s := range stages[:len(stages)-2] {
		next, ok := stage.MarkerFor(stages[i+1])
		if !ok {
			t.Fatalf("no marker for %s", stages[i+1])
		}
		text := InstructionFor(s)
		assert.Contains(t, text, next.Label(), "stage %s", s)
		assert.Equal(t, stages[i+1], stage.ClassifyReply(text, s), "instruction for %s should read as the next step", s)
	}
	assert.Contains(t, InstructionFor(chat.StageAction), stage.SnapshotIntro)
}

func TestSystemPromptCarriesContract(t *testing.T) {
	prompt := SystemPrompt()
	assert.Equal(t, prompt, SystemPrompt())

	for _, m := range stage.Markers() {
		assert.Contains(t, prompt, m.Label())
		assert.Contains(t, prompt, m.Question)
	}
	for _, literal := range []string{stage.SnapshotIntro, stage.CopyOffer, stage.SaveOffer, "Would you like a copy sent to your email"} {
		assert.Contains(t, prompt, literal)
	}
	for _, starter := range ConversationStarters {
		assert.Contains(t, prompt, starter)
	}
}

func TestWelcomeMessageHasNoStageMarkers(t *testing.T) {
	assert.True(t, strings.HasPrefix(WelcomeMessage, "I'm Clarity"))
	assert.Equal(t, chat.StageIntro, stage.ClassifyReply(WelcomeMessage, chat.StageIntro))
}
