package chat

// Conversation is the caller-owned transcript together with the last stage the
// caller was told about. The backend never keeps it between requests.
type Conversation struct {
	Messages []Message `json:"messages" yaml:"messages"`
	Stage    Stage     `json:"currentStep,omitempty" yaml:"currentStep,omitempty"`
}

// Validate rejects transcripts that cannot be classified or forwarded.
func (c Conversation) Validate() error {
	if len(c.Messages) == 0 {
		return ErrEmptyConversation
	}
	for i, msg := range c.Messages {
		if err := validateInbound(i, msg); err != nil {
			return err
		}
	}
	return nil
}

// PriorStage returns the caller supplied stage, defaulting to intro when it is
// missing or unknown.
func (c Conversation) PriorStage() Stage {
	if c.Stage.Valid() {
		return c.Stage
	}
	return StageIntro
}

// Append returns a new conversation with msg appended and the stage replaced by
// next. The receiver's slice is never written to.
func (c Conversation) Append(msg Message, next Stage) Conversation {
	messages := make([]Message, 0, len(c.Messages)+1)
	messages = append(messages, c.Messages...)
	messages = append(messages, msg)
	return Conversation{Messages: messages, Stage: next}
}
