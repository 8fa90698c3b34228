package domain

// Message is a single utterance exchanged between the user and the agent.
type Message struct {
	// Text is the plain-text payload of the message.
	Text string `json:"text"`

	// Extra carries transport- or user-specific data (attachments,
	// callback payloads). The engine never inspects it.
	Extra map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a plain text message.
func NewMessage(text string) Message {
	return Message{Text: text}
}
