package chat

import "time"

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Turn is one message in a conversation transcript.
type Turn struct {
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// Session is one patient's conversation with the symptom assistant. The
// server owns the transcript; the assistant engine only ever sees the
// session id and the latest message.
type Session struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Turns     []Turn    `json:"turns"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Session) appendTurn(sender, text string, at time.Time) {
	s.Turns = append(s.Turns, Turn{Sender: sender, Text: text, At: at})
}

// clone returns a deep copy so callers never share the stored instance.
func (s *Session) clone() *Session {
	cp := *s
	cp.Turns = append([]Turn(nil), s.Turns...)
	return &cp
}
