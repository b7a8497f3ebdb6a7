package model

import "time"

// Session is the append-only chat history of one user session.
type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

func (s *Session) Append(role, content string) Message {
	msg := Message{Role: role, Content: content, CreatedAt: time.Now()}
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = msg.CreatedAt
	return msg
}

func (s *Session) Len() int {
	return len(s.Messages)
}

// History returns a copy so callers cannot rewrite past turns.
func (s *Session) History() []Message {
	out := make([]Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}
