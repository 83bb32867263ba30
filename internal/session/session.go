package session

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrInvalidEntry = errors.New("invalid session entry")

type Entry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (e Entry) Validate() error {
	if e.Role != RoleUser && e.Role != RoleAssistant {
		return ErrInvalidEntry
	}
	return nil
}

// Log is the append-only chat history of one session.
type Log interface {
	Append(ctx context.Context, e Entry) error
	Entries(ctx context.Context) ([]Entry, error)
}

type Store interface {
	Open(sessionID string) Log
}
