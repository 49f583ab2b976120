package chat

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *SessionMessage) error
	ListSession(ctx context.Context, careTaskID uuid.UUID, sessionID string, limit int) ([]*SessionMessage, error)
}
