package quality

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Audit) error
	GetByAgentRunID(ctx context.Context, agentRunID uuid.UUID) (*Audit, error)
	List(ctx context.Context, limit, offset int) ([]*Audit, int, error)
	CountByClassification(ctx context.Context) (map[Classification]int, error)
}
