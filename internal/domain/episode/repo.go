package episode

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Episode) error
	GetByID(ctx context.Context, id uuid.UUID) (*Episode, error)
	List(ctx context.Context, limit int) ([]*Episode, error)
	Update(ctx context.Context, e *Episode) error
}
