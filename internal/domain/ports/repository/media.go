package repository

import (
	"context"

	"manuscript-pipeline/internal/domain/model"
)

type MediaRepository interface {
	// ListByTarget returns the target's media ordered by position.
	ListByTarget(ctx context.Context, tx Tx, targetID string) ([]model.Media, error)
	// Add attaches m to its target, creating the target row if needed.
	Add(ctx context.Context, tx Tx, m *model.Media) error
}
