package repository

import (
	"context"

	"manuscript-pipeline/internal/domain/model"
)

type ProcessingRecordRepository interface {
	FindByTarget(ctx context.Context, tx Tx, targetID string) (*model.ProcessingRecord, error)

	// Reset upserts the record to its freshly enqueued state.
	Reset(ctx context.Context, tx Tx, rec *model.ProcessingRecord) error

	// UpdateOCR applies u only when the stored generation matches.
	// Returns domain.ErrStaleJob otherwise.
	UpdateOCR(ctx context.Context, tx Tx, targetID, generation string, u model.OCRUpdate) error

	// BeginTranslation flips NONE/FAILED to PROCESSING for the given
	// generation. It reports false when another request got there first.
	BeginTranslation(ctx context.Context, tx Tx, targetID, generation string) (bool, error)
	CompleteTranslation(ctx context.Context, tx Tx, targetID, generation, hindi, english string) error
	FailTranslation(ctx context.Context, tx Tx, targetID, generation string) error
}
