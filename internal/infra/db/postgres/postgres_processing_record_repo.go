package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"manuscript-pipeline/internal/domain"
	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/repository"
)

var _ repository.ProcessingRecordRepository = (*processingRecordRepo)(nil)

type processingRecordRepo struct {
	pool *pgxpool.Pool
}

func NewProcessingRecordRepo(pool *pgxpool.Pool) *processingRecordRepo {
	return &processingRecordRepo{pool: pool}
}

func (r *processingRecordRepo) FindByTarget(ctx context.Context, tx repository.Tx, targetID string) (*model.ProcessingRecord, error) {
	const q = `
SELECT target_id, raw_text, reconstructed_text, ocr_status, ocr_error,
  translation_status, hindi_text, english_text, generation, updated_at
FROM processing_records
WHERE target_id = $1`

	row, err := pickRow(ctx, r.pool, tx, q, targetID)
	if err != nil {
		return nil, err
	}
	var (
		rec       model.ProcessingRecord
		ocrStatus string
		trStatus  string
	)
	if err := row.Scan(
		&rec.TargetID, &rec.RawText, &rec.ReconstructedText, &ocrStatus, &rec.OCRError,
		&trStatus, &rec.HindiText, &rec.EnglishText, &rec.Generation, &rec.UpdatedAt,
	); err != nil {
		return nil, scanErr(err)
	}
	rec.OCRStatus = model.OCRStatus(ocrStatus)
	rec.TranslationStatus = model.TranslationStatus(trStatus)
	return &rec, nil
}

func (r *processingRecordRepo) Reset(ctx context.Context, tx repository.Tx, rec *model.ProcessingRecord) error {
	if err := ensureTarget(ctx, r.pool, tx, rec.TargetID); err != nil {
		return err
	}
	const q = `
INSERT INTO processing_records (target_id, raw_text, reconstructed_text, ocr_status, ocr_error,
  translation_status, hindi_text, english_text, generation, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (target_id) DO UPDATE SET
  raw_text = EXCLUDED.raw_text,
  reconstructed_text = EXCLUDED.reconstructed_text,
  ocr_status = EXCLUDED.ocr_status,
  ocr_error = EXCLUDED.ocr_error,
  translation_status = EXCLUDED.translation_status,
  hindi_text = EXCLUDED.hindi_text,
  english_text = EXCLUDED.english_text,
  generation = EXCLUDED.generation,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		rec.TargetID, rec.RawText, rec.ReconstructedText, string(rec.OCRStatus), rec.OCRError,
		string(rec.TranslationStatus), rec.HindiText, rec.EnglishText, rec.Generation, rec.UpdatedAt)
	return err
}

func (r *processingRecordRepo) UpdateOCR(ctx context.Context, tx repository.Tx, targetID, generation string, u model.OCRUpdate) error {
	const q = `
UPDATE processing_records
SET ocr_status = $3,
    raw_text = COALESCE($4, raw_text),
    reconstructed_text = COALESCE($5, reconstructed_text),
    ocr_error = $6,
    updated_at = now()
WHERE target_id = $1 AND generation = $2;`

	tag, err := execSQL(ctx, r.pool, tx, q, targetID, generation, string(u.Status), u.RawText, u.ReconstructedText, u.Error)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleJob
	}
	return nil
}

func (r *processingRecordRepo) BeginTranslation(ctx context.Context, tx repository.Tx, targetID, generation string) (bool, error) {
	const q = `
UPDATE processing_records
SET translation_status = 'PROCESSING', updated_at = now()
WHERE target_id = $1
  AND generation = $2
  AND reconstructed_text IS NOT NULL
  AND translation_status IN ('NONE', 'FAILED');`

	tag, err := execSQL(ctx, r.pool, tx, q, targetID, generation)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *processingRecordRepo) CompleteTranslation(ctx context.Context, tx repository.Tx, targetID, generation, hindi, english string) error {
	const q = `
UPDATE processing_records
SET translation_status = 'DONE', hindi_text = $3, english_text = $4, updated_at = now()
WHERE target_id = $1 AND generation = $2 AND translation_status = 'PROCESSING';`

	tag, err := execSQL(ctx, r.pool, tx, q, targetID, generation, hindi, english)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleJob
	}
	return nil
}

func (r *processingRecordRepo) FailTranslation(ctx context.Context, tx repository.Tx, targetID, generation string) error {
	const q = `
UPDATE processing_records
SET translation_status = 'FAILED', updated_at = now()
WHERE target_id = $1 AND generation = $2 AND translation_status = 'PROCESSING';`

	tag, err := execSQL(ctx, r.pool, tx, q, targetID, generation)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStaleJob
	}
	return nil
}
