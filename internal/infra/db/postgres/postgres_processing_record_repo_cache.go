package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/repository"
	"manuscript-pipeline/internal/infra/metrics"
	red "manuscript-pipeline/internal/infra/redis"
)

var _ repository.ProcessingRecordRepository = (*recordRepoCacheDecorator)(nil)

// recordRepoCacheDecorator serves status polls from Redis. Reads inside a
// transaction bypass the cache; every write invalidates the target key.
type recordRepoCacheDecorator struct {
	inner repository.ProcessingRecordRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewProcessingRecordRepoCacheDecorator(inner repository.ProcessingRecordRepository, cache red.RedisClient, ttl time.Duration, log *zerolog.Logger) repository.ProcessingRecordRepository {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &recordRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: log}
}

func recordKey(targetID string) string { return "record:" + targetID }

func (d *recordRepoCacheDecorator) FindByTarget(ctx context.Context, tx repository.Tx, targetID string) (*model.ProcessingRecord, error) {
	if tx != nil {
		return d.inner.FindByTarget(ctx, tx, targetID)
	}
	key := recordKey(targetID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var rec model.ProcessingRecord
		if json.Unmarshal([]byte(val), &rec) == nil {
			metrics.IncCacheRequest("processing_record", "hit")
			return &rec, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("record cache read failed")
	}

	metrics.IncCacheRequest("processing_record", "miss")
	rec, err := d.inner.FindByTarget(ctx, nil, targetID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(rec); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return rec, nil
}

func (d *recordRepoCacheDecorator) invalidate(ctx context.Context, targetID string) {
	if err := d.cache.Del(ctx, recordKey(targetID)); err != nil {
		d.log.Warn().Err(err).Str("target_id", targetID).Msg("record cache invalidation failed")
	}
}

func (d *recordRepoCacheDecorator) Reset(ctx context.Context, tx repository.Tx, rec *model.ProcessingRecord) error {
	defer d.invalidate(ctx, rec.TargetID)
	return d.inner.Reset(ctx, tx, rec)
}

func (d *recordRepoCacheDecorator) UpdateOCR(ctx context.Context, tx repository.Tx, targetID, generation string, u model.OCRUpdate) error {
	defer d.invalidate(ctx, targetID)
	return d.inner.UpdateOCR(ctx, tx, targetID, generation, u)
}

func (d *recordRepoCacheDecorator) BeginTranslation(ctx context.Context, tx repository.Tx, targetID, generation string) (bool, error) {
	defer d.invalidate(ctx, targetID)
	return d.inner.BeginTranslation(ctx, tx, targetID, generation)
}

func (d *recordRepoCacheDecorator) CompleteTranslation(ctx context.Context, tx repository.Tx, targetID, generation, hindi, english string) error {
	defer d.invalidate(ctx, targetID)
	return d.inner.CompleteTranslation(ctx, tx, targetID, generation, hindi, english)
}

func (d *recordRepoCacheDecorator) FailTranslation(ctx context.Context, tx repository.Tx, targetID, generation string) error {
	defer d.invalidate(ctx, targetID)
	return d.inner.FailTranslation(ctx, tx, targetID, generation)
}
