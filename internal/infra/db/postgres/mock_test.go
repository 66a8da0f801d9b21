//go:build !integration

package postgres

import (
	"context"
	"time"

	"manuscript-pipeline/internal/domain/model"
	"manuscript-pipeline/internal/domain/ports/repository"
	red "manuscript-pipeline/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerRecordRepo mocks the database repository that the record decorator wraps.
type mockInnerRecordRepo struct {
	FindByTargetFunc        func(ctx context.Context, tx repository.Tx, targetID string) (*model.ProcessingRecord, error)
	ResetFunc               func(ctx context.Context, tx repository.Tx, rec *model.ProcessingRecord) error
	UpdateOCRFunc           func(ctx context.Context, tx repository.Tx, targetID, generation string, u model.OCRUpdate) error
	BeginTranslationFunc    func(ctx context.Context, tx repository.Tx, targetID, generation string) (bool, error)
	CompleteTranslationFunc func(ctx context.Context, tx repository.Tx, targetID, generation, hindi, english string) error
	FailTranslationFunc     func(ctx context.Context, tx repository.Tx, targetID, generation string) error
}

var _ repository.ProcessingRecordRepository = (*mockInnerRecordRepo)(nil)

func (m *mockInnerRecordRepo) FindByTarget(ctx context.Context, tx repository.Tx, targetID string) (*model.ProcessingRecord, error) {
	return m.FindByTargetFunc(ctx, tx, targetID)
}
func (m *mockInnerRecordRepo) Reset(ctx context.Context, tx repository.Tx, rec *model.ProcessingRecord) error {
	return m.ResetFunc(ctx, tx, rec)
}
func (m *mockInnerRecordRepo) UpdateOCR(ctx context.Context, tx repository.Tx, targetID, generation string, u model.OCRUpdate) error {
	return m.UpdateOCRFunc(ctx, tx, targetID, generation, u)
}
func (m *mockInnerRecordRepo) BeginTranslation(ctx context.Context, tx repository.Tx, targetID, generation string) (bool, error) {
	return m.BeginTranslationFunc(ctx, tx, targetID, generation)
}
func (m *mockInnerRecordRepo) CompleteTranslation(ctx context.Context, tx repository.Tx, targetID, generation, hindi, english string) error {
	return m.CompleteTranslationFunc(ctx, tx, targetID, generation, hindi, english)
}
func (m *mockInnerRecordRepo) FailTranslation(ctx context.Context, tx repository.Tx, targetID, generation string) error {
	return m.FailTranslationFunc(ctx, tx, targetID, generation)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc   func(ctx context.Context, key string) (string, error)
	SetFunc   func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc   func(ctx context.Context, keys ...string) error
	PingFunc  func(ctx context.Context) error
	CloseFunc func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error {
	if m.PingFunc == nil {
		return nil
	}
	return m.PingFunc(ctx)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) { return 1, nil }
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}
func (m *mockRedisClient) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	return true, nil
}
func (m *mockRedisClient) Close() error {
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc()
}
