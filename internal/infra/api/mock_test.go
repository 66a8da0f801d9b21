//go:build !integration

package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"manuscript-pipeline/internal/config"
	"manuscript-pipeline/internal/domain/model"
	portuc "manuscript-pipeline/internal/domain/ports/usecase"
	"manuscript-pipeline/internal/usecase"
)

type mockQueue struct {
	EnqueueFunc func(ctx context.Context, targetID string, p model.JobPayload) (*model.Job, error)
}

func (m *mockQueue) Enqueue(ctx context.Context, targetID string, p model.JobPayload) (*model.Job, error) {
	return m.EnqueueFunc(ctx, targetID, p)
}

func (m *mockQueue) ReapStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	return 0, nil
}

type mockDispatcher struct {
	res portuc.DispatchResult
	err error
}

func (m *mockDispatcher) RunOnce(ctx context.Context) (portuc.DispatchResult, error) {
	return m.res, m.err
}

type mockStatus struct {
	GetStatusFunc        func(ctx context.Context, targetID string) (*usecase.StatusView, error)
	EnqueueFromMediaFunc func(ctx context.Context, targetID string) (*model.Job, error)
}

func (m *mockStatus) GetStatus(ctx context.Context, targetID string) (*usecase.StatusView, error) {
	return m.GetStatusFunc(ctx, targetID)
}

func (m *mockStatus) EnqueueFromMedia(ctx context.Context, targetID string) (*model.Job, error) {
	return m.EnqueueFromMediaFunc(ctx, targetID)
}

type mockTranslation struct {
	res *usecase.TranslationResult
	err error
}

func (m *mockTranslation) RequestTranslation(ctx context.Context, targetID string) (*usecase.TranslationResult, error) {
	return m.res, m.err
}

const (
	testJWTSecret      = "jwt-secret-for-tests"
	testDispatchSecret = "dispatch-secret"
	testDevSecret      = "dev-secret"
)

type testDeps struct {
	queue       *mockQueue
	dispatcher  *mockDispatcher
	status      *mockStatus
	translation *mockTranslation
	dev         bool
}

func newTestDeps() *testDeps {
	return &testDeps{
		queue:       &mockQueue{},
		dispatcher:  &mockDispatcher{},
		status:      &mockStatus{},
		translation: &mockTranslation{},
	}
}

func (d *testDeps) auth() *AuthManager {
	return NewAuthManager(config.AuthConfig{
		DispatchSecret: testDispatchSecret,
		DevSecret:      testDevSecret,
		JWTSecret:      testJWTSecret,
	}, d.dev)
}

func (d *testDeps) server() *Server {
	l := zerolog.Nop()
	return NewServer(d.queue, d.dispatcher, d.status, d.translation, d.auth(), time.Second, &l)
}
