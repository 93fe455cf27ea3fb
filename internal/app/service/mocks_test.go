package service

import (
	"context"
	"sync"
	"time"

	"github.com/sifan077/LinkRewards/internal/app/model"
	"github.com/sifan077/LinkRewards/internal/app/provider"
	"github.com/sifan077/LinkRewards/internal/app/repository"
	"github.com/sifan077/LinkRewards/internal/app/settings"
)

type mockLinkRepository struct {
	createFn         func(ctx context.Context, code string, userID int64, p model.Provider) (int64, error)
	getByCodeFn      func(ctx context.Context, code string) (*model.Link, error)
	listByUserFn     func(ctx context.Context, userID int64, limit int) ([]model.Link, error)
	listRecentFn     func(ctx context.Context, userID int64, p model.Provider, since time.Time, limit int) ([]model.Link, error)
	listFn           func(ctx context.Context, limit, offset int) ([]model.Link, error)
	countFn          func(ctx context.Context) (int64, error)
	markCompletedFn  func(ctx context.Context, id int64) (bool, error)
	softDeleteFn     func(ctx context.Context, id int64) (bool, error)
	purgeDeletedFn   func(ctx context.Context, before time.Time) (int64, error)
	purgeCompletedFn func(ctx context.Context, before time.Time) (int64, error)
}

func (m *mockLinkRepository) Create(ctx context.Context, code string, userID int64, p model.Provider) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, code, userID, p)
	}
	return 1, nil
}

func (m *mockLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) GetByID(ctx context.Context, id int64) (*model.Link, error) {
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.Link, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockLinkRepository) ListRecentByUserProvider(ctx context.Context, userID int64, p model.Provider, since time.Time, limit int) ([]model.Link, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, userID, p, since, limit)
	}
	return nil, nil
}

func (m *mockLinkRepository) List(ctx context.Context, limit, offset int) ([]model.Link, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockLinkRepository) Count(ctx context.Context) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockLinkRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	if m.markCompletedFn != nil {
		return m.markCompletedFn(ctx, id)
	}
	return true, nil
}

func (m *mockLinkRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	if m.softDeleteFn != nil {
		return m.softDeleteFn(ctx, id)
	}
	return true, nil
}

func (m *mockLinkRepository) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	if m.purgeDeletedFn != nil {
		return m.purgeDeletedFn(ctx, before)
	}
	return 0, nil
}

func (m *mockLinkRepository) PurgeCompleted(ctx context.Context, before time.Time) (int64, error) {
	if m.purgeCompletedFn != nil {
		return m.purgeCompletedFn(ctx, before)
	}
	return 0, nil
}

type mockSettings struct {
	snapshot settings.Snapshot
	err      error
}

func (m *mockSettings) Snapshot(ctx context.Context) (settings.Snapshot, error) {
	return m.snapshot, m.err
}

type mockShorteners struct {
	clientFn func(p model.Provider, apiKey string) (provider.Shortener, error)
}

func (m *mockShorteners) Client(p model.Provider, apiKey string) (provider.Shortener, error) {
	if m.clientFn != nil {
		return m.clientFn(p, apiKey)
	}
	return nil, provider.ErrNoShortener
}

type mockShortener struct {
	shortenFn func(ctx context.Context, longURL string) (string, error)
}

func (m *mockShortener) Shorten(ctx context.Context, longURL string) (string, error) {
	return m.shortenFn(ctx, longURL)
}

type mockLedger struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (m *mockLedger) AddUserCredits(ctx context.Context, userID int64, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, amount)
	return m.err
}

func (m *mockLedger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockRecorder struct {
	mu         sync.Mutex
	activities []*model.Activity
	err        error
}

func (m *mockRecorder) Record(ctx context.Context, activity *model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, activity)
	return m.err
}

func (m *mockRecorder) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.activities))
	for _, a := range m.activities {
		out = append(out, a.Name)
	}
	return out
}

type mockTimedTasks struct {
	task   *model.TimedTask
	getErr error
	runs   []bool
}

func (m *mockTimedTasks) Get(ctx context.Context, name string) (*model.TimedTask, error) {
	return m.task, m.getErr
}

func (m *mockTimedTasks) MarkRun(ctx context.Context, name string, at time.Time, success bool, message string) error {
	m.runs = append(m.runs, success)
	if m.task == nil {
		m.task = &model.TimedTask{Name: name}
	}
	m.task.LastRunAt = &at
	m.task.Success = success
	m.task.Message = message
	if success {
		m.task.LastSuccessAt = &at
	}
	return nil
}
