package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/realtime"
)

type MockMatchRepo struct {
	mock.Mock
}

func (m *MockMatchRepo) Create(ctx context.Context, match *domain.Match, seed *string) error {
	args := m.Called(ctx, match, seed)
	return args.Error(0)
}

func (m *MockMatchRepo) GetByID(ctx context.Context, id int64) (*domain.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Match), args.Error(1)
}

func (m *MockMatchRepo) FindBetween(ctx context.Context, userA, userB int64) (*domain.Match, error) {
	args := m.Called(ctx, userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Match), args.Error(1)
}

func (m *MockMatchRepo) Resolve(ctx context.Context, id int64, status domain.MatchStatus, resolvedAt time.Time) error {
	args := m.Called(ctx, id, status, resolvedAt)
	return args.Error(0)
}

func (m *MockMatchRepo) ListForUser(ctx context.Context, userID int64, f domain.MatchListFilter) ([]*domain.Match, error) {
	args := m.Called(ctx, userID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Match), args.Error(1)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) ListForMatch(ctx context.Context, matchID, cursor int64, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, matchID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) LatestForMatch(ctx context.Context, matchID int64) (*domain.Message, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) MarkRead(ctx context.Context, id int64, readAt time.Time) error {
	args := m.Called(ctx, id, readAt)
	return args.Error(0)
}

func (m *MockMessageRepo) MarkAllRead(ctx context.Context, matchID, readerID int64, readAt time.Time) (int64, error) {
	args := m.Called(ctx, matchID, readerID, readAt)
	return args.Get(0).(int64), args.Error(1)
}

type MockScheduleRepo struct {
	mock.Mock
}

func (m *MockScheduleRepo) CreateBatch(ctx context.Context, msg *domain.Message, slots []*domain.Schedule) error {
	args := m.Called(ctx, msg, slots)
	return args.Error(0)
}

func (m *MockScheduleRepo) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Schedule), args.Error(1)
}

func (m *MockScheduleRepo) ListByMessage(ctx context.Context, messageID int64) ([]*domain.Schedule, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Schedule), args.Error(1)
}

func (m *MockScheduleRepo) Confirm(ctx context.Context, scheduleID, messageID int64, now time.Time) error {
	args := m.Called(ctx, scheduleID, messageID, now)
	return args.Error(0)
}

func (m *MockScheduleRepo) CancelBatch(ctx context.Context, messageID int64, cancellation *domain.Message, now time.Time) error {
	args := m.Called(ctx, messageID, cancellation, now)
	return args.Error(0)
}

func (m *MockScheduleRepo) ListConfirmedForUser(ctx context.Context, userID int64) ([]*domain.ScheduleWithCounterpart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduleWithCounterpart), args.Error(1)
}

type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepo) GetForUser(ctx context.Context, id, userID int64) (*domain.Notification, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepo) ListForUser(ctx context.Context, userID int64, f domain.NotificationListFilter) ([]*domain.Notification, error) {
	args := m.Called(ctx, userID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepo) MarkRead(ctx context.Context, id int64, readAt time.Time) error {
	args := m.Called(ctx, id, readAt)
	return args.Error(0)
}

// recordedEvent is one push captured by the fake broadcaster.
type recordedEvent struct {
	UserID int64
	Event  realtime.Event
}

// fakeBroadcaster records pushes instead of delivering them.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) BroadcastToUser(userID int64, ev realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{UserID: userID, Event: ev})
}

func (b *fakeBroadcaster) eventsFor(userID int64, event string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.UserID == userID && e.Event.Event == event {
			out = append(out, e)
		}
	}
	return out
}
