package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/service"
)

func newMessageFixture() (*service.MessageService, *MockMatchRepo, *MockMessageRepo, *MockNotificationRepo, *fakeBroadcaster) {
	matchRepo := new(MockMatchRepo)
	msgRepo := new(MockMessageRepo)
	notifRepo := new(MockNotificationRepo)
	broadcaster := &fakeBroadcaster{}
	fanout := service.NewFanout(notifRepo, broadcaster)
	matchSvc := service.NewMatchService(matchRepo, msgRepo, fanout)
	svc := service.NewMessageService(matchSvc, matchRepo, msgRepo, fanout)
	return svc, matchRepo, msgRepo, notifRepo, broadcaster
}

func acceptedMatch() *domain.Match {
	return &domain.Match{ID: 10, RequesterID: 1, ReceiverID: 2, Status: domain.MatchAccepted}
}

func TestCreateMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, matchRepo, msgRepo, notifRepo, broadcaster := newMessageFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)
		msgRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Message")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*domain.Message).ID = 100
			}).Return(nil)
		notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		msg, err := svc.CreateMessage(ctx, 10, 1, "hello")
		assert.NoError(t, err)
		assert.Equal(t, int64(100), msg.ID)
		assert.Equal(t, domain.MessageText, msg.Type)

		// Receiver gets the live push and the durable notification push.
		assert.Len(t, broadcaster.eventsFor(2, "message.created"), 1)
		assert.Len(t, broadcaster.eventsFor(2, "notification.created"), 1)
		// Sender gets nothing.
		assert.Empty(t, broadcaster.eventsFor(1, "message.created"))
	})

	t.Run("PendingMatchBlocked", func(t *testing.T) {
		svc, matchRepo, _, _, _ := newMessageFixture()

		pending := &domain.Match{ID: 10, RequesterID: 1, ReceiverID: 2, Status: domain.MatchPending}
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(pending, nil)

		_, err := svc.CreateMessage(ctx, 10, 1, "hello")
		assert.ErrorIs(t, err, domain.ErrMatchNotAccepted)
	})

	t.Run("RejectedMatchBlocked", func(t *testing.T) {
		svc, matchRepo, _, _, _ := newMessageFixture()

		rejected := &domain.Match{ID: 10, RequesterID: 1, ReceiverID: 2, Status: domain.MatchRejected}
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(rejected, nil)

		_, err := svc.CreateMessage(ctx, 10, 1, "hello")
		assert.ErrorIs(t, err, domain.ErrMatchNotAccepted)
	})

	t.Run("NonParticipantForbidden", func(t *testing.T) {
		svc, matchRepo, _, _, _ := newMessageFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		_, err := svc.CreateMessage(ctx, 10, 3, "hello")
		assert.ErrorIs(t, err, domain.ErrMatchForbidden)
	})

	t.Run("EmptyContentRejected", func(t *testing.T) {
		svc, matchRepo, _, _, _ := newMessageFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		_, err := svc.CreateMessage(ctx, 10, 1, "")
		assert.True(t, domain.IsKind(err, domain.KindValidation))
	})

	t.Run("OversizedContentRejected", func(t *testing.T) {
		svc, matchRepo, _, _, _ := newMessageFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		_, err := svc.CreateMessage(ctx, 10, 1, strings.Repeat("a", 2001))
		assert.True(t, domain.IsKind(err, domain.KindValidation))
	})
}

func TestMarkMessageAsRead(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		svc, matchRepo, msgRepo, notifRepo, broadcaster := newMessageFixture()

		unread := &domain.Message{ID: 100, MatchID: 10, SenderID: 1, Content: "hi", Type: domain.MessageText}
		msgRepo.On("GetByID", mock.Anything, int64(100)).Return(unread, nil)
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)
		msgRepo.On("MarkRead", mock.Anything, int64(100), mock.Anything).Return(nil)
		notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		msg, err := svc.MarkMessageAsRead(ctx, 100, 2)
		assert.NoError(t, err)
		assert.True(t, msg.IsRead)
		assert.NotNil(t, msg.ReadAt)

		// The sender hears about the read, not the reader.
		assert.Len(t, broadcaster.eventsFor(1, "message.read"), 1)
		assert.Empty(t, broadcaster.eventsFor(2, "message.read"))
	})

	t.Run("IdempotentNoDuplicateFanout", func(t *testing.T) {
		svc, matchRepo, msgRepo, _, broadcaster := newMessageFixture()

		already := &domain.Message{ID: 100, MatchID: 10, SenderID: 1, IsRead: true}
		msgRepo.On("GetByID", mock.Anything, int64(100)).Return(already, nil)
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		msg, err := svc.MarkMessageAsRead(ctx, 100, 2)
		assert.NoError(t, err)
		assert.True(t, msg.IsRead)
		assert.Empty(t, broadcaster.events)
		msgRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NonParticipantForbidden", func(t *testing.T) {
		svc, matchRepo, msgRepo, _, _ := newMessageFixture()

		unread := &domain.Message{ID: 100, MatchID: 10, SenderID: 1}
		msgRepo.On("GetByID", mock.Anything, int64(100)).Return(unread, nil)
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		_, err := svc.MarkMessageAsRead(ctx, 100, 3)
		assert.ErrorIs(t, err, domain.ErrMessageForbidden)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, _, msgRepo, _, _ := newMessageFixture()

		msgRepo.On("GetByID", mock.Anything, int64(999)).Return(nil, domain.ErrNotFound)

		_, err := svc.MarkMessageAsRead(ctx, 999, 2)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})
}

func TestMarkAllAsRead(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsAffectedCount", func(t *testing.T) {
		svc, matchRepo, msgRepo, _, _ := newMessageFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)
		msgRepo.On("MarkAllRead", mock.Anything, int64(10), int64(2), mock.Anything).Return(int64(3), nil)

		count, err := svc.MarkAllAsRead(ctx, 10, 2)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("NonParticipantForbidden", func(t *testing.T) {
		svc, matchRepo, msgRepo, _, _ := newMessageFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		_, err := svc.MarkAllAsRead(ctx, 10, 3)
		assert.ErrorIs(t, err, domain.ErrMatchForbidden)
		msgRepo.AssertNotCalled(t, "MarkAllRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("NextCursorOnFullPage", func(t *testing.T) {
		svc, matchRepo, msgRepo, _, _ := newMessageFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)
		msgs := []*domain.Message{{ID: 9, MatchID: 10}, {ID: 8, MatchID: 10}}
		msgRepo.On("ListForMatch", mock.Anything, int64(10), int64(0), 2).Return(msgs, nil)

		page, err := svc.ListMessages(ctx, 10, 1, 0, 2)
		assert.NoError(t, err)
		assert.Len(t, page.Messages, 2)
		assert.NotNil(t, page.NextCursor)
		assert.Equal(t, int64(8), *page.NextCursor)
	})

	t.Run("DefaultLimitApplied", func(t *testing.T) {
		svc, matchRepo, msgRepo, _, _ := newMessageFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)
		msgRepo.On("ListForMatch", mock.Anything, int64(10), int64(0), 50).Return([]*domain.Message{}, nil)

		page, err := svc.ListMessages(ctx, 10, 1, 0, 0)
		assert.NoError(t, err)
		assert.Nil(t, page.NextCursor)
		msgRepo.AssertExpectations(t)
	})
}
