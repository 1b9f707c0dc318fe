package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/service"
)

func newScheduleFixture() (*service.ScheduleService, *MockMatchRepo, *MockScheduleRepo, *MockNotificationRepo, *fakeBroadcaster) {
	matchRepo := new(MockMatchRepo)
	msgRepo := new(MockMessageRepo)
	schRepo := new(MockScheduleRepo)
	notifRepo := new(MockNotificationRepo)
	broadcaster := &fakeBroadcaster{}
	fanout := service.NewFanout(notifRepo, broadcaster)
	matchSvc := service.NewMatchService(matchRepo, msgRepo, fanout)
	svc := service.NewScheduleService(matchSvc, matchRepo, schRepo, fanout)
	return svc, matchRepo, schRepo, notifRepo, broadcaster
}

func slotAt(hour int) service.SlotInput {
	base := time.Date(2026, 9, 1, hour, 0, 0, 0, time.UTC)
	return service.SlotInput{StartTime: base, EndTime: base.Add(time.Hour)}
}

func TestCreateSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("ProposeMultipleSlots", func(t *testing.T) {
		svc, matchRepo, schRepo, notifRepo, broadcaster := newScheduleFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)
		schRepo.On("CreateBatch", mock.Anything, mock.AnythingOfType("*domain.Message"), mock.Anything).
			Run(func(args mock.Arguments) {
				msg := args.Get(1).(*domain.Message)
				msg.ID = 100
				for i, s := range args.Get(2).([]*domain.Schedule) {
					s.ID = int64(200 + i)
					s.MessageID = msg.ID
				}
			}).Return(nil)
		notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		msg, schedules, err := svc.CreateForMatch(ctx, 10, 1, service.CreateScheduleInput{
			Action: service.ActionPropose,
			Slots:  []service.SlotInput{slotAt(9), slotAt(14)},
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.MessageScheduleProposal, msg.Type)
		assert.Len(t, schedules, 2)
		for _, s := range schedules {
			assert.Equal(t, domain.ScheduleProposed, s.Status)
			assert.Equal(t, int64(100), s.MessageID)
			assert.Equal(t, int64(2), s.ReceiverID)
		}

		// Both participants see the schedule change, only the receiver
		// sees the new message.
		assert.Len(t, broadcaster.eventsFor(1, "schedule.changed"), 1)
		assert.Len(t, broadcaster.eventsFor(2, "schedule.changed"), 1)
		assert.Len(t, broadcaster.eventsFor(2, "message.created"), 1)
		assert.Empty(t, broadcaster.eventsFor(1, "message.created"))
	})

	t.Run("ConfirmUsesFirstSlotOnly", func(t *testing.T) {
		svc, matchRepo, schRepo, notifRepo, _ := newScheduleFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)
		schRepo.On("CreateBatch", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		msg, schedules, err := svc.CreateForMatch(ctx, 10, 1, service.CreateScheduleInput{
			Action: service.ActionConfirm,
			Slots:  []service.SlotInput{slotAt(9), slotAt(14)},
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.MessageScheduleConfirmed, msg.Type)
		assert.Len(t, schedules, 1)
		assert.Equal(t, domain.ScheduleConfirmed, schedules[0].Status)
	})

	t.Run("InvalidAction", func(t *testing.T) {
		svc, matchRepo, _, _, _ := newScheduleFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		_, _, err := svc.CreateForMatch(ctx, 10, 1, service.CreateScheduleInput{
			Action: "suggest",
			Slots:  []service.SlotInput{slotAt(9)},
		})
		assert.True(t, domain.IsKind(err, domain.KindValidation))
	})

	t.Run("NoSlots", func(t *testing.T) {
		svc, matchRepo, _, _, _ := newScheduleFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		_, _, err := svc.CreateForMatch(ctx, 10, 1, service.CreateScheduleInput{Action: service.ActionPropose})
		assert.True(t, domain.IsKind(err, domain.KindValidation))
	})

	t.Run("SlotEndsBeforeStart", func(t *testing.T) {
		svc, matchRepo, _, _, _ := newScheduleFixture()

		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		bad := slotAt(9)
		bad.EndTime = bad.StartTime.Add(-time.Hour)
		_, _, err := svc.CreateForMatch(ctx, 10, 1, service.CreateScheduleInput{
			Action: service.ActionPropose,
			Slots:  []service.SlotInput{bad},
		})
		assert.True(t, domain.IsKind(err, domain.KindValidation))
	})

	t.Run("PendingMatchBlocked", func(t *testing.T) {
		svc, matchRepo, _, _, _ := newScheduleFixture()

		pending := &domain.Match{ID: 10, RequesterID: 1, ReceiverID: 2, Status: domain.MatchPending}
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(pending, nil)

		_, _, err := svc.CreateForMatch(ctx, 10, 1, service.CreateScheduleInput{
			Action: service.ActionPropose,
			Slots:  []service.SlotInput{slotAt(9)},
		})
		assert.ErrorIs(t, err, domain.ErrMatchNotAccepted)
	})
}

func proposedSchedule() *domain.Schedule {
	return &domain.Schedule{
		ID: 200, MatchID: 10, ProposerID: 1, ReceiverID: 2,
		Status: domain.ScheduleProposed, MessageID: 100,
	}
}

func TestAcceptSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("ReceiverAccepts", func(t *testing.T) {
		svc, matchRepo, schRepo, notifRepo, broadcaster := newScheduleFixture()

		schRepo.On("GetByID", mock.Anything, int64(200)).Return(proposedSchedule(), nil)
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)
		schRepo.On("Confirm", mock.Anything, int64(200), int64(100), mock.Anything).Return(nil)
		schRepo.On("ListByMessage", mock.Anything, int64(100)).Return([]*domain.Schedule{
			{ID: 200, Status: domain.ScheduleConfirmed},
			{ID: 201, Status: domain.ScheduleCancelled},
		}, nil)
		notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		sch, err := svc.Accept(ctx, 200, 2)
		assert.NoError(t, err)
		assert.Equal(t, domain.ScheduleConfirmed, sch.Status)

		// Both sides see the change and the updated carrier message.
		for _, uid := range []int64{1, 2} {
			assert.Len(t, broadcaster.eventsFor(uid, "schedule.changed"), 1)
			assert.Len(t, broadcaster.eventsFor(uid, "message.updated"), 1)
		}
		// The proposer gets the durable notification.
		assert.Len(t, broadcaster.eventsFor(1, "notification.created"), 1)
	})

	t.Run("ProposerCannotAccept", func(t *testing.T) {
		svc, matchRepo, schRepo, _, _ := newScheduleFixture()

		schRepo.On("GetByID", mock.Anything, int64(200)).Return(proposedSchedule(), nil)
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		_, err := svc.Accept(ctx, 200, 1)
		assert.ErrorIs(t, err, domain.ErrScheduleForbidden)
	})

	t.Run("AlreadyHandled", func(t *testing.T) {
		svc, matchRepo, schRepo, _, _ := newScheduleFixture()

		cancelled := proposedSchedule()
		cancelled.Status = domain.ScheduleCancelled
		schRepo.On("GetByID", mock.Anything, int64(200)).Return(cancelled, nil)
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		_, err := svc.Accept(ctx, 200, 2)
		assert.ErrorIs(t, err, domain.ErrScheduleAlreadyHandled)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, _, schRepo, _, _ := newScheduleFixture()

		schRepo.On("GetByID", mock.Anything, int64(999)).Return(nil, domain.ErrNotFound)

		_, err := svc.Accept(ctx, 999, 2)
		assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
	})
}

func TestCancelSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("EitherParticipantCancels", func(t *testing.T) {
		svc, matchRepo, schRepo, notifRepo, broadcaster := newScheduleFixture()

		confirmed := proposedSchedule()
		confirmed.Status = domain.ScheduleConfirmed
		schRepo.On("GetByID", mock.Anything, int64(200)).Return(confirmed, nil)
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)
		schRepo.On("CancelBatch", mock.Anything, int64(100), mock.AnythingOfType("*domain.Message"), mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(2).(*domain.Message).ID = 101
			}).Return(nil)
		schRepo.On("ListByMessage", mock.Anything, int64(100)).Return([]*domain.Schedule{
			{ID: 200, Status: domain.ScheduleCancelled},
		}, nil)
		notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

		// A confirmed slot is still cancellable, by the proposer here.
		cancellation, err := svc.Cancel(ctx, 200, 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(101), cancellation.ID)
		assert.Equal(t, domain.MessageScheduleCancelled, cancellation.Type)

		for _, uid := range []int64{1, 2} {
			assert.Len(t, broadcaster.eventsFor(uid, "schedule.changed"), 1)
			assert.Len(t, broadcaster.eventsFor(uid, "message.updated"), 1)
			assert.Len(t, broadcaster.eventsFor(uid, "message.created"), 1)
		}
		// The other participant gets the durable notification.
		assert.Len(t, broadcaster.eventsFor(2, "notification.created"), 1)
		assert.Empty(t, broadcaster.eventsFor(1, "notification.created"))
	})

	t.Run("OutsiderForbidden", func(t *testing.T) {
		svc, matchRepo, schRepo, _, _ := newScheduleFixture()

		schRepo.On("GetByID", mock.Anything, int64(200)).Return(proposedSchedule(), nil)
		matchRepo.On("GetByID", mock.Anything, int64(10)).Return(acceptedMatch(), nil)

		_, err := svc.Cancel(ctx, 200, 3)
		assert.ErrorIs(t, err, domain.ErrScheduleForbidden)
	})
}
