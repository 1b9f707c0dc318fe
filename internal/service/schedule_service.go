package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/realtime"
)

const maxScheduleNoteRunes = 500

const cancellationNotice = "The schedule has been cancelled."

// Schedule actions accepted by CreateForMatch.
const (
	ActionPropose = "propose"
	ActionConfirm = "confirm"
)

// SlotInput is one candidate meeting slot.
type SlotInput struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// CreateScheduleInput is the payload of a proposal or direct confirm.
type CreateScheduleInput struct {
	Action string      `json:"action"`
	Slots  []SlotInput `json:"slots"`
	Note   *string     `json:"note"`
}

// ScheduleService drives the in-chat scheduling protocol: multi-slot
// proposals, exclusive accept with sibling cancellation, and explicit
// cancel. Every transition is one atomic store mutation followed by
// best-effort fan-out.
type ScheduleService struct {
	matchSvc  *MatchService
	matches   domain.MatchRepository
	schedules domain.ScheduleRepository
	fanout    *Fanout
}

func NewScheduleService(matchSvc *MatchService, matches domain.MatchRepository, schedules domain.ScheduleRepository, fanout *Fanout) *ScheduleService {
	return &ScheduleService{
		matchSvc:  matchSvc,
		matches:   matches,
		schedules: schedules,
		fanout:    fanout,
	}
}

// CreateForMatch creates one carrier message plus one schedule row per
// slot. "propose" leaves the slots PROPOSED for the receiver to pick;
// "confirm" registers a single already-confirmed slot and uses only the
// first slot given.
func (s *ScheduleService) CreateForMatch(ctx context.Context, matchID, userID int64, in CreateScheduleInput) (*domain.Message, []*domain.Schedule, error) {
	m, err := s.matchSvc.GetMatchForUser(ctx, matchID, userID)
	if err != nil {
		return nil, nil, err
	}
	if m.Status != domain.MatchAccepted {
		return nil, nil, domain.ErrMatchNotAccepted
	}

	if in.Action != ActionPropose && in.Action != ActionConfirm {
		return nil, nil, domain.Validation("action must be propose or confirm")
	}
	if len(in.Slots) == 0 {
		return nil, nil, domain.Validation("at least one slot is required")
	}
	if in.Note != nil {
		if *in.Note == "" {
			in.Note = nil
		} else if len([]rune(*in.Note)) > maxScheduleNoteRunes {
			return nil, nil, domain.Validation("note exceeds 500 characters")
		}
	}
	for _, slot := range in.Slots {
		if !slot.EndTime.After(slot.StartTime) {
			return nil, nil, domain.Validation("slot end time must be after its start time")
		}
	}

	slots := in.Slots
	status := domain.ScheduleProposed
	msgType := domain.MessageScheduleProposal
	if in.Action == ActionConfirm {
		slots = slots[:1]
		status = domain.ScheduleConfirmed
		msgType = domain.MessageScheduleConfirmed
	}

	receiverID := m.Counterpart(userID)
	content := ""
	if in.Note != nil {
		content = *in.Note
	}
	msg := &domain.Message{
		MatchID:  matchID,
		SenderID: userID,
		Content:  content,
		Type:     msgType,
	}

	rows := make([]*domain.Schedule, 0, len(slots))
	for _, slot := range slots {
		rows = append(rows, &domain.Schedule{
			MatchID:    matchID,
			ProposerID: userID,
			ReceiverID: receiverID,
			StartTime:  slot.StartTime,
			EndTime:    slot.EndTime,
			Note:       in.Note,
			Status:     status,
		})
	}

	if err := s.schedules.CreateBatch(ctx, msg, rows); err != nil {
		return nil, nil, fmt.Errorf("create schedule batch: %w", err)
	}

	s.fanout.Notify(ctx, receiverID, domain.NotificationMessageReceived, map[string]any{
		"matchId":   matchID,
		"messageId": msg.ID,
		"senderId":  userID,
	})
	s.fanout.Push(receiverID, realtime.EventMessageCreated, realtime.MessageCreatedData{
		MatchID:   matchID,
		MessageID: msg.ID,
	})

	ids := scheduleIDs(rows)
	for _, participant := range []int64{userID, receiverID} {
		s.fanout.Push(participant, realtime.EventScheduleChanged, realtime.ScheduleChangedData{
			ScheduleIDs: ids,
			MatchID:     matchID,
		})
	}

	return msg, rows, nil
}

// Accept confirms one proposed slot. Acceptance is exclusive: the first
// accept wins, every sibling is cancelled in the same transaction, and a
// later accept on any sibling fails because its state already advanced.
func (s *ScheduleService) Accept(ctx context.Context, scheduleID, userID int64) (*domain.Schedule, error) {
	sch, err := s.getSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	m, err := s.matches.GetByID(ctx, sch.MatchID)
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	if m.Status != domain.MatchAccepted {
		return nil, domain.ErrMatchNotAccepted
	}
	if sch.ReceiverID != userID {
		return nil, domain.ErrScheduleForbidden
	}
	if sch.Status != domain.ScheduleProposed {
		return nil, domain.ErrScheduleAlreadyHandled
	}

	now := time.Now()
	if err := s.schedules.Confirm(ctx, sch.ID, sch.MessageID, now); err != nil {
		return nil, fmt.Errorf("confirm schedule: %w", err)
	}
	sch.Status = domain.ScheduleConfirmed
	sch.UpdatedAt = now

	ids := s.siblingIDs(ctx, sch.MessageID, sch.ID)
	for _, participant := range []int64{userID, sch.ProposerID} {
		s.fanout.Push(participant, realtime.EventScheduleChanged, realtime.ScheduleChangedData{
			ScheduleIDs: ids,
			MatchID:     sch.MatchID,
		})
		s.fanout.Push(participant, realtime.EventMessageUpdated, realtime.MessageUpdatedData{
			MatchID:   sch.MatchID,
			MessageID: sch.MessageID,
		})
	}

	s.fanout.Notify(ctx, sch.ProposerID, domain.NotificationMessageReceived, map[string]any{
		"matchId":   sch.MatchID,
		"messageId": sch.MessageID,
		"senderId":  userID,
		"type":      string(domain.MessageScheduleConfirmed),
	})

	return sch, nil
}

// Cancel cancels every non-cancelled slot under the schedule's carrier
// message (a confirmed slot included), marks the carrier message
// cancelled and appends a new cancellation message to the stream. Either
// participant may cancel.
func (s *ScheduleService) Cancel(ctx context.Context, scheduleID, userID int64) (*domain.Message, error) {
	sch, err := s.getSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	m, err := s.matches.GetByID(ctx, sch.MatchID)
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	if m.Status != domain.MatchAccepted {
		return nil, domain.ErrMatchNotAccepted
	}
	if sch.ProposerID != userID && sch.ReceiverID != userID {
		return nil, domain.ErrScheduleForbidden
	}

	otherID := sch.ProposerID
	if sch.ProposerID == userID {
		otherID = sch.ReceiverID
	}

	cancellation := &domain.Message{
		MatchID:  sch.MatchID,
		SenderID: userID,
		Content:  cancellationNotice,
		Type:     domain.MessageScheduleCancelled,
	}
	if err := s.schedules.CancelBatch(ctx, sch.MessageID, cancellation, time.Now()); err != nil {
		return nil, fmt.Errorf("cancel schedule batch: %w", err)
	}

	ids := s.siblingIDs(ctx, sch.MessageID, sch.ID)
	for _, participant := range []int64{userID, otherID} {
		s.fanout.Push(participant, realtime.EventScheduleChanged, realtime.ScheduleChangedData{
			ScheduleIDs: ids,
			MatchID:     sch.MatchID,
		})
		s.fanout.Push(participant, realtime.EventMessageUpdated, realtime.MessageUpdatedData{
			MatchID:   sch.MatchID,
			MessageID: sch.MessageID,
		})
		s.fanout.Push(participant, realtime.EventMessageCreated, realtime.MessageCreatedData{
			MatchID:   sch.MatchID,
			MessageID: cancellation.ID,
		})
	}

	s.fanout.Notify(ctx, otherID, domain.NotificationMessageReceived, map[string]any{
		"matchId":   sch.MatchID,
		"messageId": cancellation.ID,
		"senderId":  userID,
		"type":      string(domain.MessageScheduleCancelled),
	})

	return cancellation, nil
}

// ListForUser returns the user's confirmed schedules ordered by start
// time, each annotated with the counterpart for calendar rendering.
func (s *ScheduleService) ListForUser(ctx context.Context, userID int64) ([]*domain.ScheduleWithCounterpart, error) {
	schedules, err := s.schedules.ListConfirmedForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list confirmed schedules: %w", err)
	}
	return schedules, nil
}

func (s *ScheduleService) getSchedule(ctx context.Context, scheduleID int64) (*domain.Schedule, error) {
	sch, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sch, nil
}

// siblingIDs lists every schedule id under the message for the
// schedule.changed payload, falling back to the triggering id when the
// post-transaction read fails.
func (s *ScheduleService) siblingIDs(ctx context.Context, messageID, fallback int64) []int64 {
	siblings, err := s.schedules.ListByMessage(ctx, messageID)
	if err != nil || len(siblings) == 0 {
		return []int64{fallback}
	}
	return scheduleIDs(siblings)
}

func scheduleIDs(schedules []*domain.Schedule) []int64 {
	ids := make([]int64, len(schedules))
	for i, sch := range schedules {
		ids[i] = sch.ID
	}
	return ids
}
