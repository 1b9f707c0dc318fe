package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/realtime"
)

const (
	maxMessageRunes         = 2000
	messagePageLimitDefault = 50
	messagePageLimitMax     = 100
)

// MessageService owns the chat stream of a match: listing, creation and
// read tracking. Plain text may only flow once the match is accepted.
type MessageService struct {
	matchSvc *MatchService
	matches  domain.MatchRepository
	messages domain.MessageRepository
	fanout   *Fanout
}

func NewMessageService(matchSvc *MatchService, matches domain.MatchRepository, messages domain.MessageRepository, fanout *Fanout) *MessageService {
	return &MessageService{
		matchSvc: matchSvc,
		matches:  matches,
		messages: messages,
		fanout:   fanout,
	}
}

// MessagePage is one page of a match's stream, newest first.
type MessagePage struct {
	Messages   []*domain.Message `json:"messages"`
	NextCursor *int64            `json:"nextCursor"`
}

// ListMessages returns the match's messages newest-first with backward
// cursor pagination by id.
func (s *MessageService) ListMessages(ctx context.Context, matchID, userID, cursor int64, limit int) (*MessagePage, error) {
	if _, err := s.matchSvc.GetMatchForUser(ctx, matchID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = messagePageLimitDefault
	}
	if limit > messagePageLimitMax {
		limit = messagePageLimitMax
	}

	msgs, err := s.messages.ListForMatch(ctx, matchID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	page := &MessagePage{Messages: msgs}
	if len(msgs) == limit {
		last := msgs[len(msgs)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}

// CreateMessage appends a TEXT message to an accepted match and fans the
// MESSAGE_RECEIVED side effects out to the other participant.
func (s *MessageService) CreateMessage(ctx context.Context, matchID, userID int64, content string) (*domain.Message, error) {
	m, err := s.matchSvc.GetMatchForUser(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.MatchAccepted {
		return nil, domain.ErrMatchNotAccepted
	}

	n := len([]rune(content))
	if n == 0 || n > maxMessageRunes {
		return nil, domain.Validation("message content must be 1 to 2000 characters")
	}

	msg := &domain.Message{
		MatchID:  matchID,
		SenderID: userID,
		Content:  content,
		Type:     domain.MessageText,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	receiverID := m.Counterpart(userID)
	s.fanout.Notify(ctx, receiverID, domain.NotificationMessageReceived, map[string]any{
		"matchId":   matchID,
		"messageId": msg.ID,
		"senderId":  userID,
	})
	s.fanout.Push(receiverID, realtime.EventMessageCreated, realtime.MessageCreatedData{
		MatchID:   matchID,
		MessageID: msg.ID,
	})

	return msg, nil
}

// MarkMessageAsRead flags one message read. Idempotent: a second call is a
// no-op and produces no duplicate push or notification.
func (s *MessageService) MarkMessageAsRead(ctx context.Context, messageID, userID int64) (*domain.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	m, err := s.matches.GetByID(ctx, msg.MatchID)
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	if !m.HasParticipant(userID) {
		return nil, domain.ErrMessageForbidden
	}

	if msg.IsRead {
		return msg, nil
	}

	now := time.Now()
	if err := s.messages.MarkRead(ctx, messageID, now); err != nil {
		return nil, fmt.Errorf("mark message read: %w", err)
	}
	msg.IsRead = true
	msg.ReadAt = &now

	otherID := m.Counterpart(userID)
	s.fanout.Push(otherID, realtime.EventMessageRead, realtime.MessageReadData{
		MatchID:   m.ID,
		MessageID: messageID,
		ReaderID:  userID,
	})
	s.fanout.Notify(ctx, otherID, domain.NotificationMessageRead, map[string]any{
		"matchId":   m.ID,
		"messageId": messageID,
		"readerId":  userID,
	})

	return msg, nil
}

// MarkAllAsRead flags every unread message in the match that the user did
// not send, in one statement, and returns the affected count. Used when a
// conversation is opened.
func (s *MessageService) MarkAllAsRead(ctx context.Context, matchID, userID int64) (int64, error) {
	if _, err := s.matchSvc.GetMatchForUser(ctx, matchID, userID); err != nil {
		return 0, err
	}
	count, err := s.messages.MarkAllRead(ctx, matchID, userID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return count, nil
}
