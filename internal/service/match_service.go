package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jphacks/os-2518/internal/domain"
)

const (
	maxInitialMessageRunes = 500
	matchPageLimitDefault  = 20
	matchPageLimitMax      = 50
)

// MatchService owns the match lifecycle: request, accept, reject, and the
// participant authorization gate used by the message and schedule layers.
type MatchService struct {
	matches  domain.MatchRepository
	messages domain.MessageRepository
	fanout   *Fanout
}

func NewMatchService(matches domain.MatchRepository, messages domain.MessageRepository, fanout *Fanout) *MatchService {
	return &MatchService{
		matches:  matches,
		messages: messages,
		fanout:   fanout,
	}
}

// RequestMatch creates a PENDING match from requester to receiver,
// optionally seeding the stream with one text message from the requester.
func (s *MatchService) RequestMatch(ctx context.Context, requesterID, receiverID int64, initialMessage *string) (*domain.Match, error) {
	if requesterID == receiverID {
		return nil, domain.ErrMatchSelfNotAllowed
	}
	if initialMessage != nil {
		if *initialMessage == "" {
			initialMessage = nil
		} else if len([]rune(*initialMessage)) > maxInitialMessageRunes {
			return nil, domain.Validation("initial message exceeds 500 characters")
		}
	}

	existing, err := s.matches.FindBetween(ctx, requesterID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("find existing match: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrMatchAlreadyExists
	}

	m := &domain.Match{
		RequesterID: requesterID,
		ReceiverID:  receiverID,
		Status:      domain.MatchPending,
	}
	if err := s.matches.Create(ctx, m, initialMessage); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	s.fanout.Notify(ctx, receiverID, domain.NotificationMatchRequest, map[string]any{
		"matchId":     m.ID,
		"requesterId": requesterID,
	})

	return m, nil
}

// GetMatchForUser loads a match and verifies the user participates in it.
// The message and schedule layers use it as their authorization gate.
func (s *MatchService) GetMatchForUser(ctx context.Context, matchID, userID int64) (*domain.Match, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, fmt.Errorf("get match: %w", err)
	}
	if !m.HasParticipant(userID) {
		return nil, domain.ErrMatchForbidden
	}
	return m, nil
}

// AcceptMatch resolves a pending match to ACCEPTED. Only the receiver may
// accept, and only once.
func (s *MatchService) AcceptMatch(ctx context.Context, matchID, userID int64) (*domain.Match, error) {
	return s.resolveMatch(ctx, matchID, userID, domain.MatchAccepted)
}

// RejectMatch resolves a pending match to REJECTED. Only the receiver may
// reject, and only once.
func (s *MatchService) RejectMatch(ctx context.Context, matchID, userID int64) (*domain.Match, error) {
	return s.resolveMatch(ctx, matchID, userID, domain.MatchRejected)
}

func (s *MatchService) resolveMatch(ctx context.Context, matchID, userID int64, status domain.MatchStatus) (*domain.Match, error) {
	m, err := s.GetMatchForUser(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	if m.ReceiverID != userID {
		return nil, domain.ErrMatchForbidden
	}
	if m.Status != domain.MatchPending {
		return nil, domain.ErrMatchAlreadyResolved
	}

	now := time.Now()
	if err := s.matches.Resolve(ctx, m.ID, status, now); err != nil {
		return nil, fmt.Errorf("resolve match: %w", err)
	}

	m.Status = status
	m.UpdatedAt = now
	notifType := domain.NotificationMatchAccept
	if status == domain.MatchAccepted {
		m.AcceptedAt = &now
	} else {
		m.RejectedAt = &now
		notifType = domain.NotificationMatchReject
	}

	s.fanout.Notify(ctx, m.RequesterID, notifType, map[string]any{
		"matchId":    m.ID,
		"receiverId": userID,
	})

	return m, nil
}

// MatchPage is one page of the user's match listing.
type MatchPage struct {
	Matches    []*domain.MatchWithLatest `json:"matches"`
	NextCursor *int64                    `json:"nextCursor"`
}

// ListMatches returns matches the user participates in, most recently
// updated first, each with its latest message attached.
func (s *MatchService) ListMatches(ctx context.Context, userID int64, f domain.MatchListFilter) (*MatchPage, error) {
	if f.Limit <= 0 {
		f.Limit = matchPageLimitDefault
	}
	if f.Limit > matchPageLimitMax {
		f.Limit = matchPageLimitMax
	}

	matches, err := s.matches.ListForUser(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	page := &MatchPage{Matches: make([]*domain.MatchWithLatest, 0, len(matches))}
	for _, m := range matches {
		latest, err := s.messages.LatestForMatch(ctx, m.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("latest message for match %d: %w", m.ID, err)
		}
		page.Matches = append(page.Matches, &domain.MatchWithLatest{Match: *m, LatestMessage: latest})
	}

	if len(matches) == f.Limit {
		last := matches[len(matches)-1].ID
		page.NextCursor = &last
	}
	return page, nil
}
