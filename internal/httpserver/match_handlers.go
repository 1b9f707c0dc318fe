package httpserver

import (
	"context"
	"net/http"

	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/service"
)

type matchCreateRequest struct {
	ReceiverID int64   `json:"receiverId"`
	Message    *string `json:"message"`
}

func handleCreateMatch(matchSvc *service.MatchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		var req matchCreateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ReceiverID <= 0 {
			writeError(w, domain.Validation("receiverId is required"))
			return
		}

		m, err := matchSvc.RequestMatch(r.Context(), userID, req.ReceiverID, req.Message)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func handleListMatches(matchSvc *service.MatchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}

		f := domain.MatchListFilter{
			Cursor: queryInt64(r, "cursor"),
			Limit:  int(queryInt64(r, "limit")),
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := domain.MatchStatus(raw)
			switch status {
			case domain.MatchPending, domain.MatchAccepted, domain.MatchRejected:
				f.Status = &status
			default:
				writeError(w, domain.Validation("invalid status filter"))
				return
			}
		}

		page, err := matchSvc.ListMatches(r.Context(), userID, f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func handleGetMatch(matchSvc *service.MatchService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		matchID, ok := pathID(w, r, "matchID")
		if !ok {
			return
		}

		m, err := matchSvc.GetMatchForUser(r.Context(), matchID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func handleAcceptMatch(matchSvc *service.MatchService) http.HandlerFunc {
	return resolveMatchHandler(matchSvc.AcceptMatch)
}

func handleRejectMatch(matchSvc *service.MatchService) http.HandlerFunc {
	return resolveMatchHandler(matchSvc.RejectMatch)
}

func resolveMatchHandler(resolve func(ctx context.Context, matchID, userID int64) (*domain.Match, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		matchID, ok := pathID(w, r, "matchID")
		if !ok {
			return
		}

		m, err := resolve(r.Context(), matchID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}
