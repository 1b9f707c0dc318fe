package httpserver

import (
	"net/http"

	"github.com/jphacks/os-2518/internal/service"
)

type messageCreateRequest struct {
	Content string `json:"content"`
}

func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		matchID, ok := pathID(w, r, "matchID")
		if !ok {
			return
		}

		cursor := queryInt64(r, "cursor")
		limit := int(queryInt64(r, "limit"))

		page, err := msgSvc.ListMessages(r.Context(), matchID, userID, cursor, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func handleCreateMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		matchID, ok := pathID(w, r, "matchID")
		if !ok {
			return
		}
		var req messageCreateRequest
		if !decodeBody(w, r, &req) {
			return
		}

		msg, err := msgSvc.CreateMessage(r.Context(), matchID, userID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func handleMarkMessageRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		messageID, ok := pathID(w, r, "messageID")
		if !ok {
			return
		}

		msg, err := msgSvc.MarkMessageAsRead(r.Context(), messageID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleMarkAllMessagesRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		matchID, ok := pathID(w, r, "matchID")
		if !ok {
			return
		}

		count, err := msgSvc.MarkAllAsRead(r.Context(), matchID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"updatedCount": count})
	}
}
