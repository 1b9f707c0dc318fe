package httpserver

import (
	"net/http"

	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/service"
)

func handleListNotifications(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}

		f := domain.NotificationListFilter{
			UnreadOnly: r.URL.Query().Get("unreadOnly") == "true",
			Cursor:     queryInt64(r, "cursor"),
			Limit:      int(queryInt64(r, "limit")),
		}

		page, err := notifSvc.List(r.Context(), userID, f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func handleMarkNotificationRead(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		notificationID, ok := pathID(w, r, "notificationID")
		if !ok {
			return
		}

		n, err := notifSvc.MarkAsRead(r.Context(), userID, notificationID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}
