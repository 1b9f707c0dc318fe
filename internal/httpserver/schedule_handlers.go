package httpserver

import (
	"net/http"

	"github.com/jphacks/os-2518/internal/domain"
	"github.com/jphacks/os-2518/internal/service"
)

type scheduleCreateResponse struct {
	Message   *domain.Message    `json:"message"`
	Schedules []*domain.Schedule `json:"schedules"`
}

func handleCreateSchedule(schSvc *service.ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		matchID, ok := pathID(w, r, "matchID")
		if !ok {
			return
		}
		var in service.CreateScheduleInput
		if !decodeBody(w, r, &in) {
			return
		}

		msg, schedules, err := schSvc.CreateForMatch(r.Context(), matchID, userID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, scheduleCreateResponse{Message: msg, Schedules: schedules})
	}
}

func handleAcceptSchedule(schSvc *service.ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		scheduleID, ok := pathID(w, r, "scheduleID")
		if !ok {
			return
		}

		sch, err := schSvc.Accept(r.Context(), scheduleID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sch)
	}
}

func handleCancelSchedule(schSvc *service.ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}
		scheduleID, ok := pathID(w, r, "scheduleID")
		if !ok {
			return
		}

		cancellation, err := schSvc.Cancel(r.Context(), scheduleID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]*domain.Message{"message": cancellation})
	}
}

func handleListSchedules(schSvc *service.ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}

		schedules, err := schSvc.ListForUser(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		if schedules == nil {
			schedules = []*domain.ScheduleWithCounterpart{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
	}
}
