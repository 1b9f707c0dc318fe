package httpserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jphacks/os-2518/internal/domain"
)

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError maps a domain error to its HTTP status and stable error
// envelope. Anything that is not a domain.Error is logged and masked as
// an internal error so store details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.Printf("internal error: %v", err)
		de = domain.ErrInternal
	}

	status := http.StatusInternalServerError
	switch de.Kind {
	case domain.KindValidation, domain.KindStateConflict:
		status = http.StatusBadRequest
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindInternal:
		log.Printf("internal error: %v", err)
	}

	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: de.Code, Message: de.Message}})
}

// pathID parses a numeric path parameter, returning ok=false after
// writing a validation error.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, domain.Validation("invalid "+name))
		return 0, false
	}
	return id, true
}

// queryInt64 parses an optional numeric query parameter, defaulting to 0.
func queryInt64(r *http.Request, name string) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, domain.Validation("invalid JSON body"))
		return false
	}
	return true
}

// requireUserID resolves the acting user, writing 401 when absent. The
// auth middleware guarantees presence on /api routes; this guards
// against a route mounted outside the group.
func requireUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := CurrentUserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return userID, true
}
