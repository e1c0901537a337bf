package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/toximeter/internal/apperr"
	authmw "github.com/mind-engage/toximeter/internal/auth/middleware"
	syncx "github.com/mind-engage/toximeter/internal/sync"
)

// GET /admin/users?role=
func ListUsersHandler(users *authmw.Users) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := users.List(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// PATCH /admin/users/{userID}/role  { "role": "user|admin" }
func UpdateUserRoleHandler(users *authmw.Users) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
			apperr.WriteJSON(w, apperr.InvalidInput("bad json"))
			return
		}
		u, err := users.SetRole(r.Context(), chi.URLParam(r, "userID"), req.Role)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusOK, u)
	}
}

// EventSource is the read side of the event log.
type EventSource interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// GET /admin/events?after=&limit=
func ListEventsHandler(events EventSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var after int64
		if s := r.URL.Query().Get("after"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 0 {
				apperr.WriteJSON(w, apperr.InvalidInput("after must be a non-negative integer"))
				return
			}
			after = v
		}
		list, err := events.Since(r.Context(), after, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			apperr.WriteJSON(w, apperr.Internal(err))
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}
