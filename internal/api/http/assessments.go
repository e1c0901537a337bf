package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/toximeter/internal/apperr"
	"github.com/mind-engage/toximeter/internal/assessment"
	authmw "github.com/mind-engage/toximeter/internal/auth/middleware"
	"github.com/mind-engage/toximeter/internal/scoring"
	"github.com/mind-engage/toximeter/internal/validation"
)

type answersReq struct {
	Answers scoring.Responses `json:"answers"`
}

// POST /score  { "answers": { "<questionID>": 1..5 } }
// Instant feedback; nothing is stored.
func ScoreHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answersReq
		if err := decodeValidated(r, validation.Answers, &req); err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		res, err := svc.Preview(r.Context(), req.Answers)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}

// POST /assessments  { "answers": { ... } }
func SubmitAssessmentHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answersReq
		if err := decodeValidated(r, validation.Answers, &req); err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		sub, err := svc.Submit(r.Context(), authmw.SubjectFromContext(r.Context()), req.Answers)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, sub)
	}
}

// GET /assessments?limit=&offset=
func HistoryHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := authmw.SubjectFromContext(r.Context())
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

		list, err := svc.History(r.Context(), userID, limit, offset)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

// GET /assessments/{id}
func GetAssessmentHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

// DELETE /assessments/{id}
func DeleteAssessmentHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Delete(r.Context(), chi.URLParam(r, "id"), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /share/{shareID}
func SharedAssessmentHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.GetShared(r.Context(), chi.URLParam(r, "shareID"))
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusOK, s)
	}
}
