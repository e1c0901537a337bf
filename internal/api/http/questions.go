package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/toximeter/internal/apperr"
	"github.com/mind-engage/toximeter/internal/assessment"
	"github.com/mind-engage/toximeter/internal/validation"
)

// GET /questions
func ListQuestionsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.ActiveQuestions(r.Context())
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusOK, qs)
	}
}

// GET /admin/questions
func AdminListQuestionsHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := svc.ListQuestions(r.Context(), true)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusOK, qs)
	}
}

// POST /admin/questions  { "text": "...", "weight": -2..2, "order": 1.. }
func CreateQuestionHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string  `json:"id"`
			Text   string  `json:"text"`
			Weight float64 `json:"weight"`
			Order  int     `json:"order"`
		}
		if err := decodeValidated(r, validation.Question, &req); err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		q, err := svc.CreateQuestion(r.Context(), assessment.Question{
			ID: req.ID, Text: req.Text, Weight: req.Weight, Order: req.Order,
		})
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, q)
	}
}

// PATCH /admin/questions/{id}
func UpdateQuestionHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch assessment.QuestionPatch
		if err := decodeValidated(r, validation.QuestionPatch, &patch); err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		q, err := svc.UpdateQuestion(r.Context(), chi.URLParam(r, "id"), patch)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		respondJSON(w, http.StatusOK, q)
	}
}

// DELETE /admin/questions/{id}
func DeleteQuestionHandler(svc *assessment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
