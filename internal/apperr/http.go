package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// WriteJSON renders err as {code, message, details?, question_id?}. Errors
// outside the taxonomy become INTERNAL without leaking their text.
func WriteJSON(w http.ResponseWriter, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = Internal(err)
	}
	body := *ae
	if body.Code == CodeInternal {
		body.Message = "internal error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Status())
	_ = json.NewEncoder(w).Encode(&body)
}
