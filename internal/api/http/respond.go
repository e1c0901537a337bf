package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/mind-engage/toximeter/internal/apperr"
	"github.com/mind-engage/toximeter/internal/validation"
)

const maxBody = 64 << 10

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeValidated checks the body against schema and then decodes it into v.
func decodeValidated(r *http.Request, schema *validation.Schema, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return apperr.InvalidInput("unreadable body")
	}
	if len(body) > maxBody {
		return apperr.InvalidInput("body too large")
	}
	if err := schema.Validate(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperr.InvalidInput("bad json", err.Error())
	}
	return nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
