package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   map[string]any
	}{
		{
			name:   "missing answer",
			err:    MissingAnswer("q7", nil),
			status: http.StatusUnprocessableEntity,
			want:   map[string]any{"code": "MISSING_ANSWER", "message": "missing answer for question q7", "question_id": "q7"},
		},
		{
			name:   "invalid input with details",
			err:    InvalidInput("invalid responses", "q1: response 9 outside 1-5"),
			status: http.StatusBadRequest,
			want: map[string]any{"code": "INVALID_INPUT", "message": "invalid responses",
				"details": []any{"q1: response 9 outside 1-5"}},
		},
		{
			name:   "plain error hides text",
			err:    errors.New("pq: connection refused"),
			status: http.StatusInternalServerError,
			want:   map[string]any{"code": "INTERNAL", "message": "internal error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteJSON(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var got map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
