package auth

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/mind-engage/toximeter/internal/apperr"
	"github.com/mind-engage/toximeter/internal/validation"
)

const maxAuthBody = 4 << 10

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        User   `json:"user"`
}

func readCredentials(r *http.Request) (credentials, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAuthBody))
	if err != nil {
		return credentials{}, apperr.InvalidInput("unreadable body")
	}
	if err := validation.Credentials.Validate(body); err != nil {
		return credentials{}, err
	}
	var c credentials
	if err := json.Unmarshal(body, &c); err != nil {
		return credentials{}, apperr.InvalidInput("bad json")
	}
	return c, nil
}

func writeToken(w http.ResponseWriter, a *AuthService, u User, status int) {
	tok, err := a.IssueJWT(u)
	if err != nil {
		apperr.WriteJSON(w, apperr.Internal(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int64(a.TTL().Seconds()),
		User:        u,
	})
}

// POST /auth/register  { "username": "...", "password": "..." }
func RegisterHandler(users *Users, a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := readCredentials(r)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		u, err := users.Create(r.Context(), c.Username, c.Password, RoleUser)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		writeToken(w, a, u, http.StatusCreated)
	}
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(users *Users, a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := readCredentials(r)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		u, err := users.Authenticate(r.Context(), c.Username, c.Password)
		if err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		writeToken(w, a, u, http.StatusOK)
	}
}

// POST /auth/change-password  { "old_password": "...", "new_password": "..." }
func ChangePasswordHandler(users *Users) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := SubjectFromContext(r.Context())
		if userID == "" {
			apperr.WriteJSON(w, apperr.New(apperr.CodeUnauthorized, "unauthorized"))
			return
		}
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxAuthBody)).Decode(&req); err != nil {
			apperr.WriteJSON(w, apperr.InvalidInput("bad json"))
			return
		}
		if len(req.NewPassword) < 8 {
			apperr.WriteJSON(w, apperr.InvalidInput("new password must be at least 8 characters"))
			return
		}
		if err := users.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
			apperr.WriteJSON(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
