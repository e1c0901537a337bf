package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/toximeter/internal/apperr"
	"github.com/mind-engage/toximeter/internal/db"
	"github.com/mind-engage/toximeter/internal/rbac"
)

func newUsers(t *testing.T) *Users {
	t.Helper()
	h, err := db.Open(context.Background(), db.DriverSQLite, "file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	u := NewUsers(h)
	u.cost = bcrypt.MinCost
	return u
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("test-secret", time.Hour)
	tok, err := a.IssueJWT(User{ID: "u-1", Username: "sam", Role: RoleUser})
	require.NoError(t, err)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.Subject)
	assert.Equal(t, "sam", c.Username)
	assert.Equal(t, RoleUser, c.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.ExpiresAt.Time, 5*time.Second)

	_, err = NewAuthService("other-secret", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestParse_Expired(t *testing.T) {
	a := NewAuthService("test-secret", time.Minute)
	tok, err := a.IssueJWT(User{ID: "u-1", Role: RoleUser})
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = a.Parse(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	a := NewAuthService("test-secret", time.Hour)
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x", Issuer: issuer},
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = a.Parse(s)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("test-secret", time.Hour)
	var gotSub, gotRole, gotName string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
		gotName = UsernameFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := a.IssueJWT(User{ID: "u-9", Username: "kim", Role: RoleAdmin})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-9", gotSub)
	assert.Equal(t, RoleAdmin, gotRole)
	assert.Equal(t, "kim", gotName)
}

func TestUsers_CreateAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)

	u, err := users.Create(ctx, "robin", "correct horse", RoleUser)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	_, err = users.Create(ctx, "robin", "another pass", RoleUser)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	_, err = users.Create(ctx, "eve", "correct horse", "superuser")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	got, err := users.Authenticate(ctx, "robin", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, RoleUser, got.Role)

	_, err = users.Authenticate(ctx, "robin", "wrong")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
	_, err = users.Authenticate(ctx, "nobody", "correct horse")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	role, err := users.RoleOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)
	_, err = users.RoleOf(ctx, "missing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestUsers_ChangePassword(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)
	u, err := users.Create(ctx, "robin", "correct horse", RoleUser)
	require.NoError(t, err)

	err = users.ChangePassword(ctx, u.ID, "wrong", "battery staple")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	require.NoError(t, users.ChangePassword(ctx, u.ID, "correct horse", "battery staple"))
	_, err = users.Authenticate(ctx, "robin", "battery staple")
	assert.NoError(t, err)

	assert.True(t, apperr.IsNotFound(users.ChangePassword(ctx, "missing", "a", "b")))
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	created, err := EnsureAdmin(ctx, users, "admin", string(hash))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureAdmin(ctx, users, "admin", string(hash))
	require.NoError(t, err)
	assert.False(t, created, "second call is a no-op")

	u, err := users.Authenticate(ctx, "admin", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)

	_, err = EnsureAdmin(ctx, users, "root", "plaintext")
	assert.Error(t, err)

	created, err = EnsureAdmin(ctx, users, "", "")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAttachRoleFromDB(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)
	u, err := users.Create(ctx, "robin", "correct horse", RoleUser)
	require.NoError(t, err)

	var role string
	h := AttachRoleFromDB(users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = rbac.RoleFromContext(r.Context())
	}))

	// a forged admin claim is overridden by the stored role
	rctx := rbac.WithRole(WithSubject(ctx, u.ID), RoleAdmin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(rctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RoleUser, role)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(WithSubject(ctx, "gone")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterAndLoginHandlers(t *testing.T) {
	users := newUsers(t)
	a := NewAuthService("test-secret", time.Hour)

	post := func(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		return rec
	}

	rec := post(RegisterHandler(users, a), `{"username":"robin","password":"correct horse"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Bearer", out.TokenType)
	assert.Equal(t, int64(3600), out.ExpiresIn)
	assert.Equal(t, RoleUser, out.User.Role)

	c, err := a.Parse(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, out.User.ID, c.Subject)

	rec = post(RegisterHandler(users, a), `{"username":"robin","password":"correct horse"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(RegisterHandler(users, a), `{"username":"robin","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(LoginHandler(users, a), `{"username":"robin","password":"correct horse"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(LoginHandler(users, a), `{"username":"robin","password":"wrong password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsers_ListAndSetRole(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)
	admin, err := users.Create(ctx, "admin", "admin-pass", RoleAdmin)
	require.NoError(t, err)
	_, err = users.Create(ctx, "robin", "correct horse", RoleUser)
	require.NoError(t, err)

	all, err := users.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "admin", all[0].Username)

	_, err = users.SetRole(ctx, admin.ID, RoleUser)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err), "last admin stays")

	promoted, err := users.SetRole(ctx, "robin", "Admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, promoted.Role)

	admins, err := users.List(ctx, RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	_, err = users.SetRole(ctx, admin.ID, RoleUser)
	require.NoError(t, err)

	_, err = users.SetRole(ctx, "robin", "owner")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
	_, err = users.SetRole(ctx, "ghost", RoleUser)
	assert.True(t, apperr.IsNotFound(err))
}

func TestUsers_ConcurrentDemotionsKeepOneAdmin(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)
	a, err := users.Create(ctx, "ada", "admin-pass-1", RoleAdmin)
	require.NoError(t, err)
	b, err := users.Create(ctx, "bea", "admin-pass-2", RoleAdmin)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = users.SetRole(ctx, id, RoleUser)
		}(i, id)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	assert.Equal(t, 1, failed, "exactly one demotion is refused")

	admins, err := users.List(ctx, RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}
