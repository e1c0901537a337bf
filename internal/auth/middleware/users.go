package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/toximeter/internal/apperr"
	"github.com/mind-engage/toximeter/internal/db"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Users is the account store over the users table.
type Users struct {
	db   *sql.DB
	cost int
	now  func() time.Time
}

func NewUsers(db *sql.DB) *Users {
	return &Users{db: db, cost: bcrypt.DefaultCost, now: time.Now}
}

// Create registers a user with a bcrypt hash of password.
func (u *Users) Create(ctx context.Context, username, password, role string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return User{}, apperr.Wrap(apperr.CodeInvalidInput, "password cannot be hashed", err)
	}
	return u.CreateWithHash(ctx, username, string(hash), role)
}

// CreateWithHash inserts a user whose password is already bcrypt-hashed.
func (u *Users) CreateWithHash(ctx context.Context, username, hash, role string) (User, error) {
	if role != RoleUser && role != RoleAdmin {
		return User{}, apperr.InvalidInput("unknown role " + role)
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return User{}, apperr.Wrap(apperr.CodeInvalidInput, "not a bcrypt hash", err)
	}
	user := User{
		ID:        uuid.NewString(),
		Username:  strings.TrimSpace(username),
		Role:      role,
		CreatedAt: u.now().UTC(),
	}
	_, err := u.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
		user.ID, user.Username, hash, user.Role, user.CreatedAt.UnixMilli())
	if db.IsUniqueViolation(err) {
		return User{}, apperr.New(apperr.CodeConflict, "username already taken")
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords produce the same error.
func (u *Users) Authenticate(ctx context.Context, username, password string) (User, error) {
	var user User
	var hash string
	var created int64
	err := u.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role, created_at FROM users WHERE username=$1`,
		strings.TrimSpace(username),
	).Scan(&user.ID, &user.Username, &hash, &user.Role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.New(apperr.CodeUnauthorized, "invalid credentials")
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, apperr.New(apperr.CodeUnauthorized, "invalid credentials")
	}
	user.CreatedAt = time.UnixMilli(created).UTC()
	return user, nil
}

// ChangePassword replaces the hash after verifying the current password.
func (u *Users) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	var hash string
	err := u.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("user")
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)) != nil {
		return apperr.New(apperr.CodeForbidden, "incorrect old password")
	}
	next, err := bcrypt.GenerateFromPassword([]byte(newPassword), u.cost)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidInput, "password cannot be hashed", err)
	}
	if _, err := u.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(next), id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// RoleOf returns the stored role of user id.
func (u *Users) RoleOf(ctx context.Context, id string) (string, error) {
	var role string
	err := u.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id=$1`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("user")
	}
	return role, err
}

// EnsureAdmin creates the bootstrap admin unless the username already exists.
func EnsureAdmin(ctx context.Context, u *Users, username, passHash string) (bool, error) {
	if username == "" || passHash == "" {
		return false, nil
	}
	_, err := u.CreateWithHash(ctx, username, passHash, RoleAdmin)
	if apperr.CodeOf(err) == apperr.CodeConflict {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns users ordered by username, optionally filtered by role.
func (u *Users) List(ctx context.Context, role string) ([]User, error) {
	q := `SELECT id, username, role, created_at FROM users`
	var args []any
	if role != "" {
		q += ` WHERE role=$1`
		args = append(args, role)
	}
	rows, err := u.db.QueryContext(ctx, q+` ORDER BY username`, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var user User
		var created int64
		if err := rows.Scan(&user.ID, &user.Username, &user.Role, &created); err != nil {
			return nil, err
		}
		user.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, user)
	}
	return out, rows.Err()
}

// SetRole changes the role of the user matched by id or username. The last
// admin cannot be demoted; the admin count and the update share one
// serializable transaction so concurrent demotions cannot both pass.
func (u *Users) SetRole(ctx context.Context, target, role string) (user User, err error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != RoleUser && role != RoleAdmin {
		return User{}, apperr.InvalidInput("invalid role")
	}

	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return User{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if err = tx.Commit(); err != nil {
			user, err = User{}, fmt.Errorf("commit role: %w", err)
		}
	}()

	var created int64
	err = tx.QueryRowContext(ctx,
		`SELECT id, username, role, created_at FROM users WHERE id=$1 OR username=$1`, target,
	).Scan(&user.ID, &user.Username, &user.Role, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, apperr.NotFound("user")
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	user.CreatedAt = time.UnixMilli(created).UTC()

	if user.Role == RoleAdmin && role != RoleAdmin {
		var admins int
		if err = tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM users WHERE role=$1`, RoleAdmin).Scan(&admins); err != nil {
			return User{}, fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return User{}, apperr.New(apperr.CodeConflict, "cannot demote the last admin")
		}
	}
	if _, err = tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, role, user.ID); err != nil {
		return User{}, fmt.Errorf("update role: %w", err)
	}
	user.Role = role
	return user, nil
}
