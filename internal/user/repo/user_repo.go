package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db    *sqlx.DB
	newID func() string
}

// NewUserRepo builds a repo; a nil newID falls back to random UUIDs.
func NewUserRepo(db *sqlx.DB, newID func() string) *UserRepo {
	if newID == nil {
		newID = utilities.NewUUID
	}
	return &UserRepo{db: db, newID: newID}
}

// Create inserts a new user row with a freshly generated id. Uniqueness of
// username is left to the unique index so concurrent callers cannot both win.
func (r *UserRepo) Create(ctx context.Context, username, passwordHash, nickname string) (*entity.User, error) {
	u := &entity.User{
		ID:       r.newID(),
		Username: username,
		Password: passwordHash,
		Nickname: nickname,
	}
	const q = `INSERT INTO users (id, username, password, nickname) VALUES (:id, :username, :password, :nickname)`
	if _, err := r.db.NamedExecContext(ctx, q, u); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetByUsername fetches by username (case-sensitive).
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT id, username, password, nickname FROM users WHERE username = ?`, username)
}

// GetByID fetches by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT id, username, password, nickname FROM users WHERE id = ?`, id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*entity.User, error) {
	var row entity.User
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(q), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &row, nil
}

// Update persists the mutable fields of an already loaded user.
func (r *UserRepo) Update(ctx context.Context, u *entity.User) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET nickname = ? WHERE id = ?`), u.Nickname, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == "idx_users_username"
	}
	return false
}
