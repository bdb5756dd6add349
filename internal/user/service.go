package user

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-account-go/internal/user/repo"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	if len(pw) > 72 {
		return "", ErrPasswordTooLong
	}
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// UserRepository is the storage contract the service depends on.
type UserRepository interface {
	Create(ctx context.Context, username, passwordHash, nickname string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
}

// UserService orchestrates registration, password login and profile updates.
type UserService struct {
	repo   UserRepository
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(r UserRepository, hasher PasswordHasher) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{repo: r, hasher: hasher}
}

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrBadCredentials    = errors.New("invalid credentials")
	ErrPasswordTooLong   = errors.New("password exceeds 72 bytes")
	ErrMissingFields     = errors.New("username and password are required")
)

// Register creates a user with a hashed password and a masked default nickname.
func (s *UserService) Register(ctx context.Context, username, password string) (*entity.User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Create(ctx, username, hash, MaskNickname(username))
	if err != nil {
		if errors.Is(err, userrepo.ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return u, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong
// passwords return the same ErrBadCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	if username == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			// keep the response time of unknown users close to a real comparison
			s.hasher.Verify(s.dummy(), password)
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.Password, password) {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// FindByUsername returns repo.ErrNotFound for unknown usernames.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// SetNickname updates the nickname of an already loaded user. An empty
// nickname is stored as is.
func (s *UserService) SetNickname(ctx context.Context, u *entity.User, nickname string) error {
	prev := u.Nickname
	u.Nickname = nickname
	if err := s.repo.Update(ctx, u); err != nil {
		u.Nickname = prev
		return fmt.Errorf("set nickname: %w", err)
	}
	return nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// MaskNickname derives the default nickname from a username.
// Usernames of 7+ runes keep the first 3 and everything from the 8th on with
// the middle replaced by "****" (phone-number style). Shorter usernames keep
// the first half of their runes, never the whole name.
func MaskNickname(username string) string {
	const mask = "****"
	r := []rune(username)
	n := len(r)
	switch {
	case n >= 7:
		return string(r[:3]) + mask + string(r[7:])
	case n > 1:
		return string(r[:n/2]) + mask
	default:
		return mask
	}
}
