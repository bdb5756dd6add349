package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-account-go/internal/user/repo"
)

var (
	ErrUnauthorized     = errors.New("could not validate credentials")
	ErrStoreUnavailable = errors.New("user store unavailable")
)

// UserFinder resolves a token subject to a stored user.
// It must return repo.ErrNotFound for unknown usernames.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
}

// Authenticator turns a raw bearer token into the user it was issued for.
type Authenticator struct {
	tokens *TokenIssuer
	users  UserFinder
	logger *zap.SugaredLogger
}

func NewAuthenticator(tokens *TokenIssuer, users UserFinder, logger *zap.SugaredLogger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, logger: logger}
}

// Authenticate verifies the token and loads its subject. Bad tokens and unknown
// users both return ErrUnauthorized so callers cannot tell which check failed.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (*entity.User, error) {
	username, err := a.tokens.Verify(rawToken)
	if err != nil {
		a.logger.Debugw("token rejected", "err", err)
		return nil, ErrUnauthorized
	}
	u, err := a.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			a.logger.Debugw("token subject not found", "username", username)
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return u, nil
}

type ctxKey struct{}

// UserFromContext returns the user stored by RequireUser.
func UserFromContext(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*entity.User)
	return u, ok && u != nil
}

// WithUser attaches u to ctx.
func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// BearerToken extracts the token from an `Authorization: Bearer <token>` header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("bearer ") || !strings.EqualFold(h[:len("bearer ")], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("bearer "):])
	return tok, tok != ""
}

// RequireUser rejects requests without a valid bearer token and stores the
// authenticated user on the request context.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := BearerToken(r)
		if !ok {
			writeUnauthorized(w, "Not authenticated")
			return
		}
		u, err := a.Authenticate(r.Context(), tok)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				a.logger.Errorw("authenticate: user lookup failed", "err", err)
				writeDetail(w, http.StatusServiceUnavailable, "service unavailable")
				return
			}
			writeUnauthorized(w, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
