package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-account-go/internal/user/repo"
)

type fakeFinder struct {
	users map[string]*entity.User
	err   error
}

func (f *fakeFinder) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return nil, userrepo.ErrNotFound
	}
	return u, nil
}

func newTestAuthenticator(t *testing.T, finder UserFinder) (*Authenticator, *TokenIssuer) {
	t.Helper()
	iss, err := NewTokenIssuer(Config{SecretKey: "test-secret"})
	require.NoError(t, err)
	return NewAuthenticator(iss, finder, zap.NewNop().Sugar()), iss
}

func TestAuthenticate(t *testing.T) {
	alice := &entity.User{ID: "1", Username: "alice", Nickname: "al****"}
	a, iss := newTestAuthenticator(t, &fakeFinder{users: map[string]*entity.User{"alice": alice}})
	ctx := context.Background()

	tok, err := iss.Issue("alice", time.Minute)
	require.NoError(t, err)
	u, err := a.Authenticate(ctx, tok)
	require.NoError(t, err)
	assert.Same(t, alice, u)

	ghost, err := iss.Issue("ghost", time.Minute)
	require.NoError(t, err)
	_, errUnknown := a.Authenticate(ctx, ghost)
	_, errBad := a.Authenticate(ctx, "garbage")

	require.ErrorIs(t, errUnknown, ErrUnauthorized)
	require.ErrorIs(t, errBad, ErrUnauthorized)
	assert.Equal(t, errUnknown.Error(), errBad.Error())
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	a, iss := newTestAuthenticator(t, &fakeFinder{err: errors.New("disk I/O error")})
	tok, err := iss.Issue("alice", time.Minute)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), tok)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc ", "abc", true},
		{"BEARER abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, ok := BearerToken(r)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.want, got, tc.header)
	}
}

func TestRequireUser(t *testing.T) {
	alice := &entity.User{ID: "1", Username: "alice"}
	a, iss := newTestAuthenticator(t, &fakeFinder{users: map[string]*entity.User{"alice": alice}})
	tok, err := iss.Issue("alice", time.Minute)
	require.NoError(t, err)

	var seen *entity.User
	h := a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/set_nickname", nil)
		r.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Same(t, alice, seen)
	})

	for name, header := range map[string]string{
		"missing header": "",
		"bad token":      "Bearer nope",
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/set_nickname", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestRequireUser_StoreFailureIs503(t *testing.T) {
	a, iss := newTestAuthenticator(t, &fakeFinder{err: errors.New("connection refused")})
	tok, err := iss.Issue("alice", time.Minute)
	require.NoError(t, err)

	h := a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	r := httptest.NewRequest(http.MethodPost, "/set_nickname", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
