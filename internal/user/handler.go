package user

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/auth"
)

// maxFormMemory bounds the in-memory part of a multipart form.
const maxFormMemory = 1 << 20

// Handler exposes HTTP endpoints for user operations (register / token / nickname).
type Handler struct {
	svc    *UserService
	tokens *auth.TokenIssuer
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, tokens *auth.TokenIssuer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// TokenResponse is the OAuth2 password-grant response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// DetailResponse carries a human readable result or error message.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// Token implements the OAuth2 password grant on form fields username and password.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "invalid form body")
		return
	}
	if g := r.PostForm.Get("grant_type"); g != "" && g != "password" {
		h.writeDetail(w, http.StatusBadRequest, "unsupported grant type")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		h.writeDetail(w, http.StatusUnprocessableEntity, ErrMissingFields.Error())
		return
	}

	u, err := h.svc.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.logger.Debugw("login failed", "username", username)
			w.Header().Set("WWW-Authenticate", "Bearer")
			h.writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		h.unavailable(w, "login", err)
		return
	}

	tok, err := h.tokens.Issue(u.Username, 0)
	if err != nil {
		h.logger.Errorw("issue token failed", "err", err)
		h.writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	h.writeJSON(w, http.StatusOK, TokenResponse{AccessToken: tok, TokenType: "bearer"})
}

// Register creates an account from form fields username and password.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "invalid form body")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	u, err := h.svc.Register(r.Context(), username, password)
	switch {
	case err == nil:
		h.logger.Infow("user registered", "id", u.ID, "username", u.Username)
		h.writeDetail(w, http.StatusOK, "User registered successfully. Please log in.")
	case errors.Is(err, ErrDuplicateUsername):
		h.writeDetail(w, http.StatusBadRequest, "The username already exists.")
	case errors.Is(err, ErrMissingFields):
		h.writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrPasswordTooLong):
		h.writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		h.unavailable(w, "register", err)
	}
}

// SetNickname updates the caller's nickname from new_nickname (query or form).
// It must be mounted behind auth.Authenticator.RequireUser.
func (h *Handler) SetNickname(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		h.writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err := parseForm(r); err != nil {
		h.writeDetail(w, http.StatusBadRequest, "invalid form body")
		return
	}
	values, ok := r.Form["new_nickname"]
	if !ok || len(values) == 0 {
		h.writeDetail(w, http.StatusUnprocessableEntity, "new_nickname is required")
		return
	}
	nickname := values[0]
	if err := h.svc.SetNickname(r.Context(), u, nickname); err != nil {
		h.unavailable(w, "set nickname", err)
		return
	}
	h.writeDetail(w, http.StatusOK, "Nickname set successfully.")
}

// parseForm fills r.Form and r.PostForm from an urlencoded or multipart body.
func parseForm(r *http.Request) error {
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "multipart/form-data" {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

func (h *Handler) unavailable(w http.ResponseWriter, op string, err error) {
	h.logger.Errorw(op+" failed", "err", err)
	h.writeDetail(w, http.StatusServiceUnavailable, "service unavailable")
}

func (h *Handler) writeDetail(w http.ResponseWriter, status int, detail string) {
	h.writeJSON(w, status, DetailResponse{Detail: detail})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
