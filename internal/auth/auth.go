// Package auth handles accounts and bearer sessions. The current session
// travels in the request context; nothing is held globally.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/guilda/internal/apperr"
	"github.com/example/guilda/internal/logging"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/storage"
	"github.com/example/guilda/internal/verification"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLen = 6

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
)

// User-facing messages for the errors above.
const (
	MsgInvalidCredentials = "Email ou senha incorretos"
	MsgEmailNotVerified   = "Por favor, verifique seu email antes de fazer login."
)

type Session struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type ProfileStore interface {
	Profile(ctx context.Context, id string) (models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) error
}

// Verifier sends the account confirmation email.
type Verifier interface {
	Send(ctx context.Context, req verification.Request) (string, error)
}

type Service struct {
	users    storage.UserStore
	profiles ProfileStore
	sessions SessionStore
	verifier Verifier
	ttl      time.Duration
	cost     int
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Service)

func WithTTL(d time.Duration) Option        { return func(s *Service) { s.ttl = d } }
func WithBcryptCost(c int) Option           { return func(s *Service) { s.cost = c } }
func WithVerifier(v Verifier) Option        { return func(s *Service) { s.verifier = v } }
func WithLogger(l *slog.Logger) Option      { return func(s *Service) { s.logger = l } }
func withClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(users storage.UserStore, profiles ProfileStore, sessions SessionStore, opts ...Option) *Service {
	s := &Service{
		users:    users,
		profiles: profiles,
		sessions: sessions,
		ttl:      7 * 24 * time.Hour,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	return s
}

type SignUpRequest struct {
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	DisplayName string      `json:"display_name"`
	Role        models.Role `json:"role"`
}

// SignUp creates the account and an unverified profile, then asks the
// verifier to mail a confirmation link. A failed email does not undo the
// account.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return models.User{}, apperr.Validation("email", "invalid email")
	}
	if len(req.Password) < MinPasswordLen {
		return models.User{}, apperr.Validation("password", fmt.Sprintf("must have at least %d characters", MinPasswordLen))
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return models.User{}, apperr.Validation("display_name", "required")
	}
	if !req.Role.Valid() {
		return models.User{}, apperr.Validation("role", "Escolha se você é Otaku ou Vendedor")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	u := models.User{ID: uuid.NewString(), Email: email, PasswordHash: string(hash), Role: req.Role, CreatedAt: s.now().UTC()}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	status := models.VendorActive
	if req.Role == models.RoleVendor {
		status = models.VendorPending
	}
	if err := s.profiles.UpsertProfile(ctx, models.Profile{ID: u.ID, DisplayName: name, Role: req.Role, VendorStatus: status}); err != nil {
		return models.User{}, fmt.Errorf("create profile: %w", err)
	}

	if s.verifier != nil {
		if _, err := s.verifier.Send(ctx, verification.Request{Email: email, UserID: u.ID, Name: name}); err != nil {
			s.logger.Error("send verification email", "user_id", u.ID, "error", err)
		}
	}
	s.logger.Info("user signed up", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// SignIn checks the password and opens a session. Unverified emails are
// rejected with ErrEmailNotVerified.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	p, err := s.profiles.Profile(ctx, u.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Session{}, fmt.Errorf("load profile: %w", err)
	}
	if !p.EmailVerified {
		return Session{}, ErrEmailNotVerified
	}

	sess := Session{Token: uuid.NewString(), User: u, ExpiresAt: s.now().Add(s.ttl).UTC()}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Session resolves a bearer token.
func (s *Service) Session(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, apperr.ErrUnauthorized
	}
	sess, err := s.sessions.Get(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return Session{}, apperr.ErrUnauthorized
	}
	if err != nil {
		return Session{}, err
	}
	if s.now().After(sess.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return Session{}, apperr.ErrUnauthorized
	}
	return sess, nil
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok
}
