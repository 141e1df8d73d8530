// Package verification confirms account emails with a one-time token.
package verification

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"

	"github.com/example/guilda/internal/logging"
	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/observability"
	"github.com/example/guilda/internal/storage"
	"github.com/google/uuid"
)

const Subject = "⚔️ Confirme sua Aventura na Guilda! 🎮"

const (
	MsgVerified       = "✨ Email verificado! Bem-vindo à Guilda, aventureiro!"
	MsgVendorVerified = "✨ Email verificado! Seu perfil de Vendedor está pendente de verificação."
	MsgInvalidToken   = "Token inválido ou expirado"
)

var ErrInvalidToken = errors.New(MsgInvalidToken)

//go:embed templates/verify_email.html
var templateFS embed.FS

var emailTemplate = template.Must(template.ParseFS(templateFS, "templates/verify_email.html"))

type ProfileStore interface {
	Profile(ctx context.Context, id string) (models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) error
	ProfileByVerificationToken(ctx context.Context, token string) (models.Profile, error)
}

type Request struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

type Result struct {
	IsVendor bool   `json:"isVendor"`
	Message  string `json:"message"`
}

type Service struct {
	profiles ProfileStore
	mailer   Mailer
	from     string
	origin   string
	logger   *slog.Logger
}

func NewService(profiles ProfileStore, mailer Mailer, from, origin string, logger *slog.Logger) *Service {
	return &Service{profiles: profiles, mailer: mailer, from: from, origin: strings.TrimRight(origin, "/"), logger: logging.OrDiscard(logger)}
}

// Send stores a fresh token on the profile and mails the confirmation link.
// It returns the mail provider's message id.
func (s *Service) Send(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Email) == "" || req.UserID == "" {
		return "", fmt.Errorf("verification: email and user id are required")
	}
	p, err := s.profiles.Profile(ctx, req.UserID)
	if err != nil {
		return "", fmt.Errorf("verification: profile %s: %w", req.UserID, err)
	}
	token := uuid.NewString()
	p.VerificationToken = token
	if err := s.profiles.UpsertProfile(ctx, p); err != nil {
		return "", fmt.Errorf("verification: store token: %w", err)
	}

	html, err := Render(req.Name, s.Link(token))
	if err != nil {
		return "", err
	}
	id, err := s.mailer.Send(ctx, Email{From: s.from, To: []string{req.Email}, Subject: Subject, HTML: html})
	if err != nil {
		observability.VerificationEmailsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("verification: send email: %w", err)
	}
	observability.VerificationEmailsTotal.WithLabelValues("sent").Inc()
	s.logger.Info("verification email sent", "user_id", req.UserID, "message_id", id)
	return id, nil
}

// Link is the URL the email points to.
func (s *Service) Link(token string) string {
	return s.origin + "?verify=" + url.QueryEscape(token)
}

// Verify consumes token. Vendors move from pending to pending_verification.
func (s *Service) Verify(ctx context.Context, token string) (Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Result{}, ErrInvalidToken
	}
	p, err := s.profiles.ProfileByVerificationToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return Result{}, ErrInvalidToken
	}
	if err != nil {
		return Result{}, fmt.Errorf("verification: lookup token: %w", err)
	}

	p.EmailVerified = true
	p.VerificationToken = ""
	if p.VendorStatus == models.VendorPending {
		p.VendorStatus = models.VendorPendingVerification
	}
	if err := s.profiles.UpsertProfile(ctx, p); err != nil {
		return Result{}, fmt.Errorf("verification: update profile: %w", err)
	}

	if p.Role == models.RoleVendor {
		return Result{IsVendor: true, Message: MsgVendorVerified}, nil
	}
	return Result{Message: MsgVerified}, nil
}

// Render builds the confirmation email body.
func Render(name, link string) (string, error) {
	if strings.TrimSpace(name) == "" {
		name = "Aventureiro"
	}
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, struct {
		Name string
		URL  string
	}{name, link}); err != nil {
		return "", fmt.Errorf("verification: render email: %w", err)
	}
	return buf.String(), nil
}
