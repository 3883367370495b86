// Package auth covers email and password sign-up and sign-in against the hosted auth service.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/utils/platformerrors"
	"github.com/janhq/jan-chat/pkg/telemetry"
)

const (
	MinPasswordLength = 9
	MaxPasswordLength = 64
)

// Lengths are counted in characters, not bytes.
var passwordRule = fmt.Sprintf("min=%d,max=%d", MinPasswordLength, MaxPasswordLength)

// Credentials identify an account.
type Credentials struct {
	Email    string
	Password string
}

// User is the authenticated principal.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Session is the token set issued on sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// Provider is the hosted auth service. Implementations decide error reasons
// from the service's error codes.
type Provider interface {
	// SignUp registers the account. A nil session means email verification is pending.
	SignUp(ctx context.Context, creds Credentials, redirectTo string) (*Session, error)
	SignIn(ctx context.Context, creds Credentials) (*Session, error)
	SendVerificationEmail(ctx context.Context, email, redirectTo string) error
	SignOut(ctx context.Context, refreshToken string) error
}

// SignUpResult tells the caller what to show after sign-up.
type SignUpResult struct {
	VerificationSent bool     `json:"verification_sent"`
	Resent           bool     `json:"resent"`
	Session          *Session `json:"session,omitempty"`
}

// Service validates input locally and delegates to the provider.
type Service struct {
	provider   Provider
	redirectTo string
	validate   *validator.Validate
	sanitizer  *telemetry.Sanitizer
	log        zerolog.Logger
}

// NewService wires dependencies. redirectTo is the verification deep link.
func NewService(provider Provider, redirectTo string, sanitizer *telemetry.Sanitizer, log zerolog.Logger) *Service {
	if sanitizer == nil {
		sanitizer = telemetry.NewSanitizer(telemetry.PIILevelNone, "")
	}
	return &Service{
		provider:   provider,
		redirectTo: redirectTo,
		validate:   validator.New(),
		sanitizer:  sanitizer,
		log:        log.With().Str("component", "auth-service").Logger(),
	}
}

// SignUp registers a new account. Registering an address that exists but was
// never verified re-sends the verification email and reports success.
func (s *Service) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	creds, err := s.credentials(ctx, email, password, true)
	if err != nil {
		return nil, err
	}

	session, err := s.provider.SignUp(ctx, creds, s.redirectTo)
	if err == nil {
		return &SignUpResult{VerificationSent: session == nil, Session: session}, nil
	}
	if !platformerrors.HasReason(err, platformerrors.ReasonDuplicate) {
		return nil, err
	}

	resendErr := s.provider.SendVerificationEmail(ctx, creds.Email, s.redirectTo)
	if resendErr == nil {
		s.log.Info().Str("email", s.sanitizer.Email(creds.Email)).Msg("duplicate unverified sign-up, verification re-sent")
		return &SignUpResult{VerificationSent: true, Resent: true}, nil
	}
	if platformerrors.HasReason(resendErr, platformerrors.ReasonAlreadyVerified) {
		return nil, platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeAuth,
			platformerrors.ReasonDuplicate, "an account with this email already exists, sign in instead", err)
	}
	return nil, resendErr
}

// SignIn exchanges credentials for a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	creds, err := s.credentials(ctx, email, password, false)
	if err != nil {
		return nil, err
	}
	return s.provider.SignIn(ctx, creds)
}

// ResendVerification sends another verification email.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			platformerrors.ReasonInvalidEmail, "email address is not valid", err)
	}
	return s.provider.SendVerificationEmail(ctx, email, s.redirectTo)
}

// SignOut revokes the refresh token.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			platformerrors.ReasonEmptyInput, "refresh token is required", nil)
	}
	return s.provider.SignOut(ctx, refreshToken)
}

func (s *Service) credentials(ctx context.Context, email, password string, enforcePolicy bool) (Credentials, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return Credentials{}, platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			platformerrors.ReasonInvalidEmail, "email address is not valid", err)
	}
	if password == "" {
		return Credentials{}, platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			platformerrors.ReasonWeakPassword, "password is required", nil)
	}
	if !enforcePolicy {
		return Credentials{Email: email, Password: password}, nil
	}
	if err := s.validate.Var(password, passwordRule); err != nil {
		return Credentials{}, platformerrors.NewErrorWithReason(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			platformerrors.ReasonWeakPassword, "password must be between 9 and 64 characters", err)
	}
	return Credentials{Email: email, Password: password}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
