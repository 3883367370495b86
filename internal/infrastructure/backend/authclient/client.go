// Package authclient talks to the hosted email/password auth REST API.
package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

// Client implements auth.Provider.
type Client struct {
	httpClient *resty.Client
	log        zerolog.Logger
}

// NewClient constructs an auth client rooted at baseURL (for example http://localhost:1337/v1/auth).
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		httpClient: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Content-Type", "application/json").
			SetTimeout(15 * time.Second),
		log: log.With().Str("component", "auth-client").Logger(),
	}
}

type redirectOptions struct {
	RedirectTo string `json:"redirectTo,omitempty"`
}

type credentialsBody struct {
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Options  *redirectOptions `json:"options,omitempty"`
}

type emailBody struct {
	Email   string           `json:"email"`
	Options *redirectOptions `json:"options,omitempty"`
}

type sessionEnvelope struct {
	Session *sessionPayload `json:"session"`
}

type sessionPayload struct {
	AccessToken          string `json:"accessToken"`
	AccessTokenExpiresIn int    `json:"accessTokenExpiresIn"`
	RefreshToken         string `json:"refreshToken"`
	User                 struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
	} `json:"user"`
}

// errorBody is the service's error shape; Code is the stable discriminator.
type errorBody struct {
	Status  int    `json:"status"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

// SignUp registers a new account.
func (c *Client) SignUp(ctx context.Context, creds auth.Credentials, redirectTo string) (*auth.Session, error) {
	var envelope sessionEnvelope
	body := credentialsBody{Email: creds.Email, Password: creds.Password}
	if redirectTo != "" {
		body.Options = &redirectOptions{RedirectTo: redirectTo}
	}
	if err := c.post(ctx, "/signup/email-password", body, &envelope); err != nil {
		return nil, err
	}
	return toSession(envelope.Session), nil
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, creds auth.Credentials) (*auth.Session, error) {
	var envelope sessionEnvelope
	if err := c.post(ctx, "/signin/email-password", credentialsBody{Email: creds.Email, Password: creds.Password}, &envelope); err != nil {
		return nil, err
	}
	session := toSession(envelope.Session)
	if session == nil {
		return nil, platformerrors.NewErrorWithReason(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeAuth,
			platformerrors.ReasonInvalidCredentials, "sign-in returned no session", nil)
	}
	return session, nil
}

// SendVerificationEmail asks the service to send a verification link.
func (c *Client) SendVerificationEmail(ctx context.Context, email, redirectTo string) error {
	body := emailBody{Email: email}
	if redirectTo != "" {
		body.Options = &redirectOptions{RedirectTo: redirectTo}
	}
	return c.post(ctx, "/user/email/send-verification-email", body, nil)
}

// SignOut revokes a refresh token.
func (c *Client) SignOut(ctx context.Context, refreshToken string) error {
	return c.post(ctx, "/signout", map[string]string{"refreshToken": refreshToken}, nil)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeAuth,
			platformerrors.ReasonUnavailable, "auth service unreachable", err)
	}

	if resp.IsError() {
		var eb errorBody
		_ = json.Unmarshal(resp.Body(), &eb)
		errType, reason := classify(resp.StatusCode(), eb.Code)
		c.log.Debug().Str("path", path).Int("status", resp.StatusCode()).Str("code", eb.Code).Msg("auth request rejected")
		message := eb.Message
		if message == "" {
			message = fmt.Sprintf("auth service returned status %d", resp.StatusCode())
		}
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerInfrastructure, errType, reason, message, nil).
			WithContext("auth_code", eb.Code)
	}

	if result != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), result); err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeInternal,
				"decode auth response", err)
		}
	}
	return nil
}

// classify maps the service's error code to a closed error kind.
func classify(status int, code string) (platformerrors.ErrorType, platformerrors.Reason) {
	switch code {
	case "email-already-in-use":
		return platformerrors.ErrorTypeAuth, platformerrors.ReasonDuplicate
	case "unverified-user":
		return platformerrors.ErrorTypeAuth, platformerrors.ReasonUnverified
	case "invalid-email-password", "user-not-found":
		return platformerrors.ErrorTypeAuth, platformerrors.ReasonInvalidCredentials
	case "disabled-user":
		return platformerrors.ErrorTypeAuth, platformerrors.ReasonDisabled
	case "email-already-verified":
		return platformerrors.ErrorTypeAuth, platformerrors.ReasonAlreadyVerified
	case "invalid-refresh-token", "invalid-token":
		return platformerrors.ErrorTypeAuth, platformerrors.ReasonInvalidToken
	case "invalid-email":
		return platformerrors.ErrorTypeValidation, platformerrors.ReasonInvalidEmail
	case "password-too-short", "password-in-hibp-database":
		return platformerrors.ErrorTypeValidation, platformerrors.ReasonWeakPassword
	}
	if status >= 500 {
		return platformerrors.ErrorTypeAuth, platformerrors.ReasonUnavailable
	}
	if status == 409 {
		return platformerrors.ErrorTypeAuth, platformerrors.ReasonDuplicate
	}
	return platformerrors.ErrorTypeAuth, platformerrors.ReasonNone
}

func toSession(p *sessionPayload) *auth.Session {
	if p == nil || p.AccessToken == "" {
		return nil
	}
	return &auth.Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresIn:    p.AccessTokenExpiresIn,
		User: auth.User{
			ID:            p.User.ID,
			Email:         p.User.Email,
			EmailVerified: p.User.EmailVerified,
		},
	}
}

var _ auth.Provider = (*Client)(nil)
