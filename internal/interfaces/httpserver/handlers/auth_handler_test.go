package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/handlers"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

// MockAuthService is a mock implementation of handlers.AuthService for testing.
type MockAuthService struct {
	SignUpFunc             func(ctx context.Context, email, password string) (*auth.SignUpResult, error)
	SignInFunc             func(ctx context.Context, email, password string) (*auth.Session, error)
	ResendVerificationFunc func(ctx context.Context, email string) error
	SignOutFunc            func(ctx context.Context, refreshToken string) error
}

func (m *MockAuthService) SignUp(ctx context.Context, email, password string) (*auth.SignUpResult, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, email, password)
	}
	return &auth.SignUpResult{}, nil
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return &auth.Session{}, nil
}

func (m *MockAuthService) ResendVerification(ctx context.Context, email string) error {
	if m.ResendVerificationFunc != nil {
		return m.ResendVerificationFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) SignOut(ctx context.Context, refreshToken string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, refreshToken)
	}
	return nil
}

func newAuthRouter(service handlers.AuthService) *gin.Engine {
	h := handlers.NewAuthHandler(service, zerolog.Nop())
	r := gin.New()
	r.POST("/v1/auth/signup", h.SignUp)
	r.POST("/v1/auth/signin", h.SignIn)
	r.POST("/v1/auth/verification", h.ResendVerification)
	r.POST("/v1/auth/signout", h.SignOut)
	return r
}

func TestAuthHandler_SignUpPendingVerification(t *testing.T) {
	mock := &MockAuthService{
		SignUpFunc: func(ctx context.Context, email, password string) (*auth.SignUpResult, error) {
			assert.Equal(t, "a@b.co", email)
			return &auth.SignUpResult{VerificationSent: true}, nil
		},
	}
	w := doJSON(newAuthRouter(mock), http.MethodPost, "/v1/auth/signup", map[string]string{"email": "a@b.co", "password": "longenough1"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["verification_sent"])
	assert.NotContains(t, body, "session")
}

func TestAuthHandler_SignInReturnsSession(t *testing.T) {
	mock := &MockAuthService{
		SignInFunc: func(context.Context, string, string) (*auth.Session, error) {
			return &auth.Session{AccessToken: "at", RefreshToken: "rt", User: auth.User{ID: "u1"}}, nil
		},
	}
	w := doJSON(newAuthRouter(mock), http.MethodPost, "/v1/auth/signin", map[string]string{"email": "a@b.co", "password": "x"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "at", decode(t, w)["access_token"])
}

func TestAuthHandler_Errors(t *testing.T) {
	authErr := func(reason platformerrors.Reason) error {
		return platformerrors.NewErrorWithReason(context.Background(), platformerrors.LayerInfrastructure, platformerrors.ErrorTypeAuth, reason, string(reason), nil)
	}

	tests := []struct {
		name   string
		path   string
		body   any
		err    error
		status int
		reason string
	}{
		{"missing fields", "/v1/auth/signin", map[string]string{"email": "a@b.co"}, nil, http.StatusBadRequest, "empty_input"},
		{"bad credentials", "/v1/auth/signin", map[string]string{"email": "a@b.co", "password": "x"}, authErr(platformerrors.ReasonInvalidCredentials), http.StatusUnauthorized, "invalid_credentials"},
		{"unverified", "/v1/auth/signin", map[string]string{"email": "a@b.co", "password": "x"}, authErr(platformerrors.ReasonUnverified), http.StatusForbidden, "unverified"},
		{"duplicate", "/v1/auth/signup", map[string]string{"email": "a@b.co", "password": "longenough1"}, authErr(platformerrors.ReasonDuplicate), http.StatusConflict, "duplicate"},
		{"already verified", "/v1/auth/verification", map[string]string{"email": "a@b.co"}, authErr(platformerrors.ReasonAlreadyVerified), http.StatusUnauthorized, "already_verified"},
		{"signout without token", "/v1/auth/signout", map[string]string{}, nil, http.StatusBadRequest, "empty_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockAuthService{
				SignUpFunc:             func(context.Context, string, string) (*auth.SignUpResult, error) { return nil, tt.err },
				SignInFunc:             func(context.Context, string, string) (*auth.Session, error) { return nil, tt.err },
				ResendVerificationFunc: func(context.Context, string) error { return tt.err },
			}
			w := doJSON(newAuthRouter(mock), http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.reason, decode(t, w)["reason"])
		})
	}
}

func TestAuthHandler_SignOut(t *testing.T) {
	var revoked string
	mock := &MockAuthService{
		SignOutFunc: func(ctx context.Context, refreshToken string) error {
			revoked = refreshToken
			return nil
		},
	}
	w := doJSON(newAuthRouter(mock), http.MethodPost, "/v1/auth/signout", map[string]string{"refresh_token": "rt"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "rt", revoked)
}
