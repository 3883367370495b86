package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/infrastructure/metrics"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/requests"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/responses"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

// AuthService is the account surface used by AuthHandler.
type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*auth.SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	ResendVerification(ctx context.Context, email string) error
	SignOut(ctx context.Context, refreshToken string) error
}

// AuthHandler proxies email and password auth to the hosted auth service.
type AuthHandler struct {
	service AuthService
	log     zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(service AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		log:     log.With().Str("handler", "auth").Logger(),
	}
}

// SignUp handles POST /v1/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req requests.CredentialsRequest
	if !bindCredentials(c, &req, "signup") {
		return
	}
	result, err := h.service.SignUp(c.Request.Context(), req.Email, req.Password)
	metrics.RecordAuth("signup", authOutcome(err))
	if err != nil {
		responses.HandleError(c, err, "sign-up failed")
		return
	}
	status := http.StatusCreated
	if result.Session != nil {
		status = http.StatusOK
	}
	c.JSON(status, responses.MapSignUp(result))
}

// SignIn handles POST /v1/auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req requests.CredentialsRequest
	if !bindCredentials(c, &req, "signin") {
		return
	}
	session, err := h.service.SignIn(c.Request.Context(), req.Email, req.Password)
	metrics.RecordAuth("signin", authOutcome(err))
	if err != nil {
		responses.HandleError(c, err, "sign-in failed")
		return
	}
	c.JSON(http.StatusOK, session)
}

// ResendVerification handles POST /v1/auth/verification
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req requests.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordAuth("verification", "validation")
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, platformerrors.ReasonInvalidEmail, "invalid request body: "+err.Error())
		return
	}
	err := h.service.ResendVerification(c.Request.Context(), req.Email)
	metrics.RecordAuth("verification", authOutcome(err))
	if err != nil {
		responses.HandleError(c, err, "failed to resend verification email")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"verification_sent": true})
}

// SignOut handles POST /v1/auth/signout
func (h *AuthHandler) SignOut(c *gin.Context) {
	var req requests.SignOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordAuth("signout", "validation")
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, platformerrors.ReasonEmptyInput, "invalid request body: "+err.Error())
		return
	}
	err := h.service.SignOut(c.Request.Context(), req.RefreshToken)
	metrics.RecordAuth("signout", authOutcome(err))
	if err != nil {
		responses.HandleError(c, err, "sign-out failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func bindCredentials(c *gin.Context, req *requests.CredentialsRequest, operation string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		metrics.RecordAuth(operation, "validation")
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, platformerrors.ReasonEmptyInput, "email and password are required")
		return false
	}
	return true
}

func authOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	var pe *platformerrors.PlatformError
	if !errors.As(err, &pe) {
		return "error"
	}
	if reason := pe.GetReason(); reason != platformerrors.ReasonNone {
		return string(reason)
	}
	return "error"
}
