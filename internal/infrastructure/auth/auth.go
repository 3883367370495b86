// Package auth resolves the calling principal from the bearer token.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/config"
	domainauth "github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/interfaces/httpserver/responses"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

const (
	// GuestPrincipal owns every conversation when auth is disabled and no token is sent.
	GuestPrincipal = "guest"

	hasuraClaimsKey = "https://hasura.io/jwt/claims"
	hasuraUserIDKey = "x-hasura-user-id"
)

// Validator validates JWTs using JWKS.
type Validator struct {
	cfg     *config.Config
	log     zerolog.Logger
	keyfunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
}

// NewValidator initializes JWKS fetching when auth is enabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth-validator").Logger()
	if !cfg.AuthEnabled {
		return &Validator{cfg: cfg, log: log}, nil
	}

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	})
	if err != nil {
		return nil, err
	}

	return &Validator{cfg: cfg, log: log, keyfunc: jwks.Keyfunc, jwks: jwks}, nil
}

// NewValidatorWithKeyfunc builds an enforcing validator with a fixed key source.
func NewValidatorWithKeyfunc(cfg *config.Config, kf jwt.Keyfunc, log zerolog.Logger) *Validator {
	return &Validator{cfg: cfg, log: log, keyfunc: kf}
}

func (v *Validator) enforcing() bool {
	return v != nil && v.keyfunc != nil
}

// Middleware resolves the principal and stores it, with the raw token, in the
// request context. Without enforcement the token is read but not verified.
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))

		principal, err := v.principal(tokenString)
		if err != nil {
			v.log.Debug().Err(err).Msg("rejected bearer token")
			abortUnauthorized(c, err.Error())
			return
		}

		ctx := domainauth.ContextWithPrincipal(c.Request.Context(), principal)
		ctx = domainauth.ContextWithAccessToken(ctx, tokenString)
		c.Request = c.Request.WithContext(ctx)
		c.Set("principal", principal)
		c.Next()
	}
}

type authError string

func (e authError) Error() string { return string(e) }

func (v *Validator) principal(tokenString string) (string, error) {
	if !v.enforcing() {
		if tokenString == "" {
			return GuestPrincipal, nil
		}
		token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
		if err != nil {
			return GuestPrincipal, nil
		}
		if id := subject(token.Claims.(jwt.MapClaims)); id != "" {
			return id, nil
		}
		return GuestPrincipal, nil
	}

	if tokenString == "" {
		return "", authError("missing bearer token")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"})}
	if issuer := strings.TrimSpace(v.cfg.AuthIssuer); issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.Parse(tokenString, v.keyfunc, opts...)
	if err != nil || !token.Valid {
		return "", authError("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", authError("invalid token claims")
	}
	id := subject(claims)
	if id == "" {
		return "", authError("token has no subject")
	}
	return id, nil
}

// subject prefers the backend's user id claim over sub.
func subject(claims jwt.MapClaims) string {
	if hasura, ok := claims[hasuraClaimsKey].(map[string]any); ok {
		if id, ok := hasura[hasuraUserIDKey].(string); ok && id != "" {
			return id
		}
	}
	sub, _ := claims["sub"].(string)
	return sub
}

// Ready indicates if the validator is prepared.
func (v *Validator) Ready() bool {
	if v == nil || !v.cfg.AuthEnabled {
		return true
	}
	return v.keyfunc != nil
}

// Close stops background JWKS refresh.
func (v *Validator) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized, platformerrors.ReasonInvalidToken, message)
}
