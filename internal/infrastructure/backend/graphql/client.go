// Package graphql stores conversations in the hosted GraphQL backend. Row
// access is enforced by the backend's permissions for the caller's role, so
// every request carries the caller's own access token.
package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/infrastructure/observability"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

const backendName = "graphql"

// Config locates the backend.
type Config struct {
	URL   string
	WSURL string
	Role  string
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors,omitempty"`
}

type gqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
		Path string `json:"path"`
	} `json:"extensions"`
}

type client struct {
	http *resty.Client
	role string
	log  zerolog.Logger
}

func newClient(cfg Config, log zerolog.Logger) *client {
	return &client{
		http: resty.New().
			SetBaseURL(cfg.URL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(20 * time.Second),
		role: cfg.Role,
		log:  log,
	}
}

// headers are sent on every HTTP request and in the websocket connection params.
func headers(ctx context.Context, role string) map[string]string {
	h := map[string]string{}
	if token, ok := auth.AccessTokenFromContext(ctx); ok {
		h["Authorization"] = "Bearer " + token
	}
	if role != "" {
		h["x-hasura-role"] = role
	}
	return h
}

// do executes one operation and decodes data into out.
func (c *client) do(ctx context.Context, op, query string, vars map[string]any, out any) (err error) {
	ctx, span := observability.StartStoreSpan(ctx, backendName, op)
	defer func() { observability.EndSpan(span, err) }()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers(ctx, c.role)).
		SetBody(request{Query: query, Variables: vars}).
		Post("")
	if err != nil {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonUnavailable, "graphql backend unreachable", err).WithContext("operation", op)
	}
	if resp.StatusCode() >= 500 {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonUnavailable, fmt.Sprintf("graphql backend returned status %d", resp.StatusCode()), nil).
			WithContext("operation", op)
	}

	var body response
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonUnavailable, "graphql response is not json", err).WithContext("operation", op)
	}
	if len(body.Errors) > 0 {
		first := body.Errors[0]
		c.log.Debug().Str("operation", op).Str("code", first.Extensions.Code).Str("path", first.Extensions.Path).
			Msg("graphql operation failed")
		return mapError(ctx, op, first)
	}
	if out != nil {
		if err := json.Unmarshal(body.Data, out); err != nil {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
				"decode graphql data", err).WithContext("operation", op)
		}
	}
	return nil
}

// mapError turns a GraphQL error into the closed error set, keyed on extensions.code.
func mapError(ctx context.Context, op string, e gqlError) *platformerrors.PlatformError {
	var (
		errType = platformerrors.ErrorTypePersistence
		reason  = platformerrors.ReasonUnavailable
	)
	switch strings.ToLower(e.Extensions.Code) {
	case "permission-error", "access-denied":
		reason = platformerrors.ReasonDenied
	case "foreign-key-violation":
		errType, reason = platformerrors.ErrorTypeNotFound, platformerrors.ReasonNone
	case "constraint-violation", "validation-failed", "data-exception", "bad-request":
		reason = platformerrors.ReasonRejected
	case "invalid-jwt", "jwt-invalid-claims", "invalid-headers":
		errType, reason = platformerrors.ErrorTypeUnauthorized, platformerrors.ReasonInvalidToken
	}
	return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, errType, reason, e.Message, nil).
		WithContext("operation", op).
		WithContext("graphql_code", e.Extensions.Code)
}
