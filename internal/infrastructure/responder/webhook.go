// Package responder calls the external AI webhook that produces assistant replies.
package responder

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/janhq/jan-chat/internal/domain/interaction"
	"github.com/janhq/jan-chat/internal/infrastructure/metrics"
	"github.com/janhq/jan-chat/internal/infrastructure/observability"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

const (
	HeaderSecret    = "X-Webhook-Secret"
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderChatID    = "X-Jan-Chat-ID"

	maxReplyBody = 1 << 20
)

// WebhookInput is the payload the responder receives.
type WebhookInput struct {
	Message string `json:"message" jsonschema:"minLength=1"`
	ChatID  string `json:"chat_id" jsonschema:"minLength=1"`
}

// WebhookRequest is the POST body.
type WebhookRequest struct {
	Input WebhookInput `json:"input"`
}

// WebhookReply is the only accepted response shape.
type WebhookReply struct {
	Message *string `json:"message" validate:"required" jsonschema:"minLength=1"`
}

// Config holds the webhook endpoint and its shared secret.
type Config struct {
	URL    string
	Secret string
}

// Client implements interaction.Responder over HTTP. It never retries;
// the caller's context bounds the call.
type Client struct {
	httpClient *resty.Client
	cfg        Config
	validate   *validator.Validate
	now        func() time.Time
	log        zerolog.Logger
}

// NewClient creates a Resty-backed responder client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	return &Client{
		httpClient: resty.New().
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "jan-chat/1.0").
			SetRetryCount(0),
		cfg:      cfg,
		validate: validator.New(),
		now:      time.Now,
		log:      log.With().Str("component", "ai-responder").Logger(),
	}
}

// Respond posts the user message and returns the validated reply text.
func (c *Client) Respond(ctx context.Context, req interaction.ResponderRequest) (string, error) {
	ctx, span := observability.StartResponderSpan(ctx, req.ConversationID)
	defer span.End()

	body, err := json.Marshal(WebhookRequest{Input: WebhookInput{Message: req.Message, ChatID: req.ConversationID}})
	if err != nil {
		return "", fmt.Errorf("marshal webhook payload: %w", err)
	}

	request := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetHeader(HeaderChatID, req.ConversationID)
	if c.cfg.Secret != "" {
		ts := strconv.FormatInt(c.now().Unix(), 10)
		request.SetHeader(HeaderSecret, c.cfg.Secret)
		request.SetHeader(HeaderTimestamp, ts)
		request.SetHeader(HeaderSignature, Sign(c.cfg.Secret, ts, body))
	}

	start := time.Now()
	resp, err := request.Post(c.cfg.URL)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		reason := platformerrors.ReasonUnreachable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = platformerrors.ReasonTimeout
		}
		metrics.RecordResponderCall(string(reason), elapsed)
		span.SetStatus(codes.Error, string(reason))
		return "", c.fail(ctx, reason, "AI responder request failed", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	metrics.RecordResponderCall(strconv.Itoa(resp.StatusCode()), elapsed)

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		span.SetStatus(codes.Error, "bad status")
		return "", c.fail(ctx, platformerrors.ReasonBadStatus, fmt.Sprintf("AI responder returned status %d", resp.StatusCode()), nil).
			WithContext("status", resp.StatusCode())
	}

	raw := resp.Body()
	if len(raw) > maxReplyBody {
		return "", c.fail(ctx, platformerrors.ReasonMalformed, "AI responder reply too large", nil)
	}

	var reply WebhookReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		span.SetStatus(codes.Error, "malformed")
		return "", c.fail(ctx, platformerrors.ReasonMalformed, "AI responder reply is not a JSON object", err)
	}
	if err := c.validate.Struct(reply); err != nil {
		span.SetStatus(codes.Error, "malformed")
		return "", c.fail(ctx, platformerrors.ReasonMalformed, "AI responder reply has no message field", err)
	}

	message := strings.TrimSpace(*reply.Message)
	if message == "" {
		span.SetStatus(codes.Error, "empty")
		return "", c.fail(ctx, platformerrors.ReasonEmptyReply, "AI responder returned an empty message", nil)
	}

	span.SetStatus(codes.Ok, "")
	return message, nil
}

func (c *Client) fail(ctx context.Context, reason platformerrors.Reason, message string, err error) *platformerrors.PlatformError {
	c.log.Warn().Err(err).Str("reason", string(reason)).Msg(message)
	return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeAIResponse, reason, message, err)
}

// Sign returns the signature header value for a timestamp and body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign in constant time.
func Verify(secret, timestamp string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, timestamp, body)), []byte(signature))
}

var _ interaction.Responder = (*Client)(nil)
