package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gql "github.com/hasura/go-graphql-client"

	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/domain/retry"
)

var errSubscriptionEnded = errors.New("graphql subscription ended")

// liveQuery keeps one subscription alive over a websocket, redialing with a
// fresh client whenever the connection ends. The backend pushes the full
// result set on every change.
type liveQuery struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}

	mu     sync.Mutex
	client *gql.SubscriptionClient
}

// attach makes client the one Unsubscribe closes. It reports false once the
// query has been cancelled.
func (q *liveQuery) attach(client *gql.SubscriptionClient) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ctx.Err() != nil {
		return false
	}
	q.client = client
	return true
}

func (q *liveQuery) Unsubscribe() {
	q.once.Do(func() {
		q.cancel()
		q.mu.Lock()
		client := q.client
		q.mu.Unlock()
		if client != nil {
			_ = client.Close()
		}
		<-q.done
	})
}

// SubscribeMessages streams the conversation log. The first push carries the
// backlog; later pushes are snapshots reduced to new messages by a Deduper,
// which also spans reconnects.
func (s *Store) SubscribeMessages(ctx context.Context, ownerID, conversationID string, handler conversation.MessageHandler) (conversation.Subscription, error) {
	if _, err := s.Get(ctx, ownerID, conversationID); err != nil {
		return nil, err
	}
	dedupe := conversation.NewDeduper(handler)
	return s.live(ctx, "messages", messagesSubscription, map[string]any{"chatId": conversationID}, func(data []byte) error {
		messages, err := decodeMessages(data)
		if err != nil {
			return err
		}
		dedupe.Deliver(onlyConversation(messages, conversationID))
		return nil
	}), nil
}

// SubscribeDirectory streams the owner's directory, newest activity first.
func (s *Store) SubscribeDirectory(ctx context.Context, ownerID string, handler conversation.DirectoryHandler) (conversation.Subscription, error) {
	return s.live(ctx, "directory", directorySubscription, map[string]any{"owner": ownerID}, func(data []byte) error {
		summaries, err := decodeDirectory(data)
		if err != nil {
			return err
		}
		handler(summaries)
		return nil
	}), nil
}

func onlyConversation(messages []*conversation.Message, conversationID string) []*conversation.Message {
	out := messages[:0]
	for _, m := range messages {
		if m.ConversationID == "" || m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out
}

func (s *Store) live(ctx context.Context, kind, query string, vars map[string]any, onData func([]byte) error) *liveQuery {
	params := map[string]any{"headers": headers(ctx, s.role)}
	log := s.log.With().Str("subscription", kind).Logger()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q := &liveQuery{ctx: runCtx, cancel: cancel, done: make(chan struct{})}

	// session runs one client until its connection ends. A session that was
	// acknowledged by the backend counts as healthy and resets the retry budget.
	session := func() (bool, error) {
		var connected atomic.Bool
		client := gql.NewSubscriptionClient(s.wsURL).
			WithProtocol(gql.GraphQLWS).
			WithConnectionParams(params).
			WithSyncMode(true).
			WithRetryTimeout(s.dialTimeout).
			WithLog(func(args ...interface{}) {
				log.Trace().Msg(fmt.Sprint(args...))
			}).
			OnConnected(func() { connected.Store(true) }).
			OnError(func(_ *gql.SubscriptionClient, err error) error {
				log.Warn().Err(err).Msg("graphql subscription error")
				return err
			})

		_, err := client.Exec(query, vars, func(message []byte, err error) error {
			if err != nil {
				log.Warn().Err(err).Msg("graphql subscription payload error")
				return nil
			}
			if err := onData(message); err != nil {
				log.Error().Err(err).Msg("decode subscription payload")
			}
			return nil
		})
		if err != nil {
			return false, err
		}
		if !q.attach(client) {
			_ = client.Close()
			return false, nil
		}

		runErr := client.Run()
		if runCtx.Err() != nil {
			return false, nil
		}
		if runErr == nil {
			runErr = errSubscriptionEnded
		}
		return connected.Load(), runErr
	}

	go func() {
		defer close(q.done)
		exec := retry.NewExecutor(s.resubscribe).OnRetry(func(attempt int, delay time.Duration, err error) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("graphql subscription dropped, reconnecting")
		})

		for runCtx.Err() == nil {
			healthy := false
			err := exec.Execute(runCtx, func(context.Context, int) error {
				ok, err := session()
				if ok {
					healthy = true
					return nil
				}
				return err
			})
			if runCtx.Err() != nil {
				return
			}
			if !healthy {
				if err != nil {
					log.Error().Err(err).Msg("graphql subscription gave up")
				}
				return
			}

			log.Info().Msg("graphql subscription connection ended, redialing")
			timer := time.NewTimer(s.resubscribe.Delay(1))
			select {
			case <-runCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()

	return q
}

func decodeMessages(data []byte) ([]*conversation.Message, error) {
	var payload struct {
		Messages []messageRow `json:"messages"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return toMessages(payload.Messages), nil
}

func decodeDirectory(data []byte) ([]*conversation.Summary, error) {
	var payload struct {
		Chats []chatRow `json:"chats"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return toSummaries(payload.Chats), nil
}
