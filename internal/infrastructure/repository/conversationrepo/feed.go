package conversationrepo

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/infrastructure/database"
)

// loader re-reads the rows a notification points at.
type loader interface {
	ListMessages(ctx context.Context, ownerID, conversationID string) ([]*conversation.Message, error)
	ListSummaries(ctx context.Context, ownerID string) ([]*conversation.Summary, error)
}

// event is the trigger's NOTIFY payload.
type event struct {
	Table  string `json:"table"`
	Op     string `json:"op"`
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

type messageWatcher struct {
	mu     sync.Mutex
	owner  string
	chatID string
	dedupe *conversation.Deduper
}

type directoryWatcher struct {
	mu      sync.Mutex
	owner   string
	handler conversation.DirectoryHandler
}

// Feed implements conversation.Feed on top of LISTEN/NOTIFY. Each
// notification triggers a re-read; deliveries are deduplicated per watcher.
type Feed struct {
	loader loader
	log    zerolog.Logger

	mu       sync.Mutex
	next     int
	messages map[string]map[int]*messageWatcher
	dirs     map[string]map[int]*directoryWatcher

	listener *pq.Listener
	stop     chan struct{}
	done     chan struct{}
}

func newFeed(l loader, log zerolog.Logger) *Feed {
	return &Feed{
		loader:   l,
		log:      log.With().Str("component", "pg-feed").Logger(),
		messages: make(map[string]map[int]*messageWatcher),
		dirs:     make(map[string]map[int]*directoryWatcher),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// NewFeed listens on the events channel using its own connection.
func NewFeed(dsn string, l loader, log zerolog.Logger) (*Feed, error) {
	f := newFeed(l, log)
	f.listener = pq.NewListener(dsn, 500*time.Millisecond, 30*time.Second, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			f.log.Warn().Err(err).Msg("notification listener connection lost")
		case pq.ListenerEventReconnected:
			f.log.Info().Msg("notification listener reconnected")
		}
	})
	if err := f.listener.Listen(database.EventsChannel); err != nil {
		_ = f.listener.Close()
		return nil, err
	}
	go f.run()
	return f, nil
}

func (f *Feed) run() {
	defer close(f.done)
	ping := time.NewTicker(60 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-f.stop:
			return
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// Notifications may have been lost while reconnecting.
				f.resyncAll()
				continue
			}
			f.dispatch(n.Extra)
		case <-ping.C:
			if err := f.listener.Ping(); err != nil {
				f.log.Warn().Err(err).Msg("notification listener ping failed")
			}
		}
	}
}

// Close stops listening.
func (f *Feed) Close() error {
	close(f.stop)
	err := f.listener.Close()
	<-f.done
	return err
}

func (f *Feed) dispatch(payload string) {
	var ev event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		f.log.Error().Err(err).Str("payload", payload).Msg("malformed change notification")
		return
	}

	switch ev.Table {
	case "chat_message":
		for _, w := range f.messageWatchers(ev.ChatID) {
			f.refreshMessages(w)
		}
	case "chat":
		for _, w := range f.directoryWatchers(ev.UserID) {
			f.refreshDirectory(w)
		}
	}
}

func (f *Feed) resyncAll() {
	f.mu.Lock()
	var msgs []*messageWatcher
	for _, set := range f.messages {
		for _, w := range set {
			msgs = append(msgs, w)
		}
	}
	var dirs []*directoryWatcher
	for _, set := range f.dirs {
		for _, w := range set {
			dirs = append(dirs, w)
		}
	}
	f.mu.Unlock()

	for _, w := range msgs {
		f.refreshMessages(w)
	}
	for _, w := range dirs {
		f.refreshDirectory(w)
	}
}

func (f *Feed) refreshMessages(w *messageWatcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	messages, err := f.loader.ListMessages(context.Background(), w.owner, w.chatID)
	if err != nil {
		f.log.Warn().Err(err).Str("conversation_id", w.chatID).Msg("reload messages after notification")
		return
	}
	w.dedupe.Deliver(messages)
}

func (f *Feed) refreshDirectory(w *directoryWatcher) {
	w.mu.Lock()
	defer w.mu.Unlock()
	summaries, err := f.loader.ListSummaries(context.Background(), w.owner)
	if err != nil {
		f.log.Warn().Err(err).Msg("reload directory after notification")
		return
	}
	w.handler(summaries)
}

func (f *Feed) messageWatchers(chatID string) []*messageWatcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*messageWatcher, 0, len(f.messages[chatID]))
	for _, w := range f.messages[chatID] {
		out = append(out, w)
	}
	return out
}

func (f *Feed) directoryWatchers(owner string) []*directoryWatcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*directoryWatcher, 0, len(f.dirs[owner]))
	for _, w := range f.dirs[owner] {
		out = append(out, w)
	}
	return out
}

// SubscribeMessages replays the stored log, then forwards new messages. The
// watcher is registered before the backlog is read so no append is missed.
func (f *Feed) SubscribeMessages(ctx context.Context, ownerID, conversationID string, handler conversation.MessageHandler) (conversation.Subscription, error) {
	w := &messageWatcher{owner: ownerID, chatID: conversationID, dedupe: conversation.NewDeduper(handler)}
	w.mu.Lock()
	defer w.mu.Unlock()

	f.mu.Lock()
	id := f.next
	f.next++
	if f.messages[conversationID] == nil {
		f.messages[conversationID] = make(map[int]*messageWatcher)
	}
	f.messages[conversationID][id] = w
	f.mu.Unlock()

	unsubscribe := unsubscribeFunc(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.messages[conversationID], id)
		if len(f.messages[conversationID]) == 0 {
			delete(f.messages, conversationID)
		}
	})

	backlog, err := f.loader.ListMessages(ctx, ownerID, conversationID)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	w.dedupe.Deliver(backlog)
	return unsubscribe, nil
}

// SubscribeDirectory sends the current directory, then a fresh one on every change.
func (f *Feed) SubscribeDirectory(ctx context.Context, ownerID string, handler conversation.DirectoryHandler) (conversation.Subscription, error) {
	w := &directoryWatcher{owner: ownerID, handler: handler}
	w.mu.Lock()
	defer w.mu.Unlock()

	f.mu.Lock()
	id := f.next
	f.next++
	if f.dirs[ownerID] == nil {
		f.dirs[ownerID] = make(map[int]*directoryWatcher)
	}
	f.dirs[ownerID][id] = w
	f.mu.Unlock()

	unsubscribe := unsubscribeFunc(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.dirs[ownerID], id)
		if len(f.dirs[ownerID]) == 0 {
			delete(f.dirs, ownerID)
		}
	})

	snapshot, err := f.loader.ListSummaries(ctx, ownerID)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	handler(snapshot)
	return unsubscribe, nil
}

type unsubscribeFunc func()

func (u unsubscribeFunc) Unsubscribe() { u() }

var _ conversation.Feed = (*Feed)(nil)
