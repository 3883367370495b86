package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/janhq/jan-chat/internal/config"
	"github.com/janhq/jan-chat/internal/domain/auth"
	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/domain/interaction"
	"github.com/janhq/jan-chat/internal/domain/retry"
	"github.com/janhq/jan-chat/internal/infrastructure/backend/authclient"
	"github.com/janhq/jan-chat/internal/infrastructure/backend/graphql"
	"github.com/janhq/jan-chat/internal/infrastructure/database"
	"github.com/janhq/jan-chat/internal/infrastructure/memstore"
	"github.com/janhq/jan-chat/internal/infrastructure/repository/conversationrepo"
	"github.com/janhq/jan-chat/internal/infrastructure/responder"
	"github.com/janhq/jan-chat/internal/infrastructure/state"
	"github.com/janhq/jan-chat/pkg/telemetry"
)

func newSanitizer(cfg *config.Config) *telemetry.Sanitizer {
	salt := cfg.PIISalt
	if salt == "" {
		salt = cfg.ServiceName
	}
	return telemetry.NewSanitizer(telemetry.ParsePIILevel(cfg.PIILevel), salt)
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

// newStore selects the conversation store backend. The cleanup closes
// whatever connections the backend opened.
func newStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (conversation.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreGraphQL:
		store := graphql.NewStore(graphql.Config{
			URL:   cfg.GraphQLURL,
			WSURL: cfg.GraphQLWSURL,
			Role:  cfg.GraphQLRole,
		}, log)
		return store, func() {}, nil

	case config.StorePostgres:
		db, err := database.Connect(ctx, newDatabaseConfig(cfg), log)
		if err != nil {
			return nil, nil, err
		}
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			return nil, nil, err
		}
		repo := conversationrepo.NewRepository(db)
		feed, err := conversationrepo.NewFeed(cfg.DatabaseURL, repo, log)
		if err != nil {
			return nil, nil, fmt.Errorf("listen for changes: %w", err)
		}
		cleanup := func() {
			if err := feed.Close(); err != nil {
				log.Error().Err(err).Msg("close change feed")
			}
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return conversationrepo.NewStore(repo, feed), cleanup, nil

	case config.StoreMemory:
		log.Warn().Msg("using in-memory conversation store; data is lost on restart")
		return memstore.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
}

// stateBackend holds the interaction state gate and, on redis, the bus that
// carries state changes between replicas.
type stateBackend struct {
	tracker interaction.Tracker
	bus     interaction.StateBus
}

// newStateBackend selects where interaction states live. Redis shares the
// one-in-flight gate and its state events across replicas.
func newStateBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stateBackend, func(), error) {
	if cfg.StateBackend != config.StateRedis {
		return &stateBackend{tracker: state.Instrument(interaction.NewMemoryTracker())}, func() {}, nil
	}

	executor := retry.NewExecutor(retry.ConnectPolicy()).OnRetry(func(attempt int, delay time.Duration, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("redis not reachable, retrying")
	})
	client, err := retry.Do(ctx, executor, func(ctx context.Context, _ int) (*redis.Client, error) {
		return state.NewRedisClient(ctx, cfg.RedisURL)
	})
	if err != nil {
		return nil, nil, err
	}
	bus, err := state.NewRedisStateBus(ctx, client, log)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	backend := &stateBackend{
		tracker: state.Instrument(state.NewRedisTracker(client, cfg.StateLockTTL(), log)),
		bus:     bus,
	}
	cleanup := func() {
		_ = bus.Close()
		_ = client.Close()
	}
	return backend, cleanup, nil
}

func newResponder(cfg *config.Config, log zerolog.Logger) *responder.Client {
	return responder.NewClient(responder.Config{URL: cfg.ResponderURL, Secret: cfg.ResponderSecret}, log)
}

func newInteractionService(
	cfg *config.Config,
	store conversation.Store,
	responderClient *responder.Client,
	states *stateBackend,
	sanitizer *telemetry.Sanitizer,
	log zerolog.Logger,
) *interaction.ServiceImpl {
	return interaction.NewService(store, responderClient, states.tracker, interaction.Options{
		Scope:            interaction.Scope(cfg.InteractionScope),
		ResponderTimeout: cfg.ResponderTimeout,
		StateBus:         states.bus,
	}, sanitizer, log)
}

func newAuthService(cfg *config.Config, sanitizer *telemetry.Sanitizer, log zerolog.Logger) *auth.Service {
	return auth.NewService(authclient.NewClient(cfg.AuthURL, log), cfg.AuthRedirectURL, sanitizer, log)
}
