// Package conversationrepo stores conversations in PostgreSQL.
package conversationrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/infrastructure/database/entities"
	"github.com/janhq/jan-chat/internal/infrastructure/observability"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

const backendName = "postgres"

// Repository implements conversation.Repository and conversation.MessageRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a conversation repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, conv *conversation.Conversation) (err error) {
	ctx, span := observability.StartStoreSpan(ctx, backendName, "create")
	defer func() { observability.EndSpan(span, err) }()

	if conv.OwnerID == "" {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonRejected, "conversation owner is required", nil)
	}
	now := time.Now().UTC()
	conv.ID = uuid.NewString()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	entity := entities.NewSchemaChat(conv)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return translate(ctx, "failed to create conversation", err)
	}
	*conv = *entity.EtoD()
	return nil
}

func (r *Repository) Get(ctx context.Context, ownerID, id string) (*conversation.Conversation, error) {
	entity, err := r.owned(ctx, r.db.WithContext(ctx), ownerID, id)
	if err != nil {
		return nil, err
	}
	return entity.EtoD(), nil
}

func (r *Repository) Rename(ctx context.Context, ownerID, id, title string) (result *conversation.Conversation, err error) {
	ctx, span := observability.StartStoreSpan(ctx, backendName, "rename")
	defer func() { observability.EndSpan(span, err) }()

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity, err := r.owned(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		entity.Title = title
		entity.UpdatedAt = time.Now().UTC()
		if err := tx.Model(entity).Updates(map[string]any{"title": entity.Title, "updated_at": entity.UpdatedAt}).Error; err != nil {
			return translate(ctx, "failed to rename conversation", err)
		}
		result = entity.EtoD()
		return nil
	})
	return result, err
}

func (r *Repository) Delete(ctx context.Context, ownerID, id string) (err error) {
	ctx, span := observability.StartStoreSpan(ctx, backendName, "delete")
	defer func() { observability.EndSpan(span, err) }()

	if _, err := uuid.Parse(id); err != nil {
		return notFound(ctx, id)
	}
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&entities.Chat{})
	if res.Error != nil {
		return translate(ctx, "failed to delete conversation", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(ctx, id)
	}
	return nil
}

type messageCount struct {
	ChatID string
	Count  int
}

func (r *Repository) ListSummaries(ctx context.Context, ownerID string) (result []*conversation.Summary, err error) {
	ctx, span := observability.StartStoreSpan(ctx, backendName, "list_summaries")
	defer func() { observability.EndSpan(span, err) }()

	db := r.db.WithContext(ctx)
	var chats []entities.Chat
	if err := db.Where("user_id = ?", ownerID).Order("updated_at DESC").Find(&chats).Error; err != nil {
		return nil, translate(ctx, "failed to list conversations", err)
	}
	result = make([]*conversation.Summary, 0, len(chats))
	if len(chats) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}

	var counts []messageCount
	if err := db.Model(&entities.ChatMessage{}).
		Select("chat_id, count(*) AS count").
		Where("chat_id IN ?", ids).
		Group("chat_id").
		Scan(&counts).Error; err != nil {
		return nil, translate(ctx, "failed to count messages", err)
	}
	countByChat := make(map[string]int, len(counts))
	for _, c := range counts {
		countByChat[c.ChatID] = c.Count
	}

	var latest []entities.ChatMessage
	if err := db.Raw(`SELECT DISTINCT ON (chat_id) * FROM chat_message WHERE chat_id IN ? ORDER BY chat_id, created_at DESC, id DESC`, ids).
		Scan(&latest).Error; err != nil {
		return nil, translate(ctx, "failed to load previews", err)
	}
	lastByChat := make(map[string]*conversation.Message, len(latest))
	for i := range latest {
		lastByChat[latest[i].ChatID] = latest[i].EtoD()
	}

	for i := range chats {
		result = append(result, &conversation.Summary{
			Conversation: *chats[i].EtoD(),
			LastMessage:  lastByChat[chats[i].ID],
			MessageCount: countByChat[chats[i].ID],
		})
	}
	return result, nil
}

// Append inserts the message and bumps the chat in one transaction.
func (r *Repository) Append(ctx context.Context, ownerID string, msg *conversation.Message) (err error) {
	ctx, span := observability.StartStoreSpan(ctx, backendName, "append")
	defer func() { observability.EndSpan(span, err) }()

	if !msg.Role.Valid() || msg.Content == "" {
		return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence,
			platformerrors.ReasonRejected, "message requires a role and content", nil)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chat, err := r.owned(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), ownerID, msg.ConversationID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if !now.After(chat.UpdatedAt) {
			now = chat.UpdatedAt.Add(time.Microsecond)
		}
		msg.ID = uuid.NewString()
		msg.CreatedAt = now

		if err := tx.Create(entities.NewSchemaChatMessage(msg)).Error; err != nil {
			return translate(ctx, "failed to append message", err)
		}
		if err := tx.Model(chat).Update("updated_at", now).Error; err != nil {
			return translate(ctx, "failed to bump conversation", err)
		}
		return nil
	})
}

func (r *Repository) ListMessages(ctx context.Context, ownerID, conversationID string) (result []*conversation.Message, err error) {
	ctx, span := observability.StartStoreSpan(ctx, backendName, "list_messages")
	defer func() { observability.EndSpan(span, err) }()

	db := r.db.WithContext(ctx)
	if _, err := r.owned(ctx, db, ownerID, conversationID); err != nil {
		return nil, err
	}
	var rows []entities.ChatMessage
	if err := db.Where("chat_id = ?", conversationID).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, translate(ctx, "failed to list messages", err)
	}
	result = make([]*conversation.Message, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].EtoD())
	}
	return result, nil
}

func (r *Repository) owned(ctx context.Context, db *gorm.DB, ownerID, id string) (*entities.Chat, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(ctx, id)
	}
	var entity entities.Chat
	if err := db.Where("id = ? AND user_id = ?", id, ownerID).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(ctx, id)
		}
		return nil, translate(ctx, "failed to fetch conversation", err)
	}
	return &entity, nil
}

func notFound(ctx context.Context, id string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		"conversation not found", nil).WithContext("conversation_id", id)
}

// translate maps gorm's translated errors onto the closed error set.
func translate(ctx context.Context, message string, err error) error {
	var pe *platformerrors.PlatformError
	if errors.As(err, &pe) {
		return pe
	}
	reason := platformerrors.ReasonUnavailable
	switch {
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, message, err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrInvalidData):
		reason = platformerrors.ReasonRejected
	}
	return platformerrors.NewErrorWithReason(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypePersistence, reason, message, err)
}
