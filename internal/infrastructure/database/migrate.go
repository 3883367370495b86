package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/janhq/jan-chat/internal/infrastructure/database/entities"
)

// EventsChannel is the LISTEN/NOTIFY channel carrying row changes.
const EventsChannel = "jan_chat_events"

const notifyFunction = `
CREATE OR REPLACE FUNCTION jan_chat_notify() RETURNS trigger AS $$
DECLARE
  rec RECORD;
  payload TEXT;
BEGIN
  IF TG_OP = 'DELETE' THEN
    rec := OLD;
  ELSE
    rec := NEW;
  END IF;
  IF TG_TABLE_NAME = 'chat' THEN
    payload := json_build_object('table', TG_TABLE_NAME, 'op', TG_OP, 'chat_id', rec.id, 'user_id', rec.user_id)::text;
  ELSE
    payload := json_build_object('table', TG_TABLE_NAME, 'op', TG_OP, 'chat_id', rec.chat_id)::text;
  END IF;
  PERFORM pg_notify('` + EventsChannel + `', payload);
  RETURN rec;
END;
$$ LANGUAGE plpgsql`

// AutoMigrate applies the chat schema and the change-notification triggers.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(&entities.Chat{}, &entities.ChatMessage{}); err != nil {
		return err
	}

	if err := tx.Exec(notifyFunction).Error; err != nil {
		return fmt.Errorf("create notify function: %w", err)
	}
	for _, table := range []string{"chat", "chat_message"} {
		trigger := table + "_notify"
		if err := tx.Exec(fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s", trigger, table)).Error; err != nil {
			return fmt.Errorf("drop trigger %s: %w", trigger, err)
		}
		stmt := fmt.Sprintf("CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s FOR EACH ROW EXECUTE FUNCTION jan_chat_notify()", trigger, table)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create trigger %s: %w", trigger, err)
		}
	}

	log.Info().Msg("database schema up to date")
	return nil
}
