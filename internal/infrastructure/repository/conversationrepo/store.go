package conversationrepo

import (
	"github.com/janhq/jan-chat/internal/domain/conversation"
)

// Store is the PostgreSQL conversation.Store.
type Store struct {
	*Repository
	*Feed
}

func NewStore(repo *Repository, feed *Feed) *Store {
	return &Store{Repository: repo, Feed: feed}
}

var _ conversation.Store = (*Store)(nil)
