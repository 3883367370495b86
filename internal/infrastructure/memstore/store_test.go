package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-chat/internal/domain/conversation"
	"github.com/janhq/jan-chat/internal/utils/platformerrors"
)

func newConversation(t *testing.T, s *Store, owner, title string) *conversation.Conversation {
	t.Helper()
	conv := &conversation.Conversation{OwnerID: owner, Title: title}
	require.NoError(t, s.Create(context.Background(), conv))
	return conv
}

func TestAppendBumpsUpdatedAtAndSummary(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := newConversation(t, s, "alice", "first")
	second := newConversation(t, s, "alice", "second")

	summaries, err := s.ListSummaries(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, second.ID, summaries[0].ID)

	msg := &conversation.Message{ConversationID: first.ID, Role: conversation.RoleUser, Content: "hi"}
	require.NoError(t, s.Append(ctx, "alice", msg))
	assert.NotEmpty(t, msg.ID)

	summaries, err = s.ListSummaries(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, summaries[0].ID)
	assert.Equal(t, 1, summaries[0].MessageCount)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "hi", summaries[0].LastMessage.Content)
}

func TestOwnershipIsEnforced(t *testing.T) {
	ctx := context.Background()
	s := New()
	conv := newConversation(t, s, "alice", "private")

	_, err := s.Get(ctx, "mallory", conv.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	err = s.Append(ctx, "mallory", &conversation.Message{ConversationID: conv.ID, Role: conversation.RoleUser, Content: "x"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	summaries, err := s.ListSummaries(ctx, "mallory")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestAppendRejectsInvalidMessages(t *testing.T) {
	s := New()
	conv := newConversation(t, s, "alice", "x")

	err := s.Append(context.Background(), "alice", &conversation.Message{ConversationID: conv.ID, Role: "system", Content: "x"})
	assert.True(t, platformerrors.HasReason(err, platformerrors.ReasonRejected))
}

func TestSubscribeMessagesReplaysThenStreams(t *testing.T) {
	ctx := context.Background()
	s := New()
	c1 := newConversation(t, s, "alice", "one")
	c2 := newConversation(t, s, "alice", "two")
	require.NoError(t, s.Append(ctx, "alice", &conversation.Message{ConversationID: c1.ID, Role: conversation.RoleUser, Content: "before"}))

	var got []string
	sub, err := s.SubscribeMessages(ctx, "alice", c1.ID, func(msg *conversation.Message) {
		got = append(got, msg.Content)
	})
	require.NoError(t, err)

	require.NoError(t, s.Append(ctx, "alice", &conversation.Message{ConversationID: c2.ID, Role: conversation.RoleUser, Content: "elsewhere"}))
	require.NoError(t, s.Append(ctx, "alice", &conversation.Message{ConversationID: c1.ID, Role: conversation.RoleAssistant, Content: "after"}))

	sub.Unsubscribe()
	require.NoError(t, s.Append(ctx, "alice", &conversation.Message{ConversationID: c1.ID, Role: conversation.RoleUser, Content: "late"}))

	assert.Equal(t, []string{"before", "after"}, got)
}

func TestSubscribeDirectoryPushesOrderedSnapshots(t *testing.T) {
	ctx := context.Background()
	s := New()
	older := newConversation(t, s, "alice", "older")

	var snapshots [][]*conversation.Summary
	sub, err := s.SubscribeDirectory(ctx, "alice", func(summaries []*conversation.Summary) {
		snapshots = append(snapshots, summaries)
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	newer := newConversation(t, s, "alice", "newer")
	newConversation(t, s, "bob", "not mine")

	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[0], 1)
	require.Len(t, snapshots[1], 2)
	assert.Equal(t, newer.ID, snapshots[1][0].ID)
	assert.Equal(t, older.ID, snapshots[1][1].ID)
}

func TestTickIsStrictlyIncreasing(t *testing.T) {
	s := New()
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	a := newConversation(t, s, "alice", "a")
	b := newConversation(t, s, "alice", "b")
	assert.True(t, b.UpdatedAt.After(a.UpdatedAt))
}

func TestDeleteRemovesMessages(t *testing.T) {
	ctx := context.Background()
	s := New()
	conv := newConversation(t, s, "alice", "gone")
	require.NoError(t, s.Append(ctx, "alice", &conversation.Message{ConversationID: conv.ID, Role: conversation.RoleUser, Content: "x"}))

	require.NoError(t, s.Delete(ctx, "alice", conv.ID))
	_, err := s.ListMessages(ctx, "alice", conv.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}
