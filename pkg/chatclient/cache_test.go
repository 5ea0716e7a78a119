package chatclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unimarket/internal/domain/entity"
	"unimarket/internal/infrastructure/realtime"
	"unimarket/pkg/errors"
)

type fakeServer struct {
	nextID        int
	failSend      bool
	failEdit      bool
	failDelete    bool
	markReadCalls int
	onSend        func()
}

func (s *fakeServer) SendMessage(ctx context.Context, listingID, receiverID, body, clientID string) (*entity.Message, error) {
	if s.onSend != nil {
		s.onSend()
	}
	if s.failSend {
		return nil, errors.Transport("server unreachable", nil)
	}
	s.nextID++
	now := time.Now()
	return &entity.Message{
		ID:         "srv-" + string(rune('0'+s.nextID)),
		ClientID:   clientID,
		ListingID:  listingID,
		SenderID:   "viewer",
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *fakeServer) EditMessage(ctx context.Context, messageID, body string) (*entity.Message, error) {
	if s.failEdit {
		return nil, errors.Forbidden("not yours", nil)
	}
	return &entity.Message{ID: messageID, Body: body, Edited: true}, nil
}

func (s *fakeServer) DeleteMessage(ctx context.Context, messageID string) error {
	if s.failDelete {
		return errors.Forbidden("not yours", nil)
	}
	return nil
}

func (s *fakeServer) MarkRead(ctx context.Context) error {
	s.markReadCalls++
	return nil
}

func inboundInsert(id, body string) realtime.ChangeEvent {
	return realtime.ChangeEvent{
		Table: realtime.TableMessages,
		Type:  realtime.EventInsert,
		NewRow: &entity.Message{
			ID:         id,
			ListingID:  "bike-1",
			SenderID:   "other",
			ReceiverID: "viewer",
			Body:       body,
			CreatedAt:  time.Now(),
		},
	}
}

func TestSendConfirmReplacesPendingEntry(t *testing.T) {
	server := &fakeServer{}
	cache := NewCache("viewer", "bike-1", "other", server)

	// While the request is in flight the pending entry is already visible.
	server.onSend = func() {
		messages := cache.Messages()
		require.Len(t, messages, 1)
		assert.Empty(t, messages[0].ID)
		assert.NotEmpty(t, messages[0].ClientID)
	}

	confirmed, err := cache.Send(context.Background(), "hello")
	require.NoError(t, err)

	messages := cache.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, confirmed.ID, messages[0].ID)
	assert.Equal(t, confirmed.ClientID, messages[0].ClientID)
}

func TestSendFailureRemovesGhost(t *testing.T) {
	server := &fakeServer{failSend: true}
	cache := NewCache("viewer", "bike-1", "other", server)

	_, err := cache.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Empty(t, cache.Messages())
}

func TestApplyDedupsOwnEcho(t *testing.T) {
	server := &fakeServer{}
	cache := NewCache("viewer", "bike-1", "other", server)

	confirmed, err := cache.Send(context.Background(), "hello")
	require.NoError(t, err)

	// The relay replays our own insert; correlation id wins over append.
	echo := *confirmed
	cache.Apply(realtime.ChangeEvent{
		Table:  realtime.TableMessages,
		Type:   realtime.EventInsert,
		NewRow: &echo,
	})

	assert.Len(t, cache.Messages(), 1)
}

func TestApplyDuplicateAndUpdateEvents(t *testing.T) {
	cache := NewCache("viewer", "bike-1", "other", &fakeServer{})

	cache.Apply(inboundInsert("m1", "hi"))
	cache.Apply(inboundInsert("m1", "hi")) // redelivery
	require.Len(t, cache.Messages(), 1)

	update := inboundInsert("m1", "hi edited")
	update.Type = realtime.EventUpdate
	update.NewRow.(*entity.Message).Edited = true
	cache.Apply(update)

	messages := cache.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "hi edited", messages[0].Body)
	assert.True(t, messages[0].Edited)
}

func TestApplySoftDeleteHidesRow(t *testing.T) {
	cache := NewCache("viewer", "bike-1", "other", &fakeServer{})

	cache.Apply(inboundInsert("m1", "soon gone"))
	require.Len(t, cache.Messages(), 1)

	deleted := inboundInsert("m1", "soon gone")
	deleted.Type = realtime.EventUpdate
	deleted.NewRow.(*entity.Message).Deleted = true
	cache.Apply(deleted)

	assert.Empty(t, cache.Messages())
}

func TestApplyHardDeleteRemovesRow(t *testing.T) {
	cache := NewCache("viewer", "bike-1", "other", &fakeServer{})

	cache.Apply(inboundInsert("m1", "bye"))
	cache.Apply(realtime.ChangeEvent{
		Table:  realtime.TableMessages,
		Type:   realtime.EventDelete,
		OldRow: &entity.Message{ID: "m1"},
	})

	assert.Empty(t, cache.Messages())
	assert.Zero(t, cache.Unread())
}

func TestEditRevertsOnRejection(t *testing.T) {
	server := &fakeServer{}
	cache := NewCache("viewer", "bike-1", "other", server)

	confirmed, err := cache.Send(context.Background(), "original")
	require.NoError(t, err)

	server.failEdit = true
	err = cache.Edit(context.Background(), confirmed.ID, "tampered")
	require.Error(t, err)

	messages := cache.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "original", messages[0].Body)
	assert.False(t, messages[0].Edited)
}

func TestDeleteRevertsOnRejection(t *testing.T) {
	server := &fakeServer{}
	cache := NewCache("viewer", "bike-1", "other", server)

	confirmed, err := cache.Send(context.Background(), "keep me")
	require.NoError(t, err)

	server.failDelete = true
	err = cache.Delete(context.Background(), confirmed.ID)
	require.Error(t, err)
	assert.Len(t, cache.Messages(), 1)
}

func TestMarkReadGatedOnVisibility(t *testing.T) {
	server := &fakeServer{}
	cache := NewCache("viewer", "bike-1", "other", server)

	// Hidden tab: incoming messages pile up unread.
	cache.Apply(inboundInsert("m1", "one"))
	cache.Apply(inboundInsert("m2", "two"))
	assert.Zero(t, server.markReadCalls)
	assert.Equal(t, 2, cache.Unread())

	// Tab becomes visible: one mark-read, badges clear.
	require.NoError(t, cache.SetVisible(context.Background(), true))
	assert.Equal(t, 1, server.markReadCalls)
	assert.Zero(t, cache.Unread())

	// Visible tab: the next inbound message is read immediately.
	cache.Apply(inboundInsert("m3", "three"))
	assert.Equal(t, 2, server.markReadCalls)
	assert.Zero(t, cache.Unread())
}
