// Package chatclient holds the client-side message cache used by frontends:
// optimistic local writes keyed by correlation id, reconciled against server
// confirmations and realtime change events.
package chatclient

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"unimarket/internal/domain/entity"
	"unimarket/internal/infrastructure/realtime"
)

// Server is the remote chat surface the cache drives. In production it is an
// HTTP client over /v1/chats; tests substitute a fake.
type Server interface {
	SendMessage(ctx context.Context, listingID, receiverID, body, clientID string) (*entity.Message, error)
	EditMessage(ctx context.Context, messageID, body string) (*entity.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
	MarkRead(ctx context.Context) error
}

// Cache is the optimistic message list for one open conversation.
type Cache struct {
	viewerID    string
	listingID   string
	otherUserID string
	server      Server

	visible  bool
	messages []*entity.Message
}

func NewCache(viewerID, listingID, otherUserID string, server Server) *Cache {
	return &Cache{
		viewerID:    viewerID,
		listingID:   listingID,
		otherUserID: otherUserID,
		server:      server,
	}
}

// Send inserts a pending entry immediately, then confirms it against the
// server. The pending entry is replaced in place on success and removed on
// failure so no ghost message survives a failed send.
func (c *Cache) Send(ctx context.Context, body string) (*entity.Message, error) {
	clientID := uuid.New().String()
	now := time.Now()

	pending := &entity.Message{
		ClientID:   clientID,
		ListingID:  c.listingID,
		SenderID:   c.viewerID,
		ReceiverID: c.otherUserID,
		Body:       body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c.messages = append(c.messages, pending)

	confirmed, err := c.server.SendMessage(ctx, c.listingID, c.otherUserID, body, clientID)
	if err != nil {
		c.removeByClientID(clientID)
		return nil, err
	}

	c.replaceByClientID(clientID, confirmed)
	return confirmed, nil
}

// Edit applies the new body locally and reverts to the previous snapshot if
// the server rejects it.
func (c *Cache) Edit(ctx context.Context, messageID, body string) error {
	idx := c.indexByID(messageID)
	if idx < 0 {
		return c.serverEdit(ctx, messageID, body)
	}

	snapshot := *c.messages[idx]
	c.messages[idx].Body = body
	c.messages[idx].Edited = true
	c.messages[idx].UpdatedAt = time.Now()

	if err := c.serverEdit(ctx, messageID, body); err != nil {
		restored := snapshot
		c.messages[idx] = &restored
		return err
	}
	return nil
}

func (c *Cache) serverEdit(ctx context.Context, messageID, body string) error {
	_, err := c.server.EditMessage(ctx, messageID, body)
	return err
}

// Delete hides the message locally and reverts if the server rejects it.
func (c *Cache) Delete(ctx context.Context, messageID string) error {
	idx := c.indexByID(messageID)
	if idx < 0 {
		return c.server.DeleteMessage(ctx, messageID)
	}

	snapshot := *c.messages[idx]
	c.messages[idx].Deleted = true

	if err := c.server.DeleteMessage(ctx, messageID); err != nil {
		restored := snapshot
		c.messages[idx] = &restored
		return err
	}
	return nil
}

// Apply folds one realtime change event into the cache. Events may arrive
// out of order or more than once; rows are deduplicated by server id and by
// correlation id so a subscriber's own optimistic entries are not doubled.
func (c *Cache) Apply(event realtime.ChangeEvent) {
	if event.Table != realtime.TableMessages {
		return
	}

	switch event.Type {
	case realtime.EventInsert, realtime.EventUpdate:
		row, ok := event.NewRow.(*entity.Message)
		if !ok || row == nil {
			return
		}
		c.upsert(row)

	case realtime.EventDelete:
		row, ok := event.OldRow.(*entity.Message)
		if !ok || row == nil {
			return
		}
		if idx := c.indexByID(row.ID); idx >= 0 {
			c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
		}
	}
}

func (c *Cache) upsert(row *entity.Message) {
	if row.ClientID != "" {
		if idx := c.indexByClientID(row.ClientID); idx >= 0 {
			c.mergeAt(idx, row)
			return
		}
	}
	if idx := c.indexByID(row.ID); idx >= 0 {
		c.mergeAt(idx, row)
		return
	}

	copied := *row
	c.messages = append(c.messages, &copied)
	sort.SliceStable(c.messages, func(i, j int) bool {
		return c.messages[i].CreatedAt.Before(c.messages[j].CreatedAt)
	})

	c.maybeAutoMarkRead(&copied)
}

func (c *Cache) mergeAt(idx int, row *entity.Message) {
	copied := *row
	if copied.ClientID == "" {
		copied.ClientID = c.messages[idx].ClientID
	}
	c.messages[idx] = &copied
}

// maybeAutoMarkRead marks the conversation read when a message addressed to
// the viewer lands while the conversation is actually on screen. Background
// tabs must not clear unread badges. The call fires immediately rather than
// on a render-settle debounce; MarkRead is idempotent, so a UI embedding the
// cache can layer its own delay without changing the outcome.
func (c *Cache) maybeAutoMarkRead(row *entity.Message) {
	if !c.visible || row.ReceiverID != c.viewerID || row.Read {
		return
	}
	if err := c.server.MarkRead(context.Background()); err == nil {
		c.markLocalRead()
	}
}

// SetVisible flips the visibility gate. Becoming visible with unread inbound
// messages triggers an immediate mark-read.
func (c *Cache) SetVisible(ctx context.Context, visible bool) error {
	c.visible = visible
	if !visible || c.unreadInbound() == 0 {
		return nil
	}
	if err := c.server.MarkRead(ctx); err != nil {
		return err
	}
	c.markLocalRead()
	return nil
}

// Messages returns the renderable list: ordered by creation time, deleted
// rows filtered out.
func (c *Cache) Messages() []*entity.Message {
	out := make([]*entity.Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Deleted {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Unread counts non-deleted inbound messages the viewer has not read.
func (c *Cache) Unread() int {
	return c.unreadInbound()
}

func (c *Cache) unreadInbound() int {
	count := 0
	for _, m := range c.messages {
		if !m.Deleted && !m.Read && m.ReceiverID == c.viewerID {
			count++
		}
	}
	return count
}

func (c *Cache) markLocalRead() {
	now := time.Now()
	for _, m := range c.messages {
		if m.ReceiverID == c.viewerID && !m.Read {
			m.Read = true
			seen := now
			m.SeenAt = &seen
		}
	}
}

func (c *Cache) indexByID(id string) int {
	if id == "" {
		return -1
	}
	for i, m := range c.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cache) indexByClientID(clientID string) int {
	for i, m := range c.messages {
		if m.ClientID == clientID {
			return i
		}
	}
	return -1
}

func (c *Cache) replaceByClientID(clientID string, confirmed *entity.Message) {
	idx := c.indexByClientID(clientID)
	if idx < 0 {
		return
	}
	copied := *confirmed
	if copied.ClientID == "" {
		copied.ClientID = clientID
	}
	c.messages[idx] = &copied
}

func (c *Cache) removeByClientID(clientID string) {
	idx := c.indexByClientID(clientID)
	if idx < 0 {
		return
	}
	c.messages = append(c.messages[:idx], c.messages[idx+1:]...)
}
