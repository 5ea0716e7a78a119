package websocket

import (
	"context"
	"encoding/json"

	"unimarket/internal/domain/entity"
	"unimarket/internal/infrastructure/realtime"
	"unimarket/pkg/logger"
)

// Outbound frame types produced by the relay bridge.
const (
	FrameTypeMessageInsert      = "message_insert"
	FrameTypeMessageUpdate      = "message_update"
	FrameTypeMessageDelete      = "message_delete"
	FrameTypeConversationChange = "conversation_change"
)

// Bridge subscribes to the change relay and forwards row-change events to
// connected clients: message events to the open conversation room,
// conversation events to each participant for badge counts.
type Bridge struct {
	manager *Manager
	relay   *realtime.Relay
}

func NewBridge(manager *Manager, relay *realtime.Relay) *Bridge {
	return &Bridge{
		manager: manager,
		relay:   relay,
	}
}

// Start consumes relay events until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) {
	messages := b.relay.Subscribe(realtime.TableMessages, "")
	conversations := b.relay.Subscribe(realtime.TableConversations, "")

	go func() {
		defer messages.Close()
		defer conversations.Close()

		for {
			select {
			case event := <-messages.Events():
				b.forwardMessageEvent(event)

			case event := <-conversations.Events():
				b.forwardConversationEvent(event)

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (b *Bridge) forwardMessageEvent(event realtime.ChangeEvent) {
	frameType := FrameTypeMessageInsert
	row := event.NewRow
	switch event.Type {
	case realtime.EventUpdate:
		frameType = FrameTypeMessageUpdate
	case realtime.EventDelete:
		frameType = FrameTypeMessageDelete
		row = event.OldRow
	}

	data, err := json.Marshal(row)
	if err != nil {
		logger.Error("ws bridge: failed to marshal message event: %v", err)
		return
	}

	frame, err := json.Marshal(Frame{Type: frameType, Data: data, Timestamp: now()})
	if err != nil {
		return
	}

	b.manager.SendToConversation(event.Filter, frame)
}

func (b *Bridge) forwardConversationEvent(event realtime.ChangeEvent) {
	row := event.NewRow
	if row == nil {
		row = event.OldRow
	}
	conversation, ok := row.(*entity.Conversation)
	if !ok {
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"event":        event.Type,
		"conversation": conversation,
	})
	if err != nil {
		return
	}

	frame, err := json.Marshal(Frame{Type: FrameTypeConversationChange, Data: data, Timestamp: now()})
	if err != nil {
		return
	}

	// Clients refetch the aggregate on any conversation event rather than
	// merging fields.
	for _, participantID := range conversation.Participants {
		b.manager.SendToUser(participantID, frame)
	}
}
