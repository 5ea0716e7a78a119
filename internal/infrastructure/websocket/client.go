package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"unimarket/pkg/logger"
)

// Client frame types.
const (
	FrameTypePing              = "ping"
	FrameTypePong              = "pong"
	FrameTypeJoinConversation  = "join_conversation"
	FrameTypeLeaveConversation = "leave_conversation"
	FrameTypeMarkRead          = "mark_read"
	FrameTypeError             = "error"
)

// Frame is the envelope for every frame in both directions.
type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp"`
}

type joinLeaveData struct {
	ConversationID string `json:"conversation_id"`
}

type markReadData struct {
	ListingID   string `json:"listing_id"`
	OtherUserID string `json:"other_user_id"`
}

// ReadMarker is the slice of the message usecase the socket layer needs for
// client-initiated read marking.
type ReadMarker interface {
	MarkRead(ctx context.Context, callerID, listingID, otherUserID string) error
}

// PresenceRecorder records user activity heartbeats.
type PresenceRecorder interface {
	Touch(ctx context.Context, userID string) error
}

// ReadPump consumes frames from the connection until it closes.
func (c *Client) ReadPump(m *Manager, marker ReadMarker, presence PresenceRecorder) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws: read error for %s: %v", c.UserID, err)
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError(m, "Invalid frame format")
			continue
		}

		// Any inbound frame counts as activity.
		if presence != nil {
			if err := presence.Touch(context.Background(), c.UserID); err != nil {
				logger.Warn("ws: presence touch failed for %s: %v", c.UserID, err)
			}
		}

		switch frame.Type {
		case FrameTypePing:
			c.sendFrame(m, Frame{Type: FrameTypePong, Timestamp: now()})

		case FrameTypeJoinConversation:
			var data joinLeaveData
			if err := json.Unmarshal(frame.Data, &data); err != nil || data.ConversationID == "" {
				c.sendError(m, "Missing conversation_id")
				continue
			}
			m.JoinConversation(data.ConversationID, c.UserID)
			c.ActiveConversation = data.ConversationID

		case FrameTypeLeaveConversation:
			var data joinLeaveData
			if err := json.Unmarshal(frame.Data, &data); err != nil || data.ConversationID == "" {
				c.sendError(m, "Missing conversation_id")
				continue
			}
			m.LeaveConversation(data.ConversationID, c.UserID)
			if c.ActiveConversation == data.ConversationID {
				c.ActiveConversation = ""
			}

		case FrameTypeMarkRead:
			var data markReadData
			if err := json.Unmarshal(frame.Data, &data); err != nil || data.ListingID == "" || data.OtherUserID == "" {
				c.sendError(m, "Missing listing_id or other_user_id")
				continue
			}
			if marker != nil {
				if err := marker.MarkRead(context.Background(), c.UserID, data.ListingID, data.OtherUserID); err != nil {
					logger.Warn("ws: mark_read failed for %s: %v", c.UserID, err)
				}
			}

		default:
			c.sendError(m, "Unknown frame type")
		}
	}
}

// WritePump drains the send channel into the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Warn("ws: write error for %s: %v", c.UserID, err)
			return
		}
	}
}

func (c *Client) sendFrame(m *Manager, frame Frame) {
	raw, err := json.Marshal(frame)
	if err != nil {
		return
	}
	m.SendToUser(c.UserID, raw)
}

func (c *Client) sendError(m *Manager, msg string) {
	data, _ := json.Marshal(map[string]string{"error": msg})
	c.sendFrame(m, Frame{Type: FrameTypeError, Data: data, Timestamp: now()})
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
