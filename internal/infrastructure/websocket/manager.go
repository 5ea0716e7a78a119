package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"unimarket/pkg/logger"
)

// Client is one authenticated WebSocket connection.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	// ActiveConversation is the conversation room the client currently has
	// open, if any.
	ActiveConversation string
}

// Manager tracks connected clients and conversation rooms and fans outbound
// frames to them.
type Manager struct {
	clients    map[string]*Client
	rooms      map[string]map[string]struct{} // conversationID -> set of userIDs
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the registration loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				// A reconnect displaces the previous connection; close its
				// send channel so its WritePump unwinds.
				if old, ok := m.clients[client.UserID]; ok && old != client {
					close(old.Send)
					for _, members := range m.rooms {
						delete(members, client.UserID)
					}
				}
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				logger.Info("ws: client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if current, ok := m.clients[client.UserID]; ok && current == client {
					delete(m.clients, client.UserID)
					close(client.Send)
					for _, members := range m.rooms {
						delete(members, client.UserID)
					}
				}
				m.mutex.Unlock()
				logger.Info("ws: client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser delivers a frame to one connected user, dropping it if the
// user's buffer is full.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	m.mutex.RUnlock()

	if !ok {
		return
	}

	select {
	case client.Send <- message:
	default:
		logger.Warn("ws: send buffer full for user %s, dropping frame", userID)
	}
}

// SendToConversation delivers a frame to every member of a conversation room.
func (m *Manager) SendToConversation(conversationID string, message []byte) {
	m.mutex.RLock()
	members := make([]string, 0, len(m.rooms[conversationID]))
	for userID := range m.rooms[conversationID] {
		members = append(members, userID)
	}
	m.mutex.RUnlock()

	for _, userID := range members {
		m.SendToUser(userID, message)
	}
}

// JoinConversation adds a user to a conversation room.
func (m *Manager) JoinConversation(conversationID, userID string) {
	m.mutex.Lock()
	if m.rooms[conversationID] == nil {
		m.rooms[conversationID] = make(map[string]struct{})
	}
	m.rooms[conversationID][userID] = struct{}{}
	m.mutex.Unlock()
}

// LeaveConversation removes a user from a conversation room.
func (m *Manager) LeaveConversation(conversationID, userID string) {
	m.mutex.Lock()
	if members, ok := m.rooms[conversationID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(m.rooms, conversationID)
		}
	}
	m.mutex.Unlock()
}

// InConversation reports whether the user currently has the room open.
func (m *Manager) InConversation(conversationID, userID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.rooms[conversationID][userID]
	return ok
}
