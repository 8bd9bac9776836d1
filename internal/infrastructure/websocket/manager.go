package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/internal/usecase"
	"studyhub/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 64
)

type MessageService interface {
	SendMessage(ctx context.Context, userID string, input usecase.SendMessageInput) (string, error)
	SubscribeMessages(ctx context.Context, userID string, ref entity.ChatRef, fn func([]*entity.Message)) (repository.Subscription, error)
	MarkSeen(ctx context.Context, userID string, ref entity.ChatRef, messageID string) error
}

type DoubtService interface {
	WatchRatingPrompt(ctx context.Context, studentID, doubtID string, prompt func(*entity.Doubt)) (repository.Subscription, error)
}

type PresenceService interface {
	Activate(ctx context.Context, uid string) (*usecase.PresenceSession, error)
}

// Client is one WebSocket connection. A user may hold several.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	subs     map[string]repository.Subscription
	presence *usecase.PresenceSession
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		subs:   make(map[string]repository.Subscription),
	}
}

// enqueue never blocks; a full buffer drops the frame.
func (c *Client) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.Send <- b:
		return true
	case <-c.done:
		return false
	default:
		logger.Warn("WebSocket: send buffer full for %s, dropping frame", c.UserID)
		return false
	}
}

func (c *Client) addSubscription(key string, sub repository.Subscription) {
	c.mu.Lock()
	old := c.subs[key]
	c.subs[key] = sub
	c.mu.Unlock()
	if old != nil {
		old.Detach()
	}
}

func (c *Client) removeSubscription(key string) bool {
	c.mu.Lock()
	sub, ok := c.subs[key]
	delete(c.subs, key)
	c.mu.Unlock()
	if ok {
		sub.Detach()
	}
	return ok
}

// Subscriptions returns the keys of the client's live streams.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.subs))
	for k := range c.subs {
		keys = append(keys, k)
	}
	return keys
}

// close releases every listener and the presence session. Safe to repeat.
func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)

		c.mu.Lock()
		subs := c.subs
		c.subs = make(map[string]repository.Subscription)
		c.mu.Unlock()
		for _, sub := range subs {
			sub.Detach()
		}

		if c.presence != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.presence.Deactivate(ctx); err != nil {
				logger.Warn("WebSocket: failed to deactivate presence for %s: %v", c.UserID, err)
			}
		}
	})
}

// Manager tracks every live connection.
type Manager struct {
	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	stopped    chan struct{}
	mutex      sync.RWMutex

	messages MessageService
	doubts   DoubtService
	presence PresenceService
}

func NewManager(messages MessageService, doubts DoubtService, presence PresenceService) *Manager {
	return &Manager{
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		messages:   messages,
		doubts:     doubts,
		presence:   presence,
	}
}

// Start runs the registration loop until ctx ends, then closes every client.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if m.clients[client.UserID] == nil {
					m.clients[client.UserID] = make(map[*Client]struct{})
				}
				m.clients[client.UserID][client] = struct{}{}
				m.mutex.Unlock()
				logger.Debug("WebSocket: client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.remove(client)
				client.close()
				logger.Debug("WebSocket: client unregistered: %s", client.UserID)

			case <-ctx.Done():
				close(m.stopped)
				m.mutex.Lock()
				all := m.clients
				m.clients = make(map[string]map[*Client]struct{})
				m.mutex.Unlock()
				for _, set := range all {
					for client := range set {
						client.close()
						_ = client.Conn.Close()
					}
				}
				return
			}
		}
	}()
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if set, ok := m.clients[client.UserID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(m.clients, client.UserID)
		}
	}
}

// SendToUser delivers a frame to every connection of userID.
func (m *Manager) SendToUser(userID string, message WSMessage) {
	b, err := encode(message)
	if err != nil {
		logger.Error("WebSocket: failed to encode frame for %s: %v", userID, err)
		return
	}

	m.mutex.RLock()
	set := m.clients[userID]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	m.mutex.RUnlock()

	for _, c := range targets {
		c.enqueue(b)
	}
}

func (m *Manager) ClientCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	n := 0
	for _, set := range m.clients {
		n += len(set)
	}
	return n
}

// ServeClient owns conn until it closes: presence is activated for the
// user, frames are read and dispatched, and everything is released on exit.
func (m *Manager) ServeClient(ctx context.Context, conn *websocket.Conn, userID string) {
	client := NewClient(userID, conn)

	if m.presence != nil {
		session, err := m.presence.Activate(ctx, userID)
		if err != nil {
			logger.Warn("WebSocket: presence not started for %s: %v", userID, err)
		} else {
			client.presence = session
		}
	}

	select {
	case m.Register <- client:
	case <-m.stopped:
		client.close()
		conn.Close()
		return
	}
	go client.WritePump()
	client.ReadPump(ctx, m)
}

// ReadPump reads frames until the connection fails.
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.stopped:
			c.close()
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error from %s: %v", c.UserID, err)
			}
			return
		}
		m.HandleClientMessage(ctx, c, message)
	}
}

// WritePump drains Send to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error to %s: %v", c.UserID, err)
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
