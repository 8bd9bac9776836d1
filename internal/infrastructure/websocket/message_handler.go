package websocket

import (
	"context"
	"encoding/json"
	"time"

	"studyhub/internal/domain/entity"
	"studyhub/internal/usecase"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
)

// Client frame types
const (
	MessageTypePing        = "ping"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeWatchDoubt  = "watch_doubt"
	MessageTypeSendMessage = "send_message"
	MessageTypeMarkSeen    = "mark_seen"
)

// Server frame types
const (
	MessageTypePong         = "pong"
	MessageTypeMessages     = "messages"
	MessageTypeSubscribed   = "subscribed"
	MessageTypeUnsubscribed = "unsubscribed"
	MessageTypeMessageSent  = "message_sent"
	MessageTypeRatingPrompt = "rating_prompt"
	MessageTypeError        = "error"
)

type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ChatData addresses a stream in subscribe, unsubscribe and mark_seen frames.
type ChatData struct {
	ChatKind  entity.ChatKind `json:"chat_kind"`
	ChatID    string          `json:"chat_id"`
	TopicID   string          `json:"topic_id,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
}

func (d ChatData) ref() entity.ChatRef {
	return entity.ChatRef{Kind: d.ChatKind, ChatID: d.ChatID, TopicID: d.TopicID}.Normalize()
}

type SendMessageData struct {
	TempID string `json:"temp_id"`
	usecase.SendMessageInput
}

type WatchDoubtData struct {
	DoubtID string `json:"doubt_id"`
}

type MessagesData struct {
	ChatKey  string            `json:"chat_key"`
	Messages []*entity.Message `json:"messages"`
}

type MessageSentData struct {
	TempID    string `json:"temp_id,omitempty"`
	MessageID string `json:"message_id"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"temp_id,omitempty"`
}

func encode(message WSMessage) ([]byte, error) {
	if message.Timestamp == "" {
		message.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(message)
}

func frame(messageType string, data interface{}) (WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return WSMessage{}, err
	}
	return WSMessage{Type: messageType, Data: raw}, nil
}

func (m *Manager) sendToClient(client *Client, messageType string, data interface{}) {
	message, err := frame(messageType, data)
	if err != nil {
		logger.Error("WebSocket: failed to marshal %s for %s: %v", messageType, client.UserID, err)
		return
	}
	b, err := encode(message)
	if err != nil {
		logger.Error("WebSocket: failed to marshal %s for %s: %v", messageType, client.UserID, err)
		return
	}
	client.enqueue(b)
}

func (m *Manager) sendErrorToClient(client *Client, err error, tempID string) {
	data := ErrorData{Code: errors.CodeOf(err), Message: err.Error(), TempID: tempID}
	if appErr, ok := errors.AsAppError(err); ok {
		data.Message = appErr.Message
	}
	m.sendToClient(client, MessageTypeError, data)
}

// HandleClientMessage dispatches one client frame.
func (m *Manager) HandleClientMessage(ctx context.Context, client *Client, raw []byte) {
	var message WSMessage
	if err := json.Unmarshal(raw, &message); err != nil {
		m.sendErrorToClient(client, errors.Validation("Invalid message format", err), "")
		return
	}

	switch message.Type {
	case MessageTypePing:
		m.sendToClient(client, MessageTypePong, map[string]string{"status": "alive"})
	case MessageTypeSubscribe:
		m.handleSubscribe(ctx, client, message.Data)
	case MessageTypeUnsubscribe:
		m.handleUnsubscribe(client, message.Data)
	case MessageTypeWatchDoubt:
		m.handleWatchDoubt(ctx, client, message.Data)
	case MessageTypeSendMessage:
		m.handleSendMessage(ctx, client, message.Data)
	case MessageTypeMarkSeen:
		m.handleMarkSeen(ctx, client, message.Data)
	default:
		logger.Debug("WebSocket: unknown message type '%s' from %s", message.Type, client.UserID)
		m.sendErrorToClient(client, errors.Validation("Unknown message type", nil), "")
	}
}

func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errors.Validation("Missing data", nil)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Validation("Invalid data format", err)
	}
	return nil
}

func (m *Manager) handleSubscribe(ctx context.Context, client *Client, raw json.RawMessage) {
	var data ChatData
	if err := decodeData(raw, &data); err != nil {
		m.sendErrorToClient(client, err, "")
		return
	}
	ref := data.ref()
	key := ref.Key()

	sub, err := m.messages.SubscribeMessages(ctx, client.UserID, ref, func(list []*entity.Message) {
		m.sendToClient(client, MessageTypeMessages, MessagesData{ChatKey: key, Messages: list})
	})
	if err != nil {
		m.sendErrorToClient(client, err, "")
		return
	}
	client.addSubscription(key, sub)
	m.sendToClient(client, MessageTypeSubscribed, map[string]string{"chat_key": key})
}

func (m *Manager) handleUnsubscribe(client *Client, raw json.RawMessage) {
	var data ChatData
	if err := decodeData(raw, &data); err != nil {
		m.sendErrorToClient(client, err, "")
		return
	}
	key := data.ref().Key()
	client.removeSubscription(key)
	m.sendToClient(client, MessageTypeUnsubscribed, map[string]string{"chat_key": key})
}

func (m *Manager) handleWatchDoubt(ctx context.Context, client *Client, raw json.RawMessage) {
	var data WatchDoubtData
	if err := decodeData(raw, &data); err != nil {
		m.sendErrorToClient(client, err, "")
		return
	}

	sub, err := m.doubts.WatchRatingPrompt(ctx, client.UserID, data.DoubtID, func(d *entity.Doubt) {
		m.sendToClient(client, MessageTypeRatingPrompt, d)
	})
	if err != nil {
		m.sendErrorToClient(client, err, "")
		return
	}
	client.addSubscription("rating:"+data.DoubtID, sub)
}

func (m *Manager) handleSendMessage(ctx context.Context, client *Client, raw json.RawMessage) {
	var data SendMessageData
	if err := decodeData(raw, &data); err != nil {
		m.sendErrorToClient(client, err, "")
		return
	}

	id, err := m.messages.SendMessage(ctx, client.UserID, data.SendMessageInput)
	if err != nil {
		m.sendErrorToClient(client, err, data.TempID)
		return
	}
	m.sendToClient(client, MessageTypeMessageSent, MessageSentData{TempID: data.TempID, MessageID: id})
}

func (m *Manager) handleMarkSeen(ctx context.Context, client *Client, raw json.RawMessage) {
	var data ChatData
	if err := decodeData(raw, &data); err != nil {
		m.sendErrorToClient(client, err, "")
		return
	}
	if err := m.messages.MarkSeen(ctx, client.UserID, data.ref(), data.MessageID); err != nil {
		m.sendErrorToClient(client, err, "")
	}
}
