package entity

import (
	"fmt"
	"time"
)

// ChatKind selects the storage location and side effects of a message.
type ChatKind string

const (
	ChatKindGroup   ChatKind = "group"
	ChatKindDM      ChatKind = "dm"
	ChatKindSupport ChatKind = "support"
	ChatKindDoubt   ChatKind = "doubt"
)

func (k ChatKind) Valid() bool {
	switch k {
	case ChatKindGroup, ChatKindDM, ChatKindSupport, ChatKindDoubt:
		return true
	}
	return false
}

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeAudio  MessageType = "audio"
	MessageTypeFile   MessageType = "file"
	MessageTypeVideo  MessageType = "video"
	MessageTypePoll   MessageType = "poll"
	MessageTypeSystem MessageType = "system"
)

// UserPostable reports whether a signed-in user may send this type directly.
// System messages only come from the pipeline itself.
func (t MessageType) UserPostable() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeAudio, MessageTypeFile, MessageTypeVideo, MessageTypePoll:
		return true
	}
	return false
}

const (
	SystemSenderID = "system"
	DefaultTopicID = "general"
)

// ChatRef addresses one message stream.
type ChatRef struct {
	Kind    ChatKind
	ChatID  string
	TopicID string
}

// Normalize fills the group topic default and drops the topic for other kinds.
func (r ChatRef) Normalize() ChatRef {
	if r.Kind == ChatKindGroup {
		if r.TopicID == "" {
			r.TopicID = DefaultTopicID
		}
	} else {
		r.TopicID = ""
	}
	return r
}

// Key is a stable identifier for subscriptions and fan-out.
func (r ChatRef) Key() string {
	r = r.Normalize()
	if r.Kind == ChatKindGroup {
		return fmt.Sprintf("%s:%s:%s", r.Kind, r.ChatID, r.TopicID)
	}
	return fmt.Sprintf("%s:%s", r.Kind, r.ChatID)
}

type Message struct {
	ID          string      `json:"id" firestore:"id"`
	SenderID    string      `json:"sender_id" firestore:"senderId"`
	Content     string      `json:"content" firestore:"content"`
	MessageType MessageType `json:"message_type" firestore:"messageType"`
	Timestamp   time.Time   `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	SeenBy      []string    `json:"seen_by" firestore:"seenBy"`
	FileName    string      `json:"file_name,omitempty" firestore:"fileName,omitempty"`
	PollID      string      `json:"poll_id,omitempty" firestore:"pollId,omitempty"`

	// Exactly one addressing group is set, depending on the chat kind.
	DoubtID string `json:"doubt_id,omitempty" firestore:"doubtId,omitempty"`
	PaperID string `json:"paper_id,omitempty" firestore:"paperId,omitempty"`
	TopicID string `json:"topic_id,omitempty" firestore:"topicId,omitempty"`
}

// Address stamps the chat-specific addressing fields onto the message.
func (m *Message) Address(ref ChatRef) {
	ref = ref.Normalize()
	m.DoubtID, m.PaperID, m.TopicID = "", "", ""
	switch ref.Kind {
	case ChatKindDoubt:
		m.DoubtID = ref.ChatID
	case ChatKindGroup:
		m.PaperID = ref.ChatID
		m.TopicID = ref.TopicID
	}
}

func (m *Message) SeenByUser(uid string) bool {
	for _, id := range m.SeenBy {
		if id == uid {
			return true
		}
	}
	return false
}
