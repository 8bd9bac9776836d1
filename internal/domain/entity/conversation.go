package entity

import (
	"sort"
	"strings"
	"time"
)

// Conversation is the parent document of a dm or support message stream.
// It carries a denormalized copy of the newest message.
type Conversation struct {
	ID           string    `json:"id" firestore:"id"`
	Participants []string  `json:"participants,omitempty" firestore:"participants,omitempty"`
	StudentID    string    `json:"student_id,omitempty" firestore:"studentId,omitempty"`
	TeamID       string    `json:"team_id,omitempty" firestore:"teamId,omitempty"`
	LastMessage  *Message  `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	CreatedAt    time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updated_at" firestore:"updatedAt"`
}

// DirectConversationID is symmetric in its arguments.
func DirectConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

func SupportConversationID(studentID, teamID string) string {
	return studentID + "_" + teamID
}

// ParseDirectConversationID splits a dm id into its two participants. Only
// the form DirectConversationID produces is accepted.
func ParseDirectConversationID(id string) (a, b string, ok bool) {
	parts := strings.Split(id, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	if id != DirectConversationID(parts[0], parts[1]) {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func ParseSupportConversationID(id string) (studentID, teamID string, ok bool) {
	parts := strings.Split(id, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (c *Conversation) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}
