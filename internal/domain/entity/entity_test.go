package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectConversationIDIsSymmetric(t *testing.T) {
	assert.Equal(t, DirectConversationID("bob", "alice"), DirectConversationID("alice", "bob"))
	assert.Equal(t, "alice_bob", DirectConversationID("bob", "alice"))
	assert.Equal(t, "s1_t9", SupportConversationID("s1", "t9"))
}

func TestDoubtValidate(t *testing.T) {
	cases := []struct {
		name  string
		doubt Doubt
		ok    bool
	}{
		{"fresh", Doubt{Status: DoubtStatusUnassigned}, true},
		{"unassigned with faculty", Doubt{Status: DoubtStatusUnassigned, AssignedFacultyID: "f1"}, false},
		{"assigned", Doubt{Status: DoubtStatusAssigned, AssignedFacultyID: "f1"}, true},
		{"assigned without faculty", Doubt{Status: DoubtStatusAssigned}, false},
		{"resolved and rated", Doubt{Status: DoubtStatusResolved, AssignedFacultyID: "f1", Rated: true}, true},
		{"rated before resolve", Doubt{Status: DoubtStatusAssigned, AssignedFacultyID: "f1", Rated: true}, false},
		{"unknown status", Doubt{Status: "closed"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.doubt.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDoubtBreachAndRatingPrompt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)

	d := Doubt{Status: DoubtStatusResolved, AssignedFacultyID: "f1", SLADeadline: &past}
	assert.True(t, d.IsBreached(now))
	assert.True(t, d.AwaitingRating())

	d.Rated = true
	assert.False(t, d.AwaitingRating())
	assert.False(t, (&Doubt{}).IsBreached(now))
}

func TestChatRefNormalize(t *testing.T) {
	ref := ChatRef{Kind: ChatKindGroup, ChatID: "paper1"}.Normalize()
	assert.Equal(t, DefaultTopicID, ref.TopicID)
	assert.Equal(t, "group:paper1:general", ref.Key())

	dm := ChatRef{Kind: ChatKindDM, ChatID: "a_b", TopicID: "ignored"}
	assert.Equal(t, "dm:a_b", dm.Key())
}

func TestMessageAddress(t *testing.T) {
	var m Message
	m.Address(ChatRef{Kind: ChatKindGroup, ChatID: "paper1", TopicID: "algebra"})
	assert.Equal(t, "paper1", m.PaperID)
	assert.Equal(t, "algebra", m.TopicID)

	m.Address(ChatRef{Kind: ChatKindDoubt, ChatID: "d1"})
	assert.Equal(t, "d1", m.DoubtID)
	assert.Empty(t, m.PaperID)
}

func TestMessageTypePostable(t *testing.T) {
	assert.True(t, MessageTypePoll.UserPostable())
	assert.False(t, MessageTypeSystem.UserPostable())
	assert.False(t, MessageType("sticker").UserPostable())
}

func TestRoles(t *testing.T) {
	assert.Equal(t, RoleStudent, ParseRole(""))
	assert.Equal(t, RoleStudent, ParseRole("hacker"))
	assert.True(t, ParseRole("technical_support").IsStaff())
	assert.False(t, RoleStudent.IsStaff())
}

func TestAverageRating(t *testing.T) {
	u := User{ID: "f1"}
	assert.Nil(t, u.AverageRating())

	u.TotalRating, u.RatingCount = 9, 2
	avg := u.AverageRating()
	require.NotNil(t, avg)
	assert.InDelta(t, 4.5, *avg, 1e-9)
	assert.Equal(t, 2, u.RatingSummary().RatingCount)
}

func TestParseConversationIDs(t *testing.T) {
	a, b, ok := ParseDirectConversationID("alice_bob")
	assert.True(t, ok)
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	for _, id := range []string{"bob_alice", "a_b_c", "alice", "_bob", ""} {
		_, _, ok = ParseDirectConversationID(id)
		assert.False(t, ok, id)
	}

	student, team, ok := ParseSupportConversationID("s1_t9")
	assert.True(t, ok)
	assert.Equal(t, "s1", student)
	assert.Equal(t, "t9", team)
	_, _, ok = ParseSupportConversationID("s1_t9_x")
	assert.False(t, ok)
}
