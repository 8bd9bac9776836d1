package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/internal/domain/entity"
	"studyhub/pkg/errors"
)

func TestSendMessageRequiresSignedInUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.messageUC.SendMessage(context.Background(), "", SendMessageInput{ChatID: "p1", ChatKind: entity.ChatKindGroup, Content: "hi"})
	assert.True(t, errors.Is(err, errors.CodeUnauthenticated))
}

func TestSendMessageRejectsUnknownKindBeforeWriting(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)

	_, err := f.messageUC.SendMessage(context.Background(), "s1", SendMessageInput{ChatID: "p1", ChatKind: "broadcast", Content: "hi"})
	assert.True(t, errors.Is(err, errors.CodeInvalidChatKind))

	for _, kind := range []entity.ChatKind{entity.ChatKindGroup, entity.ChatKindDM, entity.ChatKindSupport, entity.ChatKindDoubt} {
		list, err := f.messages.ListByChat(context.Background(), entity.ChatRef{Kind: kind, ChatID: "p1"}, 0)
		require.NoError(t, err)
		assert.Empty(t, list)
	}
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.messageUC.SendMessage(context.Background(), "s1", SendMessageInput{ChatID: "p1", ChatKind: entity.ChatKindGroup, Content: "   "})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = f.messageUC.SendMessage(context.Background(), "s1", SendMessageInput{ChatID: "p1", ChatKind: entity.ChatKindGroup, Content: "fake", MessageType: entity.MessageTypeSystem})
	assert.True(t, errors.Is(err, errors.CodeValidation))
}

func TestSendGroupMessageDefaultsTopic(t *testing.T) {
	f := newFixture(t)

	id, err := f.messageUC.SendMessage(context.Background(), "s1", SendMessageInput{ChatID: "p1", ChatKind: entity.ChatKindGroup, Content: "hello class"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	list, err := f.messages.ListByChat(context.Background(), entity.ChatRef{Kind: entity.ChatKindGroup, ChatID: "p1", TopicID: "general"}, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "p1", list[0].PaperID)
	assert.Equal(t, []string{"s1"}, list[0].SeenBy)
	assert.Equal(t, entity.MessageTypeText, list[0].MessageType)
}

func TestDirectLastMessageTracksNewestSend(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "Alice", entity.RoleStudent)
	f.addUser(t, "bob", "Bob", entity.RoleStudent)

	conv, err := f.convUC.StartDirectMessage(context.Background(), "bob", "alice")
	require.NoError(t, err)
	same, err := f.convUC.StartDirectMessage(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, same.ID)

	_, err = f.messageUC.SendMessage(context.Background(), "alice", SendMessageInput{ChatID: conv.ID, ChatKind: entity.ChatKindDM, Content: "first"})
	require.NoError(t, err)
	second, err := f.messageUC.SendMessage(context.Background(), "bob", SendMessageInput{ChatID: conv.ID, ChatKind: entity.ChatKindDM, Content: "second"})
	require.NoError(t, err)

	got, err := f.convs.GetByID(context.Background(), entity.ChatKindDM, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, second, got.LastMessage.ID)
	assert.Equal(t, "second", got.LastMessage.Content)
	assert.Equal(t, got.LastMessage.Timestamp, got.UpdatedAt)
}

func TestDirectMessageRejectsOutsider(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "Alice", entity.RoleStudent)
	f.addUser(t, "bob", "Bob", entity.RoleStudent)
	conv, err := f.convUC.StartDirectMessage(context.Background(), "alice", "bob")
	require.NoError(t, err)

	_, err = f.messageUC.SendMessage(context.Background(), "mallory", SendMessageInput{ChatID: conv.ID, ChatKind: entity.ChatKindDM, Content: "hi"})
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestSupportMessageAccess(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "s2", "Ben", entity.RoleStudent)
	f.addUser(t, "tech", "Tara", entity.RoleTechnicalSupport)

	conv, err := f.convUC.StartSupportChat(context.Background(), "s1", "team9")
	require.NoError(t, err)
	assert.Equal(t, "s1_team9", conv.ID)

	_, err = f.messageUC.SendMessage(context.Background(), "s1", SendMessageInput{ChatID: conv.ID, ChatKind: entity.ChatKindSupport, Content: "app crashes"})
	require.NoError(t, err)
	_, err = f.messageUC.SendMessage(context.Background(), "tech", SendMessageInput{ChatID: conv.ID, ChatKind: entity.ChatKindSupport, Content: "on it"})
	require.NoError(t, err)
	_, err = f.messageUC.SendMessage(context.Background(), "s2", SendMessageInput{ChatID: conv.ID, ChatKind: entity.ChatKindSupport, Content: "me too"})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	inbox, err := f.convUC.ListConversations(context.Background(), "tech", entity.ChatKindSupport, "team9")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "on it", inbox[0].LastMessage.Content)
}

func TestSendMessageWriteFailureIsBackendUnavailable(t *testing.T) {
	f := newFixture(t)
	f.store.Fail("messages.create", fmt.Errorf("deadline exceeded"))

	_, err := f.messageUC.SendMessage(context.Background(), "s1", SendMessageInput{ChatID: "p1", ChatKind: entity.ChatKindGroup, Content: "hi"})
	require.True(t, errors.Is(err, errors.CodeBackendUnavailable))

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Failed to send message", appErr.Message)
}

func TestStaffReplyClaimsUnassignedDoubt(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)
	d := f.addDoubt(t, "s1", "p1")

	_, err := f.messageUC.SendMessage(context.Background(), "s1", SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "any update?"})
	require.NoError(t, err)
	assert.Equal(t, entity.DoubtStatusUnassigned, f.getDoubt(t, d.ID).Status)

	reply, err := f.messageUC.SendMessage(context.Background(), "f1", SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "Looking now"})
	require.NoError(t, err)

	got := f.getDoubt(t, d.ID)
	assert.Equal(t, entity.DoubtStatusAssigned, got.Status)
	assert.Equal(t, "f1", got.AssignedFacultyID)

	list := f.doubtMessages(t, d.ID)
	require.Len(t, list, 3)
	assert.Equal(t, entity.MessageTypeSystem, list[1].MessageType)
	assert.Equal(t, entity.SystemSenderID, list[1].SenderID)
	assert.Equal(t, "Dr. Rao has taken this doubt.", list[1].Content)
	assert.Empty(t, list[1].SeenBy)
	assert.Equal(t, reply, list[2].ID)
	assert.Contains(t, f.events.types(), entity.EventDoubtAssigned)

	_, err = f.messageUC.SendMessage(context.Background(), "f1", SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "Try substitution"})
	require.NoError(t, err)
	assert.Len(t, systemMessages(f.doubtMessages(t, d.ID)), 1)
}

func TestClaimNoticeFallsBackToGenericName(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "f1", "", entity.RoleCoordinator)
	d := f.addDoubt(t, "s1", "p1")

	_, err := f.messageUC.SendMessage(context.Background(), "f1", SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "hi"})
	require.NoError(t, err)

	sys := systemMessages(f.doubtMessages(t, d.ID))
	require.Len(t, sys, 1)
	assert.Equal(t, "Faculty Member has taken this doubt.", sys[0].Content)
}

func TestConcurrentStaffRepliesProduceOneClaim(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	const staff = 8
	for i := 0; i < staff; i++ {
		f.addUser(t, fmt.Sprintf("f%d", i), fmt.Sprintf("Faculty %d", i), entity.RoleFaculty)
	}
	d := f.addDoubt(t, "s1", "p1")

	var wg sync.WaitGroup
	for i := 0; i < staff; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.messageUC.SendMessage(context.Background(), fmt.Sprintf("f%d", i), SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "mine"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got := f.getDoubt(t, d.ID)
	assert.Equal(t, entity.DoubtStatusAssigned, got.Status)

	list := f.doubtMessages(t, d.ID)
	assert.Len(t, list, staff+1)
	sys := systemMessages(list)
	require.Len(t, sys, 1)
	assert.Equal(t, fmt.Sprintf("Faculty %s has taken this doubt.", got.AssignedFacultyID[1:]), sys[0].Content)
}

func TestOtherStudentCannotReplyToDoubt(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "s2", "Ben", entity.RoleStudent)
	d := f.addDoubt(t, "s1", "p1")

	_, err := f.messageUC.SendMessage(context.Background(), "s2", SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "hi"})
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	assert.Empty(t, f.doubtMessages(t, d.ID))
}

func TestSubscribeAndMarkSeen(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)
	d := f.addDoubt(t, "s1", "p1")
	ref := entity.ChatRef{Kind: entity.ChatKindDoubt, ChatID: d.ID}

	var snapshots [][]*entity.Message
	sub, err := f.messageUC.SubscribeMessages(context.Background(), "s1", ref, func(list []*entity.Message) {
		snapshots = append(snapshots, list)
	})
	require.NoError(t, err)
	defer sub.Detach()

	id, err := f.messageUC.SendMessage(context.Background(), "s1", SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "hello"})
	require.NoError(t, err)
	require.NoError(t, f.messageUC.MarkSeen(context.Background(), "f1", ref, id))

	last := snapshots[len(snapshots)-1]
	require.Len(t, last, 1)
	assert.ElementsMatch(t, []string{"s1", "f1"}, last[0].SeenBy)

	_, err = f.messageUC.ListMessages(context.Background(), "stranger", ref, 0)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestDirectConversationIDMustBeCanonical(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "Alice", entity.RoleStudent)
	f.addUser(t, "bob", "Bob", entity.RoleStudent)

	_, err := f.messageUC.SendMessage(context.Background(), "alice", SendMessageInput{ChatID: "alice_bob", ChatKind: entity.ChatKindDM, Content: "hi"})
	require.NoError(t, err)

	for _, id := range []string{"bob_alice", "alice_mallory_bob", "alice", "alice_", "_alice"} {
		_, err = f.messageUC.SendMessage(context.Background(), "alice", SendMessageInput{ChatID: id, ChatKind: entity.ChatKindDM, Content: "hi"})
		assert.True(t, errors.Is(err, errors.CodeValidation), id)
	}

	_, err = f.convs.GetByID(context.Background(), entity.ChatKindDM, "bob_alice")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestSupportConversationIDMustHaveTwoParts(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "tech", "Tara", entity.RoleTechnicalSupport)

	for _, id := range []string{"s1", "s1_team9_extra", "s1_"} {
		_, err := f.messageUC.SendMessage(context.Background(), "s1", SendMessageInput{ChatID: id, ChatKind: entity.ChatKindSupport, Content: "help"})
		assert.True(t, errors.Is(err, errors.CodeValidation), id)
		_, err = f.messageUC.SendMessage(context.Background(), "tech", SendMessageInput{ChatID: id, ChatKind: entity.ChatKindSupport, Content: "hello"})
		assert.True(t, errors.Is(err, errors.CodeValidation), id)
	}
}
