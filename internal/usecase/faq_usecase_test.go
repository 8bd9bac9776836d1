package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/internal/domain/entity"
	"studyhub/pkg/errors"
)

func TestSaveFAQIsStaffOnly(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)
	input := SaveFAQInput{PaperID: "p1", QuestionText: "What is a monad?", AnswerText: "A monoid in the category of endofunctors."}

	_, err := f.faqUC.SaveFAQ(context.Background(), "s1", input)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	_, err = f.faqUC.SaveFAQ(context.Background(), "", input)
	assert.True(t, errors.Is(err, errors.CodeUnauthenticated))

	faq, err := f.faqUC.SaveFAQ(context.Background(), "f1", input)
	require.NoError(t, err)
	assert.NotEmpty(t, faq.ID)
	assert.Equal(t, entity.DefaultTopicID, faq.TopicID)
	assert.Equal(t, "f1", faq.Provenance.SavedByID)
	assert.False(t, faq.Provenance.SavedAt.IsZero())
	assert.Equal(t, entity.MessageTypeText, faq.AnswerMediaType)
}

func TestSaveFAQRequiresQuestionAndAnswer(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)

	cases := []SaveFAQInput{
		{PaperID: "p1", QuestionText: "q", AnswerText: "   "},
		{PaperID: "p1", QuestionText: "", AnswerText: "a"},
		{QuestionText: "q", AnswerText: "a"},
	}
	for _, input := range cases {
		_, err := f.faqUC.SaveFAQ(context.Background(), "f1", input)
		assert.True(t, errors.Is(err, errors.CodeValidation), "%+v", input)
	}
}

func TestListFAQsNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)

	for _, q := range []string{"first", "second", "third"} {
		_, err := f.faqUC.SaveFAQ(context.Background(), "f1", SaveFAQInput{PaperID: "p1", TopicID: "exams", QuestionText: q, AnswerText: "a"})
		require.NoError(t, err)
	}
	_, err := f.faqUC.SaveFAQ(context.Background(), "f1", SaveFAQInput{PaperID: "p1", QuestionText: "elsewhere", AnswerText: "a"})
	require.NoError(t, err)

	list, err := f.faqUC.ListFAQs(context.Background(), "s1", "p1", "exams")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].QuestionText)
	assert.Equal(t, "first", list[2].QuestionText)
	assert.Equal(t, "exams", list[0].TopicID)

	_, err = f.faqUC.ListFAQs(context.Background(), "", "p1", "exams")
	assert.True(t, errors.Is(err, errors.CodeUnauthenticated))
}

func TestDraftFAQCollectsFollowingReplies(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "s2", "Ben", entity.RoleStudent)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)
	ctx := context.Background()
	ref := entity.ChatRef{Kind: entity.ChatKindGroup, ChatID: "p1", TopicID: "general"}

	send := func(uid, content string) string {
		id, err := f.messageUC.SendMessage(ctx, uid, SendMessageInput{ChatID: "p1", ChatKind: entity.ChatKindGroup, TopicID: "general", Content: content})
		require.NoError(t, err)
		return id
	}
	question := send("s1", "When is the exam?")
	send("f1", "Next Monday.")
	_, err := f.messageUC.SendSystemMessage(ctx, ref, "Poll closed.")
	require.NoError(t, err)
	send("s2", "Thanks!")
	send("s1", "Which room?")
	send("s2", "outside the window")

	draft, err := f.faqUC.DraftFAQ(ctx, "f1", "p1", "general", question)
	require.NoError(t, err)
	assert.Equal(t, "When is the exam?", draft.QuestionText)
	assert.Equal(t, "Dr. Rao: Next Monday.\n\nBen: Thanks!\n\nAsha: Which room?", draft.AnswerText)
	assert.Equal(t, question, draft.SourceMessageID)

	_, err = f.faqUC.DraftFAQ(ctx, "s1", "p1", "general", question)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	_, err = f.faqUC.DraftFAQ(ctx, "f1", "p1", "general", "missing")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}
