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

// resolvedDoubt walks a new doubt from studentID through claim and resolution by facultyID.
func (f *fixture) resolvedDoubt(t *testing.T, studentID, facultyID string) *entity.Doubt {
	t.Helper()
	d := f.addDoubt(t, studentID, "p1")
	_, err := f.messageUC.SendMessage(context.Background(), facultyID, SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "taking"})
	require.NoError(t, err)
	resolved, err := f.doubtUC.ResolveDoubt(context.Background(), facultyID, d.ID)
	require.NoError(t, err)
	return resolved
}

func ratingFor(d *entity.Doubt, stars int) SubmitRatingInput {
	return SubmitRatingInput{
		DoubtID:   d.ID,
		FacultyID: d.AssignedFacultyID,
		StudentID: d.StudentID,
		PaperID:   d.PaperID,
		Rating:    stars,
	}
}

func TestSubmitRatingUpdatesAggregate(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)

	before, err := f.ratingUC.FacultyRating(context.Background(), "f1")
	require.NoError(t, err)
	assert.Nil(t, before.AverageRating)

	d := f.resolvedDoubt(t, "s1", "f1")
	input := ratingFor(d, 4)
	input.Comment = "  clear explanation "
	rating, err := f.ratingUC.SubmitRating(context.Background(), "s1", input)
	require.NoError(t, err)
	assert.Equal(t, "clear explanation", rating.Comment)
	assert.False(t, rating.SubmittedAt.IsZero())

	summary, err := f.ratingUC.FacultyRating(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalRating)
	assert.Equal(t, 1, summary.RatingCount)
	require.NotNil(t, summary.AverageRating)
	assert.InDelta(t, 4.0, *summary.AverageRating, 0.0001)

	assert.True(t, f.getDoubt(t, d.ID).Rated)
	assert.Contains(t, f.events.types(), entity.EventRatingSubmitted)
}

func TestSubmitRatingRejectsSecondRating(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)
	d := f.resolvedDoubt(t, "s1", "f1")

	_, err := f.ratingUC.SubmitRating(context.Background(), "s1", ratingFor(d, 5))
	require.NoError(t, err)
	_, err = f.ratingUC.SubmitRating(context.Background(), "s1", ratingFor(d, 1))
	assert.True(t, errors.Is(err, errors.CodeTransactionConflict))

	summary, err := f.ratingUC.FacultyRating(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalRating)
	assert.Equal(t, 1, summary.RatingCount)
}

func TestSubmitRatingPreconditions(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "s2", "Ben", entity.RoleStudent)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)
	f.addUser(t, "f2", "Dr. Iyer", entity.RoleFaculty)

	open := f.addDoubt(t, "s1", "p1")
	_, err := f.ratingUC.SubmitRating(context.Background(), "s1", SubmitRatingInput{DoubtID: open.ID, FacultyID: "f1", StudentID: "s1", PaperID: "p1", Rating: 3})
	assert.True(t, errors.Is(err, errors.CodeTransactionConflict))

	d := f.resolvedDoubt(t, "s1", "f1")

	for _, stars := range []int{0, 6} {
		_, err = f.ratingUC.SubmitRating(context.Background(), "s1", ratingFor(d, stars))
		assert.True(t, errors.Is(err, errors.CodeValidation), "rating %d", stars)
	}

	_, err = f.ratingUC.SubmitRating(context.Background(), "", ratingFor(d, 3))
	assert.True(t, errors.Is(err, errors.CodeUnauthenticated))

	_, err = f.ratingUC.SubmitRating(context.Background(), "s2", ratingFor(d, 3))
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	wrongFaculty := ratingFor(d, 3)
	wrongFaculty.FacultyID = "f2"
	_, err = f.ratingUC.SubmitRating(context.Background(), "s1", wrongFaculty)
	assert.True(t, errors.Is(err, errors.CodeTransactionConflict))

	assert.False(t, f.getDoubt(t, d.ID).Rated)
	summary, err := f.ratingUC.FacultyRating(context.Background(), "f2")
	require.NoError(t, err)
	assert.Zero(t, summary.RatingCount)
}

func TestSubmitRatingBackendFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)
	d := f.resolvedDoubt(t, "s1", "f1")

	f.store.Fail("ratings.submit", fmt.Errorf("unavailable"))
	_, err := f.ratingUC.SubmitRating(context.Background(), "s1", ratingFor(d, 5))
	assert.True(t, errors.Is(err, errors.CodeBackendUnavailable))
	assert.False(t, f.getDoubt(t, d.ID).Rated)

	f.store.Fail("ratings.submit", nil)
	_, err = f.ratingUC.SubmitRating(context.Background(), "s1", ratingFor(d, 5))
	require.NoError(t, err)
}

func TestConcurrentRatingsAccumulate(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)

	const n = 20
	doubts := make([]*entity.Doubt, n)
	want := 0
	for i := 0; i < n; i++ {
		student := fmt.Sprintf("s%d", i)
		f.addUser(t, student, student, entity.RoleStudent)
		doubts[i] = f.resolvedDoubt(t, student, "f1")
		want += i%5 + 1
	}

	var wg sync.WaitGroup
	for i, d := range doubts {
		wg.Add(1)
		go func(i int, d *entity.Doubt) {
			defer wg.Done()
			_, err := f.ratingUC.SubmitRating(context.Background(), d.StudentID, ratingFor(d, i%5+1))
			assert.NoError(t, err)
		}(i, d)
	}
	wg.Wait()

	summary, err := f.ratingUC.FacultyRating(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, want, summary.TotalRating)
	assert.Equal(t, n, summary.RatingCount)

	ratings, err := f.ratingUC.ListFacultyRatings(context.Background(), "f1", "f1")
	require.NoError(t, err)
	assert.Len(t, ratings, n)

	_, err = f.ratingUC.ListFacultyRatings(context.Background(), "s1", "f1")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestDoubtScenarioEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "s1", "Asha", entity.RoleStudent)
	f.addUser(t, "f1", "Dr. Rao", entity.RoleFaculty)
	f.addUser(t, "f2", "Dr. Iyer", entity.RoleFaculty)

	d := f.addDoubt(t, "s1", "p1")
	ctx := context.Background()

	_, err := f.messageUC.SendMessage(ctx, "s1", SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "Question 4 please"})
	require.NoError(t, err)
	_, err = f.messageUC.SendMessage(ctx, "f1", SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "Let me see"})
	require.NoError(t, err)
	_, err = f.messageUC.SendMessage(ctx, "f2", SendMessageInput{ChatID: d.ID, ChatKind: entity.ChatKindDoubt, Content: "I can help too"})
	require.NoError(t, err)
	assert.Equal(t, "f1", f.getDoubt(t, d.ID).AssignedFacultyID)

	_, err = f.doubtUC.ResolveDoubt(ctx, "f1", d.ID)
	require.NoError(t, err)
	_, err = f.ratingUC.SubmitRating(ctx, "s1", ratingFor(f.getDoubt(t, d.ID), 5))
	require.NoError(t, err)

	var contents []string
	for _, m := range f.doubtMessages(t, d.ID) {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{
		"Question 4 please",
		"Dr. Rao has taken this doubt.",
		"Let me see",
		"I can help too",
		"This doubt has been marked as resolved.",
	}, contents)

	got := f.getDoubt(t, d.ID)
	assert.Equal(t, entity.DoubtStatusResolved, got.Status)
	assert.True(t, got.Rated)

	assert.Equal(t, []entity.EventType{
		entity.EventDoubtCreated,
		entity.EventDoubtAssigned,
		entity.EventDoubtResolved,
		entity.EventRatingSubmitted,
	}, f.events.types())
}
