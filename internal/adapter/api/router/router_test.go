package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/internal/adapter/api"
	"studyhub/internal/adapter/api/handler"
	"studyhub/internal/adapter/api/middleware"
	"studyhub/internal/adapter/repository/memory"
	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/service"
	"studyhub/internal/infrastructure/firebase"
	"studyhub/internal/infrastructure/ratelimit"
	"studyhub/internal/infrastructure/realtime"
	"studyhub/internal/infrastructure/storage"
	"studyhub/internal/infrastructure/websocket"
	"studyhub/internal/usecase"
	"studyhub/pkg/errors"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	for _, u := range []*entity.User{
		{ID: "s1", DisplayName: "Asha", Role: entity.RoleStudent},
		{ID: "s2", DisplayName: "Ben", Role: entity.RoleStudent},
		{ID: "f1", DisplayName: "Dr. Rao", Role: entity.RoleFaculty},
	} {
		require.NoError(t, users.Create(ctx, u))
	}

	dir, err := usecase.NewDirectory(users, 16, time.Minute)
	require.NoError(t, err)
	limiter := ratelimit.NewRateLimiter(100)
	doubts := memory.NewDoubtRepository(store)
	convs := memory.NewConversationRepository(store)
	events := service.NoopPublisher{}

	msgRepo := memory.NewMessageRepository(store)
	messages := usecase.NewMessageUseCase(msgRepo, convs, doubts, dir, events, limiter)
	doubtUC := usecase.NewDoubtUseCase(doubts, messages, dir, service.FixedWindowPolicy{Window: 30 * time.Minute}, events, limiter)
	tracker := usecase.NewPresenceTracker(realtime.NewMemoryStore(), memory.NewSettingsRepository(store), usecase.NewPresenceCache())
	wsManager := websocket.NewManager(messages, doubtUC, tracker)

	handler.Setup(
		messages,
		usecase.NewConversationUseCase(convs, dir),
		doubtUC,
		usecase.NewRatingUseCase(memory.NewRatingRepository(store), dir, events),
		usecase.NewPollUseCase(memory.NewPollRepository(store), messages, dir, limiter),
		usecase.NewFAQUseCase(memory.NewFAQRepository(store), msgRepo, dir),
		tracker,
		storage.NewMemoryBlobStore("memory://test"),
		wsManager,
	)
	handler.SetupHealthHandler(wsManager)

	e := echo.New()
	e.Validator = api.NewValidator()
	Setup(e, middleware.NewAuthMiddleware(firebase.NewDevTokenVerifier()), middleware.NewStaffMiddleware(dir), limiter)
	return e
}

func call(t *testing.T, e *echo.Echo, method, path, uid string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if uid != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+firebase.DevTokenPrefix+uid)
	}
	return serve(t, e, req)
}

func serve(t *testing.T, e *echo.Echo, req *http.Request) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

type list[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func TestRequiresBearerToken(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodGet, "/v1/doubts/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, errors.CodeUnauthenticated, env.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/doubts/mine", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-dev-token")
	code, env = serve(t, e, req)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid or expired token", env.Error.Message)
}

func TestDoubtLifecycleOverHTTP(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodPost, "/v1/doubts", "s1", map[string]string{"title": "Why does eq 3 hold?", "paper_id": "p1"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var doubt entity.Doubt
	decode(t, env, &doubt)
	assert.Equal(t, entity.DoubtStatusUnassigned, doubt.Status)

	chat := "/v1/chats/doubt/" + doubt.ID + "/messages"
	code, _ = call(t, e, http.MethodPost, chat, "s1", map[string]string{"content": "any update?"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = call(t, e, http.MethodPost, chat, "f1", map[string]string{"content": "Looking now"})
	require.Equal(t, http.StatusCreated, code)

	code, env = call(t, e, http.MethodGet, chat, "s1", nil)
	require.Equal(t, http.StatusOK, code)
	var msgs list[entity.Message]
	decode(t, env, &msgs)
	require.Len(t, msgs.Items, 3)
	assert.Equal(t, "Dr. Rao has taken this doubt.", msgs.Items[1].Content)

	code, env = call(t, e, http.MethodGet, "/v1/doubts/"+doubt.ID, "s1", nil)
	require.Equal(t, http.StatusOK, code)
	var view struct {
		Status   entity.DoubtStatus `json:"status"`
		SLALabel string             `json:"sla_label"`
	}
	decode(t, env, &view)
	assert.Equal(t, entity.DoubtStatusAssigned, view.Status)
	assert.True(t, strings.HasPrefix(view.SLALabel, "Time Left: "), view.SLALabel)

	code, env = call(t, e, http.MethodPost, "/v1/doubts/"+doubt.ID+"/resolve", "s1", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, errors.CodeForbidden, env.Error.Code)

	code, _ = call(t, e, http.MethodPost, "/v1/doubts/"+doubt.ID+"/resolve", "f1", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = call(t, e, http.MethodPost, "/v1/doubts/"+doubt.ID+"/rating", "s1", map[string]interface{}{"rating": 4, "comment": "clear"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var rating entity.Rating
	decode(t, env, &rating)
	assert.Equal(t, "f1", rating.FacultyID)
	assert.Equal(t, "p1", rating.PaperID)

	code, env = call(t, e, http.MethodPost, "/v1/doubts/"+doubt.ID+"/rating", "s1", map[string]interface{}{"rating": 5})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, errors.CodeTransactionConflict, env.Error.Code)

	code, env = call(t, e, http.MethodGet, "/v1/faculty/f1/rating", "s2", nil)
	require.Equal(t, http.StatusOK, code)
	var summary entity.RatingSummary
	decode(t, env, &summary)
	assert.Equal(t, 4, summary.TotalRating)
	assert.Equal(t, 1, summary.RatingCount)
	require.NotNil(t, summary.AverageRating)
	assert.InDelta(t, 4.0, *summary.AverageRating, 1e-9)
}

func TestRatingBoundsAreValidated(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodPost, "/v1/doubts/d1/rating", "s1", map[string]interface{}{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, errors.CodeValidation, env.Error.Code)
	assert.Contains(t, env.Error.Details, "rating")
}

func TestCreateDoubtValidation(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodPost, "/v1/doubts", "s1", map[string]string{"paper_id": "p1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, errors.CodeValidation, env.Error.Code)
	assert.Equal(t, "title is required", env.Error.Details["title"])
}

func TestUnknownChatKind(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodPost, "/v1/chats/carrier/x/messages", "s1", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, errors.CodeInvalidChatKind, env.Error.Code)

	code, env = call(t, e, http.MethodGet, "/v1/chats/carrier/x/messages", "s1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, errors.CodeInvalidChatKind, env.Error.Code)
}

func TestPaperDoubtsAreStaffOnly(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodGet, "/v1/papers/p1/doubts", "s1", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, errors.CodeForbidden, env.Error.Code)

	code, _ = call(t, e, http.MethodGet, "/v1/papers/p1/doubts", "f1", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestPollOverHTTP(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodPost, "/v1/papers/p1/topics/week-3/polls", "f1", map[string]interface{}{
		"question": "Which chapter next?",
		"options":  []string{"Limits", "Series"},
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var poll entity.Poll
	decode(t, env, &poll)

	code, env = call(t, e, http.MethodPost, "/v1/polls/"+poll.ID+"/votes", "s1", map[string]int{"option": 1})
	require.Equal(t, http.StatusOK, code, env.Error)
	decode(t, env, &poll)
	assert.Equal(t, 1, poll.Options[1].Count)

	code, env = call(t, e, http.MethodPost, "/v1/polls/"+poll.ID+"/votes", "s1", map[string]int{"option": 0})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, errors.CodeTransactionConflict, env.Error.Code)

	code, env = call(t, e, http.MethodPost, "/v1/polls/"+poll.ID+"/votes", "s2", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, errors.CodeValidation, env.Error.Code)

	code, env = call(t, e, http.MethodGet, "/v1/chats/group/p1/messages?topic_id=week-3", "s2", nil)
	require.Equal(t, http.StatusOK, code)
	var msgs list[entity.Message]
	decode(t, env, &msgs)
	require.Len(t, msgs.Items, 1)
	assert.Equal(t, entity.MessageTypePoll, msgs.Items[0].MessageType)
	assert.Equal(t, poll.ID, msgs.Items[0].PollID)

	code, _ = call(t, e, http.MethodPost, "/v1/papers/p1/topics/week-3/polls", "s1", map[string]interface{}{
		"question": "Students cannot?",
		"options":  []string{"a", "b"},
	})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestFAQOverHTTP(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodPost, "/v1/chats/group/p1/messages?topic_id=week-3", "s1", map[string]string{"content": "Is chapter 4 examinable?"})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var sent struct {
		ID string `json:"id"`
	}
	decode(t, env, &sent)
	code, env = call(t, e, http.MethodPost, "/v1/chats/group/p1/messages?topic_id=week-3", "f1", map[string]string{"content": "Only sections 4.1 and 4.2."})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, _ = call(t, e, http.MethodGet, "/v1/papers/p1/topics/week-3/faqs/draft?message_id="+sent.ID, "s1", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = call(t, e, http.MethodGet, "/v1/papers/p1/topics/week-3/faqs/draft?message_id="+sent.ID, "f1", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var draft usecase.FAQDraft
	decode(t, env, &draft)
	assert.Equal(t, "Is chapter 4 examinable?", draft.QuestionText)
	assert.Equal(t, "Dr. Rao: Only sections 4.1 and 4.2.", draft.AnswerText)

	body := map[string]string{
		"question_text":     draft.QuestionText,
		"answer_text":       draft.AnswerText,
		"source_message_id": draft.SourceMessageID,
	}
	code, _ = call(t, e, http.MethodPost, "/v1/papers/p1/topics/week-3/faqs", "s1", body)
	assert.Equal(t, http.StatusForbidden, code)
	code, env = call(t, e, http.MethodPost, "/v1/papers/p1/topics/week-3/faqs", "f1", body)
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = call(t, e, http.MethodPost, "/v1/papers/p1/topics/week-3/faqs", "f1", map[string]string{"question_text": "q"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, errors.CodeValidation, env.Error.Code)

	code, env = call(t, e, http.MethodGet, "/v1/papers/p1/topics/week-3/faqs", "s2", nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var faqs list[entity.FAQ]
	decode(t, env, &faqs)
	require.Len(t, faqs.Items, 1)
	assert.Equal(t, "f1", faqs.Items[0].Provenance.SavedByID)
	assert.Equal(t, sent.ID, faqs.Items[0].SourceMessageID)
}

func TestDirectConversationOverHTTP(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodPost, "/v1/conversations/direct", "s1", map[string]string{"user_id": "f1"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var conv entity.Conversation
	decode(t, env, &conv)
	assert.Equal(t, "f1_s1", conv.ID)

	code, _ = call(t, e, http.MethodPost, "/v1/chats/dm/"+conv.ID+"/messages", "s1", map[string]string{"content": "hello"})
	require.Equal(t, http.StatusCreated, code)

	code, env = call(t, e, http.MethodGet, "/v1/conversations?kind=dm", "f1", nil)
	require.Equal(t, http.StatusOK, code)
	var convs list[entity.Conversation]
	decode(t, env, &convs)
	require.Len(t, convs.Items, 1)
	require.NotNil(t, convs.Items[0].LastMessage)
	assert.Equal(t, "hello", convs.Items[0].LastMessage.Content)

	code, _ = call(t, e, http.MethodGet, "/v1/chats/dm/"+conv.ID+"/messages", "s2", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestPresenceLookupDefaultsOffline(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodGet, "/v1/presence/u9", "s1", nil)
	require.Equal(t, http.StatusOK, code)
	var record entity.PresenceRecord
	decode(t, env, &record)
	assert.Equal(t, "u9", record.UID)
	assert.False(t, record.IsOnline)

	code, env = call(t, e, http.MethodGet, "/v1/presence", "s1", nil)
	require.Equal(t, http.StatusOK, code)
	var records list[entity.PresenceRecord]
	decode(t, env, &records)
	assert.Empty(t, records.Items)
}

func TestUploadStoresAttachment(t *testing.T) {
	e := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="board.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("folder", "../Doubts/p1"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+firebase.DevTokenPrefix+"s1")

	code, env := serve(t, e, req)
	require.Equal(t, http.StatusCreated, code, env.Error)
	var out struct {
		URL         string             `json:"url"`
		FileName    string             `json:"file_name"`
		MessageType entity.MessageType `json:"message_type"`
	}
	decode(t, env, &out)
	assert.True(t, strings.HasPrefix(out.URL, "memory://test/doubts/p1/"), out.URL)
	assert.True(t, strings.HasSuffix(out.URL, ".png"), out.URL)
	assert.Equal(t, "board.png", out.FileName)
	assert.Equal(t, entity.MessageTypeImage, out.MessageType)
}

func TestHealthIsPublic(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"websocket_clients":0`)
}

func TestWebSocketRequiresQueryToken(t *testing.T) {
	e := newTestServer(t)

	code, env := call(t, e, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, errors.CodeUnauthenticated, env.Error.Code)
}
