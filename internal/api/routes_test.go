package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nizami/nizami-backend/internal/auth"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/pipeline"
	"github.com/nizami/nizami-backend/internal/repository/memory"
	"github.com/nizami/nizami-backend/internal/services"
)

const jwtSecret = "test-secret"

// fakeTurns answers every turn with a fixed reply and stores nothing
type fakeTurns struct {
	mu       sync.Mutex
	requests []pipeline.TurnRequest
	err      error
}

func (f *fakeTurns) RunTurn(ctx context.Context, req pipeline.TurnRequest) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Message{ID: 99, ConversationID: req.ChatID, Role: models.RoleAI, Text: "<p>answer</p>", Language: "en"}, nil
}

type testServer struct {
	app   *fiber.App
	store *memory.Store
	turns *fakeTurns
}

func newTestServer(t *testing.T, validator *auth.Validator) *testServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := memory.NewStore()
	turns := &fakeTurns{}

	app := NewApp(AppConfig{}, logger)
	SetupRoutes(app, &services.Services{
		Turns:         turns,
		Conversations: store.Conversations(),
		Messages:      store.Messages(),
		Documents:     store.Documents(),
		StepLogs:      store.StepLogs(),
	}, RouteConfig{Validator: validator}, logger)

	return &testServer{app: app, store: store, turns: turns}
}

func (s *testServer) do(t *testing.T, method, path, body, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func (s *testServer) chat(t *testing.T, owner *string) int64 {
	t.Helper()
	c := &models.Conversation{Title: "chat", UserID: owner}
	require.NoError(t, s.store.Conversations().Create(context.Background(), c))
	return c.ID
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := auth.Claims{
		UserID:    userID,
		TokenType: auth.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateChatAndTurn(t *testing.T) {
	s := newTestServer(t, nil)

	code, chat := s.do(t, http.MethodPost, "/api/v1/chats", `{"title":"Lease question"}`, "")
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Lease question", chat["title"])
	chatID := int64(chat["id"].(float64))

	id := uuid.New()
	code, body := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chats/%d/turns", chatID),
		fmt.Sprintf(`{"uuid":%q,"text":"What is Article 74?"}`, id), "")
	require.Equal(t, http.StatusOK, code)
	message := body["message"].(map[string]any)
	assert.Equal(t, "<p>answer</p>", message["text"])

	require.Len(t, s.turns.requests, 1)
	assert.Equal(t, pipeline.TurnRequest{ChatID: chatID, UUID: id, Text: "What is Article 74?"}, s.turns.requests[0])
}

func TestTurnValidation(t *testing.T) {
	s := newTestServer(t, nil)
	chatID := s.chat(t, nil)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"missing uuid", fmt.Sprintf("/api/v1/chats/%d/turns", chatID), `{"text":"hi"}`, http.StatusBadRequest},
		{"bad body", fmt.Sprintf("/api/v1/chats/%d/turns", chatID), `{`, http.StatusBadRequest},
		{"bad chat id", "/api/v1/chats/abc/turns", `{"uuid":"` + uuid.NewString() + `"}`, http.StatusBadRequest},
		{"unknown chat", "/api/v1/chats/12345/turns", `{"uuid":"` + uuid.NewString() + `"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, http.MethodPost, tt.path, tt.body, "")
			assert.Equal(t, tt.code, code)
			assert.Equal(t, float64(tt.code), body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Empty(t, s.turns.requests)
}

func TestTurnErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid request", fmt.Errorf("first_or_create_message: %w", pipeline.ErrInvalidRequest), http.StatusBadRequest},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"internal", pipeline.ErrNoAnswer, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			s.turns.err = tt.err
			chatID := s.chat(t, nil)

			code, body := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chats/%d/turns", chatID),
				`{"uuid":"`+uuid.NewString()+`","text":"hi"}`, "")
			assert.Equal(t, tt.code, code)
			if tt.code == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", body["error"])
			}
		})
	}
}

func TestChatMessagesAndSteps(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	chatID := s.chat(t, nil)

	msg := &models.Message{ConversationID: chatID, UUID: uuid.New(), Role: models.RoleUser, Text: "hello", Language: "en"}
	require.NoError(t, s.store.Messages().Create(ctx, msg))
	require.NoError(t, s.store.StepLogs().Create(ctx, &models.StepLog{MessageID: &msg.ID, StepName: "router", TimeSec: 0.2}))

	code, body := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d/messages", chatID), "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["messages"], 1)

	code, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/messages/%d/steps", msg.ID), "", "")
	require.Equal(t, http.StatusOK, code)
	steps := body["steps"].([]any)
	require.Len(t, steps, 1)
	assert.Equal(t, "router", steps[0].(map[string]any)["step_name"])

	code, _ = s.do(t, http.MethodGet, "/api/v1/messages/4242/steps", "", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReferenceDocuments(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.store.AddDocument(models.ReferenceDocument{Name: "Labour Law", Status: models.DocumentProcessed}, []float32{1, 0})

	code, body := s.do(t, http.MethodGet, "/api/v1/reference-documents?limit=500", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["documents"], 1)
	assert.Equal(t, float64(100), body["limit"], "limit is capped")

	code, body = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/reference-documents/%d", id), "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Labour Law", body["name"])

	code, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/reference-documents/%d", id), "", "")
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/reference-documents/%d", id), "", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, auth.NewValidator(jwtSecret, ""))
	alice, bob := "alice", "bob"
	chatID := s.chat(t, &alice)

	code, _ := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chatID), "", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chatID), "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chatID), "", token(t, alice))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["user_id"])

	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chatID), "", token(t, bob))
	assert.Equal(t, http.StatusNotFound, code, "other users' chats are hidden")

	code, body = s.do(t, http.MethodPost, "/api/v1/chats", "", token(t, bob))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "bob", body["user_id"])
	assert.Equal(t, "New Chat", body["title"])

	code, _ = s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestOwnerlessChatHiddenFromAuthenticatedUsers(t *testing.T) {
	s := newTestServer(t, auth.NewValidator(jwtSecret, ""))
	chatID := s.chat(t, nil)

	code, _ := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chatID), "", token(t, "alice"))
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/chats/%d/turns", chatID),
		fmt.Sprintf(`{"uuid":"%s","text":"hello"}`, uuid.New()), token(t, "alice"))
	assert.Equal(t, http.StatusNotFound, code)
	assert.Empty(t, s.turns.requests)

	open := newTestServer(t, nil)
	chatID = open.chat(t, nil)
	code, _ = open.do(t, http.MethodGet, fmt.Sprintf("/api/v1/chats/%d", chatID), "", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t, nil)
	chatID := s.chat(t, nil)
	code, _ := s.do(t, http.MethodGet, fmt.Sprintf("/ws/chats/%d/turns", chatID), "", "")
	assert.Equal(t, http.StatusUpgradeRequired, code)
}
