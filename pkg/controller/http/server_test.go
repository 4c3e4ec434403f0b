package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	server "github.com/nutrisha-ai/nutrisha/pkg/controller/http"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/repository/memory"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	repo *memory.Memory
	uc   *usecase.UseCases
	auth *usecase.AuthUseCase
	srv  *server.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	auth, err := usecase.NewAuthUseCase(testSecret)
	gt.NoError(t, err).Required()

	repo := memory.New()
	uc := usecase.New(repo, usecase.WithAuth(auth))
	return &fixture{repo: repo, uc: uc, auth: auth, srv: server.New(uc)}
}

func (f *fixture) do(t *testing.T, method, path, userID string, role types.Role, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		gt.NoError(t, json.NewEncoder(&buf).Encode(body)).Required()
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		token, err := f.auth.IssueToken(userID, role, time.Hour)
		gt.NoError(t, err).Required()
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, req)
	f.uc.Dispatcher().Wait()
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.NewDecoder(w.Body).Decode(&v)).Required()
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", "", "", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/chat/conversations", "", "", nil)
	gt.Value(t, w.Code).Equal(http.StatusUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/conversations", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
}

func TestNoAuthn(t *testing.T) {
	repo := memory.New()
	uc := usecase.New(repo, usecase.WithAuth(usecase.NewNoAuthnUseCase("dev-user", types.RoleAdmin)))
	srv := server.New(uc)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Value(t, w.Code).Equal(http.StatusOK)

	me := decode[map[string]string](t, w)
	gt.Value(t, me["userId"]).Equal("dev-user")
	gt.Value(t, me["role"]).Equal("admin")
}

func TestChatFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/chat/conversations", "patient-1", types.RolePatient, map[string]string{
		"title": "Breakfast",
		"mode":  "human",
	})
	gt.Value(t, w.Code).Equal(http.StatusCreated)
	conv := decode[map[string]any](t, w)
	convID := conv["id"].(string)
	gt.Value(t, conv["conversationMode"]).Equal("human")

	t.Run("send message", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/chat/send", "patient-1", types.RolePatient, map[string]any{
			"conversationId": convID,
			"content":        "I had oatmeal",
			"messageType":    "text",
		})
		gt.Value(t, w.Code).Equal(http.StatusOK)
		msg := decode[model.MessageResponse](t, w)
		gt.Value(t, msg.Content).Equal("I had oatmeal")
		gt.Bool(t, msg.IsAIGenerated).False()
		gt.Value(t, string(msg.ConversationID)).Equal(convID)
	})

	t.Run("other patient gets not found", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/chat/send", "patient-2", types.RolePatient, map[string]any{
			"conversationId": convID,
			"content":        "hi",
		})
		gt.Value(t, w.Code).Equal(http.StatusNotFound)
	})

	t.Run("invalid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat/send", bytes.NewBufferString("{"))
		token, err := f.auth.IssueToken("patient-1", types.RolePatient, time.Hour)
		gt.NoError(t, err).Required()
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		f.srv.ServeHTTP(w, req)
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})

	t.Run("list messages", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/chat/messages/"+convID+"?limit=10&offset=0", "patient-1", types.RolePatient, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		msgs := decode[[]model.MessageResponse](t, w)
		gt.Array(t, msgs).Length(1)

		w = f.do(t, http.MethodGet, "/api/chat/messages/"+convID+"?limit=abc", "patient-1", types.RolePatient, nil)
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})

	t.Run("list conversations", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/chat/conversations", "patient-1", types.RolePatient, nil)
		gt.Value(t, w.Code).Equal(http.StatusOK)
		convs := decode[[]map[string]any](t, w)
		gt.Array(t, convs).Length(1)
	})

	t.Run("update mode", func(t *testing.T) {
		w := f.do(t, http.MethodPut, "/api/chat/conversations/"+convID+"/mode", "patient-1", types.RolePatient, map[string]string{"mode": "ai"})
		gt.Value(t, w.Code).Equal(http.StatusOK)
		updated := decode[map[string]any](t, w)
		gt.Value(t, updated["conversationMode"]).Equal("ai")

		w = f.do(t, http.MethodPut, "/api/chat/conversations/"+convID+"/mode", "patient-1", types.RolePatient, map[string]string{"mode": "robot"})
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})
}

func TestNotificationRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.do(t, http.MethodPost, "/api/notifications/register-token", "patient-1", types.RolePatient, map[string]string{
		"token":    "tok-1",
		"platform": "ios",
	})
	gt.Value(t, w.Code).Equal(http.StatusOK)

	active, err := f.repo.DeviceToken().ListActive(ctx, "patient-1")
	gt.NoError(t, err).Required()
	gt.Array(t, active).Length(1)

	w = f.do(t, http.MethodPost, "/api/notifications/deactivate-device", "patient-1", types.RolePatient, map[string]string{"token": "tok-1"})
	gt.Value(t, w.Code).Equal(http.StatusOK)

	active, err = f.repo.DeviceToken().ListActive(ctx, "patient-1")
	gt.NoError(t, err).Required()
	gt.Array(t, active).Length(0)
}

func TestMemoryRoutesNotConfigured(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/memories/search", "patient-1", types.RolePatient, map[string]any{"query": "oatmeal"})
	gt.Value(t, w.Code).Equal(http.StatusNotImplemented)

	w = f.do(t, http.MethodDelete, "/api/memories", "patient-1", types.RolePatient, nil)
	gt.Value(t, w.Code).Equal(http.StatusNotImplemented)
}
