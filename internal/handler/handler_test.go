package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/reservation-assistant/internal/language"
	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/internal/orchestrator"
	"github.com/capitalize-ai/reservation-assistant/internal/service"
	"github.com/capitalize-ai/reservation-assistant/internal/store"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
)

type staticResponder struct{}

func (staticResponder) Respond(ctx context.Context, turn orchestrator.Turn) *orchestrator.TurnResult {
	return &orchestrator.TurnResult{
		Reply:    "Merhaba! Size nasıl yardımcı olabilirim?",
		Language: language.Turkish,
		Messages: []model.Message{{Role: model.RoleAssistant, Content: "Merhaba! Size nasıl yardımcı olabilirim?"}},
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type fakeTranscripts struct{}

func (fakeTranscripts) Transcript(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	return []model.Message{{SessionID: sessionID, Role: model.RoleUser, Content: "merhaba"}}, nil
}

type testServer struct {
	handler http.Handler
	store   *store.MemoryStore
}

func newTestServer(t *testing.T, transcripts TranscriptReader, checks map[string]Pinger) *testServer {
	t.Helper()
	log := logger.NewNop()

	s := store.NewMemoryStore()
	require.NoError(t, s.SeedRooms(context.Background(), []model.Room{
		{ID: 1, Name: "Standart Oda", Capacity: 2, PricePerNight: decimal.NewFromInt(1500), Status: model.RoomStatusAvailable},
	}))

	convs := service.NewConversationService(log)
	msgs := service.NewMessageService(convs, staticResponder{}, nil, nil, log)

	if checks == nil {
		checks = map[string]Pinger{"store": s}
	}

	h := NewRouter(RouterConfig{
		Health:       NewHealthHandler(checks),
		Messages:     NewMessageHandler(msgs, log),
		Sessions:     NewSessionHandler(convs, msgs, transcripts, log),
		Reservations: NewReservationHandler(s, log),
		Logger:       log,
	})
	return &testServer{handler: h, store: s}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"store":"ok"}}`, rec.Body.String())
}

func TestReadyReportsFailingDependency(t *testing.T) {
	ts := newTestServer(t, nil, map[string]Pinger{
		"store": pingerFunc(func(ctx context.Context) error { return nil }),
		"nats":  pingerFunc(func(ctx context.Context) error { return errors.New("nats: not connected") }),
		"skip":  nil,
	})

	rec := ts.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not ready","checks":{"store":"ok","nats":"nats: not connected"}}`, rec.Body.String())
}

func TestReceiveMessage(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/messages",
		`{"platform":"web","chat_id":"chat-1","sender_id":"guest","text":"merhaba","timestamp":"2026-01-01T09:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.ReplyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "web:chat-1", resp.SessionID)
	assert.Equal(t, "tr", resp.Language)
	assert.NotEmpty(t, resp.Reply)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestReceiveMessage_BadRequests(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	tests := map[string]string{
		"invalid json": `{`,
		"no chat":      `{"platform":"web","text":"hi"}`,
		"empty text":   `{"platform":"web","chat_id":"c","text":"   "}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/messages", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/sessions/web:chat-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/messages", `{"platform":"web","chat_id":"chat-1","text":"merhaba"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/web:chat-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var session model.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, 2, session.MessageCount)
	assert.Equal(t, "web:chat-1", session.Conversation.ID)

	rec = ts.do(t, http.MethodDelete, "/api/v1/sessions/web:chat-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/web:chat-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sessions/nocolon", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranscript(t *testing.T) {
	rec := newTestServer(t, nil, nil).do(t, http.MethodGet, "/api/v1/sessions/web:chat-1/transcript", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = newTestServer(t, fakeTranscripts{}, nil).do(t, http.MethodGet, "/api/v1/sessions/web:chat-1/transcript?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"session_id":"web:chat-1"`)
	assert.Contains(t, rec.Body.String(), `"content":"merhaba"`)
}

func TestRoomsAndReservations(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/rooms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Standart Oda"`)

	res, err := ts.store.InsertReservation(context.Background(), model.NewReservation{
		RoomID:   1,
		FullName: "Ayşe Yılmaz",
		Phone:    "+90 555 123 45 67",
		Email:    "ayse@example.com",
		CheckIn:  time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC).Format(model.DateLayout),
		CheckOut: "2026-05-12",
		Guests:   2,
	})
	require.NoError(t, err)

	for _, ref := range []string{res.ReferenceCode, "rsv-000001", "1"} {
		rec = ts.do(t, http.MethodGet, "/api/v1/reservations/"+ref, "")
		require.Equal(t, http.StatusOK, rec.Code, ref)
		var got model.Reservation
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "RSV-000001", got.ReferenceCode)
		assert.Equal(t, model.ReservationActive, got.Status)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/reservations/RSV-999999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
