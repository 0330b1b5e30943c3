package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/reservation-assistant/internal/language"
	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/internal/orchestrator"
)

// echoResponder replies with the last user message and tracks concurrency per session.
type echoResponder struct {
	mu       sync.Mutex
	inFlight map[string]int
	maxSeen  map[string]int
	turns    []orchestrator.Turn
	delay    time.Duration
}

func newEchoResponder() *echoResponder {
	return &echoResponder{inFlight: map[string]int{}, maxSeen: map[string]int{}}
}

func (r *echoResponder) Respond(ctx context.Context, turn orchestrator.Turn) *orchestrator.TurnResult {
	r.mu.Lock()
	r.turns = append(r.turns, turn)
	r.inFlight[turn.SessionID]++
	if r.inFlight[turn.SessionID] > r.maxSeen[turn.SessionID] {
		r.maxSeen[turn.SessionID] = r.inFlight[turn.SessionID]
	}
	r.mu.Unlock()

	time.Sleep(r.delay)

	r.mu.Lock()
	r.inFlight[turn.SessionID]--
	r.mu.Unlock()

	last := turn.History[len(turn.History)-1].Content
	reply := "echo: " + last
	return &orchestrator.TurnResult{
		Reply:    reply,
		Language: language.English,
		Provider: "fake",
		Messages: []model.Message{{Role: model.RoleAssistant, Content: reply}},
		Events:   []model.ConversationEvent{{SessionID: turn.SessionID, Type: model.EventTypeToolCall}},
	}
}

type recordingSink struct {
	mu       sync.Mutex
	messages []model.Message
	events   []model.ConversationEvent
	fail     bool
}

func (s *recordingSink) PublishMessage(ctx context.Context, msg *model.Message) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return 0, errors.New("nats down")
	}
	s.messages = append(s.messages, *msg)
	return uint64(len(s.messages)), nil
}

func (s *recordingSink) PublishEvent(ctx context.Context, event *model.ConversationEvent) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return 0, errors.New("nats down")
	}
	s.events = append(s.events, *event)
	return uint64(len(s.events)), nil
}

type flowRecorder struct {
	reset []string
}

func (f *flowRecorder) ResetSession(session string) { f.reset = append(f.reset, session) }

func inbound(chatID, text string) model.InboundMessage {
	return model.InboundMessage{Platform: "web", ChatID: chatID, SenderID: "guest", Text: text}
}

func TestHandle_AppendsTurnAndPublishes(t *testing.T) {
	responder := newEchoResponder()
	sink := &recordingSink{}
	convs := NewConversationService(nil)
	svc := NewMessageService(convs, responder, nil, sink, nil)

	resp, err := svc.Handle(context.Background(), inbound("chat-1", "  hello there  "))
	require.NoError(t, err)
	assert.Equal(t, "web:chat-1", resp.SessionID)
	assert.Equal(t, "echo: hello there", resp.Reply)
	assert.Equal(t, "en", resp.Language)

	conv, err := convs.Get(context.Background(), "web:chat-1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "en", conv.Messages[0].Language)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.NotEmpty(t, conv.Messages[1].ID)
	assert.Equal(t, "web:chat-1", conv.Messages[1].SessionID)
	assert.Equal(t, "en", conv.Language)

	assert.Len(t, sink.messages, 2)
	assert.Len(t, sink.events, 1)

	// The second turn sees the whole history.
	_, err = svc.Handle(context.Background(), inbound("chat-1", "again"))
	require.NoError(t, err)
	require.Len(t, responder.turns, 2)
	assert.Len(t, responder.turns[1].History, 3)
	assert.Equal(t, "en", responder.turns[1].Language)
}

func TestHandle_RejectsEmpty(t *testing.T) {
	svc := NewMessageService(NewConversationService(nil), newEchoResponder(), nil, nil, nil)

	_, err := svc.Handle(context.Background(), inbound("chat-1", "   "))
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.Handle(context.Background(), inbound("", "hi"))
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestHandle_StartResetsSession(t *testing.T) {
	responder := newEchoResponder()
	flows := &flowRecorder{}
	sink := &recordingSink{}
	convs := NewConversationService(nil)
	svc := NewMessageService(convs, responder, flows, sink, nil)

	_, err := svc.Handle(context.Background(), inbound("chat-1", "hello"))
	require.NoError(t, err)

	resp, err := svc.Handle(context.Background(), inbound("chat-1", "/start"))
	require.NoError(t, err)
	assert.Equal(t, language.Text(language.SessionReset, language.English), resp.Reply)
	assert.Equal(t, []string{"web:chat-1"}, flows.reset)
	assert.Len(t, responder.turns, 1, "reset never reaches the model")

	conv, err := convs.Get(context.Background(), "web:chat-1")
	require.NoError(t, err)
	assert.Empty(t, conv.Messages)
	assert.Equal(t, model.EventTypeReset, sink.events[len(sink.events)-1].Type)
}

func TestHandle_PublishFailureIsNotFatal(t *testing.T) {
	svc := NewMessageService(NewConversationService(nil), newEchoResponder(), nil, &recordingSink{fail: true}, nil)

	resp, err := svc.Handle(context.Background(), inbound("chat-1", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp.Reply)
}

func TestHandle_SerializesTurnsPerSession(t *testing.T) {
	responder := newEchoResponder()
	responder.delay = 5 * time.Millisecond
	convs := NewConversationService(nil)
	svc := NewMessageService(convs, responder, nil, nil, nil)

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 10; i++ {
		for _, chat := range []string{"a", "b"} {
			wg.Add(1)
			go func(chat string, i int) {
				defer wg.Done()
				if _, err := svc.Handle(context.Background(), inbound(chat, fmt.Sprintf("msg %d", i))); err != nil {
					failures.Add(1)
				}
			}(chat, i)
		}
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.Equal(t, 1, responder.maxSeen["web:a"])
	assert.Equal(t, 1, responder.maxSeen["web:b"])

	for _, id := range []string{"web:a", "web:b"} {
		conv, err := convs.Get(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, conv.Messages, 20)
		for i, m := range conv.Messages {
			if i%2 == 0 {
				assert.Equal(t, model.RoleUser, m.Role)
			} else {
				assert.Equal(t, model.RoleAssistant, m.Role)
			}
		}
	}
	assert.Equal(t, 2, convs.Count())
}

func TestReset(t *testing.T) {
	flows := &flowRecorder{}
	convs := NewConversationService(nil)
	svc := NewMessageService(convs, newEchoResponder(), flows, nil, nil)

	assert.ErrorIs(t, svc.Reset(context.Background(), "web:missing"), ErrSessionNotFound)

	_, err := svc.Handle(context.Background(), inbound("chat-1", "hello"))
	require.NoError(t, err)
	require.NoError(t, svc.Reset(context.Background(), "web:chat-1"))

	_, err = convs.Get(context.Background(), "web:chat-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, []string{"web:chat-1"}, flows.reset)
	assert.Zero(t, convs.Count())
}

func TestWithSession_HonoursContext(t *testing.T) {
	convs := NewConversationService(nil)
	in := inbound("chat-1", "hello")

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = convs.WithSession(context.Background(), in, func(conv *model.Conversation) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := convs.WithSession(ctx, in, func(conv *model.Conversation) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

// panicResponder panics on its first turn and echoes afterwards.
type panicResponder struct {
	calls atomic.Int32
	next  *echoResponder
}

func (r *panicResponder) Respond(ctx context.Context, turn orchestrator.Turn) *orchestrator.TurnResult {
	if r.calls.Add(1) == 1 {
		panic("store exploded")
	}
	return r.next.Respond(ctx, turn)
}

func TestHandle_PanicRepliesWithApologyAndReleasesSession(t *testing.T) {
	responder := &panicResponder{next: newEchoResponder()}
	convs := NewConversationService(nil)
	svc := NewMessageService(convs, responder, nil, nil, nil)

	resp, err := svc.Handle(context.Background(), inbound("chat-1", "Hello, I would like to book a room please"))
	require.NoError(t, err)
	assert.Equal(t, language.Text(language.InternalError, language.English), resp.Reply)
	assert.Equal(t, "en", resp.Language)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	resp, err = svc.Handle(ctx, inbound("chat-1", "again"))
	require.NoError(t, err, "the session must not stay locked after a failed turn")
	assert.Equal(t, "echo: again", resp.Reply)

	conv, err := convs.Get(context.Background(), "web:chat-1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 4)
	assert.Equal(t, language.Text(language.InternalError, language.English), conv.Messages[1].Content)
}

func TestHandle_PanicApologyDefaultsToTurkish(t *testing.T) {
	responder := &panicResponder{next: newEchoResponder()}
	svc := NewMessageService(NewConversationService(nil), responder, nil, nil, nil)

	resp, err := svc.Handle(context.Background(), inbound("chat-1", "Merhaba, oda fiyatları nedir?"))
	require.NoError(t, err)
	assert.Equal(t, language.Text(language.InternalError, language.Turkish), resp.Reply)
}

func TestWithSession_ReleasesAfterPanic(t *testing.T) {
	convs := NewConversationService(nil)
	in := inbound("chat-1", "hello")

	assert.Panics(t, func() {
		_ = convs.WithSession(context.Background(), in, func(conv *model.Conversation) error {
			panic("boom")
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := convs.WithSession(ctx, in, func(conv *model.Conversation) error { return nil })
	assert.NoError(t, err)
}

func TestEvictIdle(t *testing.T) {
	flows := &flowRecorder{}
	convs := NewConversationService(nil)
	svc := NewMessageService(convs, newEchoResponder(), flows, nil, nil)

	_, err := svc.Handle(context.Background(), inbound("chat-1", "hello"))
	require.NoError(t, err)

	assert.Zero(t, svc.EvictIdle(time.Hour), "recent sessions stay")
	assert.Equal(t, 1, convs.Count())

	evicted := convs.EvictIdle(time.Now().Add(2*time.Hour), time.Hour)
	assert.Equal(t, []string{"web:chat-1"}, evicted)
	assert.Zero(t, convs.Count())

	_, err = convs.Get(context.Background(), "web:chat-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Handle(context.Background(), inbound("chat-1", "hello again"))
	require.NoError(t, err)
	assert.Equal(t, 1, svc.EvictIdle(-time.Second))
	assert.Equal(t, []string{"web:chat-1"}, flows.reset)
}

func TestEvictIdle_SkipsBusySessions(t *testing.T) {
	convs := NewConversationService(nil)
	in := inbound("chat-1", "hello")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = convs.WithSession(context.Background(), in, func(conv *model.Conversation) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	assert.Empty(t, convs.EvictIdle(time.Now().Add(48*time.Hour), time.Hour))
	assert.Equal(t, 1, convs.Count())
	close(release)
	<-done
}
