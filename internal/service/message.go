package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/reservation-assistant/internal/language"
	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/internal/orchestrator"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
	"github.com/capitalize-ai/reservation-assistant/pkg/metrics"
)

// ErrEmptyMessage is returned for inbound messages without text or chat id.
var ErrEmptyMessage = errors.New("message text and chat_id are required")

// Responder produces the assistant reply for one turn.
type Responder interface {
	Respond(ctx context.Context, turn orchestrator.Turn) *orchestrator.TurnResult
}

// FlowResetter forgets per-session booking progress.
type FlowResetter interface {
	ResetSession(session string)
}

// TranscriptSink receives every conversation message and event.
type TranscriptSink interface {
	PublishMessage(ctx context.Context, msg *model.Message) (uint64, error)
	PublishEvent(ctx context.Context, event *model.ConversationEvent) (uint64, error)
}

// resetCommands start a new conversation.
var resetCommands = map[string]bool{
	"/start": true,
	"/reset": true,
}

// MessageService routes inbound platform messages through the assistant.
type MessageService struct {
	conversations *ConversationService
	responder     Responder
	flows         FlowResetter
	sink          TranscriptSink
	logger        *logger.Logger
}

// NewMessageService creates a new message service. flows and sink may be nil.
func NewMessageService(
	conversations *ConversationService,
	responder Responder,
	flows FlowResetter,
	sink TranscriptSink,
	log *logger.Logger,
) *MessageService {
	if log == nil {
		log = logger.NewNop()
	}
	return &MessageService{
		conversations: conversations,
		responder:     responder,
		flows:         flows,
		sink:          sink,
		logger:        log,
	}
}

// Handle processes one inbound message and returns the reply to send back.
func (s *MessageService) Handle(ctx context.Context, in model.InboundMessage) (*model.ReplyResponse, error) {
	in.Text = strings.TrimSpace(in.Text)
	in.ChatID = strings.TrimSpace(in.ChatID)
	if in.Text == "" || in.ChatID == "" {
		return nil, ErrEmptyMessage
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	var resp *model.ReplyResponse
	err := s.conversations.WithSession(ctx, in, func(conv *model.Conversation) error {
		log := s.logger.WithContext("", conv.ID)
		if resetCommands[strings.ToLower(strings.Fields(in.Text)[0])] {
			resp = s.reset(ctx, conv, in, log)
			return nil
		}
		resp = s.converse(ctx, conv, in, log)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *MessageService) converse(ctx context.Context, conv *model.Conversation, in model.InboundMessage, log *logger.Logger) *model.ReplyResponse {
	user := Append(conv, model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      model.RoleUser,
		Content:   in.Text,
		CreatedAt: in.Timestamp,
	})

	result := s.respond(ctx, conv, in, log)

	lang := string(result.Language)
	conv.Language = lang
	user[0].Language = lang
	conv.Messages[len(conv.Messages)-1].Language = lang
	produced := Append(conv, result.Messages...)

	log.Info("Turn completed",
		zap.String("provider", result.Provider),
		zap.String("language", lang),
		zap.Int("messages", len(produced)),
		zap.Int("events", len(result.Events)),
	)

	s.publish(ctx, append(user, produced...), result.Events, log)

	return &model.ReplyResponse{
		SessionID: conv.ID,
		Reply:     result.Reply,
		Language:  lang,
	}
}

// respond runs the responder and turns a panic into the localized apology,
// so one faulty turn never takes the chat down with it.
func (s *MessageService) respond(ctx context.Context, conv *model.Conversation, in model.InboundMessage, log *logger.Logger) (result *orchestrator.TurnResult) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		lang := language.Detect(in.Text, language.Parse(conv.Language))
		log.Error("Turn panicked",
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
		reply := language.Text(language.InternalError, lang)
		result = &orchestrator.TurnResult{
			Reply:    reply,
			Language: lang,
			Messages: []model.Message{{Role: model.RoleAssistant, Content: reply, Language: string(lang)}},
		}
	}()

	return s.responder.Respond(ctx, orchestrator.Turn{
		SessionID: conv.ID,
		History:   append([]model.Message(nil), conv.Messages...),
		Language:  conv.Language,
	})
}

func (s *MessageService) reset(ctx context.Context, conv *model.Conversation, in model.InboundMessage, log *logger.Logger) *model.ReplyResponse {
	lang := language.Parse(conv.Language)
	conv.Messages = nil
	if s.flows != nil {
		s.flows.ResetSession(conv.ID)
	}

	log.Info("Session reset", zap.String("command", in.Text))
	s.publish(ctx, nil, []model.ConversationEvent{{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: conv.ID,
		Type:      model.EventTypeReset,
		Reason:    in.Text,
		CreatedAt: time.Now().UTC(),
	}}, log)

	return &model.ReplyResponse{
		SessionID: conv.ID,
		Reply:     language.Text(language.SessionReset, lang),
		Language:  string(lang),
	}
}

// Reset clears a session and its booking progress.
func (s *MessageService) Reset(ctx context.Context, sessionID string) error {
	if err := s.conversations.Delete(ctx, sessionID); err != nil {
		return err
	}
	if s.flows != nil {
		s.flows.ResetSession(sessionID)
	}
	return nil
}

// EvictIdle drops sessions idle for longer than ttl along with their booking progress.
func (s *MessageService) EvictIdle(ttl time.Duration) int {
	evicted := s.conversations.EvictIdle(time.Now().UTC(), ttl)
	if s.flows != nil {
		for _, id := range evicted {
			s.flows.ResetSession(id)
		}
	}
	return len(evicted)
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (s *MessageService) RunJanitor(ctx context.Context, interval, ttl time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.EvictIdle(ttl)
		}
	}
}

// publish sends the transcript best-effort; failures never reach the guest.
func (s *MessageService) publish(ctx context.Context, msgs []model.Message, events []model.ConversationEvent, log *logger.Logger) {
	if s.sink == nil {
		return
	}
	for i := range msgs {
		if _, err := s.sink.PublishMessage(ctx, &msgs[i]); err != nil {
			metrics.NATSPublishFailures.WithLabelValues("message").Inc()
			log.Warn("Failed to publish message", zap.String("message_id", msgs[i].ID), zap.Error(err))
		}
	}
	for i := range events {
		if _, err := s.sink.PublishEvent(ctx, &events[i]); err != nil {
			metrics.NATSPublishFailures.WithLabelValues("event").Inc()
			log.Warn("Failed to publish event", zap.String("event_type", string(events[i].Type)), zap.Error(err))
		}
	}
}
