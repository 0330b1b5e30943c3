// Package service owns chat sessions and routes inbound messages to the assistant.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
	"github.com/capitalize-ai/reservation-assistant/pkg/metrics"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// session is one conversation plus the lock that serializes its turns.
type session struct {
	// sem has capacity one; holding a token means owning the session.
	sem     chan struct{}
	conv    *model.Conversation
	removed bool
}

// ConversationService holds conversations in memory, keyed by session id.
type ConversationService struct {
	logger *logger.Logger

	sessions map[string]*session
	mu       sync.RWMutex
}

// NewConversationService creates a new conversation service.
func NewConversationService(log *logger.Logger) *ConversationService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ConversationService{
		logger:   log,
		sessions: make(map[string]*session),
	}
}

// WithSession runs fn while holding the session of in, creating it on first
// use. Turns of one session run one at a time; different sessions run in parallel.
func (s *ConversationService) WithSession(ctx context.Context, in model.InboundMessage, fn func(conv *model.Conversation) error) error {
	id := model.SessionKey(in.Platform, in.ChatID)
	for {
		sess := s.getOrCreate(id, in)

		select {
		case sess.sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		if sess.removed {
			// Reset while we waited; start over with a fresh session.
			<-sess.sem
			continue
		}

		defer func() { <-sess.sem }()
		defer func() { sess.conv.UpdatedAt = time.Now().UTC() }()
		return fn(sess.conv)
	}
}

func (s *ConversationService) getOrCreate(id string, in model.InboundMessage) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}

	now := time.Now().UTC()
	platform := in.Platform
	if platform == "" {
		platform = "web"
	}
	sess = &session{
		sem: make(chan struct{}, 1),
		conv: &model.Conversation{
			ID:        id,
			Platform:  platform,
			ChatID:    in.ChatID,
			SenderID:  in.SenderID,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	s.sessions[id] = sess
	metrics.SessionsActive.Inc()

	s.logger.Info("Session created",
		zap.String("session_id", id),
		zap.String("platform", platform),
	)
	return sess
}

// Get returns a snapshot of a conversation.
func (s *ConversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	select {
	case sess.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-sess.sem }()

	if sess.removed {
		return nil, ErrSessionNotFound
	}
	snapshot := *sess.conv
	snapshot.Messages = append([]model.Message(nil), sess.conv.Messages...)
	return &snapshot, nil
}

// Delete drops a session after any in-flight turn finishes.
func (s *ConversationService) Delete(ctx context.Context, id string) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	select {
	case sess.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-sess.sem }()

	s.mu.Lock()
	if current, ok := s.sessions[id]; ok && current == sess {
		delete(s.sessions, id)
		metrics.SessionsActive.Dec()
	}
	s.mu.Unlock()
	sess.removed = true

	s.logger.Info("Session deleted", zap.String("session_id", id))
	return nil
}

// EvictIdle drops sessions whose last turn ended more than ttl before now.
// Sessions with a turn in flight are skipped. It returns the evicted ids.
func (s *ConversationService) EvictIdle(now time.Time, ttl time.Duration) []string {
	s.mu.RLock()
	candidates := make(map[string]*session, len(s.sessions))
	for id, sess := range s.sessions {
		candidates[id] = sess
	}
	s.mu.RUnlock()

	var evicted []string
	for id, sess := range candidates {
		select {
		case sess.sem <- struct{}{}:
		default:
			continue
		}
		if !sess.removed && now.Sub(sess.conv.UpdatedAt) > ttl {
			s.mu.Lock()
			if current, ok := s.sessions[id]; ok && current == sess {
				delete(s.sessions, id)
				metrics.SessionsActive.Dec()
			}
			s.mu.Unlock()
			sess.removed = true
			evicted = append(evicted, id)
		}
		<-sess.sem
	}

	if len(evicted) > 0 {
		s.logger.Info("Idle sessions evicted", zap.Int("count", len(evicted)))
	}
	return evicted
}

// Count returns the number of sessions held in memory.
func (s *ConversationService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Append adds messages to conv, filling ids and timestamps where missing.
func Append(conv *model.Conversation, msgs ...model.Message) []model.Message {
	added := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.Must(uuid.NewV7()).String()
		}
		if m.SessionID == "" {
			m.SessionID = conv.ID
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		conv.Messages = append(conv.Messages, m)
		added = append(added, m)
		metrics.MessagesTotal.WithLabelValues(conv.Platform, string(m.Role)).Inc()
	}
	return added
}
