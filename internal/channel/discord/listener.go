// Package discord bridges Discord gateway messages to the reservation assistant.
package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/capitalize-ai/reservation-assistant/internal/language"
	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
)

const (
	platform = "discord"
	// maxMessageLength is the Discord limit for one message.
	maxMessageLength = 2000
	turnTimeout      = 60 * time.Second
)

// Router handles one inbound chat message.
type Router interface {
	Handle(ctx context.Context, in model.InboundMessage) (*model.ReplyResponse, error)
}

type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Listener receives Discord messages and answers them through the router.
type Listener struct {
	token  string
	router Router
	logger *logger.Logger

	mu      sync.Mutex
	session *discordgo.Session
	botID   string
}

// NewListener creates a Discord listener.
func NewListener(token string, router Router, log *logger.Logger) *Listener {
	if log == nil {
		log = logger.NewNop()
	}
	return &Listener{
		token:  token,
		router: router,
		logger: log.With(zap.String("component", "discord")),
	}
}

// Run opens the gateway session and blocks until ctx is done.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return l.Stop()
}

// Start opens the gateway session.
func (l *Listener) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != nil {
		return fmt.Errorf("listener already started")
	}

	s, err := discordgo.New(normalizeBotToken(l.token))
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	s.AddHandler(l.handleMessage)
	if err := s.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	if s.State != nil && s.State.User != nil {
		l.botID = s.State.User.ID
	}

	l.session = s
	l.logger.Info("Discord listener started")
	return nil
}

// Stop closes the gateway session.
func (l *Listener) Stop() error {
	l.mu.Lock()
	s := l.session
	l.session = nil
	l.mu.Unlock()

	if s == nil {
		return nil
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	l.logger.Info("Discord listener stopped")
	return nil
}

func (l *Listener) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	l.respond(s, m)
}

func (l *Listener) respond(sender messageSender, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil {
		return
	}
	if m.Author.Bot || m.Author.ID == l.botID {
		return
	}
	if strings.TrimSpace(m.Content) == "" {
		return
	}

	log := l.logger.WithContext("", model.SessionKey(platform, m.ChannelID))
	apology := language.Text(language.InternalError, language.Detect(m.Content, ""))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while handling Discord message", zap.Any("panic", r))
			l.send(sender, m.ChannelID, apology, log)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	occurredAt := m.Timestamp.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	resp, err := l.router.Handle(ctx, model.InboundMessage{
		Platform:  platform,
		ChatID:    m.ChannelID,
		SenderID:  m.Author.ID,
		Text:      m.Content,
		Timestamp: occurredAt,
	})
	if err != nil {
		log.Error("Failed to handle Discord message", zap.Error(err))
		l.send(sender, m.ChannelID, apology, log)
		return
	}
	l.send(sender, m.ChannelID, resp.Reply, log)
}

func (l *Listener) send(sender messageSender, channelID, text string, log *logger.Logger) {
	for _, chunk := range splitMessage(text, maxMessageLength) {
		if _, err := sender.ChannelMessageSend(channelID, chunk); err != nil {
			log.Error("Failed to send Discord message", zap.Error(err))
			return
		}
	}
}

// splitMessage cuts text into chunks of at most limit runes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[:cut])))
		runes = runes[cut:]
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}

func normalizeBotToken(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(strings.ToLower(token), "bot ") {
		return token
	}
	return "Bot " + token
}
