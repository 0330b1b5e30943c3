// Package orchestrator runs one guest turn: it calls the model, executes the
// tools it asks for and falls back to the secondary provider on failure.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/capitalize-ai/reservation-assistant/internal/config"
	"github.com/capitalize-ai/reservation-assistant/internal/dispatch"
	"github.com/capitalize-ai/reservation-assistant/internal/language"
	"github.com/capitalize-ai/reservation-assistant/internal/llm"
	"github.com/capitalize-ai/reservation-assistant/internal/model"
	"github.com/capitalize-ai/reservation-assistant/pkg/logger"
	"github.com/capitalize-ai/reservation-assistant/pkg/metrics"
	"github.com/capitalize-ai/reservation-assistant/pkg/tracing"
)

// Dispatcher executes tool calls.
type Dispatcher interface {
	Dispatch(ctx context.Context, session, name string, args json.RawMessage) dispatch.Result
}

// Config holds the per-turn limits and prompt inputs.
type Config struct {
	Timeout        time.Duration
	MaxToolRounds  int
	HistoryLimit   int
	GroundingGuard bool
	Temperature    float64
	MaxTokens      int
	Hotel          config.HotelConfig
	Now            func() time.Time
}

// Turn is the input of one orchestration run.
type Turn struct {
	SessionID string
	// History is the whole conversation, ending with the new user message.
	History []model.Message
	// Language is the language of the previous turn, if any.
	Language string
}

// TurnResult is what a turn produced. Reply is always set.
type TurnResult struct {
	Reply    string
	Language language.Lang
	// Messages are the turns to append after the user message: assistant
	// tool requests, tool results and the final assistant reply.
	Messages []model.Message
	Events   []model.ConversationEvent
	Provider string
}

// Orchestrator coordinates model calls with tool execution.
type Orchestrator struct {
	primary    llm.Client
	secondary  llm.Client
	dispatcher Dispatcher
	tools      []llm.ToolDefinition
	cfg        Config
	logger     *logger.Logger
}

// New creates an orchestrator. secondary may be nil.
func New(primary, secondary llm.Client, d Dispatcher, cfg Config, log *logger.Logger) (*Orchestrator, error) {
	if primary == nil {
		return nil, errors.New("primary LLM client is required")
	}
	if d == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 3
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 12
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Orchestrator{
		primary:    primary,
		secondary:  secondary,
		dispatcher: d,
		tools:      dispatch.Definitions(),
		cfg:        cfg,
		logger:     log.With(zap.String("component", "orchestrator")),
	}, nil
}

// turnState accumulates what one Respond call produced.
type turnState struct {
	session  string
	lang     language.Lang
	chat     []llm.ChatMessage
	produced []model.Message
	events   []model.ConversationEvent
	// toolResults holds every tool result content visible to the guard.
	toolResults []string
	provider    string
}

// Respond produces the assistant reply for the last user message of the turn.
func (o *Orchestrator) Respond(ctx context.Context, turn Turn) *TurnResult {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.turn", attribute.String("session_id", turn.SessionID))
	defer span.End()

	st := &turnState{
		session: turn.SessionID,
		lang:    language.Detect(lastUserText(turn.History), language.Parse(turn.Language)),
	}
	for _, m := range turn.History {
		if m.Role == model.RoleTool {
			st.toolResults = append(st.toolResults, m.Content)
		}
	}
	st.chat = toChat(TrimHistory(turn.History, o.cfg.HistoryLimit))
	log := o.logger.WithContext("", turn.SessionID)
	span.SetAttributes(attribute.String("language", string(st.lang)))

	rounds := 0
	corrected := false
	for {
		resp, provider, err := o.complete(ctx, st, log)
		if err != nil {
			st.events = append(st.events, newEvent(st.session, model.EventTypeProviderFailure, err.Error(), nil))
			log.Error("All LLM providers failed", zap.Error(err))
			tracing.RecordError(span, err)
			return o.finish(st, language.Text(language.ProvidersUnavailable, st.lang), nil)
		}
		st.provider = provider

		if len(resp.ToolCalls) > 0 {
			if rounds >= o.cfg.MaxToolRounds {
				log.Warn("Tool rounds exhausted", zap.Int("rounds", rounds))
				return o.finish(st, language.Text(language.ToolRoundsExhausted, st.lang), nil)
			}
			rounds++
			o.runTools(ctx, st, resp, provider)
			continue
		}

		reply := strings.TrimSpace(resp.Content)
		if o.cfg.GroundingGuard {
			if amount, ok := ungroundedAmount(reply, st.toolResults); ok {
				metrics.GroundingRejectsTotal.Inc()
				st.events = append(st.events, newEvent(st.session, model.EventTypeGroundingReject,
					"reply states a price not returned by any tool", map[string]any{"amount": amount}))
				log.Warn("Rejected ungrounded price", zap.String("amount", amount), zap.Bool("retry", !corrected))
				if corrected {
					return o.finish(st, language.Text(language.PriceCheck, st.lang), nil)
				}
				corrected = true
				st.chat = append(st.chat,
					llm.ChatMessage{Role: model.RoleAssistant, Content: reply},
					llm.ChatMessage{Role: model.RoleUser, Content: groundingCorrection},
				)
				continue
			}
		}
		return o.finish(st, reply, resp)
	}
}

// runTools records the assistant tool request and executes each call in order.
func (o *Orchestrator) runTools(ctx context.Context, st *turnState, resp *llm.CompletionResponse, provider string) {
	calls := make([]model.ToolCall, len(resp.ToolCalls))
	for i, tc := range resp.ToolCalls {
		if tc.ID == "" {
			tc.ID = "call_" + uuid.NewString()
		}
		calls[i] = tc
	}

	assistant := o.newMessage(st, model.RoleAssistant, resp.Content)
	assistant.ToolCalls = calls
	setProvider(&assistant, provider, resp)
	st.produced = append(st.produced, assistant)
	st.chat = append(st.chat, llm.ChatMessage{Role: model.RoleAssistant, Content: resp.Content, ToolCalls: calls})

	for _, tc := range calls {
		res := o.dispatcher.Dispatch(ctx, st.session, tc.Name, tc.Arguments)
		content := res.JSON()

		evType := model.EventTypeToolCall
		reason := "ok"
		if !res.OK {
			evType = model.EventTypeToolError
			reason = res.Error.Error()
		}
		st.events = append(st.events, newEvent(st.session, evType, reason, map[string]any{
			"tool":         tc.Name,
			"tool_call_id": tc.ID,
		}))

		toolMsg := o.newMessage(st, model.RoleTool, content)
		toolMsg.ToolCallID = tc.ID
		toolMsg.ToolName = tc.Name
		st.produced = append(st.produced, toolMsg)
		st.toolResults = append(st.toolResults, content)
		st.chat = append(st.chat, llm.ChatMessage{
			Role:       model.RoleTool,
			Content:    content,
			ToolCallID: tc.ID,
			ToolName:   tc.Name,
		})
	}
}

func (o *Orchestrator) finish(st *turnState, reply string, resp *llm.CompletionResponse) *TurnResult {
	msg := o.newMessage(st, model.RoleAssistant, reply)
	if resp != nil {
		setProvider(&msg, st.provider, resp)
	}
	st.produced = append(st.produced, msg)
	return &TurnResult{
		Reply:    reply,
		Language: st.lang,
		Messages: st.produced,
		Events:   st.events,
		Provider: st.provider,
	}
}

// complete asks the primary provider and, if that fails, the secondary one.
func (o *Orchestrator) complete(ctx context.Context, st *turnState, log *logger.Logger) (*llm.CompletionResponse, string, error) {
	req := &llm.CompletionRequest{
		System:      o.systemPrompt(st.lang),
		Messages:    st.chat,
		Tools:       o.tools,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}

	resp, err := o.call(ctx, o.primary, req)
	if err == nil {
		return resp, o.primary.Name(), nil
	}
	if o.secondary == nil || ctx.Err() != nil {
		return nil, "", err
	}

	log.Warn("Primary LLM failed, using fallback",
		zap.String("primary", o.primary.Name()),
		zap.String("secondary", o.secondary.Name()),
		zap.Error(err),
	)
	metrics.RecordFallback(o.primary.Name(), o.secondary.Name())
	st.events = append(st.events, newEvent(st.session, model.EventTypeProviderFallback, err.Error(), map[string]any{
		"from": o.primary.Name(),
		"to":   o.secondary.Name(),
	}))

	resp, fallbackErr := o.call(ctx, o.secondary, req)
	if fallbackErr != nil {
		return nil, "", errors.Join(err, fallbackErr)
	}
	return resp, o.secondary.Name(), nil
}

// call runs one provider request bounded by the configured timeout.
func (o *Orchestrator) call(ctx context.Context, client llm.Client, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "llm.complete", attribute.String("provider", client.Name()))
	defer span.End()

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	if err == nil {
		err = resp.Validate()
	}

	status := "ok"
	tokensIn, tokensOut := 0, 0
	if resp != nil {
		tokensIn, tokensOut = resp.TokensIn, resp.TokensOut
	}
	if err != nil {
		status = "error"
		tracing.RecordError(span, err)
		var perr *model.ProviderError
		if !errors.As(err, &perr) {
			err = &model.ProviderError{Provider: client.Name(), Err: err}
		}
	}
	metrics.RecordLLMCall(client.Name(), status, time.Since(start).Seconds(), tokensIn, tokensOut)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (o *Orchestrator) newMessage(st *turnState, role model.Role, content string) model.Message {
	return model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: st.session,
		Role:      role,
		Content:   content,
		Language:  string(st.lang),
		CreatedAt: o.cfg.Now().UTC(),
	}
}

func setProvider(m *model.Message, provider string, resp *llm.CompletionResponse) {
	if provider != "" {
		m.Provider = &provider
	}
	if resp.Model != "" {
		name := resp.Model
		m.Model = &name
	}
	latency := resp.LatencyMs
	m.LatencyMs = &latency
}

func newEvent(session string, typ model.EventType, reason string, meta map[string]any) model.ConversationEvent {
	return model.ConversationEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: session,
		Type:      typ,
		Reason:    reason,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
}

func lastUserText(history []model.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			return history[i].Content
		}
	}
	return ""
}

func toChat(history []model.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role == model.RoleSystem {
			continue
		}
		out = append(out, llm.ChatMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCalls:  m.ToolCalls,
			ToolCallID: m.ToolCallID,
			ToolName:   m.ToolName,
		})
	}
	return out
}

// TrimHistory keeps the last limit non-system messages. The window starts at a
// user message so tool results are never separated from the call that asked for them.
func TrimHistory(history []model.Message, limit int) []model.Message {
	msgs := make([]model.Message, 0, len(history))
	for _, m := range history {
		if m.Role != model.RoleSystem {
			msgs = append(msgs, m)
		}
	}
	if limit <= 0 || len(msgs) <= limit {
		return msgs
	}

	start := len(msgs) - limit
	for i := start; i < len(msgs); i++ {
		if msgs[i].Role == model.RoleUser {
			return msgs[i:]
		}
	}
	// No user message inside the window: widen it back to the latest one.
	for i := start - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser {
			return msgs[i:]
		}
	}
	return msgs[start:]
}

func (o *Orchestrator) String() string {
	if o.secondary == nil {
		return o.primary.Name()
	}
	return fmt.Sprintf("%s -> %s", o.primary.Name(), o.secondary.Name())
}
