// Package pipeline runs one chat turn through the orchestration graph: it
// stores the user message, filters gibberish and ambiguous follow-ups, routes
// the input, answers legal questions from retrieved context and persists the
// reply. Every step is recorded as telemetry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nizami/nizami-backend/internal/audit"
	"github.com/nizami/nizami-backend/internal/gibberish"
	"github.com/nizami/nizami-backend/internal/llm"
	"github.com/nizami/nizami-backend/internal/models"
	"github.com/nizami/nizami-backend/internal/prompts"
	"github.com/nizami/nizami-backend/internal/repository"
)

var (
	// ErrNoAnswer is returned when a turn ends without an assistant message
	ErrNoAnswer = errors.New("turn produced no answer")
	// ErrInvalidRequest is returned for turns missing a chat, uuid or text
	ErrInvalidRequest = errors.New("invalid turn request")
)

// Summaries maintains the rolling conversation summary
type Summaries interface {
	EnsureSummary(ctx context.Context, conversationID, before int64) (string, error)
	AppendToSummary(ctx context.Context, conversationID int64, messageIDs []int64) (string, error)
}

// CandidateResolver selects the reference documents relevant to a query
type CandidateResolver interface {
	Resolve(ctx context.Context, query string) ([]int64, error)
}

// ChunkRetriever ranks chunks within a document set
type ChunkRetriever interface {
	Retrieve(ctx context.Context, query string, documentIDs []int64, k int) ([]models.Chunk, error)
}

// StepRecorder persists step telemetry
type StepRecorder interface {
	Record(ctx context.Context, event audit.StepEvent)
}

// Dependencies are the collaborators of the engine. Steps, Exchanges and
// Escalator are optional.
type Dependencies struct {
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	LLM           llm.Client
	Prompts       prompts.Renderer
	Summaries     Summaries
	Candidates    CandidateResolver
	Retriever     ChunkRetriever
	Steps         StepRecorder
	Exchanges     audit.ExchangeSink
	Escalator     gibberish.Escalator
	Logger        logrus.FieldLogger
}

// Models selects the model of every LLM call site
type Models struct {
	Router      llm.ModelOptions
	Relevance   llm.ModelOptions
	Rephrase    llm.ModelOptions
	Translation llm.ModelOptions
	LegalAnswer llm.ModelOptions
}

// Config tunes the engine
type Config struct {
	Models    Models
	Gibberish gibberish.Config
	// K is the number of chunks retrieved per query
	K int
	// RecentMessages is how much history retrieve_history loads
	RecentMessages int
	// ContextMessages is how many recent messages go into LLM context
	ContextMessages int
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{
		Models: Models{
			Router:      llm.ModelOptions{Name: "gpt-5-nano", ReasoningEffort: llm.EffortMinimal},
			Relevance:   llm.ModelOptions{Name: "gpt-5-nano", ReasoningEffort: llm.EffortLow},
			Rephrase:    llm.ModelOptions{Name: "gpt-5-nano", ReasoningEffort: llm.EffortLow},
			Translation: llm.ModelOptions{Name: "gpt-4o"},
			LegalAnswer: llm.ModelOptions{Name: "gpt-5-mini", ReasoningEffort: llm.EffortLow},
		},
		Gibberish:       gibberish.DefaultConfig(),
		K:               8,
		RecentMessages:  5,
		ContextMessages: 3,
	}
}

// Event reports one executed step. Err is set when the step failed, even if
// a safe default let the turn continue.
type Event struct {
	Step      Step          `json:"step"`
	Branch    Branch        `json:"branch,omitempty"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
	MessageID *int64        `json:"message_id,omitempty"`
}

// Observer receives step events. Parallel steps report concurrently.
type Observer func(Event)

// Option configures an Engine
type Option func(*Engine)

// WithConfig replaces the default configuration
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithObserver adds an observer notified for every turn
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithReplies replaces the canned replies
func WithReplies(r *Replies) Option {
	return func(e *Engine) { e.replies = r }
}

// Engine runs turns
type Engine struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	llm           llm.Client
	prompts       prompts.Renderer
	summaries     Summaries
	candidates    CandidateResolver
	retriever     ChunkRetriever
	steps         StepRecorder
	exchanges     audit.ExchangeSink
	escalator     gibberish.Escalator
	logger        logrus.FieldLogger

	config    Config
	observers []Observer
	replies   *Replies
	graph     *graph
}

// NewEngine creates an engine
func NewEngine(deps Dependencies, opts ...Option) *Engine {
	e := &Engine{
		conversations: deps.Conversations,
		messages:      deps.Messages,
		llm:           deps.LLM,
		prompts:       deps.Prompts,
		summaries:     deps.Summaries,
		candidates:    deps.Candidates,
		retriever:     deps.Retriever,
		steps:         deps.Steps,
		exchanges:     deps.Exchanges,
		escalator:     deps.Escalator,
		logger:        deps.Logger,
		config:        DefaultConfig(),
		replies:       DefaultReplies(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logrus.StandardLogger()
	}
	if e.exchanges == nil {
		e.exchanges = audit.NewLogrusSink(e.logger)
	}
	if e.config.Gibberish.Logger == nil {
		e.config.Gibberish.Logger = e.logger
	}
	e.graph = e.buildGraph()
	return e
}

// TurnRequest is one inbound user message. UUID is the idempotency key.
type TurnRequest struct {
	ChatID int64
	UUID   uuid.UUID
	Text   string
	// Observer, if set, receives the events of this turn only
	Observer Observer
}

// RunTurn processes req and returns the assistant message. Replaying a
// request with the same UUID returns the stored answer without new LLM work.
func (e *Engine) RunTurn(ctx context.Context, req TurnRequest) (*models.Message, error) {
	if req.ChatID == 0 || req.UUID == uuid.Nil {
		return nil, fmt.Errorf("%w: chat id and uuid are required", ErrInvalidRequest)
	}

	observers := e.observers
	if req.Observer != nil {
		observers = append(append([]Observer(nil), e.observers...), req.Observer)
	}

	start := time.Now()
	st := &State{ChatID: req.ChatID, UUID: req.UUID, Input: req.Text}

	if err := e.run(ctx, st, observers); err != nil {
		turnsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if st.Reply == nil {
		turnsTotal.WithLabelValues("error").Inc()
		return nil, ErrNoAnswer
	}

	turnsTotal.WithLabelValues("ok").Inc()
	e.logger.WithFields(logrus.Fields{
		"chat_id":    st.ChatID,
		"message_id": st.Reply.ID,
		"decision":   st.Decision,
		"duration":   time.Since(start).String(),
	}).Info("Turn completed")
	return st.Reply, nil
}
