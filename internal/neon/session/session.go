// Package session runs Neon's turn loop: it updates the affect state from the
// user's message, renders the persona instruction, calls the model backend,
// keeps the short-term history window and persists the relationship state.
//
// A Session handles one turn at a time. Turn is safe to call from several
// goroutines (the CLI and the Matrix bridge); calls are serialised.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bdobrica/Neon/common/trace"
	"github.com/bdobrica/Neon/internal/neon/affect"
	"github.com/bdobrica/Neon/internal/neon/journal"
	"github.com/bdobrica/Neon/internal/neon/llm"
	"github.com/bdobrica/Neon/internal/neon/memory"
	"github.com/bdobrica/Neon/internal/neon/observability"
	"github.com/bdobrica/Neon/internal/neon/sanitize"
)

// Fallback replies returned instead of an error when the backend fails.
const (
	TimeoutReply = "Sorry, I spaced out for a second. Can you repeat that?"
	ErrorReply   = "Something feels off on my end. Check the system."
)

// GreetingInput is the synthetic user message used to open a resumed session.
const GreetingInput = "*User comes online.*"

// ExitMarker is saved as the last user text when the session shuts down.
const ExitMarker = "EXIT"

// ErrNilSession is returned when a method is called on a nil *Session.
var ErrNilSession = errors.New("session: nil session")

// DefaultTechKeywords switch a turn into technical mode: the affect state is
// left alone. Matched as lower-case substrings, so "def " and "class " keep
// their trailing space.
var DefaultTechKeywords = []string{
	"python", "def ", "class ", "import ", "code", "debug", "error", "api", "json",
}

// Config tunes a Session.
type Config struct {
	// Model is passed through to the backend; empty means the backend default.
	Model string
	// Options are backend sampling options.
	Options map[string]any
	// Timeout bounds one backend call, retries included.
	Timeout time.Duration
	// MaxHistoryPairs is how many user/assistant exchanges are kept.
	MaxHistoryPairs int
	TechKeywords    []string
	// TTS makes replies safe for a speech engine.
	TTS bool
	// SessionID tags journal entries. Generated when empty.
	SessionID string
}

// DefaultConfig returns the stock session settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         45 * time.Second,
		MaxHistoryPairs: 10,
		TechKeywords:    DefaultTechKeywords,
		TTS:             true,
	}
}

// Store is the durable affect memory.
type Store interface {
	Restore(engine memory.Seeder) string
	Save(state affect.State, lastUserText string) error
}

// Instructions renders the system instruction for an affect state.
type Instructions interface {
	Build(emotion affect.Emotion, intensity, affection float64) string
}

// Journal records finished turns.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) (string, error)
}

// Deps are the collaborators of a Session. Journal and Logger are optional.
type Deps struct {
	Engine       *affect.Engine
	Store        Store
	Provider     llm.Provider
	Instructions Instructions
	Journal      Journal
	Logger       *slog.Logger
}

// ReplyKind says where a reply came from.
type ReplyKind int

const (
	// ReplyNone means there is nothing to show (blank input or empty model output).
	ReplyNone ReplyKind = iota
	ReplyModel
	ReplyFallbackTimeout
	ReplyFallbackError
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyModel:
		return "model"
	case ReplyFallbackTimeout:
		return "fallback-timeout"
	case ReplyFallbackError:
		return "fallback-error"
	default:
		return "none"
	}
}

// Reply is the outcome of a turn.
type Reply struct {
	Text string
	Kind ReplyKind
}

// Session is one conversation with one user.
type Session struct {
	mu           sync.Mutex
	cfg          Config
	engine       *affect.Engine
	store        Store
	provider     llm.Provider
	instructions Instructions
	journal      Journal
	logger       *slog.Logger

	history     []llm.Message
	bootContext string
}

// New validates deps and returns a Session. Call Boot before the first turn.
func New(cfg Config, deps Deps) (*Session, error) {
	var missing []string
	if deps.Engine == nil {
		missing = append(missing, "Engine")
	}
	if deps.Store == nil {
		missing = append(missing, "Store")
	}
	if deps.Provider == nil {
		missing = append(missing, "Provider")
	}
	if deps.Instructions == nil {
		missing = append(missing, "Instructions")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("session: missing dependencies: %s", strings.Join(missing, ", "))
	}

	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxHistoryPairs <= 0 {
		cfg.MaxHistoryPairs = def.MaxHistoryPairs
	}
	if cfg.TechKeywords == nil {
		cfg.TechKeywords = def.TechKeywords
	}
	if cfg.SessionID == "" {
		cfg.SessionID = trace.NewSessionID()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		cfg:          cfg,
		engine:       deps.Engine,
		store:        deps.Store,
		provider:     deps.Provider,
		instructions: deps.Instructions,
		journal:      deps.Journal,
		logger:       logger.With("session_id", cfg.SessionID),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.cfg.SessionID }

// Boot restores the persisted mood into the engine and stashes the one-shot
// time-gap context for the first turn.
func (s *Session) Boot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bootContext = s.store.Restore(s.engine)
}

// BootContext returns the pending boot context without consuming it.
func (s *Session) BootContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootContext
}

// Snapshot returns a copy of the current affect state.
func (s *Session) Snapshot() affect.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// IsTechnical reports whether input contains any of keywords
// (case-insensitive substring match).
func IsTechnical(input string, keywords []string) bool {
	lower := strings.ToLower(input)
	for _, k := range keywords {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Turn handles one user message. Backend failures are folded into fallback
// replies and leave history and the store untouched; the error return is
// reserved for misuse.
func (s *Session) Turn(ctx context.Context, input string) (Reply, error) {
	if s == nil {
		return Reply{}, ErrNilSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	input = strings.TrimSpace(input)
	if input == "" {
		return Reply{Kind: ReplyNone}, nil
	}

	ctx = trace.WithTraceID(ctx, trace.GenerateID())
	log := observability.WithTurn(ctx, s.logger)
	started := time.Now()

	entry := journal.Entry{
		SessionID: s.cfg.SessionID,
		StartedAt: started,
		Input:     input,
		Technical: IsTechnical(input, s.cfg.TechKeywords),
	}
	if entry.Technical {
		log.Debug("session: technical input; affect update skipped")
	} else if sig, ok := s.engine.Update(input); ok {
		entry.Rule = sig.Rule
	}

	state := s.engine.Snapshot()
	entry.Emotion = string(state.Emotion)
	entry.Intensity = state.Intensity
	entry.Affection = state.Affection

	system := s.instructions.Build(state.Emotion, state.Intensity, state.Affection)
	if s.bootContext != "" {
		system = s.bootContext + "\n" + system
		s.bootContext = ""
	}

	messages := make([]llm.Message, 0, len(s.history)+2)
	messages = append(messages, llm.System(system))
	messages = append(messages, s.window()...)
	messages = append(messages, llm.User(input))

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	resp, err := s.provider.Chat(callCtx, llm.Request{
		Model:    s.cfg.Model,
		Messages: messages,
		Options:  s.cfg.Options,
	})
	cancel()

	var reply Reply
	switch {
	case err != nil && llm.IsTimeout(err):
		log.Warn("session: backend timed out", "err", err, "timeout", s.cfg.Timeout)
		reply = Reply{Text: TimeoutReply, Kind: ReplyFallbackTimeout}
		entry.Outcome = journal.OutcomeTimeout
	case err != nil:
		log.Error("session: backend call failed", "err", err)
		reply = Reply{Text: ErrorReply, Kind: ReplyFallbackError}
		entry.Outcome = journal.OutcomeError
	case resp == nil || resp.Content == "":
		log.Info("session: backend returned empty reply")
		reply = Reply{Kind: ReplyNone}
		entry.Outcome = journal.OutcomeEmpty
	default:
		s.history = append(s.history, llm.User(input), llm.Assistant(resp.Content))
		s.history = trimHistory(s.history, s.cfg.MaxHistoryPairs)

		if err := s.store.Save(state, input); err != nil {
			log.Error("session: failed to persist affect memory", "err", err)
		}
		reply = Reply{Text: sanitize.Clean(resp.Content, sanitize.Options{TTS: s.cfg.TTS}), Kind: ReplyModel}
		entry.Outcome = journal.OutcomeReply
	}

	if resp != nil {
		entry.Attempts = resp.Attempts
	}
	entry.Reply = reply.Text
	entry.Duration = time.Since(started)
	s.record(ctx, log, entry)

	log.Info("session: turn complete",
		"kind", reply.Kind.String(),
		"emotion", state.Emotion,
		"technical", entry.Technical,
		"duration_ms", entry.Duration.Milliseconds(),
	)
	return reply, nil
}

func (s *Session) record(ctx context.Context, log *slog.Logger, e journal.Entry) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(ctx, e); err != nil {
		log.Warn("session: failed to journal turn", "err", err)
	}
}

// Greet opens a resumed session: when a boot context is pending, it runs a
// turn with GreetingInput so the persona reacts to the time gap. It returns
// ReplyNone when there is nothing to react to.
func (s *Session) Greet(ctx context.Context) (Reply, error) {
	if s == nil {
		return Reply{}, ErrNilSession
	}
	if s.BootContext() == "" {
		return Reply{Kind: ReplyNone}, nil
	}
	return s.Turn(ctx, GreetingInput)
}

// ResetHistory clears the short-term history. Affect state and the store are
// unaffected.
func (s *Session) ResetHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// History returns a copy of the short-term history.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Shutdown saves the final affect state with ExitMarker as the last input.
func (s *Session) Shutdown() error {
	if s == nil {
		return ErrNilSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(s.engine.Snapshot(), ExitMarker); err != nil {
		return fmt.Errorf("session: final save: %w", err)
	}
	s.logger.Info("session: memory saved")
	return nil
}
