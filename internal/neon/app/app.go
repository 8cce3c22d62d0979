// Package app wires Neon's subsystems: affect engine, memory store, persona,
// model backend, journal, voice adapters and the optional Matrix bridge.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bdobrica/Neon/common/version"
	"github.com/bdobrica/Neon/internal/neon/affect"
	"github.com/bdobrica/Neon/internal/neon/journal"
	"github.com/bdobrica/Neon/internal/neon/llm"
	"github.com/bdobrica/Neon/internal/neon/matrix"
	"github.com/bdobrica/Neon/internal/neon/memory"
	"github.com/bdobrica/Neon/internal/neon/observability"
	"github.com/bdobrica/Neon/internal/neon/persona"
	"github.com/bdobrica/Neon/internal/neon/session"
	"github.com/bdobrica/Neon/internal/neon/voice"
)

// Backend names accepted in LLMConfig.Backend.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Config holds the Neon application configuration. All values are typically
// loaded from environment variables by cmd/neon.
type Config struct {
	// StatePath is the affect memory JSON file.
	StatePath string
	// JournalPath is the SQLite turn journal. Empty disables journaling.
	JournalPath string
	// PersonaFile is an optional YAML override of the built-in persona. It is
	// watched for changes while the app runs.
	PersonaFile string

	LLM LLMConfig

	// MaxHistoryPairs caps the short-term history. Defaults to 10.
	MaxHistoryPairs int

	Voice  VoiceConfig
	Matrix matrix.Config

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// LLMConfig configures the model backend.
type LLMConfig struct {
	// Backend is "ollama" (default) or "openai".
	Backend string
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds one turn's backend call. Defaults to 45s.
	Timeout time.Duration
}

// VoiceConfig configures speech output and input.
type VoiceConfig struct {
	// Enabled turns voice on at start; the REPL can toggle it.
	Enabled bool
	// TTSURL is the GPT-SoVITS server. Empty disables speech output.
	TTSURL       string
	OutDir string
	// RefAudioPath is the reference clip, as seen by the TTS server. It is
	// sent with every request and set as the server default at boot.
	RefAudioPath string
	PromptText   string
	// GPTWeights and SoVITSWeights are loaded into the TTS server at boot.
	// Empty leaves the server's current model.
	GPTWeights    string
	SoVITSWeights string
	// PlayCommand plays a rendered WAV, e.g. "aplay -q".
	PlayCommand []string
	// ListenCommand records and transcribes one utterance to stdout.
	ListenCommand []string
}

// App is the wired Neon application.
type App struct {
	cfg      Config
	logger   *slog.Logger
	engine   *affect.Engine
	store    *memory.Store
	persona  *persona.Loader
	provider llm.Provider
	journal  *journal.Journal
	session  *session.Session
	speaker  voice.Speaker
	listener voice.Listener
}

// NewProvider builds the configured model backend.
func NewProvider(cfg LLMConfig, logger *slog.Logger) (llm.Provider, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendOllama:
		return llm.NewOllama(llm.OllamaConfig{BaseURL: cfg.BaseURL, Model: cfg.Model, Logger: logger}), nil
	case BackendOpenAI:
		return llm.NewOpenAI(llm.OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model, Logger: logger}), nil
	default:
		return nil, fmt.Errorf("app: unknown backend %q (want %q or %q)", cfg.Backend, BackendOllama, BackendOpenAI)
	}
}

// New wires every subsystem, checks that the backend is reachable (a failure
// is only logged) and restores the persisted mood. Only configuration errors
// and an unopenable store or journal are fatal.
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{cfg: cfg, logger: logger}

	provider, err := NewProvider(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	a.provider = provider

	a.persona = persona.NewLoader(logger)
	if cfg.PersonaFile != "" {
		if err := a.persona.LoadFile(cfg.PersonaFile); err != nil {
			return nil, fmt.Errorf("app: load persona: %w", err)
		}
	}

	a.store, err = memory.Open(cfg.StatePath, memory.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("app: open memory: %w", err)
	}

	if cfg.JournalPath != "" {
		a.journal, err = journal.Open(cfg.JournalPath, logger)
		if err != nil {
			return nil, fmt.Errorf("app: open journal: %w", err)
		}
		if v, err := a.journal.SchemaVersion(ctx); err == nil {
			logger.Info("neon: journal ready", "path", cfg.JournalPath, "schema_version", v)
		}
	}

	a.engine = affect.NewEngine(affect.WithLogger(logger))

	deps := session.Deps{
		Engine:       a.engine,
		Store:        a.store,
		Provider:     a.provider,
		Instructions: a.persona,
		Logger:       logger,
	}
	// A nil *journal.Journal must not become a non-nil interface.
	if a.journal != nil {
		deps.Journal = a.journal
	}
	scfg := session.DefaultConfig()
	scfg.Model = cfg.LLM.Model
	scfg.MaxHistoryPairs = cfg.MaxHistoryPairs
	if cfg.LLM.Timeout > 0 {
		scfg.Timeout = cfg.LLM.Timeout
	}
	if strings.ToLower(cfg.LLM.Backend) != BackendOpenAI {
		scfg.Options = llm.DefaultOllamaOptions()
	}
	a.session, err = session.New(scfg, deps)
	if err != nil {
		a.closeJournal()
		return nil, fmt.Errorf("app: %w", err)
	}

	a.speaker, a.listener = buildVoice(cfg.Voice, logger)
	if tts, ok := a.speaker.(*voice.SoVITS); ok {
		a.prepareVoice(ctx, tts)
	}

	a.checkBackend(ctx)
	a.session.Boot()

	logger.Info("neon: online", "version", version.Info(), "session_id", a.session.ID())
	return a, nil
}

func buildVoice(cfg VoiceConfig, logger *slog.Logger) (voice.Speaker, voice.Listener) {
	var speaker voice.Speaker = voice.Noop{}
	if cfg.TTSURL != "" {
		sc := voice.SoVITSConfig{
			BaseURL:      cfg.TTSURL,
			RefAudioPath: cfg.RefAudioPath,
			PromptText:   cfg.PromptText,
			OutDir:       cfg.OutDir,
			Logger:       logger,
		}
		if len(cfg.PlayCommand) > 0 {
			sc.Player = voice.CommandPlayer{Command: cfg.PlayCommand}
		}
		speaker = voice.NewSoVITS(sc)
	}
	var listener voice.Listener = voice.Noop{}
	if len(cfg.ListenCommand) > 0 {
		listener = voice.CommandListener{Command: cfg.ListenCommand}
	}
	return speaker, listener
}

// prepareVoice loads the configured voice models and reference clip into the
// TTS server. Failures are logged; speech then uses whatever the server has.
func (a *App) prepareVoice(ctx context.Context, tts *voice.SoVITS) {
	v := a.cfg.Voice
	if v.GPTWeights != "" || v.SoVITSWeights != "" {
		if err := tts.SetModels(ctx, v.GPTWeights, v.SoVITSWeights); err != nil {
			a.logger.Warn("neon: could not load voice models", "err", err)
		}
	}
	if v.RefAudioPath != "" {
		if err := tts.SetReference(ctx, v.RefAudioPath); err != nil {
			a.logger.Warn("neon: could not set voice reference", "err", err)
		}
	}
}

// checkBackend pings the backend when it supports it. Failures are logged as
// warnings; the app keeps running and turns will fall back.
func (a *App) checkBackend(ctx context.Context) {
	p, ok := a.provider.(llm.Pinger)
	if !ok {
		return
	}
	if err := p.Ping(ctx); err != nil {
		a.logger.Warn("neon: backend unreachable",
			"backend", a.cfg.LLM.Backend,
			"err", observability.RedactSecrets(err.Error(), a.cfg.LLM.APIKey),
		)
		return
	}
	a.logger.Info("neon: backend reachable", "backend", a.cfg.LLM.Backend)
}

// Session returns the live session.
func (a *App) Session() *session.Session { return a.session }

// Stats returns the persisted relationship summary.
func (a *App) Stats() memory.Stats { return a.store.Stats() }

// Speaker returns the configured speech output (a no-op when disabled).
func (a *App) Speaker() voice.Speaker { return a.speaker }

// Listener returns the configured speech input (a no-op when disabled).
func (a *App) Listener() voice.Listener { return a.listener }

// VoiceEnabled reports the configured initial voice state.
func (a *App) VoiceEnabled() bool { return a.cfg.Voice.Enabled }

// RunBackground runs the persona watcher and, when configured, the Matrix
// bridge until ctx is cancelled or one of them fails.
func (a *App) RunBackground(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.PersonaFile != "" {
		g.Go(func() error { return a.persona.Watch(gctx, a.cfg.PersonaFile) })
	}
	if a.cfg.Matrix.Homeserver != "" {
		g.Go(func() error { return a.RunMatrix(gctx) })
	}
	return g.Wait()
}

// RunMatrix bridges the configured Matrix room into the session until ctx is
// cancelled.
func (a *App) RunMatrix(ctx context.Context) error {
	client, err := matrix.New(a.cfg.Matrix, a.logger)
	if err != nil {
		return err
	}
	bridge := matrix.NewBridge(client.BridgeConfig(time.Now()), a.session, client, a.logger)
	a.logger.Info("neon: matrix bridge starting", "room", a.cfg.Matrix.RoomID, "peer", a.cfg.Matrix.PeerID)
	return client.Run(ctx, bridge)
}

// Close saves the final affect state and closes the journal.
func (a *App) Close() error {
	var errs []error
	if err := a.session.Shutdown(); err != nil {
		errs = append(errs, err)
	}
	if err := a.closeJournal(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeJournal() error {
	if a.journal == nil {
		return nil
	}
	if err := a.journal.Close(); err != nil {
		return fmt.Errorf("app: close journal: %w", err)
	}
	return nil
}
