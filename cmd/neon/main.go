// Neon is an affective companion chat: a terminal REPL (optionally voiced)
// and an optional Matrix bridge driving one persistent persona.
//
// Configuration is loaded from environment variables; command-line flags
// override them.
//
// Environment variables:
//
//	NEON_STATE_PATH         - affect memory JSON (default: memory/state.json)
//	NEON_JOURNAL_PATH       - SQLite turn journal (default: memory/journal.db, "" disables)
//	NEON_PERSONA_FILE       - optional persona YAML override, hot-reloaded
//	NEON_BACKEND            - "ollama" (default) or "openai"
//	NEON_MAX_HISTORY_PAIRS  - short-term history size (default: 10)
//	LLM_BASE_URL            - backend base URL (default: backend specific)
//	LLM_API_KEY             - API key for the openai backend
//	LLM_MODEL               - model name (default: "neon")
//	LLM_TIMEOUT             - per-turn backend timeout (default: 45s)
//	NEON_VOICE              - start with voice on (default: false)
//	NEON_TTS_URL            - GPT-SoVITS server, e.g. "http://127.0.0.1:9880"
//	NEON_TTS_OUT_DIR        - directory for rendered WAV files
//	NEON_TTS_REF_AUDIO      - reference audio for the voice clone
//	NEON_TTS_PROMPT_TEXT    - transcript of the reference audio
//	NEON_TTS_GPT_WEIGHTS    - GPT weights loaded into the TTS server at startup
//	NEON_TTS_SOVITS_WEIGHTS - SoVITS weights loaded into the TTS server at startup
//	NEON_PLAY_COMMAND       - audio player command, e.g. "aplay -q"
//	NEON_LISTEN_COMMAND     - command printing one transcribed utterance
//	MATRIX_HOMESERVER       - Matrix homeserver URL (enables the bridge)
//	MATRIX_USER_ID          - bot Matrix ID
//	MATRIX_ACCESS_TOKEN     - bot access token
//	MATRIX_ROOM_ID          - room to answer in
//	MATRIX_PEER_ID          - only answer this user (default: anyone)
//	LOG_LEVEL               - "debug", "info", "warn", "error" (default: "warn")
//	LOG_FORMAT              - "text" or "json" (default: "text")
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bdobrica/Neon/common/environment"
	"github.com/bdobrica/Neon/internal/neon/app"
	"github.com/bdobrica/Neon/internal/neon/matrix"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{cfg: envConfig(), in: os.Stdin, out: os.Stdout}
	c.logLevel = environment.StringOr("LOG_LEVEL", "warn")
	c.logFormat = environment.StringOr("LOG_FORMAT", "text")

	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// envConfig loads the application configuration from the environment.
func envConfig() app.Config {
	return app.Config{
		StatePath:       environment.PathOr("NEON_STATE_PATH", "memory/state.json"),
		JournalPath:     journalPath(),
		PersonaFile:     environment.PathOr("NEON_PERSONA_FILE", ""),
		MaxHistoryPairs: environment.IntOr("NEON_MAX_HISTORY_PAIRS", 10),
		LLM: app.LLMConfig{
			Backend: environment.StringOr("NEON_BACKEND", app.BackendOllama),
			BaseURL: environment.StringOr("LLM_BASE_URL", ""),
			APIKey:  environment.StringOr("LLM_API_KEY", ""),
			Model:   environment.StringOr("LLM_MODEL", "neon"),
			Timeout: environment.DurationOr("LLM_TIMEOUT", 0),
		},
		Voice: app.VoiceConfig{
			Enabled:       environment.BoolOr("NEON_VOICE", false),
			TTSURL:        environment.StringOr("NEON_TTS_URL", ""),
			OutDir:        environment.PathOr("NEON_TTS_OUT_DIR", ""),
			RefAudioPath:  environment.PathOr("NEON_TTS_REF_AUDIO", ""),
			PromptText:    environment.StringOr("NEON_TTS_PROMPT_TEXT", ""),
			GPTWeights:    environment.StringOr("NEON_TTS_GPT_WEIGHTS", ""),
			SoVITSWeights: environment.StringOr("NEON_TTS_SOVITS_WEIGHTS", ""),
			PlayCommand:   strings.Fields(environment.StringOr("NEON_PLAY_COMMAND", "")),
			ListenCommand: strings.Fields(environment.StringOr("NEON_LISTEN_COMMAND", "")),
		},
		Matrix: matrix.Config{
			Homeserver:  environment.StringOr("MATRIX_HOMESERVER", ""),
			UserID:      environment.StringOr("MATRIX_USER_ID", ""),
			AccessToken: environment.StringOr("MATRIX_ACCESS_TOKEN", ""),
			RoomID:      environment.StringOr("MATRIX_ROOM_ID", ""),
			PeerID:      environment.StringOr("MATRIX_PEER_ID", ""),
		},
	}
}

// journalPath keeps an explicitly empty NEON_JOURNAL_PATH as "disabled"
// instead of falling back to the default.
func journalPath() string {
	if v, ok := os.LookupEnv("NEON_JOURNAL_PATH"); ok && strings.TrimSpace(v) == "" {
		return ""
	}
	return environment.PathOr("NEON_JOURNAL_PATH", "memory/journal.db")
}
