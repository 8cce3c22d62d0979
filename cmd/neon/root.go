package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Neon/common/version"
	"github.com/bdobrica/Neon/internal/neon/affect"
	"github.com/bdobrica/Neon/internal/neon/app"
	"github.com/bdobrica/Neon/internal/neon/journal"
	"github.com/bdobrica/Neon/internal/neon/memory"
	"github.com/bdobrica/Neon/internal/neon/observability"
	"github.com/bdobrica/Neon/internal/neon/persona"
)

// cli carries the resolved configuration and I/O for every command.
type cli struct {
	cfg       app.Config
	logLevel  string
	logFormat string
	in        io.Reader
	out       io.Writer
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "neon",
		Short: "Neon - an affective companion that remembers how you left things",
		Long: `Neon is a persona-driven chat companion with a persistent emotional state.

Every message nudges her mood and affection; the relationship survives
restarts and she reacts to how long you were away.

Run without arguments to start the interactive chat.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			observability.Setup(c.logLevel, c.logFormat)
			c.cfg.Logger = slog.Default()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChat(cmd.Context())
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.out)

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfg.StatePath, "state", c.cfg.StatePath, "affect memory JSON file")
	pf.StringVar(&c.cfg.JournalPath, "journal", c.cfg.JournalPath, `SQLite turn journal ("" disables)`)
	pf.StringVar(&c.logLevel, "log-level", c.logLevel, "debug, info, warn or error")
	pf.StringVar(&c.logFormat, "log-format", c.logFormat, "text or json")

	var turnCmds []*cobra.Command
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChat(cmd.Context())
		},
	}
	matrixCmd := &cobra.Command{
		Use:   "matrix",
		Short: "Bridge a Matrix room into the session until interrupted",
		Long: `Connects to the configured homeserver, joins MATRIX_ROOM_ID and answers
messages from MATRIX_PEER_ID. The persona file is hot-reloaded meanwhile.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMatrix(cmd.Context())
		},
	}
	turnCmds = append(turnCmds, root, chatCmd, matrixCmd)
	for _, cmd := range turnCmds {
		f := cmd.Flags()
		f.StringVar(&c.cfg.LLM.Backend, "backend", c.cfg.LLM.Backend, "model backend: ollama or openai")
		f.StringVar(&c.cfg.LLM.BaseURL, "base-url", c.cfg.LLM.BaseURL, "backend base URL")
		f.StringVar(&c.cfg.LLM.Model, "model", c.cfg.LLM.Model, "model name")
		f.DurationVar(&c.cfg.LLM.Timeout, "timeout", c.cfg.LLM.Timeout, "per-turn backend timeout")
		f.StringVar(&c.cfg.PersonaFile, "persona", c.cfg.PersonaFile, "persona YAML override")
		f.IntVar(&c.cfg.MaxHistoryPairs, "history-pairs", c.cfg.MaxHistoryPairs, "short-term history size")
	}
	for _, cmd := range []*cobra.Command{root, chatCmd} {
		cmd.Flags().BoolVar(&c.cfg.Voice.Enabled, "voice", c.cfg.Voice.Enabled, "start with voice on")
	}

	var historyN int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent journaled turns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.showHistory(cmd.Context(), historyN)
		},
	}
	historyCmd.Flags().IntVarP(&historyN, "limit", "n", 10, "number of turns to show")

	root.AddCommand(
		chatCmd,
		matrixCmd,
		&cobra.Command{
			Use:   "stats",
			Short: "Show the persisted relationship state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.showStats()
			},
		},
		historyCmd,
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(c.out, version.Info())
			},
		},
	)
	return root
}

func (c *cli) logger() *slog.Logger {
	if c.cfg.Logger == nil {
		return slog.Default()
	}
	return c.cfg.Logger
}

func (c *cli) runMatrix(ctx context.Context) error {
	if err := c.cfg.Matrix.Validate(); err != nil {
		return fmt.Errorf("matrix: %w", err)
	}
	a, err := app.New(ctx, c.cfg)
	if err != nil {
		return err
	}
	runErr := a.RunBackground(ctx)
	return errors.Join(runErr, a.Close())
}

func (c *cli) showStats() error {
	store, err := memory.Open(c.cfg.StatePath, memory.WithLogger(c.logger()))
	if err != nil {
		return err
	}
	rec := store.Record()
	st := store.Stats()
	fmt.Fprintln(c.out, bannerStyle.Render("NEON MEMORY"))
	fmt.Fprintf(c.out, "%s %s\n", labelStyle.Render("user:     "), st.UserName)
	fmt.Fprintf(c.out, "%s %.1f (%s)\n", labelStyle.Render("affection:"), st.Affection, c.relationshipLabel(affect.ParseEmotion(rec.Emotion), st.Affection))
	fmt.Fprintf(c.out, "%s %s\n", labelStyle.Render("mood:     "), rec.Emotion)
	fmt.Fprintf(c.out, "%s %d\n", labelStyle.Render("turns:    "), st.Turns)
	return nil
}

func (c *cli) showHistory(ctx context.Context, n int) error {
	if c.cfg.JournalPath == "" {
		return errors.New("history: journal is disabled (NEON_JOURNAL_PATH is empty)")
	}
	j, err := journal.Open(c.cfg.JournalPath, c.logger())
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Recent(ctx, n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.out, systemStyle.Render("No turns recorded yet."))
		return nil
	}
	// Oldest first reads like a transcript.
	for i := len(entries) - 1; i >= 0; i-- {
		printEntry(c.out, entries[i])
	}

	counts, err := j.CountByOutcome(ctx)
	if err != nil {
		return err
	}
	schema, err := j.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("journal: schema version: %w", err)
	}
	fmt.Fprintln(c.out, labelStyle.Render(outcomeTotals(counts, schema)))
	return nil
}

// relationshipLabel names the persona tier for the stored state, using the
// persona file when one is configured and loads cleanly.
func (c *cli) relationshipLabel(emotion affect.Emotion, affection float64) string {
	loader := persona.NewLoader(c.logger())
	if c.cfg.PersonaFile != "" {
		if err := loader.LoadFile(c.cfg.PersonaFile); err != nil {
			c.logger().Warn("stats: persona file ignored", "err", err)
		}
	}
	cfg := loader.Config()
	return cfg.TierFor(emotion, affection).Label
}
