// Package matrix connects a Neon session to one Matrix room: messages from
// the configured peer become turns, and the sanitized replies are posted back.
package matrix

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bdobrica/Neon/internal/neon/session"
)

// Message is an incoming room message, decoupled from the mautrix types.
type Message struct {
	RoomID string
	Sender string
	Body   string
	// SentAt is the origin server timestamp.
	SentAt time.Time
}

// Turner runs one conversational turn. *session.Session satisfies it.
type Turner interface {
	Turn(ctx context.Context, input string) (session.Reply, error)
}

// Sender posts a plain-text message to a room.
type Sender interface {
	SendText(ctx context.Context, roomID, text string) error
}

// BridgeConfig scopes which messages become turns.
type BridgeConfig struct {
	// RoomID is the only room the bridge answers in.
	RoomID string
	// PeerID restricts turns to one user. Empty accepts anyone except Self.
	PeerID string
	// Self is the bot's own user ID; its messages are always ignored.
	Self string
	// Since drops messages sent before it (history replayed by the first
	// sync). Zero accepts everything.
	Since time.Time
}

// Bridge routes room messages into a session.
type Bridge struct {
	cfg    BridgeConfig
	turner Turner
	sender Sender
	logger *slog.Logger
}

// NewBridge returns a Bridge. A nil logger means slog.Default().
func NewBridge(cfg BridgeConfig, turner Turner, sender Sender, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{cfg: cfg, turner: turner, sender: sender, logger: logger}
}

// Accept reports whether msg should become a turn.
func (b *Bridge) Accept(msg Message) bool {
	switch {
	case msg.RoomID != b.cfg.RoomID:
		return false
	case msg.Sender == b.cfg.Self:
		return false
	case b.cfg.PeerID != "" && msg.Sender != b.cfg.PeerID:
		return false
	case !b.cfg.Since.IsZero() && msg.SentAt.Before(b.cfg.Since):
		return false
	}
	return strings.TrimSpace(msg.Body) != ""
}

// Handle runs a turn for msg and posts the reply. Messages that are not
// accepted, and turns with nothing to say, produce no output.
func (b *Bridge) Handle(ctx context.Context, msg Message) {
	if !b.Accept(msg) {
		b.logger.Debug("matrix: message ignored", "room", msg.RoomID, "sender", msg.Sender)
		return
	}
	reply, err := b.turner.Turn(ctx, msg.Body)
	if err != nil {
		b.logger.Error("matrix: turn failed", "err", err)
		return
	}
	if reply.Text == "" {
		return
	}
	if err := b.sender.SendText(ctx, msg.RoomID, reply.Text); err != nil {
		b.logger.Error("matrix: send reply failed", "room", msg.RoomID, "err", err)
		return
	}
	b.logger.Info("matrix: replied", "room", msg.RoomID, "kind", reply.Kind.String())
}
