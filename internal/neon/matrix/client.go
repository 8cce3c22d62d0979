package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Config holds the Matrix connection parameters.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	RoomID      string
	PeerID      string
}

// Validate checks that the connection settings are present.
func (c Config) Validate() error {
	var errs []error
	if c.Homeserver == "" {
		errs = append(errs, errors.New("homeserver is required"))
	}
	if c.UserID == "" {
		errs = append(errs, errors.New("user id is required"))
	}
	if c.AccessToken == "" {
		errs = append(errs, errors.New("access token is required"))
	}
	if c.RoomID == "" {
		errs = append(errs, errors.New("room id is required"))
	}
	return errors.Join(errs...)
}

// Client is a thin mautrix wrapper that implements Sender.
type Client struct {
	mxc    *mautrix.Client
	cfg    Config
	logger *slog.Logger
}

// New creates a Matrix client but does not start syncing yet.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("matrix: invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	mxc, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("matrix: create client: %w", err)
	}
	return &Client{mxc: mxc, cfg: cfg, logger: logger}, nil
}

// SendText sends a plain-text m.text message to roomID.
func (c *Client) SendText(ctx context.Context, roomID, text string) error {
	_, err := c.mxc.SendText(ctx, id.RoomID(roomID), text)
	return err
}

// BridgeConfig derives the bridge scope from the connection settings.
func (c *Client) BridgeConfig(since time.Time) BridgeConfig {
	return BridgeConfig{RoomID: c.cfg.RoomID, PeerID: c.cfg.PeerID, Self: c.cfg.UserID, Since: since}
}

// Run joins the configured room and syncs until ctx is cancelled, passing
// every text message to bridge. Sync errors are retried with exponential
// back-off capped at five minutes.
func (c *Client) Run(ctx context.Context, bridge *Bridge) error {
	c.logger.Warn("matrix: E2EE is not enabled; messages are in plaintext")

	syncer, ok := c.mxc.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return errors.New("matrix: unexpected syncer type")
	}
	syncer.OnEventType(event.EventMessage, func(evCtx context.Context, evt *event.Event) {
		msg := evt.Content.AsMessage()
		if msg == nil || (msg.MsgType != event.MsgText && msg.MsgType != event.MsgNotice) {
			return
		}
		bridge.Handle(ctx, Message{
			RoomID: evt.RoomID.String(),
			Sender: evt.Sender.String(),
			Body:   msg.Body,
			SentAt: time.UnixMilli(evt.Timestamp),
		})
	})

	if _, err := c.mxc.JoinRoomByID(ctx, id.RoomID(c.cfg.RoomID)); err != nil {
		// mautrix returns an error even when already a member.
		c.logger.Info("matrix: join room result", "room", c.cfg.RoomID, "err", err)
	}

	const backoffMax = 5 * time.Minute
	backoff := 2 * time.Second
	for {
		err := c.mxc.SyncWithContext(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = 2 * time.Second
			continue
		}
		c.logger.Error("matrix: sync error; reconnecting", "err", err, "backoff", backoff)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff *= 2
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}
