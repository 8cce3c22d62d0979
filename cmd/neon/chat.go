package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bdobrica/Neon/internal/neon/app"
	"github.com/bdobrica/Neon/internal/neon/session"
	"github.com/bdobrica/Neon/internal/neon/voice"
)

// Farewell is printed (and spoken) when the user leaves the chat.
const Farewell = "Bye bye! Take care."

func (c *cli) runChat(ctx context.Context) error {
	a, err := app.New(ctx, c.cfg)
	if err != nil {
		return err
	}

	bgCtx, cancel := context.WithCancel(ctx)
	bgDone := make(chan error, 1)
	go func() { bgDone <- a.RunBackground(bgCtx) }()

	replErr := c.repl(ctx, a)
	cancel()
	if err := <-bgDone; err != nil {
		c.logger().Error("neon: background task failed", "err", err)
	}
	return errors.Join(replErr, a.Close())
}

// readLines feeds stdin lines to a channel so the REPL can also observe ctx.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// repl runs the interactive loop until the user says goodbye, stdin closes or
// ctx is cancelled.
func (c *cli) repl(ctx context.Context, a *app.App) error {
	s := a.Session()
	log := c.logger()
	voiceOn := a.VoiceEnabled()

	var speaking <-chan struct{}
	waitSpeech := func() {
		if speaking == nil {
			return
		}
		select {
		case <-speaking:
		case <-ctx.Done():
		}
		speaking = nil
	}
	say := func(text string) {
		if text == "" {
			return
		}
		printNeon(c.out, text)
		if voiceOn {
			waitSpeech()
			speaking = voice.SpeakAsync(ctx, a.Speaker(), text, log)
		}
	}
	reply := func(r session.Reply) {
		if r.Kind == session.ReplyNone {
			return
		}
		say(r.Text)
		printSystem(c.out, "%s", moodLine(s.Snapshot()))
	}
	goodbye := func() {
		say(Farewell)
		waitSpeech()
	}

	st := a.Stats()
	fmt.Fprintln(c.out, bannerStyle.Render(fmt.Sprintf("NEON ONLINE  ·  %s  ·  affection %.1f  ·  turns %d", st.UserName, st.Affection, st.Turns)))
	printSystem(c.out, "exit/quit/bye to leave · v toggles voice (%s) · empty line listens · reset clears short-term memory", onOff(voiceOn))

	r, err := s.Greet(ctx)
	if err != nil {
		return err
	}
	reply(r)

	lines := readLines(ctx, c.in)
	for {
		fmt.Fprint(c.out, userStyle.Render("You:")+" ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.out)
			goodbye()
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.out)
				waitSpeech()
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "exit", "quit", "bye":
			goodbye()
			return nil
		case "v":
			voiceOn = !voiceOn
			printSystem(c.out, "voice %s", onOff(voiceOn))
			continue
		case "reset":
			s.ResetHistory()
			printSystem(c.out, "short-term memory cleared")
			continue
		case "":
			if !voiceOn {
				continue
			}
			waitSpeech()
			printSystem(c.out, "listening...")
			heard, err := a.Listener().Listen(ctx)
			if errors.Is(err, voice.ErrDisabled) {
				printSystem(c.out, "voice input is not configured (NEON_LISTEN_COMMAND)")
				continue
			}
			if err != nil {
				log.Warn("voice: listen failed", "err", err)
				continue
			}
			if heard == "" {
				continue
			}
			fmt.Fprintf(c.out, "%s %s\n", userStyle.Render("You (voice):"), heard)
			line = heard
		}

		r, err := s.Turn(ctx, line)
		if err != nil {
			return err
		}
		reply(r)
	}
}
