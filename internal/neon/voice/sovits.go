package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultSoVITSBase    = "http://127.0.0.1:9880"
	defaultSoVITSTimeout = 120 * time.Second
)

// SoVITSConfig configures the GPT-SoVITS HTTP speaker.
type SoVITSConfig struct {
	// BaseURL is the api_v2 server root. Defaults to http://127.0.0.1:9880.
	BaseURL string
	// RefAudioPath and PromptText describe the reference clip, as seen by the
	// server. PromptText must match the clip's transcript exactly.
	RefAudioPath string
	PromptText   string
	// PromptLang and TextLang default to "en".
	PromptLang string
	TextLang   string
	// OutDir receives one WAV file per utterance. Defaults to os.TempDir().
	OutDir string
	// Player plays a rendered file, which Speak then deletes. Nil leaves the
	// file on disk unplayed.
	Player Player
	// Timeout bounds one synthesis request. Defaults to 120s.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// SoVITS is a Speaker backed by a GPT-SoVITS server.
type SoVITS struct {
	cfg    SoVITSConfig
	client *http.Client
	logger *slog.Logger
}

// NewSoVITS returns a SoVITS speaker, filling defaults.
func NewSoVITS(cfg SoVITSConfig) *SoVITS {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSoVITSBase
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PromptLang == "" {
		cfg.PromptLang = "en"
	}
	if cfg.TextLang == "" {
		cfg.TextLang = "en"
	}
	if cfg.OutDir == "" {
		cfg.OutDir = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSoVITSTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SoVITS{cfg: cfg, client: client, logger: logger}
}

type ttsRequest struct {
	Text              string  `json:"text"`
	TextLang          string  `json:"text_lang"`
	RefAudioPath      string  `json:"ref_audio_path"`
	PromptLang        string  `json:"prompt_lang"`
	PromptText        string  `json:"prompt_text"`
	TextSplitMethod   string  `json:"text_split_method"`
	TopK              int     `json:"top_k"`
	TopP              float64 `json:"top_p"`
	Temperature       float64 `json:"temperature"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	SpeedFactor       float64 `json:"speed_factor"`
	FragmentInterval  float64 `json:"fragment_interval"`
	MediaType         string  `json:"media_type"`
}

// Speak prepares text, synthesises it and plays the result. The rendered file
// is removed once the player returns.
func (s *SoVITS) Speak(ctx context.Context, text string) error {
	path, err := s.Render(ctx, text)
	if err != nil || path == "" {
		return err
	}
	if s.cfg.Player == nil {
		s.logger.Debug("voice: rendered without player", "path", path)
		return nil
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("voice: remove rendered wav", "path", path, "err", err)
		}
	}()
	if err := s.cfg.Player.Play(ctx, path); err != nil {
		return fmt.Errorf("voice: play %s: %w", path, err)
	}
	return nil
}

// Render synthesises text into a WAV file under OutDir and returns its path.
// It returns "" without calling the server when nothing speakable is left.
func (s *SoVITS) Render(ctx context.Context, text string) (string, error) {
	prepared := PrepareText(text)
	if prepared == "" {
		return "", nil
	}
	data, err := json.Marshal(ttsRequest{
		Text:              prepared,
		TextLang:          s.cfg.TextLang,
		RefAudioPath:      s.cfg.RefAudioPath,
		PromptLang:        s.cfg.PromptLang,
		PromptText:        s.cfg.PromptText,
		TextSplitMethod:   "cut0",
		TopK:              15,
		TopP:              0.9,
		Temperature:       0.85,
		RepetitionPenalty: 1.25,
		SpeedFactor:       0.8,
		FragmentInterval:  0.3,
		MediaType:         "wav",
	})
	if err != nil {
		return "", fmt.Errorf("voice: marshal tts request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/tts", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("voice: build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice: tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("voice: tts returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := os.MkdirAll(s.cfg.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("voice: create out dir: %w", err)
	}
	f, err := os.CreateTemp(s.cfg.OutDir, "neon-*.wav")
	if err != nil {
		return "", fmt.Errorf("voice: create wav: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("voice: write wav: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("voice: close wav: %w", err)
	}
	return filepath.Clean(f.Name()), nil
}

// SetModels points the server at GPT and SoVITS weight files. An empty path
// leaves that model as the server has it.
func (s *SoVITS) SetModels(ctx context.Context, gptWeights, sovitsWeights string) error {
	if gptWeights != "" {
		if err := s.get(ctx, "/set_gpt_weights", url.Values{"weights_path": {gptWeights}}); err != nil {
			return fmt.Errorf("voice: set gpt weights: %w", err)
		}
	}
	if sovitsWeights != "" {
		if err := s.get(ctx, "/set_sovits_weights", url.Values{"weights_path": {sovitsWeights}}); err != nil {
			return fmt.Errorf("voice: set sovits weights: %w", err)
		}
	}
	s.logger.Info("voice: models set", "gpt", gptWeights, "sovits", sovitsWeights)
	return nil
}

// SetReference sets the server's default reference clip.
func (s *SoVITS) SetReference(ctx context.Context, refAudioPath string) error {
	if err := s.get(ctx, "/set_refer_audio", url.Values{"refer_audio_path": {refAudioPath}}); err != nil {
		return fmt.Errorf("voice: set reference: %w", err)
	}
	s.logger.Info("voice: reference set", "path", refAudioPath)
	return nil
}

func (s *SoVITS) get(ctx context.Context, path string, q url.Values) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
