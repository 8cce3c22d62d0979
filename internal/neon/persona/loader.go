package persona

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Neon/internal/neon/affect"
)

const configSchemaURL = "https://schemas.neon.local/persona/config.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the JSON schema of Config. Unknown keys are rejected so
// that typos in a persona file do not pass silently.
func Schema() ([]byte, error) {
	r := &invopop.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	return r.Reflect(&Config{}).MarshalJSON()
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := Schema()
		if err != nil {
			schemaErr = fmt.Errorf("persona: reflect schema: %w", err)
			return
		}
		schema, schemaErr = jsonschema.CompileString(configSchemaURL, string(raw))
		if schemaErr != nil {
			schemaErr = fmt.Errorf("persona: compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// validateDocument checks a decoded YAML document against the schema. The
// document is round-tripped through JSON so the validator sees JSON types.
func validateDocument(doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("persona: encode document: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("persona: decode document: %w", err)
	}
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	return sch.Validate(v)
}

// Loader holds the live persona and allows safe hot reloads. A zero Loader is
// not usable; construct it with NewLoader.
type Loader struct {
	mu     sync.RWMutex
	config Config
	hash   string
	logger *slog.Logger
}

// NewLoader returns a Loader serving DefaultConfig until a file is applied.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{config: DefaultConfig(), logger: logger}
}

// LoadFile reads a YAML file from disk, validates it and applies it.
func (l *Loader) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("persona: read %s: %w", path, err)
	}
	return l.Apply(data)
}

// Apply parses a YAML payload, overlays it on DefaultConfig, validates the
// result and swaps it in. On any error the live config is left untouched.
func (l *Loader) Apply(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("persona: parse yaml: %w", err)
	}
	if doc != nil {
		if err := validateDocument(doc); err != nil {
			return fmt.Errorf("persona: invalid config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("persona: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("persona: invalid config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := hex.EncodeToString(h[:])

	l.mu.Lock()
	l.config = cfg
	l.hash = hash
	l.mu.Unlock()

	l.logger.Info("persona: config applied", "name", cfg.Name, "hash", shortHash(hash))
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// Config returns a copy of the live config.
func (l *Loader) Config() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Hash returns the SHA-256 hex digest of the applied YAML, or "" when the
// built-in default is live.
func (l *Loader) Hash() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hash
}

// Build renders the system instruction with the live config.
func (l *Loader) Build(emotion affect.Emotion, intensity, affection float64) string {
	cfg := l.Config()
	return cfg.Build(emotion, intensity, affection)
}

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 200 * time.Millisecond

// Watch reloads path whenever it changes until ctx is cancelled. The parent
// directory is watched so rename-on-save editors are handled. Invalid edits
// are logged and the previous config stays live.
func (l *Loader) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("persona: create watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("persona: resolve %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("persona: watch %s: %w", filepath.Dir(abs), err)
	}
	l.logger.Info("persona: watching for changes", "path", abs)

	var (
		timer   *time.Timer
		reloadC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			reloadC = timer.C

		case <-reloadC:
			reloadC = nil
			prev := l.Hash()
			if err := l.LoadFile(abs); err != nil {
				l.logger.Warn("persona: reload rejected; keeping previous config", "err", err)
				continue
			}
			if h := l.Hash(); h != prev {
				l.logger.Info("persona: reloaded", "path", abs, "hash", shortHash(h), "previous", shortHash(prev))
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("persona: watcher error", "err", err)
		}
	}
}
