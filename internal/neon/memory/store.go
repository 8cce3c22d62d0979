package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bdobrica/Neon/internal/neon/affect"
)

// Store persists the affect Record as a JSON file.
type Store struct {
	mu     sync.Mutex
	path   string
	rec    Record
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// Open loads the record at path. A missing file yields the default record; an
// unreadable, corrupt or mistyped file is logged and replaced by the default
// record in memory (the file itself is only rewritten on the next Save).
// Open fails only when the parent directory cannot be created.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("memory: create state dir: %w", err)
	}
	s.rec = s.load()
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s *Store) load() Record {
	rec := DefaultRecord(s.now())

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("memory: no saved state; starting fresh", "path", s.path)
		return rec
	}
	if err != nil {
		s.logger.Warn("memory: state file unreadable; resetting memory", "path", s.path, "err", err)
		return rec
	}
	if err := validateRecord(data); err != nil {
		s.logger.Warn("memory: state file corrupted; resetting memory", "path", s.path, "err", err)
		return rec
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("memory: state file corrupted; resetting memory", "path", s.path, "err", err)
		return DefaultRecord(s.now())
	}
	return sanitizeRecord(rec)
}

// sanitizeRecord repairs values that are well-typed but out of range.
func sanitizeRecord(r Record) Record {
	r.Affection = affect.ClampAffection(r.Affection)
	r.Emotion = string(affect.ParseEmotion(r.Emotion))
	if r.TotalTurns < 0 {
		r.TotalTurns = 0
	}
	if math.IsNaN(r.LastInteraction) || math.IsInf(r.LastInteraction, 0) {
		r.LastInteraction = 0
	}
	if r.UserName == "" {
		r.UserName = DefaultUserName
	}
	return r
}

// Record returns a copy of the in-memory record.
func (s *Store) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// Stats summarises the record for display.
func (s *Store) Stats() Stats {
	r := s.Record()
	return Stats{
		UserName:  r.UserName,
		Affection: math.Round(r.Affection*10) / 10,
		Turns:     r.TotalTurns,
	}
}

// Save merges the live state into the record, adopts a name if the user
// introduced themselves, and writes the file atomically. The in-memory record
// is updated even when the write fails so the next Save can recover.
func (s *Store) Save(state affect.State, lastUserText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.Affection = affect.ClampAffection(state.Affection)
	s.rec.Emotion = string(affect.ParseEmotion(string(state.Emotion)))
	s.rec.LastInteraction = epochSeconds(s.now())
	s.rec.TotalTurns++

	if name, ok := ExtractName(lastUserText); ok && name != s.rec.UserName {
		s.logger.Info("memory: learned user name", "name", name)
		s.rec.UserName = name
	}

	data, err := json.MarshalIndent(s.rec, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshal state: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("memory: save state: %w", err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path only after the write and fsync succeed, so a crash
// never leaves a truncated or missing primary file.
func writeFileAtomic(path string, data []byte, mode fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
