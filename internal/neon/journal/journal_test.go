package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_AppliesMigrations(t *testing.T) {
	j := openTest(t)
	v, err := j.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 2 {
		t.Errorf("SchemaVersion = %d, want 2", v)
	}
}

func TestOpen_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := j.Record(ctx, Entry{SessionID: "s1", Input: "hi", Emotion: "calm", Outcome: OutcomeReply}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	j.Close()

	j, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Recent after reopen = %d entries, want 1", len(got))
	}
}

func TestRecordAndRecent(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{SessionID: "s1", StartedAt: base, Input: "hello", Emotion: "calm", Intensity: 0.5, Affection: 50, Rule: "default", Outcome: OutcomeReply, Reply: "Hi!", Attempts: 1, Duration: 1200 * time.Millisecond},
		{SessionID: "s1", StartedAt: base.Add(time.Minute), Input: "debug my json", Technical: true, Emotion: "calm", Intensity: 0.5, Affection: 50, Outcome: OutcomeTimeout, Reply: "Sorry, I spaced out for a second. Can you repeat that?"},
		{SessionID: "s1", StartedAt: base.Add(2 * time.Minute), Input: "you there?", Emotion: "calm", Intensity: 0.44, Affection: 49.75, Rule: "default", Outcome: OutcomeEmpty, Attempts: 3},
	}
	for i := range entries {
		id, err := j.Record(ctx, entries[i])
		if err != nil {
			t.Fatalf("Record[%d]: %v", i, err)
		}
		if id == "" {
			t.Fatalf("Record[%d] returned empty id", i)
		}
		entries[i].ID = id
	}

	got, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	want := []Entry{entries[2], entries[1]}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("Recent mismatch (-want +got):\n%s", diff)
	}

	counts, err := j.CountByOutcome(ctx)
	if err != nil {
		t.Fatalf("CountByOutcome: %v", err)
	}
	wantCounts := map[Outcome]int{OutcomeReply: 1, OutcomeTimeout: 1, OutcomeEmpty: 1}
	if diff := cmp.Diff(wantCounts, counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestRecent_NonPositive(t *testing.T) {
	got, err := openTest(t).Recent(context.Background(), 0)
	if err != nil || got != nil {
		t.Errorf("Recent(0) = %v, %v", got, err)
	}
}

func TestRecord_DuplicateIDFails(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	e := Entry{ID: "fixed", SessionID: "s", Emotion: "calm", Outcome: OutcomeReply}
	if _, err := j.Record(ctx, e); err != nil {
		t.Fatal(err)
	}
	if _, err := j.Record(ctx, e); err == nil {
		t.Error("second Record with same id = nil error")
	}
}

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		name    string
		version int
		desc    string
		ok      bool
	}{
		{"0001_turns.sql", 1, "turns", true},
		{"0002_turn_attempts.sql", 2, "turn_attempts", true},
		{"README.md", 0, "", false},
		{"abc_x.sql", 0, "", false},
		{"0003.sql", 0, "", false},
	}
	for _, tt := range tests {
		v, d, ok := parseMigrationName(tt.name)
		if v != tt.version || d != tt.desc || ok != tt.ok {
			t.Errorf("parseMigrationName(%q) = %d, %q, %v", tt.name, v, d, ok)
		}
	}
}
