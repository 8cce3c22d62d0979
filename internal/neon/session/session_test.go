package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bdobrica/Neon/internal/neon/affect"
	"github.com/bdobrica/Neon/internal/neon/journal"
	"github.com/bdobrica/Neon/internal/neon/llm"
	"github.com/bdobrica/Neon/internal/neon/memory"
)

// --- fakes ---

type fakeReply struct {
	content string
	err     error
}

type fakeProvider struct {
	mu       sync.Mutex
	replies  []fakeReply
	requests []llm.Request
	inFlight atomic.Int32
	overlap  atomic.Bool
	delay    time.Duration
	block    bool
}

func (p *fakeProvider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if p.inFlight.Add(1) > 1 {
		p.overlap.Store(true)
	}
	defer p.inFlight.Add(-1)

	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	r := fakeReply{content: "ok"}
	if len(p.replies) > 0 {
		r = p.replies[0]
		p.replies = p.replies[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Response{Content: r.content, Attempts: 1}, nil
}

func (p *fakeProvider) lastRequest(t *testing.T) llm.Request {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		t.Fatal("provider was not called")
	}
	return p.requests[len(p.requests)-1]
}

type save struct {
	state affect.State
	input string
}

type fakeStore struct {
	mu      sync.Mutex
	context string
	saves   []save
	err     error
}

func (s *fakeStore) Restore(engine memory.Seeder) string {
	engine.Seed(affect.Calm, 50)
	return s.context
}

func (s *fakeStore) Save(state affect.State, input string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, save{state, input})
	return s.err
}

type fakeJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (j *fakeJournal) Record(_ context.Context, e journal.Entry) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return "id", nil
}

type staticInstructions string

func (s staticInstructions) Build(affect.Emotion, float64, float64) string { return string(s) }

type fixture struct {
	sess     *Session
	engine   *affect.Engine
	provider *fakeProvider
	store    *fakeStore
	journal  *fakeJournal
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		engine:   affect.NewEngine(),
		provider: &fakeProvider{},
		store:    &fakeStore{},
		journal:  &fakeJournal{},
	}
	sess, err := New(cfg, Deps{
		Engine:       f.engine,
		Store:        f.store,
		Provider:     f.provider,
		Instructions: staticInstructions("SYSTEM PROMPT"),
		Journal:      f.journal,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.sess = sess
	return f
}

// --- tests ---

func TestNew_MissingDeps(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{Engine: affect.NewEngine()})
	if err == nil {
		t.Fatal("New() = nil error, want missing deps")
	}
	for _, name := range []string{"Store", "Provider", "Instructions"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not name %s", err, name)
		}
	}
}

func TestTurn_NilSession(t *testing.T) {
	var s *Session
	if _, err := s.Turn(context.Background(), "hi"); !errors.Is(err, ErrNilSession) {
		t.Errorf("err = %v, want ErrNilSession", err)
	}
}

func TestTurn_BlankInputIsNoop(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	before := f.engine.Snapshot()

	for _, in := range []string{"", "   ", "\n\t"} {
		reply, err := f.sess.Turn(context.Background(), in)
		if err != nil || reply.Kind != ReplyNone || reply.Text != "" {
			t.Errorf("Turn(%q) = %+v, %v", in, reply, err)
		}
	}
	if len(f.provider.requests) != 0 || len(f.store.saves) != 0 || len(f.journal.entries) != 0 {
		t.Error("blank input reached a collaborator")
	}
	if f.engine.Snapshot() != before {
		t.Error("blank input changed affect state")
	}
}

func TestTurn_RequestShape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model = "neon"
	cfg.Options = llm.DefaultOllamaOptions()
	f := newFixture(t, cfg)

	if _, err := f.sess.Turn(context.Background(), "  hello there  "); err != nil {
		t.Fatal(err)
	}
	req := f.provider.lastRequest(t)
	want := []llm.Message{llm.System("SYSTEM PROMPT"), llm.User("hello there")}
	if diff := cmp.Diff(want, req.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if req.Model != "neon" || req.Options["num_ctx"] != 2048 {
		t.Errorf("model/options not forwarded: %q %v", req.Model, req.Options)
	}
}

func TestTurn_BootContextConsumedOnce(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.store.context = "[SYSTEM CONTEXT: Continued conversation with Asha.]"
	f.sess.Boot()

	if got := f.sess.BootContext(); got != f.store.context {
		t.Fatalf("BootContext() = %q", got)
	}
	if _, err := f.sess.Turn(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	first := f.provider.lastRequest(t).Messages[0].Content
	if first != f.store.context+"\nSYSTEM PROMPT" {
		t.Errorf("first system message = %q", first)
	}
	if f.sess.BootContext() != "" {
		t.Error("boot context not cleared after first turn")
	}

	if _, err := f.sess.Turn(context.Background(), "again"); err != nil {
		t.Fatal(err)
	}
	if second := f.provider.lastRequest(t).Messages[0].Content; second != "SYSTEM PROMPT" {
		t.Errorf("second system message = %q", second)
	}
}

func TestTurn_BootContextConsumedEvenOnFallback(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.store.context = "[SYSTEM CONTEXT: x]"
	f.sess.Boot()
	f.provider.replies = []fakeReply{{err: errors.New("down")}}

	if _, err := f.sess.Turn(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if f.sess.BootContext() != "" {
		t.Error("boot context survived a failed turn")
	}
}

func TestTurn_TechnicalSkipsAffectUpdate(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	before := f.engine.Snapshot()

	if _, err := f.sess.Turn(context.Background(), "I HATE this python error!!!"); err != nil {
		t.Fatal(err)
	}
	if got := f.engine.Snapshot(); got != before {
		t.Errorf("technical turn changed state: %+v -> %+v", before, got)
	}
	if len(f.store.saves) != 1 {
		t.Fatalf("saves = %d, want 1", len(f.store.saves))
	}
	if e := f.journal.entries[0]; !e.Technical || e.Rule != "" {
		t.Errorf("journal entry = %+v", e)
	}

	if _, err := f.sess.Turn(context.Background(), "I love you!"); err != nil {
		t.Fatal(err)
	}
	if f.engine.Snapshot() == before {
		t.Error("social turn did not update state")
	}
}

func TestIsTechnical(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"help me DEBUG this", true},
		{"what is an API", true},
		{"def main():", true},
		{"define love", false},
		{"my classes start soon", false},
		{"first class ticket", true},
		{"you're so cute", false},
	}
	for _, tt := range tests {
		if got := IsTechnical(tt.in, DefaultTechKeywords); got != tt.want {
			t.Errorf("IsTechnical(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTurn_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantText string
		wantKind ReplyKind
		outcome  journal.Outcome
	}{
		{"timeout", llm.ErrTimeout, TimeoutReply, ReplyFallbackTimeout, journal.OutcomeTimeout},
		{"deadline", context.DeadlineExceeded, TimeoutReply, ReplyFallbackTimeout, journal.OutcomeTimeout},
		{"status", &llm.StatusError{StatusCode: 500}, ErrorReply, ReplyFallbackError, journal.OutcomeError},
		{"transport", errors.New("connection refused"), ErrorReply, ReplyFallbackError, journal.OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			f.provider.replies = []fakeReply{{err: tt.err}}

			reply, err := f.sess.Turn(context.Background(), "hello")
			if err != nil {
				t.Fatalf("Turn: %v", err)
			}
			if reply.Text != tt.wantText || reply.Kind != tt.wantKind {
				t.Errorf("reply = %+v", reply)
			}
			if len(f.sess.History()) != 0 {
				t.Error("fallback mutated history")
			}
			if len(f.store.saves) != 0 {
				t.Error("fallback persisted state")
			}
			if got := f.journal.entries[0].Outcome; got != tt.outcome {
				t.Errorf("journal outcome = %q, want %q", got, tt.outcome)
			}
		})
	}
}

func TestTurn_TimeoutBoundsBackendCall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	f := newFixture(t, cfg)
	f.provider.block = true

	start := time.Now()
	reply, err := f.sess.Turn(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Kind != ReplyFallbackTimeout {
		t.Errorf("Kind = %v, want timeout fallback", reply.Kind)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("turn took %v", elapsed)
	}
}

func TestTurn_EmptyContentIsNoReply(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.provider.replies = []fakeReply{{content: ""}}

	reply, err := f.sess.Turn(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Kind != ReplyNone || reply.Text != "" {
		t.Errorf("reply = %+v", reply)
	}
	if len(f.sess.History()) != 0 || len(f.store.saves) != 0 {
		t.Error("empty reply mutated history or store")
	}
}

func TestTurn_SanitizesReply(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	raw := "*smirks* hey there , idk rn [note]User: what"
	f.provider.replies = []fakeReply{{content: raw}}

	reply, err := f.sess.Turn(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Kind != ReplyModel || reply.Text != "Hey there, I don't know right now" {
		t.Errorf("reply = %+v", reply)
	}
	// History keeps the raw model text.
	h := f.sess.History()
	if len(h) != 2 || h[1].Content != raw {
		t.Errorf("history = %+v", h)
	}
}

func TestTurn_HistoryWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHistoryPairs = 2
	f := newFixture(t, cfg)

	inputs := []string{"one", "two", "three", "four"}
	for _, in := range inputs {
		f.provider.replies = append(f.provider.replies, fakeReply{content: "re " + in})
	}
	for _, in := range inputs {
		if _, err := f.sess.Turn(context.Background(), in); err != nil {
			t.Fatal(err)
		}
	}

	want := []llm.Message{
		llm.User("three"), llm.Assistant("re three"),
		llm.User("four"), llm.Assistant("re four"),
	}
	if diff := cmp.Diff(want, f.sess.History()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	// The fourth request carried the two previous pairs.
	gotReq := f.provider.lastRequest(t).Messages
	wantReq := []llm.Message{
		llm.System("SYSTEM PROMPT"),
		llm.User("two"), llm.Assistant("re two"),
		llm.User("three"), llm.Assistant("re three"),
		llm.User("four"),
	}
	if diff := cmp.Diff(wantReq, gotReq); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestTurn_SavesPostUpdateState(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	if _, err := f.sess.Turn(context.Background(), "my name is asha"); err != nil {
		t.Fatal(err)
	}
	if len(f.store.saves) != 1 {
		t.Fatalf("saves = %d", len(f.store.saves))
	}
	got := f.store.saves[0]
	if got.input != "my name is asha" || got.state != f.engine.Snapshot() {
		t.Errorf("save = %+v, engine = %+v", got, f.engine.Snapshot())
	}
}

func TestTurn_SaveFailureStillReplies(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.store.err = errors.New("disk full")
	reply, err := f.sess.Turn(context.Background(), "hello")
	if err != nil || reply.Kind != ReplyModel {
		t.Errorf("Turn = %+v, %v", reply, err)
	}
	if len(f.sess.History()) != 2 {
		t.Error("history not updated after save failure")
	}
}

func TestResetHistory(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	if _, err := f.sess.Turn(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	state := f.engine.Snapshot()
	f.sess.ResetHistory()
	if len(f.sess.History()) != 0 {
		t.Error("history not cleared")
	}
	if f.engine.Snapshot() != state {
		t.Error("ResetHistory touched affect state")
	}
}

func TestGreet(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.sess.Boot()
	reply, err := f.sess.Greet(context.Background())
	if err != nil || reply.Kind != ReplyNone || len(f.provider.requests) != 0 {
		t.Errorf("Greet without boot context = %+v, %v (calls %d)", reply, err, len(f.provider.requests))
	}

	f = newFixture(t, DefaultConfig())
	f.store.context = "[SYSTEM CONTEXT: Asha is back after a break. Be welcoming.]"
	f.sess.Boot()
	f.provider.replies = []fakeReply{{content: "Oh, look who's back"}}
	reply, err = f.sess.Greet(context.Background())
	if err != nil || reply.Kind != ReplyModel {
		t.Fatalf("Greet = %+v, %v", reply, err)
	}
	msgs := f.provider.lastRequest(t).Messages
	if last := msgs[len(msgs)-1]; last != llm.User(GreetingInput) {
		t.Errorf("greeting input = %+v", last)
	}
}

func TestShutdown_SavesExitMarker(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	if err := f.sess.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if len(f.store.saves) != 1 || f.store.saves[0].input != ExitMarker {
		t.Errorf("saves = %+v", f.store.saves)
	}

	f.store.err = errors.New("ro fs")
	if err := f.sess.Shutdown(); err == nil {
		t.Error("Shutdown() = nil, want wrapped save error")
	}
}

func TestTurn_Serialised(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.provider.delay = 5 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.sess.Turn(context.Background(), "hello")
		}()
	}
	wg.Wait()
	if f.provider.overlap.Load() {
		t.Error("turns overlapped")
	}
	if got := len(f.sess.History()); got != 16 {
		t.Errorf("history length = %d, want 16", got)
	}
}

func TestSession_WithRealStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := memory.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	engine := affect.NewEngine()
	sess, err := New(DefaultConfig(), Deps{
		Engine:       engine,
		Store:        store,
		Provider:     &fakeProvider{replies: []fakeReply{{content: "Nice to meet you"}}},
		Instructions: staticInstructions("p"),
	})
	if err != nil {
		t.Fatal(err)
	}
	sess.Boot()
	if !strings.Contains(sess.BootContext(), "restarted the chat instantly") {
		t.Errorf("first-run boot context = %q", sess.BootContext())
	}
	if _, err := sess.Turn(context.Background(), "my name is asha"); err != nil {
		t.Fatal(err)
	}
	if err := sess.Shutdown(); err != nil {
		t.Fatal(err)
	}

	reopened, err := memory.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	st := reopened.Stats()
	if st.UserName != "Asha" || st.Turns != 2 {
		t.Errorf("stats after shutdown = %+v", st)
	}
}
