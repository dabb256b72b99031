package engine_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"coverfill/internal/catalog"
	"coverfill/internal/engine"
	"coverfill/internal/provider"
	"coverfill/internal/services"
	"coverfill/internal/testsupport"
)

type recorder struct {
	mu        sync.Mutex
	steps     []engine.State
	awaiting  []engine.Pending
	completed [][]catalog.Item
}

func (r *recorder) hooks() engine.Hooks {
	return engine.Hooks{
		OnStep: func(s engine.State) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.steps = append(r.steps, s)
		},
		OnAwaiting: func(p engine.Pending) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.awaiting = append(r.awaiting, p)
		},
		OnComplete: func(items []catalog.Item) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.completed = append(r.completed, items)
		},
	}
}

func newEngine(t *testing.T, items []catalog.Item, rec *recorder, backends ...provider.Backend) *engine.Engine {
	t.Helper()
	opts := []engine.Option{engine.WithStepDelay(0)}
	if rec != nil {
		opts = append(opts, engine.WithHooks(rec.hooks()))
	}
	return engine.New(provider.NewChain(backends), items, opts...)
}

func items(names ...string) []catalog.Item {
	out := make([]catalog.Item, len(names))
	for i, name := range names {
		out[i] = catalog.Item{Name: name, Status: catalog.StatusPending}
	}
	return out
}

func exactWithCover(url string) provider.Result {
	return provider.ExactMatch("", &catalog.Cover{ID: 1, URL: url}, &catalog.Metadata{Name: "Canonical"})
}

func mustRun(t *testing.T, eng *engine.Engine) {
	t.Helper()
	if err := eng.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestHaloPortalScenario(t *testing.T) {
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"Halo": exactWithCover("https://img/halo.png"),
		},
	}
	b := &testsupport.StubBackend{
		BackendName: "b",
		Results: map[string]provider.Result{
			"Portal": {Kind: provider.KindSuggestions, Candidates: []catalog.Candidate{{ID: 7, DisplayName: "Portal 2"}}},
		},
	}
	rec := &recorder{}
	eng := newEngine(t, items("Halo", "Halo", "Portal"), rec, a, b)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustRun(t, eng)

	state := eng.State()
	if state.Mode != engine.ModeAwaiting {
		t.Fatalf("expected awaiting, got %s", state.Mode)
	}
	if state.Cursor != 2 {
		t.Fatalf("expected cursor 2 while awaiting, got %d", state.Cursor)
	}
	if state.Pending == nil || state.Pending.Item.Name != "Portal" {
		t.Fatalf("unexpected pending: %#v", state.Pending)
	}
	if len(rec.awaiting) != 1 || len(rec.awaiting[0].Candidates) != 1 || rec.awaiting[0].Candidates[0].Provider != "b" {
		t.Fatalf("unexpected awaiting hook calls: %#v", rec.awaiting)
	}
	if got := a.Calls(); len(got) != 2 || got[0] != "Halo" || got[1] != "Portal" {
		t.Fatalf("second Halo should be skipped, backend a saw %v", got)
	}

	if err := eng.Resolve(engine.Skip()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	mustRun(t, eng)

	state = eng.State()
	if state.Mode != engine.ModeIdle || !state.Completed {
		t.Fatalf("expected completed idle engine, got %s completed=%v", state.Mode, state.Completed)
	}
	if len(rec.completed) != 1 {
		t.Fatalf("expected one completion, got %d", len(rec.completed))
	}
	merged := rec.completed[0]
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged entries, got %d: %#v", len(merged), merged)
	}
	if merged[0].Name != "Halo" || merged[0].Status != catalog.StatusCompleted || merged[0].CoverURL != "https://img/halo.png" {
		t.Fatalf("unexpected Halo entry: %#v", merged[0])
	}
	if merged[0].DisplayName != "Canonical" {
		t.Fatalf("expected metadata name as display name, got %q", merged[0].DisplayName)
	}
	if merged[1].Name != "Portal" || merged[1].Status != catalog.StatusNoResults {
		t.Fatalf("unexpected Portal entry: %#v", merged[1])
	}
}

func TestPauseDuringLookupCommitsCompletedOutcome(t *testing.T) {
	var eng *engine.Engine
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"A": exactWithCover("https://img/a.png"),
			"B": exactWithCover("https://img/b.png"),
			"C": exactWithCover("https://img/c.png"),
			"D": exactWithCover("https://img/d.png"),
			"E": exactWithCover("https://img/e.png"),
		},
		BeforeLookup: func(_ context.Context, name string) {
			if name == "C" {
				if err := eng.Pause(); err != nil {
					t.Errorf("Pause: %v", err)
				}
			}
		},
	}
	eng = newEngine(t, items("A", "B", "C", "D", "E"), nil, a)

	if err := eng.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustRun(t, eng)

	state := eng.State()
	if state.Mode != engine.ModePaused {
		t.Fatalf("expected paused, got %s", state.Mode)
	}
	if state.Cursor != 2 {
		t.Fatalf("expected cursor to stay at 2, got %d", state.Cursor)
	}
	if got, ok := state.Accumulated.Get("C"); !ok || got.Status != catalog.StatusCompleted {
		t.Fatalf("expected completed outcome to be committed, got %#v ok=%v", got, ok)
	}

	if err := eng.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	mustRun(t, eng)

	calls := a.Calls()
	count := 0
	for _, name := range calls {
		if name == "C" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("completed item must not be looked up again, calls=%v", calls)
	}
	if state := eng.State(); !state.Completed || state.Accumulated.Len() != 5 {
		t.Fatalf("expected all 5 items processed, got %d", state.Accumulated.Len())
	}
}

func TestPauseDuringLookupDiscardsOtherOutcomes(t *testing.T) {
	var eng *engine.Engine
	paused := false
	a := &testsupport.StubBackend{
		BackendName: "a",
		BeforeLookup: func(_ context.Context, name string) {
			if name == "C" && !paused {
				paused = true
				_ = eng.Pause()
			}
		},
	}
	eng = newEngine(t, items("A", "B", "C", "D", "E"), nil, a)
	_ = eng.Start()
	mustRun(t, eng)

	state := eng.State()
	if state.Mode != engine.ModePaused || state.Cursor != 2 {
		t.Fatalf("expected paused at 2, got %s at %d", state.Mode, state.Cursor)
	}
	if state.Accumulated.Has("C") {
		t.Fatal("not-found outcome must be discarded while pausing")
	}

	_ = eng.Resume()
	mustRun(t, eng)

	count := 0
	for _, name := range a.Calls() {
		if name == "C" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected C to be retried after resume, looked up %d times", count)
	}
	if got, _ := eng.State().Accumulated.Get("C"); got.Status != catalog.StatusNoResults {
		t.Fatalf("expected no_results for C, got %s", got.Status)
	}
}

func TestFailureNeverFallsBack(t *testing.T) {
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"Broken": provider.Failure("", services.Wrap(services.ErrTransient, "a", "lookup", "status 503", nil)),
		},
	}
	b := &testsupport.StubBackend{
		BackendName: "b",
		Results: map[string]provider.Result{
			"Broken": exactWithCover("https://img/b.png"),
		},
	}
	eng := newEngine(t, items("Broken", "Next"), nil, a, b)
	_ = eng.Start()
	mustRun(t, eng)

	state := eng.State()
	got, _ := state.Accumulated.Get("Broken")
	if got.Status != catalog.StatusErrored {
		t.Fatalf("expected errored, got %s", got.Status)
	}
	for _, name := range b.Calls() {
		if name == "Broken" {
			t.Fatal("failure must not fall back to the next backend")
		}
	}
	if next, ok := state.Accumulated.Get("Next"); !ok || next.Status != catalog.StatusNoResults {
		t.Fatalf("run should proceed past the failure, got %#v", next)
	}
}

func TestNotFoundMarkedFailureIsErrored(t *testing.T) {
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"Halo": provider.Failure("", provider.StatusError("a", "search", http.StatusNotFound, 0)),
		},
	}
	eng := newEngine(t, items("Halo"), nil, a)
	_ = eng.Start()
	mustRun(t, eng)

	got, _ := eng.State().Accumulated.Get("Halo")
	if got.Status != catalog.StatusErrored {
		t.Fatalf("expected a failed lookup to be errored even when it wraps not found, got %s", got.Status)
	}
}

func TestPauseDuringLookupRecordsFailure(t *testing.T) {
	var eng *engine.Engine
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"Halo": provider.Failure("", services.Wrap(services.ErrTransient, "a", "lookup", "status 503", nil)),
		},
		BeforeLookup: func(_ context.Context, name string) {
			if name == "Halo" {
				_ = eng.Pause()
			}
		},
	}
	eng = newEngine(t, items("Halo", "Portal"), nil, a)
	_ = eng.Start()
	mustRun(t, eng)

	state := eng.State()
	if state.Mode != engine.ModePaused || state.Cursor != 1 {
		t.Fatalf("expected paused past the failure at 1, got %s at %d", state.Mode, state.Cursor)
	}
	if got, ok := state.Accumulated.Get("Halo"); !ok || got.Status != catalog.StatusErrored {
		t.Fatalf("expected errored Halo to be recorded, got %#v ok=%v", got, ok)
	}

	_ = eng.Resume()
	mustRun(t, eng)

	if calls := a.Calls(); len(calls) != 2 || calls[0] != "Halo" || calls[1] != "Portal" {
		t.Fatalf("failed item must not be looked up again, calls=%v", calls)
	}
	if !eng.State().Completed {
		t.Fatal("expected run to complete after resume")
	}
}

func TestExactMatchKeepsInputYear(t *testing.T) {
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"Halo": provider.ExactMatch("",
				&catalog.Cover{ID: 1, URL: "https://img/halo.png"},
				&catalog.Metadata{Name: "Halo: Combat Evolved", Year: "2001", Description: "Ring world"}),
		},
	}
	input := []catalog.Item{{Name: "Halo", ReleaseYear: "2004"}}
	eng := newEngine(t, input, nil, a)
	_ = eng.Start()
	mustRun(t, eng)

	got, _ := eng.State().Accumulated.Get("Halo")
	if got.Status != catalog.StatusCompleted || got.CoverURL != "https://img/halo.png" {
		t.Fatalf("expected completed with cover, got %#v", got)
	}
	if got.ReleaseYear != "2004" {
		t.Fatalf("input year must win over provider year, got %q", got.ReleaseYear)
	}
	if got.Description != "Ring world" {
		t.Fatalf("empty description should be filled, got %q", got.Description)
	}
	if flags := a.KnownFlags(); len(flags) != 1 || !flags[0].HasYear || flags[0].HasImage {
		t.Fatalf("unexpected known flags: %#v", flags)
	}
}

func TestExactMatchWithoutCover(t *testing.T) {
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"Bare":  provider.ExactMatch("", nil, &catalog.Metadata{Year: "1998"}),
			"Known": provider.ExactMatch("", nil, &catalog.Metadata{Description: "desc"}),
		},
	}
	input := []catalog.Item{
		{Name: "Bare"},
		{Name: "Known", CoverURL: "https://img/existing.png"},
	}
	eng := newEngine(t, input, nil, a)
	_ = eng.Start()
	mustRun(t, eng)

	state := eng.State()
	bare, _ := state.Accumulated.Get("Bare")
	if bare.Status != catalog.StatusNoResults || bare.ReleaseYear != "1998" {
		t.Fatalf("expected no_results with metadata, got %#v", bare)
	}
	known, _ := state.Accumulated.Get("Known")
	if known.Status != catalog.StatusCompleted || known.CoverURL != "https://img/existing.png" || known.Description != "desc" {
		t.Fatalf("expected completed with existing image kept, got %#v", known)
	}
	flags := a.KnownFlags()
	if len(flags) != 2 || flags[0].HasImage || !flags[1].HasImage {
		t.Fatalf("unexpected known flags: %#v", flags)
	}
}

func TestLookupUsesNormalizedName(t *testing.T) {
	a := &testsupport.StubBackend{BackendName: "a"}
	eng := newEngine(t, items("Halo (PC)"), nil, a)
	_ = eng.Start()
	mustRun(t, eng)
	if got := a.Calls(); len(got) != 1 || got[0] != "Halo" {
		t.Fatalf("expected normalized query, got %v", got)
	}
	if !eng.State().Accumulated.Has("Halo (PC)") {
		t.Fatal("results must be keyed by the original name")
	}
}

func TestCursorIsMonotonicAndNamesUnique(t *testing.T) {
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"A": exactWithCover("https://img/a.png"),
		},
	}
	rec := &recorder{}
	eng := newEngine(t, items("A", "B", "A", "B", "C"), rec, a)
	_ = eng.Start()
	mustRun(t, eng)

	last := -1
	for _, s := range rec.steps {
		if s.Cursor < last {
			t.Fatalf("cursor moved backwards: %d after %d", s.Cursor, last)
		}
		last = s.Cursor
	}
	state := eng.State()
	if state.Cursor != 5 {
		t.Fatalf("expected cursor at end, got %d", state.Cursor)
	}
	if names := state.Accumulated.Names(); len(names) != 3 {
		t.Fatalf("expected 3 unique names, got %v", names)
	}
	merged := rec.completed[0]
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged entries, got %d", len(merged))
	}
}

func TestStopDiscardsInFlightResult(t *testing.T) {
	var eng *engine.Engine
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"A": exactWithCover("https://img/a.png"),
		},
		BeforeLookup: func(context.Context, string) {
			if err := eng.Stop(); err != nil {
				t.Errorf("Stop: %v", err)
			}
		},
	}
	eng = newEngine(t, items("A", "B"), nil, a)
	_ = eng.Start()
	mustRun(t, eng)

	state := eng.State()
	if state.Mode != engine.ModeStopped {
		t.Fatalf("expected stopped, got %s", state.Mode)
	}
	if state.Accumulated.Len() != 0 || state.Cursor != 0 {
		t.Fatalf("in-flight result should be discarded, got len=%d cursor=%d", state.Accumulated.Len(), state.Cursor)
	}
	if err := eng.Start(); !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("expected stopped engine to refuse start, got %v", err)
	}
	if err := eng.Resume(); !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("expected stopped engine to refuse resume, got %v", err)
	}
	eng.Reset()
	if err := eng.Start(); err != nil {
		t.Fatalf("expected start after reset, got %v", err)
	}
}

func TestStepControlErrors(t *testing.T) {
	var eng *engine.Engine
	var busyErr error
	a := &testsupport.StubBackend{
		BackendName: "a",
		BeforeLookup: func(ctx context.Context, _ string) {
			busyErr = eng.Step(ctx)
		},
	}
	eng = newEngine(t, items("A"), nil, a)

	if err := eng.Step(context.Background()); !errors.Is(err, engine.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning on idle engine, got %v", err)
	}
	_ = eng.Start()
	if err := eng.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !errors.Is(busyErr, engine.ErrBusy) {
		t.Fatalf("expected ErrBusy for a concurrent step, got %v", busyErr)
	}
}

func TestResolveSelectFillsOnlyEmptyFields(t *testing.T) {
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"Halo": {Kind: provider.KindSuggestions, Candidates: []catalog.Candidate{{ID: 1, DisplayName: "Halo CE"}}},
		},
	}
	input := []catalog.Item{{Name: "Halo", ReleaseYear: "2001"}}
	eng := newEngine(t, input, nil, a)
	_ = eng.Start()
	mustRun(t, eng)

	if err := eng.Resolve(engine.Select(catalog.Cover{ID: 3, URL: "https://img/3.png"}, &catalog.Metadata{Name: "Halo CE", Year: "2003", Description: "ring"})); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got, _ := eng.State().Accumulated.Get("Halo")
	if got.Status != catalog.StatusCompleted || got.CoverURL != "https://img/3.png" {
		t.Fatalf("unexpected resolved item: %#v", got)
	}
	if got.ReleaseYear != "2001" || got.Description != "ring" || got.DisplayName != "Halo CE" {
		t.Fatalf("fill-only-if-empty violated: %#v", got)
	}
}

func TestResolveManualValidatesURL(t *testing.T) {
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"Halo": {Kind: provider.KindSuggestions, Candidates: []catalog.Candidate{{ID: 1}}},
		},
	}
	eng := newEngine(t, items("Halo"), nil, a)
	_ = eng.Start()
	mustRun(t, eng)

	for _, bad := range []string{"", "img/halo.png", "ftp://host/halo.png", "https://"} {
		if err := eng.Resolve(engine.Manual(bad)); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", bad, err)
		}
	}
	if eng.Mode() != engine.ModeAwaiting {
		t.Fatalf("rejected resolution must not change mode, got %s", eng.Mode())
	}
	if err := eng.Resolve(engine.Manual(" https://img/manual.png ")); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got, _ := eng.State().Accumulated.Get("Halo")
	if got.CoverURL != "https://img/manual.png" || got.Status != catalog.StatusCompleted {
		t.Fatalf("unexpected manual result: %#v", got)
	}
	if got.DisplayName != "" {
		t.Fatalf("manual resolution must not merge metadata, got %q", got.DisplayName)
	}
}

func TestPauseWhileAwaitingAppliesAfterResolve(t *testing.T) {
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"A": {Kind: provider.KindSuggestions, Candidates: []catalog.Candidate{{ID: 1}}},
		},
	}
	eng := newEngine(t, items("A", "B"), nil, a)
	_ = eng.Start()
	mustRun(t, eng)

	if err := eng.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if eng.Mode() != engine.ModeAwaiting {
		t.Fatalf("pause while awaiting must be deferred, got %s", eng.Mode())
	}
	if err := eng.Resolve(engine.Skip()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	state := eng.State()
	if state.Mode != engine.ModePaused || state.Cursor != 1 {
		t.Fatalf("expected paused at 1, got %s at %d", state.Mode, state.Cursor)
	}
}

func TestResolveRejectedWhenNotAwaitingOrStopped(t *testing.T) {
	a := &testsupport.StubBackend{
		BackendName: "a",
		Results: map[string]provider.Result{
			"A": {Kind: provider.KindSuggestions, Candidates: []catalog.Candidate{{ID: 1}}},
		},
	}
	eng := newEngine(t, items("A"), nil, a)
	if err := eng.Resolve(engine.Skip()); !errors.Is(err, engine.ErrNotAwaiting) {
		t.Fatalf("expected ErrNotAwaiting, got %v", err)
	}
	_ = eng.Start()
	mustRun(t, eng)
	_ = eng.Stop()
	if err := eng.Resolve(engine.Skip()); !errors.Is(err, engine.ErrInvalidTransition) {
		t.Fatalf("expected stopped engine to reject resolution, got %v", err)
	}
}

func TestStartFromIdleClearsPreviousRun(t *testing.T) {
	a := &testsupport.StubBackend{BackendName: "a"}
	eng := newEngine(t, items("A", "B"), nil, a)
	_ = eng.Start()
	mustRun(t, eng)
	if !eng.State().Completed {
		t.Fatal("expected completion")
	}
	_ = eng.Start()
	state := eng.State()
	if state.Cursor != 0 || state.Accumulated.Len() != 0 || state.Completed {
		t.Fatalf("expected fresh run, got cursor=%d len=%d completed=%v", state.Cursor, state.Accumulated.Len(), state.Completed)
	}
}

func TestRestoreRunningStateAsPaused(t *testing.T) {
	acc := catalog.NewResultSet()
	acc.Insert(catalog.Item{Name: "A", Status: catalog.StatusCompleted})
	saved := engine.State{
		Input:       items("A", "B"),
		Cursor:      1,
		Accumulated: acc,
		Mode:        engine.ModeRunning,
	}
	a := &testsupport.StubBackend{BackendName: "a"}
	eng, err := engine.Restore(provider.NewChain([]provider.Backend{a}), saved, engine.WithStepDelay(0))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if eng.Mode() != engine.ModePaused {
		t.Fatalf("expected paused, got %s", eng.Mode())
	}
	_ = eng.Resume()
	mustRun(t, eng)
	if got := a.Calls(); len(got) != 1 || got[0] != "B" {
		t.Fatalf("expected only B to be looked up, got %v", got)
	}

	saved.Cursor = 5
	if _, err := engine.Restore(provider.NewChain([]provider.Backend{a}), saved); err == nil {
		t.Fatal("expected out-of-range cursor to be rejected")
	}
}

func TestRunReturnsContextError(t *testing.T) {
	a := &testsupport.StubBackend{BackendName: "a"}
	eng := newEngine(t, items("A"), nil, a)
	_ = eng.Start()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := eng.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if eng.State().Accumulated.Len() != 0 {
		t.Fatal("cancelled run must not commit results")
	}
}
