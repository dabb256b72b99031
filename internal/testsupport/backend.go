package testsupport

import (
	"context"
	"sync"

	"coverfill/internal/catalog"
	"coverfill/internal/provider"
)

// StubBackend is a scripted provider.Backend. Lookups for names without a
// scripted result return NotFound.
type StubBackend struct {
	BackendName string
	Unavailable bool
	Results     map[string]provider.Result
	Details     map[int64]provider.Detail
	DetailErr   error
	// BeforeLookup runs inside Lookup before the scripted result is returned.
	BeforeLookup func(ctx context.Context, name string)

	mu          sync.Mutex
	calls       []string
	knownFlags  []catalog.KnownFlags
	detailCalls []int64
}

var _ provider.Backend = (*StubBackend)(nil)

func (s *StubBackend) Name() string { return s.BackendName }

func (s *StubBackend) Available() bool { return !s.Unavailable }

func (s *StubBackend) Lookup(ctx context.Context, name string, known catalog.KnownFlags) provider.Result {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.knownFlags = append(s.knownFlags, known)
	hook := s.BeforeLookup
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, name)
	}
	if result, ok := s.Results[name]; ok {
		if result.Kind == provider.KindSuggestions {
			return provider.Suggestions(s.BackendName, result.Candidates)
		}
		result.Provider = s.BackendName
		return result
	}
	return provider.NotFound(s.BackendName)
}

func (s *StubBackend) FetchDetail(_ context.Context, id int64) (provider.Detail, error) {
	s.mu.Lock()
	s.detailCalls = append(s.detailCalls, id)
	s.mu.Unlock()

	if s.DetailErr != nil {
		return provider.Detail{}, s.DetailErr
	}
	detail, ok := s.Details[id]
	if !ok {
		return provider.Detail{Provider: s.BackendName}, nil
	}
	return detail, nil
}

// Calls returns the names looked up so far.
func (s *StubBackend) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// KnownFlags returns the flags passed with each lookup.
func (s *StubBackend) KnownFlags() []catalog.KnownFlags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.KnownFlags(nil), s.knownFlags...)
}

// DetailCalls returns the candidate ids passed to FetchDetail.
func (s *StubBackend) DetailCalls() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.detailCalls...)
}
