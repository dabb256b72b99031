package translate_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"

	"coverfill/internal/config"
	"coverfill/internal/translate"
)

func newClient(t *testing.T, handler http.HandlerFunc) *translate.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.Default().Translation
	cfg.Enabled = true
	cfg.BaseURL = srv.URL
	return translate.New(cfg, translate.WithLimiter(rate.NewLimiter(rate.Inf, 1)))
}

func TestTranslateReturnsTranslatedText(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("langpair"); got != "en|es" {
			t.Errorf("unexpected langpair %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "A ring world adventure" {
			t.Errorf("unexpected query %q", got)
		}
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"Una aventura en un mundo anillo"},"responseStatus":200}`))
	})
	got := client.Translate(context.Background(), "A ring world adventure")
	if got != "Una aventura en un mundo anillo" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestTranslateSkipsShortText(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	})
	if got := client.Translate(context.Background(), "Short"); got != "Short" {
		t.Fatalf("expected short text untouched, got %q", got)
	}
	if calls.Load() != 0 {
		t.Fatal("short text must not be sent")
	}
}

func TestTranslateTruncatesLongText(t *testing.T) {
	var sent string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		sent = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"ok ok ok ok"},"responseStatus":200}`))
	})
	client.Translate(context.Background(), strings.Repeat("ñ", 800))
	if n := len([]rune(sent)); n != 500 {
		t.Fatalf("expected 500 runes sent, got %d", n)
	}
}

func TestTranslateFallsBackOnFailure(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"malformed": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		},
		"quota": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"responseData":{"translatedText":"MYMEMORY WARNING"},"responseStatus":"429"}`))
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"responseData":{"translatedText":""},"responseStatus":200}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			client := newClient(t, handler)
			original := "The original description text"
			if got := client.Translate(context.Background(), original); got != original {
				t.Fatalf("expected fallback to original, got %q", got)
			}
		})
	}
}

func TestNewFromConfigDisabledIsNoop(t *testing.T) {
	cfg := config.Default()
	cfg.Translation.Enabled = false
	tr := translate.NewFromConfig(&cfg)
	if _, ok := tr.(translate.Noop); !ok {
		t.Fatalf("expected Noop translator, got %T", tr)
	}
}
