package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"coverfill/internal/config"
	"coverfill/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// setupCLITestEnv writes a config that consults only a fake SteamGridDB
// server. Extra options adjust the config before it is written.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"STEAMGRIDDB_API_KEY", "IGDB_CLIENT_ID", "IGDB_CLIENT_SECRET", "NTFY_TOPIC"} {
		t.Setenv(key, "")
	}

	server := httptest.NewServer(steamGridDBHandler(t))
	t.Cleanup(server.Close)

	options := append([]testsupport.ConfigOption{testsupport.WithSteamGridDB(server.URL)}, opts...)
	cfg := testsupport.NewConfig(t, options...)
	cfg.Providers.Order = []string{config.ProviderSteamGridDB}
	cfg.IGDB.ClientID = ""
	cfg.IGDB.ClientSecret = ""
	cfg.SteamGridDB.RequestsPerSecond = 1000
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

// steamGridDBHandler knows "Halo" exactly, offers two candidates for
// "Portal", fails with 502 for "Broken", and knows nothing else.
func steamGridDBHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search/autocomplete/Halo":
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":7,"name":"Halo"}]}`))
		case "/search/autocomplete/Portal":
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":1,"name":"Portal 2"},{"id":2,"name":"Portal Reloaded"}]}`))
		case "/grids/game/7":
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":70,"url":"https://img.example/halo.png","thumb":"https://img.example/halo_t.png","width":600,"height":900,"score":3}]}`))
		case "/search/autocomplete/Broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/grids/game/1":
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":10,"url":"https://img.example/portal2.png","thumb":"https://img.example/portal2_t.png","width":600,"height":900,"score":5}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"errors":["Game not found"]}`))
		}
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) writeInput(t *testing.T, lines ...string) string {
	t.Helper()
	return testsupport.WriteCSV(t, e.baseDir, lines...)
}

func runCLI(t *testing.T, configPath string, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	cmd.SetIn(stdin)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, e.configPath, strings.NewReader(stdin), args...)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}

// ntfyRecorder captures notification requests.
type ntfyRecorder struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func newNtfyServer(t *testing.T) (*ntfyRecorder, string) {
	t.Helper()
	rec := &ntfyRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.titles = append(rec.titles, r.Header.Get("Title"))
		rec.bodies = append(rec.bodies, string(body))
		rec.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return rec, fmt.Sprintf("%s/coverfill", server.URL)
}

func (r *ntfyRecorder) snapshot() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.titles...), append([]string(nil), r.bodies...)
}
