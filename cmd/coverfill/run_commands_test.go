package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"coverfill/internal/config"
	"coverfill/internal/testsupport"
)

func TestRunNonInteractiveExportsMergedResults(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "Nombre,Año,Género", "Halo,2001,Shooter", "Portal,,Puzzle", "Unknown Game,,")

	stdout, stderr, err := env.run(t, "", "run", "--non-interactive", input)
	if err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, stdout, `"Nombre","Nuevo Nombre","Portada","Año","Descripción"`)
	requireContains(t, stdout, `"Halo","Halo","https://img.example/halo.png","2001",""`)
	requireContains(t, stdout, `"Portal","","","",""`)
	requireContains(t, stdout, `"Unknown Game","","","",""`)
	requireContains(t, stderr, "Loaded 3 rows")
	requireContains(t, stderr, "completed: 3 games, 1 with cover, 2 without results, 0 errored")

	status, _, err := env.run(t, "", "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	requireContains(t, status, "[OK] completed")
	requireContains(t, status, "3/3")

	runs, _, err := env.run(t, "", "runs")
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	requireContains(t, runs, "games.csv")
	requireContains(t, runs, "completed")
}

func TestRunFallsBackToIGDB(t *testing.T) {
	igdbServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/oauth2/token":
			_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600,"token_type":"bearer"}`))
		case "/games":
			_, _ = w.Write([]byte(`[{"id":9,"name":"Zelda","cover":{"id":90,"url":"//images.igdb.com/igdb/image/upload/t_thumb/co9.jpg"},"first_release_date":1005091200,"summary":"<p>Hero of Hyrule</p>"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(igdbServer.Close)

	env := setupCLITestEnv(t, testsupport.WithIGDB(igdbServer.URL))
	env.cfg.Providers.Order = []string{config.ProviderSteamGridDB, config.ProviderIGDB}
	env.cfg.IGDB.ClientID = "id"
	env.cfg.IGDB.ClientSecret = "secret"
	env.cfg.IGDB.RequestsPerSecond = 1000
	writeTestConfig(t, env.configPath, env.cfg)
	input := env.writeInput(t, "Name", "Halo", "Zelda")

	stdout, stderr, err := env.run(t, "", "run", "--non-interactive", input)
	if err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, stdout, `"Halo","Halo","https://img.example/halo.png"`)
	requireContains(t, stdout, `"Zelda","Zelda","https://images.igdb.com/igdb/image/upload/t_cover_big/co9.jpg","2001","Hero of Hyrule"`)
	requireContains(t, stderr, "2 with cover")
}

func TestRunInteractiveSelectsCandidateCover(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "Name", "Halo", "Portal")

	stdout, stderr, err := env.run(t, "1\n1\n", "run", input)
	if err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, stderr, `No exact match for "Portal"`)
	requireContains(t, stderr, "Portal Reloaded")
	requireContains(t, stdout, `"Portal","Portal 2","https://img.example/portal2.png","",""`)
	requireContains(t, stderr, "2 with cover")
}

func TestRunWritesOutputFileAsYAML(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "Name", "Halo")
	output := filepath.Join(env.baseDir, "out.yaml")

	stdout, stderr, err := env.run(t, "", "run", "--non-interactive", "--format", "yaml", "--output", output, input)
	if err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}
	if stdout != "" {
		t.Fatalf("expected nothing on stdout, got %q", stdout)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	requireContains(t, string(data), "games:")
	requireContains(t, string(data), "cover_url: https://img.example/halo.png")
	requireContains(t, stderr, "Wrote 1 games to "+output)
}

func TestRunPausesWhenInputClosesAndResumes(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "Name", "Halo", "Portal", "Unknown Game")

	stdout, stderr, err := env.run(t, "", "run", input)
	if err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}
	if stdout != "" {
		t.Fatalf("unfinished run must not export, got %q", stdout)
	}
	requireContains(t, stderr, "Input closed before a decision was made.")
	requireContains(t, stderr, `is waiting for a decision on "Portal"`)

	status, _, err := env.run(t, "", "status", "--items")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	requireContains(t, status, "awaiting decision")
	requireContains(t, status, "Portal (2 candidates from steamgriddb)")
	requireContains(t, status, "pending")

	stdout, stderr, err = env.run(t, "s\n", "resume")
	if err != nil {
		t.Fatalf("resume failed: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, stderr, "Resuming run")
	requireContains(t, stdout, `"Halo","Halo","https://img.example/halo.png","",""`)
	requireContains(t, stdout, `"Portal","","","",""`)
	requireContains(t, stdout, `"Unknown Game","","","",""`)

	_, _, err = env.run(t, "", "resume")
	if err == nil || !strings.Contains(err.Error(), "already completed") {
		t.Fatalf("expected already completed error, got %v", err)
	}
}

func TestStopResetAndResume(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "Name", "Portal", "Halo")

	if _, stderr, err := env.run(t, "", "run", input); err != nil {
		t.Fatalf("run failed: %v\nstderr: %s", err, stderr)
	}

	stdout, _, err := env.run(t, "", "stop")
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	requireContains(t, stdout, "stopped at 0/2")

	_, _, err = env.run(t, "", "resume")
	if err == nil || !strings.Contains(err.Error(), "was stopped") {
		t.Fatalf("expected stopped error, got %v", err)
	}

	stdout, _, err = env.run(t, "", "reset")
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	requireContains(t, stdout, "reset; start it again")

	stdout, stderr, err := env.run(t, "", "resume", "--non-interactive")
	if err != nil {
		t.Fatalf("resume failed: %v\nstderr: %s", err, stderr)
	}
	requireContains(t, stdout, `"Halo","Halo","https://img.example/halo.png","",""`)

	stdout, _, err = env.run(t, "", "reset", "--delete")
	if err != nil {
		t.Fatalf("reset --delete failed: %v", err)
	}
	requireContains(t, stdout, "deleted")
	runs, _, err := env.run(t, "", "runs")
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	requireContains(t, runs, "No runs recorded")
}

func TestRunRequiresProvider(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutProviders())
	input := env.writeInput(t, "Name", "Halo")

	_, _, err := env.run(t, "", "run", input)
	if err == nil || !strings.Contains(err.Error(), "no lookup provider configured") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestRunRejectsInputWithoutNameColumn(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "Title,Year", "Halo,2001")

	_, _, err := env.run(t, "", "run", input)
	if err == nil || !strings.Contains(err.Error(), `"Name" column`) {
		t.Fatalf("expected missing name column error, got %v", err)
	}
	runs, _, err := env.run(t, "", "runs")
	if err != nil {
		t.Fatalf("runs failed: %v", err)
	}
	requireContains(t, runs, "No runs recorded")
}

func TestRunRefusesWhileStateIsLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "Name", "Halo")
	if err := os.MkdirAll(env.cfg.Paths.StateDir, 0o755); err != nil {
		t.Fatalf("mkdir state: %v", err)
	}
	lock := flock.New(env.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquire lock: locked=%v err=%v", locked, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	_, _, err = env.run(t, "", "run", "--non-interactive", input)
	if err == nil || !strings.Contains(err.Error(), "another coverfill process") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	env := setupCLITestEnv(t)
	input := env.writeInput(t, "Name", "Halo")

	_, _, err := env.run(t, "", "run", "--format", "xml", input)
	if err == nil || !strings.Contains(err.Error(), "unsupported export format") {
		t.Fatalf("expected format error, got %v", err)
	}
}
