package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitCreatesSample(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	target := filepath.Join(base, "coverfill", "config.toml")

	stdout, _, err := runCLI(t, "", nil, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration to "+target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	requireContains(t, string(data), "[steamgriddb]")

	_, _, err = runCLI(t, "", nil, "config", "init", "--path", target)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file error, got %v", err)
	}
	if _, _, err := runCLI(t, "", nil, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite failed: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate failed: %v", err)
	}
	requireContains(t, stdout, "Config path: "+env.configPath)
	requireContains(t, stdout, "SteamGridDB:")
	requireContains(t, stdout, "[OK] configured")
	requireContains(t, stdout, "client_id/client_secret missing")
	requireContains(t, stdout, "Configuration valid")
}

func TestConfigValidateCheckProbesBackends(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := env.run(t, "", "config", "validate", "--check")
	if err != nil {
		t.Fatalf("config validate --check failed: %v\n%s", err, stdout)
	}
	requireContains(t, stdout, "== Checks ==")
	requireContains(t, stdout, "(read/write ok)")
	requireContains(t, stdout, "reachable")
	requireContains(t, stdout, "Configuration valid")
}

func TestConfigValidateCheckFailsOnRejectedKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	env := setupCLITestEnv(t)
	env.cfg.SteamGridDB.BaseURL = server.URL
	writeTestConfig(t, env.configPath, env.cfg)

	stdout, _, err := env.run(t, "", "config", "validate", "--check")
	if err == nil || !strings.Contains(err.Error(), "preflight checks failed") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
	requireContains(t, stdout, "credentials rejected")
	requireNotContains(t, stdout, "Configuration valid")
}

func TestConfigValidateReportsMissingProvider(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.SteamGridDB.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)

	stdout, _, err := env.run(t, "", "config", "validate")
	if err == nil || !strings.Contains(err.Error(), "no lookup provider configured") {
		t.Fatalf("expected provider error, got %v", err)
	}
	requireContains(t, stdout, "api_key missing")
}

func TestInvalidConfigFailsCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Providers.Order = []string{"mobygames"}
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := env.run(t, "", "runs")
	if err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestNormalizeSkipsConfig(t *testing.T) {
	stdout, _, err := runCLI(t, filepath.Join(t.TempDir(), "missing", "nope.toml"), nil,
		"normalize", "Skyrim Special Edition", "Halo (PC)")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if stdout != "Skyrim\nHalo\n" {
		t.Fatalf("unexpected output %q", stdout)
	}
}
