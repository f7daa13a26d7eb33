package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("pimesh %v: %v", args, err)
	}
	return out.String()
}

func TestBaseDirHonorsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PI_AGENT_BASE_DIR", dir)
	if got := baseDir(); got != dir {
		t.Fatalf("baseDir() = %q, want %q", got, dir)
	}
}

func TestLoadConfigFallsBackToDefaultsOnMissingFiles(t *testing.T) {
	cwd := t.TempDir()
	cfg := loadConfig(cwd)
	if cfg.FeedRetention <= 0 {
		t.Fatalf("expected a positive default feed retention, got %d", cfg.FeedRetention)
	}
}

func TestJoinThenWhoisViaCLI(t *testing.T) {
	base := t.TempDir()
	t.Setenv("PI_AGENT_BASE_DIR", base)

	runCLI(t, "join", "--name", "alice")
	runCLI(t, "whois", "alice") // exercised for its RunE path; output goes to stdout directly

	data, err := os.ReadFile(filepath.Join(base, "registry", "alice.json"))
	if err != nil {
		t.Fatalf("expected registry file for alice: %v", err)
	}
	if !bytes.Contains(data, []byte(`"name": "alice"`)) {
		t.Fatalf("expected registry record for alice, got %s", data)
	}
}
