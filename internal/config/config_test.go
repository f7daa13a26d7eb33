package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	userPath := filepath.Join(dir, "user.toml")
	projectPath := filepath.Join(dir, "project.json")

	userTOML := `
scope_to_folder = false
feed_retention = 100

[crew.concurrency]
workers = 4
`
	if err := os.WriteFile(userPath, []byte(userTOML), 0644); err != nil {
		t.Fatalf("write user config: %v", err)
	}

	projectJSON := `{"feedRetention": 25}`
	if err := os.WriteFile(projectPath, []byte(projectJSON), 0644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, err := Load(userPath, projectPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ScopeToFolder != false {
		t.Fatal("expected user layer to override scope_to_folder")
	}
	if cfg.Crew.Concurrency.Workers != 4 {
		t.Fatalf("expected user layer workers=4, got %d", cfg.Crew.Concurrency.Workers)
	}
	if cfg.FeedRetention != 25 {
		t.Fatalf("expected project layer to override feed retention to 25, got %d", cfg.FeedRetention)
	}
	if cfg.AutoRegister != true {
		t.Fatal("expected default AutoRegister to survive both layers")
	}
}

func TestLoadMissingFilesUseDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/user.toml", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("missing files should not error: %v", err)
	}
	def := Defaults()
	if cfg.FeedRetention != def.FeedRetention || cfg.Crew.Concurrency.Workers != def.Crew.Concurrency.Workers {
		t.Fatalf("expected defaults unchanged, got %+v", cfg)
	}
}
