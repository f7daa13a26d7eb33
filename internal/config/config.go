// Package config loads the messenger's layered settings: built-in
// defaults, then the user's config, then the project's config, each
// overriding the last field-by-field (§6 "precedence: defaults ← user
// ← project"). The user file is TOML, decoded with
// github.com/BurntSushi/toml to match the teacher's configuration
// conventions; the project file is JSON.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// NameTheme selects the vocabulary used for auto-generated agent names.
type NameTheme string

const (
	NameThemeDefault NameTheme = "default"
	NameThemeAnimals NameTheme = "animals"
	NameThemeColors  NameTheme = "colors"
)

// ContextMode controls how much surrounding context a worker session
// receives.
type ContextMode string

const (
	ContextFull    ContextMode = "full"
	ContextMinimal ContextMode = "minimal"
	ContextNone    ContextMode = "none"
)

// Truncation caps per-role output size; CrewConfig.Truncation maps a
// role name to its caps.
type Truncation struct {
	MaxBytes int `toml:"max_bytes,omitempty" json:"maxBytes,omitempty"`
	MaxLines int `toml:"max_lines,omitempty" json:"maxLines,omitempty"`
}

// CrewConfig holds the scheduler and review tuning knobs (§6).
type CrewConfig struct {
	Concurrency struct {
		Workers int `toml:"workers" json:"workers"`
	} `toml:"concurrency" json:"concurrency"`
	Review struct {
		Enabled       bool `toml:"enabled" json:"enabled"`
		MaxIterations int  `toml:"max_iterations" json:"maxIterations"`
	} `toml:"review" json:"review"`
	Planning struct {
		MaxPasses int `toml:"max_passes" json:"maxPasses"`
	} `toml:"planning" json:"planning"`
	Work struct {
		MaxAttemptsPerTask int  `toml:"max_attempts_per_task" json:"maxAttemptsPerTask"`
		MaxWaves           int  `toml:"max_waves" json:"maxWaves"`
		StopOnBlock        bool `toml:"stop_on_block" json:"stopOnBlock"`
	} `toml:"work" json:"work"`
	Truncation map[string]Truncation `toml:"truncation,omitempty" json:"truncation,omitempty"`
}

// Config is the full merged settings object (§6).
type Config struct {
	AutoRegister      bool        `toml:"auto_register" json:"autoRegister"`
	AutoRegisterPaths []string    `toml:"auto_register_paths,omitempty" json:"autoRegisterPaths,omitempty"`
	ScopeToFolder     bool        `toml:"scope_to_folder" json:"scopeToFolder"`
	NameTheme         NameTheme   `toml:"name_theme" json:"nameTheme"`
	FeedRetention     int         `toml:"feed_retention" json:"feedRetention"`
	StuckThreshold    int         `toml:"stuck_threshold" json:"stuckThreshold"`
	StuckNotify       bool        `toml:"stuck_notify" json:"stuckNotify"`
	AutoStatus        bool        `toml:"auto_status" json:"autoStatus"`
	CrewEventsInFeed  bool        `toml:"crew_events_in_feed" json:"crewEventsInFeed"`
	ContextMode       ContextMode `toml:"context_mode" json:"contextMode"`

	Crew CrewConfig `toml:"crew" json:"crew"`
}

// Defaults returns the built-in configuration baseline (§6).
func Defaults() Config {
	cfg := Config{
		AutoRegister:     true,
		ScopeToFolder:    true,
		NameTheme:        NameThemeDefault,
		FeedRetention:    50,
		StuckThreshold:   300,
		StuckNotify:      true,
		AutoStatus:       true,
		CrewEventsInFeed: true,
		ContextMode:      ContextFull,
	}
	cfg.Crew.Concurrency.Workers = 2
	cfg.Crew.Review.Enabled = true
	cfg.Crew.Review.MaxIterations = 3
	cfg.Crew.Planning.MaxPasses = 3
	cfg.Crew.Work.MaxAttemptsPerTask = 5
	cfg.Crew.Work.MaxWaves = 50
	cfg.Crew.Work.StopOnBlock = false
	return cfg
}

// Load merges defaults, the user config at userPath (TOML), and the
// project config at projectPath (the crew directory's config.json, per
// the on-disk layout in §6), in that order. Missing files are not an
// error: a layer simply contributes nothing.
func Load(userPath, projectPath string) (Config, error) {
	cfg := Defaults()
	if err := mergeTOMLFile(&cfg, userPath); err != nil {
		return cfg, err
	}
	if err := mergeJSONFile(&cfg, projectPath); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func mergeTOMLFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	_, err := toml.DecodeFile(path, cfg)
	return err
}

func mergeJSONFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, cfg)
}

// UserConfigPath returns the default per-user config location,
// <home>/.pi/agent/messenger/config.toml, or "" if the home directory
// cannot be determined.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pi", "agent", "messenger", "config.toml")
}

// ProjectConfigPath returns the per-project config location rooted at
// cwd's Crew directory (§6: "config.json" in the Crew layout).
func ProjectConfigPath(cwd string) string {
	return filepath.Join(cwd, ".pi", "messenger", "crew", "config.json")
}
