package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pimesh/messenger/internal/config"
	"github.com/pimesh/messenger/internal/mesh"
)

var rootCmd = &cobra.Command{
	Use:   "pimesh",
	Short: "Filesystem-backed coordination substrate for multi-agent sessions",
	Long: `pimesh coordinates independent agent processes (human or AI) sharing a
working directory: presence, direct and broadcast mail, file reservations,
swarm task claims, an activity feed, and a Crew task scheduler - all
through plain files under a shared base directory, with no daemon and
no network listener.`,
}

// cliNotifier prints watcher/coordinator notices to stderr.
type cliNotifier struct{}

func (cliNotifier) Notify(kind, text string) {
	fmt.Fprintf(os.Stderr, "pimesh: %s: %s\n", kind, text)
}

// baseDir resolves <home>/.pi/agent/messenger, honoring PI_AGENT_BASE_DIR
// for tests and alternate installs.
func baseDir() string {
	if v := os.Getenv("PI_AGENT_BASE_DIR"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".pi", "agent", "messenger")
	}
	return filepath.Join(home, ".pi", "agent", "messenger")
}

func loadConfig(cwd string) config.Config {
	cfg, err := config.Load(config.UserConfigPath(), config.ProjectConfigPath(cwd))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pimesh: config load warning: %v\n", err)
		return config.Defaults()
	}
	return cfg
}

// newCoordinator builds a Coordinator for the current process without
// joining it; subcommands that act as an agent use joinSelf instead. A
// joined caller is responsible for calling Leave on graceful exit if it
// wants an explicit leave event logged; most one-shot CLI invocations
// simply let the PID-liveness check clean up later.
func newCoordinator() (*mesh.Coordinator, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg := loadConfig(cwd)
	return mesh.New(baseDir(), cwd, cfg, nil, cliNotifier{}), nil
}

// sessionID is a process-lifetime identity used to detect restarts
// under the same agent name (§3). It is derived from the PID alone
// rather than persisted, since each CLI invocation is its own process.
func sessionID() string {
	return fmt.Sprintf("pid-%d", os.Getpid())
}

func explicitName() string {
	return os.Getenv("PI_AGENT_NAME")
}
