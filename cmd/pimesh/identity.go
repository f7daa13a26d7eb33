package main

import (
	"fmt"

	"github.com/pimesh/messenger/internal/mesh"
)

// joinSelf builds a Coordinator and joins it under name (falling back
// to $PI_AGENT_NAME, then a "cli" base for auto-naming). Most one-shot
// subcommands call this before performing a self-identified action.
func joinSelf(name string) (*mesh.Coordinator, error) {
	c, err := newCoordinator()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = explicitName()
	}
	params := mesh.JoinParams{SessionID: sessionID()}
	if name != "" {
		params.ExplicitName = name
	} else {
		params.Base = "cli"
	}
	if _, err := c.Join(params); err != nil {
		return nil, fmt.Errorf("join: %w", err)
	}
	return c, nil
}
