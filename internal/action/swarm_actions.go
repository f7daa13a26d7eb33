package action

import (
	"os"

	"github.com/pimesh/messenger/internal/mesh"
	"github.com/pimesh/messenger/internal/swarm"
)

// sessionLookupFor builds the registry-backed lookup swarm.Store needs
// to detect an agent that restarted under the same name (§3: claim
// staleness via sessionId mismatch).
func sessionLookupFor(c *mesh.Coordinator) func(agent string) (string, bool) {
	return func(agent string) (string, bool) {
		rec, err := c.Registry.Get(agent)
		if err != nil {
			return "", false
		}
		return rec.SessionID, true
	}
}

func claim(c *mesh.Coordinator, r ClaimRequest) (*swarm.ClaimResult, error) {
	self := c.Registry.SelfName()
	rec, err := c.Registry.Get(self)
	if err != nil {
		return nil, err
	}
	return c.Swarm.Claim(sessionLookupFor(c), r.Spec, r.TaskID, self, rec.SessionID, os.Getpid(), r.Reason)
}

func unclaim(c *mesh.Coordinator, r UnclaimRequest) error {
	self := c.Registry.SelfName()
	return c.Swarm.Unclaim(sessionLookupFor(c), r.Spec, r.TaskID, self)
}

func complete(c *mesh.Coordinator, r CompleteRequest) error {
	self := c.Registry.SelfName()
	return c.Swarm.Complete(sessionLookupFor(c), r.Spec, r.TaskID, self, r.Notes)
}
