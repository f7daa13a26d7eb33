// Package mesh assembles the messenger's components into one explicit
// coordinator value per design note 9: no process-wide singleton, so
// every operation takes a *Coordinator and tests can build independent
// coordinators against temp directories.
package mesh

import (
	"os"
	"time"

	"github.com/pimesh/messenger/internal/config"
	"github.com/pimesh/messenger/internal/feed"
	"github.com/pimesh/messenger/internal/gitinfo"
	"github.com/pimesh/messenger/internal/inbox"
	"github.com/pimesh/messenger/internal/registry"
	"github.com/pimesh/messenger/internal/swarm"
)

// Notifier is the caller-supplied sink for out-of-band notices a
// Coordinator raises outside of mail delivery (inbox watcher warnings
// and errors). UI layers (CLI, future TUI) implement it.
type Notifier interface {
	Notify(kind, text string)
}

// MessageHandler receives delivered mail. It may be nil: the CLI
// passes none, so mail it drains is only recorded in the feed and the
// inbox archive.
type MessageHandler interface {
	HandleMessage(msg inbox.Message)
}

// Coordinator is the single entry point gluing every component
// together for one agent process. All fields are plain values or
// pointers to per-process state; nothing here is package-level.
type Coordinator struct {
	BaseDir string
	Cwd     string
	Config  config.Config

	Registry  *registry.Registry
	Feed      *feed.Feed
	Mailbox   *inbox.Mailbox
	Watcher   *inbox.Watcher
	Swarm     *swarm.Store
	Debouncer *registry.Debouncer

	handler  MessageHandler
	notifier Notifier
}

// New builds a Coordinator rooted at baseDir (the messenger base
// directory, typically <home>/.pi/agent/messenger) for the given
// working directory. Registry.Join must be called separately once the
// caller knows the desired name.
func New(baseDir, cwd string, cfg config.Config, handler MessageHandler, notifier Notifier) *Coordinator {
	f := feed.New(baseDir)
	c := &Coordinator{
		BaseDir:  baseDir,
		Cwd:      cwd,
		Config:   cfg,
		Registry: registry.New(baseDir, f),
		Feed:     f,
		Swarm:    swarm.New(baseDir),
		handler:  handler,
		notifier: notifier,
	}
	return c
}

// Deliver implements inbox.Deliverer: dispatches to the configured
// MessageHandler and appends a feed event.
func (c *Coordinator) Deliver(msg inbox.Message) {
	if c.handler != nil {
		c.handler.HandleMessage(msg)
	}
	if c.Feed != nil {
		_ = c.Feed.Append(msg.To, "message", map[string]any{"from": msg.From, "id": msg.ID})
	}
}

// Notify implements inbox.Deliverer.
func (c *Coordinator) Notify(kind, text string) {
	if c.notifier != nil {
		c.notifier.Notify(kind, text)
	}
}

// JoinParams collects the inputs to a Join call sourced from the
// runtime environment, mirroring §6's PI_AGENT_NAME override and
// git-branch best-effort lookup.
type JoinParams struct {
	ExplicitName string
	Base         string
	SessionID    string
	Model        string
	IsHuman      bool
}

// Join registers this process, wires its mailbox and debouncer, and
// starts prune-on-startup for the feed.
func (c *Coordinator) Join(p JoinParams) (*registry.Record, error) {
	_ = c.Feed.Prune(c.Config.FeedRetention) // advisory, non-fatal (§7)

	opts := registry.JoinOptions{
		Name:      p.ExplicitName,
		Base:      p.Base,
		PID:       os.Getpid(),
		SessionID: p.SessionID,
		Cwd:       c.Cwd,
		Model:     p.Model,
		GitBranch: gitinfo.CurrentBranch(c.Cwd),
		IsHuman:   p.IsHuman,
	}
	rec, err := c.Registry.Join(opts)
	if err != nil {
		return nil, err
	}

	c.Mailbox = inbox.New(c.BaseDir, rec.Name)
	c.Watcher = inbox.NewWatcher(c.Mailbox, c)
	c.Debouncer = registry.NewDebouncer(c.Registry, 500*time.Millisecond)
	return rec, nil
}

// Rename drains the mailbox before renaming (§4.2, S3), then migrates
// the inbox directory to the new name.
func (c *Coordinator) Rename(newName string) (*registry.RenameResult, error) {
	if c.Mailbox != nil {
		if _, err := c.Mailbox.Drain(c.Deliver); err != nil {
			return nil, err
		}
	}
	res, err := c.Registry.Rename(newName)
	if err != nil {
		return nil, err
	}
	if err := inbox.Migrate(c.BaseDir, res.OldName, res.NewName); err != nil {
		return nil, err
	}
	c.Mailbox = inbox.New(c.BaseDir, res.NewName)
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	c.Watcher = inbox.NewWatcher(c.Mailbox, c)
	return res, nil
}

// Leave removes this agent's registration and its inbox.
func (c *Coordinator) Leave() error {
	name := c.Registry.SelfName()
	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if err := c.Registry.Leave(); err != nil {
		return err
	}
	return inbox.Remove(c.BaseDir, name)
}

// Send delivers text from this agent to to.
func (c *Coordinator) Send(to, text, replyTo string) (*inbox.Message, error) {
	return inbox.Send(c.BaseDir, c.Registry.SelfName(), to, text, replyTo)
}

// Broadcast delivers text to every live peer, optionally scoped to cwd
// (§4.3).
func (c *Coordinator) Broadcast(text string) ([]string, []error) {
	peers, err := c.Registry.List(true, c.Config.ScopeToFolder, c.Cwd)
	if err != nil {
		return nil, []error{err}
	}
	var names []string
	for _, p := range peers {
		names = append(names, p.Name)
	}
	errs := inbox.Broadcast(c.BaseDir, c.Registry.SelfName(), names, text)
	return names, errs
}
