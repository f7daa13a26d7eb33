// Package action re-architects the integrating-tool surface (§6) as a
// closed set of tagged request variants with one central dispatcher,
// per design note 9: no dynamic method lookup, no string-keyed verb
// table. Each request type names its own parameters; Dispatch routes
// by concrete type via a type switch, so adding a new action requires
// adding a case here rather than wiring a new dynamic hook.
package action

import (
	"fmt"

	"github.com/pimesh/messenger/internal/mesh"
	"github.com/pimesh/messenger/internal/registry"
	"github.com/pimesh/messenger/internal/reservations"
	"github.com/pimesh/messenger/internal/resultkind"
)

// Request is the closed set of action variants. Each concrete type
// below implements it.
type Request interface {
	isRequest()
}

type JoinRequest struct {
	ExplicitName string
	Base         string
	SessionID    string
	Model        string
	IsHuman      bool
}

type LeaveRequest struct{}

type RenameRequest struct{ NewName string }

type ListRequest struct {
	ExcludeSelf bool
	ScopeToCwd  bool
}

type WhoisRequest struct{ Name string }

type StatusRequest struct{}

type SendRequest struct {
	To      string
	Text    string
	ReplyTo string
}

type BroadcastRequest struct{ Text string }

type ReserveRequest struct {
	Pattern string
	Reason  string
}

type ReleaseRequest struct{ Pattern string }

type FeedRequest struct{ Limit int }

type SetStatusRequest struct{ Message string }

type ClaimRequest struct {
	Spec   string
	TaskID string
	Reason string
}

type UnclaimRequest struct {
	Spec   string
	TaskID string
}

type CompleteRequest struct {
	Spec   string
	TaskID string
	Notes  string
}

func (JoinRequest) isRequest()      {}
func (LeaveRequest) isRequest()     {}
func (RenameRequest) isRequest()    {}
func (ListRequest) isRequest()      {}
func (WhoisRequest) isRequest()     {}
func (StatusRequest) isRequest()    {}
func (SendRequest) isRequest()      {}
func (BroadcastRequest) isRequest() {}
func (ReserveRequest) isRequest()   {}
func (ReleaseRequest) isRequest()   {}
func (FeedRequest) isRequest()      {}
func (SetStatusRequest) isRequest() {}
func (ClaimRequest) isRequest()     {}
func (UnclaimRequest) isRequest()   {}
func (CompleteRequest) isRequest()  {}

// Result is the discriminated response every action returns: either a
// payload (action-specific) or an *resultkind.Error describing why it
// failed (§7: "every operation returns a success|error value").
type Result struct {
	Tag     string
	Payload any
	Err     *resultkind.Error
}

func ok(tag string, payload any) Result  { return Result{Tag: tag, Payload: payload} }
func fail(tag string, err error) Result {
	if re, isRe := err.(*resultkind.Error); isRe {
		return Result{Tag: tag, Err: re}
	}
	return Result{Tag: tag, Err: resultkind.New(resultkind.IOFailure, err.Error())}
}

// Dispatch routes req to its handler against coordinator c.
func Dispatch(c *mesh.Coordinator, req Request) Result {
	switch r := req.(type) {
	case JoinRequest:
		rec, err := c.Join(mesh.JoinParams{
			ExplicitName: r.ExplicitName,
			Base:         r.Base,
			SessionID:    r.SessionID,
			Model:        r.Model,
			IsHuman:      r.IsHuman,
		})
		if err != nil {
			return fail("join", err)
		}
		return ok("join", rec)

	case LeaveRequest:
		if err := c.Leave(); err != nil {
			return fail("leave", err)
		}
		return ok("leave", nil)

	case RenameRequest:
		res, err := c.Rename(r.NewName)
		if err != nil {
			return fail("rename", err)
		}
		return ok("rename", res)

	case ListRequest:
		peers, err := c.Registry.List(r.ExcludeSelf, r.ScopeToCwd, c.Cwd)
		if err != nil {
			return fail("list", err)
		}
		return ok("list", peers)

	case WhoisRequest:
		rec, err := c.Registry.Get(r.Name)
		if err != nil {
			return fail("whois", err)
		}
		return ok("whois", rec)

	case StatusRequest:
		peers, err := c.Registry.List(true, c.Config.ScopeToFolder, c.Cwd)
		if err != nil {
			return fail("status", err)
		}
		pending := 0
		if c.Mailbox != nil {
			pending, _ = c.Mailbox.Count()
		}
		return ok("status", map[string]any{"peers": peers, "pendingMail": pending})

	case SendRequest:
		msg, err := c.Send(r.To, r.Text, r.ReplyTo)
		if err != nil {
			return fail("send", err)
		}
		return ok("send", msg)

	case BroadcastRequest:
		names, errs := c.Broadcast(r.Text)
		if len(errs) > 0 {
			return fail("broadcast", errs[0])
		}
		return ok("broadcast", names)

	case ReserveRequest:
		self := c.Registry.SelfName()
		if self == "" {
			return fail("reserve", resultkind.New(resultkind.NotRegistered, "not registered"))
		}
		rec, err := c.Registry.Get(self)
		if err != nil {
			return fail("reserve", err)
		}
		reservationsList := append(append([]registry.Reservation{}, rec.Reservations...), registry.Reservation{Pattern: r.Pattern, Reason: r.Reason})
		if err := c.Registry.UpdateActivity(registry.UpdateOptions{Reservations: reservationsList}); err != nil {
			return fail("reserve", err)
		}
		return ok("reserve", reservationsList)

	case ReleaseRequest:
		self := c.Registry.SelfName()
		if self == "" {
			return fail("release", resultkind.New(resultkind.NotRegistered, "not registered"))
		}
		rec, err := c.Registry.Get(self)
		if err != nil {
			return fail("release", err)
		}
		var remaining []registry.Reservation
		for _, res := range rec.Reservations {
			if res.Pattern != r.Pattern {
				remaining = append(remaining, res)
			}
		}
		if err := c.Registry.UpdateActivity(registry.UpdateOptions{Reservations: remaining}); err != nil {
			return fail("release", err)
		}
		return ok("release", remaining)

	case FeedRequest:
		events, err := c.Feed.Read()
		if err != nil {
			return fail("feed", err)
		}
		if r.Limit > 0 && len(events) > r.Limit {
			events = events[len(events)-r.Limit:]
		}
		return ok("feed", events)

	case SetStatusRequest:
		if err := c.Registry.UpdateActivity(registry.UpdateOptions{StatusMessage: &r.Message}); err != nil {
			return fail("set_status", err)
		}
		return ok("set_status", r.Message)

	case ClaimRequest:
		res, err := claim(c, r)
		if err != nil {
			return fail("claim", err)
		}
		return ok("claim", res)

	case UnclaimRequest:
		if err := unclaim(c, r); err != nil {
			return fail("unclaim", err)
		}
		return ok("unclaim", nil)

	case CompleteRequest:
		if err := complete(c, r); err != nil {
			return fail("complete", err)
		}
		return ok("complete", nil)

	default:
		return fail("unknown", fmt.Errorf("unrecognized action request %T", req))
	}
}

// checkConflict exposes §4.4's conflict check as its own call,
// separate from Dispatch's Request set since it is a read-only probe
// integrating tools call before every write/edit, not a user action.
func checkConflict(c *mesh.Coordinator, path string) ([]reservations.Conflict, error) {
	peers, err := c.Registry.List(true, c.Config.ScopeToFolder, c.Cwd)
	if err != nil {
		return nil, err
	}
	return reservations.CheckConflict(peers, c.Registry.SelfName(), path), nil
}

// CheckConflict is the exported entry point integrating tools use to
// probe for a reservation conflict before a write/edit operation.
func CheckConflict(c *mesh.Coordinator, path string) ([]reservations.Conflict, error) {
	return checkConflict(c, path)
}
