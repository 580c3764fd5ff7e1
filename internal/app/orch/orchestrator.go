package orch

import (
	"errors"
	"time"

	"github.com/dkeye/askroom/internal/app"
	"github.com/dkeye/askroom/internal/core"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrNotWatching    = errors.New("session is not watching a room")
)

// Orchestrator is the moderation screen core: it binds each session's view,
// confirmation gate and outlet together.
type Orchestrator struct {
	Registry *app.Registry
	Views    *app.ViewManager
	Store    core.RoomStore
	Clock    func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// OnDisconnect drops the session and whatever it was watching.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	o.Unwatch(sid)
	o.Registry.Unbind(sid)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("session disconnected")
}

func (o *Orchestrator) notify(sid core.SessionID, n core.Notification) {
	if out, ok := o.Registry.Outlet(sid); ok {
		out.Notify(n)
	}
}

func (o *Orchestrator) navigate(sid core.SessionID, route string) {
	if out, ok := o.Registry.Outlet(sid); ok {
		out.Navigate(route)
	}
}
