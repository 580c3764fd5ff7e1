package app

import (
	"context"
	"sync"

	"github.com/dkeye/askroom/internal/app/moderation"
	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outlet is where a session receives navigation and notifications.
type Outlet interface {
	core.Navigator
	core.Notifier
}

// Watch is a session's live attachment to a room's moderation screen.
type Watch struct {
	Room      domain.RoomID
	Gate      *moderation.Gate
	Moderator *moderation.Moderator
	Release   func()
}

type sessionEntry struct {
	Outlet Outlet
	Watch  *Watch
	Cancel context.CancelFunc
}

// Registry tracks connected moderator sessions and the room each one watches.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

func (r *Registry) Bind(sid core.SessionID, outlet Outlet, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Outlet: outlet, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound session")
}

func (r *Registry) Outlet(sid core.SessionID) (Outlet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Outlet, true
	}
	return nil, false
}

// SetWatch attaches w to the session and returns the watch it replaced, if any.
func (r *Registry) SetWatch(sid core.SessionID, w *Watch) (*Watch, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	prev := e.Watch
	e.Watch = w
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(w.Room)).Msg("updated watch")
	return prev, true
}

func (r *Registry) WatchOf(sid core.SessionID) (*Watch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.Watch == nil {
		return nil, false
	}
	return e.Watch, true
}

// ClearWatch detaches and returns the session's watch.
func (r *Registry) ClearWatch(sid core.SessionID) (*Watch, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.Watch == nil {
		return nil, false
	}
	w := e.Watch
	e.Watch = nil
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed watch")
	return w, true
}

func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

// WatchersOf lists the sessions watching room.
func (r *Registry) WatchersOf(room domain.RoomID) []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SessionID, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if e.Watch != nil && e.Watch.Room == room {
			out = append(out, sid)
		}
	}
	return out
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
