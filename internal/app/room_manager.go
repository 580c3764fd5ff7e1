package app

import (
	"context"
	"sync"

	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/rs/zerolog/log"
)

type RoomInfo struct {
	Room     domain.RoomID `json:"room"`
	Watchers int           `json:"watchers"`
}

type sharedView struct {
	view *RoomView
	refs int
}

// ViewManager shares one RoomView, and so one store subscription, per room
// among all of its watchers.
type ViewManager struct {
	ctx    context.Context
	store  core.RoomStore
	policy OrderPolicy

	mu    sync.Mutex
	views map[domain.RoomID]*sharedView
}

// NewViewManager binds every subscription it opens to ctx.
func NewViewManager(ctx context.Context, store core.RoomStore, policy OrderPolicy) *ViewManager {
	return &ViewManager{
		ctx:    ctx,
		store:  store,
		policy: policy,
		views:  make(map[domain.RoomID]*sharedView),
	}
}

// Acquire returns the live view of room. The release func must be called once
// the caller stops using it; the last release deactivates the view.
func (m *ViewManager) Acquire(room domain.RoomID) (*RoomView, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sv, ok := m.views[room]
	if !ok {
		view := NewRoomView(m.store, m.policy)
		if err := view.Activate(m.ctx, room); err != nil {
			return nil, nil, err
		}
		sv = &sharedView{view: view}
		m.views[room] = sv
	}
	sv.refs++

	var once sync.Once
	release := func() {
		once.Do(func() { m.release(room, sv) })
	}
	return sv.view, release, nil
}

func (m *ViewManager) release(room domain.RoomID, sv *sharedView) {
	m.mu.Lock()
	sv.refs--
	last := sv.refs == 0 && m.views[room] == sv
	if last {
		delete(m.views, room)
	}
	m.mu.Unlock()

	if last {
		sv.view.Deactivate()
		log.Info().Str("module", "app.views").Str("room", string(room)).Msg("last watcher left, view stopped")
	}
}

func (m *ViewManager) List() []RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RoomInfo, 0, len(m.views))
	for room, sv := range m.views {
		out = append(out, RoomInfo{Room: room, Watchers: sv.refs})
	}
	return out
}

// StopAll deactivates every view, used on shutdown.
func (m *ViewManager) StopAll() {
	m.mu.Lock()
	views := m.views
	m.views = make(map[domain.RoomID]*sharedView)
	m.mu.Unlock()
	for _, sv := range views {
		sv.view.Deactivate()
	}
}
