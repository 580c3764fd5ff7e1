package app

import (
	"context"
	"sync"

	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/dkeye/askroom/internal/metrics"
	"github.com/rs/zerolog/log"
)

// snapshotBox holds the newest undelivered snapshot for one watcher.
type snapshotBox struct {
	ch     chan core.Snapshot
	mu     sync.Mutex
	closed bool
}

func (b *snapshotBox) offer(s core.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- s:
	default:
		select {
		case <-b.ch:
		default:
		}
		b.ch <- s
	}
}

func (b *snapshotBox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}

// RoomView keeps a live snapshot of one room. Every delivered record replaces
// the snapshot as a whole; nothing is merged with local state.
type RoomView struct {
	store  core.RoomStore
	policy OrderPolicy

	mu       sync.Mutex
	gen      uint64
	room     domain.RoomID
	sub      core.Subscription
	current  core.Snapshot
	watchers map[*snapshotBox]struct{}
}

func NewRoomView(store core.RoomStore, policy OrderPolicy) *RoomView {
	if policy == nil {
		policy = InsertionOrder{}
	}
	return &RoomView{
		store:    store,
		policy:   policy,
		watchers: make(map[*snapshotBox]struct{}),
	}
}

// Activate subscribes to room. A previous activation is torn down first.
func (v *RoomView) Activate(ctx context.Context, room domain.RoomID) error {
	sub, err := v.store.Subscribe(ctx, room)
	if err != nil {
		return err
	}

	v.mu.Lock()
	old := v.sub
	v.gen++
	gen := v.gen
	v.room = room
	v.sub = sub
	v.current = core.Snapshot{RoomID: room, Questions: []domain.Question{}}
	v.mu.Unlock()

	if old != nil {
		old.Close()
		metrics.ActiveSubscriptions.Dec()
	}
	metrics.ActiveSubscriptions.Inc()
	log.Info().Str("module", "app.view").Str("room", string(room)).Msg("activated")

	go v.pump(gen, room, sub)
	return nil
}

// Deactivate closes the held subscription exactly once. Once it returns, no
// snapshot is published for the old activation, even one already in flight.
func (v *RoomView) Deactivate() {
	v.mu.Lock()
	sub := v.sub
	room := v.room
	if sub == nil {
		v.mu.Unlock()
		return
	}
	v.gen++
	v.sub = nil
	v.room = ""
	v.mu.Unlock()

	sub.Close()
	metrics.ActiveSubscriptions.Dec()
	log.Info().Str("module", "app.view").Str("room", string(room)).Msg("deactivated")
}

func (v *RoomView) pump(gen uint64, room domain.RoomID, sub core.Subscription) {
	for raw := range sub.Updates() {
		snap := BuildSnapshot(room, raw, v.policy)
		if !v.publish(gen, snap) {
			return
		}
	}
}

// publish replaces the snapshot if gen is still the live activation.
func (v *RoomView) publish(gen uint64, snap core.Snapshot) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return false
	}
	v.current = snap
	for w := range v.watchers {
		w.offer(snap)
	}
	metrics.SnapshotsPublished.Inc()
	log.Debug().Str("module", "app.view").Str("room", string(snap.RoomID)).Int("questions", len(snap.Questions)).Msg("snapshot published")
	return true
}

// Current returns the latest snapshot and whether the view is active.
// Callers must treat the returned questions as read-only.
func (v *RoomView) Current() (core.Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.sub != nil
}

func (v *RoomView) Room() domain.RoomID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.room
}

// Watch returns a channel carrying the newest snapshot. A slow reader skips
// intermediate snapshots. The returned func stops the watch and closes the channel.
func (v *RoomView) Watch() (<-chan core.Snapshot, func()) {
	box := &snapshotBox{ch: make(chan core.Snapshot, 1)}
	v.mu.Lock()
	v.watchers[box] = struct{}{}
	if v.sub != nil {
		box.offer(v.current)
	}
	v.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.watchers, box)
			v.mu.Unlock()
			box.close()
		})
	}
	return box.ch, stop
}

func (v *RoomView) WatcherCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.watchers)
}
