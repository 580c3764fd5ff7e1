package store

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/rs/zerolog/log"
)

var errOffline = errors.New("memory store is offline")

type memRoom struct {
	meta      core.RawRoom
	order     []domain.QuestionID
	questions map[domain.QuestionID]core.RawQuestion
}

func (r *memRoom) record() *core.RawRoom {
	out := r.meta
	if r.meta.EndedAt != nil {
		t := *r.meta.EndedAt
		out.EndedAt = &t
	}
	out.Questions = make([]core.RawQuestionEntry, 0, len(r.order))
	for _, id := range r.order {
		out.Questions = append(out.Questions, core.RawQuestionEntry{ID: id, Question: cloneQuestion(r.questions[id])})
	}
	return &out
}

// Memory is a threadsafe in-process push store. It keeps question insertion
// order explicitly and fans every committed change out to the room's subscribers.
type Memory struct {
	mu      sync.Mutex
	rooms   map[domain.RoomID]*memRoom
	subs    map[domain.RoomID]map[*memorySub]struct{}
	offline bool
}

func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[domain.RoomID]*memRoom),
		subs:  make(map[domain.RoomID]map[*memorySub]struct{}),
	}
}

// SetOffline makes every call fail with domain.ErrStoreUnavailable until reset.
func (m *Memory) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

type memorySub struct {
	store *Memory
	room  domain.RoomID
	box   *mailbox
	once  sync.Once
	stop  func() bool
}

func (s *memorySub) Updates() <-chan *core.RawRoom { return s.box.ch }

func (s *memorySub) Close() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
		s.store.unsubscribe(s)
		s.box.close()
	})
}

func (m *Memory) Subscribe(ctx context.Context, id domain.RoomID) (core.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return nil, unavailable(errOffline)
	}
	sub := &memorySub{store: m, room: id, box: newMailbox()}
	if _, ok := m.subs[id]; !ok {
		m.subs[id] = make(map[*memorySub]struct{})
	}
	m.subs[id][sub] = struct{}{}
	sub.box.offer(m.recordLocked(id))
	sub.stop = context.AfterFunc(ctx, sub.Close)
	log.Debug().Str("module", "store.memory").Str("room", string(id)).Msg("subscribed")
	return sub, nil
}

func (m *Memory) unsubscribe(s *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subs, ok := m.subs[s.room]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(m.subs, s.room)
		}
	}
	log.Debug().Str("module", "store.memory").Str("room", string(s.room)).Msg("unsubscribed")
}

func (m *Memory) ReadOnce(ctx context.Context, path domain.Path) (*core.RawRoom, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return nil, unavailable(errOffline)
	}
	return m.recordLocked(path.Room), nil
}

func (m *Memory) WriteField(ctx context.Context, path domain.Path, field string, value any) error {
	if err := checkField(path, field, value); err != nil {
		return err
	}
	return m.mutate(ctx, path.Room, func(r *memRoom) bool {
		if !path.IsQuestion() {
			applyRoomField(&r.meta, field, value)
			return true
		}
		q, ok := r.questions[path.Question]
		if !ok {
			return false
		}
		applyQuestionField(&q, field, value)
		r.questions[path.Question] = q
		return true
	})
}

func (m *Memory) DeleteNode(ctx context.Context, path domain.Path) error {
	if !path.IsQuestion() {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.offline {
			return unavailable(errOffline)
		}
		if _, ok := m.rooms[path.Room]; ok {
			delete(m.rooms, path.Room)
			m.notifyLocked(path.Room)
		}
		return nil
	}
	return m.mutate(ctx, path.Room, func(r *memRoom) bool {
		if _, ok := r.questions[path.Question]; !ok {
			return false
		}
		delete(r.questions, path.Question)
		for i, id := range r.order {
			if id == path.Question {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
		return true
	})
}

func (m *Memory) CreateRoom(ctx context.Context, id domain.RoomID, room core.RawRoom) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return unavailable(errOffline)
	}
	r := &memRoom{meta: room, questions: make(map[domain.QuestionID]core.RawQuestion)}
	r.meta.Questions = nil
	for _, e := range room.Questions {
		r.order = append(r.order, e.ID)
		r.questions[e.ID] = cloneQuestion(e.Question)
	}
	m.rooms[id] = r
	m.notifyLocked(id)
	return nil
}

func (m *Memory) AddQuestion(ctx context.Context, room domain.RoomID, id domain.QuestionID, q core.RawQuestion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return unavailable(errOffline)
	}
	r, ok := m.rooms[room]
	switch {
	case !ok:
		return domain.ErrRoomNotFound
	case r.meta.EndedAt != nil:
		return domain.ErrRoomClosed
	}
	if _, ok := r.questions[id]; !ok {
		r.order = append(r.order, id)
	}
	r.questions[id] = cloneQuestion(q)
	m.notifyLocked(room)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	subs := make([]*memorySub, 0)
	for _, set := range m.subs {
		for s := range set {
			subs = append(subs, s)
		}
	}
	m.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
	return nil
}

// mutate applies fn to an existing room and notifies subscribers when fn reports a change.
func (m *Memory) mutate(ctx context.Context, id domain.RoomID, fn func(*memRoom) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return unavailable(errOffline)
	}
	r, ok := m.rooms[id]
	if !ok {
		return nil
	}
	if fn(r) {
		m.notifyLocked(id)
	}
	return nil
}

func (m *Memory) recordLocked(id domain.RoomID) *core.RawRoom {
	r, ok := m.rooms[id]
	if !ok {
		return nil
	}
	return r.record()
}

// notifyLocked runs under m.mu, so deliveries for a room follow commit order.
func (m *Memory) notifyLocked(id domain.RoomID) {
	for s := range m.subs[id] {
		s.box.offer(m.recordLocked(id))
	}
}
