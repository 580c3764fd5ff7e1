package moderation

import (
	"context"
	"time"

	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/dkeye/askroom/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Moderator issues the point writes a moderator may make on one room.
// Repeating any of them is harmless: the store resolves conflicts last-write-wins.
type Moderator struct {
	store core.RoomStore
	room  domain.RoomID
	now   func() time.Time
}

func NewModerator(store core.RoomStore, room domain.RoomID) *Moderator {
	return &Moderator{store: store, room: room, now: time.Now}
}

// WithClock replaces the clock used for endedAt.
func (m *Moderator) WithClock(now func() time.Time) *Moderator {
	m.now = now
	return m
}

func (m *Moderator) Room() domain.RoomID { return m.room }

func (m *Moderator) EndRoom(ctx context.Context) error {
	err := m.store.WriteField(ctx, domain.RoomPath(m.room), domain.FieldEndedAt, m.now())
	m.record(OpEndRoom, "", err)
	return err
}

func (m *Moderator) DeleteQuestion(ctx context.Context, id domain.QuestionID) error {
	err := m.store.DeleteNode(ctx, domain.QuestionPath(m.room, id))
	m.record(OpDeleteQuestion, id, err)
	return err
}

// MarkAnswered and Highlight are not destructive and bypass the gate.
func (m *Moderator) MarkAnswered(ctx context.Context, id domain.QuestionID) error {
	err := m.store.WriteField(ctx, domain.QuestionPath(m.room, id), domain.FieldIsAnswered, true)
	m.record("markAnswered", id, err)
	return err
}

func (m *Moderator) Highlight(ctx context.Context, id domain.QuestionID) error {
	err := m.store.WriteField(ctx, domain.QuestionPath(m.room, id), domain.FieldIsHighlighted, true)
	m.record("highlight", id, err)
	return err
}

func (m *Moderator) record(op Operation, id domain.QuestionID, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		log.Error().Err(err).Str("module", "moderation").Str("room", string(m.room)).Str("op", string(op)).Str("question", string(id)).Msg("mutation failed")
	} else {
		log.Info().Str("module", "moderation").Str("room", string(m.room)).Str("op", string(op)).Str("question", string(id)).Msg("mutation applied")
	}
	metrics.ModerationActions.WithLabelValues(string(op), result).Inc()
}
