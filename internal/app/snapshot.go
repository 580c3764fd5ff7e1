package app

import (
	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
)

// BuildSnapshot turns a raw record into a fresh snapshot. An absent record
// yields an empty title and no questions; telling "no such room" apart is the
// join flow's job.
func BuildSnapshot(id domain.RoomID, raw *core.RawRoom, policy OrderPolicy) core.Snapshot {
	snap := core.Snapshot{RoomID: id, Questions: []domain.Question{}}
	if raw == nil {
		return snap
	}
	snap.Title = raw.Title
	if raw.EndedAt != nil {
		t := *raw.EndedAt
		snap.EndedAt = &t
	}
	snap.Questions = make([]domain.Question, 0, len(raw.Questions))
	for _, e := range raw.Questions {
		q := e.Question
		snap.Questions = append(snap.Questions, domain.Question{
			ID:            e.ID,
			Content:       q.Content,
			Author:        q.Author,
			IsAnswered:    q.IsAnswered,
			IsHighlighted: q.IsHighlighted,
			LikeCount:     len(q.Likes),
		})
	}
	if policy != nil {
		policy.Order(snap.Questions)
	}
	return snap
}
