package store

import (
	"fmt"
	"time"

	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
)

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

func unknownField(path domain.Path, field string, value any) error {
	return fmt.Errorf("%w: %s on %s (%T)", domain.ErrUnknownField, field, path, value)
}

// checkField validates a point write before it reaches the store.
func checkField(path domain.Path, field string, value any) error {
	switch field {
	case domain.FieldEndedAt:
		if _, ok := value.(time.Time); ok && !path.IsQuestion() {
			return nil
		}
	case domain.FieldIsAnswered, domain.FieldIsHighlighted:
		if _, ok := value.(bool); ok && path.IsQuestion() {
			return nil
		}
	}
	return unknownField(path, field, value)
}

func applyRoomField(room *core.RawRoom, field string, value any) {
	if field == domain.FieldEndedAt {
		t := value.(time.Time).UTC()
		room.EndedAt = &t
	}
}

func applyQuestionField(q *core.RawQuestion, field string, value any) {
	switch field {
	case domain.FieldIsAnswered:
		q.IsAnswered = value.(bool)
	case domain.FieldIsHighlighted:
		q.IsHighlighted = value.(bool)
	}
}

func cloneQuestion(q core.RawQuestion) core.RawQuestion {
	if q.Likes != nil {
		likes := make(map[string]core.RawLike, len(q.Likes))
		for k, v := range q.Likes {
			likes[k] = v
		}
		q.Likes = likes
	}
	return q
}
