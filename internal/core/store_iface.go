package core

import (
	"context"
	"time"

	"github.com/dkeye/askroom/internal/domain"
)

// RawLike is a single like vote as stored.
type RawLike struct {
	AuthorID string `json:"authorId"`
}

// RawQuestion is a question node as the store keeps it. Likes may be absent.
type RawQuestion struct {
	Content       string             `json:"content"`
	Author        domain.Author      `json:"author"`
	IsAnswered    bool               `json:"isAnswered"`
	IsHighlighted bool               `json:"isHighlighted"`
	Likes         map[string]RawLike `json:"likes,omitempty"`
}

// RawQuestionEntry keeps the question id next to its node so store order survives.
type RawQuestionEntry struct {
	ID       domain.QuestionID
	Question RawQuestion
}

// RawRoom is the full room subtree. A nil *RawRoom means the room is absent.
type RawRoom struct {
	Title     string
	AuthorID  string
	CreatedAt time.Time
	EndedAt   *time.Time
	Questions []RawQuestionEntry
}

// Room returns the typed room metadata of the record.
func (r *RawRoom) Room(id domain.RoomID) domain.Room {
	return domain.Room{
		ID:        id,
		Title:     r.Title,
		AuthorID:  domain.UserID(r.AuthorID),
		CreatedAt: r.CreatedAt,
		EndedAt:   r.EndedAt,
	}
}

// Subscription is a live, non-restartable stream of full room records.
// Close is idempotent; Updates is closed once the subscription ends.
type Subscription interface {
	Updates() <-chan *RawRoom
	Close()
}

// RoomStore is the façade over the externally owned push store.
// Every failure to reach the store wraps domain.ErrStoreUnavailable.
type RoomStore interface {
	// Subscribe delivers the current record first, then a full record after every change.
	Subscribe(ctx context.Context, id domain.RoomID) (Subscription, error)
	// ReadOnce returns nil without error when the room is absent.
	ReadOnce(ctx context.Context, path domain.Path) (*RawRoom, error)
	// WriteField is a point write; writing to a missing node is a no-op.
	WriteField(ctx context.Context, path domain.Path, field string, value any) error
	// DeleteNode is idempotent.
	DeleteNode(ctx context.Context, path domain.Path) error

	CreateRoom(ctx context.Context, id domain.RoomID, room RawRoom) error
	// AddQuestion fails with domain.ErrRoomNotFound or domain.ErrRoomClosed; the check and the write are one step.
	AddQuestion(ctx context.Context, room domain.RoomID, id domain.QuestionID, q RawQuestion) error
	Close() error
}
