package core

import (
	"time"

	"github.com/dkeye/askroom/internal/domain"
)

// Snapshot is the immutable view of a room. It is replaced, never patched.
type Snapshot struct {
	RoomID    domain.RoomID     `json:"room"`
	Title     string            `json:"title"`
	EndedAt   *time.Time        `json:"ended_at,omitempty"`
	Questions []domain.Question `json:"questions"`
}
