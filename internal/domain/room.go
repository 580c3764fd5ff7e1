package domain

import (
	"fmt"
	"strings"
	"time"
)

type RoomID string

type Room struct {
	ID        RoomID
	Title     string
	AuthorID  UserID
	CreatedAt time.Time
	EndedAt   *time.Time
}

// Closed reports whether the room was ended. Closed rooms accept no joins or questions.
func (r *Room) Closed() bool { return r.EndedAt != nil }

// Store field names that may be written with a point write.
const (
	FieldEndedAt       = "endedAt"
	FieldIsAnswered    = "isAnswered"
	FieldIsHighlighted = "isHighlighted"
)

// Path addresses a node in the shared store: a room or one of its questions.
type Path struct {
	Room     RoomID
	Question QuestionID
}

func RoomPath(id RoomID) Path { return Path{Room: id} }

func QuestionPath(room RoomID, q QuestionID) Path { return Path{Room: room, Question: q} }

func (p Path) IsQuestion() bool { return p.Question != "" }

func (p Path) String() string {
	if p.IsQuestion() {
		return fmt.Sprintf("rooms/%s/questions/%s", p.Room, p.Question)
	}
	return fmt.Sprintf("rooms/%s", p.Room)
}

// RoomRoute is the participant route for a room.
func RoomRoute(id RoomID) string { return "/rooms/" + string(id) }

// AdminRoomRoute is the moderator route for a room.
func AdminRoomRoute(id RoomID) string { return "/admin/rooms/" + string(id) }

// NormalizeCode trims user input into a room id.
func NormalizeCode(code string) RoomID { return RoomID(strings.TrimSpace(code)) }
