package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/askroom/internal/domain"
)

var (
	ErrUnknownOperation  = errors.New("unknown moderation operation")
	ErrMissingQuestionID = errors.New("question id is required")
)

type Operation string

const (
	OpEndRoom        Operation = "endRoom"
	OpDeleteQuestion Operation = "deleteQuestion"
)

// Copy is the text of the confirmation dialog.
type Copy struct {
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	ConfirmLabel string `json:"confirm_label"`
}

var (
	endRoomCopy = Copy{
		Title:        "End room",
		Subtitle:     "Are you sure you want to end this room?",
		ConfirmLabel: "Yes, end it",
	}
	deleteQuestionCopy = Copy{
		Title:        "Delete question",
		Subtitle:     "Are you sure you want to delete this question?",
		ConfirmLabel: "Yes, delete",
	}
)

// Action is a destructive operation waiting for confirmation.
// Only EndRoom and DeleteQuestion implement it.
type Action interface {
	Operation() Operation
	Copy() Copy
	execute(ctx context.Context, exec Executor) error
}

type EndRoom struct{}

func (EndRoom) Operation() Operation { return OpEndRoom }
func (EndRoom) Copy() Copy           { return endRoomCopy }

func (EndRoom) execute(ctx context.Context, exec Executor) error {
	return exec.EndRoom(ctx)
}

type DeleteQuestion struct {
	ID domain.QuestionID
}

func (DeleteQuestion) Operation() Operation { return OpDeleteQuestion }
func (DeleteQuestion) Copy() Copy           { return deleteQuestionCopy }

func (a DeleteQuestion) execute(ctx context.Context, exec Executor) error {
	return exec.DeleteQuestion(ctx, a.ID)
}

// ParseAction builds an action from its wire form.
func ParseAction(op string, questionID string) (Action, error) {
	switch Operation(op) {
	case OpEndRoom:
		return EndRoom{}, nil
	case OpDeleteQuestion:
		if questionID == "" {
			return nil, ErrMissingQuestionID
		}
		return DeleteQuestion{ID: domain.QuestionID(questionID)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
}
