package signal

import (
	"errors"

	"github.com/dkeye/askroom/internal/app/moderation"
	"github.com/dkeye/askroom/internal/app/orch"
	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
)

type roomPayload struct {
	Room string `json:"room"`
}

type questionPayload struct {
	QuestionID string `json:"question_id"`
}

type stagePayload struct {
	Op         string `json:"op"`
	QuestionID string `json:"question_id,omitempty"`
}

type snapshotMsg struct {
	Type     string        `json:"type"`
	Snapshot core.Snapshot `json:"snapshot"`
}

type stagedMsg struct {
	Type string               `json:"type"`
	Op   moderation.Operation `json:"op"`
	Copy moderation.Copy      `json:"copy"`
}

type notificationMsg struct {
	Type         string            `json:"type"`
	Notification core.Notification `json:"notification"`
}

type navigateMsg struct {
	Type  string `json:"type"`
	Route string `json:"route"`
}

type errorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// errorCode maps an orchestrator error to the code sent to the client.
func errorCode(err error) string {
	switch {
	case errors.Is(err, orch.ErrUnknownSession):
		return "unknown_session"
	case errors.Is(err, orch.ErrNotWatching):
		return "not_watching"
	case errors.Is(err, moderation.ErrUnknownOperation):
		return "unknown_operation"
	case errors.Is(err, moderation.ErrMissingQuestionID):
		return "missing_question_id"
	case errors.Is(err, moderation.ErrNothingStaged):
		return "nothing_staged"
	case errors.Is(err, moderation.ErrConfirmInProgress):
		return "confirm_in_progress"
	case errors.Is(err, domain.ErrEmptyCode):
		return "empty_code"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
