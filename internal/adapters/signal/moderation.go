package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/askroom/internal/app/moderation"
	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *ModerationWSController) handleStage(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p stagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad stage payload")
		sendError(conn, "bad_payload")
		return
	}
	action, err := moderation.ParseAction(p.Op, p.QuestionID)
	if err != nil {
		sendError(conn, errorCode(err))
		return
	}
	dialog, err := ctl.Orch.Stage(sid, action)
	if err != nil {
		sendError(conn, errorCode(err))
		return
	}
	sendJSON(conn, stagedMsg{Type: "staged", Op: action.Operation(), Copy: dialog})
}

// handleConfirm leaves mutation failures to the orchestrator's notification.
func (ctl *ModerationWSController) handleConfirm(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
) {
	if err := ctl.Orch.Confirm(ctx, sid); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("confirm failed")
		sendError(conn, errorCode(err))
	}
}

func (ctl *ModerationWSController) handleCancel(sid core.SessionID) {
	ctl.Orch.Cancel(sid)
}

func (ctl *ModerationWSController) handleAnswer(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	id, ok := questionID(conn, data)
	if !ok {
		return
	}
	if err := ctl.Orch.MarkAnswered(ctx, sid, id); err != nil {
		sendError(conn, errorCode(err))
	}
}

func (ctl *ModerationWSController) handleHighlight(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	id, ok := questionID(conn, data)
	if !ok {
		return
	}
	if err := ctl.Orch.Highlight(ctx, sid, id); err != nil {
		sendError(conn, errorCode(err))
	}
}

func questionID(conn *WsSignalConn, data []byte) (domain.QuestionID, bool) {
	var p questionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad question payload")
		sendError(conn, "bad_payload")
		return "", false
	}
	if p.QuestionID == "" {
		sendError(conn, errorCode(moderation.ErrMissingQuestionID))
		return "", false
	}
	return domain.QuestionID(p.QuestionID), true
}
