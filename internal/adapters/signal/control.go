package signal

import "github.com/dkeye/askroom/internal/core"

func (ctl *ModerationWSController) handlePing(conn *WsSignalConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	sendJSON(conn, resp)
}

func (ctl *ModerationWSController) handleCopyCode(sid core.SessionID, conn *WsSignalConn) {
	code, err := ctl.Orch.CopyRoomCode(sid)
	if err != nil {
		sendError(conn, errorCode(err))
		return
	}
	resp := struct {
		Type string `json:"type"`
		Code string `json:"code"`
	}{
		Type: "room_code",
		Code: string(code),
	}
	sendJSON(conn, resp)
}
