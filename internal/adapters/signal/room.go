package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *ModerationWSController) handleWatch(
	ctx context.Context,
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad watch payload")
		sendError(conn, "bad_payload")
		return
	}
	room := domain.NormalizeCode(p.Room)
	if room == "" {
		sendError(conn, errorCode(domain.ErrEmptyCode))
		return
	}

	snapshots, err := ctl.Orch.Watch(sid, room)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", string(room)).Msg("watch failed")
		sendError(conn, errorCode(err))
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(room)).Msg("watch")
	go forwardSnapshots(ctx, conn, snapshots)
}

// forwardSnapshots streams snapshots until the watch is released.
func forwardSnapshots(ctx context.Context, conn *WsSignalConn, snapshots <-chan core.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			sendJSON(conn, snapshotMsg{Type: "snapshot", Snapshot: snap})
		}
	}
}

func (ctl *ModerationWSController) handleUnwatch(sid core.SessionID) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("unwatch")
	ctl.Orch.Unwatch(sid)
}
