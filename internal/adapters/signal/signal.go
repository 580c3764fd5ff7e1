package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/askroom/internal/app/orch"
	"github.com/dkeye/askroom/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// ModerationWSController serves the moderation screen over a WebSocket: it
// streams room snapshots and turns client messages into orchestrator calls.
type ModerationWSController struct {
	Orch       *orch.Orchestrator
	PingPeriod time.Duration
	ReadLimit  int64
}

func NewModerationWSController(o *orch.Orchestrator, pingPeriod time.Duration, readLimit int64) *ModerationWSController {
	return &ModerationWSController{
		Orch:       o,
		PingPeriod: pingPeriod,
		ReadLimit:  readLimit,
	}
}

// WsSignalConn is the session's outlet. Navigation and notifications are
// queued as JSON frames for the write pump.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newConn(ws *websocket.Conn) *WsSignalConn {
	return &WsSignalConn{
		conn: ws,
		send: make(chan []byte, 32),
	}
}

func (c *WsSignalConn) TrySend(f []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

func (c *WsSignalConn) Navigate(route string) {
	sendJSON(c, navigateMsg{Type: "navigate", Route: route})
}

func (c *WsSignalConn) Notify(n core.Notification) {
	sendJSON(c, notificationMsg{Type: "notification", Notification: n})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *ModerationWSController) HandleModerate(ctx context.Context, c *gin.Context) {
	// One client token may hold several tabs open; each connection is its own session.
	sid := core.SessionID(c.GetString("client_token") + "/" + uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newConn(ws)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.Bind(sid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
