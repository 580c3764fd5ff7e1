package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/askroom/internal/app"
	"github.com/dkeye/askroom/internal/app/lobby"
	"github.com/dkeye/askroom/internal/core"
	"github.com/dkeye/askroom/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handlers serves the lobby flows that run before the moderation screen.
type Handlers struct {
	Store   core.RoomStore
	Views   *app.ViewManager
	Limiter *JoinRateLimiter
}

type targetResponse struct {
	Target string `json:"target"`
}

type errorResponse struct {
	Error        string            `json:"error"`
	Notification core.Notification `json:"notification"`
}

func (h *Handlers) lobbyFor(c *gin.Context, profile Profile) *lobby.Lobby {
	identity := newSessionIdentity(sessions.Default(c), profile)
	return lobby.New(h.Store, identity)
}

func (h *Handlers) SignIn(c *gin.Context) {
	var p Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	user, err := newSessionIdentity(sessions.Default(c), p).SignIn(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handlers) JoinRoom(c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	if !h.Limiter.Allow(sid) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
		return
	}
	target, err := h.lobbyFor(c, Profile{}).JoinRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, targetResponse{Target: target})
}

// CreateRoom accepts an optional profile used when nobody is signed in yet.
func (h *Handlers) CreateRoom(c *gin.Context) {
	var p Profile
	_ = c.ShouldBindJSON(&p)
	target, err := h.lobbyFor(c, p).CreateRoom(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, targetResponse{Target: target})
}

func (h *Handlers) NewRoom(c *gin.Context) {
	var body struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	id, target, err := h.lobbyFor(c, Profile{}).NewRoom(c.Request.Context(), body.Title)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": id, "target": target})
}

func (h *Handlers) AskQuestion(c *gin.Context) {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	room := domain.NormalizeCode(c.Param("id"))
	id, err := h.lobbyFor(c, Profile{}).AskQuestion(c.Request.Context(), room, body.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question": id})
}

// LiveRooms lists rooms that currently have a live view.
func (h *Handlers) LiveRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.Views.List())
}

func abortWithError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Notification: lobby.NotificationFor(err)})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyCode):
		return http.StatusBadRequest, "empty_code"
	case errors.Is(err, domain.ErrEmptyTitle):
		return http.StatusBadRequest, "empty_title"
	case errors.Is(err, domain.ErrEmptyQuestion):
		return http.StatusBadRequest, "empty_question"
	case errors.Is(err, domain.ErrRoomNotFound):
		return http.StatusNotFound, "room_not_found"
	case errors.Is(err, domain.ErrRoomClosed):
		return http.StatusConflict, "room_closed"
	case errors.Is(err, domain.ErrSignInFailed):
		return http.StatusUnauthorized, "sign_in_failed"
	case errors.Is(err, domain.ErrNotSignedIn):
		return http.StatusUnauthorized, "not_signed_in"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
