package http

import (
	"context"

	"github.com/dkeye/askroom/internal/adapters/signal"
	"github.com/dkeye/askroom/internal/app/orch"
	"github.com/dkeye/askroom/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const clientTokenCookie = "ct"

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(clientTokenCookie)
		if token == "" {
			token = genClientToken()
			c.SetCookie(clientTokenCookie, token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Str("module", "adapters.http").Msg("no session secret configured, sessions will not survive a restart")
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("AskroomSessions", store))
	r.Use(ClientTokenMiddleware())

	h := &Handlers{
		Store:   o.Store,
		Views:   o.Views,
		Limiter: NewJoinRateLimiter(cfg.Join.RateLimit, cfg.Join.RateInterval),
	}
	ctrl := signal.NewModerationWSController(o, cfg.PingPeriod, cfg.ReadLimit)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/session/signin", h.SignIn)
	api.GET("/rooms/:id/join", h.JoinRoom)
	api.POST("/rooms/new", h.CreateRoom)
	api.POST("/rooms", h.NewRoom)
	api.POST("/rooms/:id/questions", h.AskQuestion)
	api.GET("/admin/live", h.LiveRooms)

	api.GET("/ws/moderate", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws moderate endpoint hit")
		ctrl.HandleModerate(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
