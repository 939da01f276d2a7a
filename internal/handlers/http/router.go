package http

import (
	"net/http"

	"streamgate/internal/infrastructure/middleware"
	"streamgate/internal/infrastructure/monitoring"
	"streamgate/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps collects everything the HTTP surface needs.
type RouterDeps struct {
	Cameras  *CameraHandler
	Live     *LiveHandler
	Sessions *SessionHandler
	Playback *PlaybackHandler
	Health   *monitoring.HealthChecker
	Config   *config.Config
	Logger   *zap.SugaredLogger

	// LiveSessions reports the number of active upstream pulls for the
	// health endpoint.
	LiveSessions func() int
}

func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(middleware.ErrorHandlerMiddleware(deps.Logger))
	router.Use(middleware.NewHTTPRateLimitMiddleware(deps.Config))
	if deps.Config.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	corsCfg := cors.DefaultConfig()
	if len(deps.Config.Server.AllowedOrigins) == 1 && deps.Config.Server.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = deps.Config.Server.AllowedOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsCfg))

	api := router.Group("/api/v1")
	{
		api.GET("/cameras", deps.Cameras.ListCameras)
		api.GET("/cameras/:id", deps.Cameras.GetCamera)

		api.GET("/live/:cameraID", deps.Live.StreamMJPEG)
		api.GET("/live/:cameraID/ws", deps.Live.StreamWebSocket)

		api.POST("/sessions", deps.Sessions.CreateSession)
		api.GET("/sessions/:id", deps.Sessions.GetSession)
		api.DELETE("/sessions/:id", deps.Sessions.EndSession)
		api.POST("/sessions/:id/quality", deps.Sessions.ChangeQuality)
		api.POST("/sessions/:id/navigate", deps.Sessions.Navigate)
		api.POST("/sessions/:id/playback", deps.Sessions.StartPlayback)
		api.POST("/sessions/:id/playback/close", deps.Sessions.ClosePlayback)

		api.DELETE("/playback/:artifactID", deps.Playback.DeleteArtifact)
	}

	router.GET("/playback/files/:name", deps.Playback.ServeFile)

	router.GET("/healthz", func(c *gin.Context) {
		status := deps.Health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		body := gin.H{
			"status":    status.Status,
			"timestamp": status.Timestamp,
			"checks":    status.Checks,
		}
		if deps.LiveSessions != nil {
			body["live_sessions"] = deps.LiveSessions()
		}
		c.JSON(code, body)
	})

	if deps.Config.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return router
}
