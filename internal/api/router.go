package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Upcasted/optimus-courier/internal/api/handlers"
	"github.com/Upcasted/optimus-courier/internal/application"
	"github.com/Upcasted/optimus-courier/internal/config"
	"github.com/Upcasted/optimus-courier/pkg/logging"
	"github.com/Upcasted/optimus-courier/pkg/metrics"
	"github.com/Upcasted/optimus-courier/pkg/middleware"
)

// Dependencies are the services the HTTP API exposes
type Dependencies struct {
	ServiceName string
	AWB         *application.AWBService
	Labels      *application.LabelService
	Tracking    *application.TrackingService
	Settings    *config.Store
	Tokens      *TokenIssuer
	Logger      *logging.Logger
	Metrics     *metrics.Metrics
	Ready       func() error
}

// NewRouter builds the gin engine with the shared middleware stack and every route
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	middleware.Setup(router, middleware.DefaultConfig(deps.ServiceName, deps.Logger.Logger))
	router.Use(middleware.Tracing(middleware.DefaultTracingConfig(deps.ServiceName)))
	router.Use(middleware.Metrics(deps.Metrics))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	ready := deps.Ready
	if ready == nil {
		ready = func() error { return nil }
	}
	router.GET("/health", middleware.HealthCheck(deps.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(deps.ServiceName, ready))
	router.GET("/metrics", middleware.MetricsEndpoint(deps.Metrics))

	awbHandler := handlers.NewAWBHandler(deps.AWB, deps.Tracking, deps.Logger)
	labelHandler := handlers.NewLabelHandler(deps.Labels, deps.Logger)
	trackingHandler := handlers.NewTrackingHandler(deps.Tracking, deps.Logger)
	settingsHandler := handlers.NewSettingsHandler(deps.Settings, deps.Tracking, deps.Logger)

	router.GET("/track", trackingHandler.Track)

	api := router.Group("/api/v1")
	api.GET("/session-token", SessionToken(deps.Tokens))

	secured := api.Group("", RequireToken(deps.Tokens))
	{
		orders := secured.Group("/orders/:id")
		orders.POST("/awb", awbHandler.Generate)
		orders.POST("/awb/regenerate", awbHandler.Regenerate)
		orders.POST("/awb/manual", awbHandler.GenerateManual)
		orders.DELETE("/awb", awbHandler.Delete)
		orders.GET("/tracking-links", awbHandler.TrackingLinks)

		secured.POST("/awb/bulk", awbHandler.BulkGenerate)
		secured.GET("/awb/:awb/status", awbHandler.Status)

		secured.POST("/labels/merged", labelHandler.Merged)
		secured.POST("/labels/zip", labelHandler.Zip)
		secured.GET("/labels/:awb", labelHandler.Single)

		secured.GET("/settings", settingsHandler.Get)
		secured.PUT("/settings", settingsHandler.Update)
		secured.POST("/settings/validate-credentials", settingsHandler.ValidateCredentials)
	}

	return router
}
