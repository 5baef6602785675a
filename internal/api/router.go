package api

import (
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/KareemAyyad/rekordbox-dj/internal/api/controllers"
	"github.com/KareemAyyad/rekordbox-dj/internal/app"
	"github.com/KareemAyyad/rekordbox-dj/internal/events"
	"github.com/KareemAyyad/rekordbox-dj/internal/pipeline"
	"github.com/KareemAyyad/rekordbox-dj/internal/store"
)

func RegisterRoutes(e *echo.Echo, appCtx *app.Context, bus *events.Bus, pipe *pipeline.Pipeline, st *store.LibraryStore) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			appCtx.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	queueCtrl := &controllers.QueueController{App: appCtx, Bus: bus, Pipe: pipe}
	libCtrl := &controllers.LibraryController{App: appCtx, Store: st, Pipe: pipe}

	// Batch queue and progress stream
	e.POST("/api/queue", queueCtrl.Start)
	e.POST("/api/queue/:jobID/stop", queueCtrl.Stop)
	e.GET("/api/queue/:jobID/events", queueCtrl.Events)
	e.POST("/api/queue/upload/:itemID", queueCtrl.Upload)

	// Library and settings
	e.GET("/api/library", libCtrl.List)
	e.GET("/api/settings/export", libCtrl.GetExportSetting)
	e.PUT("/api/settings/export", libCtrl.SetExportSetting)

	e.GET("/api/health", libCtrl.Health)
}
