package controllers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/KareemAyyad/rekordbox-dj/internal/app"
	"github.com/KareemAyyad/rekordbox-dj/internal/pipeline"
	"github.com/KareemAyyad/rekordbox-dj/internal/store"
)

type LibraryController struct {
	App   *app.Context
	Store *store.LibraryStore
	Pipe  *pipeline.Pipeline
}

// List returns every library track, newest first.
func (ctrl *LibraryController) List(c *echo.Context) error {
	tracks, err := ctrl.Store.ListTracks()
	if err != nil {
		ctrl.App.Logger.Error("could not list tracks: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not list tracks"})
	}
	return c.JSON(http.StatusOK, LibraryResponse{Count: len(tracks), Tracks: tracks})
}

// GetExportSetting reports whether rekordbox XML export runs after batches.
func (ctrl *LibraryController) GetExportSetting(c *echo.Context) error {
	enabled, err := ctrl.Store.RekordboxExportEnabled()
	if err != nil {
		ctrl.App.Logger.Error("could not read export setting: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not read setting"})
	}
	return c.JSON(http.StatusOK, ExportSetting{Enabled: enabled})
}

// SetExportSetting toggles post-batch rekordbox XML export.
func (ctrl *LibraryController) SetExportSetting(c *echo.Context) error {
	var body ExportSetting
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if err := ctrl.Store.SetRekordboxExport(body.Enabled); err != nil {
		ctrl.App.Logger.Error("could not update export setting: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not update setting"})
	}
	return c.JSON(http.StatusOK, body)
}

// Health reports liveness plus the number of items waiting for a manual
// upload.
func (ctrl *LibraryController) Health(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		PendingUploads: ctrl.Pipe.PendingUploadCount(),
	})
}
