package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/KareemAyyad/rekordbox-dj/internal/app"
	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/events"
	"github.com/KareemAyyad/rekordbox-dj/internal/pipeline"
)

const (
	maxQueueItems     = 10
	sseKeepaliveEvery = 30 * time.Second
)

type QueueController struct {
	App  *app.Context
	Bus  *events.Bus
	Pipe *pipeline.Pipeline
}

// Start accepts a batch, registers a job and kicks off processing in the
// background. The response carries the job id for the events stream.
func (ctrl *QueueController) Start(c *echo.Context) error {
	var body QueueRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	if len(body.Items) == 0 || len(body.Items) > maxQueueItems {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("items must contain between 1 and %d entries", maxQueueItems),
		})
	}
	for i, item := range body.Items {
		if item.URL == "" {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("items[%d].url is required", i)})
		}
	}

	req, err := ctrl.buildRequest(&body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	job := ctrl.Bus.CreateJob()
	go ctrl.Pipe.RunBatch(context.Background(), job, req)

	itemIDs := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		itemIDs = append(itemIDs, item.ID)
	}

	ctrl.App.Logger.Info("queued job %s with %d item(s)", job.ID, len(req.Items))
	return c.JSON(http.StatusAccepted, QueueResponse{JobID: job.ID, Items: itemIDs})
}

func (ctrl *QueueController) buildRequest(body *QueueRequest) (domain.BatchRequest, error) {
	req := domain.BatchRequest{
		InboxDir:         body.InboxDir,
		Mode:             domain.ModeDJSafe,
		Format:           domain.FormatAIFF,
		NormalizeEnabled: true,
		Loudness:         domain.DefaultLoudness(),
	}

	if req.InboxDir == "" {
		req.InboxDir = ctrl.App.Config.Library.InboxDir
	}

	switch body.Mode {
	case "", string(domain.ModeDJSafe):
	case string(domain.ModeFast):
		req.Mode = domain.ModeFast
	default:
		return req, fmt.Errorf("unknown mode %q", body.Mode)
	}

	switch body.Format {
	case "", string(domain.FormatAIFF):
	case string(domain.FormatWAV):
		req.Format = domain.FormatWAV
	case string(domain.FormatFLAC):
		req.Format = domain.FormatFLAC
	case string(domain.FormatMP3):
		req.Format = domain.FormatMP3
	default:
		return req, fmt.Errorf("unknown audio_format %q", body.Format)
	}

	if body.Normalize != nil {
		req.NormalizeEnabled = *body.Normalize
	}
	if body.TargetI != nil {
		req.Loudness.I = *body.TargetI
	}
	if body.TargetTP != nil {
		req.Loudness.TP = *body.TargetTP
	}
	if body.TargetLRA != nil {
		req.Loudness.LRA = *body.TargetLRA
	}

	for _, item := range body.Items {
		req.Items = append(req.Items, domain.BatchItem{
			ID:     uuid.NewString()[:8],
			URL:    item.URL,
			Preset: item.Preset,
		})
	}

	return req, nil
}

// Stop flags the job for cooperative cancellation. Items already inside a
// stage finish that stage first.
func (ctrl *QueueController) Stop(c *echo.Context) error {
	jobID := c.Param("jobID")
	if !ctrl.Bus.RequestCancel(jobID) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrJobNotFound.Error()})
	}
	ctrl.App.Logger.Info("cancellation requested for job %s", jobID)
	return c.JSON(http.StatusOK, StopResponse{Stopped: true})
}

// Events streams the job's history and live events as server-sent events.
// The stream ends after queue-done, when the job is cleaned up, or when the
// client disconnects. A keepalive comment goes out every 30s.
func (ctrl *QueueController) Events(c *echo.Context) error {
	job, ok := ctrl.Bus.GetJob(c.Param("jobID"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: domain.ErrJobNotFound.Error()})
	}

	subID, ch := ctrl.Bus.Subscribe(job)
	defer ctrl.Bus.Unsubscribe(job, subID)

	res := c.Response()
	flusher, ok := res.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "streaming unsupported")
	}

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	keepalive := time.NewTicker(sseKeepaliveEvery)
	defer keepalive.Stop()

	clientGone := c.Request().Context().Done()

	for {
		select {
		case ev, open := <-ch:
			if !open {
				// Job was cleaned up
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				ctrl.App.Logger.Error("could not marshal event: %v", err)
				continue
			}
			fmt.Fprintf(res, "data: %s\n\n", data)
			flusher.Flush()
			if ev.Type == events.TypeQueueDone {
				return nil
			}
		case <-keepalive.C:
			fmt.Fprint(res, ": keepalive\n\n")
			flusher.Flush()
		case <-clientGone:
			return nil
		}
	}
}

// Upload accepts the manual file for an item parked as upload-needed and
// resumes it.
func (ctrl *QueueController) Upload(c *echo.Context) error {
	itemID := c.Param("itemID")

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "multipart field 'file' is required"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not read upload"})
	}
	defer src.Close()

	if err := ctrl.Pipe.Resume(itemID, fh.Filename, src); err != nil {
		switch {
		case errors.Is(err, domain.ErrNoPendingUpload):
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrUnsupportedFileType):
			return c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: err.Error()})
		case errors.Is(err, domain.ErrJobNotFound):
			return c.JSON(http.StatusGone, ErrorResponse{Error: err.Error()})
		default:
			ctrl.App.Logger.Error("upload for item %s failed: %v", itemID, err)
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "upload failed"})
		}
	}

	return c.JSON(http.StatusAccepted, UploadResponse{Resumed: true})
}
