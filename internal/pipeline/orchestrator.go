// Package pipeline runs batches of URL-to-library items: bounded-concurrency
// fan-out, a per-item stage machine, and the manual-upload resume path for
// items whose source could not be fetched.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/KareemAyyad/rekordbox-dj/internal/app"
	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/events"
)

// Pipeline coordinates batch runs. One Pipeline serves the whole process;
// each submitted batch becomes a job on the event bus.
type Pipeline struct {
	app     *app.Context
	bus     *events.Bus
	pending *PendingUploads
}

func NewPipeline(appCtx *app.Context, bus *events.Bus) *Pipeline {
	return &Pipeline{
		app:     appCtx,
		bus:     bus,
		pending: NewPendingUploads(),
	}
}

// PendingUploadCount reports how many items are waiting for a manual upload.
func (p *Pipeline) PendingUploadCount() int { return p.pending.Count() }

// RunBatch processes every item of the request with at most MaxConcurrent
// items in flight. It always emits queue-start first and queue-done last,
// even when every item fails. Intended to run on its own goroutine.
func (p *Pipeline) RunBatch(ctx context.Context, job *events.Job, req domain.BatchRequest) {
	p.bus.Broadcast(job, events.Event{
		Type:     events.TypeQueueStart,
		JobID:    job.ID,
		Count:    len(req.Items),
		InboxDir: req.InboxDir,
		Mode:     string(req.Mode),
	})

	sem := make(chan struct{}, p.app.Config.Pipeline.MaxConcurrent)
	var wg sync.WaitGroup

	for _, item := range req.Items {
		wg.Add(1)

		go func(item domain.BatchItem) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.app.Logger.Error("panic processing item %s: %v", item.ID, r)
					p.bus.Broadcast(job, events.Event{
						Type:    events.TypeItemError,
						JobID:   job.ID,
						ItemID:  item.ID,
						URL:     item.URL,
						Message: fmt.Sprintf("internal error: %v", r),
					})
				}
			}()

			sem <- struct{}{}
			defer func() { <-sem }()

			p.runItem(ctx, job, req, item)
		}(item)
	}

	wg.Wait()

	p.maybeExport(job, req)

	p.bus.Broadcast(job, events.Event{Type: events.TypeQueueDone, JobID: job.ID})
}

// maybeExport regenerates the rekordbox XML after a batch that completed at
// least one track. Export failure degrades to a warning event; the batch
// outcome is unaffected.
func (p *Pipeline) maybeExport(job *events.Job, req domain.BatchRequest) {
	if len(job.CompletedIDs()) == 0 {
		return
	}

	enabled, err := p.app.Store.RekordboxExportEnabled()
	if err != nil {
		p.app.Logger.Warn("could not read export setting: %v", err)
		return
	}
	if !enabled {
		return
	}

	tracks, err := p.app.Store.ListTracks()
	if err != nil {
		p.warn(job, fmt.Sprintf("rekordbox export skipped: %v", err))
		return
	}

	xmlPath, err := p.app.Export.Generate(tracks, req.InboxDir)
	if err != nil {
		p.warn(job, fmt.Sprintf("rekordbox export failed: %v", err))
		return
	}

	p.app.Logger.Info("rekordbox export written to %s", xmlPath)
}

func (p *Pipeline) warn(job *events.Job, msg string) {
	p.app.Logger.Warn("%s", msg)
	p.bus.Broadcast(job, events.Event{Type: events.TypeWarning, JobID: job.ID, Message: msg})
}
