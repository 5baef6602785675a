package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/events"
)

// ResumeContext is the parked state of an item waiting for a manual upload.
// Everything the post-download stages need is captured here, so the item
// re-enters the pipeline exactly where it left off.
type ResumeContext struct {
	JobID   string
	Item    domain.BatchItem
	Request domain.BatchRequest
	State   itemState
}

// PendingUploads is the in-memory registry of parked items, keyed by item
// id. Entries survive until consumed or the process exits.
type PendingUploads struct {
	mu sync.Mutex
	m  map[string]*ResumeContext
}

func NewPendingUploads() *PendingUploads {
	return &PendingUploads{m: make(map[string]*ResumeContext)}
}

// Put stores (or restores) a resume context.
func (p *PendingUploads) Put(rc *ResumeContext) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[rc.Item.ID] = rc
}

// Pop removes and returns the context for the item, if any.
func (p *PendingUploads) Pop(itemID string) (*ResumeContext, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rc, ok := p.m[itemID]
	if ok {
		delete(p.m, itemID)
	}
	return rc, ok
}

func (p *PendingUploads) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// Resume accepts a manually uploaded file for a parked item, validates it,
// stores it in the item's work dir and re-enters the pipeline at the
// fingerprint stage on a new goroutine. Validation failures restore the
// resume context so the caller can retry with a different file.
func (p *Pipeline) Resume(itemID, filename string, upload io.Reader) error {
	rc, ok := p.pending.Pop(itemID)
	if !ok {
		return domain.ErrNoPendingUpload
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !p.uploadExtAllowed(ext) {
		p.pending.Put(rc)
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, ext)
	}

	job, ok := p.bus.GetJob(rc.JobID)
	if !ok {
		p.pending.Put(rc)
		return domain.ErrJobNotFound
	}

	if err := os.MkdirAll(rc.State.WorkDir, 0755); err != nil {
		p.pending.Put(rc)
		return fmt.Errorf("could not create work dir: %w", err)
	}

	dest := filepath.Join(rc.State.WorkDir, "uploaded"+ext)
	out, err := os.Create(dest)
	if err != nil {
		p.pending.Put(rc)
		return fmt.Errorf("could not store upload: %w", err)
	}
	if _, err := io.Copy(out, upload); err != nil {
		out.Close()
		os.Remove(dest)
		p.pending.Put(rc)
		return fmt.Errorf("could not store upload: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		p.pending.Put(rc)
		return fmt.Errorf("could not store upload: %w", err)
	}

	// An item parked before metadata loaded has no title guess; the
	// uploaded filename is the best source available.
	st := rc.State
	if st.Info == nil && st.Norm.Title == "" {
		base := strings.TrimSuffix(filepath.Base(filename), ext)
		st.HadSeparator = p.app.Titles.HasSeparator(base)
		st.Norm = p.app.Titles.Normalize(base, "")
	}

	p.app.Logger.Info("resuming item %s from manual upload %s", itemID, filename)

	// Tell stream consumers the item is live again before any stage runs.
	p.bus.Broadcast(job, events.Event{
		Type:   events.TypeItemStart,
		JobID:  job.ID,
		ItemID: itemID,
		URL:    rc.Item.URL,
	})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.app.Logger.Error("panic resuming item %s: %v", itemID, r)
				p.bus.Broadcast(job, events.Event{
					Type:    events.TypeItemError,
					JobID:   job.ID,
					ItemID:  itemID,
					URL:     rc.Item.URL,
					Message: fmt.Sprintf("internal error: %v", r),
				})
			}
		}()
		p.finishItem(context.Background(), job, rc.Request, rc.Item, st, dest)
	}()

	return nil
}

func (p *Pipeline) uploadExtAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range p.app.Config.Download.UploadExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}
