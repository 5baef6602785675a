package pipeline

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/events"
	"github.com/KareemAyyad/rekordbox-dj/internal/naming"
	"github.com/KareemAyyad/rekordbox-dj/internal/stages"
)

// workDirPrefix names the per-item scratch directory under the inbox.
const workDirPrefix = ".crate_tmp_"

// watchIDPat extracts an 11-character video id from common URL shapes, so a
// suspended item keeps a stable source id even when metadata never loaded.
var watchIDPat = regexp.MustCompile(`(?:[?&]v=|youtu\.be/|/shorts/)([A-Za-z0-9_-]{11})`)

// itemState is everything gathered about an item before the post-download
// stages run. The resume path reconstructs it from a stored context.
type itemState struct {
	SourceID     string
	SourceURL    string
	Info         *domain.VideoInfo
	Norm         domain.NormalizedTitle
	HadSeparator bool
	Class        domain.Classification
	WorkDir      string
}

// runItem drives one item through the stage machine. It emits exactly one
// terminal event: item-done, item-error, or item-upload-needed.
func (p *Pipeline) runItem(ctx context.Context, job *events.Job, req domain.BatchRequest, item domain.BatchItem) {
	if job.CancelRequested() {
		p.failItem(job, item, "", domain.ErrCancelled.Error(), "")
		return
	}

	p.bus.Broadcast(job, events.Event{
		Type:   events.TypeItemStart,
		JobID:  job.ID,
		ItemID: item.ID,
		URL:    item.URL,
	})

	p.progress(job, item, domain.StageMetadata)
	info, err := p.app.Metadata.Fetch(ctx, item.URL)
	if err != nil {
		p.app.Logger.Warn("metadata fetch failed for %s: %v", item.URL, err)
		sourceID := sourceIDFromURL(item.URL)
		p.suspend(job, req, item, itemState{
			SourceID:  sourceID,
			SourceURL: item.URL,
			WorkDir:   filepath.Join(req.InboxDir, workDirPrefix+sourceID),
		}, err)
		return
	}

	st := itemState{
		SourceID:  info.ID,
		SourceURL: item.URL,
		Info:      info,
	}
	if st.SourceID == "" {
		st.SourceID = sourceIDFromURL(item.URL)
	}
	st.WorkDir = filepath.Join(req.InboxDir, workDirPrefix+st.SourceID)

	p.progress(job, item, domain.StageClassify)
	st.HadSeparator = p.app.Titles.HasSeparator(info.Title)
	st.Norm = p.app.Titles.Normalize(info.Title, uploaderOf(info))
	st.Class = p.app.Classify.Classify(item.ID, info)

	if job.CancelRequested() {
		p.failItem(job, item, domain.StageDownload, domain.ErrCancelled.Error(), "")
		return
	}

	p.progress(job, item, domain.StageDownload)
	if err := os.MkdirAll(st.WorkDir, 0755); err != nil {
		p.failItem(job, item, domain.StageDownload, fmt.Sprintf("could not create work dir: %v", err), "")
		return
	}
	audioPath, err := p.app.Downloader.Download(ctx, item.URL, st.WorkDir)
	if err != nil {
		p.app.Logger.Warn("download failed for %s: %v", item.URL, err)
		p.suspend(job, req, item, st, err)
		return
	}

	p.finishItem(ctx, job, req, item, st, audioPath)
}

// finishItem runs the post-download stages: fingerprint, harmonic analysis,
// normalize or transcode, tag, finalize. Both the normal path and the
// manual-upload resume path converge here.
func (p *Pipeline) finishItem(ctx context.Context, job *events.Job, req domain.BatchRequest, item domain.BatchItem, st itemState, audioPath string) {
	if job.CancelRequested() {
		p.failItem(job, item, domain.StageFingerprint, domain.ErrCancelled.Error(), st.WorkDir)
		return
	}

	p.progress(job, item, domain.StageFingerprint)
	match := p.app.Fingerprint.Match(ctx, audioPath, st.Norm, st.HadSeparator)

	p.progress(job, item, domain.StageAnalysis)
	harm, err := p.app.Harmonic.Analyze(ctx, audioPath)
	if err != nil {
		p.app.Logger.Warn("harmonic analysis failed for %s: %v", item.ID, err)
	}

	// Fingerprint-confirmed values beat the parsed title guess; the
	// caller's preset beats the classifier.
	artist := st.Norm.Artist
	title := st.Norm.Title
	version := st.Norm.Version
	var album, year, label string
	if match != nil {
		artist = match.Artist
		title = match.Title
		version = match.Version
		album = match.Album
		year = match.Year
		label = match.Label
	}
	genre := domain.EffectiveGenre(item.Preset.Genre, st.Class.Genre)
	energy := domain.EffectiveTag(item.Preset.Energy, st.Class.Energy)
	timeSlot := domain.EffectiveTag(item.Preset.Time, st.Class.Time)
	vibe := domain.EffectiveTag(item.Preset.Vibe, st.Class.Vibe)

	displayTitle := title
	if version != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(version)) {
		displayTitle = title + " (" + version + ")"
	}

	if job.CancelRequested() {
		p.failItem(job, item, domain.StageNormalize, domain.ErrCancelled.Error(), st.WorkDir)
		return
	}

	processed := filepath.Join(st.WorkDir, "processed"+req.Format.Ext())
	if req.NormalizeEnabled && req.Mode == domain.ModeDJSafe {
		p.progress(job, item, domain.StageNormalize)
		err = p.app.Audio.Normalize(ctx, audioPath, processed, req.Format, req.Loudness)
	} else {
		p.progress(job, item, domain.StageTranscode)
		if strings.EqualFold(filepath.Ext(audioPath), req.Format.Ext()) {
			// Already the target format; move it, no re-encode
			err = os.Rename(audioPath, processed)
		} else {
			err = p.app.Audio.Transcode(ctx, audioPath, processed, req.Format)
		}
	}
	if err != nil {
		stage := domain.StageTranscode
		if req.NormalizeEnabled && req.Mode == domain.ModeDJSafe {
			stage = domain.StageNormalize
		}
		p.failItem(job, item, stage, err.Error(), st.WorkDir)
		return
	}

	if job.CancelRequested() {
		p.failItem(job, item, domain.StageTag, domain.ErrCancelled.Error(), st.WorkDir)
		return
	}

	p.progress(job, item, domain.StageTag)
	artwork := ""
	if st.Info != nil {
		if thumbURL := p.app.Tags.PickThumbnailURL(st.Info); thumbURL != "" {
			aw, err := p.app.Tags.DownloadThumbnail(ctx, thumbURL, filepath.Join(st.WorkDir, "artwork.jpg"))
			if err != nil {
				p.app.Logger.Warn("artwork download failed for %s: %v", item.ID, err)
			} else {
				artwork = aw
			}
		}
	}
	tags := stages.BuildTags(artist, displayTitle, genre, energy, timeSlot, vibe, album, year, label, st.SourceURL, st.SourceID, harm.BPM, harm.Key)
	if err := p.app.Tags.Apply(ctx, processed, req.Format, tags, artwork); err != nil {
		p.failItem(job, item, domain.StageTag, err.Error(), st.WorkDir)
		return
	}

	p.progress(job, item, domain.StageFinalize)
	finalPath := uniquePath(filepath.Join(req.InboxDir, naming.RekordboxFilename(artist, displayTitle, req.Format.Ext(), harm.BPM, harm.Key)))
	if err := os.Rename(processed, finalPath); err != nil {
		p.failItem(job, item, domain.StageFinalize, fmt.Sprintf("could not move into inbox: %v", err), st.WorkDir)
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	track := &domain.TrackRecord{
		ID:           st.SourceID,
		FilePath:     finalPath,
		Artist:       artist,
		Title:        displayTitle,
		Genre:        genre,
		BPM:          harm.BPM,
		Key:          harm.Key,
		HotCues:      harm.Cues,
		Energy:       energy,
		TimeSlot:     timeSlot,
		Vibe:         vibe,
		SourceURL:    st.SourceURL,
		SourceID:     st.SourceID,
		AudioFormat:  string(req.Format),
		Album:        album,
		Year:         year,
		Label:        label,
		DownloadedAt: now,
	}
	if st.Info != nil {
		track.DurationSeconds = st.Info.Duration
	}

	sidecarPath := strings.TrimSuffix(finalPath, req.Format.Ext()) + ".json"
	if err := writeSidecar(sidecarPath, req, item, st, track, now); err != nil {
		p.app.Logger.Warn("could not write sidecar for %s: %v", item.ID, err)
	} else {
		track.SidecarPath = sidecarPath
	}

	if err := p.app.Store.SaveTrack(track); err != nil {
		p.failItem(job, item, domain.StageFinalize, fmt.Sprintf("could not save track: %v", err), st.WorkDir)
		return
	}
	job.AddCompleted(track.ID)

	p.bus.Broadcast(job, events.Event{
		Type:   events.TypeItemDone,
		JobID:  job.ID,
		ItemID: item.ID,
		URL:    st.SourceURL,
		Title:  artist + " - " + displayTitle,
	})

	if err := os.RemoveAll(st.WorkDir); err != nil {
		p.app.Logger.Warn("could not remove work dir %s: %v", st.WorkDir, err)
	}
}

// suspend parks the item for a manual upload instead of failing it. The
// work dir is kept so the uploaded file has a home.
func (p *Pipeline) suspend(job *events.Job, req domain.BatchRequest, item domain.BatchItem, st itemState, cause error) {
	p.pending.Put(&ResumeContext{
		JobID:   job.ID,
		Item:    item,
		Request: req,
		State:   st,
	})

	title := item.URL
	if st.Info != nil && st.Info.Title != "" {
		title = st.Info.Title
	}

	p.bus.Broadcast(job, events.Event{
		Type:    events.TypeUploadNeeded,
		JobID:   job.ID,
		ItemID:  item.ID,
		URL:     item.URL,
		Title:   title,
		Message: cause.Error(),
	})
}

func (p *Pipeline) progress(job *events.Job, item domain.BatchItem, stage domain.Stage) {
	p.bus.Broadcast(job, events.Event{
		Type:   events.TypeItemProgress,
		JobID:  job.ID,
		ItemID: item.ID,
		URL:    item.URL,
		Stage:  stage,
	})
}

// failItem emits the terminal error event and removes the work dir when one
// was created.
func (p *Pipeline) failItem(job *events.Job, item domain.BatchItem, stage domain.Stage, msg, workDir string) {
	p.bus.Broadcast(job, events.Event{
		Type:    events.TypeItemError,
		JobID:   job.ID,
		ItemID:  item.ID,
		URL:     item.URL,
		Stage:   stage,
		Message: msg,
	})
	if workDir != "" {
		if err := os.RemoveAll(workDir); err != nil {
			p.app.Logger.Warn("could not remove work dir %s: %v", workDir, err)
		}
	}
}

func writeSidecar(path string, req domain.BatchRequest, item domain.BatchItem, st itemState, track *domain.TrackRecord, now string) error {
	sc := domain.Sidecar{
		SourceURL:    st.SourceURL,
		SourceID:     st.SourceID,
		DownloadedAt: now,
		Normalized: domain.SidecarNormalized{
			Artist:  track.Artist,
			Title:   track.Title,
			Version: st.Norm.Version,
			Album:   track.Album,
			Year:    track.Year,
			Label:   track.Label,
			BPM:     track.BPM,
			Key:     track.Key,
			HotCues: track.HotCues,
		},
		DJDefaults: item.Preset,
		Processing: domain.SidecarProcessing{
			AudioFormat: string(req.Format),
			Normalize: domain.SidecarNormalizeConfig{
				Enabled:   req.NormalizeEnabled && req.Mode == domain.ModeDJSafe,
				TargetI:   req.Loudness.I,
				TargetTP:  req.Loudness.TP,
				TargetLRA: req.Loudness.LRA,
			},
		},
		Outputs: map[string]string{
			string(req.Format): filepath.Base(track.FilePath),
		},
	}
	if st.Info != nil {
		sc.Title = st.Info.Title
		sc.Uploader = uploaderOf(st.Info)
		sc.Duration = st.Info.Duration
	}

	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// uniquePath appends " (n)" before the extension until the path is free.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func uploaderOf(info *domain.VideoInfo) string {
	if info.Uploader != "" {
		return info.Uploader
	}
	return info.Channel
}

// sourceIDFromURL derives a stable id for URLs whose metadata never loaded:
// the video id when the URL carries one, else a short content hash.
func sourceIDFromURL(url string) string {
	if m := watchIDPat.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:10]
}
