package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KareemAyyad/rekordbox-dj/internal/app"
	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/events"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/config"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/logger"
	"github.com/KareemAyyad/rekordbox-dj/internal/stages"
)

// --- fakes ---

type fakeMetadata struct {
	err      error
	failURLs map[string]error
	info     domain.VideoInfo
}

func (f *fakeMetadata) Fetch(ctx context.Context, url string) (*domain.VideoInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := f.failURLs[url]; err != nil {
		return nil, err
	}
	info := f.info
	// Per-URL id so concurrent items get distinct work dirs.
	if m := watchIDPat.FindStringSubmatch(url); m != nil {
		info.ID = m[1]
	}
	return &info, nil
}

type fakeDownloader struct {
	err      error
	failURLs map[string]error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeDownloader) Download(ctx context.Context, url, workDir string) (string, error) {
	n := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer f.inFlight.Add(-1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	if err := f.failURLs[url]; err != nil {
		return "", err
	}

	path := filepath.Join(workDir, "raw.wav")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeClassifier struct {
	cls domain.Classification
}

func (f *fakeClassifier) Classify(itemID string, info *domain.VideoInfo) domain.Classification {
	return f.cls
}

type fakeFingerprint struct {
	match *domain.MusicMatch
}

func (f *fakeFingerprint) Match(ctx context.Context, audioPath string, fallback domain.NormalizedTitle, titleHadSeparator bool) *domain.MusicMatch {
	return f.match
}

type fakeAnalyzer struct {
	info domain.HarmonicInfo
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, audioPath string) (domain.HarmonicInfo, error) {
	return f.info, nil
}

type fakeAudio struct {
	normalizeCalls atomic.Int32
	transcodeCalls atomic.Int32
}

func (f *fakeAudio) Normalize(ctx context.Context, in, out string, format domain.AudioFormat, t domain.LoudnessTargets) error {
	f.normalizeCalls.Add(1)
	return os.WriteFile(out, []byte("normalized"), 0644)
}

func (f *fakeAudio) Transcode(ctx context.Context, in, out string, format domain.AudioFormat) error {
	f.transcodeCalls.Add(1)
	return os.WriteFile(out, []byte("transcoded"), 0644)
}

type fakeTagger struct{}

func (f *fakeTagger) PickThumbnailURL(info *domain.VideoInfo) string { return "" }

func (f *fakeTagger) DownloadThumbnail(ctx context.Context, url, dest string) (string, error) {
	return dest, nil
}

func (f *fakeTagger) Apply(ctx context.Context, path string, format domain.AudioFormat, tags map[string]string, artworkPath string) error {
	return nil
}

type fakeStore struct {
	mu            sync.Mutex
	saved         []*domain.TrackRecord
	exportEnabled bool
}

func (f *fakeStore) SaveTrack(t *domain.TrackRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, t)
	return nil
}

func (f *fakeStore) ListTracks() ([]*domain.TrackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.TrackRecord, len(f.saved))
	copy(out, f.saved)
	return out, nil
}

func (f *fakeStore) RekordboxExportEnabled() (bool, error) { return f.exportEnabled, nil }

type fakeExport struct {
	calls atomic.Int32
	err   error
}

func (f *fakeExport) Generate(tracks []*domain.TrackRecord, outDir string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(outDir, "crate_import.xml"), nil
}

// --- harness ---

type fixture struct {
	pipe     *Pipeline
	bus      *events.Bus
	inbox    string
	metadata *fakeMetadata
	download *fakeDownloader
	classify *fakeClassifier
	audio    *fakeAudio
	store    *fakeStore
	export   *fakeExport
}

func newFixture(t *testing.T, maxConcurrent int) *fixture {
	t.Helper()

	inbox := t.TempDir()
	cfg := &config.Config{}
	cfg.Library.InboxDir = inbox
	cfg.Pipeline.MaxConcurrent = maxConcurrent
	cfg.Download.UploadExtensions = []string{".mp3", ".wav", ".aiff", ".flac"}

	log, err := logger.New(filepath.Join(t.TempDir(), "test.log"), logger.ParseLevel("error"), false)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	f := &fixture{
		inbox: inbox,
		metadata: &fakeMetadata{info: domain.VideoInfo{
			ID:       "abc123def45",
			Title:    "Keinemusik - Muyè (Extended Mix)",
			Uploader: "Keinemusik",
			Duration: 300,
		}},
		download: &fakeDownloader{},
		classify: &fakeClassifier{cls: domain.Classification{Kind: domain.KindTrack, Genre: "Afro House"}},
		audio:    &fakeAudio{},
		store:    &fakeStore{},
		export:   &fakeExport{},
	}

	appCtx := app.NewContext(cfg, log)
	appCtx.Metadata = f.metadata
	appCtx.Downloader = f.download
	appCtx.Classify = f.classify
	appCtx.Titles = stages.NewTitleParser()
	appCtx.Fingerprint = &fakeFingerprint{}
	appCtx.Harmonic = &fakeAnalyzer{info: domain.HarmonicInfo{BPM: 122, Key: "8A"}}
	appCtx.Audio = f.audio
	appCtx.Tags = &fakeTagger{}
	appCtx.Store = f.store
	appCtx.Export = f.export

	f.bus = events.NewBus(100, 100)
	f.pipe = NewPipeline(appCtx, f.bus)
	return f
}

func request(items int) domain.BatchRequest {
	req := domain.BatchRequest{
		Mode:             domain.ModeDJSafe,
		Format:           domain.FormatAIFF,
		NormalizeEnabled: true,
		Loudness:         domain.DefaultLoudness(),
	}
	for i := 0; i < items; i++ {
		req.Items = append(req.Items, domain.BatchItem{
			ID:  fmt.Sprintf("item-%d", i),
			URL: fmt.Sprintf("https://example.com/watch?v=abc123def4%d", i),
		})
	}
	return req
}

func countType(hist []events.Event, typ events.Type) int {
	n := 0
	for _, ev := range hist {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// --- tests ---

func TestRunBatchSuccess(t *testing.T) {
	f := newFixture(t, 3)
	req := request(1)
	req.InboxDir = f.inbox
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	hist := job.History()
	if hist[0].Type != events.TypeQueueStart {
		t.Fatalf("first event = %s, want queue-start", hist[0].Type)
	}
	if hist[len(hist)-1].Type != events.TypeQueueDone {
		t.Fatalf("last event = %s, want queue-done", hist[len(hist)-1].Type)
	}
	if n := countType(hist, events.TypeItemDone); n != 1 {
		t.Fatalf("item-done count = %d, want 1", n)
	}
	if n := countType(hist, events.TypeItemError); n != 0 {
		t.Fatalf("unexpected item-error in %+v", hist)
	}

	if len(f.store.saved) != 1 {
		t.Fatalf("saved tracks = %d, want 1", len(f.store.saved))
	}
	track := f.store.saved[0]
	if track.Artist != "Keinemusik" {
		t.Fatalf("artist = %q", track.Artist)
	}
	if !strings.Contains(track.Title, "Muyè") {
		t.Fatalf("title = %q", track.Title)
	}
	if track.Genre != "Afro House" {
		t.Fatalf("genre = %q", track.Genre)
	}
	if track.BPM != 122 || track.Key != "8A" {
		t.Fatalf("bpm/key = %d/%q", track.BPM, track.Key)
	}

	// Output landed in the inbox, work dir removed, sidecar written.
	if _, err := os.Stat(track.FilePath); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if filepath.Dir(track.FilePath) != f.inbox {
		t.Fatalf("output outside inbox: %s", track.FilePath)
	}
	if track.SidecarPath == "" {
		t.Fatal("sidecar path not recorded")
	}
	if _, err := os.Stat(track.SidecarPath); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	entries, _ := os.ReadDir(f.inbox)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), workDirPrefix) {
			t.Fatalf("work dir %s not cleaned up", e.Name())
		}
	}

	if f.audio.normalizeCalls.Load() != 1 {
		t.Fatalf("normalize calls = %d, want 1", f.audio.normalizeCalls.Load())
	}
}

func TestFastModeSkipsNormalize(t *testing.T) {
	f := newFixture(t, 3)
	req := request(1)
	req.InboxDir = f.inbox
	req.Mode = domain.ModeFast
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	if f.audio.normalizeCalls.Load() != 0 {
		t.Fatal("normalize ran in fast mode")
	}
	if f.audio.transcodeCalls.Load() != 1 {
		t.Fatalf("transcode calls = %d, want 1", f.audio.transcodeCalls.Load())
	}
}

func TestFastModeSameFormatMovesFile(t *testing.T) {
	f := newFixture(t, 3)
	req := request(1)
	req.InboxDir = f.inbox
	req.Mode = domain.ModeFast
	req.Format = domain.FormatWAV
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	// The download already matches the target format, so the file is
	// moved into place instead of re-encoded.
	if f.audio.transcodeCalls.Load() != 0 {
		t.Fatalf("transcode calls = %d, want 0", f.audio.transcodeCalls.Load())
	}
	if f.audio.normalizeCalls.Load() != 0 {
		t.Fatal("normalize ran in fast mode")
	}
	if n := countType(job.History(), events.TypeItemDone); n != 1 {
		t.Fatalf("item-done count = %d, want 1", n)
	}
	track := f.store.saved[0]
	if filepath.Ext(track.FilePath) != ".wav" {
		t.Fatalf("output ext = %q, want .wav", filepath.Ext(track.FilePath))
	}
	if _, err := os.Stat(track.FilePath); err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
}

func TestConcurrencyHighWatermark(t *testing.T) {
	f := newFixture(t, 2)
	f.download.delay = 30 * time.Millisecond
	req := request(6)
	req.InboxDir = f.inbox
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	if peak := f.download.peak.Load(); peak > 2 {
		t.Fatalf("concurrent downloads peaked at %d, limit 2", peak)
	}
	if n := countType(job.History(), events.TypeItemDone); n != 6 {
		t.Fatalf("item-done count = %d, want 6", n)
	}
}

func TestMetadataFailureSuspendsAndResumes(t *testing.T) {
	f := newFixture(t, 3)
	f.metadata.err = errors.New("403 forbidden")
	req := request(1)
	req.InboxDir = f.inbox
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	hist := job.History()
	if n := countType(hist, events.TypeUploadNeeded); n != 1 {
		t.Fatalf("upload-needed count = %d, want 1", n)
	}
	if n := countType(hist, events.TypeItemError); n != 0 {
		t.Fatal("suspended item must not also error")
	}
	if f.pipe.PendingUploadCount() != 1 {
		t.Fatalf("pending uploads = %d, want 1", f.pipe.PendingUploadCount())
	}

	err := f.pipe.Resume("item-0", "Adam Port - Move On.wav", strings.NewReader("audio-bytes"))
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	waitFor(t, func() bool {
		return countType(job.History(), events.TypeItemDone) == 1
	})

	// One item-start from the first attempt, one announcing the resume.
	if n := countType(job.History(), events.TypeItemStart); n != 2 {
		t.Fatalf("item-start count = %d, want 2", n)
	}

	if len(f.store.saved) != 1 {
		t.Fatalf("saved tracks = %d, want 1", len(f.store.saved))
	}
	track := f.store.saved[0]
	if track.Artist != "Adam Port" || !strings.Contains(track.Title, "Move On") {
		t.Fatalf("filename-derived tags lost: %q / %q", track.Artist, track.Title)
	}
	if f.pipe.PendingUploadCount() != 0 {
		t.Fatal("resume context not consumed")
	}
}

func TestResumeRejectsUnsupportedExtension(t *testing.T) {
	f := newFixture(t, 3)
	f.metadata.err = errors.New("blocked")
	req := request(1)
	req.InboxDir = f.inbox
	job := f.bus.CreateJob()
	f.pipe.RunBatch(context.Background(), job, req)

	err := f.pipe.Resume("item-0", "notes.txt", strings.NewReader("nope"))
	if !errors.Is(err, domain.ErrUnsupportedFileType) {
		t.Fatalf("err = %v, want ErrUnsupportedFileType", err)
	}
	// The context survives a rejected upload so the caller can retry.
	if f.pipe.PendingUploadCount() != 1 {
		t.Fatal("resume context lost after rejected upload")
	}
}

func TestResumeUnknownItem(t *testing.T) {
	f := newFixture(t, 3)
	err := f.pipe.Resume("ghost", "a.mp3", strings.NewReader("x"))
	if !errors.Is(err, domain.ErrNoPendingUpload) {
		t.Fatalf("err = %v, want ErrNoPendingUpload", err)
	}
}

func TestCancelBeforeStart(t *testing.T) {
	f := newFixture(t, 1)
	req := request(3)
	req.InboxDir = f.inbox
	job := f.bus.CreateJob()
	job.RequestCancel()

	f.pipe.RunBatch(context.Background(), job, req)

	hist := job.History()
	if n := countType(hist, events.TypeItemError); n != 3 {
		t.Fatalf("item-error count = %d, want 3", n)
	}
	if n := countType(hist, events.TypeItemDone); n != 0 {
		t.Fatal("cancelled batch completed items")
	}
	if hist[len(hist)-1].Type != events.TypeQueueDone {
		t.Fatal("queue-done missing after cancelled batch")
	}
	if len(f.store.saved) != 0 {
		t.Fatal("cancelled batch saved tracks")
	}
}

func TestPresetBeatsClassifier(t *testing.T) {
	f := newFixture(t, 3)
	req := request(1)
	req.InboxDir = f.inbox
	req.Items[0].Preset = domain.DJTags{Genre: "Melodic Techno", Energy: "4/5"}
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	track := f.store.saved[0]
	if track.Genre != "Melodic Techno" {
		t.Fatalf("genre = %q, want preset to win", track.Genre)
	}
	if track.Energy != "4/5" {
		t.Fatalf("energy = %q", track.Energy)
	}
}

func TestGenreSentinelLosesToClassifier(t *testing.T) {
	f := newFixture(t, 3)
	req := request(1)
	req.InboxDir = f.inbox
	req.Items[0].Preset = domain.DJTags{Genre: domain.GenreUnset}
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	if got := f.store.saved[0].Genre; got != "Afro House" {
		t.Fatalf("genre = %q, want classifier value over %q sentinel", got, domain.GenreUnset)
	}
}

func TestFingerprintMatchOverridesTitleParse(t *testing.T) {
	f := newFixture(t, 3)
	req := request(1)
	req.InboxDir = f.inbox
	job := f.bus.CreateJob()

	f.pipe.app.Fingerprint = &fakeFingerprint{match: &domain.MusicMatch{
		Artist: "&ME",
		Title:  "The Rapture Pt.II",
		Album:  "The Rapture",
		Year:   "2019",
		Label:  "Keinemusik",
		Score:  0.97,
	}}

	f.pipe.RunBatch(context.Background(), job, req)

	track := f.store.saved[0]
	if track.Artist != "&ME" || track.Title != "The Rapture Pt.II" {
		t.Fatalf("fingerprint values lost: %q / %q", track.Artist, track.Title)
	}
	if track.Album != "The Rapture" || track.Year != "2019" || track.Label != "Keinemusik" {
		t.Fatalf("release info lost: %+v", track)
	}
}

func TestExportRunsAfterCompletedBatch(t *testing.T) {
	f := newFixture(t, 3)
	f.store.exportEnabled = true
	req := request(1)
	req.InboxDir = f.inbox
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	if f.export.calls.Load() != 1 {
		t.Fatalf("export calls = %d, want 1", f.export.calls.Load())
	}
}

func TestExportFailureDegradesToWarning(t *testing.T) {
	f := newFixture(t, 3)
	f.store.exportEnabled = true
	f.export.err = errors.New("disk full")
	req := request(1)
	req.InboxDir = f.inbox
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	hist := job.History()
	if n := countType(hist, events.TypeWarning); n != 1 {
		t.Fatalf("warning count = %d, want 1", n)
	}
	if hist[len(hist)-1].Type != events.TypeQueueDone {
		t.Fatal("queue-done missing after export failure")
	}
	if n := countType(hist, events.TypeItemDone); n != 1 {
		t.Fatal("export failure must not fail the item")
	}
}

func TestDownloadFailureSuspendsWithContext(t *testing.T) {
	f := newFixture(t, 3)
	f.download.err = errors.New("fragment 1 not found")
	req := request(1)
	req.InboxDir = f.inbox
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	hist := job.History()
	var uploadEv *events.Event
	for i := range hist {
		if hist[i].Type == events.TypeUploadNeeded {
			uploadEv = &hist[i]
		}
	}
	if uploadEv == nil {
		t.Fatal("no upload-needed event")
	}
	// Metadata loaded before the download failed, so the UI gets the title.
	if uploadEv.Title != "Keinemusik - Muyè (Extended Mix)" {
		t.Fatalf("upload-needed title = %q", uploadEv.Title)
	}

	if err := f.pipe.Resume("item-0", "replacement.mp3", strings.NewReader("bytes")); err != nil {
		t.Fatalf("resume: %v", err)
	}
	waitFor(t, func() bool {
		return countType(job.History(), events.TypeItemDone) == 1
	})

	// The parsed artist/title from metadata survive suspension.
	track := f.store.saved[0]
	if track.Artist != "Keinemusik" {
		t.Fatalf("artist lost across suspension: %q", track.Artist)
	}
}

func TestFailingItemDoesNotPoisonBatch(t *testing.T) {
	f := newFixture(t, 3)
	req := request(3)
	req.InboxDir = f.inbox
	f.metadata.failURLs = map[string]error{
		req.Items[1].URL: errors.New("403 forbidden"),
	}
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	hist := job.History()
	if n := countType(hist, events.TypeItemDone); n != 2 {
		t.Fatalf("item-done count = %d, want 2", n)
	}
	if n := countType(hist, events.TypeUploadNeeded); n != 1 {
		t.Fatalf("upload-needed count = %d, want 1", n)
	}
	for _, ev := range hist {
		if ev.Type == events.TypeUploadNeeded && ev.ItemID != "item-1" {
			t.Fatalf("wrong item suspended: %s", ev.ItemID)
		}
	}
	if hist[len(hist)-1].Type != events.TypeQueueDone {
		t.Fatal("queue-done missing with a suspended item in the batch")
	}
	if len(f.store.saved) != 2 {
		t.Fatalf("saved tracks = %d, want 2", len(f.store.saved))
	}
	if f.pipe.PendingUploadCount() != 1 {
		t.Fatalf("pending uploads = %d, want 1", f.pipe.PendingUploadCount())
	}
}

func TestEachItemGetsOneTerminalEvent(t *testing.T) {
	f := newFixture(t, 3)
	req := request(3)
	req.InboxDir = f.inbox
	f.metadata.failURLs = map[string]error{
		req.Items[1].URL: errors.New("age gated"),
	}
	f.download.failURLs = map[string]error{
		req.Items[2].URL: errors.New("fragment 1 not found"),
	}
	job := f.bus.CreateJob()

	f.pipe.RunBatch(context.Background(), job, req)

	// item-done, item-error, and upload-needed all settle an item;
	// every item gets exactly one of them.
	terminal := map[string]int{}
	for _, ev := range job.History() {
		switch ev.Type {
		case events.TypeItemDone, events.TypeItemError, events.TypeUploadNeeded:
			terminal[ev.ItemID]++
		}
	}
	for _, item := range req.Items {
		if terminal[item.ID] != 1 {
			t.Fatalf("item %s terminal events = %d, want 1", item.ID, terminal[item.ID])
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
