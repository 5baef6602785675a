package app

import (
	"context"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/config"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/logger"
)

type MetadataFetcher interface {
	// This allows the pipeline to call yt-dlp without importing stages
	Fetch(ctx context.Context, url string) (*domain.VideoInfo, error)
}

type AudioDownloader interface {
	Download(ctx context.Context, url, workDir string) (string, error)
}

type Classifier interface {
	Classify(itemID string, info *domain.VideoInfo) domain.Classification
}

type TitleParser interface {
	HasSeparator(rawTitle string) bool
	Normalize(rawTitle, uploader string) domain.NormalizedTitle
}

type Fingerprinter interface {
	// Match returns nil when no confident match was found
	Match(ctx context.Context, audioPath string, fallback domain.NormalizedTitle, titleHadSeparator bool) *domain.MusicMatch
}

type Analyzer interface {
	Analyze(ctx context.Context, audioPath string) (domain.HarmonicInfo, error)
}

type AudioProcessor interface {
	Normalize(ctx context.Context, in, out string, format domain.AudioFormat, t domain.LoudnessTargets) error
	Transcode(ctx context.Context, in, out string, format domain.AudioFormat) error
}

type Tagger interface {
	PickThumbnailURL(info *domain.VideoInfo) string
	DownloadThumbnail(ctx context.Context, url, dest string) (string, error)
	Apply(ctx context.Context, path string, format domain.AudioFormat, tags map[string]string, artworkPath string) error
}

type LibraryStore interface {
	SaveTrack(t *domain.TrackRecord) error
	ListTracks() ([]*domain.TrackRecord, error)
	RekordboxExportEnabled() (bool, error)
}

type Exporter interface {
	Generate(tracks []*domain.TrackRecord, outDir string) (string, error)
}

// Context holds the core environment and shared resources for Crate.
// It acts as the "Single Source of Truth" for the application state.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	// High-level interfaces for the pipeline to use
	Metadata    MetadataFetcher
	Downloader  AudioDownloader
	Classify    Classifier
	Titles      TitleParser
	Fingerprint Fingerprinter
	Harmonic    Analyzer
	Audio       AudioProcessor
	Tags        Tagger
	Store       LibraryStore
	Export      Exporter
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}
