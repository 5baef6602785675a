package domain

// AudioFormat is the target encoding for finished library files.
type AudioFormat string

const (
	FormatAIFF AudioFormat = "aiff"
	FormatWAV  AudioFormat = "wav"
	FormatFLAC AudioFormat = "flac"
	FormatMP3  AudioFormat = "mp3"
)

// Ext returns the file extension for the format, including the dot.
// Unknown values fall back to AIFF, the safest format for CDJ hardware.
func (f AudioFormat) Ext() string {
	switch f {
	case FormatWAV:
		return ".wav"
	case FormatFLAC:
		return ".flac"
	case FormatMP3:
		return ".mp3"
	default:
		return ".aiff"
	}
}

// Mode selects between full processing and a quick grab.
type Mode string

const (
	// ModeDJSafe runs loudness normalization when enabled.
	ModeDJSafe Mode = "dj-safe"
	// ModeFast skips normalization and transcodes (or moves) only.
	ModeFast Mode = "fast"
)

// ContentKind is the classifier's guess at what a source URL contains.
type ContentKind string

const (
	KindTrack   ContentKind = "track"
	KindSet     ContentKind = "set"
	KindPodcast ContentKind = "podcast"
	KindVideo   ContentKind = "video"
	KindUnknown ContentKind = "unknown"
)

// Stage names one step of the per-item pipeline. The values are emitted
// verbatim in progress events, so they are part of the API surface.
type Stage string

const (
	StageMetadata    Stage = "metadata"
	StageClassify    Stage = "classify"
	StageDownload    Stage = "download"
	StageFingerprint Stage = "fingerprint"
	StageAnalysis    Stage = "analysis"
	StageNormalize   Stage = "normalize"
	StageTranscode   Stage = "transcode"
	StageTag         Stage = "tag"
	StageFinalize    Stage = "finalize"
)
