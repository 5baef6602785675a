package domain

// LoudnessTargets are the EBU R128 targets for two-pass normalization.
type LoudnessTargets struct {
	I   float64 `json:"target_i"`
	TP  float64 `json:"target_tp"`
	LRA float64 `json:"target_lra"`
}

// DefaultLoudness returns the streaming-friendly defaults.
func DefaultLoudness() LoudnessTargets {
	return LoudnessTargets{I: -14.0, TP: -1.0, LRA: 11.0}
}

// BatchItem is one URL-to-library-file unit of work within a batch.
type BatchItem struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Preset DJTags `json:"preset_snapshot"`
}

// BatchRequest describes one batch submission. It is immutable for the
// life of the batch; workers only ever read it.
type BatchRequest struct {
	InboxDir         string          `json:"inbox_dir"`
	Mode             Mode            `json:"mode"`
	Format           AudioFormat     `json:"audio_format"`
	NormalizeEnabled bool            `json:"normalize_enabled"`
	Loudness         LoudnessTargets `json:"loudness"`
	Items            []BatchItem     `json:"items"`
}
