package domain

// TrackRecord is the persisted library row for one finished track.
type TrackRecord struct {
	ID              string     `json:"id"`
	FilePath        string     `json:"file_path"`
	SidecarPath     string     `json:"sidecar_path,omitempty"`
	Artist          string     `json:"artist"`
	Title           string     `json:"title"`
	Genre           string     `json:"genre"`
	BPM             int        `json:"bpm,omitempty"`
	Key             string     `json:"key,omitempty"`
	HotCues         []CuePoint `json:"hot_cues,omitempty"`
	Energy          string     `json:"energy,omitempty"`
	TimeSlot        string     `json:"time_slot,omitempty"`
	Vibe            string     `json:"vibe,omitempty"`
	SourceURL       string     `json:"source_url"`
	SourceID        string     `json:"source_id"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	AudioFormat     string     `json:"audio_format"`
	Album           string     `json:"album,omitempty"`
	Year            string     `json:"year,omitempty"`
	Label           string     `json:"label,omitempty"`
	DownloadedAt    string     `json:"downloaded_at"`
}

// Sidecar is the JSON description written next to every output file.
type Sidecar struct {
	SourceURL    string            `json:"sourceUrl"`
	SourceID     string            `json:"sourceId"`
	Title        string            `json:"title,omitempty"`
	Uploader     string            `json:"uploader,omitempty"`
	Duration     float64           `json:"duration,omitempty"`
	DownloadedAt string            `json:"downloadedAt"`
	Normalized   SidecarNormalized `json:"normalized"`
	DJDefaults   DJTags            `json:"djDefaults"`
	Processing   SidecarProcessing `json:"processing"`
	Outputs      map[string]string `json:"outputs"`
}

type SidecarNormalized struct {
	Artist  string     `json:"artist"`
	Title   string     `json:"title"`
	Version string     `json:"version,omitempty"`
	Album   string     `json:"album,omitempty"`
	Year    string     `json:"year,omitempty"`
	Label   string     `json:"label,omitempty"`
	BPM     int        `json:"bpm,omitempty"`
	Key     string     `json:"key,omitempty"`
	HotCues []CuePoint `json:"hotCues,omitempty"`
}

type SidecarProcessing struct {
	AudioFormat string                 `json:"audioFormat"`
	Normalize   SidecarNormalizeConfig `json:"normalize"`
}

type SidecarNormalizeConfig struct {
	Enabled   bool    `json:"enabled"`
	TargetI   float64 `json:"targetI"`
	TargetTP  float64 `json:"targetTP"`
	TargetLRA float64 `json:"targetLRA"`
}
