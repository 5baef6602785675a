package domain

// GenreUnset is the preset sentinel meaning "the caller did not pick a genre".
// A preset carrying this value loses to an automatically classified genre.
const GenreUnset = "Other"

// DJTags is the caller's preset snapshot for one queue item. Empty strings
// (and GenreUnset for Genre) mean "no preference".
type DJTags struct {
	Genre  string `json:"genre"`
	Energy string `json:"energy"`
	Time   string `json:"time"`
	Vibe   string `json:"vibe"`
}

// Classification is the automatic content classifier's verdict.
type Classification struct {
	Kind       ContentKind `json:"kind"`
	Genre      string      `json:"genre,omitempty"`
	Energy     string      `json:"energy,omitempty"`
	Time       string      `json:"time,omitempty"`
	Vibe       string      `json:"vibe,omitempty"`
	Confidence float64     `json:"confidence"`
	Notes      string      `json:"notes,omitempty"`
}

// EffectiveTag merges a caller preset with an automatically computed value.
// The preset wins when set; otherwise the computed value; otherwise empty.
func EffectiveTag(preset, computed string) string {
	if preset != "" {
		return preset
	}
	return computed
}

// EffectiveGenre is EffectiveTag with the GenreUnset sentinel treated as
// unset, falling back to GenreUnset itself when nothing else is known.
func EffectiveGenre(preset, computed string) string {
	if preset != "" && preset != GenreUnset {
		return preset
	}
	if computed != "" {
		return computed
	}
	return GenreUnset
}

// NormalizedTitle is the artist/title/version guess parsed from a raw
// video title.
type NormalizedTitle struct {
	Artist  string `json:"artist"`
	Title   string `json:"title"`
	Version string `json:"version,omitempty"`
}

// MusicMatch is a confidence-gated fingerprint lookup result.
type MusicMatch struct {
	Artist        string  `json:"artist"`
	Title         string  `json:"title"`
	Version       string  `json:"version,omitempty"`
	Album         string  `json:"album,omitempty"`
	Year          string  `json:"year,omitempty"`
	Label         string  `json:"label,omitempty"`
	Score         float64 `json:"score"`
	RecordingMBID string  `json:"recording_mbid,omitempty"`
}

// CuePoint marks a beat-aligned position of interest in a track.
type CuePoint struct {
	Name  string  `json:"name"`
	Time  float64 `json:"time"`
	Color string  `json:"color,omitempty"`
}

// HarmonicInfo is the best-effort BPM/key analysis result. Zero BPM and an
// empty Key mean the analysis failed or was unavailable.
type HarmonicInfo struct {
	BPM  int        `json:"bpm"`
	Key  string     `json:"key"`
	Cues []CuePoint `json:"cues,omitempty"`
}
