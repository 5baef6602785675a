package domain

// Thumbnail is one artwork candidate reported by the metadata fetcher.
type Thumbnail struct {
	URL        string `json:"url"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Preference int    `json:"preference,omitempty"`
}

// VideoInfo is the metadata fetched for a source URL before download.
type VideoInfo struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Uploader    string      `json:"uploader,omitempty"`
	Channel     string      `json:"channel,omitempty"`
	Description string      `json:"description,omitempty"`
	Duration    float64     `json:"duration,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Categories  []string    `json:"categories,omitempty"`
	Thumbnails  []Thumbnail `json:"thumbnails,omitempty"`
	WebpageURL  string      `json:"webpage_url,omitempty"`
}
