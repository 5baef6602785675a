package controllers

import "github.com/KareemAyyad/rekordbox-dj/internal/domain"

// --- QUEUE (POST /api/queue) ---

type QueueItemRequest struct {
	URL    string        `json:"url"`
	Preset domain.DJTags `json:"preset"`
}

type QueueRequest struct {
	InboxDir  string             `json:"inbox_dir"`
	Mode      string             `json:"mode"`
	Format    string             `json:"audio_format"`
	Normalize *bool              `json:"normalize"`
	TargetI   *float64           `json:"target_i"`
	TargetTP  *float64           `json:"target_tp"`
	TargetLRA *float64           `json:"target_lra"`
	Items     []QueueItemRequest `json:"items"`
}

type QueueResponse struct {
	JobID string   `json:"job_id"`
	Items []string `json:"item_ids"`
}

type StopResponse struct {
	Stopped bool `json:"stopped"`
}

type UploadResponse struct {
	Resumed bool `json:"resumed"`
}

// --- LIBRARY (GET /api/library) ---

type LibraryResponse struct {
	Count  int                   `json:"count"`
	Tracks []*domain.TrackRecord `json:"tracks"`
}

// --- SETTINGS (GET/PUT /api/settings/export) ---

type ExportSetting struct {
	Enabled bool `json:"enabled"`
}

// --- HEALTH (GET /api/health) ---

type HealthResponse struct {
	Status         string `json:"status"`
	PendingUploads int    `json:"pending_uploads"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
