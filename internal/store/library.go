package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
)

const trackColumns = `id, file_path, sidecar_path, artist, title, genre, bpm, key, hot_cues,
	energy, time_slot, vibe, source_url, source_id, duration_seconds, audio_format,
	album, year, label, downloaded_at`

// SaveTrack upserts a finished track.
func (s *LibraryStore) SaveTrack(t *domain.TrackRecord) error {

	var cuesJSON sql.NullString
	if len(t.HotCues) > 0 {
		data, err := json.Marshal(t.HotCues)
		if err != nil {
			return fmt.Errorf("failed to encode hot cues: %w", err)
		}
		cuesJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `INSERT OR REPLACE INTO library_tracks (` + trackColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		t.ID,
		t.FilePath,
		nullIfEmpty(t.SidecarPath),
		t.Artist,
		t.Title,
		t.Genre,
		nullIfZero(t.BPM),
		nullIfEmpty(t.Key),
		cuesJSON,
		nullIfEmpty(t.Energy),
		nullIfEmpty(t.TimeSlot),
		nullIfEmpty(t.Vibe),
		t.SourceURL,
		t.SourceID,
		t.DurationSeconds,
		nullIfEmpty(t.AudioFormat),
		nullIfEmpty(t.Album),
		nullIfEmpty(t.Year),
		nullIfEmpty(t.Label),
		t.DownloadedAt,
	)
	return err
}

// GetTrack fetches one track by id. Returns nil, nil when not found.
func (s *LibraryStore) GetTrack(id string) (*domain.TrackRecord, error) {
	row := s.db.QueryRow(`SELECT `+trackColumns+` FROM library_tracks WHERE id = ? LIMIT 1`, id)

	t, err := scanTrack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Return nil, nil to indicate "Not found"
		}
		return nil, fmt.Errorf("failed to fetch track: %w", err)
	}
	return t, nil
}

// ListTracks returns the full library, most recent first.
func (s *LibraryStore) ListTracks() ([]*domain.TrackRecord, error) {
	rows, err := s.db.Query(`SELECT ` + trackColumns + ` FROM library_tracks ORDER BY downloaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch library: %w", err)
	}
	defer rows.Close()

	var tracks []*domain.TrackRecord
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}

	return tracks, rows.Err()
}

// RekordboxExportEnabled reads the post-batch export toggle.
func (s *LibraryStore) RekordboxExportEnabled() (bool, error) {
	var enabled int
	err := s.db.QueryRow(`SELECT rekordbox_xml_enabled FROM settings WHERE id = 1`).Scan(&enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return enabled != 0, nil
}

// SetRekordboxExport toggles the post-batch export.
func (s *LibraryStore) SetRekordboxExport(enabled bool) error {
	val := 0
	if enabled {
		val = 1
	}
	_, err := s.db.Exec(`UPDATE settings SET rekordbox_xml_enabled = ? WHERE id = 1`, val)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*domain.TrackRecord, error) {
	t := &domain.TrackRecord{}
	var (
		sidecar, key, cues, energy, timeSlot, vibe sql.NullString
		format, album, year, label                 sql.NullString
		bpm                                        sql.NullInt64
		duration                                   sql.NullFloat64
	)

	err := row.Scan(
		&t.ID, &t.FilePath, &sidecar, &t.Artist, &t.Title, &t.Genre,
		&bpm, &key, &cues, &energy, &timeSlot, &vibe,
		&t.SourceURL, &t.SourceID, &duration, &format,
		&album, &year, &label, &t.DownloadedAt,
	)
	if err != nil {
		return nil, err
	}

	t.SidecarPath = sidecar.String
	t.Key = key.String
	t.Energy = energy.String
	t.TimeSlot = timeSlot.String
	t.Vibe = vibe.String
	t.AudioFormat = format.String
	t.Album = album.String
	t.Year = year.String
	t.Label = label.String
	t.BPM = int(bpm.Int64)
	t.DurationSeconds = duration.Float64

	if cues.Valid && cues.String != "" {
		if err := json.Unmarshal([]byte(cues.String), &t.HotCues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal hot cues for %s: %w", t.ID, err)
		}
	}

	return t, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullIfZero(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
