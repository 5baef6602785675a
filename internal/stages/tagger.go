package stages

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/logger"
)

// Tagger embeds metadata and artwork into finished audio files and fetches
// thumbnail candidates.
type Tagger struct {
	HTTPTimeout   time.Duration
	FFmpegTimeout time.Duration
	Logger        *logger.Logger

	client *http.Client
}

func NewTagger(httpTimeout, ffmpegTimeout time.Duration, log *logger.Logger) *Tagger {
	return &Tagger{
		HTTPTimeout:   httpTimeout,
		FFmpegTimeout: ffmpegTimeout,
		Logger:        log,
		client:        &http.Client{Timeout: httpTimeout},
	}
}

// PickThumbnailURL chooses the largest usable thumbnail, preferring
// explicit preference scores when the source provides them.
func (t *Tagger) PickThumbnailURL(info *domain.VideoInfo) string {
	var best domain.Thumbnail
	bestScore := -1
	for _, th := range info.Thumbnails {
		if th.URL == "" {
			continue
		}
		score := th.Width * th.Height
		if score == 0 {
			score = th.Preference
		}
		if score >= bestScore {
			best, bestScore = th, score
		}
	}
	return best.URL
}

// DownloadThumbnail fetches artwork into the work dir. Best-effort: the
// caller treats an empty return as "no artwork".
func (t *Tagger) DownloadThumbnail(ctx context.Context, url, dest string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("thumbnail fetch returned status: %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return dest, nil
}

// Apply rewrites the file with the given tag map and, for container
// formats that support it, attaches the artwork as an embedded picture.
// ffmpeg writes to a sibling temp file which then replaces the original.
func (t *Tagger) Apply(ctx context.Context, path string, format domain.AudioFormat, tags map[string]string, artworkPath string) error {
	ctx, cancel := context.WithTimeout(ctx, t.FFmpegTimeout)
	defer cancel()

	tmp := filepath.Join(filepath.Dir(path), ".tagged_"+filepath.Base(path))

	args := []string{"-y", "-i", path}

	// Cover art embedding only works reliably for mp3/flac containers
	attachArt := artworkPath != "" && (format == domain.FormatMP3 || format == domain.FormatFLAC)
	if attachArt {
		args = append(args,
			"-i", artworkPath,
			"-map", "0:a", "-map", "1:v",
			"-c", "copy",
			"-disposition:v", "attached_pic",
		)
	} else {
		args = append(args, "-c", "copy")
	}

	for k, v := range tags {
		if strings.TrimSpace(v) == "" {
			continue
		}
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", k, v))
	}
	args = append(args, tmp)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ffmpeg tagging failed: %w (%s)", err, tail(stderr.String(), 500))
	}

	return os.Rename(tmp, path)
}

// BuildTags composes the tag map embedded into the output file. Energy,
// time slot and vibe ride in comment/grouping fields the way DJ software
// expects them.
func BuildTags(artist, title, genre, energy, timeSlot, vibe, album, year, label, sourceURL, sourceID string, bpm int, key string) map[string]string {
	tags := map[string]string{
		"artist": artist,
		"title":  title,
		"genre":  genre,
	}

	var commentParts []string
	if energy != "" {
		commentParts = append(commentParts, "Energy "+energy)
	}
	if vibe != "" {
		commentParts = append(commentParts, vibe)
	}
	if sourceURL != "" {
		commentParts = append(commentParts, sourceURL)
	}
	if len(commentParts) > 0 {
		tags["comment"] = strings.Join(commentParts, " | ")
	}

	if timeSlot != "" {
		tags["grouping"] = timeSlot
	}
	if album != "" {
		tags["album"] = album
	}
	if year != "" {
		tags["date"] = year
	}
	if label != "" {
		tags["publisher"] = label
	}
	if bpm > 0 {
		tags["TBPM"] = fmt.Sprintf("%d", bpm)
	}
	if key != "" {
		tags["TKEY"] = key
	}
	if sourceID != "" {
		tags["encoded_by"] = "crated:" + sourceID
	}

	return tags
}
