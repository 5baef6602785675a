package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/logger"
)

// MetadataService fetches source metadata without downloading, via yt-dlp.
type MetadataService struct {
	Timeout     time.Duration
	CookiesFile string
	Logger      *logger.Logger
}

func NewMetadataService(timeout time.Duration, cookiesFile string, log *logger.Logger) *MetadataService {
	return &MetadataService{Timeout: timeout, CookiesFile: cookiesFile, Logger: log}
}

// Fetch runs `yt-dlp -J` and decodes the info JSON. A non-zero exit,
// timeout or undecodable output is returned as an error; the caller
// escalates that to the manual-upload path.
func (s *MetadataService) Fetch(ctx context.Context, url string) (*domain.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	args := []string{"-J", "--no-playlist", "--no-warnings", "--socket-timeout", "10"}
	if s.CookiesFile != "" {
		args = append(args, "--cookies", s.CookiesFile)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp metadata fetch failed: %w (%s)", err, tail(stderr.String(), 500))
	}

	var info domain.VideoInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("failed to decode yt-dlp output: %w", err)
	}

	if info.ID == "" && info.Title == "" {
		return nil, fmt.Errorf("yt-dlp returned no usable info for %s", url)
	}

	return &info, nil
}

// tail returns at most n trailing bytes of s, for error messages.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
