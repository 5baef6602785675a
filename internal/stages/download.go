package stages

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/KareemAyyad/rekordbox-dj/internal/infra/logger"
)

// DownloadService pulls best-quality audio for a URL into a working
// directory via yt-dlp.
type DownloadService struct {
	Timeout     time.Duration
	CookiesFile string
	Logger      *logger.Logger
}

func NewDownloadService(timeout time.Duration, cookiesFile string, log *logger.Logger) *DownloadService {
	return &DownloadService{Timeout: timeout, CookiesFile: cookiesFile, Logger: log}
}

// Download fetches the audio and returns the absolute path of the produced
// file. Failures are returned as errors; the caller escalates them to the
// manual-upload path.
func (s *DownloadService) Download(ctx context.Context, url, workDir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	outTmpl := filepath.Join(workDir, "%(title)s.%(ext)s")
	args := []string{
		"-f", "bestaudio/best",
		"-o", outTmpl,
		"--no-playlist",
		"--no-warnings",
		"--socket-timeout", "10",
		"--print", "after_move:filepath",
		"--no-simulate",
	}
	if s.CookiesFile != "" {
		args = append(args, "--cookies", s.CookiesFile)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp download failed: %w (%s)", err, tail(stderr.String(), 500))
	}

	// --print after_move:filepath emits the final path, one per produced file
	var path string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			path = line
		}
	}
	if path == "" {
		return "", fmt.Errorf("yt-dlp produced no output file for %s", url)
	}

	return path, nil
}
