package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/logger"
)

// AudioProcessor runs ffmpeg for loudness normalization and format
// conversion. Every invocation carries a timeout so a wedged encode
// becomes a stage failure, never a hang.
type AudioProcessor struct {
	Timeout time.Duration
	Logger  *logger.Logger
}

func NewAudioProcessor(timeout time.Duration, log *logger.Logger) *AudioProcessor {
	return &AudioProcessor{Timeout: timeout, Logger: log}
}

func codecForFormat(f domain.AudioFormat) string {
	switch f {
	case domain.FormatWAV:
		return "pcm_s16le"
	case domain.FormatFLAC:
		return "flac"
	case domain.FormatMP3:
		return "libmp3lame"
	default:
		return "pcm_s16be"
	}
}

// loudnormAnalysis is the JSON block ffmpeg prints on stderr after pass 1.
type loudnormAnalysis struct {
	InputI       string `json:"input_i"`
	InputTP      string `json:"input_tp"`
	InputLRA     string `json:"input_lra"`
	InputThresh  string `json:"input_thresh"`
	TargetOffset string `json:"target_offset"`
}

// Normalize performs two-pass EBU R128 loudness normalization: pass 1
// measures, pass 2 applies the measured values with linear gain.
func (p *AudioProcessor) Normalize(ctx context.Context, in, out string, format domain.AudioFormat, t domain.LoudnessTargets) error {
	baseFilter := fmt.Sprintf("loudnorm=I=%g:TP=%g:LRA=%g", t.I, t.TP, t.LRA)

	// Pass 1: analyze only
	stderr, err := p.runFFmpeg(ctx,
		"-y", "-i", in, "-vn",
		"-af", baseFilter+":print_format=json",
		"-f", "null", "-",
	)
	if err != nil {
		return err
	}

	analysis, err := extractLastJSON(stderr)
	if err != nil {
		return err
	}

	// Pass 2: apply with measured values
	filter := fmt.Sprintf("%s:measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:offset=%s:linear=true:print_format=summary",
		baseFilter, analysis.InputI, analysis.InputTP, analysis.InputLRA, analysis.InputThresh, analysis.TargetOffset)

	_, err = p.runFFmpeg(ctx,
		"-y", "-i", in, "-vn",
		"-af", filter,
		"-acodec", codecForFormat(format),
		"-ar", "44100",
		out,
	)
	return err
}

// Transcode converts to the target format at 44.1 kHz without touching
// loudness.
func (p *AudioProcessor) Transcode(ctx context.Context, in, out string, format domain.AudioFormat) error {
	_, err := p.runFFmpeg(ctx,
		"-y", "-i", in, "-vn",
		"-acodec", codecForFormat(format),
		"-ar", "44100",
		out,
	)
	return err
}

func (p *AudioProcessor) runFFmpeg(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg failed: %w (%s)", err, tail(stderr.String(), 4000))
	}
	return stderr.String(), nil
}

// extractLastJSON pulls the trailing JSON object out of ffmpeg stderr.
func extractLastJSON(text string) (*loudnormAnalysis, error) {
	start := strings.LastIndex(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("could not locate loudnorm JSON in ffmpeg output")
	}

	var analysis loudnormAnalysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &analysis); err != nil {
		return nil, fmt.Errorf("could not parse loudnorm JSON: %w", err)
	}
	return &analysis, nil
}
