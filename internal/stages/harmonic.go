package stages

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/logger"
)

// HarmonicAnalyzer detects BPM, musical key (as a Camelot code) and a
// basic beat-grid cue via external analysis tools. All results are
// best-effort: a missing tool or failed run yields zero values, never an
// error that aborts the item. The heavy lifting stays in child processes
// so analysis cannot stall the service.
type HarmonicAnalyzer struct {
	Timeout time.Duration
	Logger  *logger.Logger
}

func NewHarmonicAnalyzer(timeout time.Duration, log *logger.Logger) *HarmonicAnalyzer {
	return &HarmonicAnalyzer{Timeout: timeout, Logger: log}
}

// camelotByKey maps conventional key names to Camelot wheel codes.
var camelotByKey = map[string]string{
	"C": "8B", "C#": "3B", "Db": "3B", "D": "10B", "D#": "5B", "Eb": "5B",
	"E": "12B", "F": "7B", "F#": "2B", "Gb": "2B", "G": "9B", "G#": "4B",
	"Ab": "4B", "A": "11B", "A#": "6B", "Bb": "6B", "B": "1B",
	"Cm": "5A", "C#m": "12A", "Dbm": "12A", "Dm": "7A", "D#m": "2A", "Ebm": "2A",
	"Em": "9A", "Fm": "4A", "F#m": "11A", "Gbm": "11A", "Gm": "6A", "G#m": "1A",
	"Abm": "1A", "Am": "8A", "A#m": "3A", "Bbm": "3A", "Bm": "10A",
}

// Analyze runs the available tools against the file. Missing optional
// binaries simply leave their field unknown.
func (a *HarmonicAnalyzer) Analyze(ctx context.Context, audioPath string) (domain.HarmonicInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	info := domain.HarmonicInfo{}

	if Available("aubio") {
		if bpm, err := a.detectBPM(ctx, audioPath); err == nil {
			info.BPM = bpm
		} else {
			a.Logger.Debug("BPM detection failed for %s: %v", audioPath, err)
		}
		if cue, err := a.firstBeatCue(ctx, audioPath); err == nil {
			info.Cues = append(info.Cues, cue)
		}
	}

	if Available("keyfinder-cli") {
		if key, err := a.detectKey(ctx, audioPath); err == nil {
			info.Key = key
		} else {
			a.Logger.Debug("key detection failed for %s: %v", audioPath, err)
		}
	}

	return info, nil
}

// detectBPM parses `aubio tempo`, which prints "<bpm> bpm" on stdout.
func (a *HarmonicAnalyzer) detectBPM(ctx context.Context, path string) (int, error) {
	out, err := runTool(ctx, "aubio", "tempo", "-i", path)
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0, fmt.Errorf("aubio tempo produced no output")
	}
	bpmF, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable tempo %q: %w", fields[0], err)
	}

	bpm := int(bpmF + 0.5)
	if bpm <= 0 || bpm > 300 {
		return 0, fmt.Errorf("implausible bpm %d", bpm)
	}
	return bpm, nil
}

// firstBeatCue quantizes an "Intro" cue to the first detected beat.
func (a *HarmonicAnalyzer) firstBeatCue(ctx context.Context, path string) (domain.CuePoint, error) {
	out, err := runTool(ctx, "aubio", "beat", "-i", path)
	if err != nil {
		return domain.CuePoint{}, err
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		t, err := strconv.ParseFloat(strings.Fields(line)[0], 64)
		if err != nil {
			continue
		}
		return domain.CuePoint{Name: "Intro", Time: t, Color: "white"}, nil
	}
	return domain.CuePoint{}, fmt.Errorf("no beats detected")
}

// detectKey maps keyfinder-cli output ("Am", "F#", ...) to Camelot.
func (a *HarmonicAnalyzer) detectKey(ctx context.Context, path string) (string, error) {
	out, err := runTool(ctx, "keyfinder-cli", path)
	if err != nil {
		return "", err
	}

	key := strings.TrimSpace(out)
	if camelot, ok := camelotByKey[key]; ok {
		return camelot, nil
	}
	return "", fmt.Errorf("unknown key %q", key)
}

func runTool(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %w (%s)", name, err, tail(stderr.String(), 200))
	}
	return stdout.String(), nil
}
