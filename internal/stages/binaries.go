package stages

import (
	"fmt"
	"os/exec"
)

// RequiredBinaries lists external system binaries the pipeline needs to function
var RequiredBinaries = []string{
	"yt-dlp",
	"ffmpeg",
}

var OptionalBinaries = map[string]string{
	"fpcalc":        "fingerprint matching",
	"aubio":         "BPM detection",
	"keyfinder-cli": "key detection",
}

func ValidateDependencies() error {
	for _, bin := range RequiredBinaries {
		_, err := exec.LookPath(bin)
		if err != nil {
			return fmt.Errorf("required dependency: '%s' not found in PATH", bin)
		}
	}
	return nil
}

// Available reports whether a binary can be resolved on PATH.
func Available(bin string) bool {
	_, err := exec.LookPath(bin)
	return err == nil
}
