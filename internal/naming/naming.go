// Package naming builds filesystem-safe names for finished library files.
package naming

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	forbiddenChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	multiSpace     = regexp.MustCompile(`\s+`)
	trailingJunk   = regexp.MustCompile(`[. ]+$`)
)

// SanitizeFileComponent strips characters that are unsafe in file names,
// collapses whitespace and trims trailing dots/spaces (Windows shares
// reject those). An empty result becomes "Untitled".
func SanitizeFileComponent(value string) string {
	cleaned := forbiddenChars.ReplaceAllString(value, " ")
	cleaned = strings.TrimSpace(multiSpace.ReplaceAllString(cleaned, " "))
	cleaned = trailingJunk.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return "Untitled"
	}
	return cleaned
}

// RekordboxFilename composes "Artist - Title [BPM KEY].ext". BPM and key
// are optional and omitted when unknown.
func RekordboxFilename(artist, title, ext string, bpm int, key string) string {
	var suffixParts []string
	if bpm > 0 {
		suffixParts = append(suffixParts, fmt.Sprintf("%d", bpm))
	}
	if key != "" {
		suffixParts = append(suffixParts, key)
	}

	suffix := ""
	if len(suffixParts) > 0 {
		suffix = " [" + strings.Join(suffixParts, " ") + "]"
	}

	return SanitizeFileComponent(strings.TrimSpace(artist+" - "+title)+suffix) + ext
}
