package stages

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
)

// TitleParser turns a raw video title into an artist/title/version guess.
type TitleParser struct{}

func NewTitleParser() *TitleParser { return &TitleParser{} }

var junkTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(official\s+video|official\s+music\s+video)\b`),
	regexp.MustCompile(`(?i)\b(official\s+audio)\b`),
	regexp.MustCompile(`(?i)\b(lyric\s+video|lyrics?)\b`),
	regexp.MustCompile(`(?i)\b(visuali[sz]er)\b`),
	regexp.MustCompile(`(?i)\b(hd|4k|8k)\b`),
	regexp.MustCompile(`(?i)\b(full\s+album)\b`),
}

var versionHints = []string{
	"original mix", "extended mix", "radio edit", "club mix", "dub",
	"edit", "remix", "rework", "bootleg", "vip mix", "vip", "mix",
}

var upperWords = map[string]bool{
	"dj": true, "mc": true, "ii": true, "iii": true, "iv": true,
	"uk": true, "us": true, "nyc": true, "la": true, "dc": true, "aka": true,
}

var lowerWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"vs": true, "vs.": true, "feat": true, "feat.": true, "ft": true, "ft.": true, "x": true,
}

// corrections fixes casing for names the generic title-caser mangles.
var corrections = map[string]string{
	"jay-z":        "JAY-Z",
	"jay z":        "JAY-Z",
	"a$ap":         "A$AP",
	"asap":         "A$AP",
	"xxxtentacion": "XXXTentacion",
	"6lack":        "6LACK",
	"t-pain":       "T-Pain",
	"j cole":       "J. Cole",
	"j. cole":      "J. Cole",
	"the weeknd":   "The Weeknd",
	"d.j.":         "DJ",
	"m.c.":         "MC",
}

var (
	bracketNoise  = regexp.MustCompile(`\[[^\]]*\]`)
	emptyParens   = regexp.MustCompile(`\(\s*\)`)
	spaceRun      = regexp.MustCompile(`\s+`)
	trailingParen = regexp.MustCompile(`\(([^)]{2,80})\)\s*$`)
	separatorPat  = regexp.MustCompile(`(\s-\s|\s\x{2013}\s|\s\x{2014}\s|\s\|\s)`)
)

var titleSeparators = []string{" - ", " – ", " — ", " | "}

// HasSeparator reports whether the raw title carries an explicit
// artist/title separator. Fingerprint matching is gated more strictly when
// it does, because the parsed guess is already trustworthy.
func (p *TitleParser) HasSeparator(rawTitle string) bool {
	return separatorPat.MatchString(rawTitle)
}

// Normalize cleans the raw title, splits artist from title, and pulls a
// version tag ("Extended Mix", ...) out of trailing parentheses.
func (p *TitleParser) Normalize(rawTitle, uploader string) domain.NormalizedTitle {
	raw := strings.TrimSpace(rawTitle)
	uploader = strings.TrimSpace(uploader)

	title := bracketNoise.ReplaceAllString(raw, " ")
	for _, pat := range junkTitlePatterns {
		title = pat.ReplaceAllString(title, " ")
	}
	title = cleanSpaces(title)
	title = cleanSpaces(emptyParens.ReplaceAllString(title, " "))

	artistGuess, titleGuess := splitArtistTitle(title)
	if artistGuess == "" {
		artistGuess = uploader
		if artistGuess == "" {
			artistGuess = "Unknown Artist"
		}
	}
	if titleGuess == "" {
		titleGuess = title
	}

	titleGuess, version := extractVersion(titleGuess)

	// Carry the version in the title for Rekordbox predictability
	finalTitle := titleGuess
	if version != "" {
		finalTitle = titleGuess + " (" + version + ")"
	}

	return domain.NormalizedTitle{
		Artist:  titleCaseArtist(cleanSpaces(artistGuess)),
		Title:   cleanSpaces(finalTitle),
		Version: version,
	}
}

func splitArtistTitle(value string) (string, string) {
	for _, sep := range titleSeparators {
		idx := strings.Index(value, sep)
		if idx > 0 {
			left := strings.TrimSpace(value[:idx])
			right := strings.TrimSpace(value[idx+len(sep):])
			if left != "" && right != "" {
				return left, right
			}
		}
	}
	return "", ""
}

func extractVersion(title string) (string, string) {
	match := trailingParen.FindStringSubmatchIndex(title)
	if match == nil {
		return cleanSpaces(title), ""
	}

	inside := cleanSpaces(title[match[2]:match[3]])
	normalized := strings.ToLower(inside)
	versiony := false
	for _, hint := range versionHints {
		if strings.Contains(normalized, hint) {
			versiony = true
			break
		}
	}
	if !versiony {
		return cleanSpaces(title), ""
	}

	return cleanSpaces(strings.TrimSpace(title[:match[0]])), inside
}

func titleCaseArtist(artist string) string {
	if fixed, ok := corrections[strings.ToLower(artist)]; ok {
		return fixed
	}

	words := strings.Fields(artist)
	for i, w := range words {
		lw := strings.ToLower(w)
		if fixed, ok := corrections[lw]; ok {
			words[i] = fixed
			continue
		}
		switch {
		case upperWords[lw]:
			words[i] = strings.ToUpper(w)
		case lowerWords[lw] && i > 0:
			words[i] = lw
		case w == strings.ToLower(w) || w == strings.ToUpper(w):
			// All-lower or all-upper words get plain title casing;
			// mixed case is someone's deliberate stylization, keep it.
			r, size := utf8.DecodeRuneInString(lw)
			words[i] = string(unicode.ToUpper(r)) + lw[size:]
		}
	}
	return strings.Join(words, " ")
}

func cleanSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
