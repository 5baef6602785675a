package stages

import (
	"regexp"
	"strings"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
)

// Classifier derives DJ tags (kind, genre, energy, time slot, vibe) from
// fetched metadata using keyword heuristics. It never fails; unknown
// content yields an empty classification with low confidence.
type Classifier struct{}

func NewClassifier() *Classifier { return &Classifier{} }

var (
	musicTagPat    = regexp.MustCompile(`(?i)\b(music|audio|song|track|remix|mix|dj|house|techno|afro|amapiano)\b`)
	tutorialPat    = regexp.MustCompile(`(?i)\b(how to dj|dj tutorial|tutorial|lesson|masterclass|learn to dj|dj tips|rekordbox|serato|traktor|cdj|controller|beatmatch|beat matching|hot cue|hotcue|quantize|phrasing)\b`)
	mixKeywordPat  = regexp.MustCompile(`(?i)\b(live set|dj set|dj live|live dj|live mix|dj mix|mix|set at|session|livestream|live stream|boiler room|resident advisor|ra live|essential mix)\b`)
	setTagPat      = regexp.MustCompile(`(?i)(livedjset|djset|djliveset|liveset|livemix|djmix|radioshow)|\b(dj|mix|set|boilerroom|boiler room|essentialmix|essential mix|radio show|podcast)\b`)
	fullSetPat     = regexp.MustCompile(`(?i)\b(full set)\b`)
	sessionPat     = regexp.MustCompile(`(?i)\b(session)\b`)
	podcastPat     = regexp.MustCompile(`(?i)\b(podcast|radio show|episode)\b`)
	liveSetOnlyPat = regexp.MustCompile(`(?i)\b(live set|dj set|dj live|live dj|live mix|dj mix|session|livestream|live stream|boiler room|resident advisor|ra live|essential mix)\b`)

	melodicPat = regexp.MustCompile(`(?i)\bmelodic\b`)

	warmupPat  = regexp.MustCompile(`\b(warmup|warm up|opening)\b`)
	closingPat = regexp.MustCompile(`\b(closing|afterhours|after hours)\b`)
	peakPat    = regexp.MustCompile(`\b(peak|banger|festival|main stage)\b`)
)

// genrePatterns maps detection regexes to canonical genre names. Ordered:
// more specific genres first so "melodic techno" does not land on "Techno".
var genrePatterns = []struct {
	pat   *regexp.Regexp
	genre string
}{
	{regexp.MustCompile(`(?i)\b(afro house|afrohouse|afro tech)\b`), "Afro House"},
	{regexp.MustCompile(`(?i)\b(amapiano)\b`), "Amapiano"},
	{regexp.MustCompile(`(?i)\b(melodic techno|melodic house)\b`), "Melodic Techno"},
	{regexp.MustCompile(`(?i)\b(deep house)\b`), "Deep House"},
	{regexp.MustCompile(`(?i)\b(tech house)\b`), "Tech House"},
	{regexp.MustCompile(`(?i)\b(progressive house)\b`), "Progressive House"},
	{regexp.MustCompile(`(?i)\b(organic house)\b`), "Organic House"},
	{regexp.MustCompile(`(?i)\b(minimal)\b`), "Minimal"},
	{regexp.MustCompile(`(?i)\b(techno)\b`), "Techno"},
	{regexp.MustCompile(`(?i)\b(house)\b`), "House"},
	{regexp.MustCompile(`(?i)\b(trance)\b`), "Trance"},
	{regexp.MustCompile(`(?i)\b(drum\s*(&|and|n)\s*bass|dnb|d&b)\b`), "Drum & Bass"},
	{regexp.MustCompile(`(?i)\b(dubstep)\b`), "Dubstep"},
	{regexp.MustCompile(`(?i)\b(disco|nu-disco)\b`), "Disco"},
}

var vibePatterns = []struct {
	pat  *regexp.Regexp
	vibe string
}{
	{regexp.MustCompile(`(?i)\btribal\b`), "Tribal"},
	{regexp.MustCompile(`(?i)\borganic\b`), "Organic"},
	{regexp.MustCompile(`(?i)\bvocal\b`), "Vocal"},
	{regexp.MustCompile(`(?i)\binstrumental\b`), "Instrumental"},
	{regexp.MustCompile(`(?i)\bdark\b`), "Dark"},
	{regexp.MustCompile(`(?i)\bminimal\b`), "Minimal"},
	{regexp.MustCompile(`(?i)\blatin\b`), "Latin"},
	{regexp.MustCompile(`(?i)\b(groovy|funky)\b`), "Groovy"},
	{regexp.MustCompile(`(?i)\bhypnotic\b`), "Hypnotic"},
	{regexp.MustCompile(`(?i)\bdriving\b`), "Driving"},
	{regexp.MustCompile(`(?i)\benergetic\b|high[\s-]?energy`), "Energetic"},
	{regexp.MustCompile(`(?i)\b(chill|relaxed)\b`), "Chill"},
}

// Classify inspects title, uploader, description, categories and tags.
func (c *Classifier) Classify(itemID string, info *domain.VideoInfo) domain.Classification {
	title := strings.ToLower(info.Title)
	uploader := strings.ToLower(info.Uploader)
	if uploader == "" {
		uploader = strings.ToLower(info.Channel)
	}
	desc := strings.ToLower(info.Description)
	text := title + "\n" + uploader + "\n" + desc
	duration := info.Duration

	hasMusicCategory := false
	for _, cat := range info.Categories {
		if strings.Contains(strings.ToLower(cat), "music") {
			hasMusicCategory = true
			break
		}
	}
	hasMusicTags := false
	hasSetTags := false
	for _, t := range info.Tags {
		lt := strings.ToLower(t)
		if musicTagPat.MatchString(lt) {
			hasMusicTags = true
		}
		if setTagPat.MatchString(lt) {
			hasSetTags = true
		}
	}
	hasMusicSignals := hasMusicCategory || hasMusicTags
	hasSetSignals := mixKeywordPat.MatchString(text) || hasSetTags

	longEnough := func(min float64) bool { return duration == 0 || duration >= min }

	looksLikeTutorial := tutorialPat.MatchString(text)
	looksLikeSet := fullSetPat.MatchString(text) ||
		(hasSetSignals && longEnough(20*60)) ||
		(sessionPat.MatchString(text) && longEnough(20*60))
	looksLikePodcast := podcastPat.MatchString(text) &&
		!liveSetOnlyPat.MatchString(text) &&
		longEnough(15*60) &&
		(hasSetSignals || hasMusicSignals)

	var kind domain.ContentKind
	var confidence float64
	var notes []string
	switch {
	case looksLikeTutorial:
		kind, confidence = domain.KindVideo, 0.7
		notes = append(notes, "tutorial keywords")
	case looksLikePodcast:
		kind, confidence = domain.KindPodcast, 0.6
		notes = append(notes, "podcast keywords")
	case looksLikeSet:
		kind, confidence = domain.KindSet, 0.6
		notes = append(notes, "set/mix keywords")
	case hasMusicSignals:
		kind, confidence = domain.KindTrack, 0.5
		notes = append(notes, "music category/tags")
	case title != "":
		kind, confidence = domain.KindVideo, 0.3
	default:
		kind, confidence = domain.KindUnknown, 0.0
	}

	genre := ""
	for _, gp := range genrePatterns {
		if gp.pat.MatchString(text) {
			genre = gp.genre
			notes = append(notes, "genre keyword: "+gp.genre)
			break
		}
	}

	energy, timeSlot := "", ""
	switch {
	case warmupPat.MatchString(text):
		energy, timeSlot = "2/5", "Warmup"
	case closingPat.MatchString(text):
		energy, timeSlot = "3/5", "Closing"
	case peakPat.MatchString(text):
		energy, timeSlot = "4/5", "Peak"
	}

	var vibes []string
	for _, vp := range vibePatterns {
		if vp.pat.MatchString(text) {
			vibes = append(vibes, vp.vibe)
		}
	}
	// Melodic/uplifting count as vibes only when not already the genre
	if melodicPat.MatchString(text) && genre != "Melodic Techno" {
		vibes = append(vibes, "Melodic")
	}

	return domain.Classification{
		Kind:       kind,
		Genre:      genre,
		Energy:     energy,
		Time:       timeSlot,
		Vibe:       strings.Join(vibes, ", "),
		Confidence: confidence,
		Notes:      strings.Join(notes, "; "),
	}
}
