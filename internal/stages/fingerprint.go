package stages

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/KareemAyyad/rekordbox-dj/internal/cache"
	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
	"github.com/KareemAyyad/rekordbox-dj/internal/infra/logger"
)

// FingerprintService matches downloaded audio against AcoustID and
// MusicBrainz. Every failure mode degrades to "no match"; the pipeline
// falls back to the title-derived guess and keeps going.
type FingerprintService struct {
	APIKey           string
	FpcalcPath       string
	MinConfidence    float64
	StrictConfidence float64
	Logger           *logger.Logger

	client *http.Client
	cache  *cache.FileCache
}

func NewFingerprintService(apiKey, fpcalcPath string, minConf, strictConf float64, httpTimeout time.Duration, cacheDir string, log *logger.Logger) *FingerprintService {
	return &FingerprintService{
		APIKey:           apiKey,
		FpcalcPath:       fpcalcPath,
		MinConfidence:    minConf,
		StrictConfidence: strictConf,
		Logger:           log,
		client:           &http.Client{Timeout: httpTimeout},
		cache:            &cache.FileCache{Dir: cacheDir},
	}
}

// Match fingerprints the file and looks it up. Returns nil when no
// confident match is available for any reason (no API key, fpcalc missing,
// network failure, low score).
func (s *FingerprintService) Match(ctx context.Context, audioPath string, fallback domain.NormalizedTitle, titleHadSeparator bool) *domain.MusicMatch {
	if s.APIKey == "" {
		return nil
	}

	duration, fingerprint, err := s.chromaprint(ctx, audioPath)
	if err != nil {
		s.Logger.Debug("fpcalc failed for %s: %v", audioPath, err)
		return nil
	}

	lookup, err := s.acoustidLookup(ctx, duration, fingerprint)
	if err != nil {
		s.Logger.Debug("AcoustID lookup failed: %v", err)
		return nil
	}

	best := pickBestResult(lookup)
	if best == nil {
		return nil
	}

	// A title that already carried an explicit "Artist - Title" separator
	// is trustworthy, so overriding it demands a stricter score.
	required := s.MinConfidence
	if titleHadSeparator {
		required = s.StrictConfidence
	}
	if best.Score < required {
		return nil
	}

	mb, err := s.musicbrainzRecording(ctx, best.RecordingID)
	if err != nil {
		s.Logger.Debug("MusicBrainz lookup failed for %s: %v", best.RecordingID, err)
		return nil
	}

	artist := joinArtistCredit(mb.ArtistCredit)
	title := strings.TrimSpace(mb.Title)
	if artist == "" || title == "" {
		return nil
	}

	album, year, label := pickBestRelease(mb.Releases)
	finalTitle, version := applyFallbackVersion(title, fallback.Version)

	return &domain.MusicMatch{
		Artist:        artist,
		Title:         finalTitle,
		Version:       version,
		Album:         album,
		Year:          year,
		Label:         label,
		Score:         best.Score,
		RecordingMBID: best.RecordingID,
	}
}

// --- chromaprint ---

type fpcalcOutput struct {
	Duration    float64 `json:"duration"`
	Fingerprint string  `json:"fingerprint"`
}

func (s *FingerprintService) chromaprint(ctx context.Context, path string) (int, string, error) {
	cmd := exec.CommandContext(ctx, s.FpcalcPath, "-json", path)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return 0, "", fmt.Errorf("fpcalc failed: %w", err)
	}

	var out fpcalcOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return 0, "", fmt.Errorf("failed to decode fpcalc output: %w", err)
	}
	if out.Fingerprint == "" {
		return 0, "", fmt.Errorf("fpcalc produced an empty fingerprint")
	}

	return int(out.Duration), out.Fingerprint, nil
}

// --- AcoustID ---

type acoustidResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Score      float64 `json:"score"`
		Recordings []struct {
			ID string `json:"id"`
		} `json:"recordings"`
	} `json:"results"`
}

type acoustidBest struct {
	Score       float64
	RecordingID string
}

func (s *FingerprintService) acoustidLookup(ctx context.Context, duration int, fingerprint string) (*acoustidResponse, error) {
	// Identical audio always produces the identical fingerprint, so the
	// response is cached on disk keyed by its hash.
	sum := sha1.Sum([]byte(fmt.Sprintf("%d:%s", duration, fingerprint)))
	cacheKey := hex.EncodeToString(sum[:])

	var body []byte
	if data, err := s.cache.Get(cacheKey); err == nil {
		body = data
	} else {
		form := url.Values{}
		form.Set("client", s.APIKey)
		form.Set("duration", fmt.Sprintf("%d", duration))
		form.Set("fingerprint", fingerprint)
		form.Set("meta", "recordingids")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			"https://api.acoustid.org/v2/lookup", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("acoustid returned status: %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		_ = s.cache.Put(cacheKey, body)
	}

	var parsed acoustidResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	if parsed.Status != "ok" {
		return nil, fmt.Errorf("acoustid status: %s", parsed.Status)
	}

	return &parsed, nil
}

func pickBestResult(resp *acoustidResponse) *acoustidBest {
	var best *acoustidBest
	for _, res := range resp.Results {
		if len(res.Recordings) == 0 {
			continue
		}
		if best == nil || res.Score > best.Score {
			best = &acoustidBest{Score: res.Score, RecordingID: res.Recordings[0].ID}
		}
	}
	return best
}

// --- MusicBrainz ---

type mbArtistCredit struct {
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
}

type mbLabelInfo struct {
	Label struct {
		Name string `json:"name"`
	} `json:"label"`
}

type mbRelease struct {
	Title     string        `json:"title"`
	Date      string        `json:"date"`
	Status    string        `json:"status"`
	LabelInfo []mbLabelInfo `json:"label-info"`
}

type mbRecording struct {
	Title        string           `json:"title"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
	Releases     []mbRelease      `json:"releases"`
}

func (s *FingerprintService) musicbrainzRecording(ctx context.Context, mbid string) (*mbRecording, error) {
	u := fmt.Sprintf("https://musicbrainz.org/ws/2/recording/%s?inc=artist-credits+releases+labels&fmt=json", mbid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	// MusicBrainz rejects anonymous clients
	req.Header.Set("User-Agent", "crated/1.0 (https://github.com/KareemAyyad/rekordbox-dj)")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("musicbrainz returned status: %d", resp.StatusCode)
	}

	var rec mbRecording
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func joinArtistCredit(credit []mbArtistCredit) string {
	var b strings.Builder
	for _, c := range credit {
		b.WriteString(c.Name)
		b.WriteString(c.JoinPhrase)
	}
	return strings.TrimSpace(b.String())
}

// pickBestRelease prefers official releases and the earliest date.
func pickBestRelease(releases []mbRelease) (album, year, label string) {
	var best *mbRelease
	for i := range releases {
		r := &releases[i]
		if best == nil {
			best = r
			continue
		}
		bestOfficial := best.Status == "Official"
		rOfficial := r.Status == "Official"
		switch {
		case rOfficial && !bestOfficial:
			best = r
		case rOfficial == bestOfficial && r.Date != "" && (best.Date == "" || r.Date < best.Date):
			best = r
		}
	}
	if best == nil {
		return "", "", ""
	}

	album = best.Title
	if len(best.Date) >= 4 {
		year = best.Date[:4]
	}
	if len(best.LabelInfo) > 0 {
		label = best.LabelInfo[0].Label.Name
	}
	return album, year, label
}

// applyFallbackVersion re-attaches the version parsed from the original
// title when the canonical MusicBrainz title does not carry one.
func applyFallbackVersion(title, fallbackVersion string) (string, string) {
	if fallbackVersion == "" {
		return title, ""
	}
	if strings.Contains(strings.ToLower(title), strings.ToLower(fallbackVersion)) {
		return title, fallbackVersion
	}
	return title + " (" + fallbackVersion + ")", fallbackVersion
}
