// Package export generates rekordbox-importable DJ_PLAYLISTS XML from the
// library, including auto-playlists grouped by genre, energy and time slot.
package export

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
)

// kindByFormat maps audio_format values to the Kind string rekordbox expects.
var kindByFormat = map[string]string{
	"aiff": "AIFF Audio File",
	"wav":  "WAV Audio File",
	"flac": "FLAC Audio File",
	"mp3":  "MP3 Audio File",
}

// energyLabel maps energy fractions to playlist names.
var energyLabel = map[string]string{
	"1/5": "Low",
	"2/5": "Medium-Low",
	"3/5": "Medium",
	"4/5": "High",
	"5/5": "Very High",
}

// energyRating maps energy fractions to the 0-255 rekordbox Rating scale.
var energyRating = map[string]string{
	"1/5": "51",
	"2/5": "102",
	"3/5": "153",
	"4/5": "204",
	"5/5": "255",
}

type djPlaylists struct {
	XMLName    xml.Name   `xml:"DJ_PLAYLISTS"`
	Version    string     `xml:"Version,attr"`
	Product    product    `xml:"PRODUCT"`
	Collection collection `xml:"COLLECTION"`
	Playlists  playlists  `xml:"PLAYLISTS"`
}

type product struct {
	Name    string `xml:"Name,attr"`
	Version string `xml:"Version,attr"`
	Company string `xml:"Company,attr"`
}

type collection struct {
	Entries int         `xml:"Entries,attr"`
	Tracks  []trackNode `xml:"TRACK"`
}

type trackNode struct {
	TrackID    string         `xml:"TrackID,attr"`
	Name       string         `xml:"Name,attr"`
	Artist     string         `xml:"Artist,attr"`
	Album      string         `xml:"Album,attr,omitempty"`
	Genre      string         `xml:"Genre,attr"`
	Kind       string         `xml:"Kind,attr"`
	Location   string         `xml:"Location,attr"`
	TotalTime  string         `xml:"TotalTime,attr,omitempty"`
	AverageBpm string         `xml:"AverageBpm,attr,omitempty"`
	Tonality   string         `xml:"Tonality,attr,omitempty"`
	Rating     string         `xml:"Rating,attr,omitempty"`
	Grouping   string         `xml:"Grouping,attr,omitempty"`
	Comments   string         `xml:"Comments,attr,omitempty"`
	Year       string         `xml:"Year,attr,omitempty"`
	Label      string         `xml:"Label,attr,omitempty"`
	Marks      []positionMark `xml:"POSITION_MARK"`
}

type positionMark struct {
	Name  string `xml:"Name,attr"`
	Type  string `xml:"Type,attr"`
	Start string `xml:"Start,attr"`
	Num   string `xml:"Num,attr"`
}

type playlists struct {
	Root folderNode `xml:"NODE"`
}

type folderNode struct {
	Type     string `xml:"Type,attr"`
	Name     string `xml:"Name,attr"`
	Count    int    `xml:"Count,attr"`
	Children []any  `xml:"NODE"`
}

type playlistNode struct {
	Type    string     `xml:"Type,attr"`
	Name    string     `xml:"Name,attr"`
	KeyType string     `xml:"KeyType,attr"`
	Entries int        `xml:"Entries,attr"`
	Tracks  []trackRef `xml:"TRACK"`
}

type trackRef struct {
	Key string `xml:"Key,attr"`
}

// Generator writes the export under a timestamped folder in the output dir.
type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

// Generate writes `Crate YYYY-MM-DD/crate_import.xml` into outDir and
// returns the XML path.
func (g *Generator) Generate(tracks []*domain.TrackRecord, outDir string) (string, error) {
	if len(tracks) == 0 {
		return "", fmt.Errorf("no tracks to export")
	}

	folder := filepath.Join(outDir, "Crate "+time.Now().UTC().Format("2006-01-02"))
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create export folder: %w", err)
	}
	xmlPath := filepath.Join(folder, "crate_import.xml")

	doc := buildDocument(tracks)

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal playlist XML: %w", err)
	}

	out := append([]byte(xml.Header), data...)
	if err := os.WriteFile(xmlPath, out, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", xmlPath, err)
	}

	return xmlPath, nil
}

func buildDocument(tracks []*domain.TrackRecord) *djPlaylists {
	nodes := make([]trackNode, 0, len(tracks))
	byGenre := make(map[string][]string)
	byEnergy := make(map[string][]string)
	byTime := make(map[string][]string)

	for i, t := range tracks {
		trackID := fmt.Sprintf("%d", i+1)

		node := trackNode{
			TrackID:  trackID,
			Name:     t.Title,
			Artist:   t.Artist,
			Album:    t.Album,
			Genre:    t.Genre,
			Kind:     kindByFormat[t.AudioFormat],
			Location: fileURI(t.FilePath),
			Tonality: t.Key,
			Grouping: t.TimeSlot,
			Year:     t.Year,
			Label:    t.Label,
			Rating:   energyRating[t.Energy],
		}
		if t.BPM > 0 {
			node.AverageBpm = fmt.Sprintf("%d.00", t.BPM)
		}
		if t.DurationSeconds > 0 {
			node.TotalTime = fmt.Sprintf("%d", int(t.DurationSeconds))
		}
		if t.Vibe != "" {
			node.Comments = t.Vibe
		}
		for n, cue := range t.HotCues {
			node.Marks = append(node.Marks, positionMark{
				Name:  cue.Name,
				Type:  "0",
				Start: fmt.Sprintf("%.3f", cue.Time),
				Num:   fmt.Sprintf("%d", n),
			})
		}
		nodes = append(nodes, node)

		if t.Genre != "" {
			byGenre[t.Genre] = append(byGenre[t.Genre], trackID)
		}
		if label, ok := energyLabel[t.Energy]; ok {
			byEnergy["Energy: "+label] = append(byEnergy["Energy: "+label], trackID)
		}
		if t.TimeSlot != "" {
			byTime[t.TimeSlot] = append(byTime[t.TimeSlot], trackID)
		}
	}

	folders := []any{
		buildFolder("Crate - Genres", byGenre),
		buildFolder("Crate - Energy", byEnergy),
		buildFolder("Crate - Time", byTime),
	}

	return &djPlaylists{
		Version: "1.0.0",
		Product: product{Name: "rekordbox", Version: "6.0.0", Company: "AlphaTheta"},
		Collection: collection{
			Entries: len(nodes),
			Tracks:  nodes,
		},
		Playlists: playlists{
			Root: folderNode{
				Type:     "0",
				Name:     "ROOT",
				Count:    len(folders),
				Children: folders,
			},
		},
	}
}

func buildFolder(name string, groups map[string][]string) folderNode {
	names := make([]string, 0, len(groups))
	for n := range groups {
		names = append(names, n)
	}
	sort.Strings(names)

	children := make([]any, 0, len(names))
	for _, n := range names {
		ids := groups[n]
		refs := make([]trackRef, 0, len(ids))
		for _, id := range ids {
			refs = append(refs, trackRef{Key: id})
		}
		children = append(children, playlistNode{
			Type:    "1",
			Name:    n,
			KeyType: "0",
			Entries: len(refs),
			Tracks:  refs,
		})
	}

	return folderNode{Type: "0", Name: name, Count: len(children), Children: children}
}

// fileURI converts an absolute path to the file://localhost/ form rekordbox
// requires. Forward slashes are not encoded; spaces become %20.
func fileURI(absolute string) string {
	posix := strings.ReplaceAll(absolute, "\\", "/")
	posix = strings.TrimPrefix(posix, "/")

	var b strings.Builder
	for _, r := range posix {
		switch {
		case r == '/' || r == '-' || r == '_' || r == '.' || r == '~':
			b.WriteRune(r)
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			for _, by := range []byte(string(r)) {
				fmt.Fprintf(&b, "%%%02X", by)
			}
		}
	}

	return "file://localhost/" + b.String()
}
