package export

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
)

func sampleTracks() []*domain.TrackRecord {
	return []*domain.TrackRecord{
		{
			ID:          "t1",
			FilePath:    "/music/inbox/Keinemusik - Muyè [122 8A].aiff",
			Artist:      "Keinemusik",
			Title:       "Muyè",
			Genre:       "Afro House",
			BPM:         122,
			Key:         "8A",
			Energy:      "4/5",
			TimeSlot:    "Peak",
			AudioFormat: "aiff",
			HotCues:     []domain.CuePoint{{Name: "Intro", Time: 0.52}},
		},
		{
			ID:          "t2",
			FilePath:    "/music/inbox/Anyma - Explore Your Future.aiff",
			Artist:      "Anyma",
			Title:       "Explore Your Future",
			Genre:       "Melodic Techno",
			Energy:      "4/5",
			AudioFormat: "aiff",
		},
	}
}

func TestGenerateWritesDatedFolder(t *testing.T) {
	g := NewGenerator()
	dir := t.TempDir()

	path, err := g.Generate(sampleTracks(), dir)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	wantDir := filepath.Join(dir, "Crate "+time.Now().UTC().Format("2006-01-02"))
	if filepath.Dir(path) != wantDir {
		t.Fatalf("xml written to %s, want under %s", path, wantDir)
	}
	if filepath.Base(path) != "crate_import.xml" {
		t.Fatalf("xml name = %s", filepath.Base(path))
	}
}

func TestGenerateDocumentShape(t *testing.T) {
	g := NewGenerator()
	path, err := g.Generate(sampleTracks(), t.TempDir())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var doc struct {
		XMLName    xml.Name `xml:"DJ_PLAYLISTS"`
		Collection struct {
			Entries int `xml:"Entries,attr"`
			Tracks  []struct {
				TrackID  string `xml:"TrackID,attr"`
				Name     string `xml:"Name,attr"`
				Location string `xml:"Location,attr"`
				Rating   string `xml:"Rating,attr"`
				Marks    []struct {
					Name string `xml:"Name,attr"`
				} `xml:"POSITION_MARK"`
			} `xml:"TRACK"`
		} `xml:"COLLECTION"`
		Playlists struct {
			Root struct {
				Children []struct {
					Name     string `xml:"Name,attr"`
					Children []struct {
						Name    string `xml:"Name,attr"`
						Entries int    `xml:"Entries,attr"`
					} `xml:"NODE"`
				} `xml:"NODE"`
			} `xml:"NODE"`
		} `xml:"PLAYLISTS"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if doc.Collection.Entries != 2 || len(doc.Collection.Tracks) != 2 {
		t.Fatalf("collection entries = %d/%d, want 2", doc.Collection.Entries, len(doc.Collection.Tracks))
	}

	first := doc.Collection.Tracks[0]
	if !strings.HasPrefix(first.Location, "file://localhost/") {
		t.Fatalf("location = %q", first.Location)
	}
	if strings.Contains(first.Location, " ") {
		t.Fatalf("location not escaped: %q", first.Location)
	}
	if first.Rating != "204" {
		t.Fatalf("rating = %q, want 204 for 4/5 energy", first.Rating)
	}
	if len(first.Marks) != 1 || first.Marks[0].Name != "Intro" {
		t.Fatalf("hot cues lost: %+v", first.Marks)
	}

	if len(doc.Playlists.Root.Children) != 3 {
		t.Fatalf("playlist folders = %d, want genres/energy/time", len(doc.Playlists.Root.Children))
	}

	var genreFolder *struct {
		Name    string `xml:"Name,attr"`
		Entries int    `xml:"Entries,attr"`
	}
	for _, folder := range doc.Playlists.Root.Children {
		if folder.Name == "Crate - Genres" {
			for i := range folder.Children {
				if folder.Children[i].Name == "Afro House" {
					genreFolder = &folder.Children[i]
				}
			}
		}
	}
	if genreFolder == nil || genreFolder.Entries != 1 {
		t.Fatalf("Afro House playlist missing or wrong size: %+v", genreFolder)
	}
}

func TestGenerateEmptyLibraryFails(t *testing.T) {
	g := NewGenerator()
	if _, err := g.Generate(nil, t.TempDir()); err == nil {
		t.Fatal("expected error for empty library")
	}
}
