package stages

import "testing"

func TestHasSeparator(t *testing.T) {
	p := NewTitleParser()
	cases := []struct {
		title string
		want  bool
	}{
		{"Adam Port - Move On", true},
		{"Adam Port – Move On", true},
		{"Adam Port | Move On", true},
		{"Move On (Original Mix)", false},
		{"self-titled track", false},
	}
	for _, tc := range cases {
		if got := p.HasSeparator(tc.title); got != tc.want {
			t.Errorf("HasSeparator(%q) = %v, want %v", tc.title, got, tc.want)
		}
	}
}

func TestNormalizeSplitsArtistAndTitle(t *testing.T) {
	p := NewTitleParser()

	got := p.Normalize("Keinemusik - Muyè (Official Video)", "SomeChannel")
	if got.Artist != "Keinemusik" {
		t.Fatalf("artist = %q", got.Artist)
	}
	if got.Title != "Muyè" {
		t.Fatalf("title = %q", got.Title)
	}
}

func TestNormalizeExtractsVersion(t *testing.T) {
	p := NewTitleParser()

	got := p.Normalize("&ME - The Rapture (Extended Mix)", "")
	if got.Version != "Extended Mix" {
		t.Fatalf("version = %q", got.Version)
	}
	// The version stays in the display title for predictable filenames.
	if got.Title != "The Rapture (Extended Mix)" {
		t.Fatalf("title = %q", got.Title)
	}
}

func TestNormalizeKeepsDescriptiveParens(t *testing.T) {
	p := NewTitleParser()

	got := p.Normalize("Artist - Track (From The Motion Picture)", "")
	if got.Version != "" {
		t.Fatalf("version = %q, want none for non-version parens", got.Version)
	}
}

func TestNormalizeFallsBackToUploader(t *testing.T) {
	p := NewTitleParser()

	got := p.Normalize("Muyè [HD]", "keinemusik")
	if got.Artist != "Keinemusik" {
		t.Fatalf("artist = %q, want uploader fallback", got.Artist)
	}
	if got.Title != "Muyè" {
		t.Fatalf("title = %q, want bracket noise stripped", got.Title)
	}
}

func TestNormalizeNoMetadataAtAll(t *testing.T) {
	p := NewTitleParser()

	got := p.Normalize("Move On", "")
	if got.Artist != "Unknown Artist" {
		t.Fatalf("artist = %q", got.Artist)
	}
}

func TestTitleCaseArtistCorrections(t *testing.T) {
	cases := []struct{ in, want string }{
		{"jay-z", "JAY-Z"},
		{"the weeknd", "The Weeknd"},
		{"dj koze", "DJ Koze"},
		{"black coffee", "Black Coffee"},
		{"RÜFÜS DU SOL", "Rüfüs Du Sol"},
		{"deadmau5", "Deadmau5"},
		{"édith piaf", "Édith Piaf"},
		{"ólafur arnalds", "Ólafur Arnalds"},
	}
	for _, tc := range cases {
		if got := titleCaseArtist(tc.in); got != tc.want {
			t.Errorf("titleCaseArtist(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
