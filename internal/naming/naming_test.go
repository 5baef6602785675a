package naming

import "testing"

func TestSanitizeFileComponent(t *testing.T) {
	cases := []struct{ in, want string }{
		{`AC/DC: Back?`, "AC DC Back"},
		{"  spaced   out  ", "spaced out"},
		{"trailing dots...", "trailing dots"},
		{`<>:"|?*`, "Untitled"},
		{"", "Untitled"},
		{"Muyè", "Muyè"},
	}
	for _, tc := range cases {
		if got := SanitizeFileComponent(tc.in); got != tc.want {
			t.Errorf("SanitizeFileComponent(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRekordboxFilename(t *testing.T) {
	got := RekordboxFilename("Keinemusik", "Muyè", ".aiff", 122, "8A")
	if got != "Keinemusik - Muyè [122 8A].aiff" {
		t.Fatalf("got %q", got)
	}
}

func TestRekordboxFilenameOmitsUnknown(t *testing.T) {
	if got := RekordboxFilename("Artist", "Track", ".mp3", 0, ""); got != "Artist - Track.mp3" {
		t.Fatalf("got %q", got)
	}
	if got := RekordboxFilename("Artist", "Track", ".wav", 128, ""); got != "Artist - Track [128].wav" {
		t.Fatalf("got %q", got)
	}
	if got := RekordboxFilename("Artist", "Track", ".wav", 0, "5B"); got != "Artist - Track [5B].wav" {
		t.Fatalf("got %q", got)
	}
}
