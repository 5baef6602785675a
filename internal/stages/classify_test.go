package stages

import (
	"testing"

	"github.com/KareemAyyad/rekordbox-dj/internal/domain"
)

func TestClassifyTrack(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("i1", &domain.VideoInfo{
		Title:      "Keinemusik - Muyè",
		Duration:   312,
		Categories: []string{"Music"},
	})

	if cls.Kind != domain.KindTrack {
		t.Fatalf("kind = %s, want track", cls.Kind)
	}
	if cls.Confidence <= 0 {
		t.Fatal("confidence not set")
	}
}

func TestClassifyLongSet(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("i1", &domain.VideoInfo{
		Title:    "Black Coffee Boiler Room London DJ Set",
		Duration: 3600,
	})

	if cls.Kind != domain.KindSet {
		t.Fatalf("kind = %s, want set", cls.Kind)
	}
}

func TestClassifyTutorialIsVideo(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("i1", &domain.VideoInfo{
		Title:    "How to DJ with Rekordbox - Full Tutorial",
		Duration: 900,
	})

	if cls.Kind != domain.KindVideo {
		t.Fatalf("kind = %s, want video", cls.Kind)
	}
}

func TestClassifyGenreOrdering(t *testing.T) {
	c := NewClassifier()

	// "melodic techno" must not land on the broader "Techno".
	cls := c.Classify("i1", &domain.VideoInfo{
		Title:      "Anyma - Explore Your Future (Melodic Techno)",
		Categories: []string{"Music"},
	})
	if cls.Genre != "Melodic Techno" {
		t.Fatalf("genre = %q, want Melodic Techno", cls.Genre)
	}

	cls = c.Classify("i2", &domain.VideoInfo{
		Title:      "Keinemusik - Muyè (Afro House)",
		Categories: []string{"Music"},
	})
	if cls.Genre != "Afro House" {
		t.Fatalf("genre = %q, want Afro House", cls.Genre)
	}
}

func TestClassifyEnergyAndTimeSlot(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("i1", &domain.VideoInfo{
		Title:      "Deep House warmup grooves",
		Categories: []string{"Music"},
	})
	if cls.Energy != "2/5" || cls.Time != "Warmup" {
		t.Fatalf("energy/time = %q/%q", cls.Energy, cls.Time)
	}

	cls = c.Classify("i2", &domain.VideoInfo{
		Title:      "Festival main stage banger",
		Categories: []string{"Music"},
	})
	if cls.Energy != "4/5" || cls.Time != "Peak" {
		t.Fatalf("energy/time = %q/%q", cls.Energy, cls.Time)
	}
}

func TestClassifyVibes(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("i1", &domain.VideoInfo{
		Title:      "Dark hypnotic techno",
		Categories: []string{"Music"},
	})
	if cls.Vibe != "Dark, Hypnotic" {
		t.Fatalf("vibe = %q", cls.Vibe)
	}
}

func TestClassifyUnknown(t *testing.T) {
	c := NewClassifier()

	cls := c.Classify("i1", &domain.VideoInfo{})
	if cls.Kind != domain.KindUnknown {
		t.Fatalf("kind = %s, want unknown", cls.Kind)
	}
	if cls.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", cls.Confidence)
	}
}
