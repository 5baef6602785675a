package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.Pipeline.MaxConcurrent != 3 {
		t.Fatalf("max_concurrent = %d", cfg.Pipeline.MaxConcurrent)
	}
	if cfg.Events.HistoryLimit != 500 || cfg.Events.SubscriberBuffer != 200 {
		t.Fatalf("event limits = %d/%d", cfg.Events.HistoryLimit, cfg.Events.SubscriberBuffer)
	}
	if cfg.Fingerprint.MinConfidence != 0.85 || cfg.Fingerprint.StrictConfidence != 0.95 {
		t.Fatalf("confidence = %v/%v", cfg.Fingerprint.MinConfidence, cfg.Fingerprint.StrictConfidence)
	}
	if len(cfg.Download.UploadExtensions) == 0 {
		t.Fatal("upload extension allow-list empty")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("port: \"9090\"\npipeline:\n  max_concurrent: 5\nlibrary:\n  inbox_dir: /music/inbox\n")
	if err := os.WriteFile(path, yaml, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.Pipeline.MaxConcurrent != 5 {
		t.Fatalf("max_concurrent = %d", cfg.Pipeline.MaxConcurrent)
	}
	if cfg.Library.InboxDir != "/music/inbox" {
		t.Fatalf("inbox_dir = %q", cfg.Library.InboxDir)
	}
	// Untouched keys keep their defaults.
	if cfg.Pipeline.DownloadTimeoutSec != 600 {
		t.Fatalf("download timeout = %d", cfg.Pipeline.DownloadTimeoutSec)
	}
}

func TestValidateNormalizesZeroValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("pipeline:\n  max_concurrent: -1\nevents:\n  history_limit: 0\n")
	if err := os.WriteFile(path, yaml, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.MaxConcurrent != 3 {
		t.Fatalf("max_concurrent = %d, want normalized default", cfg.Pipeline.MaxConcurrent)
	}
	if cfg.Events.HistoryLimit != 500 {
		t.Fatalf("history_limit = %d, want normalized default", cfg.Events.HistoryLimit)
	}
}

func TestValidateRejectsBadConfidence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("fingerprint:\n  min_confidence: 1.5\n")
	if err := os.WriteFile(path, yaml, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for confidence > 1")
	}
}

func TestValidateRejectsStrictBelowMin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("fingerprint:\n  min_confidence: 0.9\n  strict_confidence: 0.5\n")
	if err := os.WriteFile(path, yaml, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for strict < min")
	}
}
