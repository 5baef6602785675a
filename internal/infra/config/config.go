package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Library     LibraryConfig     `mapstructure:"library" yaml:"library"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline" yaml:"pipeline"`
	Events      EventsConfig      `mapstructure:"events" yaml:"events"`
	Fingerprint FingerprintConfig `mapstructure:"fingerprint" yaml:"fingerprint"`
	Download    DownloadConfig    `mapstructure:"download" yaml:"download"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`

	Port string `mapstructure:"port" yaml:"port"`
}

type LibraryConfig struct {
	InboxDir   string `mapstructure:"inbox_dir" yaml:"inbox_dir"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

type PipelineConfig struct {
	MaxConcurrent      int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	MetadataTimeoutSec int `mapstructure:"metadata_timeout_seconds" yaml:"metadata_timeout_seconds"`
	DownloadTimeoutSec int `mapstructure:"download_timeout_seconds" yaml:"download_timeout_seconds"`
	FFmpegTimeoutSec   int `mapstructure:"ffmpeg_timeout_seconds" yaml:"ffmpeg_timeout_seconds"`
	AnalysisTimeoutSec int `mapstructure:"analysis_timeout_seconds" yaml:"analysis_timeout_seconds"`
}

type EventsConfig struct {
	HistoryLimit     int `mapstructure:"history_limit" yaml:"history_limit"`
	SubscriberBuffer int `mapstructure:"subscriber_buffer" yaml:"subscriber_buffer"`
}

type FingerprintConfig struct {
	AcoustIDKey      string  `mapstructure:"acoustid_key" yaml:"acoustid_key"`
	FpcalcPath       string  `mapstructure:"fpcalc_path" yaml:"fpcalc_path"`
	MinConfidence    float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	StrictConfidence float64 `mapstructure:"strict_confidence" yaml:"strict_confidence"`
	HTTPTimeoutSec   int     `mapstructure:"http_timeout_seconds" yaml:"http_timeout_seconds"`
	CacheDir         string  `mapstructure:"cache_dir" yaml:"cache_dir"`
}

type DownloadConfig struct {
	CookiesFile      string   `mapstructure:"cookies_file" yaml:"cookies_file"`
	UploadExtensions []string `mapstructure:"upload_extensions" yaml:"upload_extensions"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

func Load(path string) (*Config, error) {

	if path == "" {
		path = "config.yaml"
	}

	v := viper.New()

	// Set Defaults
	v.SetDefault("port", "8080")
	v.SetDefault("library.inbox_dir", "./data/inbox")
	v.SetDefault("library.sqlite_path", "./data/crate.db")
	v.SetDefault("pipeline.max_concurrent", 3)
	v.SetDefault("pipeline.metadata_timeout_seconds", 60)
	v.SetDefault("pipeline.download_timeout_seconds", 600)
	v.SetDefault("pipeline.ffmpeg_timeout_seconds", 300)
	v.SetDefault("pipeline.analysis_timeout_seconds", 120)
	v.SetDefault("events.history_limit", 500)
	v.SetDefault("events.subscriber_buffer", 200)
	v.SetDefault("fingerprint.fpcalc_path", "fpcalc")
	v.SetDefault("fingerprint.min_confidence", 0.85)
	v.SetDefault("fingerprint.strict_confidence", 0.95)
	v.SetDefault("fingerprint.http_timeout_seconds", 30)
	v.SetDefault("fingerprint.cache_dir", "./data/fpcache")
	v.SetDefault("download.upload_extensions", []string{
		".mp3", ".m4a", ".wav", ".aiff", ".flac", ".ogg", ".opus", ".wma", ".webm",
	})
	v.SetDefault("log.path", "crated.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)

	// The config file is optional; every key has a default and can come
	// from the environment instead.
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("CRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Library.InboxDir == "" {
		c.Library.InboxDir = "./data/inbox"
	}
	if c.Library.SQLitePath == "" {
		c.Library.SQLitePath = "./data/crate.db"
	}

	if c.Pipeline.MaxConcurrent <= 0 {
		// Default to a sane value
		c.Pipeline.MaxConcurrent = 3
	}
	if c.Pipeline.MetadataTimeoutSec <= 0 {
		c.Pipeline.MetadataTimeoutSec = 60
	}
	if c.Pipeline.DownloadTimeoutSec <= 0 {
		c.Pipeline.DownloadTimeoutSec = 600
	}
	if c.Pipeline.FFmpegTimeoutSec <= 0 {
		c.Pipeline.FFmpegTimeoutSec = 300
	}
	if c.Pipeline.AnalysisTimeoutSec <= 0 {
		c.Pipeline.AnalysisTimeoutSec = 120
	}

	if c.Events.HistoryLimit <= 0 {
		c.Events.HistoryLimit = 500
	}
	if c.Events.SubscriberBuffer <= 0 {
		c.Events.SubscriberBuffer = 200
	}

	if c.Fingerprint.MinConfidence <= 0 || c.Fingerprint.MinConfidence > 1 {
		return fmt.Errorf("fingerprint.min_confidence must be in (0, 1], got %v", c.Fingerprint.MinConfidence)
	}
	if c.Fingerprint.StrictConfidence < c.Fingerprint.MinConfidence || c.Fingerprint.StrictConfidence > 1 {
		return fmt.Errorf("fingerprint.strict_confidence must be at least min_confidence and at most 1, got %v", c.Fingerprint.StrictConfidence)
	}

	if len(c.Download.UploadExtensions) == 0 {
		return fmt.Errorf("download.upload_extensions must not be empty")
	}
	for i, ext := range c.Download.UploadExtensions {
		if !strings.HasPrefix(ext, ".") {
			c.Download.UploadExtensions[i] = "." + ext
		}
	}

	return nil
}
