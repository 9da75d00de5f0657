// Package config holds configuration for the collector and archiver.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/aluiziolira/go-collect-feeds/models"
	"gopkg.in/yaml.v3"
)

// Config holds collector configuration.
type Config struct {
	OutputRoot    string
	Timeout       time.Duration
	MaxAttempts   int
	RetryDelay    time.Duration
	RetryDelayMax time.Duration
	DashboardURL  string
	MinFeeds      int
	SourcesFile   string
	UserAgent     string
	MetricsAddr   string
	Verbose       bool
}

// DefaultConfig returns conservative defaults for the AWS status dashboards.
func DefaultConfig() *Config {
	return &Config{
		OutputRoot:    "saved",
		Timeout:       10 * time.Second,
		MaxAttempts:   3,
		RetryDelay:    2 * time.Second,
		RetryDelayMax: 2 * time.Second,
		MinFeeds:      100,
		UserAgent:     "go-collect-feeds/1.0",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.OutputRoot == "" {
		return fmt.Errorf("output root cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.RetryDelayMax < 0 {
		return fmt.Errorf("retry delay max cannot be negative")
	}
	if c.DashboardURL != "" {
		parsedURL, err := url.Parse(c.DashboardURL)
		if err != nil {
			return fmt.Errorf("invalid dashboard URL: %w", err)
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("dashboard URL must include a host")
		}
	}
	if c.MinFeeds < 0 {
		return fmt.Errorf("min feeds cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}

// ArchiverConfig holds archiver configuration. The archiver is configured
// environment-first; see cmd/archiver.
type ArchiverConfig struct {
	Root        string
	MaxAgeDays  int
	AgeFilter   bool
	BucketURI   string
	DryRun      bool
	SyncCommand string
}

// DefaultArchiverConfig returns the archiver defaults.
func DefaultArchiverConfig() *ArchiverConfig {
	return &ArchiverConfig{
		Root:        "saved",
		MaxAgeDays:  30,
		AgeFilter:   true,
		SyncCommand: "aws",
	}
}

// Validate ensures archiver configuration values are coherent.
func (c *ArchiverConfig) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root directory cannot be empty")
	}
	if c.AgeFilter && c.MaxAgeDays < 0 {
		return fmt.Errorf("max age days cannot be negative")
	}
	if c.BucketURI == "" {
		return fmt.Errorf("bucket URI cannot be empty")
	}
	if c.SyncCommand == "" {
		return fmt.Errorf("sync command cannot be empty")
	}
	return nil
}

// LoadSources reads an ordered list of feed sources from a YAML file.
func LoadSources(path string) ([]models.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var sources []models.Source
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	seen := make(map[string]struct{}, len(sources))
	for i, src := range sources {
		if src.Name == "" {
			return nil, fmt.Errorf("source %d: name cannot be empty", i)
		}
		if src.URL == "" {
			return nil, fmt.Errorf("source %q: url cannot be empty", src.Name)
		}
		if _, ok := seen[src.Name]; ok {
			return nil, fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = struct{}{}
	}
	return sources, nil
}

// DefaultSources returns the built-in feed list used when neither a sources
// file nor a dashboard URL is configured.
func DefaultSources() []models.Source {
	return []models.Source{
		{Name: "ec2-us-east-1", URL: "https://status.aws.amazon.com/rss/ec2-us-east-1.rss"},
		{Name: "ec2-us-west-2", URL: "https://status.aws.amazon.com/rss/ec2-us-west-2.rss"},
		{Name: "ec2-eu-west-1", URL: "https://status.aws.amazon.com/rss/ec2-eu-west-1.rss"},
		{Name: "s3-us-standard", URL: "https://status.aws.amazon.com/rss/s3-us-standard.rss"},
		{Name: "rds-us-east-1", URL: "https://status.aws.amazon.com/rss/rds-us-east-1.rss"},
	}
}
