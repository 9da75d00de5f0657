// Package models defines data structures for the feed collector.
package models

import "time"

// FetchStatus is the terminal outcome of fetching one source within a run.
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchFailed  FetchStatus = "failed"
)

// Source is a named feed endpoint. The configured order of sources is
// stable and determines manifest entry order.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// FetchResult records the outcome of fetching one source.
// Bytes is the size of the compressed snapshot and is only set on success.
type FetchResult struct {
	Name           string      `yaml:"name"`
	URL            string      `yaml:"url"`
	Status         FetchStatus `yaml:"status"`
	Attempts       int         `yaml:"attempts"`
	Bytes          int64       `yaml:"bytes,omitempty"`
	ElapsedSeconds float64     `yaml:"elapsed_seconds"`
	LastError      string      `yaml:"error,omitempty"`
}

// Manifest is the per-run record written alongside the snapshots.
// Results are ordered exactly as the sources were configured.
type Manifest struct {
	Run          string        `yaml:"run"`
	Started      time.Time     `yaml:"started"`
	DashboardURL string        `yaml:"dashboard_url,omitempty"`
	Results      []FetchResult `yaml:"results"`
}

// Succeeded returns the names of all successful results, in manifest order.
func (m *Manifest) Succeeded() []string {
	var names []string
	for _, r := range m.Results {
		if r.Status == FetchSuccess {
			names = append(names, r.Name)
		}
	}
	return names
}

// RunResult holds the overall outcome of one collector run.
type RunResult struct {
	Dir        string
	StartTime  time.Time
	EndTime    time.Time
	Results    []FetchResult
	Succeeded  int
	Failed     int
	RetryCount int
	BytesTotal int64
}
