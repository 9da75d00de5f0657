// Package collector fetches a fixed list of feed sources sequentially,
// retrying transient failures, and persists each run as one timestamped
// directory of compressed snapshots plus a manifest.
package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-collect-feeds/clock"
	"github.com/aluiziolira/go-collect-feeds/config"
	"github.com/aluiziolira/go-collect-feeds/models"
	"github.com/aluiziolira/go-collect-feeds/storage"
)

// maxBodyBytes caps a single feed document. The AWS status feeds are a few
// kilobytes; anything near this limit is a misbehaving endpoint.
const maxBodyBytes = 16 << 20

// Collector runs the sequential fetch loop.
type Collector struct {
	cfg     *config.Config
	client  *http.Client
	codec   storage.Codec
	Metrics *Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a collector configured from cfg.
func New(cfg *config.Config) *Collector {
	return &Collector{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		codec:   storage.GzipCodec{},
		Metrics: NewMetrics(),
		now:     time.Now,
		sleep:   clock.Sleep,
	}
}

// Run fetches every source in order and writes one run directory under the
// output root. A per-source failure never aborts the run; only
// run-infrastructure failures (directory creation, manifest write) return an
// error.
func (c *Collector) Run(ctx context.Context, sources []models.Source) (*models.RunResult, error) {
	start := c.now()
	id := storage.NewRunID(start)

	dir, err := storage.CreateRunDir(c.cfg.OutputRoot, id, c.codec)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	slog.Info("run started",
		slog.String("run", id.String()),
		slog.String("dir", dir.Path()),
		slog.Int("sources", len(sources)),
	)

	result := &models.RunResult{
		Dir:       dir.Path(),
		StartTime: start,
	}

	for _, src := range sources {
		res, err := c.fetchSource(ctx, dir, src)
		if err != nil {
			// A filesystem or compression failure means the run's output
			// cannot be trusted; abort instead of recording it as a
			// source failure.
			return nil, fmt.Errorf("store snapshot for %s: %w", src.Name, err)
		}
		result.Results = append(result.Results, res)

		if res.Status == models.FetchSuccess {
			result.Succeeded++
			result.BytesTotal += res.Bytes
		} else {
			result.Failed++
		}
		if res.Attempts > 1 {
			result.RetryCount += res.Attempts - 1
		}
	}

	manifest := &models.Manifest{
		Run:          id.String(),
		Started:      id.Time(),
		DashboardURL: c.cfg.DashboardURL,
		Results:      result.Results,
	}
	if err := dir.WriteManifest(manifest); err != nil {
		return nil, fmt.Errorf("finish run: %w", err)
	}

	result.EndTime = c.now()
	slog.Info("run finished",
		slog.String("run", id.String()),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Int("retries", result.RetryCount),
	)
	return result, nil
}

// fetchSource drives one source's state machine to a terminal state,
// including all of its retries, before the caller moves on to the next.
func (c *Collector) fetchSource(ctx context.Context, dir *storage.RunDir, src models.Source) (models.FetchResult, error) {
	st := newSourceState(src, c.cfg.MaxAttempts)
	start := c.now()

	for st.begin() {
		body, err := c.fetchOnce(ctx, src.URL)
		if err == nil {
			size, werr := dir.WriteSnapshot(src.Name, body)
			if werr != nil {
				return models.FetchResult{}, werr
			}
			st.succeed(size)
			c.Metrics.AddBytes(size)
			break
		}

		c.Metrics.IncError(errorTypeLabel(err))
		st.fail(err)
		slog.Warn("fetch attempt failed",
			slog.String("source", src.Name),
			slog.Int("attempt", st.attempts),
			slog.Int("max_attempts", c.cfg.MaxAttempts),
			slog.Any("error", err),
		)

		if !st.willRetry() {
			break
		}
		c.Metrics.IncRetries()
		if err := c.sleep(ctx, c.retryDelay(st.attempts)); err != nil {
			st.abort(err)
			break
		}
	}

	elapsed := c.now().Sub(start).Seconds()
	res := st.result(elapsed)
	c.Metrics.IncFetch(string(res.Status))

	if res.Status == models.FetchFailed {
		slog.Error("source failed",
			slog.String("source", src.Name),
			slog.Int("attempts", res.Attempts),
			slog.String("last_error", res.LastError),
		)
	} else {
		slog.Debug("source fetched",
			slog.String("source", src.Name),
			slog.Int("attempts", res.Attempts),
			slog.Int64("bytes", res.Bytes),
		)
	}
	return res, nil
}

// fetchOnce issues a single GET. Any transport error or non-2xx status is
// returned classified; the caller decides whether to retry.
func (c *Collector) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	start := c.now()
	resp, err := c.client.Do(req)
	c.Metrics.ObserveDuration(c.now().Sub(start))
	if err != nil {
		return nil, classifyError(err, 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyError(nil, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyError(err, 0)
	}
	return body, nil
}

// retryDelay computes the pause before the next attempt: exponential from
// RetryDelay, capped at RetryDelayMax. A cap at or below the base gives a
// fixed delay.
func (c *Collector) retryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := c.cfg.RetryDelay
	if base <= 0 {
		return 0
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := c.cfg.RetryDelayMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}
