// Package discovery finds feed sources by scanning a status dashboard page
// for RSS links.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/go-collect-feeds/clock"
	"github.com/aluiziolira/go-collect-feeds/config"
	"github.com/aluiziolira/go-collect-feeds/models"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// seenCacheSize bounds the URL dedupe cache. The AWS dashboard lists a few
// hundred feeds; the bound only matters against a pathological page.
const seenCacheSize = 4096

// ErrTooFewFeeds is returned when the dashboard lists fewer feeds than the
// configured minimum, which usually means the page layout changed.
type ErrTooFewFeeds struct {
	Found int
	Min   int
}

func (e ErrTooFewFeeds) Error() string {
	return fmt.Sprintf("found %d RSS feeds, less than expected minimum of %d", e.Found, e.Min)
}

// Finder fetches the dashboard page and extracts every RSS link.
type Finder struct {
	cfg       *config.Config
	collector *colly.Collector
	transport http.RoundTripper

	sleep func(ctx context.Context, d time.Duration) error
}

// NewFinder builds a finder configured from cfg.
func NewFinder(cfg *config.Config) *Finder {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true

	return &Finder{
		cfg:       cfg,
		collector: collector,
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
		sleep: clock.Sleep,
	}
}

// ctxTransport threads the run context into every request colly issues, so
// an in-flight dashboard fetch aborts as soon as the process is told to
// shut down, not just between attempts.
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// Discover fetches the dashboard and returns the ordered list of feed
// sources it links to. The dashboard fetch itself is retried with the
// collector's attempt budget; a page listing fewer than MinFeeds feeds is an
// error even when the fetch succeeded.
func (f *Finder) Discover(ctx context.Context) ([]models.Source, error) {
	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init dedupe cache: %w", err)
	}

	f.collector.WithTransport(&ctxTransport{ctx: ctx, base: f.transport})

	var sources []models.Source
	names := make(map[string]int)

	f.collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		path := href
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
		if !strings.HasSuffix(strings.ToLower(path), ".rss") {
			return
		}
		abs := e.Request.AbsoluteURL(href)
		if abs == "" {
			return
		}
		if _, dup := seen.Get(abs); dup {
			return
		}
		seen.Add(abs, struct{}{})

		sources = append(sources, models.Source{
			Name: uniqueName(names, feedName(abs)),
			URL:  abs,
		})
	})

	var respErr error
	f.collector.OnError(func(r *colly.Response, err error) {
		respErr = err
	})

	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		sources = sources[:0]
		seen.Purge()
		clear(names)
		respErr = nil

		err := f.visit(&respErr)
		if err == nil {
			break
		}
		slog.Warn("dashboard fetch failed",
			slog.String("url", f.cfg.DashboardURL),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		if attempt == f.cfg.MaxAttempts {
			return nil, fmt.Errorf("fetch dashboard %s: %w", f.cfg.DashboardURL, err)
		}
		if err := f.sleep(ctx, f.cfg.RetryDelay); err != nil {
			return nil, err
		}
	}

	if len(sources) < f.cfg.MinFeeds {
		return nil, ErrTooFewFeeds{Found: len(sources), Min: f.cfg.MinFeeds}
	}

	slog.Info("dashboard scanned",
		slog.String("url", f.cfg.DashboardURL),
		slog.Int("feeds", len(sources)),
	)
	return sources, nil
}

func (f *Finder) visit(respErr *error) error {
	if err := f.collector.Visit(f.cfg.DashboardURL); err != nil {
		return err
	}
	f.collector.Wait()
	return *respErr
}

// feedName derives a filename stem from a feed URL's path basename,
// e.g. "https://host/rss/EC2-us-east-1.rss" -> "ec2-us-east-1".
func feedName(rawURL string) string {
	base := rawURL
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimSuffix(base, "/")
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(strings.ToLower(base), ".rss"); i >= 0 {
		base = base[:i]
	}

	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "feed"
	}
	return name
}

// uniqueName disambiguates repeated stems with a numeric suffix.
func uniqueName(names map[string]int, name string) string {
	count := names[name]
	names[name] = count + 1
	if count == 0 {
		return name
	}
	return fmt.Sprintf("%s-%d", name, count+1)
}
