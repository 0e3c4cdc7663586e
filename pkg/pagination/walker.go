package pagination

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	canvasPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_pages_fetched_total",
		Help: "Total number of list pages fetched from Canvas",
	})

	canvasPaginationTruncatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_pagination_truncated_total",
		Help: "Total number of list walks stopped by the page bound",
	})
)

// Config holds walker configuration
type Config struct {
	// PerPage is sent as per_page on the first request
	PerPage int
	// MaxPages bounds the number of pages read per walk
	MaxPages int
}

// DefaultConfig returns the Canvas defaults: 100 records per page, 50 pages.
func DefaultConfig() Config {
	return Config{
		PerPage:  100,
		MaxPages: 50,
	}
}

// PageFetcher fetches one page and reports the next-page cursor.
// target is either the initial path or a next URL returned earlier;
// params is nil for cursor requests because the cursor carries its query.
type PageFetcher interface {
	FetchPage(ctx context.Context, target string, params url.Values) (data []byte, next string, err error)
}

// Summary describes a finished walk.
type Summary struct {
	Pages     int
	Truncated bool
}

// Walker follows rel="next" cursors.
type Walker struct {
	fetcher PageFetcher
	config  Config
}

// NewWalker creates a new walker
func NewWalker(fetcher PageFetcher, config Config) *Walker {
	if config.PerPage <= 0 {
		config.PerPage = 100
	}
	if config.MaxPages <= 0 {
		config.MaxPages = 50
	}
	return &Walker{
		fetcher: fetcher,
		config:  config,
	}
}

// Walk reads pages of path in server order and hands each body to visit.
// Any fetch or visit error aborts the walk and is returned unchanged.
func (w *Walker) Walk(ctx context.Context, path string, params url.Values, visit func(page int, data []byte) error) (Summary, error) {
	start := time.Now()

	first := url.Values{}
	for k, v := range params {
		first[k] = append([]string(nil), v...)
	}
	first.Set("per_page", strconv.Itoa(w.config.PerPage))

	var summary Summary
	target, query := path, first
	for {
		if summary.Pages == w.config.MaxPages {
			summary.Truncated = true
			canvasPaginationTruncatedTotal.Inc()
			log.Warn().
				Str("endpoint", path).
				Int("max_pages", w.config.MaxPages).
				Msg("Page bound reached, remaining pages ignored")
			break
		}

		data, next, err := w.fetcher.FetchPage(ctx, target, query)
		if err != nil {
			return summary, err
		}
		summary.Pages++
		canvasPagesFetchedTotal.Inc()

		if err := visit(summary.Pages, data); err != nil {
			return summary, err
		}

		if next == "" {
			break
		}
		target, query = next, nil
	}

	log.Debug().
		Str("endpoint", path).
		Int("pages", summary.Pages).
		Dur("duration", time.Since(start)).
		Msg("List walk complete")

	return summary, nil
}

// ParseNextLink extracts the rel="next" URL from a Link header value.
// It returns "" when the header names no next page.
func ParseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}

		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}

		for _, param := range segments[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
				continue
			}
			for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
				if strings.EqualFold(rel, "next") {
					return target[1 : len(target)-1]
				}
			}
		}
	}
	return ""
}

// String implements fmt.Stringer for log output.
func (s Summary) String() string {
	return fmt.Sprintf("pages=%d truncated=%t", s.Pages, s.Truncated)
}
