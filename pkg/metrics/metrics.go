// Package metrics exposes the Prometheus registry used by canvas-mcp.
// Metrics are defined next to the code that records them (client,
// ratelimit, pagination, content, mcpserver) and registered via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all metrics are recorded in.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source served on /metrics.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - canvas_rate_limit_wait_seconds (Histogram): Time spent waiting for an admission slot
//   - canvas_quota_remaining (Gauge): Last X-Rate-Limit-Remaining seen
//   - canvas_quota_blocks_total (Counter): Requests refused below the critical quota
//   - canvas_quota_throttles_total (Counter): Requests delayed below the warning quota
//
// Request Metrics (pkg/client):
//   - canvas_requests_total{endpoint, status} (Counter): Requests by endpoint template and HTTP status
//   - canvas_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint template
//   - canvas_errors_total{kind} (Counter): Classified failures by kind
//
// Retry Metrics (pkg/client):
//   - canvas_retries_total{kind} (Counter): Retry attempts by error kind
//   - canvas_retry_backoff_seconds{kind} (Histogram): Backoff duration by error kind
//   - canvas_retry_exhausted_total{kind} (Counter): Calls that used every attempt
//
// Pagination Metrics (pkg/pagination):
//   - canvas_pages_fetched_total (Counter): Listing pages fetched
//   - canvas_pagination_truncated_total (Counter): Listings cut off at the page limit
//
// Content Metrics (pkg/content):
//   - canvas_items_extracted_total{kind, outcome} (Counter): Module items extracted
//   - canvas_module_extract_duration_seconds (Histogram): Complete module extraction time
//
// Tool Metrics (internal/mcpserver):
//   - canvas_tool_calls_total{tool, outcome} (Counter): MCP tool invocations
//   - canvas_tool_duration_seconds{tool} (Histogram): MCP tool latency
//
// Example Prometheus Queries:
//
//   # Throttled share of requests
//   sum(rate(canvas_errors_total{kind="rate_limited"}[5m])) / sum(rate(canvas_requests_total[5m]))
//
//   # Quota close to exhaustion
//   canvas_quota_remaining < 100
//
//   # Truncated listings
//   increase(canvas_pagination_truncated_total[1h]) > 0
//
//   # P95 tool latency
//   histogram_quantile(0.95, sum by (le, tool) (rate(canvas_tool_duration_seconds_bucket[5m])))
