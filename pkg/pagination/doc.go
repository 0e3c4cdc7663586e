// Package pagination walks Canvas list endpoints page by page.
//
// Canvas paginates collections with RFC 5988 Link headers. Each response names
// the next page with rel="next"; the walker follows that URL verbatim until it
// disappears or the page bound is reached.
//
// Example usage:
//
//	walker := pagination.NewWalker(canvasClient, pagination.DefaultConfig())
//	summary, err := walker.Walk(ctx, "/courses/1/modules", nil, func(page int, data []byte) error {
//		return json.Unmarshal(data, &batch)
//	})
//
// The walker:
//   - Requests page 1 with per_page set (default 100)
//   - Follows rel="next" links sequentially, page N+1 only after page N is read
//   - Stops after MaxPages (default 50) without reporting an error
//   - Fails the whole walk on the first page error (no partial data)
package pagination
