package canvas

import (
	"context"
	"net/url"

	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"golang.org/x/sync/errgroup"
)

// Content types attached to search hits.
const (
	ContentAssignment   = "assignment"
	ContentAnnouncement = "announcement"
	ContentPage         = "page"
	ContentFile         = "file"
)

// SearchHit is one raw Canvas record tagged with its content_type.
type SearchHit map[string]any

// ContentType returns the category the hit came from.
func (h SearchHit) ContentType() string {
	s, _ := h["content_type"].(string)
	return s
}

// SearchFailure records a category that could not be searched.
type SearchFailure struct {
	ContentType string
	Err         error
}

// SearchResult holds hits in category order plus the skipped categories.
type SearchResult struct {
	Hits     []SearchHit
	Failures []SearchFailure
}

type searchCategory struct {
	contentType string
	path        string
	params      url.Values
}

// SearchContent searches assignments, announcements, pages and files
// concurrently. A failing category is skipped; the call itself only fails
// when the context is done.
func (a *API) SearchContent(ctx context.Context, courseID, query string) (*SearchResult, error) {
	categories := []searchCategory{
		{ContentAssignment, p("courses", courseID, "assignments"), url.Values{"search_term": {query}}},
		{ContentAnnouncement, p("courses", courseID, "discussion_topics"), url.Values{"search_term": {query}, "only_announcements": {"true"}}},
		{ContentPage, p("courses", courseID, "pages"), url.Values{"search_term": {query}}},
		{ContentFile, p("courses", courseID, "files"), url.Values{"search_term": {query}}},
	}

	hits := make([][]SearchHit, len(categories))
	errs := make([]error, len(categories))

	var g errgroup.Group
	for i, cat := range categories {
		g.Go(func() error {
			records, err := list[SearchHit](ctx, a, cat.path, cat.params)
			if err != nil {
				errs[i] = err
				return nil
			}
			tagged := make([]SearchHit, 0, len(records))
			for _, r := range records {
				// null elements decode to a nil map
				if r == nil {
					continue
				}
				r["content_type"] = cat.contentType
				tagged = append(tagged, r)
			}
			hits[i] = tagged
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, client.Classify("GET", p("courses", courseID, "search"), nil, nil, err)
	}

	result := &SearchResult{}
	for i, cat := range categories {
		if errs[i] != nil {
			a.logger.Warn().
				Err(errs[i]).
				Str("course_id", courseID).
				Str("content_type", cat.contentType).
				Msg("Search category skipped")
			result.Failures = append(result.Failures, SearchFailure{ContentType: cat.contentType, Err: errs[i]})
			continue
		}
		result.Hits = append(result.Hits, hits[i]...)
	}
	return result, nil
}
