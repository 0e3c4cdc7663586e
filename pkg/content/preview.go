package content

import (
	"context"
	"sort"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/htmltext"
	"golang.org/x/sync/errgroup"
)

// PreviewLength is the number of characters shown in a page preview.
const PreviewLength = 200

// Preview is a short excerpt of a page item. Err is set when the page
// could not be fetched.
type Preview struct {
	Text      string
	Truncated bool
	Err       error
}

// SortItems orders module items by position, keeping server order for ties.
func SortItems(items []canvas.ModuleItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
}

// PagePreviews fetches the page items concurrently and returns excerpts
// keyed by item id. Non-page items and pages without a slug are skipped.
func (a *Aggregator) PagePreviews(ctx context.Context, courseID string, items []canvas.ModuleItem) map[int64]Preview {
	previews := make([]Preview, len(items))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, item := range items {
		if ParseItemKind(item.Type) != KindPage || item.PageURL == "" {
			continue
		}
		g.Go(func() error {
			page, err := a.source.GetPage(ctx, courseID, item.PageURL)
			if err != nil {
				previews[i] = Preview{Err: err}
				return nil
			}
			previews[i] = excerpt(page.Body)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[int64]Preview)
	for i, item := range items {
		if ParseItemKind(item.Type) == KindPage && item.PageURL != "" {
			out[item.ID] = previews[i]
		}
	}
	return out
}

func excerpt(body string) Preview {
	text := []rune(htmltext.Convert(body))
	if len(text) <= PreviewLength {
		return Preview{Text: string(text)}
	}
	return Preview{Text: string(text[:PreviewLength]), Truncated: true}
}
