package content

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/client"
)

// fakeSource serves canned items; lookups keyed by slug or content id can
// be delayed or failed.
type fakeSource struct {
	modules    []canvas.Module
	modulesErr error
	items      map[string][]canvas.ModuleItem
	itemsErr   error

	delays map[string]time.Duration
	fail   map[string]error

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu    sync.Mutex
	calls []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		items:  map[string][]canvas.ModuleItem{},
		delays: map[string]time.Duration{},
		fail:   map[string]error{},
	}
}

func (f *fakeSource) ListModules(context.Context, string) ([]canvas.Module, error) {
	return f.modules, f.modulesErr
}

func (f *fakeSource) ListModuleItems(_ context.Context, _, moduleID string) ([]canvas.ModuleItem, error) {
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	return f.items[moduleID], nil
}

func (f *fakeSource) lookup(ctx context.Context, key string) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if d := f.delays[key]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.fail[key]
}

func (f *fakeSource) GetPage(ctx context.Context, _, slug string) (*canvas.Page, error) {
	if err := f.lookup(ctx, "page:"+slug); err != nil {
		return nil, err
	}
	return &canvas.Page{Title: slug, Body: "<p>Body of " + slug + "</p>"}, nil
}

func (f *fakeSource) GetFile(ctx context.Context, fileID string) (*canvas.File, error) {
	if err := f.lookup(ctx, "file:"+fileID); err != nil {
		return nil, err
	}
	id, _ := strconv.ParseInt(fileID, 10, 64)
	return &canvas.File{ID: id, DisplayName: "file " + fileID, ContentType: "application/pdf"}, nil
}

func (f *fakeSource) GetAssignment(ctx context.Context, _, assignmentID string) (*canvas.Assignment, error) {
	if err := f.lookup(ctx, "assignment:"+assignmentID); err != nil {
		return nil, err
	}
	id, _ := strconv.ParseInt(assignmentID, 10, 64)
	return &canvas.Assignment{ID: id, Name: "assignment " + assignmentID, Description: "<h2>Task</h2>"}, nil
}

var errNotFound = &client.Error{Kind: client.KindNotFound, StatusCode: 404, Message: "404 Not Found"}

var errBoom = errors.New("boom")
