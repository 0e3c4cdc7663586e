package canvas

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/canvas-mcp/internal/testutil"
	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, mock *testutil.MockCanvas) *API {
	t.Helper()

	cfg := client.DefaultConfig(mock.URL(), "test-token")
	cfg.RateInterval = time.Millisecond
	c, err := client.New(cfg)
	require.NoError(t, err)
	return NewAPI(c, client.DefaultRetryPolicy(1))
}

func TestListCourses_KeepsAvailableOnly(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()

	var query map[string][]string
	mock.SetHandler("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`[
			{"id":1,"name":"Biology","course_code":"BIO101","workflow_state":"available","term":{"id":3,"name":"Fall"}},
			{"id":2,"name":"Old","course_code":"OLD","workflow_state":"completed"},
			{"id":3,"name":"Chemistry","course_code":"CHEM","workflow_state":"available","total_students":30}
		]`))
	})

	api := newTestAPI(t, mock)
	courses, err := api.ListCourses(context.Background())
	require.NoError(t, err)

	require.Len(t, courses, 2)
	assert.Equal(t, "Biology", courses[0].Name)
	assert.Equal(t, "Fall", courses[0].Term.Name)
	assert.Equal(t, 30, courses[1].TotalStudents)

	assert.Equal(t, []string{"active"}, query["enrollment_state"])
	assert.Equal(t, []string{"total_students", "term"}, query["include[]"])
	assert.Equal(t, []string{"100"}, query["per_page"])
}

func TestListAssignments_SortedByDueDate(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetPages("/api/v1/courses/5/assignments",
		[]map[string]any{
			{"id": 1, "name": "undated"},
			{"id": 2, "name": "late", "due_at": "2024-03-01T23:59:00Z"},
		},
		[]map[string]any{
			{"id": 3, "name": "early", "due_at": "2024-01-15T23:59:00Z"},
			{"id": 4, "name": "also undated", "due_at": nil},
		},
	)

	api := newTestAPI(t, mock)
	assignments, err := api.ListAssignments(context.Background(), "5")
	require.NoError(t, err)

	var names []string
	for _, a := range assignments {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"early", "late", "undated", "also undated"}, names)
}

func TestGetFile_DecodesHyphenatedContentType(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetJSON("/api/v1/files/77", map[string]any{
		"id":           77,
		"display_name": "Lecture 1.pdf",
		"content-type": "application/pdf",
		"size":         2097152,
		"unknown":      "ignored",
	})

	api := newTestAPI(t, mock)
	file, err := api.GetFile(context.Background(), "77")
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", file.ContentType)
	assert.Equal(t, FamilyDocument, file.Family())
	assert.EqualValues(t, 2097152, file.Size)
}

func TestGetPage_EscapesSlug(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetJSON("/api/v1/courses/1/pages/week 1 intro", map[string]any{"title": "Intro", "body": "<p>hi</p>"})

	api := newTestAPI(t, mock)
	page, err := api.GetPage(context.Background(), "1", "week 1 intro")
	require.NoError(t, err)
	assert.Equal(t, "Intro", page.Title)
}

func TestGetCourse_NotFound(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()

	api := newTestAPI(t, mock)
	_, err := api.GetCourse(context.Background(), "999")
	assert.True(t, client.IsKind(err, client.KindNotFound), "got %v", err)
}

func TestSearchContent_SkipsFailingCategory(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetJSON("/api/v1/courses/1/assignments", []map[string]any{{"id": 1, "name": "Essay"}})
	mock.SetJSON("/api/v1/courses/1/discussion_topics", []map[string]any{{"id": 2, "title": "Essay tips"}})
	mock.SetResponse("/api/v1/courses/1/pages", testutil.NewErrorResponse(http.StatusForbidden, "disabled"))
	mock.SetJSON("/api/v1/courses/1/files", []map[string]any{{"id": 3, "display_name": "essay.pdf"}})

	api := newTestAPI(t, mock)
	result, err := api.SearchContent(context.Background(), "1", "essay")
	require.NoError(t, err)

	var types []string
	for _, h := range result.Hits {
		types = append(types, h.ContentType())
	}
	assert.Equal(t, []string{ContentAssignment, ContentAnnouncement, ContentFile}, types)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, ContentPage, result.Failures[0].ContentType)
	assert.True(t, client.IsKind(result.Failures[0].Err, client.KindForbidden))
}

func TestSearchContent_SkipsNullRecords(t *testing.T) {
	mock := testutil.NewMockCanvas()
	defer mock.Close()
	mock.SetJSON("/api/v1/courses/1/assignments", []any{})
	mock.SetJSON("/api/v1/courses/1/discussion_topics", []any{})
	mock.SetResponse("/api/v1/courses/1/pages", testutil.NewHealthyResponse(`[{"title":"a"},null]`))
	mock.SetJSON("/api/v1/courses/1/files", []any{nil})

	api := newTestAPI(t, mock)
	result, err := api.SearchContent(context.Background(), "1", "a")
	require.NoError(t, err)

	require.Len(t, result.Hits, 1)
	assert.Equal(t, "a", result.Hits[0]["title"])
	assert.Equal(t, ContentPage, result.Hits[0].ContentType())
	assert.Empty(t, result.Failures)
}

func TestFlex_UnmarshalJSON(t *testing.T) {
	var src MediaSource
	require.NoError(t, json.Unmarshal([]byte(`{"width":"640","height":360}`), &src))
	assert.Equal(t, 640, src.Width.Int())
	assert.Equal(t, 360, src.Height.Int())
	assert.Equal(t, Flex("360"), src.Height)
}
