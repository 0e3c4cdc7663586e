package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/canvas-mcp/internal/testutil"
	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *testutil.MockCanvas) {
	t.Helper()

	mock := testutil.NewMockCanvas()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig(mock.URL(), "test-token")
	cfg.RateInterval = time.Millisecond
	c, err := client.New(cfg)
	require.NoError(t, err)

	return New(canvas.NewAPI(c, client.DefaultRetryPolicy(1)), 4), mock
}

// rpc sends one JSON-RPC message through the MCP server and decodes the reply.
func rpc(t *testing.T, s *Server, method string, params any) map[string]any {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	reply := s.MCP().HandleMessage(context.Background(), raw)
	out, err := json.Marshal(reply)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	return decoded
}

// callTool returns the text of the first content item and the isError flag.
func callTool(t *testing.T, s *Server, name string, args map[string]any) (string, bool) {
	t.Helper()

	reply := rpc(t, s, "tools/call", map[string]any{"name": name, "arguments": args})
	require.Nil(t, reply["error"], "unexpected JSON-RPC error: %v", reply["error"])

	result := reply["result"].(map[string]any)
	contents := result["content"].([]any)
	require.NotEmpty(t, contents)
	text := contents[0].(map[string]any)["text"].(string)
	isError, _ := result["isError"].(bool)
	return text, isError
}

func TestToolsList(t *testing.T) {
	s, _ := newTestServer(t)

	reply := rpc(t, s, "tools/list", map[string]any{})
	tools := reply["result"].(map[string]any)["tools"].([]any)

	var names []string
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{
		"list_courses", "get_course_details", "list_course_modules", "get_module_items",
		"get_page_content", "list_assignments", "get_assignment_details",
		"list_assignment_submissions", "list_announcements", "get_announcement_details",
		"list_course_files", "get_file_details", "search_course_content", "get_user_profile",
		"get_file_content", "get_media_content", "extract_module_content", "get_week_content",
		"get_request_stats",
	}, names)
}

func TestListCourses(t *testing.T) {
	s, mock := newTestServer(t)
	mock.SetJSON("/api/v1/courses", []map[string]any{
		{"id": 11, "name": "Biology", "course_code": "BIO101", "workflow_state": "available", "time_zone": "UTC"},
	})

	text, isError := callTool(t, s, "list_courses", nil)
	assert.False(t, isError)
	assert.Contains(t, text, "## Your Canvas Courses (1 courses found)")
	assert.Contains(t, text, "**Biology** (BIO101)")
	assert.Contains(t, text, "Course ID: 11")
}

func TestToolErrors(t *testing.T) {
	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		setup    func(*testutil.MockCanvas)
		contains string
	}{
		{
			name:     "missing argument",
			tool:     "get_module_items",
			args:     map[string]any{"course_id": "7"},
			contains: "module_id",
		},
		{
			name: "unauthorized",
			tool: "get_course_details",
			args: map[string]any{"course_id": "7"},
			setup: func(m *testutil.MockCanvas) {
				m.SetResponse("/api/v1/courses/7", testutil.NewErrorResponse(http.StatusUnauthorized, "Invalid access token."))
			},
			contains: "Canvas API authentication failed. Please check your access token.",
		},
		{
			name: "throttled",
			tool: "list_assignments",
			args: map[string]any{"course_id": "7"},
			setup: func(m *testutil.MockCanvas) {
				m.SetResponse("/api/v1/courses/7/assignments", testutil.NewThrottledResponse())
			},
			contains: "Canvas API rate limit exceeded",
		},
		{
			name:     "not found",
			tool:     "get_file_details",
			args:     map[string]any{"file_id": "404"},
			contains: "Canvas resource not found.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newTestServer(t)
			if tt.setup != nil {
				tt.setup(mock)
			}

			text, isError := callTool(t, s, tt.tool, tt.args)
			assert.True(t, isError)
			assert.Contains(t, text, "Tool execution failed: ")
			assert.Contains(t, text, tt.contains)
		})
	}
}

func TestGetModuleItems_WithPagePreviews(t *testing.T) {
	s, mock := newTestServer(t)
	mock.SetJSON("/api/v1/courses/7/modules/3/items", []map[string]any{
		{"id": 2, "title": "Reading", "type": "Page", "position": 2, "page_url": "reading"},
		{"id": 1, "title": "Quiz", "type": "Quiz", "position": 1, "content_id": 90},
	})
	mock.SetJSON("/api/v1/courses/7/pages/reading", map[string]any{
		"title": "Reading", "url": "reading", "body": "<p>Chapter one covers cells.</p>",
	})

	text, isError := callTool(t, s, "get_module_items", map[string]any{"course_id": "7", "module_id": "3"})
	require.False(t, isError, text)
	assert.Contains(t, text, "Chapter one covers cells.")
	assert.Less(t, strings.Index(text, "Quiz"), strings.Index(text, "Reading"))
}

func TestGetMediaContent_Fallbacks(t *testing.T) {
	t.Run("media object missing", func(t *testing.T) {
		s, _ := newTestServer(t)

		text, isError := callTool(t, s, "get_media_content", map[string]any{"media_id": "m-1"})
		assert.False(t, isError)
		assert.Contains(t, text, "# Media Content (ID: m-1)")
		assert.Contains(t, text, "Unable to retrieve media information")
	})

	t.Run("tracks unavailable", func(t *testing.T) {
		s, mock := newTestServer(t)
		mock.SetJSON("/api/v1/media_objects/m-2", map[string]any{
			"media_id": "m-2", "title": "Lecture", "media_type": "video", "duration": 125,
			"media_sources": []map[string]any{{"width": "1280", "height": 720, "content_type": "video/mp4", "url": "https://cdn/x.mp4"}},
		})
		mock.SetResponse("/api/v1/media_objects/m-2/media_tracks", testutil.NewErrorResponse(http.StatusForbidden, "no access"))

		text, isError := callTool(t, s, "get_media_content", map[string]any{"media_id": "m-2"})
		assert.False(t, isError)
		assert.Contains(t, text, "**Title:** Lecture")
		assert.Contains(t, text, "**Duration:** 2:05")
		assert.Contains(t, text, "**Quality:** 1280x720")
		assert.NotContains(t, text, "Available Captions")
	})
}

func TestExtractModuleContent_IsolatesFailures(t *testing.T) {
	s, mock := newTestServer(t)
	mock.SetJSON("/api/v1/courses/7/modules/3/items", []map[string]any{
		{"id": 1, "title": "Intro", "type": "Page", "position": 1, "page_url": "intro", "published": true},
		{"id": 2, "title": "Broken", "type": "Page", "position": 2, "page_url": "broken"},
		{"id": 3, "title": "Site", "type": "ExternalUrl", "position": 3, "external_url": "https://example.org"},
	})
	mock.SetJSON("/api/v1/courses/7/pages/intro", map[string]any{"title": "Intro", "body": "<h2>Welcome</h2>"})
	mock.SetResponse("/api/v1/courses/7/pages/broken", testutil.NewErrorResponse(http.StatusInternalServerError, "boom"))

	text, isError := callTool(t, s, "extract_module_content", map[string]any{"course_id": "7", "module_id": "3"})
	require.False(t, isError, text)

	assert.Contains(t, text, "# Module 3 - Complete Content Extract")
	assert.Contains(t, text, "**Total Items:** 3")
	assert.Contains(t, text, "## Welcome")
	assert.Contains(t, text, "Content Extraction Error")
	assert.Contains(t, text, "https://example.org")
	assert.Less(t, strings.Index(text, "1. Intro"), strings.Index(text, "2. Broken"))
	assert.Less(t, strings.Index(text, "2. Broken"), strings.Index(text, "3. Site"))
}

func TestGetWeekContent(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s, mock := newTestServer(t)
		mock.SetJSON("/api/v1/courses/7/modules", []map[string]any{
			{"id": 30, "name": "Week 1 - Basics", "position": 1},
			{"id": 31, "name": "Week 10 - Review", "position": 2},
		})
		mock.SetJSON("/api/v1/courses/7/modules/31/items", []map[string]any{
			{"id": 5, "title": "Recap", "type": "ExternalUrl", "position": 1, "external_url": "https://x"},
		})

		text, isError := callTool(t, s, "get_week_content", map[string]any{"course_id": "7", "week_number": "10"})
		require.False(t, isError, text)
		assert.Contains(t, text, "# Week 10 Content - Complete Extract")
		assert.Contains(t, text, "**Module Name:** Week 10 - Review")
		assert.Equal(t, 0, mock.GetPathCount("/api/v1/courses/7/modules/30/items"))
	})

	t.Run("not found lists modules", func(t *testing.T) {
		s, mock := newTestServer(t)
		mock.SetJSON("/api/v1/courses/7/modules", []map[string]any{
			{"id": 30, "name": "Orientation", "position": 1},
		})

		text, isError := callTool(t, s, "get_week_content", map[string]any{"course_id": "7", "week_number": "4"})
		assert.False(t, isError)
		assert.Contains(t, text, "# Week 4 - Not Found")
		assert.Contains(t, text, "1. Orientation (ID: 30)")
	})

	t.Run("listing failure", func(t *testing.T) {
		s, mock := newTestServer(t)
		mock.SetResponse("/api/v1/courses/7/modules", testutil.NewErrorResponse(http.StatusForbidden, "nope"))

		text, isError := callTool(t, s, "get_week_content", map[string]any{"course_id": "7", "week_number": "4"})
		assert.False(t, isError)
		assert.Contains(t, text, "# Week 4 Content - Error")
		assert.Contains(t, text, "Canvas API access forbidden")
	})
}

func TestSearchCourseContent_SkipsFailedCategories(t *testing.T) {
	s, mock := newTestServer(t)
	mock.SetJSON("/api/v1/courses/7/assignments", []map[string]any{{"id": 1, "name": "Essay"}})
	mock.SetJSON("/api/v1/courses/7/discussion_topics", []map[string]any{})
	mock.SetResponse("/api/v1/courses/7/pages", testutil.NewErrorResponse(http.StatusForbidden, "pages disabled"))
	mock.SetJSON("/api/v1/courses/7/files", []map[string]any{{"id": 9, "display_name": "essay.pdf"}})

	text, isError := callTool(t, s, "search_course_content", map[string]any{"course_id": "7", "query": "essay"})
	require.False(t, isError, text)

	var hits []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &hits))
	require.Len(t, hits, 2)
	assert.Equal(t, "assignment", hits[0]["content_type"])
	assert.Equal(t, "file", hits[1]["content_type"])
}

func TestListAnnouncements_EmptyIsJSONArray(t *testing.T) {
	s, mock := newTestServer(t)
	mock.SetJSON("/api/v1/courses/7/discussion_topics", []map[string]any{})

	text, isError := callTool(t, s, "list_announcements", map[string]any{"course_id": "7"})
	assert.False(t, isError)
	assert.Equal(t, "[]", text)
}

func TestGetRequestStats(t *testing.T) {
	s, mock := newTestServer(t)
	mock.SetJSON("/api/v1/users/self/profile", map[string]any{"id": 1, "name": "Student"})

	text, _ := callTool(t, s, "get_request_stats", nil)
	assert.Contains(t, text, "**Request Count:** 0")
	assert.Contains(t, text, "**Last Request Time:** never")

	_, isError := callTool(t, s, "get_user_profile", nil)
	require.False(t, isError)

	text, _ = callTool(t, s, "get_request_stats", nil)
	assert.Contains(t, text, "**Request Count:** 1")
	assert.NotContains(t, text, "never")
}

func TestPrompts(t *testing.T) {
	s, _ := newTestServer(t)

	reply := rpc(t, s, "prompts/list", map[string]any{})
	prompts := reply["result"].(map[string]any)["prompts"].([]any)
	assert.Len(t, prompts, 4)

	tests := []struct {
		name     string
		args     map[string]string
		contains string
	}{
		{"study_plan", map[string]string{"course_id": "7"}, "Create a study plan for course 7"},
		{"assignment_helper", map[string]string{"course_id": "7", "assignment_id": "42"}, "assignment 42 in course 7"},
		{"deadline_tracker", nil, "next 14 days"},
		{"deadline_tracker", map[string]string{"days_ahead": "3"}, "next 3 days"},
		{"course_summary", map[string]string{"course_id": "9"}, "Summarize course 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := rpc(t, s, "prompts/get", map[string]any{"name": tt.name, "arguments": tt.args})
			require.Nil(t, reply["error"])

			messages := reply["result"].(map[string]any)["messages"].([]any)
			require.Len(t, messages, 1)
			msg := messages[0].(map[string]any)
			assert.Equal(t, "user", msg["role"])
			assert.Contains(t, msg["content"].(map[string]any)["text"], tt.contains)
		})
	}

	reply = rpc(t, s, "prompts/get", map[string]any{"name": "deadline_tracker", "arguments": map[string]string{"days_ahead": "soon"}})
	assert.NotNil(t, reply["error"])
}

func TestResources(t *testing.T) {
	s, mock := newTestServer(t)
	mock.SetJSON("/api/v1/courses/7", map[string]any{"id": 7, "name": "Biology", "course_code": "BIO"})
	mock.SetJSON("/api/v1/courses/7/assignments/42", map[string]any{"id": 42, "name": "Essay"})

	reply := rpc(t, s, "resources/templates/list", map[string]any{})
	templates := reply["result"].(map[string]any)["resourceTemplates"].([]any)
	assert.Len(t, templates, 4)

	reply = rpc(t, s, "resources/read", map[string]any{"uri": "canvas://course/7"})
	require.Nil(t, reply["error"])
	contents := reply["result"].(map[string]any)["contents"].([]any)
	require.Len(t, contents, 1)
	first := contents[0].(map[string]any)
	assert.Equal(t, "application/json", first["mimeType"])

	var course map[string]any
	require.NoError(t, json.Unmarshal([]byte(first["text"].(string)), &course))
	assert.Equal(t, "Biology", course["name"])

	reply = rpc(t, s, "resources/read", map[string]any{"uri": "canvas://assignment/7/42"})
	require.Nil(t, reply["error"])

	reply = rpc(t, s, "resources/read", map[string]any{"uri": "canvas://file/404"})
	assert.NotNil(t, reply["error"])
}
