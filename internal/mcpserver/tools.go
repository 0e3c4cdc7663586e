package mcpserver

import (
	"context"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/Sternrassler/canvas-mcp/pkg/content"
	"github.com/Sternrassler/canvas-mcp/pkg/htmltext"
	"github.com/Sternrassler/canvas-mcp/pkg/logging"
	"github.com/Sternrassler/canvas-mcp/pkg/render"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_tool_calls_total",
		Help: "MCP tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	toolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_tool_duration_seconds",
		Help:    "MCP tool latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"tool"})
)

// toolFunc produces the text of a successful call.
type toolFunc func(ctx context.Context, req mcp.CallToolRequest) (string, error)

const (
	descCourseID = "The Canvas course ID"
	descModuleID = "The Canvas module ID"
	descFileID   = "The Canvas file ID"
)

func courseIDArg() mcp.ToolOption {
	return mcp.WithString("course_id", mcp.Required(), mcp.Description(descCourseID))
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("list_courses",
		mcp.WithDescription("List all courses the student is enrolled in"),
	), s.listCourses)

	s.addTool(mcp.NewTool("get_course_details",
		mcp.WithDescription("Get detailed information about a specific course"),
		courseIDArg(),
	), s.getCourseDetails)

	s.addTool(mcp.NewTool("list_course_modules",
		mcp.WithDescription("List all modules in a course with their structure and content"),
		courseIDArg(),
	), s.listCourseModules)

	s.addTool(mcp.NewTool("get_module_items",
		mcp.WithDescription("Get all items within a specific course module (pages, assignments, quizzes, discussions, etc.)"),
		courseIDArg(),
		mcp.WithString("module_id", mcp.Required(), mcp.Description(descModuleID)),
	), s.getModuleItems)

	s.addTool(mcp.NewTool("get_page_content",
		mcp.WithDescription("Get the content of a specific course page"),
		courseIDArg(),
		mcp.WithString("page_url", mcp.Required(), mcp.Description("The page URL slug or ID")),
	), s.getPageContent)

	s.addTool(mcp.NewTool("list_assignments",
		mcp.WithDescription("List all assignments for a course, including due dates and requirements"),
		courseIDArg(),
	), s.listAssignments)

	s.addTool(mcp.NewTool("get_assignment_details",
		mcp.WithDescription("Get detailed information about a specific assignment including description, requirements, due date, and grading criteria"),
		courseIDArg(),
		mcp.WithString("assignment_id", mcp.Required(), mcp.Description("The Canvas assignment ID")),
	), s.getAssignmentDetails)

	s.addTool(mcp.NewTool("list_assignment_submissions",
		mcp.WithDescription("Get submission details for an assignment (useful for checking submission status and feedback)"),
		courseIDArg(),
		mcp.WithString("assignment_id", mcp.Required(), mcp.Description("The Canvas assignment ID")),
	), s.listAssignmentSubmissions)

	s.addTool(mcp.NewTool("list_announcements",
		mcp.WithDescription("List all course announcements and important updates from instructors"),
		courseIDArg(),
	), s.listAnnouncements)

	s.addTool(mcp.NewTool("get_announcement_details",
		mcp.WithDescription("Get detailed content of a specific announcement"),
		courseIDArg(),
		mcp.WithString("announcement_id", mcp.Required(), mcp.Description("The Canvas announcement/discussion topic ID")),
	), s.getAnnouncementDetails)

	s.addTool(mcp.NewTool("list_course_files",
		mcp.WithDescription("List all files and resources available in a course (documents, presentations, readings, etc.)"),
		courseIDArg(),
	), s.listCourseFiles)

	s.addTool(mcp.NewTool("get_file_details",
		mcp.WithDescription("Get detailed information about a specific file including metadata, download URL, and access permissions"),
		mcp.WithString("file_id", mcp.Required(), mcp.Description(descFileID)),
	), s.getFileDetails)

	s.addTool(mcp.NewTool("search_course_content",
		mcp.WithDescription("Search across all course content including assignments, announcements, pages, and files"),
		courseIDArg(),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query to find relevant content")),
	), s.searchCourseContent)

	s.addTool(mcp.NewTool("get_user_profile",
		mcp.WithDescription("Get the profile of the user the access token belongs to"),
	), s.getUserProfile)

	s.addTool(mcp.NewTool("get_file_content",
		mcp.WithDescription("Get detailed information about a specific file including type, size, download URL and access instructions"),
		mcp.WithString("file_id", mcp.Required(), mcp.Description(descFileID)),
	), s.getFileContent)

	s.addTool(mcp.NewTool("get_media_content",
		mcp.WithDescription("Extract information about video, audio, or other media content including sources and captions"),
		mcp.WithString("media_id", mcp.Required(), mcp.Description("The Canvas media object ID")),
	), s.getMediaContent)

	s.addTool(mcp.NewTool("extract_module_content",
		mcp.WithDescription("Extract complete content from all items in a module including pages, files, assignments, and media"),
		courseIDArg(),
		mcp.WithString("module_id", mcp.Required(), mcp.Description(descModuleID)),
	), s.extractModuleContent)

	s.addTool(mcp.NewTool("get_week_content",
		mcp.WithDescription("Extract all content from a specific week module by searching for week number (e.g., Week 10, Week 1)"),
		courseIDArg(),
		mcp.WithString("week_number", mcp.Required(), mcp.Description("The week number (e.g., '10', '1', '5')")),
	), s.getWeekContent)

	s.addTool(mcp.NewTool("get_request_stats",
		mcp.WithDescription("Show how many Canvas requests this server has sent and when the last one was admitted"),
	), s.getRequestStats)
}

// addTool registers fn behind the common logging, metrics and error mapping.
func (s *Server) addTool(tool mcp.Tool, fn toolFunc) {
	s.mcp.AddTool(tool, s.wrap(tool.Name, fn))
}

func (s *Server) wrap(name string, fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, logger, _ := logging.WithRequest(ctx, s.logger.With().Str("tool", name).Logger())
		start := time.Now()

		text, err := fn(ctx, req)
		elapsed := time.Since(start)
		toolDuration.WithLabelValues(name).Observe(elapsed.Seconds())

		if err != nil {
			toolCallsTotal.WithLabelValues(name, "error").Inc()
			logger.Warn().
				Err(err).
				Str("kind", string(client.KindOf(err))).
				Dur("duration", elapsed).
				Msg("Tool call failed")
			return mcp.NewToolResultError("Tool execution failed: " + client.UserMessage(err)), nil
		}

		toolCallsTotal.WithLabelValues(name, "ok").Inc()
		logger.Info().Dur("duration", elapsed).Msg("Tool call completed")
		return mcp.NewToolResultText(text), nil
	}
}

// args reads the named required string arguments in order.
func args(req mcp.CallToolRequest, names ...string) ([]string, error) {
	values := make([]string, len(names))
	for i, name := range names {
		v, err := req.RequireString(name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (s *Server) listCourses(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
	courses, err := s.api.ListCourses(ctx)
	if err != nil {
		return "", err
	}
	return render.Courses(courses), nil
}

func (s *Server) getCourseDetails(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id")
	if err != nil {
		return "", err
	}
	course, err := s.api.GetCourse(ctx, a[0])
	if err != nil {
		return "", err
	}
	return render.CourseDetails(course), nil
}

func (s *Server) listCourseModules(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id")
	if err != nil {
		return "", err
	}
	modules, err := s.api.ListModules(ctx, a[0])
	if err != nil {
		return "", err
	}
	return render.Modules(a[0], modules), nil
}

func (s *Server) getModuleItems(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id", "module_id")
	if err != nil {
		return "", err
	}
	items, err := s.api.ListModuleItems(ctx, a[0], a[1])
	if err != nil {
		return "", err
	}
	content.SortItems(items)
	previews := s.aggregator.PagePreviews(ctx, a[0], items)
	return render.ModuleItems(a[1], items, previews), nil
}

func (s *Server) getPageContent(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id", "page_url")
	if err != nil {
		return "", err
	}
	page, err := s.api.GetPage(ctx, a[0], a[1])
	if err != nil {
		return "", err
	}
	return render.Page(a[1], page, htmltext.Convert(page.Body)), nil
}

func (s *Server) listAssignments(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id")
	if err != nil {
		return "", err
	}
	assignments, err := s.api.ListAssignments(ctx, a[0])
	if err != nil {
		return "", err
	}
	return render.Assignments(a[0], assignments), nil
}

func (s *Server) getAssignmentDetails(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id", "assignment_id")
	if err != nil {
		return "", err
	}
	assignment, err := s.api.GetAssignment(ctx, a[0], a[1])
	if err != nil {
		return "", err
	}
	return render.AssignmentDetails(assignment, htmltext.Convert(assignment.Description)), nil
}

func (s *Server) listAssignmentSubmissions(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id", "assignment_id")
	if err != nil {
		return "", err
	}
	submissions, err := s.api.ListSubmissions(ctx, a[0], a[1])
	if err != nil {
		return "", err
	}
	return jsonList(submissions)
}

func (s *Server) listAnnouncements(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id")
	if err != nil {
		return "", err
	}
	announcements, err := s.api.ListAnnouncements(ctx, a[0])
	if err != nil {
		return "", err
	}
	return jsonList(announcements)
}

func (s *Server) getAnnouncementDetails(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id", "announcement_id")
	if err != nil {
		return "", err
	}
	announcement, err := s.api.GetAnnouncement(ctx, a[0], a[1])
	if err != nil {
		return "", err
	}
	return render.JSON(announcement)
}

func (s *Server) listCourseFiles(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id")
	if err != nil {
		return "", err
	}
	files, err := s.api.ListFiles(ctx, a[0])
	if err != nil {
		return "", err
	}
	return jsonList(files)
}

func (s *Server) getFileDetails(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "file_id")
	if err != nil {
		return "", err
	}
	file, err := s.api.GetFile(ctx, a[0])
	if err != nil {
		return "", err
	}
	return render.JSON(file)
}

func (s *Server) searchCourseContent(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id", "query")
	if err != nil {
		return "", err
	}
	result, err := s.api.SearchContent(ctx, a[0], a[1])
	if err != nil {
		return "", err
	}
	return jsonList(result.Hits)
}

func (s *Server) getUserProfile(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
	profile, err := s.api.GetProfile(ctx)
	if err != nil {
		return "", err
	}
	return render.JSON(profile)
}

func (s *Server) getFileContent(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "file_id")
	if err != nil {
		return "", err
	}
	file, err := s.api.GetFile(ctx, a[0])
	if err != nil {
		return "", err
	}
	return render.FileContent(file), nil
}

// getMediaContent never fails on Canvas errors; an unreachable media object
// renders as an explanatory document and missing captions as none.
func (s *Server) getMediaContent(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "media_id")
	if err != nil {
		return "", err
	}
	mediaID := a[0]

	media, err := s.api.GetMediaObject(ctx, mediaID)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("media_id", mediaID).Msg("Media object unavailable")
		return render.MediaError(mediaID, client.UserMessage(err)), nil
	}

	tracks, err := s.api.ListMediaTracks(ctx, mediaID)
	if err != nil {
		logging.FromContext(ctx).Debug().Err(err).Str("media_id", mediaID).Msg("Media tracks unavailable")
		tracks = nil
	}
	return render.Media(mediaID, media, tracks), nil
}

func (s *Server) extractModuleContent(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id", "module_id")
	if err != nil {
		return "", err
	}
	result, err := s.aggregator.ExtractModule(ctx, a[0], a[1])
	if err != nil {
		return "", err
	}
	return render.ModuleExtract(result), nil
}

// getWeekContent renders lookup failures as a troubleshooting document.
func (s *Server) getWeekContent(ctx context.Context, req mcp.CallToolRequest) (string, error) {
	a, err := args(req, "course_id", "week_number")
	if err != nil {
		return "", err
	}
	week, err := s.weeks.ResolveWeek(ctx, a[0], a[1])
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("course_id", a[0]).Msg("Week lookup failed")
		return render.WeekError(a[0], a[1], err), nil
	}
	return render.Week(week), nil
}

func (s *Server) getRequestStats(_ context.Context, _ mcp.CallToolRequest) (string, error) {
	return render.Stats(s.api.Stats()), nil
}

// jsonList renders a listing as indented JSON; an empty listing is [].
func jsonList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	return render.JSON(items)
}

var _ content.Source = (*canvas.API)(nil)
