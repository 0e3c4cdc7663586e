package mcpserver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

// DefaultDeadlineDays is the deadline_tracker look-ahead when none is given.
const DefaultDeadlineDays = 14

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("study_plan",
		mcp.WithPromptDescription("Generate a personalized study plan based on upcoming assignments and course content"),
		mcp.WithArgument("course_id",
			mcp.ArgumentDescription("The Canvas course ID to create a study plan for"),
			mcp.RequiredArgument(),
		),
	), s.studyPlanPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("assignment_helper",
		mcp.WithPromptDescription("Get help understanding assignment requirements and creating a completion plan"),
		mcp.WithArgument("course_id",
			mcp.ArgumentDescription("The Canvas course ID"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("assignment_id",
			mcp.ArgumentDescription("The Canvas assignment ID"),
			mcp.RequiredArgument(),
		),
	), s.assignmentHelperPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("deadline_tracker",
		mcp.WithPromptDescription("Track and prioritize upcoming deadlines across all courses"),
		mcp.WithArgument("days_ahead",
			mcp.ArgumentDescription("Number of days to look ahead for deadlines (default: 14)"),
		),
	), s.deadlineTrackerPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("course_summary",
		mcp.WithPromptDescription("Generate a comprehensive summary of course content, progress, and requirements"),
		mcp.WithArgument("course_id",
			mcp.ArgumentDescription("The Canvas course ID to summarize"),
			mcp.RequiredArgument(),
		),
	), s.courseSummaryPrompt)
}

// promptArg returns the argument or a bracketed placeholder.
func promptArg(req mcp.GetPromptRequest, name string) string {
	if v := req.Params.Arguments[name]; v != "" {
		return v
	}
	return "[" + name + "]"
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return mcp.NewGetPromptResult(description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
	})
}

func (s *Server) studyPlanPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return userPrompt(
		"Generate a personalized study plan based on upcoming assignments and course content",
		fmt.Sprintf("Create a study plan for course %s focusing on upcoming assignments and important deadlines. "+
			"Use list_assignments and list_course_modules to see what is due and what the course covers.",
			promptArg(req, "course_id")),
	), nil
}

func (s *Server) assignmentHelperPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return userPrompt(
		"Get help understanding assignment requirements and creating a plan to complete it",
		fmt.Sprintf("Help me understand and plan for assignment %s in course %s. "+
			"Start with get_assignment_details and break the work into steps that finish before the due date.",
			promptArg(req, "assignment_id"), promptArg(req, "course_id")),
	), nil
}

func (s *Server) deadlineTrackerPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	days := DefaultDeadlineDays
	if raw := req.Params.Arguments["days_ahead"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("days_ahead must be a positive number, got %q", raw)
		}
		days = n
	}
	return userPrompt(
		"Track and prioritize upcoming deadlines across all courses",
		fmt.Sprintf("List every assignment due in the next %d days across all of my courses, ordered by due date. "+
			"Use list_courses, then list_assignments for each course, and flag anything due within 48 hours.", days),
	), nil
}

func (s *Server) courseSummaryPrompt(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return userPrompt(
		"Generate a comprehensive summary of course content, progress, and requirements",
		fmt.Sprintf("Summarize course %s: its modules, the assignments and their due dates, and recent announcements. "+
			"Use get_course_details, list_course_modules, list_assignments and list_announcements.",
			promptArg(req, "course_id")),
	), nil
}
