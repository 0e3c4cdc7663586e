// Package canvas provides typed operations over the Canvas LMS REST API.
package canvas

import (
	"context"
	"net/url"
	"sort"

	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/Sternrassler/canvas-mcp/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// API exposes one method per Canvas resource. Identifiers are passed
// through as given and path-escaped.
type API struct {
	client *client.Client
	retry  client.RetryPolicy
	logger zerolog.Logger
}

// NewAPI wraps a client. retry applies to every call; use
// client.DefaultRetryPolicy(1) to disable retries.
func NewAPI(c *client.Client, retry client.RetryPolicy) *API {
	return &API{
		client: c,
		retry:  retry,
		logger: log.With().Str("component", "canvas-api").Logger(),
	}
}

// Client returns the underlying HTTP client.
func (a *API) Client() *client.Client {
	return a.client
}

// Stats returns the request counter and last admission time.
func (a *API) Stats() ratelimit.Stats {
	return a.client.Stats()
}

func list[T any](ctx context.Context, a *API, path string, params url.Values) ([]T, error) {
	var out []T
	err := a.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = client.ListAll[T](ctx, a.client, path, params)
		return err
	})
	return out, err
}

func (a *API) get(ctx context.Context, path string, params url.Values, out any) error {
	return a.retry.Do(ctx, func(ctx context.Context) error {
		return a.client.Get(ctx, path, params, out)
	})
}

// p joins escaped path segments.
func p(segments ...string) string {
	var path string
	for _, s := range segments {
		path += "/" + url.PathEscape(s)
	}
	return path
}

// ListCourses returns the user's active courses in the "available" state.
func (a *API) ListCourses(ctx context.Context) ([]Course, error) {
	courses, err := list[Course](ctx, a, "/courses", url.Values{
		"enrollment_state": {"active"},
		"include[]":        {"total_students", "term"},
	})
	if err != nil {
		return nil, err
	}

	available := courses[:0]
	for _, c := range courses {
		if c.WorkflowState == "available" {
			available = append(available, c)
		}
	}
	return available, nil
}

// GetCourse returns one course with term and student count.
func (a *API) GetCourse(ctx context.Context, courseID string) (*Course, error) {
	var course Course
	err := a.get(ctx, p("courses", courseID), url.Values{
		"include[]": {"total_students", "term", "course_progress"},
	}, &course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// ListModules returns the course modules in server order.
func (a *API) ListModules(ctx context.Context, courseID string) ([]Module, error) {
	return list[Module](ctx, a, p("courses", courseID, "modules"), url.Values{
		"include[]": {"items", "content_details"},
	})
}

// ListModuleItems returns the items of one module in server order.
func (a *API) ListModuleItems(ctx context.Context, courseID, moduleID string) ([]ModuleItem, error) {
	return list[ModuleItem](ctx, a, p("courses", courseID, "modules", moduleID, "items"), url.Values{
		"include[]": {"content_details", "mastery_paths"},
	})
}

// GetPage returns a wiki page by its URL slug.
func (a *API) GetPage(ctx context.Context, courseID, slug string) (*Page, error) {
	var page Page
	if err := a.get(ctx, p("courses", courseID, "pages", slug), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAssignments returns assignments ordered by due date, undated last.
func (a *API) ListAssignments(ctx context.Context, courseID string) ([]Assignment, error) {
	assignments, err := list[Assignment](ctx, a, p("courses", courseID, "assignments"), url.Values{
		"include[]": {"assignment_group", "rubric", "submission"},
		"order_by":  {"due_at"},
	})
	if err != nil {
		return nil, err
	}
	SortByDueDate(assignments)
	return assignments, nil
}

// SortByDueDate orders assignments by due date; undated ones keep their
// relative order at the end.
func SortByDueDate(assignments []Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		di, dj := assignments[i].DueAt, assignments[j].DueAt
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return di.Before(*dj)
		}
	})
}

// GetAssignment returns one assignment with group and submission.
func (a *API) GetAssignment(ctx context.Context, courseID, assignmentID string) (*Assignment, error) {
	var assignment Assignment
	err := a.get(ctx, p("courses", courseID, "assignments", assignmentID), url.Values{
		"include[]": {"assignment_group", "rubric", "submission"},
	}, &assignment)
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListSubmissions returns all submissions of an assignment.
func (a *API) ListSubmissions(ctx context.Context, courseID, assignmentID string) ([]Submission, error) {
	return list[Submission](ctx, a, p("courses", courseID, "assignments", assignmentID, "submissions"), url.Values{
		"include[]": {"assignment", "course", "user"},
	})
}

// ListAnnouncements returns the course announcements, most recent activity first.
func (a *API) ListAnnouncements(ctx context.Context, courseID string) ([]DiscussionTopic, error) {
	return list[DiscussionTopic](ctx, a, p("courses", courseID, "discussion_topics"), url.Values{
		"only_announcements": {"true"},
		"order_by":           {"recent_activity"},
	})
}

// GetAnnouncement returns one announcement.
func (a *API) GetAnnouncement(ctx context.Context, courseID, announcementID string) (*DiscussionTopic, error) {
	var topic DiscussionTopic
	if err := a.get(ctx, p("courses", courseID, "discussion_topics", announcementID), nil, &topic); err != nil {
		return nil, err
	}
	return &topic, nil
}

// ListFiles returns the course files, most recently updated first.
func (a *API) ListFiles(ctx context.Context, courseID string) ([]File, error) {
	return list[File](ctx, a, p("courses", courseID, "files"), url.Values{
		"sort":  {"updated_at"},
		"order": {"desc"},
	})
}

// GetFile returns file metadata.
func (a *API) GetFile(ctx context.Context, fileID string) (*File, error) {
	var file File
	if err := a.get(ctx, p("files", fileID), nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// GetMediaObject returns a media object.
func (a *API) GetMediaObject(ctx context.Context, mediaID string) (*MediaObject, error) {
	var media MediaObject
	if err := a.get(ctx, p("media_objects", mediaID), nil, &media); err != nil {
		return nil, err
	}
	return &media, nil
}

// ListMediaTracks returns the caption tracks of a media object.
func (a *API) ListMediaTracks(ctx context.Context, mediaID string) ([]MediaTrack, error) {
	var tracks []MediaTrack
	if err := a.get(ctx, p("media_objects", mediaID, "media_tracks"), nil, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// GetProfile returns the authenticated user's profile.
func (a *API) GetProfile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := a.get(ctx, "/users/self/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
