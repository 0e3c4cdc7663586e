package canvas

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Course is a Canvas course as returned by /courses.
type Course struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	CourseCode       string     `json:"course_code"`
	WorkflowState    string     `json:"workflow_state"`
	AccountID        int64      `json:"account_id"`
	StartAt          *time.Time `json:"start_at"`
	EndAt            *time.Time `json:"end_at"`
	EnrollmentTermID int64      `json:"enrollment_term_id"`
	TotalStudents    int        `json:"total_students"`
	TimeZone         string     `json:"time_zone"`
	DefaultView      string     `json:"default_view"`
	License          string     `json:"license"`
	Term             *Term      `json:"term"`
	Calendar         *Calendar  `json:"calendar"`
}

// Term is the enrollment term embedded with include[]=term.
type Term struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	StartAt       *time.Time `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
	WorkflowState string     `json:"workflow_state"`
}

// Calendar holds the course iCal feed.
type Calendar struct {
	ICS string `json:"ics"`
}

// Module is a course module.
type Module struct {
	ID                        int64        `json:"id"`
	Name                      string       `json:"name"`
	Position                  int          `json:"position"`
	UnlockAt                  *time.Time   `json:"unlock_at"`
	RequireSequentialProgress bool         `json:"require_sequential_progress"`
	PrerequisiteModuleIDs     []int64      `json:"prerequisite_module_ids"`
	ItemsCount                int          `json:"items_count"`
	ItemsURL                  string       `json:"items_url"`
	Items                     []ModuleItem `json:"items"`
	State                     string       `json:"state"`
	CompletedAt               *time.Time   `json:"completed_at"`
	Published                 bool         `json:"published"`
}

// ModuleItem is one entry of a module.
type ModuleItem struct {
	ID                    int64                  `json:"id"`
	ModuleID              int64                  `json:"module_id"`
	Title                 string                 `json:"title"`
	Position              int                    `json:"position"`
	Indent                int                    `json:"indent"`
	Type                  string                 `json:"type"`
	ContentID             int64                  `json:"content_id"`
	HTMLURL               string                 `json:"html_url"`
	URL                   string                 `json:"url"`
	PageURL               string                 `json:"page_url"`
	ExternalURL           string                 `json:"external_url"`
	NewTab                bool                   `json:"new_tab"`
	CompletionRequirement *CompletionRequirement `json:"completion_requirement"`
	Published             bool                   `json:"published"`
}

// CompletionRequirement describes what completes a module item.
type CompletionRequirement struct {
	Type      string   `json:"type"`
	MinScore  *float64 `json:"min_score"`
	Completed bool     `json:"completed"`
}

// Page is a wiki page.
type Page struct {
	PageID    int64      `json:"page_id"`
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Published bool       `json:"published"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	HTMLURL   string     `json:"html_url"`
}

// Assignment is a course assignment.
type Assignment struct {
	ID                int64            `json:"id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	DueAt             *time.Time       `json:"due_at"`
	UnlockAt          *time.Time       `json:"unlock_at"`
	LockAt            *time.Time       `json:"lock_at"`
	PointsPossible    float64          `json:"points_possible"`
	GradingType       string           `json:"grading_type"`
	AssignmentGroupID int64            `json:"assignment_group_id"`
	CreatedAt         *time.Time       `json:"created_at"`
	UpdatedAt         *time.Time       `json:"updated_at"`
	Position          int              `json:"position"`
	AllowedAttempts   int              `json:"allowed_attempts"`
	CourseID          int64            `json:"course_id"`
	HTMLURL           string           `json:"html_url"`
	SubmissionTypes   []string         `json:"submission_types"`
	AssignmentGroup   *AssignmentGroup `json:"assignment_group"`
	Submission        *Submission      `json:"submission"`
	Published         bool             `json:"published"`
}

// AssignmentGroup is embedded with include[]=assignment_group.
type AssignmentGroup struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Position    int     `json:"position"`
	GroupWeight float64 `json:"group_weight"`
}

// Submission is a student submission for an assignment.
type Submission struct {
	ID            int64       `json:"id"`
	UserID        int64       `json:"user_id"`
	AssignmentID  int64       `json:"assignment_id"`
	Body          string      `json:"body,omitempty"`
	URL           string      `json:"url,omitempty"`
	Grade         *string     `json:"grade"`
	Score         *float64    `json:"score"`
	SubmittedAt   *time.Time  `json:"submitted_at"`
	GradedAt      *time.Time  `json:"graded_at"`
	Attempt       *int        `json:"attempt"`
	WorkflowState string      `json:"workflow_state"`
	Excused       *bool       `json:"excused"`
	Late          bool        `json:"late"`
	Missing       bool        `json:"missing"`
	SecondsLate   float64     `json:"seconds_late"`
	PreviewURL    string      `json:"preview_url,omitempty"`
	Assignment    *Assignment `json:"assignment,omitempty"`
	Course        *Course     `json:"course,omitempty"`
	User          *User       `json:"user,omitempty"`
}

// User is the short user record embedded in submissions.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
}

// DiscussionTopic is an announcement or discussion.
type DiscussionTopic struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	HTMLURL        string     `json:"html_url"`
	PostedAt       *time.Time `json:"posted_at"`
	DelayedPostAt  *time.Time `json:"delayed_post_at"`
	Author         *Author    `json:"author,omitempty"`
	ReadState      string     `json:"read_state"`
	UnreadCount    int        `json:"unread_count"`
	DiscussionType string     `json:"discussion_type"`
	Published      bool       `json:"published"`
}

// Author of a discussion topic.
type Author struct {
	ID             int64  `json:"id"`
	DisplayName    string `json:"display_name"`
	AvatarImageURL string `json:"avatar_image_url,omitempty"`
	HTMLURL        string `json:"html_url,omitempty"`
}

// File is a course file. Note the hyphenated content-type key.
type File struct {
	ID            int64      `json:"id"`
	UUID          string     `json:"uuid"`
	FolderID      int64      `json:"folder_id"`
	DisplayName   string     `json:"display_name"`
	Filename      string     `json:"filename"`
	ContentType   string     `json:"content-type"`
	URL           string     `json:"url"`
	Size          int64      `json:"size"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
	ModifiedAt    *time.Time `json:"modified_at"`
	Locked        bool       `json:"locked"`
	Hidden        bool       `json:"hidden"`
	LockedForUser bool       `json:"locked_for_user"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	MimeClass     string     `json:"mime_class"`
	MediaEntryID  string     `json:"media_entry_id,omitempty"`
}

// MediaObject is a Canvas media (Kaltura/Studio) object.
type MediaObject struct {
	MediaID      string        `json:"media_id"`
	Title        string        `json:"title"`
	MediaType    string        `json:"media_type"`
	Duration     float64       `json:"duration"`
	MediaSources []MediaSource `json:"media_sources"`
}

// MediaSource is one playable rendition of a media object.
type MediaSource struct {
	Width       Flex   `json:"width"`
	Height      Flex   `json:"height"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// MediaTrack is a caption or subtitle track.
type MediaTrack struct {
	ID      int64  `json:"id"`
	Locale  string `json:"locale"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Profile is the authenticated user's profile.
type Profile struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ShortName    string `json:"short_name"`
	SortableName string `json:"sortable_name"`
	PrimaryEmail string `json:"primary_email,omitempty"`
	LoginID      string `json:"login_id,omitempty"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	TimeZone     string `json:"time_zone,omitempty"`
	Locale       string `json:"locale,omitempty"`
}

// Flex decodes a value Canvas sends either as a JSON string or a number.
type Flex string

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Flex(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = Flex(n.String())
	return nil
}

// Int returns the numeric value, or 0 when absent or not numeric.
func (f Flex) Int() int {
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return 0
	}
	return n
}
