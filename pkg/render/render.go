// Package render formats Canvas data as markdown for tool results.
package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/content"
	"github.com/Sternrassler/canvas-mcp/pkg/htmltext"
	"github.com/Sternrassler/canvas-mcp/pkg/ratelimit"
)

const (
	dateLayout = "Jan 2, 2006"
	timeLayout = "3:04 PM"
)

// Date formats t as "Jan 2, 2006", or fallback when t is nil.
func Date(t *time.Time, fallback string) string {
	if t == nil || t.IsZero() {
		return fallback
	}
	return t.Format(dateLayout)
}

// Truncate shortens s to n runes and appends "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// JSON renders v as indented JSON.
func JSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// lines joins the non-empty entries with newlines.
func lines(entries ...string) string {
	kept := entries[:0]
	for _, e := range entries {
		if strings.TrimSpace(e) != "" {
			kept = append(kept, e)
		}
	}
	return strings.Join(kept, "\n")
}

// Courses renders the course list.
func Courses(courses []canvas.Course) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Your Canvas Courses (%d courses found)\n\n", len(courses))

	for i, c := range courses {
		if i > 0 {
			b.WriteString("\n\n")
		}
		term := ""
		if c.Term != nil {
			term = fmt.Sprintf(" (%s)", c.Term.Name)
		}
		students := ""
		if c.TotalStudents > 0 {
			students = fmt.Sprintf(" - %d students", c.TotalStudents)
		}
		fmt.Fprintf(&b, "%d. **%s** (%s)%s\n", i+1, c.Name, c.CourseCode, term)
		fmt.Fprintf(&b, "   - Course ID: %d\n", c.ID)
		fmt.Fprintf(&b, "   - Status: %s%s\n", c.WorkflowState, students)
		fmt.Fprintf(&b, "   - Time Zone: %s", c.TimeZone)
	}
	return b.String()
}

// CourseDetails renders one course.
func CourseDetails(c *canvas.Course) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s)\n\n", c.Name, c.CourseCode)
	fmt.Fprintf(&b, "**Course ID:** %d\n", c.ID)
	fmt.Fprintf(&b, "**Status:** %s\n", c.WorkflowState)
	if c.Term != nil {
		fmt.Fprintf(&b, "**Term:** %s\n", c.Term.Name)
	}
	if c.StartAt != nil {
		fmt.Fprintf(&b, "**Start Date:** %s\n", Date(c.StartAt, ""))
	}
	if c.EndAt != nil {
		fmt.Fprintf(&b, "**End Date:** %s\n", Date(c.EndAt, ""))
	}
	if c.TotalStudents > 0 {
		fmt.Fprintf(&b, "**Total Students:** %d\n", c.TotalStudents)
	}
	fmt.Fprintf(&b, "**Time Zone:** %s\n", c.TimeZone)
	fmt.Fprintf(&b, "**Default View:** %s\n", c.DefaultView)
	fmt.Fprintf(&b, "**License:** %s\n\n", c.License)

	calendar := "Not available"
	if c.Calendar != nil && c.Calendar.ICS != "" {
		calendar = c.Calendar.ICS
	}
	fmt.Fprintf(&b, "**Calendar Feed:** [View Calendar](%s)", calendar)
	return b.String()
}

// Modules renders the modules of a course in position order.
func Modules(courseID string, modules []canvas.Module) string {
	if len(modules) == 0 {
		return "## No modules found for this course."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Course Modules for Course %s (%d modules)\n\n", courseID, len(modules))

	for _, m := range modules {
		var prereq string
		if len(m.PrerequisiteModuleIDs) > 0 {
			ids := make([]string, len(m.PrerequisiteModuleIDs))
			for i, id := range m.PrerequisiteModuleIDs {
				ids[i] = strconv.FormatInt(id, 10)
			}
			prereq = "**Prerequisites:** Module IDs " + strings.Join(ids, ", ")
		}

		var status, items, unlock, sequential string
		if m.State != "" {
			status = "**Status:** " + m.State
		}
		if m.ItemsCount > 0 {
			items = fmt.Sprintf("**Items:** %d", m.ItemsCount)
		}
		if m.UnlockAt != nil {
			unlock = "**Unlocks:** " + Date(m.UnlockAt, "")
		}
		if m.RequireSequentialProgress {
			sequential = "**Sequential Progress Required**"
		}

		fmt.Fprintf(&b, "### %d. %s\n\n", m.Position, m.Name)
		b.WriteString(lines(
			fmt.Sprintf("**Module ID:** %d", m.ID),
			status, items, unlock, sequential, prereq,
		))
		b.WriteString("\n\n---\n")
	}

	b.WriteString("\n💡 **Tip:** Use the \"get_module_items\" tool with a specific module ID to see detailed content within each module.")
	return b.String()
}

// ModuleItems renders the sorted items of a module with page previews.
func ModuleItems(moduleID string, items []canvas.ModuleItem, previews map[int64]content.Preview) string {
	if len(items) == 0 {
		return "## No items found in this module."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Module %s - Course Items (%d items)\n\n", moduleID, len(items))

	for _, item := range items {
		indent := strings.Repeat("  ", item.Indent)

		status := "❌ Not available"
		switch {
		case item.HTMLURL != "":
			status = "✅ Accessible"
		case item.Published:
			status = "✅ Published"
		}

		info := itemInfo(item)
		if p, ok := previews[item.ID]; ok {
			switch {
			case p.Err != nil:
				info += "\n" + indent + "**Preview:** Content available - use get_page_content tool to extract"
			case p.Text != "":
				text := p.Text
				if p.Truncated {
					text += "..."
				}
				info += "\n" + indent + "**Preview:** " + text
			}
		}

		var completion string
		if req := item.CompletionRequirement; req != nil {
			state := "⏳ Not completed"
			if req.Completed {
				state = "✅ Completed"
			}
			completion = fmt.Sprintf("**Completion:** %s - %s", req.Type, state)
			if req.MinScore != nil && *req.MinScore > 0 {
				completion += fmt.Sprintf(" (Min score: %s)", number(*req.MinScore))
			}
		}

		var link string
		if item.HTMLURL != "" {
			link = fmt.Sprintf("**Link:** [View Content](%s)", item.HTMLURL)
		}

		itemType := item.Type
		if itemType == "" {
			itemType = "Unknown"
		}

		fmt.Fprintf(&b, "%s### %d. %s\n\n", indent, item.Position, item.Title)
		for _, line := range []string{
			"**Type:** " + itemType,
			fmt.Sprintf("**Item ID:** %d", item.ID),
			"**Status:** " + status,
			info, completion, link,
		} {
			if line != "" {
				b.WriteString(indent + line + "\n")
			}
		}
		b.WriteString("\n" + indent + "---\n\n")
	}

	b.WriteString("💡 **Tip:** Click the \"View Content\" links to access individual items, or use specific tools like \"get_assignment_details\" with the content IDs shown above.")
	return b.String()
}

func itemInfo(item canvas.ModuleItem) string {
	switch content.ParseItemKind(item.Type) {
	case content.KindPage:
		if item.PageURL != "" {
			return "**Page URL:** " + item.PageURL
		}
	case content.KindAssignment:
		if item.ContentID != 0 {
			return fmt.Sprintf("**Assignment ID:** %d", item.ContentID)
		}
	case content.KindQuiz:
		if item.ContentID != 0 {
			return fmt.Sprintf("**Quiz ID:** %d", item.ContentID)
		}
	case content.KindDiscussion:
		if item.ContentID != 0 {
			return fmt.Sprintf("**Discussion ID:** %d", item.ContentID)
		}
	case content.KindExternalURL:
		if item.ExternalURL != "" {
			return "**External URL:** " + item.ExternalURL
		}
	case content.KindFile:
		if item.ContentID != 0 {
			return fmt.Sprintf("**File ID:** %d", item.ContentID)
		}
	default:
		if item.ContentID != 0 {
			return fmt.Sprintf("**Content ID:** %d", item.ContentID)
		}
	}
	return ""
}

// Page renders a wiki page; text is the converted body.
func Page(slug string, page *canvas.Page, text string) string {
	status := "❌ Unpublished"
	if page.Published {
		status = "✅ Published"
	}
	pageID := strconv.FormatInt(page.PageID, 10)
	if page.PageID == 0 {
		pageID = page.URL
	}
	original := page.HTMLURL
	if original == "" {
		original = "Not available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", page.Title)
	fmt.Fprintf(&b, "**Page URL:** %s\n", slug)
	fmt.Fprintf(&b, "**Status:** %s\n", status)
	fmt.Fprintf(&b, "**Last Updated:** %s\n", Date(page.UpdatedAt, "Unknown"))
	fmt.Fprintf(&b, "**Page ID:** %s\n\n", pageID)
	b.WriteString("---\n\n## Content\n\n")
	b.WriteString(text)
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "**Raw HTML Content Available:** %d characters\n", len(page.Body))
	fmt.Fprintf(&b, "**Original URL:** %s", original)
	return b.String()
}

func dueLine(a *canvas.Assignment) string {
	if a.DueAt == nil {
		return "**Due:** No due date"
	}
	return fmt.Sprintf("**Due:** %s at %s", a.DueAt.Format(dateLayout), a.DueAt.Format(timeLayout))
}

func pointsLine(a *canvas.Assignment) string {
	if a.PointsPossible == 0 {
		return "**Points:** Not specified"
	}
	return "**Points:** " + number(a.PointsPossible)
}

// Assignments renders the assignment list in the given order.
func Assignments(courseID string, assignments []canvas.Assignment) string {
	if len(assignments) == 0 {
		return "## No assignments found for this course."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Assignments for Course %s (%d assignments)\n\n", courseID, len(assignments))

	for i := range assignments {
		a := &assignments[i]
		var group string
		if a.AssignmentGroup != nil {
			group = "**Group:** " + a.AssignmentGroup.Name
		}
		description := "No description provided"
		if a.Description != "" {
			description = Truncate(htmltext.Text(a.Description), 200)
		}

		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, a.Name)
		b.WriteString(lines(dueLine(a), pointsLine(a), group, fmt.Sprintf("**Assignment ID:** %d", a.ID)))
		fmt.Fprintf(&b, "\n\n**Description:** %s\n\n---\n", description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// AssignmentDetails renders one assignment; text is the converted description.
func AssignmentDetails(a *canvas.Assignment, text string) string {
	if strings.TrimSpace(text) == "" {
		text = "No description provided"
	}
	var group, types string
	if a.AssignmentGroup != nil {
		group = "**Assignment Group:** " + a.AssignmentGroup.Name
	}
	if len(a.SubmissionTypes) > 0 {
		types = "**Submission Types:** " + strings.Join(a.SubmissionTypes, ", ")
	}
	attempts := "**Allowed Attempts:** Unlimited"
	if a.AllowedAttempts > 0 {
		attempts = fmt.Sprintf("**Allowed Attempts:** %d", a.AllowedAttempts)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Name)
	b.WriteString(lines(
		fmt.Sprintf("**Assignment ID:** %d", a.ID),
		dueLine(a),
		pointsLine(a),
		"**Grading Type:** "+a.GradingType,
		group, types, attempts,
	))
	b.WriteString("\n\n---\n\n## Description\n\n")
	b.WriteString(text)
	b.WriteString("\n\n---\n\n## Assignment Details\n\n")
	fmt.Fprintf(&b, "**Created:** %s\n", Date(a.CreatedAt, "Unknown"))
	fmt.Fprintf(&b, "**Updated:** %s\n", Date(a.UpdatedAt, "Unknown"))
	fmt.Fprintf(&b, "**Course ID:** %d\n", a.CourseID)
	fmt.Fprintf(&b, "**HTML URL:** [View Assignment](%s)\n\n", a.HTMLURL)
	b.WriteString("💡 **Tip:** Use the HTML URL above to access the assignment directly in Canvas.")
	return b.String()
}

var familyNotes = map[canvas.FileFamily][2]string{
	canvas.FamilyDocument:     {"📝 Document File", "Document requires download for full formatting."},
	canvas.FamilyImage:        {"🖼️ Image File", "Image can be viewed directly through the URL below."},
	canvas.FamilyVideo:        {"🎥 Video File", "Video can be streamed through Canvas or downloaded."},
	canvas.FamilyAudio:        {"🎵 Audio File", "Audio can be played through Canvas or downloaded."},
	canvas.FamilyPresentation: {"📊 Presentation File", "Presentation requires download to view fully."},
	canvas.FamilySpreadsheet:  {"📈 Spreadsheet File", "Spreadsheet requires download for full functionality."},
	canvas.FamilyOther:        {"📁 File", "Download required to access content."},
}

// FileAccess returns the label and access note for a file.
func FileAccess(f *canvas.File) (label, note string) {
	if strings.Contains(strings.ToLower(f.ContentType), "pdf") {
		return "📄 PDF Document", "PDF content requires download to view. Use the download URL below."
	}
	n := familyNotes[f.Family()]
	return n[0], n[1]
}

// FileContent renders file metadata with an access note.
func FileContent(f *canvas.File) string {
	size := "Unknown size"
	if f.Size > 0 {
		size = fmt.Sprintf("%.2f MB", float64(f.Size)/1024/1024)
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "Unknown"
	}
	lock := "🔓 **File is accessible**"
	if f.Locked {
		lock = "🔒 **File is locked**"
	}
	hidden := "👁️ **File is visible**"
	if f.Hidden {
		hidden = "🙈 **File is hidden**"
	}
	label, note := FileAccess(f)

	var thumb, modified string
	if f.ThumbnailURL != "" {
		thumb = fmt.Sprintf("**Thumbnail:** [View Thumbnail](%s)", f.ThumbnailURL)
	}
	if f.ModifiedAt != nil {
		modified = "**Last Modified:** " + Date(f.ModifiedAt, "")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", f.DisplayName, label)
	b.WriteString(lines(
		fmt.Sprintf("**File ID:** %d", f.ID),
		"**Filename:** "+f.Filename,
		"**Content Type:** "+contentType,
		"**Size:** "+size,
		"**Uploaded:** "+Date(f.CreatedAt, "Unknown"),
		lock, hidden,
	))
	b.WriteString("\n\n---\n\n## Access Information\n\n")
	fmt.Fprintf(&b, "**Note:** %s\n\n", note)
	b.WriteString(lines(fmt.Sprintf("**Download URL:** [Download File](%s)", f.URL), thumb))
	b.WriteString("\n\n---\n\n## File Details\n\n")
	b.WriteString(lines(
		fmt.Sprintf("**Folder ID:** %d", f.FolderID),
		"**UUID:** "+f.UUID,
		"**MIME Class:** "+f.MimeClass,
		modified,
	))
	b.WriteString("\n\n💡 **Tip:** Use the download URL above to access the file content directly.")
	return b.String()
}

// Media renders a media object and its caption tracks.
func Media(mediaID string, m *canvas.MediaObject, tracks []canvas.MediaTrack) string {
	var b strings.Builder
	b.WriteString("🎥 Media Content\n\n")
	if m.Title != "" {
		fmt.Fprintf(&b, "**Title:** %s\n", m.Title)
	}
	fmt.Fprintf(&b, "**Media ID:** %s\n", mediaID)
	if m.MediaType != "" {
		icon := "🎵"
		if m.MediaType == "video" {
			icon = "🎥"
		}
		fmt.Fprintf(&b, "**Type:** %s %s\n", icon, m.MediaType)
	}
	if m.Duration > 0 {
		secs := int(m.Duration)
		fmt.Fprintf(&b, "**Duration:** %d:%02d\n", secs/60, secs%60)
	}

	b.WriteString("\n---\n\n## Available Sources\n\n")
	if len(m.MediaSources) == 0 {
		b.WriteString("No direct media sources available through API.\n\n")
	}
	for i, src := range m.MediaSources {
		fmt.Fprintf(&b, "### Source %d\n", i+1)
		fmt.Fprintf(&b, "**Quality:** %sx%s\n", orUnknown(string(src.Width)), orUnknown(string(src.Height)))
		fmt.Fprintf(&b, "**Format:** %s\n", orUnknown(src.ContentType))
		if src.URL != "" {
			fmt.Fprintf(&b, "**Stream URL:** [Play Media](%s)\n", src.URL)
		}
		b.WriteString("\n")
	}

	if len(tracks) > 0 {
		b.WriteString("## Available Captions/Subtitles\n\n")
		for _, t := range tracks {
			fmt.Fprintf(&b, "**Language:** %s\n", orUnknown(t.Locale))
			fmt.Fprintf(&b, "**Kind:** %s\n", orUnknown(t.Kind))
			if t.Content != "" {
				fmt.Fprintf(&b, "**Content Available:** Yes (%d characters)\n", len(t.Content))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n💡 **Note:** Media content may require Canvas login to access.")
	return b.String()
}

// MediaError renders the fallback document for an unreachable media object.
func MediaError(mediaID, message string) string {
	return fmt.Sprintf(`# Media Content (ID: %s)

❌ **Unable to retrieve media information**

**Error:** %s

**Media ID:** %s

💡 **Note:** This media object may be restricted or the ID may be incorrect.`, mediaID, message, mediaID)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// Stats renders the request statistics.
func Stats(s ratelimit.Stats) string {
	last := "never"
	if !s.LastRequestTime.IsZero() {
		last = s.LastRequestTime.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("## Request Statistics\n\n**Request Count:** %d\n**Last Request Time:** %s", s.RequestCount, last)
}
