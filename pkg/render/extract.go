package render

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/Sternrassler/canvas-mcp/pkg/content"
)

// ModuleExtract renders an aggregated module. Failed items become inline
// error sections; the rest of the document is unaffected.
func ModuleExtract(r *content.Result) string {
	if len(r.Blocks) == 0 {
		return fmt.Sprintf("## No content found in module %s", r.ModuleID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	fmt.Fprintf(&b, "**Course ID:** %s\n", r.CourseID)
	if r.ModuleName != "" {
		fmt.Fprintf(&b, "**Module Name:** %s\n", r.ModuleName)
		fmt.Fprintf(&b, "**Module ID:** %s\n", r.ModuleID)
	}
	fmt.Fprintf(&b, "**Total Items:** %d\n\n", r.TotalItems)
	b.WriteString("---\n\n")

	for _, block := range r.Blocks {
		b.WriteString(Block(r.CourseID, block))
	}

	b.WriteString("\n\n💡 **Complete Module Content Extracted**\n")
	b.WriteString("This includes all accessible pages, files, assignments, and other resources in this module.")
	return b.String()
}

// Block renders one extracted item followed by a separator.
func Block(courseID string, block content.Block) string {
	item := block.Item
	published := "❌ No"
	if item.Published {
		published = "✅ Yes"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %d. %s\n\n", block.Index, item.Title)
	fmt.Fprintf(&b, "**Type:** %s\n", item.Tag)
	fmt.Fprintf(&b, "**Item ID:** %d\n", item.ID)
	fmt.Fprintf(&b, "**Published:** %s\n\n", published)

	switch {
	case block.Failed():
		fmt.Fprintf(&b, "### ❌ Content Extraction Error:\n\n**Error:** %s\n\n", client.UserMessage(block.Err))
	case block.Page != nil:
		b.WriteString("### 📄 Page Content:\n\n")
		b.WriteString(Page(item.PageSlug, block.Page, block.PageText))
		b.WriteString("\n\n")
	case block.File != nil:
		b.WriteString("### 📁 File Information:\n\n")
		b.WriteString(FileContent(block.File))
		b.WriteString("\n\n")
	case block.Assignment != nil:
		b.WriteString("### 📝 Assignment Details:\n\n")
		b.WriteString(AssignmentDetails(block.Assignment, block.AssignmentText))
		b.WriteString("\n\n")
	default:
		b.WriteString(metadata(item))
	}

	b.WriteString("---\n\n")
	return b.String()
}

func metadata(item content.ItemRef) string {
	contentID := "Not available"
	if item.ContentID != 0 {
		contentID = fmt.Sprint(item.ContentID)
	}

	switch item.Kind {
	case content.KindPage, content.KindFile, content.KindAssignment:
		// fetched kinds without an identifier carry no section
		return ""
	case content.KindExternalURL:
		if item.ExternalURL == "" {
			return ""
		}
		return fmt.Sprintf("### 🔗 External Link:\n\n**URL:** [%s](%s)\n\n", item.Title, item.ExternalURL)
	case content.KindQuiz:
		s := fmt.Sprintf("### 📊 Quiz Information:\n\n**Quiz ID:** %s\n", contentID)
		if item.HTMLURL != "" {
			s += fmt.Sprintf("**Access:** [Take Quiz](%s)\n", item.HTMLURL)
		}
		return s + "\n"
	case content.KindDiscussion:
		s := fmt.Sprintf("### 💬 Discussion Information:\n\n**Discussion ID:** %s\n", contentID)
		if item.HTMLURL != "" {
			s += fmt.Sprintf("**Access:** [Join Discussion](%s)\n", item.HTMLURL)
		}
		return s + "\n"
	default:
		s := fmt.Sprintf("### ℹ️ Content Information:\n\n**Content ID:** %s\n", contentID)
		if item.HTMLURL != "" {
			s += fmt.Sprintf("**Access:** [View Content](%s)\n", item.HTMLURL)
		}
		return s + "\n"
	}
}

// Week renders a resolved week, or the list of modules when nothing matched.
func Week(w *content.WeekResult) string {
	if w.Found {
		return ModuleExtract(w.Result)
	}

	available := make([]string, len(w.Available))
	for i, m := range w.Available {
		available[i] = fmt.Sprintf("%d. %s (ID: %d)", i+1, m.Name, m.ID)
	}

	return fmt.Sprintf(`# Week %[1]s - Not Found

❌ **No module found for Week %[1]s**

**Course ID:** %[2]s
**Searched for:** Week %[1]s

**Available modules:**
%[3]s

💡 **Tip:** Try using `+"`extract_module_content`"+` with a specific module ID from the list above.`,
		w.Token, w.CourseID, strings.Join(available, "\n"))
}

// WeekError renders a failed week lookup.
func WeekError(courseID, token string, err error) string {
	return fmt.Sprintf(`# Week %[1]s Content - Error

❌ **Failed to retrieve Week %[1]s content**

**Error:** %[2]s
**Course ID:** %[3]s

💡 **Troubleshooting:**
1. Verify the course ID is correct
2. Check that Week %[1]s exists in this course
3. Ensure you have access to the course content`, token, client.UserMessage(err), courseID)
}
