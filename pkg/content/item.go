package content

import (
	"strings"

	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
)

// ItemKind is the closed set of module item variants.
type ItemKind int

const (
	KindOther ItemKind = iota
	KindPage
	KindFile
	KindAssignment
	KindQuiz
	KindDiscussion
	KindExternalURL
)

var kindNames = map[ItemKind]string{
	KindOther:       "Other",
	KindPage:        "Page",
	KindFile:        "File",
	KindAssignment:  "Assignment",
	KindQuiz:        "Quiz",
	KindDiscussion:  "Discussion",
	KindExternalURL: "ExternalUrl",
}

// ParseItemKind maps a Canvas item type tag to its kind. Unknown tags
// (SubHeader, ExternalTool, anything new) are KindOther.
func ParseItemKind(tag string) ItemKind {
	for kind, name := range kindNames {
		if kind != KindOther && strings.EqualFold(tag, name) {
			return kind
		}
	}
	return KindOther
}

func (k ItemKind) String() string {
	return kindNames[k]
}

// ItemRef is the routing metadata of one module item.
type ItemRef struct {
	ID          int64
	Title       string
	Position    int
	Indent      int
	Kind        ItemKind
	Tag         string // upstream type string, kept for display
	ContentID   int64
	PageSlug    string
	ExternalURL string
	HTMLURL     string
	Published   bool
}

// RefFromItem converts an API module item.
func RefFromItem(item canvas.ModuleItem) ItemRef {
	return ItemRef{
		ID:          item.ID,
		Title:       item.Title,
		Position:    item.Position,
		Indent:      item.Indent,
		Kind:        ParseItemKind(item.Type),
		Tag:         item.Type,
		ContentID:   item.ContentID,
		PageSlug:    item.PageURL,
		ExternalURL: item.ExternalURL,
		HTMLURL:     item.HTMLURL,
		Published:   item.Published,
	}
}

// Block is the outcome of extracting one item. Exactly one of the payload
// fields is set for fetched kinds; Err holds a captured failure.
type Block struct {
	// Index is the 1-based place in the sorted item list.
	Index int
	Item  ItemRef

	Page     *canvas.Page
	PageText string

	File *canvas.File

	Assignment     *canvas.Assignment
	AssignmentText string

	Err error
}

// Failed reports whether extraction of the item failed.
func (b Block) Failed() bool {
	return b.Err != nil
}

// MetadataOnly reports whether the block carries no fetched payload.
func (b Block) MetadataOnly() bool {
	return b.Err == nil && b.Page == nil && b.File == nil && b.Assignment == nil
}

// Result is an aggregated module extract.
type Result struct {
	CourseID   string
	ModuleID   string
	Title      string
	ModuleName string
	TotalItems int
	Blocks     []Block
}

// Failures returns the number of failed blocks.
func (r *Result) Failures() int {
	n := 0
	for _, b := range r.Blocks {
		if b.Failed() {
			n++
		}
	}
	return n
}
