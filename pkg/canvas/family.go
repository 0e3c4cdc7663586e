package canvas

import "strings"

// FileFamily is the coarse class of a file's content type.
type FileFamily string

const (
	FamilyDocument     FileFamily = "document"
	FamilyImage        FileFamily = "image"
	FamilyVideo        FileFamily = "video"
	FamilyAudio        FileFamily = "audio"
	FamilyPresentation FileFamily = "presentation"
	FamilySpreadsheet  FileFamily = "spreadsheet"
	FamilyOther        FileFamily = "other"
)

// ClassifyContentType maps a MIME type to its family. The checks run in a
// fixed order because OOXML types all contain "officedocument".
func ClassifyContentType(contentType string) FileFamily {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return FamilyDocument
	case strings.Contains(ct, "image"):
		return FamilyImage
	case strings.Contains(ct, "video"):
		return FamilyVideo
	case strings.Contains(ct, "audio"):
		return FamilyAudio
	case strings.Contains(ct, "powerpoint"), strings.Contains(ct, "presentation"):
		return FamilyPresentation
	case strings.Contains(ct, "excel"), strings.Contains(ct, "spreadsheet"):
		return FamilySpreadsheet
	case strings.Contains(ct, "word"), strings.Contains(ct, "document"):
		return FamilyDocument
	default:
		return FamilyOther
	}
}

// Family returns the file's content family.
func (f *File) Family() FileFamily {
	return ClassifyContentType(f.ContentType)
}
