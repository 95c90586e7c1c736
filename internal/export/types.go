// Package export renders published drafts to PDF and DOCX.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Draft is the assembled view of a published draft handed to the renderers.
type Draft struct {
	Name        string
	Title       string
	Authors     []string
	Group       string
	Revision    string
	RFCNumber   *int
	PublishedAt time.Time
	Abstract    string
	Body        string
	Comments    []Comment
}

// Comment is one discussion entry included in an export, with its replies.
type Comment struct {
	Author    string
	Body      string
	CreatedAt time.Time
	Replies   []Comment
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
