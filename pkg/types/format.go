// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is returned by ParseFormat for targets other than pdf and docx.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Format identifies a pandoc output format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatLaTeX    Format = "latex"
	FormatPlain    Format = "plain"
)

const (
	defaultMimeType = "application/octet-stream"
	defaultBaseName = "document"
)

var mimeTypes = map[Format]string{
	FormatPDF:      "application/pdf",
	FormatDOCX:     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	FormatHTML:     "text/html",
	FormatMarkdown: "text/markdown",
	FormatLaTeX:    "application/x-latex",
	FormatPlain:    "text/plain",
}

var extensions = map[Format]string{
	FormatPDF:      "pdf",
	FormatDOCX:     "docx",
	FormatHTML:     "html",
	FormatMarkdown: "md",
	FormatLaTeX:    "tex",
	FormatPlain:    "txt",
}

// ParseFormat validates a conversion target. Only pdf and docx are accepted.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatPDF, FormatDOCX:
		return f, nil
	}
	return "", fmt.Errorf("%w %q: use pdf or docx", ErrUnsupportedFormat, s)
}

// MimeType returns the media type for the format, or
// application/octet-stream when the format is unknown.
func (f Format) MimeType() string {
	if m, ok := mimeTypes[f]; ok {
		return m
	}
	return defaultMimeType
}

// Extension returns the file extension (without dot) for the format. Unknown
// formats use their own name.
func (f Format) Extension() string {
	if e, ok := extensions[f]; ok {
		return e
	}
	return string(f)
}

// OutputFileName replaces the last extension of original with the extension
// of f. An empty original name becomes "document".
func OutputFileName(original string, f Format) string {
	if original == "" {
		original = defaultBaseName
	}
	base := original
	if i := strings.LastIndex(original, "."); i > 0 {
		base = original[:i]
	}
	return base + "." + f.Extension()
}
