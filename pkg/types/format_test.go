// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "pdf", want: FormatPDF},
		{in: "DOCX", want: FormatDOCX},
		{in: " pdf ", want: FormatPDF},
		{in: "html", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatMimeTypeAndExtension(t *testing.T) {
	tests := []struct {
		format Format
		mime   string
		ext    string
	}{
		{FormatPDF, "application/pdf", "pdf"},
		{FormatDOCX, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx"},
		{FormatHTML, "text/html", "html"},
		{FormatMarkdown, "text/markdown", "md"},
		{FormatLaTeX, "application/x-latex", "tex"},
		{FormatPlain, "text/plain", "txt"},
		{Format("epub"), "application/octet-stream", "epub"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			assert.Equal(t, tt.mime, tt.format.MimeType())
			assert.Equal(t, tt.ext, tt.format.Extension())
		})
	}
}

func TestOutputFileName(t *testing.T) {
	tests := []struct {
		original string
		format   Format
		want     string
	}{
		{"note.md", FormatPDF, "note.pdf"},
		{"report.v2.markdown", FormatDOCX, "report.v2.docx"},
		{"README", FormatPDF, "README.pdf"},
		{".hidden", FormatPDF, ".hidden.pdf"},
		{"", FormatDOCX, "document.docx"},
	}
	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputFileName(tt.original, tt.format))
		})
	}
}

func TestItemIsError(t *testing.T) {
	assert.True(t, Item{JSON: map[string]any{"error": "boom"}, Binary: map[string]BinaryData{}}.IsError())
	assert.False(t, Item{JSON: map[string]any{"title": "x"}}.IsError())
	assert.False(t, Item{
		JSON:   map[string]any{"error": "kept from input"},
		Binary: map[string]BinaryData{"data": {Data: []byte("x")}},
	}.IsError())
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.WithDefaults()
	assert.Equal(t, DefaultBinary, cfg.Converter.Binary)
	assert.Equal(t, "none", cfg.Converter.Container)
	assert.Equal(t, DefaultImage, cfg.Converter.Image)
	assert.Equal(t, DefaultWorkspaceRoot, cfg.Workspace.Root)
	assert.Equal(t, DefaultBinaryProperty, cfg.Job.BinaryProperty)
	assert.Equal(t, FormatPDF, cfg.Job.Format)
	assert.Equal(t, DefaultHistoryPath, cfg.History.Path)
	assert.Empty(t, cfg.Converter.Template)

	custom := Config{Job: JobConfig{Format: FormatDOCX, BinaryProperty: "doc"}}.WithDefaults()
	assert.Equal(t, FormatDOCX, custom.Job.Format)
	assert.Equal(t, "doc", custom.Job.BinaryProperty)
}
