// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package markdown inspects Markdown sources before they are handed to
// pandoc: YAML front matter, headings and a word count.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"go.yaml.in/yaml/v3"
)

// Heading is one ATX or setext heading.
type Heading struct {
	Level int    `json:"level" yaml:"level"`
	Text  string `json:"text" yaml:"text"`
}

// Info summarizes a Markdown document.
type Info struct {
	// Title is the front matter title, or else the first level-1 heading.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// HasFrontMatterTitle reports whether the front matter sets a title.
	HasFrontMatterTitle bool `json:"has_front_matter_title" yaml:"has_front_matter_title"`

	Headings []Heading `json:"headings,omitempty" yaml:"headings,omitempty"`
	Words    int       `json:"words" yaml:"words"`
}

var parser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// Inspect parses src. A malformed front matter block is reported as an error
// alongside the Info computed from the body.
func Inspect(src []byte) (Info, error) {
	fm, body := splitFrontMatter(src)

	var info Info
	var fmErr error
	if fm != nil {
		var meta map[string]any
		if err := yaml.Unmarshal(fm, &meta); err != nil {
			fmErr = fmt.Errorf("parsing front matter: %w", err)
		} else if title, ok := meta["title"].(string); ok && strings.TrimSpace(title) != "" {
			info.Title = strings.TrimSpace(title)
			info.HasFrontMatterTitle = true
		}
	}

	doc := parser.Parse(text.NewReader(body))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			h := Heading{Level: node.Level, Text: inlineText(node, body)}
			info.Headings = append(info.Headings, h)
			if info.Title == "" && h.Level == 1 {
				info.Title = h.Text
			}
		case *ast.Text:
			info.Words += len(strings.Fields(string(node.Segment.Value(body))))
		}
		return ast.WalkContinue, nil
	})

	return info, fmErr
}

// InferredTitle returns the heading title to pass as metadata, or "" when the
// front matter already sets one or the document has no level-1 heading.
func (i Info) InferredTitle() string {
	if i.HasFrontMatterTitle {
		return ""
	}
	return i.Title
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// splitFrontMatter separates a leading "---" YAML block, closed by "---" or
// "...", from the body. fm is nil when there is no front matter.
func splitFrontMatter(src []byte) (fm, body []byte) {
	first, rest, ok := cutLine(src)
	if !ok || strings.TrimRight(string(first), " \t") != "---" {
		return nil, src
	}
	var block bytes.Buffer
	for len(rest) > 0 {
		line, next, _ := cutLine(rest)
		trimmed := strings.TrimRight(string(line), " \t")
		if trimmed == "---" || trimmed == "..." {
			return block.Bytes(), next
		}
		block.Write(line)
		block.WriteByte('\n')
		rest = next
	}
	return nil, src
}

// cutLine splits off the first line, dropping its "\n" or "\r\n". ok is false
// when src has no newline.
func cutLine(src []byte) (line, rest []byte, ok bool) {
	line, rest, ok = bytes.Cut(src, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r")), rest, ok
}
