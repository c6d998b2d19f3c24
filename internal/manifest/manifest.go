// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest builds conversion items from files on disk and writes
// converted payloads back out.
//
// A batch manifest is a YAML file:
//
//	items:
//	  - json: {title: Weekly report}
//	    binary:
//	      data: {path: notes/report.md}
//	      referenceDocx: {path: templates/ref.docx, file_name: ref.docx}
//
// Payload paths are resolved relative to the manifest's directory.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mdto/pkg/types"
)

// ErrEmptyManifest is returned when a manifest lists no items.
var ErrEmptyManifest = errors.New("manifest has no items")

const markdownMimeType = "text/markdown"

// Manifest is the on-disk batch description.
type Manifest struct {
	Items []ItemSpec `yaml:"items"`
}

// ItemSpec describes one item of a manifest.
type ItemSpec struct {
	JSON   map[string]any         `yaml:"json,omitempty"`
	Binary map[string]PayloadSpec `yaml:"binary"`
}

// PayloadSpec points at the file holding one binary payload.
type PayloadSpec struct {
	Path     string `yaml:"path"`
	FileName string `yaml:"file_name,omitempty"`
	MimeType string `yaml:"mime_type,omitempty"`
}

// FromPaths builds one item per file, with the file stored under property.
func FromPaths(paths []string, property string) ([]types.Item, error) {
	items := make([]types.Item, 0, len(paths))
	for _, p := range paths {
		b, err := readPayload(PayloadSpec{Path: p, MimeType: markdownMimeType}, "")
		if err != nil {
			return nil, err
		}
		items = append(items, types.Item{
			JSON:   map[string]any{"source": p},
			Binary: map[string]types.BinaryData{property: b},
		})
	}
	return items, nil
}

// Load reads a YAML manifest and the payload files it references.
func Load(path string) ([]types.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Items) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyManifest)
	}

	baseDir := filepath.Dir(path)
	items := make([]types.Item, 0, len(m.Items))
	for i, spec := range m.Items {
		item := types.Item{JSON: spec.JSON, Binary: make(map[string]types.BinaryData, len(spec.Binary))}
		if item.JSON == nil {
			item.JSON = map[string]any{}
		}
		for prop, ps := range spec.Binary {
			b, err := readPayload(ps, baseDir)
			if err != nil {
				return nil, fmt.Errorf("item %d, property %q: %w", i, prop, err)
			}
			item.Binary[prop] = b
		}
		items = append(items, item)
	}
	return items, nil
}

func readPayload(ps PayloadSpec, baseDir string) (types.BinaryData, error) {
	if ps.Path == "" {
		return types.BinaryData{}, errors.New("payload path is empty")
	}
	p := ps.Path
	if baseDir != "" && !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return types.BinaryData{}, fmt.Errorf("reading payload: %w", err)
	}
	name := ps.FileName
	if name == "" {
		name = filepath.Base(p)
	}
	return types.BinaryData{Data: data, FileName: name, MimeType: ps.MimeType}, nil
}

// WriteOutputs writes the payload under property of every successful item to
// dir, named by its declared file name. Error items are skipped. When two
// items declare the same name, later ones get a numeric suffix (note-1.pdf)
// so no output is overwritten. It returns the written paths in item order.
func WriteOutputs(items []types.Item, dir, property string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	var written []string
	used := make(map[string]bool, len(items))
	for i, it := range items {
		if it.IsError() {
			continue
		}
		b, ok := it.Payload(property)
		if !ok {
			continue
		}
		name := filepath.Base(b.FileName)
		if name == "." || name == string(filepath.Separator) || name == "" {
			name = fmt.Sprintf("output-%d", i)
		}
		name = uniqueName(name, used)
		used[name] = true
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, b.Data, 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", p, err)
		}
		written = append(written, p)
	}
	return written, nil
}

// uniqueName returns name, or name with the first free "-N" suffix before its
// extension when name is already in used.
func uniqueName(name string, used map[string]bool) string {
	if !used[name] {
		return name
	}
	ext := filepath.Ext(name)
	if ext == name {
		ext = ""
	}
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", base, n, ext)
		if !used[candidate] {
			return candidate
		}
	}
}
