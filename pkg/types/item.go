// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the mdto conversion
// pipeline: input and output items, binary payloads, target formats and
// configuration.
package types

// BinaryData is a named binary payload attached to an Item.
type BinaryData struct {
	// Data holds the raw payload bytes.
	Data []byte `json:"-" yaml:"-"`

	// MimeType is the declared media type of the payload (e.g. "text/markdown").
	MimeType string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`

	// FileName is the declared file name of the payload (e.g. "note.md").
	FileName string `json:"file_name,omitempty" yaml:"file_name,omitempty"`
}

// Item is one unit of work flowing through a batch. JSON carries free-form
// metadata that is passed through unchanged; Binary carries the payloads
// keyed by property name.
type Item struct {
	JSON   map[string]any        `json:"json" yaml:"json"`
	Binary map[string]BinaryData `json:"binary" yaml:"binary"`
}

// Payload returns the binary payload stored under property.
func (it Item) Payload(property string) (BinaryData, bool) {
	if it.Binary == nil {
		return BinaryData{}, false
	}
	b, ok := it.Binary[property]
	return b, ok
}

// IsError reports whether the item is an error record produced by a failed
// conversion in continue-on-fail mode.
func (it Item) IsError() bool {
	_, ok := it.JSON["error"]
	return ok && len(it.Binary) == 0
}
