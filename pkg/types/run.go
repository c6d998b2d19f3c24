// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunStatus is the outcome of converting one item.
type RunStatus string

const (
	RunConverted RunStatus = "converted"
	RunFailed    RunStatus = "failed"
)

// RunRecord describes one item conversion for the run history.
type RunRecord struct {
	// JobID is the workspace job id, empty when the job failed before a
	// workspace was opened.
	JobID string `json:"job_id" yaml:"job_id"`

	// Index is the item's position in its batch.
	Index int `json:"index" yaml:"index"`

	// Property is the binary property holding the source document.
	Property string `json:"property" yaml:"property"`

	// FileName is the declared name of the source payload.
	FileName string `json:"file_name" yaml:"file_name"`

	Format Format    `json:"format" yaml:"format"`
	Status RunStatus `json:"status" yaml:"status"`

	// Error is the failure message, empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// OutputName and OutputSize describe the produced payload.
	OutputName string `json:"output_name,omitempty" yaml:"output_name,omitempty"`
	OutputSize int    `json:"output_size,omitempty" yaml:"output_size,omitempty"`

	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}
