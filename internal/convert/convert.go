// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns Markdown items into PDF or DOCX items by running
// pandoc in a per-job temporary workspace. Items of a batch are converted
// one after another; each job's workspace is cleaned up before the next
// item starts.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pdiddy/mdto/internal/markdown"
	"github.com/pdiddy/mdto/internal/pandoc"
	"github.com/pdiddy/mdto/internal/workspace"
	"github.com/pdiddy/mdto/pkg/types"
)

// Sentinel errors for item validation and tool output.
var (
	ErrMissingBinary    = errors.New("no binary data found")
	ErrMissingReference = errors.New("no reference document found")
	ErrMissingOutput    = errors.New("output file does not exist")
)

// Tool runs one pandoc conversion. *pandoc.Runner implements it.
type Tool interface {
	Convert(ctx context.Context, req pandoc.Request) error
}

// Recorder receives one record per converted or failed item.
type Recorder interface {
	Record(ctx context.Context, rec types.RunRecord) error
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	// Items holds one output item per processed input, in input order.
	// Failed items appear as error items when continue-on-fail is set.
	Items     []types.Item
	Converted int
	Failed    int
}

// Total returns the number of items processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Failed
}

// HasFailures reports whether any item failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Option configures a Converter.
type Option func(*Converter)

// WithRecorder records every item conversion.
func WithRecorder(r Recorder) Option {
	return func(c *Converter) { c.recorder = r }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// WithTemplate sets the default PDF template. JobConfig.Template overrides it.
func WithTemplate(name string) Option {
	return func(c *Converter) { c.template = name }
}

// Converter orchestrates a conversion job: validate the item, write the
// temporary files, run the tool, read the output and clean up.
type Converter struct {
	tool       Tool
	workspaces *workspace.Manager
	recorder   Recorder
	logger     *slog.Logger
	template   string
	now        func() time.Time
}

// New returns a Converter that runs tool in workspaces allocated by ws.
func New(tool Tool, ws *workspace.Manager, opts ...Option) *Converter {
	c := &Converter{
		tool:       tool,
		workspaces: ws,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConvertItem converts the Markdown payload of item under cfg.BinaryProperty.
// The returned item carries the converted payload under the same property
// and the input's JSON metadata.
func (c *Converter) ConvertItem(ctx context.Context, item types.Item, cfg types.JobConfig) (types.Item, error) {
	out, _, err := c.convert(ctx, item, cfg)
	return out, err
}

func (c *Converter) convert(ctx context.Context, item types.Item, cfg types.JobConfig) (types.Item, string, error) {
	prop := cfg.BinaryProperty
	if prop == "" {
		prop = types.DefaultBinaryProperty
	}
	src, ok := item.Payload(prop)
	if !ok {
		return types.Item{}, "", fmt.Errorf("%w in property %q", ErrMissingBinary, prop)
	}
	format, err := types.ParseFormat(string(cfg.Format))
	if err != nil {
		return types.Item{}, "", err
	}

	var ref *types.BinaryData
	if format == types.FormatDOCX && cfg.ReferenceProperty != "" {
		r, ok := item.Payload(cfg.ReferenceProperty)
		if !ok {
			return types.Item{}, "", fmt.Errorf("%w in property %q", ErrMissingReference, cfg.ReferenceProperty)
		}
		ref = &r
	}

	extra, err := pandoc.SplitOptions(cfg.Options)
	if err != nil {
		return types.Item{}, "", err
	}

	ws, err := c.workspaces.Open(prop)
	if err != nil {
		return types.Item{}, "", err
	}
	defer ws.Cleanup()

	input, err := ws.WriteFile(workspace.KindInput, src.Data)
	if err != nil {
		return types.Item{}, ws.ID, err
	}

	req := pandoc.Request{
		WorkDir:    ws.Dir,
		InputPath:  input,
		OutputPath: ws.Output,
		From:       "markdown",
		To:         format,
		ExtraArgs:  extra,
	}
	switch format {
	case types.FormatDOCX:
		if ref != nil {
			if req.ReferenceDoc, err = ws.WriteFile(workspace.KindReference, ref.Data); err != nil {
				return types.Item{}, ws.ID, err
			}
		}
	case types.FormatPDF:
		req.Template = c.template
		if cfg.Template != "" {
			req.Template = cfg.Template
		}
		if cfg.InferTitle {
			req.Metadata = c.titleMetadata(src.Data)
		}
	}

	if err := c.tool.Convert(ctx, req); err != nil {
		return types.Item{}, ws.ID, err
	}
	if !ws.Exists(ws.Output) {
		return types.Item{}, ws.ID, &pandoc.ToolError{Message: ErrMissingOutput.Error(), Err: ErrMissingOutput}
	}
	data, err := ws.ReadFile(ws.Output)
	if err != nil {
		return types.Item{}, ws.ID, fmt.Errorf("reading output: %w", err)
	}

	out := types.Item{
		JSON: item.JSON,
		Binary: map[string]types.BinaryData{
			prop: {
				Data:     data,
				MimeType: format.MimeType(),
				FileName: types.OutputFileName(src.FileName, format),
			},
		},
	}
	return out, ws.ID, nil
}

func (c *Converter) titleMetadata(src []byte) map[string]string {
	info, err := markdown.Inspect(src)
	if err != nil {
		c.logger.Debug("skipping title inference", "error", err)
		return nil
	}
	if title := info.InferredTitle(); title != "" {
		return map[string]string{"title": title}
	}
	return nil
}

// ConvertBatch converts items sequentially, printing per-item status to w and
// returning a summary. Without cfg.ContinueOnFail the first failure aborts the
// batch and is returned; with it, failures become error items.
func (c *Converter) ConvertBatch(ctx context.Context, items []types.Item, cfg types.JobConfig, w io.Writer) (BatchResult, error) {
	prop := cfg.BinaryProperty
	if prop == "" {
		prop = types.DefaultBinaryProperty
	}

	var result BatchResult
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		name := itemName(item, prop, i)
		start := c.now()
		out, jobID, err := c.convert(ctx, item, cfg)
		c.record(ctx, i, item, prop, cfg.Format, jobID, out, err, start)

		if err != nil {
			result.Failed++
			fmt.Fprintf(w, "failed:    %s (%v)\n", name, err)
			if !cfg.ContinueOnFail {
				return result, fmt.Errorf("converting item %d (%s): %w", i, name, err)
			}
			result.Items = append(result.Items, ErrorItem(err))
			continue
		}

		result.Converted++
		result.Items = append(result.Items, out)
		fmt.Fprintf(w, "converted: %s -> %s\n", name, out.Binary[prop].FileName)
	}

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d failed (total: %d)\n",
		result.Converted, result.Failed, result.Total())
	return result, nil
}

func (c *Converter) record(ctx context.Context, index int, in types.Item, prop string, format types.Format,
	jobID string, out types.Item, convErr error, start time.Time) {
	if c.recorder == nil {
		return
	}
	src, _ := in.Payload(prop)
	rec := types.RunRecord{
		JobID:     jobID,
		Index:     index,
		Property:  prop,
		FileName:  src.FileName,
		Format:    format,
		Status:    types.RunConverted,
		StartedAt: start.UTC(),
		Duration:  c.now().Sub(start),
	}
	if convErr != nil {
		rec.Status = types.RunFailed
		rec.Error = convErr.Error()
	} else if b, ok := out.Payload(prop); ok {
		rec.OutputName = b.FileName
		rec.OutputSize = len(b.Data)
	}
	if err := c.recorder.Record(ctx, rec); err != nil {
		c.logger.Warn("recording run failed", "index", index, "error", err)
	}
}

// ErrorItem builds the item recorded for a failed conversion: JSON with the
// error message plus, for tool failures, the exit code and captured streams.
// It carries no binary payload.
func ErrorItem(err error) types.Item {
	j := map[string]any{"error": err.Error()}
	var te *pandoc.ToolError
	if errors.As(err, &te) {
		if te.Code != "" {
			j["code"] = te.Code
		}
		if te.Stdout != "" {
			j["stdout"] = te.Stdout
		}
		if te.Stderr != "" {
			j["stderr"] = te.Stderr
		}
	}
	return types.Item{JSON: j, Binary: map[string]types.BinaryData{}}
}

func itemName(item types.Item, prop string, index int) string {
	if b, ok := item.Payload(prop); ok && b.FileName != "" {
		return b.FileName
	}
	return fmt.Sprintf("item %d", index)
}
