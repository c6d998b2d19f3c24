// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/mdto/internal/container"
	"github.com/pdiddy/mdto/internal/convert"
	"github.com/pdiddy/mdto/internal/history"
	"github.com/pdiddy/mdto/internal/pandoc"
	"github.com/pdiddy/mdto/internal/workspace"
	"github.com/pdiddy/mdto/pkg/types"
)

// flagKeys maps command-line flags to their viper keys. A flag only
// overrides the config file and environment when it is set explicitly.
var flagKeys = map[string]string{
	"pandoc":             "converter.binary",
	"container":          "converter.container",
	"image":              "converter.image",
	"template":           "converter.template",
	"workspace":          "workspace.root",
	"private-dir":        "workspace.private_dir",
	"property":           "job.binary_property",
	"reference-property": "job.reference_property",
	"to":                 "job.format",
	"options":            "job.options",
	"continue-on-fail":   "job.continue_on_fail",
	"infer-title":        "job.infer_title",
	"history-db":         "history.path",
	"no-history":         "history.disabled",
}

// addConverterFlags registers the flags that select and configure pandoc.
func addConverterFlags(fs *pflag.FlagSet) {
	fs.String("pandoc", types.DefaultBinary, "pandoc binary name or path")
	fs.String("container", "none", "run pandoc in a container: none, auto, docker or podman")
	fs.String("image", types.DefaultImage, "container image that provides pandoc")
}

// addJobFlags registers the conversion flags shared by convert and batch.
func addJobFlags(fs *pflag.FlagSet) {
	addConverterFlags(fs)
	fs.String("template", types.DefaultTemplate, "pandoc template for pdf output (empty for pandoc's default)")
	fs.String("workspace", types.DefaultWorkspaceRoot, "directory for temporary files")
	fs.Bool("private-dir", false, "give every job its own subdirectory of the workspace")
	fs.String("property", types.DefaultBinaryProperty, "binary property that holds the Markdown source")
	fs.StringP("to", "t", string(types.FormatPDF), "output format: pdf or docx")
	fs.String("options", "", "extra pandoc arguments, split on whitespace")
	fs.Bool("continue-on-fail", false, "report failed items and keep converting")
	fs.Bool("infer-title", false, "use the first level-1 heading as the pdf title when front matter has none")
	fs.StringP("out-dir", "o", ".", "directory for converted files")
	addHistoryFlags(fs)
}

// addHistoryFlags registers the flags that locate the run history.
func addHistoryFlags(fs *pflag.FlagSet) {
	fs.String("history-db", types.DefaultHistoryPath, "run history database")
	fs.Bool("no-history", false, "do not record runs")
}

// loadConfig binds the command's flags into viper and decodes the merged
// settings from flags, environment and config file.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	if err := bindFlags(cmd, flagKeys); err != nil {
		return types.Config{}, err
	}

	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg = cfg.WithDefaults()

	format, err := types.ParseFormat(string(cfg.Job.Format))
	if err != nil {
		return types.Config{}, err
	}
	cfg.Job.Format = format
	return cfg, nil
}

// bindFlags binds each of the command's flags named in keys to its viper key.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := keys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = viper.BindPFlag(key, f)
	})
	if bindErr != nil {
		return fmt.Errorf("binding flags: %w", bindErr)
	}
	return nil
}

// newRunner returns the pandoc runner for cfg, wrapped in a container
// runtime unless cfg.Container is "none".
func newRunner(cfg types.ConverterConfig) (*pandoc.Runner, error) {
	opts := []pandoc.Option{pandoc.WithLogger(logger)}
	if cfg.Container != "none" {
		rt, err := container.Select(cfg.Container)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pandoc.WithContainer(rt, cfg.Image))
	}
	return pandoc.NewRunner(cfg, opts...), nil
}

// newConverter wires the runner, workspace manager and run history for cfg.
// The returned close function releases the history database.
func newConverter(cfg types.Config) (*convert.Converter, func(), error) {
	runner, err := newRunner(cfg.Converter)
	if err != nil {
		return nil, nil, err
	}
	ws, err := workspace.NewManager(cfg.Workspace, workspace.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	opts := []convert.Option{
		convert.WithLogger(logger),
		convert.WithTemplate(cfg.Converter.Template),
	}
	closeFn := func() {}
	if !cfg.History.Disabled {
		store, err := history.NewStore(cfg.History)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, convert.WithRecorder(store))
		closeFn = func() { _ = store.Close() }
	}
	return convert.New(runner, ws, opts...), closeFn, nil
}
