// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/mdto/internal/history"
	"github.com/pdiddy/mdto/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the run history (list, export)",
	Long: `History reads the local SQLite database in which convert and batch
record every item they process.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, opts, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	summary, err := store.Summarize(cmd.Context())
	if err != nil {
		return err
	}
	formatHistoryTable(cmd.OutOrStdout(), entries, summary)
	return nil
}

func formatHistoryTable(w io.Writer, entries []history.Entry, summary history.Summary) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintf(w, "%-5s  %-20s  %-30s  %-4s  %-9s  %-8s  %s\n",
		"ID", "Started", "Source", "To", "Status", "Duration", "Detail")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, e := range entries {
		detail := e.OutputName
		if e.Status == types.RunFailed {
			detail = e.Error
		}
		source := truncate(e.FileName, 30)
		detail = truncate(detail, 40)
		fmt.Fprintf(w, "%-5d  %-20s  %-30s  %-4s  %-9s  %-8s  %s\n",
			e.ID, e.StartedAt.Local().Format("2006-01-02 15:04:05"), source,
			e.Format, e.Status, e.Duration.Round(time.Millisecond), detail)
	}

	fmt.Fprintf(w, "\n%d shown; %d converted, %d failed overall\n",
		len(entries), summary.Converted, summary.Failed)
}

// truncate shortens s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run history to YAML or JSON",
	Long: `Export writes every recorded run (or a filtered subset) to stdout, or to
the file named by --output.`,
	RunE: runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, opts, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	outPath, _ := cmd.Flags().GetString("output")
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml", "":
		err = store.ExportYAML(cmd.Context(), w, opts)
	case "json":
		err = store.ExportJSON(cmd.Context(), w, opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", outPath)
	}
	return nil
}

// --- shared helpers ---

// openHistory opens the configured store and reads the filter flags.
func openHistory(cmd *cobra.Command) (*history.Store, history.ListOptions, error) {
	cfg, err := loadHistoryConfig(cmd)
	if err != nil {
		return nil, history.ListOptions{}, err
	}

	status, _ := cmd.Flags().GetString("status")
	format, _ := cmd.Flags().GetString("to")
	limit, _ := cmd.Flags().GetInt("limit")
	opts := history.ListOptions{
		Status: types.RunStatus(strings.ToLower(status)),
		Limit:  limit,
	}
	if format != "" {
		f, err := types.ParseFormat(format)
		if err != nil {
			return nil, history.ListOptions{}, err
		}
		opts.Format = f
	}

	store, err := history.NewStore(cfg)
	if err != nil {
		return nil, history.ListOptions{}, err
	}
	return store, opts, nil
}

// historyFlagKeys are the only flags the history commands bind. Their filter
// flags (--status, --to) select rows and are not settings.
var historyFlagKeys = map[string]string{
	"history-db": "history.path",
}

// loadHistoryConfig reads only the history section, so settings for other
// commands cannot fail it.
func loadHistoryConfig(cmd *cobra.Command) (types.HistoryConfig, error) {
	if err := bindFlags(cmd, historyFlagKeys); err != nil {
		return types.HistoryConfig{}, err
	}
	cfg := types.HistoryConfig{
		Path:     viper.GetString("history.path"),
		Disabled: viper.GetBool("history.disabled"),
	}
	if cfg.Path == "" {
		cfg.Path = types.DefaultHistoryPath
	}
	return cfg, nil
}

func init() {
	historyCmd.PersistentFlags().String("history-db", types.DefaultHistoryPath, "run history database")
	historyCmd.PersistentFlags().String("status", "", "filter by status: converted or failed")
	historyCmd.PersistentFlags().String("to", "", "filter by output format: pdf or docx")

	historyListCmd.Flags().Int("limit", 0, "maximum runs to show (default 50, negative for all)")
	historyListCmd.Flags().Bool("json", false, "output as JSON")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().StringP("output", "o", "", "write the export to a file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
