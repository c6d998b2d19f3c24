package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mdto/internal/workspace"
	"github.com/pdiddy/mdto/pkg/types"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status    string        `json:"status"` // "ready", "warnings", "errors"
	Pandoc    pandocInfo    `json:"pandoc"`
	Workspace workspaceInfo `json:"workspace"`
	System    systemInfo    `json:"system"`
	Warnings  []string      `json:"warnings,omitempty"`
	Errors    []string      `json:"errors,omitempty"`
}

// pandocInfo holds converter detection results.
type pandocInfo struct {
	Backend string `json:"backend"`
	Found   bool   `json:"found"`
	Version string `json:"version,omitempty"`
}

// workspaceInfo holds temporary directory check results.
type workspaceInfo struct {
	Root     string `json:"root"`
	Writable bool   `json:"writable"`
}

type systemInfo struct {
	OS   string `json:"os"`
	Arch string `json:"arch"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that pandoc and the workspace are usable",
	Long: `Doctor reports whether the configured pandoc backend can be started,
which version it is, and whether temporary files can be created and removed
in the workspace root. It exits non-zero when a check fails.`,
	RunE: runDoctorCmd,
}

func init() {
	addConverterFlags(doctorCmd.Flags())
	doctorCmd.Flags().String("workspace", types.DefaultWorkspaceRoot, "directory for temporary files")
	doctorCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctorCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	result := runDoctor(cmd.Context(), cfg)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(cmd.OutOrStdout(), result)
	}

	if result.Status == "errors" {
		return fmt.Errorf("doctor found %d problem(s)", len(result.Errors))
	}
	return nil
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, cfg types.Config) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		System: systemInfo{OS: runtime.GOOS, Arch: runtime.GOARCH},
	}

	checkPandoc(ctx, cfg.Converter, result)
	checkWorkspace(cfg.Workspace, result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

func checkPandoc(ctx context.Context, cfg types.ConverterConfig, result *doctorResult) {
	runner, err := newRunner(cfg)
	if err != nil {
		result.Pandoc.Backend = cfg.Container
		result.Errors = append(result.Errors, err.Error())
		return
	}
	result.Pandoc.Backend = runner.Describe()

	if err := runner.Available(); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return
	}
	result.Pandoc.Found = true

	version, err := runner.Version(ctx)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get pandoc version: %v", err))
		return
	}
	result.Pandoc.Version = version

	if cfg.Template != "" && cfg.Container == "none" {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("PDF output uses the %q template; make sure it is installed in pandoc's data directory", cfg.Template))
	}
}

// checkWorkspace writes and removes one probe job in the workspace root.
func checkWorkspace(cfg types.WorkspaceConfig, result *doctorResult) {
	m, err := workspace.NewManager(cfg, workspace.WithLogger(logger))
	if err != nil {
		result.Workspace.Root = cfg.Root
		result.Errors = append(result.Errors, err.Error())
		return
	}
	result.Workspace.Root = m.Root()

	ws, err := m.Open("doctor")
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return
	}
	defer ws.Cleanup()

	if _, err := ws.WriteFile(workspace.KindInput, []byte("# probe\n")); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Workspace root is not writable: %v", err))
		return
	}
	result.Workspace.Writable = true
}

func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "Pandoc")
	fmt.Fprintf(w, "  Backend:  %s\n", r.Pandoc.Backend)
	if r.Pandoc.Found {
		fmt.Fprintf(w, "  Found:    yes\n")
		if r.Pandoc.Version != "" {
			fmt.Fprintf(w, "  Version:  %s\n", r.Pandoc.Version)
		}
	} else {
		fmt.Fprintf(w, "  Found:    no\n")
	}

	fmt.Fprintln(w, "\nWorkspace")
	fmt.Fprintf(w, "  Root:     %s\n", r.Workspace.Root)
	fmt.Fprintf(w, "  Writable: %t\n", r.Workspace.Writable)

	fmt.Fprintln(w, "\nSystem")
	fmt.Fprintf(w, "  OS/Arch:  %s/%s\n", r.System.OS, r.System.Arch)

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "\n[WARN] %s", warn)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "\n[ERROR] %s", e)
	}
	if len(r.Warnings)+len(r.Errors) > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\nStatus: %s\n", r.Status)
}
