package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mdto/internal/manifest"
	"github.com/pdiddy/mdto/pkg/types"
)

// referenceProperty is the binary property that carries --reference-doc.
const referenceProperty = "referenceDocx"

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert Markdown files to PDF or DOCX",
	Long: `Convert runs pandoc on each Markdown file and writes the result to the
output directory under the source name with the format's extension.

PDF output uses the eisvogel template unless --template says otherwise.
DOCX output can take its styles from a reference document (--reference-doc).
Files are converted one at a time; the first failure stops the run unless
--continue-on-fail is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	addJobFlags(convertCmd.Flags())
	convertCmd.Flags().String("reference-doc", "", "reference docx whose styles are used for docx output")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	items, err := manifest.FromPaths(args, cfg.Job.BinaryProperty)
	if err != nil {
		return err
	}

	refDoc, _ := cmd.Flags().GetString("reference-doc")
	if refDoc != "" {
		data, err := os.ReadFile(refDoc)
		if err != nil {
			return fmt.Errorf("reading reference document: %w", err)
		}
		ref := types.BinaryData{Data: data, FileName: refDoc, MimeType: types.FormatDOCX.MimeType()}
		for i := range items {
			items[i].Binary[referenceProperty] = ref
		}
		cfg.Job.ReferenceProperty = referenceProperty
	}

	return runItems(cmd, cfg, items)
}

// runItems converts items with cfg, writes successful outputs to --out-dir
// and reports error items on stderr.
func runItems(cmd *cobra.Command, cfg types.Config, items []types.Item) error {
	conv, closeFn, err := newConverter(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	out := cmd.OutOrStdout()
	result, batchErr := conv.ConvertBatch(cmd.Context(), items, cfg.Job, out)

	outDir, _ := cmd.Flags().GetString("out-dir")
	written, err := manifest.WriteOutputs(result.Items, outDir, cfg.Job.BinaryProperty)
	for _, p := range written {
		fmt.Fprintf(out, "wrote:     %s\n", p)
	}
	if batchErr != nil {
		return batchErr
	}
	if err != nil {
		return err
	}

	if result.HasFailures() {
		enc := json.NewEncoder(cmd.ErrOrStderr())
		for _, it := range result.Items {
			if it.IsError() {
				_ = enc.Encode(it.JSON)
			}
		}
		return fmt.Errorf("%d item(s) failed conversion", result.Failed)
	}
	return nil
}
