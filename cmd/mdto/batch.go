package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/mdto/internal/manifest"
)

var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml>",
	Short: "Convert the items listed in a YAML manifest",
	Long: `Batch converts every item of a YAML manifest. Each item carries JSON
fields, which are passed through to the output, and binary payloads read
from files relative to the manifest:

  items:
    - json: {title: Notes}
      binary:
        data: {path: notes.md}
        referenceDocx: {path: styles.docx}

Set --reference-property to use a per-item reference document for docx
output.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	addJobFlags(batchCmd.Flags())
	batchCmd.Flags().String("reference-property", "", "binary property that holds a reference docx")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	items, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	return runItems(cmd, cfg, items)
}
