package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/docassist/internal/analysis"
	"github.com/KaramelBytes/docassist/internal/parser"
	"github.com/KaramelBytes/docassist/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	anaOutputPath string
	anaFormat     string
	anaSampleSize int
	anaSheetName  string
	anaSheetIndex int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Profile a CSV, XLSX or JSON file and suggest visualizations",
	Example: `  docassist analyze sales.csv
  docassist analyze book.xlsx --sheet-name Q3 --format json
  docassist analyze data.json -o report.html --format html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		c := currentConfig()
		opt := analysis.Options{SampleSize: c.SampleSize}
		if anaSampleSize > 0 {
			opt.SampleSize = anaSampleSize
		}

		tbl, err := parser.LoadFile(path, parser.Options{SheetName: anaSheetName, SheetIndex: anaSheetIndex})
		if err != nil {
			return err
		}
		rep := analysis.Analyze(tbl, reportName(path, anaSheetName), opt)
		logger.Debug("analyzed file",
			zap.String("file", path),
			zap.Int("rows", rep.RowCount),
			zap.Int("columns", rep.ColumnCount),
			zap.Int("skipped", rep.SkippedRows))

		out, err := renderReport(rep, anaFormat)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", filepath.Clean(anaOutputPath))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the analysis")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "md", "output format: md|json|html")
	analyzeCmd.Flags().IntVar(&anaSampleSize, "sample-size", 0, "leading rows used to classify columns (default from config)")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	analyzeCmd.Flags().IntVar(&anaSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}
