package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/docassist/internal/analysis"
	"github.com/KaramelBytes/docassist/internal/parser"
	"github.com/KaramelBytes/docassist/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	abOutDir     string
	abFormat     string
	abSampleSize int
	abSheetName  string
	abSheetIndex int
	abQuiet      bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/XLSX/JSON files with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		seen := map[string]struct{}{}
		for _, arg := range args {
			matches, _ := filepath.Glob(arg)
			if len(matches) == 0 {
				// treat as literal path if exists
				if _, err := os.Stat(arg); err == nil {
					matches = []string{arg}
				}
			}
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		sort.Strings(files)

		switch strings.ToLower(abFormat) {
		case "md", "markdown", "json", "html":
		default:
			return fmt.Errorf("unsupported --format: %s (use md|json|html)", abFormat)
		}

		c := currentConfig()
		opt := analysis.Options{SampleSize: c.SampleSize}
		if abSampleSize > 0 {
			opt.SampleSize = abSampleSize
		}
		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return err
			}
		}

		w := cmd.OutOrStdout()
		total := len(files)
		var failed []string
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(w, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			tbl, err := parser.LoadFile(path, parser.Options{SheetName: abSheetName, SheetIndex: abSheetIndex})
			if err != nil {
				logger.Warn("batch item failed", zap.String("file", path), zap.Error(err))
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", filepath.Base(path), err)
				failed = append(failed, filepath.Base(path))
				continue
			}
			rep := analysis.Analyze(tbl, reportName(path, abSheetName), opt)
			out, err := renderReport(rep, abFormat)
			if err != nil {
				return err
			}

			if abOutDir == "" {
				if !abQuiet {
					fmt.Fprintln(w, string(out))
				}
				continue
			}
			base := filepath.Base(path)
			safe := strings.TrimSuffix(base, filepath.Ext(base))
			if abSheetName != "" {
				safe += "__sheet-" + sheetSlug(abSheetName)
			}
			outFile, renamed := uniqueOutPath(abOutDir, safe, ".analysis"+formatExt(abFormat))
			if renamed && !abQuiet {
				fmt.Fprintf(w, "⚠ Detected existing analysis, writing to %s to avoid overwrite.\n", filepath.Base(outFile))
			}
			if err := utils.SafeWriteFile(outFile, out); err != nil {
				return fmt.Errorf("write analysis: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(w, "✓ Wrote %s\n", filepath.Base(outFile))
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d of %d files failed: %s", len(failed), total, strings.Join(failed, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory to write one analysis file per input")
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "md", "output format: md|json|html")
	analyzeBatchCmd.Flags().IntVar(&abSampleSize, "sample-size", 0, "leading rows used to classify columns (default from config)")
	analyzeBatchCmd.Flags().StringVar(&abSheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	analyzeBatchCmd.Flags().IntVar(&abSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
