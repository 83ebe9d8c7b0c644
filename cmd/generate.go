package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/KaramelBytes/docassist/internal/analysis"
	"github.com/KaramelBytes/docassist/internal/generate"
	"github.com/KaramelBytes/docassist/internal/parser"
	"github.com/KaramelBytes/docassist/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	genTopic      string
	genData       string
	genParams     map[string]string
	genMode       string
	genBackend    string
	genJSON       bool
	genQuiet      bool
	genOutputPath string
	genTimeoutSec int
)

var generateCmd = &cobra.Command{
	Use:   "generate <doc-type>",
	Short: "Generate a document (report, article, memo...) locally or via the backend",
	Example: `  docassist generate report --topic sales --data sales.csv -o sales-report.md
  docassist generate memo --mode remote --param audience=staff
  docassist generate article --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docType := strings.TrimSpace(args[0])
		if docType == "" {
			return fmt.Errorf("document type is required")
		}

		// Reset flags that can carry over between invocations unless provided in THIS run.
		if f := cmd.Flags(); f != nil {
			provided := map[string]bool{}
			f.Visit(func(fl *pflag.Flag) {
				provided[fl.Name] = true
			})
			if !provided["param"] {
				genParams = map[string]string{}
			}
			if !provided["mode"] {
				genMode = ""
			}
			if !provided["backend"] {
				genBackend = ""
			}
			if !provided["timeout-sec"] {
				genTimeoutSec = 180
			}
			if !provided["quiet"] {
				genQuiet = false
			}
			if !provided["json"] {
				genJSON = false
			}
			if !provided["output"] {
				genOutputPath = ""
			}
			if !provided["data"] {
				genData = ""
			}
			if !provided["topic"] {
				genTopic = ""
			}
		}
		if genJSON {
			genQuiet = true
		}

		c := currentConfig()
		client, err := buildBackend(c, genMode, genBackend)
		if err != nil {
			return err
		}

		timeoutSec := genTimeoutSec
		if timeoutSec <= 0 {
			timeoutSec = 180
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSec)*time.Second)
		defer cancel()

		w := cmd.OutOrStdout()
		var rep *analysis.Report
		if genData != "" && client == nil {
			tbl, err := parser.LoadFile(genData, parser.Options{})
			if err != nil {
				return err
			}
			rep = analysis.Analyze(tbl, filepath.Base(genData), analysis.Options{SampleSize: c.SampleSize})
		}

		out := generateOutput{DocType: docType, Topic: genTopic}
		if client != nil {
			out.Mode = "remote"
			params := map[string]any{"doc_type": docType}
			if genTopic != "" {
				params["topic"] = genTopic
			}
			if genData != "" {
				params["data_source"] = filepath.Base(genData)
			}
			for k, v := range genParams {
				params[k] = v
			}
			if !genQuiet {
				fmt.Fprintf(w, "⚙ Requesting %s from %s ...\n", docType, client.BaseURL())
			}
			resp, err := client.GenerateDocument(ctx, params)
			if err != nil {
				return explainBackendError(err)
			}
			if resp.RequestID != "" && !genQuiet {
				fmt.Fprintf(w, "Request ID: %s\n", resp.RequestID)
			}
			out.Message = resp.BotMessage
			out.DownloadURL = resp.DownloadURL
		} else {
			out.Mode = "local"
			sim := buildSimulator(c)
			var onProgress func(generate.Progress)
			if !genQuiet {
				onProgress = func(p generate.Progress) {
					fmt.Fprintf(w, "⏳ %3.0f%% %s\n", p.Percent, p.Step)
				}
			}
			msg, err := sim.Run(ctx, docType, onProgress)
			if err != nil {
				return err
			}
			out.Message = msg
			out.Content = localDocument(docType, genTopic, rep)
		}
		logger.Debug("document generated", zap.String("doc_type", docType), zap.String("mode", out.Mode))
		return writeGenerateOutput(w, out, genJSON, genQuiet, genOutputPath)
	},
}

// generateOutput is what the generate command reports, also its --json shape.
type generateOutput struct {
	DocType     string `json:"doc_type"`
	Topic       string `json:"topic,omitempty"`
	Mode        string `json:"mode"`
	Message     string `json:"message"`
	DownloadURL string `json:"download_url,omitempty"`
	Content     string `json:"content,omitempty"`
}

// localDocument drafts a Markdown document, embedding the data analysis when present.
func localDocument(docType, topic string, rep *analysis.Report) string {
	var b strings.Builder
	r, size := utf8.DecodeRuneInString(docType)
	title := string(unicode.ToUpper(r)) + docType[size:]
	if topic != "" {
		title += ": " + topic
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if rep == nil {
		b.WriteString("_No data source attached. Upload or pass --data to include an analysis._\n")
		return b.String()
	}
	b.WriteString(rep.Markdown())
	return b.String()
}

func writeGenerateOutput(w io.Writer, out generateOutput, asJSON, quiet bool, outputPath string) error {
	if asJSON {
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Fprintln(w, string(b))
	} else {
		if !quiet {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, out.Message)
		if out.DownloadURL != "" {
			fmt.Fprintf(w, "Download: %s\n", out.DownloadURL)
		}
	}

	if outputPath == "" {
		return nil
	}
	if out.Content == "" {
		return fmt.Errorf("--output needs local generation; remote documents are downloaded from the link above")
	}
	if err := utils.SafeWriteFile(outputPath, []byte(out.Content)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !quiet {
		fmt.Fprintf(w, "✓ Wrote document to %s\n", outputPath)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&genTopic, "topic", "", "document topic")
	generateCmd.Flags().StringVar(&genData, "data", "", "data file to analyze and include")
	generateCmd.Flags().StringToStringVar(&genParams, "param", nil, "extra backend parameter key=value (repeatable)")
	generateCmd.Flags().StringVar(&genMode, "mode", "", "generation mode: local|remote (default from config)")
	generateCmd.Flags().StringVar(&genBackend, "backend", "", "backend base URL for remote mode (default from config)")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "output JSON with message and metadata")
	generateCmd.Flags().BoolVar(&genQuiet, "quiet", false, "suppress progress output")
	generateCmd.Flags().StringVarP(&genOutputPath, "output", "o", "", "write the generated Markdown document to this path")
	generateCmd.Flags().IntVar(&genTimeoutSec, "timeout-sec", 180, "overall generation timeout in seconds")
}
