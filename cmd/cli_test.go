package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags clears values and Changed state that persist between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else if fl.Value.Type() != "stringToString" {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and stdin, returning combined output.
func execCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return execCmdContext(t, context.Background(), stdin, args...)
}

// execCmdContext is execCmd under a caller-supplied context.
func execCmdContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// runCmd is execCmd for invocations that must succeed.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, "", args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// isolate points HOME at a temp dir and speeds up simulated progress.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DOCASSIST_PROGRESS_INTERVAL_MS", "1")
	t.Setenv("DOCASSIST_MODE", "")
	return home
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const salesCSV = "region,units,price\nnorth,10,2.5\nsouth,20,3.5\n"

func TestCLI_AnalyzeMarkdownToStdout(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)

	out := runCmd(t, "analyze", p)
	for _, want := range []string{
		"## Analysis: sales.csv",
		"- Total rows: 2",
		"- **units**: Min: 10.00, Max: 20.00, Avg: 15.00",
		"Correlation Analysis recommended.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_AnalyzeJSONToFile(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	dst := filepath.Join(home, "out", "report.json")

	out := runCmd(t, "analyze", p, "--format", "json", "-o", dst)
	if !strings.Contains(out, "✓ Wrote analysis to") {
		t.Fatalf("unexpected output: %s", out)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode report: %v\n%s", err, b)
	}
	if doc["row_count"].(float64) != 2 || doc["source_name"] != "sales.csv" {
		t.Fatalf("report = %v", doc)
	}
}

func TestCLI_AnalyzeSampleSizeFlag(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "mixed.csv"), "v\n1\n2\nx\n")

	out := runCmd(t, "analyze", p, "--sample-size", "2")
	if !strings.Contains(out, "Found 1 numeric columns: v.") {
		t.Fatalf("expected numeric classification with sample 2:\n%s", out)
	}
	out = runCmd(t, "analyze", p)
	if !strings.Contains(out, "Found 1 text columns: v.") {
		t.Fatalf("expected categorical classification with default sample:\n%s", out)
	}
}

func TestCLI_AnalyzeRejectsLegacyExcelAndBadFormat(t *testing.T) {
	home := isolate(t)
	xls := writeFile(t, filepath.Join(home, "old.xls"), "\xd0\xcf\x11\xe0")
	if _, err := execCmd(t, "", "analyze", xls); err == nil || !strings.Contains(err.Error(), ".xls") {
		t.Fatalf("expected legacy excel error, got %v", err)
	}
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	if _, err := execCmd(t, "", "analyze", p, "--format", "pdf"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestCLI_AnalyzeBatchCollisionAndFailures(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, "d1", "metrics.csv"), "col1,col2\nA,1\nB,2\n")
	writeFile(t, filepath.Join(home, "d2", "metrics.csv"), "col1,col2\nC,3\nD,4\n")
	outDir := filepath.Join(home, "reports")

	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir)
	if !strings.Contains(out, "[1/2] Processing metrics.csv...") || !strings.Contains(out, "[2/2]") {
		t.Fatalf("missing progress lines:\n%s", out)
	}
	for _, name := range []string{"metrics.analysis.md", "metrics__2.analysis.md"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	bad := writeFile(t, filepath.Join(home, "bad.json"), "42")
	good := writeFile(t, filepath.Join(home, "good.json"), `[{"a":1},{"a":2}]`)
	jsonDir := filepath.Join(home, "json")
	out, err := execCmd(t, "", "analyze-batch", bad, good, "--out-dir", jsonDir, "--format", "json", "--quiet")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed: bad.json") {
		t.Fatalf("expected summary error, got %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(jsonDir, "good.analysis.json")); err != nil {
		t.Fatalf("good file not written: %v", err)
	}
}

func TestCLI_AnalyzeBatchNoMatches(t *testing.T) {
	home := isolate(t)
	if _, err := execCmd(t, "", "analyze-batch", filepath.Join(home, "*.csv")); err == nil {
		t.Fatalf("expected no input files error")
	}
}

func TestCLI_ChatLocalSession(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	script := strings.Join([]string{
		"/upload " + p,
		"/files",
		"analyze sales.csv",
		"show me correlations",
		"create a report",
		"/context",
		"/remove sales.csv",
		"/files",
		"/bogus",
		"/quit",
	}, "\n")

	out, err := execCmd(t, script, "chat")
	if err != nil {
		t.Fatalf("chat failed: %v\n%s", err, out)
	}
	for _, want := range []string{
		"👋 Hi!",
		"📎 File uploaded: 📊 **sales.csv**",
		"📊 sales.csv (",
		"🔍 Analyzing **sales.csv**...",
		"## Analysis: sales.csv",
		"Analyzing correlations in your uploaded data",
		"⏳",
		"✅ **Document Complete!**",
		"Data source: sales.csv",
		"🗑️ File removed from analysis queue.",
		"No files uploaded yet.",
		"unknown command /bogus",
		"Bye!",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("chat output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_ChatUploadTipAndUnsupportedFile(t *testing.T) {
	home := isolate(t)
	txt := writeFile(t, filepath.Join(home, "notes.txt"), "hello")

	out, err := execCmd(t, "help me with my data\n/exit\n", "chat", "--upload", txt)
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if !strings.Contains(out, "❌ File type not supported: notes.txt") {
		t.Fatalf("missing unsupported notice:\n%s", out)
	}
	if !strings.Contains(out, "❓ **How I Can Help**") {
		t.Fatalf("missing help reply:\n%s", out)
	}
}

func TestCLI_ChatStopsWhenCancelled(t *testing.T) {
	isolate(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := execCmdContext(t, ctx, "tell me a joke\nwrite an article\nsome memo please\n", "chat")
	if err != nil {
		t.Fatalf("chat failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Bye!") {
		t.Fatalf("missing farewell:\n%s", out)
	}
	for _, unwanted := range []string{"Article Creation", "Memo Generation"} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("reply %q sent after cancel:\n%s", unwanted, out)
		}
	}
}

func TestCLI_ChatRemoteGenerate(t *testing.T) {
	isolate(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bot_message":"Working on your memo.","action":"generate_document","params":{"doc_type":"memo"}}`))
	})
	mux.HandleFunc("/generate_document", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bot_message":"Memo ready.","download_url":"/files/memo.docx"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := execCmd(t, "write a memo\n/quit\n", "chat", "--mode", "remote", "--backend", srv.URL)
	if err != nil {
		t.Fatalf("chat failed: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Connected to backend at " + srv.URL,
		"Working on your memo.",
		"Memo ready.",
		"[Download document](" + srv.URL + "/files/memo.docx)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_GenerateLocalWithData(t *testing.T) {
	home := isolate(t)
	p := writeFile(t, filepath.Join(home, "sales.csv"), salesCSV)
	dst := filepath.Join(home, "docs", "doc.md")

	out := runCmd(t, "generate", "report", "--topic", "sales", "--data", p, "-o", dst)
	if !strings.Contains(out, "Finalizing output...") && !strings.Contains(out, "100%") {
		t.Fatalf("missing progress:\n%s", out)
	}
	if !strings.Contains(out, "Your report has been generated successfully") {
		t.Fatalf("missing completion message:\n%s", out)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read doc: %v", err)
	}
	if !strings.HasPrefix(string(b), "# Report: sales\n") || !strings.Contains(string(b), "## Analysis: sales.csv") {
		t.Fatalf("document = %s", b)
	}
}

func TestCLI_GenerateRemoteJSON(t *testing.T) {
	isolate(t)
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate_document" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bot_message":"Done.","download_url":"https://files.example/a.docx"}`))
	}))
	defer srv.Close()

	out := runCmd(t, "generate", "article", "--mode", "remote", "--backend", srv.URL, "--topic", "trends", "--param", "audience=staff", "--json")
	var doc generateOutput
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if doc.Mode != "remote" || doc.Message != "Done." || doc.DownloadURL != "https://files.example/a.docx" {
		t.Fatalf("output = %+v", doc)
	}
	if got["doc_type"] != "article" || got["topic"] != "trends" || got["audience"] != "staff" {
		t.Fatalf("request params = %v", got)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolate(t)

	runCmd(t, "config", "set", "sample_size", "25")
	runCmd(t, "config", "set", "mode", "remote")
	if _, err := os.Stat(filepath.Join(home, ".docassist", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCmd(t, "config", "show")
	for _, want := range []string{"mode: remote", "sample_size: 25", "backend_url: http://127.0.0.1:8000"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}

	if _, err := execCmd(t, "", "config", "set", "sample_size", "0"); err == nil {
		t.Fatalf("expected validation error for sample_size 0")
	}
	if _, err := execCmd(t, "", "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
