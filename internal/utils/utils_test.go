package utils_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/docassist/internal/utils"
)

func TestFormatFileSize(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{500, "500 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{10 * 1024 * 1024, "10 MB"},
		{3 * 1024 * 1024 * 1024 / 2, "1.5 GB"},
	}
	for _, c := range cases {
		if got := utils.FormatFileSize(c.in); got != c.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	text := strings.Repeat("abcd ", 100)
	out := utils.Truncate(text, 20)
	if len([]rune(out)) != 20 || !strings.HasSuffix(out, "...") {
		t.Fatalf("unexpected truncation: %q", out)
	}
	if utils.Truncate("short", 20) != "short" {
		t.Fatalf("short text should be unchanged")
	}
	if utils.Truncate("héllo", 2) != "hé" {
		t.Fatalf("rune-aware truncation failed")
	}
}

func TestSafeWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	if err := utils.EnsureDir(dir); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	p := filepath.Join(dir, "out.json")
	b, err := utils.PrettyJSON(map[string]int{"rows": 2})
	if err != nil {
		t.Fatalf("pretty: %v", err)
	}
	if err := utils.SafeWriteFile(p, b); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "{\n  \"rows\": 2\n}" {
		t.Fatalf("content = %q", got)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestSafeWriteFileCreatesParentDirs(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "deep", "report.md")
	if err := utils.SafeWriteFile(p, []byte("# Report")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "# Report" {
		t.Fatalf("content = %q", got)
	}
}
