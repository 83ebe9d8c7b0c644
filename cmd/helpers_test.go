package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/docassist/internal/backend"
	cfgpkg "github.com/KaramelBytes/docassist/internal/config"
)

func TestSheetSlugAndReportName(t *testing.T) {
	if got := sheetSlug("  Q3 Sales_2024! "); got != "q3-sales-2024" {
		t.Fatalf("sheetSlug = %q", got)
	}
	if got := sheetSlug("###"); got != "sheet" {
		t.Fatalf("sheetSlug fallback = %q", got)
	}
	if got := reportName("/tmp/book.xlsx", "Q3"); got != "book.xlsx [Q3]" {
		t.Fatalf("reportName = %q", got)
	}
	if got := reportName("/tmp/data.csv", "Q3"); got != "data.csv" {
		t.Fatalf("reportName csv = %q", got)
	}
}

func TestUniqueOutPath(t *testing.T) {
	dir := t.TempDir()
	p, renamed := uniqueOutPath(dir, "a", ".md")
	if renamed || p != filepath.Join(dir, "a.md") {
		t.Fatalf("first = %s renamed=%v", p, renamed)
	}
	for _, name := range []string{"a.md", "a__2.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	p, renamed = uniqueOutPath(dir, "a", ".md")
	if !renamed || p != filepath.Join(dir, "a__3.md") {
		t.Fatalf("collision = %s renamed=%v", p, renamed)
	}
}

func TestBuildBackendModes(t *testing.T) {
	c := cfgpkg.Defaults()
	cl, err := buildBackend(&c, "", "")
	if err != nil || cl != nil {
		t.Fatalf("local default: client=%v err=%v", cl, err)
	}
	cl, err = buildBackend(&c, "remote", "http://example.test/")
	if err != nil || cl == nil || cl.BaseURL() != "http://example.test" {
		t.Fatalf("remote: client=%v err=%v", cl, err)
	}
	if _, err := buildBackend(&c, "cloud", ""); err == nil {
		t.Fatalf("expected invalid mode error")
	}
}

func TestExplainBackendError(t *testing.T) {
	unreach := &backend.UnreachableError{Host: "127.0.0.1:9", Err: errors.New("refused")}
	if err := explainBackendError(unreach); !strings.Contains(err.Error(), "--mode local") || !errors.Is(err, unreach) {
		t.Fatalf("unreachable hint: %v", err)
	}
	rl := &backend.RateLimitError{APIError: &backend.APIError{StatusCode: 429}, RetryAfter: 3 * time.Second}
	if err := explainBackendError(rl); !strings.Contains(err.Error(), "~3s") {
		t.Fatalf("rate limit hint: %v", err)
	}
	plain := errors.New("boom")
	if err := explainBackendError(plain); err != plain {
		t.Fatalf("plain error changed: %v", err)
	}
	if explainBackendError(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}
