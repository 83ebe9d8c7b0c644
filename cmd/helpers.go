package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/docassist/internal/analysis"
	"github.com/KaramelBytes/docassist/internal/backend"
	cfgpkg "github.com/KaramelBytes/docassist/internal/config"
	"github.com/KaramelBytes/docassist/internal/generate"
	"github.com/KaramelBytes/docassist/internal/session"
	"github.com/KaramelBytes/docassist/internal/utils"
)

func buildSession(c *cfgpkg.Global) (*session.Session, error) {
	cache, err := session.NewCache(c.CacheSize, logger)
	if err != nil {
		return nil, err
	}
	opt := analysis.Options{SampleSize: c.SampleSize}
	return session.New(session.NewFiles(c.MaxUploadBytes()), cache, opt, logger), nil
}

func buildSimulator(c *cfgpkg.Global) *generate.Simulator {
	return generate.NewSimulator(time.Duration(c.ProgressIntervalMs)*time.Millisecond, logger)
}

// buildBackend returns nil unless the effective mode is remote.
func buildBackend(c *cfgpkg.Global, mode, url string) (*backend.Client, error) {
	if mode == "" {
		mode = c.Mode
	}
	switch mode {
	case cfgpkg.ModeLocal:
		return nil, nil
	case cfgpkg.ModeRemote:
	default:
		return nil, fmt.Errorf("invalid --mode: %s (use %s|%s)", mode, cfgpkg.ModeLocal, cfgpkg.ModeRemote)
	}
	if url == "" {
		url = c.BackendURL
	}
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("remote mode needs a backend URL: set --backend or backend_url in config")
	}
	return backend.NewClient(
		url,
		time.Duration(c.HTTPTimeoutSec)*time.Second,
		c.RetryMaxAttempts,
		time.Duration(c.RetryBaseDelayMs)*time.Millisecond,
		time.Duration(c.RetryMaxDelayMs)*time.Millisecond,
		logger,
	), nil
}

// explainBackendError adds a hint for common backend failure classes.
func explainBackendError(err error) error {
	var (
		rlErr   *backend.RateLimitError
		brErr   *backend.BadRequestError
		sErr    *backend.ServerError
		unreach *backend.UnreachableError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &unreach):
		return fmt.Errorf("backend not reachable at %s. Ensure it is running or switch to --mode local: %w", unreach.Host, err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by backend, please retry: %w", err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request rejected by backend: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("backend appears unavailable (server error). Please retry later: %w", err)
	default:
		return err
	}
}

// renderReport formats a report as md, json or html.
func renderReport(rep *analysis.Report, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "md", "markdown":
		return []byte(rep.Markdown()), nil
	case "json":
		return utils.PrettyJSON(rep)
	case "html":
		return rep.HTML(), nil
	default:
		return nil, fmt.Errorf("unsupported --format: %s (use md|json|html)", format)
	}
}

func formatExt(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return ".json"
	case "html":
		return ".html"
	default:
		return ".md"
	}
}

// sheetSlug turns a sheet name into a filename-safe suffix.
func sheetSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			b.WriteRune('-')
		}
	}
	ss := strings.Trim(b.String(), "-")
	if ss == "" {
		ss = "sheet"
	}
	return ss
}

// reportName is the display name of an analyzed file, tagged with the sheet when one was chosen.
func reportName(path, sheetName string) string {
	base := filepath.Base(path)
	if sheetName != "" && strings.EqualFold(filepath.Ext(base), ".xlsx") {
		return base + " [" + sheetName + "]"
	}
	return base
}

// uniqueOutPath returns dir/base+ext, or dir/base__N+ext when that file exists.
func uniqueOutPath(dir, base, ext string) (string, bool) {
	out := filepath.Join(dir, base+ext)
	if _, err := os.Stat(out); err != nil {
		return out, false
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand, true
		}
	}
}
