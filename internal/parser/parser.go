package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/docassist/internal/analysis"
)

// Options carries per-format loading knobs. Zero value means defaults.
type Options struct {
	// SheetName selects an .xlsx worksheet by name; it wins over SheetIndex.
	SheetName string
	// SheetIndex is the 1-based worksheet index; <= 0 selects the first sheet.
	SheetIndex int
}

// Loader turns raw file content into a table.
type Loader interface {
	CanLoad(filename string) bool
	Load(content []byte, opt Options) (*analysis.Table, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates a file type no loader accepts.
var ErrUnsupported = errors.New("unsupported file type")

// ErrLegacyExcel is returned for binary .xls workbooks.
var ErrLegacyExcel = errors.New("legacy .xls workbooks need backend integration; save the sheet as .xlsx or .csv")

// Supported reports whether some registered loader accepts the filename.
func Supported(name string) bool {
	return lookup(name) != nil
}

// Load selects a loader by filename extension and parses content.
func Load(name string, content []byte, opt Options) (*analysis.Table, error) {
	l := lookup(name)
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}
	return l.Load(content, opt)
}

// LoadFile reads path from disk and parses it with the matching loader.
func LoadFile(path string, opt Options) (*analysis.Table, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Load(filepath.Base(path), data, opt)
}

func lookup(name string) Loader {
	for _, l := range registry {
		if l.CanLoad(name) {
			return l
		}
	}
	return nil
}

func hasExt(name string, exts ...string) bool {
	name = strings.ToLower(name)
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

func init() {
	Register(csvLoader{})
	Register(jsonLoader{})
	Register(xlsxLoader{})
	Register(xlsLoader{})
}
