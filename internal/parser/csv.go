package parser

import (
	"bytes"

	"github.com/KaramelBytes/docassist/internal/analysis"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool { return hasExt(filename, ".csv") }

func (csvLoader) Load(content []byte, _ Options) (*analysis.Table, error) {
	// Spreadsheet exports often prepend a UTF-8 BOM to the header.
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	return analysis.ParseDelimited(string(content))
}
