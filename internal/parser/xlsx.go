package parser

import (
	"github.com/KaramelBytes/docassist/internal/analysis"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool { return hasExt(filename, ".xlsx") }

func (xlsxLoader) Load(content []byte, opt Options) (*analysis.Table, error) {
	return analysis.ReadXLSX(content, opt.SheetName, opt.SheetIndex)
}

// xlsLoader claims .xls so callers get a clear error instead of ErrUnsupported.
type xlsLoader struct{}

func (xlsLoader) CanLoad(filename string) bool { return hasExt(filename, ".xls") }

func (xlsLoader) Load(_ []byte, _ Options) (*analysis.Table, error) {
	return nil, ErrLegacyExcel
}
