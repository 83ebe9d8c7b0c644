package parser_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/docassist/internal/analysis"
	"github.com/KaramelBytes/docassist/internal/parser"
)

func TestLoadFileCSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hop_harvest.csv")
	content := "\xef\xbb\xbfplot,alpha_acids,moisture\n" +
		"A1,12.5,74\n" +
		"A1,11.8,71\n" +
		"B3,10.2\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := parser.LoadFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tbl.Headers) != 3 || tbl.Headers[0] != "plot" {
		t.Fatalf("headers = %#v", tbl.Headers)
	}
	if len(tbl.Rows) != 2 || tbl.Skipped != 1 {
		t.Fatalf("rows = %d skipped = %d", len(tbl.Rows), tbl.Skipped)
	}
}

func TestLoadJSON(t *testing.T) {
	tbl, err := parser.Load("Data.JSON", []byte(`[{"a":1,"b":"x"}]`), parser.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tbl.Rows) != 1 || tbl.Rows[0]["a"] != "1" {
		t.Fatalf("rows = %#v", tbl.Rows)
	}
}

func TestLoadXLSXBySheetName(t *testing.T) {
	data := buildWorkbook(t)
	tbl, err := parser.Load("book.xlsx", data, parser.Options{SheetName: "Scores"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tbl.Headers) != 2 || tbl.Headers[1] != "score" {
		t.Fatalf("headers = %#v", tbl.Headers)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[1]["score"] != "7" || tbl.Rows[1]["name"] != "bo" {
		t.Fatalf("rows = %#v", tbl.Rows)
	}
	if _, err := parser.Load("book.xlsx", data, parser.Options{SheetName: "Missing"}); !errors.Is(err, analysis.ErrSheetNotFound) {
		t.Fatalf("err = %v, want ErrSheetNotFound", err)
	}
}

func TestLoadLegacyAndUnsupported(t *testing.T) {
	if _, err := parser.Load("old.xls", []byte{0xd0, 0xcf}, parser.Options{}); !errors.Is(err, parser.ErrLegacyExcel) {
		t.Fatalf("xls err = %v", err)
	}
	if _, err := parser.Load("notes.txt", []byte("hi"), parser.Options{}); !errors.Is(err, parser.ErrUnsupported) {
		t.Fatalf("txt err = %v", err)
	}
	if _, err := parser.LoadFile(filepath.Join(t.TempDir(), "missing.pdf"), parser.Options{}); !errors.Is(err, parser.ErrUnsupported) {
		t.Fatalf("pdf err = %v", err)
	}
}

func TestSupported(t *testing.T) {
	cases := map[string]bool{
		"a.csv":  true,
		"B.XLSX": true,
		"c.xls":  true,
		"d.json": true,
		"e.tsv":  false,
		"f.docx": false,
		"csv":    false,
	}
	for name, want := range cases {
		if got := parser.Supported(name); got != want {
			t.Fatalf("Supported(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLoadEmptyCSV(t *testing.T) {
	if _, err := parser.Load("empty.csv", []byte("\n \n"), parser.Options{}); !errors.Is(err, analysis.ErrEmptyInput) {
		t.Fatalf("err = %v, want ErrEmptyInput", err)
	}
}

// buildWorkbook writes a minimal two-sheet workbook using shared strings.
func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	parts := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Cover" sheetId="1" r:id="rId1"/><sheet name="Scores" sheetId="2" r:id="rId2"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Type="worksheet" Target="/xl/worksheets/sheet2.xml"/></Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><si><t>name</t></si><si><t>score</t></si><si><t>al</t></si><si><t>bo</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData><row r="1"><c r="A1" t="inlineStr"><is><t>cover</t></is></c></row></sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>3</v></c></row>
<row r="3"></row>
<row r="4"><c r="A4" t="s"><v>3</v></c><c r="B4"><v>7</v></c></row>
</sheetData></worksheet>`,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
