package analysis

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrSheetNotFound is returned when a requested worksheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// ReadXLSX extracts one worksheet of an .xlsx workbook as a Table.
// The sheet is chosen by name when sheetName is set, otherwise by the
// 1-based sheetIndex (values <= 0 select the first sheet).
// The first row is the header; later rows are padded to the header width.
func ReadXLSX(data []byte, sheetName string, sheetIndex int) (*Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	sheets := parseWorkbook(readZipFile(zr, "xl/workbook.xml"))
	rels := parseRelationships(readZipFile(zr, "xl/_rels/workbook.xml.rels"))
	shared := parseSharedStrings(readZipFile(zr, "xl/sharedStrings.xml"))

	target, err := resolveSheet(sheets, rels, sheetName, sheetIndex)
	if err != nil {
		return nil, err
	}
	sheetXML := readZipFile(zr, target)
	if sheetXML == nil {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, target)
	}

	rr := newRowReader(sheetXML, shared)
	header, ok := rr.Next()
	if !ok || len(header) == 0 {
		return nil, ErrEmptyInput
	}
	var records [][]string
	for {
		row, ok := rr.Next()
		if !ok {
			break
		}
		if blankRecord(row) {
			continue
		}
		records = append(records, row)
	}
	return TableFromRecords(header, records), nil
}

func resolveSheet(sheets []workbookSheet, rels map[string]string, name string, index int) (string, error) {
	if name != "" {
		for _, s := range sheets {
			if strings.EqualFold(s.Name, name) {
				if rel, ok := rels[s.RID]; ok {
					return normalizeRelPath(rel), nil
				}
			}
		}
		names := make([]string, len(sheets))
		for i, s := range sheets {
			names[i] = s.Name
		}
		return "", fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, name, strings.Join(names, ", "))
	}
	if index <= 0 {
		index = 1
	}
	for _, s := range sheets {
		if s.SheetID == index {
			if rel, ok := rels[s.RID]; ok {
				return normalizeRelPath(rel), nil
			}
		}
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", index), nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

type workbookSheet struct {
	Name    string
	SheetID int
	RID     string
}

// parseWorkbook lists <sheet> entries from xl/workbook.xml.
func parseWorkbook(data []byte) []workbookSheet {
	var sheets []workbookSheet
	eachStart(data, func(se xml.StartElement) {
		if se.Name.Local != "sheet" {
			return
		}
		var s workbookSheet
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "name":
				s.Name = a.Value
			case "sheetId":
				s.SheetID = atoiSafe(a.Value)
			case "id":
				s.RID = a.Value
			}
		}
		sheets = append(sheets, s)
	})
	return sheets
}

// parseRelationships maps relationship ids to their targets.
func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	eachStart(data, func(se xml.StartElement) {
		if se.Name.Local != "Relationship" {
			return
		}
		var id, target string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "Id":
				id = a.Value
			case "Target":
				target = a.Value
			}
		}
		if id != "" && target != "" {
			out[id] = target
		}
	})
	return out
}

func eachStart(data []byte, fn func(xml.StartElement)) {
	if len(data) == 0 {
		return
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if se, ok := tok.(xml.StartElement); ok {
			fn(se)
		}
	}
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out []string
		buf strings.Builder
		inT bool
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inT = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inT {
				buf.Write(el)
			}
		}
	}
}

func readZipFile(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil
		}
		return b
	}
	return nil
}

// rowReader streams rows from a worksheet.
type rowReader struct {
	dec    *xml.Decoder
	shared []string
}

func newRowReader(data []byte, shared []string) *rowReader {
	return &rowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Next returns the following <row> as a dense slice of cell strings.
func (r *rowReader) Next() ([]string, bool) {
	var (
		row   []string
		inRow bool
	)
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, false
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "row" {
				inRow = true
				row = nil
				continue
			}
			if !inRow || el.Name.Local != "c" {
				continue
			}
			var ref, typ string
			for _, a := range el.Attr {
				switch a.Name.Local {
				case "r":
					ref = a.Value
				case "t":
					typ = a.Value
				}
			}
			col := colIndexFromRef(ref)
			if col < 0 {
				col = len(row)
			}
			for len(row) <= col {
				row = append(row, "")
			}
			row[col] = r.cellValue(typ)
		case xml.EndElement:
			if el.Name.Local == "row" && inRow {
				return row, true
			}
		}
	}
}

// cellValue consumes tokens through </c> and returns the cell text.
func (r *rowReader) cellValue(typ string) string {
	var (
		val    strings.Builder
		inText bool
	)
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return val.String()
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "v" || el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "v", "t":
				inText = false
			case "c":
				if typ == "s" {
					idx := atoiSafe(val.String())
					if idx >= 0 && idx < len(r.shared) {
						return r.shared[idx]
					}
					return ""
				}
				return val.String()
			}
		case xml.CharData:
			if inText {
				val.Write(el)
			}
		}
	}
}

// colIndexFromRef converts a cell reference like "C12" to a 0-based column (2).
// It returns -1 when the reference carries no column letters.
func colIndexFromRef(ref string) int {
	idx := 0
	n := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts relationship targets into zip entry names.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
