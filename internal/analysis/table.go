package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyInput is returned when delimited text contains no non-blank lines.
var ErrEmptyInput = errors.New("empty file")

// ErrUnsupportedJSON indicates a JSON document that cannot be viewed as a table.
var ErrUnsupportedJSON = errors.New("unsupported JSON shape: expected {headers, rows} or an array of objects")

// Row maps a header name to the cell value in that column.
type Row map[string]string

// Table is a header list plus the rows parsed beneath it.
type Table struct {
	Headers []string
	Rows    []Row
	// Skipped counts data lines dropped because their field count
	// did not match the header.
	Skipped int
}

// Column returns the values of the named column in row order.
func (t *Table) Column(name string) []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[name]
	}
	return out
}

// ParseDelimited parses comma separated text into a Table.
//
// Quoting is not interpreted: every double quote is stripped and a comma inside
// a quoted field splits it, which usually causes the row to be dropped.
func ParseDelimited(text string) (*Table, error) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyInput
	}
	t := &Table{Headers: splitFields(lines[0])}
	for _, l := range lines[1:] {
		vals := splitFields(l)
		if len(vals) != len(t.Headers) {
			t.Skipped++
			continue
		}
		t.Rows = append(t.Rows, rowFrom(t.Headers, vals))
	}
	return t, nil
}

// TableFromRecords builds a Table from a header record and raw records.
// Short records are padded with empty cells; long records are truncated.
func TableFromRecords(header []string, records [][]string) *Table {
	t := &Table{Headers: make([]string, len(header))}
	for i, h := range header {
		t.Headers[i] = strings.TrimSpace(h)
	}
	for _, rec := range records {
		vals := make([]string, len(t.Headers))
		for i := range vals {
			if i < len(rec) {
				vals[i] = strings.TrimSpace(rec[i])
			}
		}
		t.Rows = append(t.Rows, rowFrom(t.Headers, vals))
	}
	return t
}

// TableFromJSON converts a JSON document into a Table.
// Accepted shapes are {"headers": [...], "rows": [{...}]} and [{...}, ...].
func TableFromJSON(data []byte) (*Table, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	switch doc := v.(type) {
	case map[string]any:
		rawHeaders, okH := doc["headers"].([]any)
		rawRows, okR := doc["rows"].([]any)
		if !okH || !okR {
			return nil, ErrUnsupportedJSON
		}
		t := &Table{}
		for _, h := range rawHeaders {
			t.Headers = append(t.Headers, stringify(h))
		}
		for _, rr := range rawRows {
			obj, ok := rr.(map[string]any)
			if !ok {
				return nil, ErrUnsupportedJSON
			}
			row := make(Row, len(t.Headers))
			for _, h := range t.Headers {
				row[h] = stringify(obj[h])
			}
			t.Rows = append(t.Rows, row)
		}
		return t, nil
	case []any:
		t := &Table{}
		seen := map[string]bool{}
		objs := make([]map[string]any, 0, len(doc))
		for _, item := range doc {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, ErrUnsupportedJSON
			}
			objs = append(objs, obj)
		}
		// json.Unmarshal into map loses key order, so re-scan the raw objects.
		order, err := objectKeyOrder(data)
		if err != nil {
			return nil, err
		}
		for _, k := range order {
			if !seen[k] {
				seen[k] = true
				t.Headers = append(t.Headers, k)
			}
		}
		for _, obj := range objs {
			row := make(Row, len(t.Headers))
			for _, h := range t.Headers {
				row[h] = stringify(obj[h])
			}
			t.Rows = append(t.Rows, row)
		}
		return t, nil
	default:
		return nil, ErrUnsupportedJSON
	}
}

// objectKeyOrder walks an array of objects and returns keys in first-seen order.
func objectKeyOrder(data []byte) ([]string, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	var keys []string
	for _, raw := range items {
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("parse json: %w", err)
			}
			k, _ := tok.(string)
			keys = append(keys, k)
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("parse json: %w", err)
			}
		}
	}
	return keys, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func splitFields(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.TrimSpace(p), `"`, "")
	}
	return parts
}

func rowFrom(headers, vals []string) Row {
	r := make(Row, len(headers))
	for i, h := range headers {
		r[h] = vals[i]
	}
	return r
}
