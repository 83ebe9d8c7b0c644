package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	mdparser "github.com/gomarkdown/markdown/parser"
)

// Options controls analysis behavior for tabular data.
type Options struct {
	// SampleSize is how many leading rows decide a column's kind. 0 means DefaultSampleSize.
	SampleSize int
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{SampleSize: DefaultSampleSize}
}

// Report is the outcome of one analysis call. It is not modified after Analyze returns.
type Report struct {
	SourceName  string                   `json:"source_name"`
	RowCount    int                      `json:"row_count"`
	ColumnCount int                      `json:"column_count"`
	ColumnNames []string                 `json:"column_names"`
	Insights    []string                 `json:"insights"`
	Profiles    map[string]ColumnProfile `json:"profiles"`
	Suggestions []string                 `json:"visualization_suggestions"`
	SkippedRows int                      `json:"skipped_rows"`
}

// AnalyzeText parses delimited text and analyzes the resulting table.
func AnalyzeText(text, name string, opt Options) (*Report, error) {
	t, err := ParseDelimited(text)
	if err != nil {
		return nil, err
	}
	return Analyze(t, name, opt), nil
}

// AnalyzeJSON decodes a JSON table and analyzes it.
func AnalyzeJSON(data []byte, name string, opt Options) (*Report, error) {
	t, err := TableFromJSON(data)
	if err != nil {
		return nil, err
	}
	return Analyze(t, name, opt), nil
}

// Analyze profiles every column of t and derives insights and suggestions.
func Analyze(t *Table, name string, opt Options) *Report {
	rep := &Report{
		SourceName:  name,
		RowCount:    len(t.Rows),
		ColumnCount: len(t.Headers),
		ColumnNames: append([]string(nil), t.Headers...),
		Profiles:    make(map[string]ColumnProfile, len(t.Headers)),
		SkippedRows: t.Skipped,
	}
	var numeric, categorical []string
	for _, h := range t.Headers {
		if _, dup := rep.Profiles[h]; dup {
			continue
		}
		p := ProfileColumn(t.Column(h), opt.SampleSize)
		rep.Profiles[h] = p
		switch p.(type) {
		case NumericProfile:
			numeric = append(numeric, h)
		case CategoricalProfile:
			categorical = append(categorical, h)
		}
	}
	rep.Insights, rep.Suggestions = Recommend(rep.RowCount, rep.ColumnCount, numeric, categorical)
	return rep
}

// NumericColumns returns the names of numeric columns in header order.
func (r *Report) NumericColumns() []string { return r.columnsOf(KindNumeric) }

// CategoricalColumns returns the names of categorical columns in header order.
func (r *Report) CategoricalColumns() []string { return r.columnsOf(KindCategorical) }

func (r *Report) columnsOf(k Kind) []string {
	var out []string
	seen := map[string]bool{}
	for _, name := range r.ColumnNames {
		if seen[name] {
			continue
		}
		seen[name] = true
		if p, ok := r.Profiles[name]; ok && p.Kind() == k {
			out = append(out, name)
		}
	}
	return out
}

// Markdown renders a compact report suitable for chat replies or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("## Analysis: ")
	b.WriteString(safeName(r.SourceName))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("- Total rows: %d\n", r.RowCount))
	b.WriteString(fmt.Sprintf("- Total columns: %d\n", r.ColumnCount))

	if len(r.Insights) > 0 {
		b.WriteString("\n### Key Insights\n\n")
		for _, in := range r.Insights {
			b.WriteString("- ")
			b.WriteString(in)
			b.WriteString("\n")
		}
	}

	if nums := r.NumericColumns(); len(nums) > 0 {
		b.WriteString("\n### Numeric Analysis\n\n")
		for _, name := range nums {
			p := r.Profiles[name].(NumericProfile)
			if p.Empty() {
				b.WriteString(fmt.Sprintf("- **%s**: Min: n/a, Max: n/a, Avg: n/a\n", safeVal(name)))
				continue
			}
			b.WriteString(fmt.Sprintf("- **%s**: Min: %.2f, Max: %.2f, Avg: %.2f\n", safeVal(name), p.Min, p.Max, p.Average))
		}
	}

	if cats := r.CategoricalColumns(); len(cats) > 0 {
		b.WriteString("\n### Text Columns\n\n")
		for _, name := range cats {
			p := r.Profiles[name].(CategoricalProfile)
			b.WriteString(fmt.Sprintf("- **%s**: %d unique of %d\n", safeVal(name), p.UniqueValueCount, p.TotalCount))
		}
	}

	if len(r.Suggestions) > 0 {
		b.WriteString("\n### Suggested Visualizations\n\n")
		for _, s := range r.Suggestions {
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}

	if r.SkippedRows > 0 {
		b.WriteString("\n### Notes\n\n")
		b.WriteString(fmt.Sprintf("- skipped %d malformed row(s) whose field count did not match the header\n", r.SkippedRows))
	}
	return b.String()
}

// HTML renders the Markdown report as an HTML fragment.
func (r *Report) HTML() []byte {
	p := mdparser.NewWithExtensions(mdparser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(r.Markdown()), p, renderer)
}

// SortedProfileNames returns profile keys in lexical order, for stable output.
func (r *Report) SortedProfileNames() []string {
	keys := make([]string, 0, len(r.Profiles))
	for k := range r.Profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
