package analysis

import (
	"encoding/json"
	"math"
	"strconv"
)

// DefaultSampleSize is the number of leading rows inspected to classify a column.
const DefaultSampleSize = 10

// Kind names the classification of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// ColumnProfile is either a NumericProfile or a CategoricalProfile.
// Use a type switch to handle both.
type ColumnProfile interface {
	Kind() Kind
	isColumnProfile()
}

// NumericProfile summarizes a column whose sampled values all parse as numbers.
// When Count is zero no value parsed and Min, Max and Average are zero.
type NumericProfile struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

func (NumericProfile) Kind() Kind      { return KindNumeric }
func (NumericProfile) isColumnProfile() {}

// Empty reports whether no value in the column could be parsed.
func (p NumericProfile) Empty() bool { return p.Count == 0 }

// MarshalJSON tags the encoded profile with its kind.
func (p NumericProfile) MarshalJSON() ([]byte, error) {
	type plain NumericProfile
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		plain
	}{KindNumeric, plain(p)})
}

// CategoricalProfile summarizes a column treated as free text.
type CategoricalProfile struct {
	UniqueValueCount int `json:"unique_value_count"`
	TotalCount       int `json:"total_count"`
}

func (CategoricalProfile) Kind() Kind      { return KindCategorical }
func (CategoricalProfile) isColumnProfile() {}

// ProfileColumn classifies values by their first sampleSize entries and
// computes the matching statistics over every value.
func ProfileColumn(values []string, sampleSize int) ColumnProfile {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	n := sampleSize
	if len(values) < n {
		n = len(values)
	}
	numeric := true
	for _, v := range values[:n] {
		if v == "" {
			numeric = false
			break
		}
		if _, ok := parseNumber(v); !ok {
			numeric = false
			break
		}
	}
	if numeric {
		return numericProfile(values)
	}
	uniq := make(map[string]struct{}, len(values))
	for _, v := range values {
		uniq[v] = struct{}{}
	}
	return CategoricalProfile{UniqueValueCount: len(uniq), TotalCount: len(values)}
}

func numericProfile(values []string) NumericProfile {
	p := NumericProfile{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range values {
		x, ok := parseNumber(v)
		if !ok {
			continue
		}
		p.Count++
		sum += x
		if x < p.Min {
			p.Min = x
		}
		if x > p.Max {
			p.Max = x
		}
	}
	if p.Count == 0 {
		return NumericProfile{}
	}
	p.Average = sum / float64(p.Count)
	return p
}

// parseNumber accepts finite values in strconv.ParseFloat syntax.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// MarshalJSON tags the encoded profile with its kind.
func (p CategoricalProfile) MarshalJSON() ([]byte, error) {
	type plain CategoricalProfile
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		plain
	}{KindCategorical, plain(p)})
}
