package coercer

import (
	"math"
	"strconv"
	"strings"
)

// ValueType is the JSON type a column is coerced to
type ValueType string

const (
	ValueTypeInteger ValueType = "integer"
	ValueTypeFloat   ValueType = "float"
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeString  ValueType = "string"
	// ValueTypeEmpty marks a column with no non-missing cells; every value is null.
	ValueTypeEmpty ValueType = "empty"
)

// CoercionConfig defines which tokens count as missing or boolean
type CoercionConfig struct {
	MissingTokens []string `json:"missing_tokens"`
	TrueTokens    []string `json:"true_tokens"`
	FalseTokens   []string `json:"false_tokens"`
	TrimStrings   bool     `json:"trim_strings"` // trim surrounding whitespace of string cells
}

// DefaultCoercionConfig mirrors the usual dataframe defaults for NA and boolean tokens
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		MissingTokens: []string{
			"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
			"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
			"n/a", "nan", "null",
		},
		TrueTokens:  []string{"True", "TRUE", "true"},
		FalseTokens: []string{"False", "FALSE", "false"},
		TrimStrings: false,
	}
}

// TypeCoercer infers one type per column and converts cells deterministically
type TypeCoercer struct {
	config  CoercionConfig
	missing map[string]struct{}
	bools   map[string]bool
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	c := &TypeCoercer{
		config:  config,
		missing: make(map[string]struct{}, len(config.MissingTokens)),
		bools:   make(map[string]bool, len(config.TrueTokens)+len(config.FalseTokens)),
	}
	for _, tok := range config.MissingTokens {
		c.missing[tok] = struct{}{}
	}
	for _, tok := range config.TrueTokens {
		c.bools[tok] = true
	}
	for _, tok := range config.FalseTokens {
		c.bools[tok] = false
	}
	return c
}

// TypeAnalysis contains the results of type distribution analysis for one column
type TypeAnalysis struct {
	TotalCount      int       `json:"total_count"`
	ValidCount      int       `json:"valid_count"`
	MissingCount    int       `json:"missing_count"`
	IntegerCount    int       `json:"integer_count"`
	NumericCount    int       `json:"numeric_count"`
	BooleanCount    int       `json:"boolean_count"`
	RecommendedType ValueType `json:"recommended_type"`
}

// IsMissing reports whether a raw cell is one of the configured missing tokens
func (c *TypeCoercer) IsMissing(raw string) bool {
	_, ok := c.missing[raw]
	return ok
}

// AnalyzeColumn counts how many cells parse as each type and picks the column type
func (c *TypeCoercer) AnalyzeColumn(values []string) TypeAnalysis {
	analysis := TypeAnalysis{TotalCount: len(values)}

	for _, raw := range values {
		if c.IsMissing(raw) {
			analysis.MissingCount++
			continue
		}
		analysis.ValidCount++

		s := strings.TrimSpace(raw)
		if _, ok := parseInteger(s); ok {
			analysis.IntegerCount++
		}
		if _, ok := parseFloat(s); ok {
			analysis.NumericCount++
		}
		if _, ok := c.parseBoolean(s); ok {
			analysis.BooleanCount++
		}
	}

	analysis.RecommendedType = c.determineRecommendedType(analysis)
	return analysis
}

// determineRecommendedType requires every non-missing cell to agree; anything mixed stays a string.
// Integer columns with gaps widen to float, the way dataframe readers represent NaN.
func (c *TypeCoercer) determineRecommendedType(analysis TypeAnalysis) ValueType {
	switch {
	case analysis.ValidCount == 0:
		return ValueTypeEmpty
	case analysis.IntegerCount == analysis.ValidCount:
		if analysis.MissingCount == 0 {
			return ValueTypeInteger
		}
		return ValueTypeFloat
	case analysis.NumericCount == analysis.ValidCount:
		return ValueTypeFloat
	case analysis.BooleanCount == analysis.ValidCount:
		return ValueTypeBoolean
	default:
		return ValueTypeString
	}
}

// CoerceColumn infers the column type and converts every cell, preserving order
func (c *TypeCoercer) CoerceColumn(values []string) ([]any, ValueType) {
	valueType := c.AnalyzeColumn(values).RecommendedType
	out := make([]any, len(values))
	for i, raw := range values {
		out[i] = c.CoerceValue(raw, valueType)
	}
	return out, valueType
}

// CoerceValue converts a raw cell to the given column type; missing cells become nil
func (c *TypeCoercer) CoerceValue(raw string, valueType ValueType) any {
	if c.IsMissing(raw) {
		return nil
	}
	s := strings.TrimSpace(raw)

	switch valueType {
	case ValueTypeInteger:
		if n, ok := parseInteger(s); ok {
			return n
		}
	case ValueTypeFloat:
		if f, ok := parseFloat(s); ok {
			return f
		}
	case ValueTypeBoolean:
		if b, ok := c.parseBoolean(s); ok {
			return b
		}
	case ValueTypeEmpty:
		return nil
	}

	if c.config.TrimStrings {
		return s
	}
	return raw
}

func parseInteger(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseFloat accepts decimal and scientific notation. Hex floats, digit separators
// and non-finite values are rejected since JSON cannot carry the latter.
func parseFloat(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func (c *TypeCoercer) parseBoolean(s string) (bool, bool) {
	b, ok := c.bools[s]
	return b, ok
}
