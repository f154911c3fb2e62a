package tabular

import (
	"tableserve/adapters/tabular/coercer"
)

// SourceConfig describes where and how the tabular source is read
type SourceConfig struct {
	FilePath       string                 `json:"file_path"`
	Delimiter      rune                   `json:"delimiter"`
	Sheet          string                 `json:"sheet"` // xlsx only; empty selects the first sheet
	CoercionConfig coercer.CoercionConfig `json:"coercion_config"`
}

// DefaultSourceConfig returns comma-delimited defaults for the given file
func DefaultSourceConfig(filePath string) SourceConfig {
	return SourceConfig{
		FilePath:       filePath,
		Delimiter:      ',',
		CoercionConfig: coercer.DefaultCoercionConfig(),
	}
}
