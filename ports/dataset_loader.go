package ports

import (
	"context"

	"tableserve/domain/table"
)

// DatasetLoader provides a fresh, read-only view of the tabular source.
// Implementations never fail: an unavailable or malformed source loads as an empty table.
type DatasetLoader interface {
	// LoadDataset returns every row in source order.
	LoadDataset(ctx context.Context) table.Dataset

	// LoadTable returns rows together with the original cell text used for index lookups.
	LoadTable(ctx context.Context) *table.Table
}
