package app

import (
	"context"
	"fmt"

	"tableserve/domain/table"
	"tableserve/internal/errors"
	"tableserve/ports"
)

// TableService answers read queries against a freshly loaded dataset
type TableService struct {
	loader ports.DatasetLoader
}

// NewTableService creates a table service over the given loader
func NewTableService(loader ports.DatasetLoader) *TableService {
	return &TableService{loader: loader}
}

// ListRows returns every row in source order; an unavailable source yields an empty dataset
func (s *TableService) ListRows(ctx context.Context) table.Dataset {
	rows := s.loader.LoadDataset(ctx)
	if rows == nil {
		return table.Empty()
	}
	return rows
}

// RowsByIndex returns the rows whose index equals value, or a NOT_FOUND error when none do
func (s *TableService) RowsByIndex(ctx context.Context, value string) (table.Dataset, error) {
	matches := s.loader.LoadTable(ctx).MatchIndex(value)
	if len(matches) == 0 {
		return nil, errors.NotFound(fmt.Sprintf("row with index %q", value))
	}
	return matches, nil
}
