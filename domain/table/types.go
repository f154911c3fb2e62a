// Package table holds the row model served by the API.
package table

// IndexField is the field used for point lookups.
const IndexField = "index"

// SourceIndexColumn is the header renamed to IndexField on load.
const SourceIndexColumn = "Index #"

// Row maps a column name to its cell value: string, int64, float64, bool or nil.
type Row map[string]any

// Dataset is the ordered set of rows produced by one load of the source.
// A nil Dataset is never returned by loaders; empty means no data.
type Dataset []Row

// Empty returns a non-nil, zero-length dataset so it encodes as [] rather than null.
func Empty() Dataset {
	return Dataset{}
}

// Record is a loaded row together with the original cell text, keyed like Row.
type Record struct {
	Values Row
	Raw    map[string]string
}

// IndexText returns the trimmed source text of the index cell and whether the row has one.
func (r Record) IndexText() (string, bool) {
	v, ok := r.Raw[IndexField]
	return v, ok
}

// Table is the full result of reading a source: column order plus records in file order.
type Table struct {
	Columns []string
	Records []Record
}

// Dataset drops the raw text and returns just the typed rows, never nil.
func (t *Table) Dataset() Dataset {
	if t == nil {
		return Empty()
	}
	rows := make(Dataset, 0, len(t.Records))
	for _, rec := range t.Records {
		rows = append(rows, rec.Values)
	}
	return rows
}

// MatchIndex returns the rows whose index cell text equals value, in file order.
// Comparison is exact on the trimmed source text, independent of the inferred type.
func (t *Table) MatchIndex(value string) Dataset {
	matches := Empty()
	if t == nil {
		return matches
	}
	for _, rec := range t.Records {
		if text, ok := rec.IndexText(); ok && text == value {
			matches = append(matches, rec.Values)
		}
	}
	return matches
}
