package tabular

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"tableserve/domain/table"
	"tableserve/internal"
	"tableserve/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestLoader(path string) (*FileLoader, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewFileLoader(DefaultSourceConfig(path), internal.NewLogger(internal.LogLevelDebug, &buf)), &buf
}

func TestReadRenamesIndexColumn(t *testing.T) {
	path := writeFile(t, "Table_Input.csv", "Index #,Value,Label\n1,10.5,alpha\n2,20,beta\n3,,gamma\n")
	loader, _ := newTestLoader(path)

	tbl, err := loader.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"index", "Value", "Label"}, tbl.Columns)
	rows := tbl.Dataset()
	require.Len(t, rows, 3)

	for i, row := range rows {
		assert.Contains(t, row, table.IndexField)
		assert.NotContains(t, row, table.SourceIndexColumn)
		assert.Equal(t, int64(i+1), row[table.IndexField])
	}
	assert.Equal(t, 10.5, rows[0]["Value"])
	assert.Equal(t, 20.0, rows[1]["Value"])
	assert.Nil(t, rows[2]["Value"])
	assert.Equal(t, []any{"alpha", "beta", "gamma"}, []any{rows[0]["Label"], rows[1]["Label"], rows[2]["Label"]})

	text, ok := tbl.Records[1].IndexText()
	assert.True(t, ok)
	assert.Equal(t, "2", text)
}

func TestReadWithoutIndexColumn(t *testing.T) {
	path := writeFile(t, "data.csv", "name,qty\nbolt,4\n")
	loader, _ := newTestLoader(path)

	rows := loader.LoadDataset(context.Background())

	require.Len(t, rows, 1)
	assert.Equal(t, table.Row{"name": "bolt", "qty": int64(4)}, rows[0])
}

func TestLoadDatasetMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.csv")
	loader, logs := newTestLoader(path)

	_, err := loader.Read(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeSourceError, errors.GetCode(err))
	assert.ErrorIs(t, err, os.ErrNotExist)

	rows := loader.LoadDataset(context.Background())
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.Contains(t, logs.String(), "serving empty dataset")
}

func TestLoadDatasetMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unterminated quote", "Index #,name\n1,\"broken\n"},
		{"quoted field runs to end of file", "Index #,name\n1,\"a\"b\n2,c\n"},
		{"extra fields", "Index #,name\n1,a\n2,b,c\n"},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, _ := newTestLoader(writeFile(t, "bad.csv", tt.content))

			_, err := loader.Read(context.Background())
			require.Error(t, err)
			assert.Equal(t, errors.CodeParseError, errors.GetCode(err))

			rows := loader.LoadDataset(context.Background())
			assert.NotNil(t, rows)
			assert.Empty(t, rows)
		})
	}
}

func TestReadStrayQuotes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []any
	}{
		{"quote inside unquoted field", "Index #,name\n1,O\"Brien\n2,plain\n", []any{"O\"Brien", "plain"}},
		{"inch mark", "Index #,name\n1,12\" pipe\n2,3/4\" pipe\n", []any{"12\" pipe", "3/4\" pipe"}},
		{"quote inside quoted field", "Index #,name\n1,\"a\"b\"\n2,\"c,d\"\n", []any{"a\"b", "c,d"}},
		{"escaped quote", "Index #,name\n1,\"say \"\"hi\"\"\"\n2,x\n", []any{"say \"hi\"", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, _ := newTestLoader(writeFile(t, "quotes.csv", tt.content))

			rows := loader.LoadDataset(context.Background())

			require.Len(t, rows, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, int64(i+1), rows[i][table.IndexField])
				assert.Equal(t, want, rows[i]["name"])
			}
		})
	}
}

func TestReadDuplicateIndexColumns(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantIndex []any
		matches   map[string]int
	}{
		{
			name:      "renamed column wins",
			content:   "index,Index #,name\na,1,x\nb,2,y\n",
			wantIndex: []any{int64(1), int64(2)},
			matches:   map[string]int{"1": 1, "2": 1, "a": 0, "b": 0},
		},
		{
			name:      "missing cell in later column",
			content:   "index,Index #,name\na,1,x\nb,NA,y\n",
			wantIndex: []any{1.0, nil},
			matches:   map[string]int{"1": 1, "b": 0, "NA": 0},
		},
		{
			name:      "short row leaves later column empty",
			content:   "index,name,Index #\na,x,1\nb,y\n",
			wantIndex: []any{int64(1), nil},
			matches:   map[string]int{"1": 1, "b": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, _ := newTestLoader(writeFile(t, "dup.csv", tt.content))

			tbl, err := loader.Read(context.Background())
			require.NoError(t, err)

			rows := tbl.Dataset()
			require.Len(t, rows, len(tt.wantIndex))
			for i, want := range tt.wantIndex {
				assert.Equal(t, want, rows[i][table.IndexField])
			}
			for value, n := range tt.matches {
				assert.Len(t, tbl.MatchIndex(value), n, "index %q", value)
			}
		})
	}
}

func TestReadHeaderOnly(t *testing.T) {
	loader, _ := newTestLoader(writeFile(t, "header.csv", "Index #,name\n"))

	tbl, err := loader.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"index", "name"}, tbl.Columns)
	assert.Empty(t, tbl.Dataset())
}

func TestReadShortRowsAndBlankLines(t *testing.T) {
	loader, _ := newTestLoader(writeFile(t, "short.csv", "Index #,a,b\n1,x,y\n\n2,z\n"))

	tbl, err := loader.Read(context.Background())
	require.NoError(t, err)

	rows := tbl.Dataset()
	require.Len(t, rows, 2)
	assert.Equal(t, "z", rows[1]["a"])
	assert.Contains(t, rows[1], "b")
	assert.Nil(t, rows[1]["b"])
}

func TestReadHeaderNormalization(t *testing.T) {
	loader, _ := newTestLoader(writeFile(t, "dupes.csv", "a,a,,a.1,a\n1,2,3,4,5\n"))

	tbl, err := loader.Read(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.1.1", "a.2"}, tbl.Columns)
	assert.Equal(t, int64(5), tbl.Dataset()[0]["a.2"])
}

func TestReadStripsBOM(t *testing.T) {
	loader, _ := newTestLoader(writeFile(t, "bom.csv", "\xEF\xBB\xBFIndex #,name\n7,seven\n"))

	rows := loader.LoadDataset(context.Background())

	require.Len(t, rows, 1)
	assert.Equal(t, int64(7), rows[0]["index"])
}

func TestReadCustomDelimiter(t *testing.T) {
	config := DefaultSourceConfig(writeFile(t, "data.tsv", "Index #\tname\n1\tone two\n"))
	config.Delimiter = '\t'
	loader := NewFileLoader(config, nil)

	rows := loader.LoadDataset(context.Background())

	require.Len(t, rows, 1)
	assert.Equal(t, "one two", rows[0]["name"])
}

func TestReadMissingIndexCellDoesNotMatch(t *testing.T) {
	loader, _ := newTestLoader(writeFile(t, "gaps.csv", "Index #,name\nNA,x\n ,y\n"))

	tbl, err := loader.Read(context.Background())
	require.NoError(t, err)

	_, ok := tbl.Records[0].IndexText()
	assert.False(t, ok)
	assert.Empty(t, tbl.MatchIndex("NA"))
}

func TestReadReflectsFileChanges(t *testing.T) {
	path := writeFile(t, "live.csv", "Index #,name\n1,a\n")
	loader, _ := newTestLoader(path)

	first := loader.LoadDataset(context.Background())
	require.Len(t, first, 1)

	require.NoError(t, os.WriteFile(path, []byte("Index #,name\n1,a\n2,b\n"), 0o644))
	second := loader.LoadDataset(context.Background())
	require.Len(t, second, 2)

	require.NoError(t, os.Remove(path))
	assert.Empty(t, loader.LoadDataset(context.Background()))
}

func TestReadCanceledContext(t *testing.T) {
	loader, _ := newTestLoader(writeFile(t, "data.csv", "Index #,name\n1,a\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, loader.LoadDataset(ctx))
}

func TestReadExcelWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Table_Input.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Index #", "name", "score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{1, "alpha", 1.5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{2, "beta"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	loader, _ := newTestLoader(path)
	tbl, err := loader.Read(context.Background())
	require.NoError(t, err)

	rows := tbl.Dataset()
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["index"])
	assert.Equal(t, "alpha", rows[0]["name"])
	assert.Equal(t, 1.5, rows[0]["score"])
	assert.Equal(t, int64(2), rows[1]["index"])
	assert.Nil(t, rows[1]["score"])
	assert.Len(t, tbl.MatchIndex("2"), 1)
}

func TestReadExcelUnknownSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Index #"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	config := DefaultSourceConfig(path)
	config.Sheet = "Missing"
	loader := NewFileLoader(config, nil)

	_, err := loader.Read(context.Background())
	require.Error(t, err)
	assert.Empty(t, loader.LoadDataset(context.Background()))
}
