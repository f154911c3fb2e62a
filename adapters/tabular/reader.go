package tabular

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tableserve/adapters/tabular/coercer"
	"tableserve/domain/table"
	"tableserve/internal"
	"tableserve/internal/errors"
	"tableserve/ports"

	"github.com/xuri/excelize/v2"
)

const (
	fileTypeDelimited = "csv"
	fileTypeXLSX      = "xlsx"

	// ctxCheckEvery bounds how many records are read between cancellation checks.
	ctxCheckEvery = 1024
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var _ ports.DatasetLoader = (*FileLoader)(nil)

// FileLoader reads the configured file from disk on every call.
type FileLoader struct {
	config   SourceConfig
	fileType string
	coercer  *coercer.TypeCoercer
	logger   *internal.Logger
}

// NewFileLoader creates a loader for CSV/TSV and xlsx files, chosen by extension
func NewFileLoader(config SourceConfig, logger *internal.Logger) *FileLoader {
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	fileType := fileTypeDelimited
	switch strings.ToLower(filepath.Ext(config.FilePath)) {
	case ".xlsx", ".xlsm":
		fileType = fileTypeXLSX
	}
	return &FileLoader{
		config:   config,
		fileType: fileType,
		coercer:  coercer.NewTypeCoercer(config.CoercionConfig),
		logger:   logger,
	}
}

// LoadDataset returns the rows of the source, or an empty dataset if it cannot be read
func (l *FileLoader) LoadDataset(ctx context.Context) table.Dataset {
	return l.LoadTable(ctx).Dataset()
}

// LoadTable is Read with failures degraded to an empty table
func (l *FileLoader) LoadTable(ctx context.Context) *table.Table {
	tbl, err := l.Read(ctx)
	if err != nil {
		l.logger.Warn("[FileLoader] serving empty dataset: %v", err)
		return &table.Table{}
	}
	return tbl
}

// Read loads the source and reports why it could not, for callers that need to know
func (l *FileLoader) Read(ctx context.Context) (*table.Table, error) {
	start := time.Now()

	var (
		rows [][]string
		err  error
	)
	switch l.fileType {
	case fileTypeXLSX:
		rows, err = l.readExcelRows(ctx)
	default:
		rows, err = l.readDelimitedRows(ctx)
	}
	if err != nil {
		return nil, err
	}

	tbl, err := l.processRows(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", l.config.FilePath)
	}

	l.logger.Debug("[FileLoader] %s loaded in %.2fms (%d columns, %d rows)",
		l.config.FilePath, float64(time.Since(start).Nanoseconds())/1e6, len(tbl.Columns), len(tbl.Records))
	return tbl, nil
}

// readDelimitedRows reads every record of a CSV/TSV file; blank lines are skipped by the reader
func (l *FileLoader) readDelimitedRows(ctx context.Context) ([][]string, error) {
	file, err := os.Open(l.config.FilePath)
	if err != nil {
		return nil, errors.SourceError(l.config.FilePath, err)
	}
	defer file.Close()

	data, err := io.ReadAll(bufio.NewReader(file))
	if err != nil {
		return nil, errors.SourceError(l.config.FilePath, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	// A quote is only special at the start of a field, so O"Brien loads as written.
	// Lazy quoting would also accept a quoted field running into end of file; reject that.
	if unterminatedQuote(data, l.config.Delimiter) {
		return nil, errors.ParseError("quoted field not terminated before end of file")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = l.config.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		if len(rows)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ParseError(err.Error()), "failed to read delimited file")
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// readExcelRows reads the configured sheet, or the first one, of a workbook
func (l *FileLoader) readExcelRows(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(l.config.FilePath); err != nil {
		return nil, errors.SourceError(l.config.FilePath, err)
	}

	f, err := excelize.OpenFile(l.config.FilePath)
	if err != nil {
		return nil, errors.Wrap(errors.ParseError(err.Error()), "failed to open workbook")
	}
	defer f.Close()

	sheet := l.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.ParseError("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(errors.ParseError(err.Error()), "failed to read sheet %s", sheet)
	}

	// Blank spreadsheet rows come back as empty slices; drop them like blank CSV lines.
	nonEmpty := rows[:0]
	for _, row := range rows {
		if len(row) > 0 {
			nonEmpty = append(nonEmpty, row)
		}
	}
	return nonEmpty, nil
}

// processRows turns the header and data rows into typed records in file order
func (l *FileLoader) processRows(rows [][]string) (*table.Table, error) {
	if len(rows) == 0 {
		return nil, errors.ParseError("no header row")
	}

	headers := normalizeHeaders(rows[0])
	data := rows[1:]

	records := make([]table.Record, len(data))
	for i, row := range data {
		if len(row) > len(headers) {
			return nil, errors.ParseError(fmt.Sprintf("row %d has %d fields, header has %d", i+2, len(row), len(headers)))
		}
		values := make(table.Row, len(headers))
		for _, h := range headers {
			values[h] = nil
		}
		records[i] = table.Record{Values: values, Raw: make(map[string]string, len(headers))}
	}

	// Columns are applied left to right, so when two headers share a name
	// (index and a renamed Index #) the rightmost column wins, gaps included.
	for j, name := range headers {
		var cells []string
		for _, row := range data {
			if j < len(row) {
				cells = append(cells, row[j])
			}
		}

		coerced, valueType := l.coercer.CoerceColumn(cells)
		l.logger.Debug("[FileLoader] column %q inferred as %s", name, valueType)

		k := 0
		for i, row := range data {
			rec := records[i]
			if j >= len(row) {
				rec.Values[name] = nil
				delete(rec.Raw, name)
				continue
			}
			rec.Values[name] = coerced[k]
			if l.coercer.IsMissing(cells[k]) {
				delete(rec.Raw, name)
			} else {
				rec.Raw[name] = strings.TrimSpace(cells[k])
			}
			k++
		}
	}

	return &table.Table{Columns: headers, Records: records}, nil
}

// unterminatedQuote reports whether data ends inside a quoted field. It follows the
// lazy csv rules: a quote opens a field only as its first character, "" is an escaped
// quote, and a quote closes the field only before a delimiter, a line break or end of input.
func unterminatedQuote(data []byte, delim rune) bool {
	fieldStart := true
	quoted := false
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		switch {
		case quoted && r == '"':
			rest := data[i+size:]
			if len(rest) > 0 && rest[0] == '"' {
				i += size + 1
				continue
			}
			if closesQuote(rest, delim) {
				quoted = false
			}
		case !quoted && fieldStart && r == '"':
			quoted = true
		}
		fieldStart = !quoted && (r == delim || r == '\n')
		i += size
	}
	return quoted
}

func closesQuote(rest []byte, delim rune) bool {
	if len(rest) == 0 || rest[0] == '\n' {
		return true
	}
	if rest[0] == '\r' && (len(rest) == 1 || rest[1] == '\n') {
		return true
	}
	r, _ := utf8.DecodeRune(rest)
	return r == delim
}

// normalizeHeaders names blank headers "Unnamed: N", suffixes duplicates with ".1", ".2", ...
// and renames the source index column to the lookup field.
func normalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	counts := make(map[string]int, len(raw))

	for i, h := range raw {
		name := h
		if strings.TrimSpace(name) == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if used[name] {
			base := name
			for {
				counts[base]++
				name = base + "." + strconv.Itoa(counts[base])
				if !used[name] {
					break
				}
			}
		}
		used[name] = true
		headers[i] = name
	}

	for i, h := range headers {
		if h == table.SourceIndexColumn {
			headers[i] = table.IndexField
		}
	}
	return headers
}
