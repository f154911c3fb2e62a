// Command source_check reads a table source the way the API does, but reports
// why it fails instead of serving an empty dataset.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"tableserve/adapters/tabular"
	"tableserve/domain/table"
	"tableserve/internal"
	"tableserve/internal/config"
	"tableserve/internal/errors"
)

func main() {
	in := flag.String("in", config.DefaultDataFile, "input dataset path (.csv, .tsv or .xlsx)")
	sheet := flag.String("sheet", "", "xlsx sheet name (default: first sheet)")
	delimiter := flag.String("delimiter", "", `field delimiter (default "," or tab for .tsv)`)
	index := flag.String("index", "", "print the rows whose index equals this value")
	verbose := flag.Bool("v", false, "log loader details")
	flag.Parse()

	if strings.TrimSpace(*in) == "" {
		fmt.Fprintln(os.Stderr, "-in is required")
		os.Exit(2)
	}

	sourceConfig := tabular.DefaultSourceConfig(*in)
	sourceConfig.Sheet = *sheet
	if strings.HasSuffix(strings.ToLower(*in), ".tsv") {
		sourceConfig.Delimiter = '\t'
	}
	if *delimiter != "" {
		d := []rune(strings.ReplaceAll(*delimiter, `\t`, "\t"))
		if len(d) != 1 {
			fmt.Fprintln(os.Stderr, "-delimiter must be a single character")
			os.Exit(2)
		}
		sourceConfig.Delimiter = d[0]
	}

	level := internal.LogLevelError
	if *verbose {
		level = internal.LogLevelDebug
	}
	loader := tabular.NewFileLoader(sourceConfig, internal.NewLogger(level, os.Stderr))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tbl, err := loader.Read(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s [%s]: %v\n", *in, errors.GetCode(err), err)
		fmt.Fprintln(os.Stderr, "the API would serve [] for this source")
		os.Exit(1)
	}

	report(*in, tbl)

	if *index != "" {
		matches := tbl.MatchIndex(*index)
		if len(matches) == 0 {
			fmt.Printf("\nno rows with index %q (the API would answer 404)\n", *index)
			os.Exit(1)
		}
		out, err := json.MarshalIndent(matches, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding rows:", err)
			os.Exit(1)
		}
		fmt.Printf("\n%s\n", out)
	}
}

func report(path string, tbl *table.Table) {
	fmt.Printf("%s: %d columns, %d rows\n", path, len(tbl.Columns), len(tbl.Records))

	hasIndex := false
	for _, col := range tbl.Columns {
		if col == table.IndexField {
			hasIndex = true
		}
		fmt.Printf("  %-24s %s\n", col, columnKind(tbl, col))
	}
	if !hasIndex {
		fmt.Printf("warning: no %q column, every /api/values lookup will 404\n", table.SourceIndexColumn)
	}
}

// columnKind reports the JSON type of the first non-null cell in a column
func columnKind(tbl *table.Table, col string) string {
	for _, rec := range tbl.Records {
		switch rec.Values[col].(type) {
		case nil:
			continue
		case int64, float64:
			return "number"
		case bool:
			return "boolean"
		default:
			return "string"
		}
	}
	return "null"
}
