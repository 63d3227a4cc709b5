// CLAUDE:SUMMARY CSV name source with charset transcoding and header-or-index column selection.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

func init() {
	Register(&csvAdapter{})
}

type csvAdapter struct{}

func (a *csvAdapter) Kind() string        { return "csv" }
func (a *csvAdapter) Description() string { return "Delimited text file, one name per row" }

func (a *csvAdapter) Read(ctx context.Context, spec *Spec, path string, emit func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	// Transcode the source encoding, if any, to UTF-8.
	var reader io.Reader = f
	if enc := spec.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		reader = transform.NewReader(f, e.NewDecoder())
	}

	r := csv.NewReader(reader)
	if delim := spec.Delimiter; delim != "" {
		r.Comma = []rune(delim)[0]
	}
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var header []string
	if spec.HasHeader {
		header, err = r.Read()
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
	}

	nameCols := spec.NameColumns
	if len(nameCols) == 0 {
		nameCols = []string{"0"}
	}
	nameIdx := make([]int, len(nameCols))
	for i, col := range nameCols {
		if nameIdx[i], err = resolveColumn(col, header); err != nil {
			return err
		}
	}
	idIdx := -1
	if spec.IDColumn != "" {
		if idIdx, err = resolveColumn(spec.IDColumn, header); err != nil {
			return err
		}
	}

	row := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		row++

		parts := make([]string, 0, len(nameIdx))
		for _, idx := range nameIdx {
			if idx < len(record) {
				if v := strings.TrimSpace(record[idx]); v != "" {
					parts = append(parts, v)
				}
			}
		}
		if len(parts) == 0 {
			continue
		}

		id := spec.Name + ":" + strconv.Itoa(row)
		if idIdx >= 0 {
			if idIdx >= len(record) || strings.TrimSpace(record[idIdx]) == "" {
				continue
			}
			id = strings.TrimSpace(record[idIdx])
		}
		if err := emit(Record{Name: strings.Join(parts, " "), ID: id}); err != nil {
			return err
		}
	}
}

// resolveColumn finds col in header, or parses it as a 0-based index.
func resolveColumn(col string, header []string) (int, error) {
	for i, h := range header {
		if h == col {
			return i, nil
		}
	}
	idx, err := strconv.Atoi(col)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("column %q not found in header %v", col, header)
	}
	return idx, nil
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
