package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"explore/internal/config"
	"explore/internal/transformer"
)

// ErrNoHeader is returned when the source ends before a header row.
var ErrNoHeader = errors.New("csv: missing header row")

// DefaultNAValues are the cell spellings treated as missing, matching what
// spreadsheet and dataframe tooling conventionally exports for NA.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// MissingColumnsError lists requested columns that the header does not provide.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("csv: header missing required columns: %s", strings.Join(e.Columns, ", "))
}

// StreamRows reads delimited rows from src and hands each one to emit as a
// pooled *transformer.Row aligned to 'columns'. Source columns not requested
// are skipped, which is how callers project a wide file to the fields they need.
//
// Header names are trimmed, a leading BOM is dropped, then header_map is applied
// (raw header -> canonical name); unmapped headers are lowercased with spaces
// replaced by underscores.
//
// Options: comma (default ','), lazy_quotes, trim_space (default true),
// header_map, na_values (default DefaultNAValues).
//
// Malformed records stop the stream with an error carrying the line number. An
// error returned by emit stops the stream and is returned unchanged.
func StreamRows(
	ctx context.Context,
	src io.Reader,
	columns []string,
	opt config.Options,
	emit func(*transformer.Row) error,
) error {
	trim := opt.Bool("trim_space", true)
	hm := opt.StringMap("header_map")

	na := opt.StringSlice("na_values")
	if na == nil {
		na = DefaultNAValues
	}
	naSet := make(map[string]struct{}, len(na))
	for _, v := range na {
		naSet[v] = struct{}{}
	}

	cr := csv.NewReader(transform.NewReader(src, unicode.BOMOverride(transform.Nop)))
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err == io.EOF {
		return ErrNoHeader
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	srcToIdx := make(map[string]int, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if mapped, ok := hm[h]; ok {
			h = mapped
		} else {
			h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
		}
		if _, dup := srcToIdx[h]; !dup {
			srcToIdx[h] = i
		}
	}

	colIx := make([]int, len(columns))
	var missing []string
	for t, target := range columns {
		si, ok := srcToIdx[target]
		if !ok {
			missing = append(missing, target)
			continue
		}
		colIx[t] = si
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("csv read: %w", err)
		}

		row := transformer.GetRow(len(columns))
		row.Line, _ = cr.FieldPos(0)

		for t, si := range colIx {
			if si >= len(rec) {
				continue
			}
			v := rec[si]
			if trim {
				v = strings.TrimSpace(v)
			}
			if _, isNA := naSet[v]; isNA {
				continue
			}
			row.V[t] = v
		}

		if err := emit(row); err != nil {
			return err
		}
	}
}
