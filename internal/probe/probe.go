// Package probe samples the head of a survey export and reports, per column,
// what the cleaning pipeline will see: which header maps to which field, the
// coarse value type, how many cells are missing, and how many values the
// pipeline would reject.
//
// Probing is bounded (MaxBytes) and best-effort: misaligned sample rows are
// skipped rather than failing the probe.
package probe

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	csvparser "explore/internal/parser/csv"
	"explore/internal/survey"
)

const DefaultMaxBytes = 256 << 10

// Inferred column types.
const (
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeText    = "text"
)

type Options struct {
	Path string
	// MaxBytes to sample from the start of the file; <= 0 means DefaultMaxBytes.
	MaxBytes int
	// Comma is the field delimiter; 0 means ','.
	Comma rune
}

// Column describes one header of the sample.
type Column struct {
	Header   string `json:"header"`
	Field    string `json:"field,omitempty"` // canonical survey field, if mapped
	Type     string `json:"type"`
	Missing  int    `json:"missing"`
	Distinct int    `json:"distinct"`
	// Invalid counts present values the pipeline would reject with a ParseError.
	Invalid int `json:"invalid,omitempty"`
}

type Result struct {
	Path          string   `json:"path"`
	SampleRows    int      `json:"sample_rows"`
	SkippedRows   int      `json:"skipped_rows"`
	Columns       []Column `json:"columns"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// OK reports whether every required survey field is present.
func (r Result) OK() bool { return len(r.MissingFields) == 0 }

// Probe reads a bounded sample of opt.Path and describes its columns.
func Probe(ctx context.Context, opt Options) (Result, error) {
	res := Result{Path: opt.Path}

	n := opt.MaxBytes
	if n <= 0 {
		n = DefaultMaxBytes
	}
	comma := opt.Comma
	if comma == 0 {
		comma = ','
	}

	sample, err := peek(ctx, opt.Path, n)
	if err != nil {
		return res, &survey.LoadError{Path: opt.Path, Op: "open", Err: err}
	}
	// Cut at the last newline to avoid a half-read record at the end.
	if i := bytes.LastIndexByte(sample, '\n'); i > 0 && len(sample) == n {
		sample = sample[:i+1]
	}
	sample = bytes.TrimPrefix(sample, []byte("\uFEFF"))

	headers, rows, skipped, err := readCSVSample(sample, comma)
	if err != nil {
		return res, &survey.LoadError{Path: opt.Path, Op: "read", Err: err}
	}
	if len(headers) == 0 {
		return res, &survey.LoadError{Path: opt.Path, Op: "schema", Err: csvparser.ErrNoHeader}
	}
	res.SampleRows = len(rows)
	res.SkippedRows = skipped

	types := inferTypes(headers, rows)
	seen := map[string]bool{}
	for i, h := range headers {
		col := Column{Header: h, Field: survey.HeaderMap[h], Type: types[i]}
		if col.Field != "" {
			seen[col.Field] = true
		}
		describe(&col, rows, i)
		res.Columns = append(res.Columns, col)
	}
	for _, f := range survey.Columns {
		if !seen[f] {
			res.MissingFields = append(res.MissingFields, f)
		}
	}
	return res, nil
}

func peek(ctx context.Context, path string, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, int64(n))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readCSVSample parses the sample leniently: quotes are lazy and records with
// the wrong field count are counted as skipped.
func readCSVSample(data []byte, comma rune) (headers []string, rows [][]string, skipped int, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, 0, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err = r.Read()
	if err != nil {
		return nil, nil, 0, err
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return headers, rows, skipped, err
		}
		if len(rec) != len(headers) {
			skipped++
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, rec)
	}
	return headers, rows, skipped, nil
}

var naSet = func() map[string]bool {
	m := make(map[string]bool, len(csvparser.DefaultNAValues))
	for _, v := range csvparser.DefaultNAValues {
		m[v] = true
	}
	return m
}()

// inferTypes picks integer, float, or text per column from its present values.
func inferTypes(headers []string, rows [][]string) []string {
	out := make([]string, len(headers))
	for col := range headers {
		seen, allInt, allFloat := false, true, true
		for _, r := range rows {
			v := r[col]
			if naSet[v] {
				continue
			}
			seen = true
			if allInt {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					allInt = false
				}
			}
			if allFloat {
				if _, err := strconv.ParseFloat(v, 64); err != nil {
					allFloat = false
				}
			}
			if !allFloat {
				break
			}
		}
		switch {
		case !seen:
			out[col] = TypeText
		case allInt:
			out[col] = TypeInteger
		case allFloat:
			out[col] = TypeFloat
		default:
			out[col] = TypeText
		}
	}
	return out
}

func describe(col *Column, rows [][]string, i int) {
	distinct := map[string]struct{}{}
	for _, r := range rows {
		v := r[i]
		if naSet[v] {
			col.Missing++
			continue
		}
		distinct[v] = struct{}{}
		switch col.Field {
		case survey.FieldYearsCodePro:
			if _, err := survey.NormalizeExperience(v); err != nil {
				col.Invalid++
			}
		case survey.FieldSalary:
			if _, err := survey.ParseSalary(v); err != nil {
				col.Invalid++
			}
		}
	}
	col.Distinct = len(distinct)
}

// Render writes a table of the mapped columns followed by the rest, and a line
// naming any required field the header lacks.
func (r Result) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s: %d sample rows (%d skipped)\n", r.Path, r.SampleRows, r.SkippedRows); err != nil {
		return err
	}

	cols := slices.Clone(r.Columns)
	slices.SortStableFunc(cols, func(a, b Column) int {
		return boolRank(a.Field == "") - boolRank(b.Field == "")
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Header", "Field", "Type", "Missing", "Distinct", "Invalid"})
	for _, c := range cols {
		t.AppendRow(table.Row{c.Header, c.Field, c.Type, c.Missing, c.Distinct, c.Invalid})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()

	if !r.OK() {
		_, err := fmt.Fprintf(w, "missing required fields: %s\n", strings.Join(r.MissingFields, ", "))
		return err
	}
	return nil
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
