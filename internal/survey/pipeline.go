package survey

import (
	"context"
	"errors"
	"io"
	"slices"
	"time"

	"go.uber.org/zap"

	"explore/internal/config"
	"explore/internal/logging"
	"explore/internal/metrics"
	csvparser "explore/internal/parser/csv"
	"explore/internal/transformer"
)

// Stats counts rows at each stage of one LoadAndClean run.
type Stats struct {
	Read           int `json:"read"`
	MissingSalary  int `json:"dropped_missing_salary"`
	MissingField   int `json:"dropped_missing_field"`
	NotFullTime    int `json:"dropped_not_full_time"`
	AboveMaxSalary int `json:"dropped_salary_above_max"`
	BelowMinSalary int `json:"dropped_salary_below_min"`
	OtherCountry   int `json:"dropped_other_country"`
	Kept           int `json:"kept"`
}

func (s Stats) kinds() []struct {
	kind string
	n    int
} {
	return []struct {
		kind string
		n    int
	}{
		{"read", s.Read},
		{"dropped_missing_salary", s.MissingSalary},
		{"dropped_missing_field", s.MissingField},
		{"dropped_not_full_time", s.NotFullTime},
		{"dropped_salary_above_max", s.AboveMaxSalary},
		{"dropped_salary_below_min", s.BelowMinSalary},
		{"dropped_other_country", s.OtherCountry},
		{"kept", s.Kept},
	}
}

type options struct {
	logger     *zap.Logger
	comma      string
	lazyQuotes bool
	sourceName string
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithComma sets the field delimiter (default ",").
func WithComma(comma string) Option { return func(o *options) { o.comma = comma } }

func WithLazyQuotes(lazy bool) Option { return func(o *options) { o.lazyQuotes = lazy } }

// WithSourceName labels errors and logs with the source's path.
func WithSourceName(name string) Option { return func(o *options) { o.sourceName = name } }

// LoadAndClean reads the survey from src and returns the cleaned table.
//
// Stages, in order (the order decides which rows survive):
//  1. project to Columns and 2. rename the salary column (via HeaderMap)
//  3. drop rows without salary
//  4. drop rows with any other field missing
//  5. keep only FullTimeEmployment (employment is then discarded)
//  6. collapse countries seen fewer than CountryCutoff times to OtherCountry
//  7. drop salary > MaxSalary
//  8. drop salary < MinSalary
//  9. drop OtherCountry
//  10. NormalizeExperience
//  11. NormalizeEducation
//
// Salary is parsed for every row as it is read; experience only for rows that
// reach stage 10. Either failing yields a *ParseError; source problems yield a
// *LoadError. No partial table is returned on error.
func LoadAndClean(ctx context.Context, src io.Reader, opts ...Option) (*Table, Stats, error) {
	o := options{comma: ","}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.OrNop(o.logger)
	if o.sourceName != "" {
		log = log.With(zap.String("source", o.sourceName))
	}

	start := time.Now()
	tbl, stats, err := loadAndClean(ctx, src, o, log)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := metrics.Labels{"step": "load", "status": status}
	metrics.IncCounter(metrics.StepTotal, 1, labels)
	metrics.ObserveHistogram(metrics.StepDurationSeconds, elapsed.Seconds(), labels)

	if err != nil {
		log.Error("survey load failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, Stats{}, err
	}

	for _, k := range stats.kinds() {
		metrics.IncCounter(metrics.RecordsTotal, float64(k.n), metrics.Labels{"kind": k.kind})
	}
	log.Info("survey loaded",
		zap.Int("read", stats.Read),
		zap.Int("kept", stats.Kept),
		zap.Int("dropped_missing_salary", stats.MissingSalary),
		zap.Int("dropped_missing_field", stats.MissingField),
		zap.Int("dropped_not_full_time", stats.NotFullTime),
		zap.Int("dropped_salary_above_max", stats.AboveMaxSalary),
		zap.Int("dropped_salary_below_min", stats.BelowMinSalary),
		zap.Int("dropped_other_country", stats.OtherCountry),
		zap.Duration("elapsed", elapsed),
	)
	return tbl, stats, nil
}

func loadAndClean(ctx context.Context, src io.Reader, o options, log *zap.Logger) (*Table, Stats, error) {
	var stats Stats

	records, err := readRecords(ctx, src, o)
	if err != nil {
		return nil, stats, err
	}
	stats.Read = len(records)

	drop := func(counter *int, del func(Record) bool) {
		before := len(records)
		records = slices.DeleteFunc(records, del)
		*counter += before - len(records)
	}

	drop(&stats.MissingSalary, func(r Record) bool { return !r.HasSalary })
	drop(&stats.MissingField, func(r Record) bool { return !r.complete() })
	drop(&stats.NotFullTime, func(r Record) bool { return r.Employment != FullTimeEmployment })

	countryMap := BuildCountryCategoryMap(CountCountries(records), CountryCutoff)
	kept := 0
	for _, c := range countryMap {
		if c != OtherCountry {
			kept++
		}
	}
	log.Debug("country categories", zap.Int("countries", len(countryMap)), zap.Int("kept_countries", kept))
	for i := range records {
		records[i].Country = countryMap[records[i].Country]
	}

	drop(&stats.AboveMaxSalary, func(r Record) bool { return r.Salary > MaxSalary })
	drop(&stats.BelowMinSalary, func(r Record) bool { return r.Salary < MinSalary })
	drop(&stats.OtherCountry, func(r Record) bool { return r.Country == OtherCountry })

	rows := make([]CleanedRecord, 0, len(records))
	for _, r := range records {
		years, err := NormalizeExperience(r.YearsCodePro)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Line = r.Line
			}
			return nil, stats, err
		}
		rows = append(rows, CleanedRecord{
			Country:      r.Country,
			EdLevel:      NormalizeEducation(r.EdLevel),
			YearsCodePro: years,
			Salary:       r.Salary,
		})
	}
	stats.Kept = len(rows)

	return &Table{rows: rows}, stats, nil
}

// readRecords covers stages 1 and 2 and parses salaries.
func readRecords(ctx context.Context, src io.Reader, o options) ([]Record, error) {
	opt := config.Options{
		"comma":       o.comma,
		"lazy_quotes": o.lazyQuotes,
		"header_map":  HeaderMap,
	}

	var records []Record
	err := csvparser.StreamRows(ctx, src, Columns, opt, func(row *transformer.Row) error {
		defer row.Free()

		rec := Record{Line: row.Line}
		rec.Country, _ = row.String(0)
		rec.EdLevel, _ = row.String(1)
		rec.YearsCodePro, _ = row.String(2)
		rec.Employment, _ = row.String(3)
		if raw, ok := row.String(4); ok {
			salary, err := ParseSalary(raw)
			if err != nil {
				var pe *ParseError
				if errors.As(err, &pe) {
					pe.Line = row.Line
				}
				return err
			}
			rec.Salary, rec.HasSalary = salary, true
		}
		records = append(records, rec)
		return nil
	})
	if err == nil {
		return records, nil
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		return nil, err
	}
	le := &LoadError{Path: o.sourceName, Op: "read", Err: err}
	var mce *csvparser.MissingColumnsError
	if errors.As(err, &mce) || errors.Is(err, csvparser.ErrNoHeader) {
		le.Op = "schema"
	}
	return nil, le
}
