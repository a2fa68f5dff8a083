package survey

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"explore/internal/metrics"
)

const header = "ResponseId,MainBranch,Country,EdLevel,YearsCodePro,Employment,ConvertedCompYearly\n"

type rawRow struct {
	country, edLevel, years, employment, salary string
}

func (r rawRow) line(id int) string {
	return fmt.Sprintf("%d,dev,%q,%q,%q,%q,%s\n", id, r.country, r.edLevel, r.years, r.employment, r.salary)
}

func fullTime(country, salary string) rawRow {
	return rawRow{country, "Bachelor\u2019s degree (B.A., B.S., B.Eng., etc.)", "7", FullTimeEmployment, salary}
}

func buildCSV(groups ...[]rawRow) string {
	var b strings.Builder
	b.WriteString(header)
	id := 1
	for _, g := range groups {
		for _, r := range g {
			b.WriteString(r.line(id))
			id++
		}
	}
	return b.String()
}

func repeat(r rawRow, n int) []rawRow {
	out := make([]rawRow, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func load(t *testing.T, csv string) (*Table, Stats, error) {
	t.Helper()
	return LoadAndClean(context.Background(), strings.NewReader(csv), WithLogger(zaptest.NewLogger(t)))
}

func TestBuildCountryCategoryMap(t *testing.T) {
	counts := map[string]int{"Germany": 1000, "Bahrain": 500, "Fiji": 3, "Edge": 400, "Below": 399}

	m := BuildCountryCategoryMap(counts, CountryCutoff)

	assert.Equal(t, map[string]string{
		"Germany": "Germany",
		"Bahrain": "Bahrain",
		"Fiji":    OtherCountry,
		"Edge":    "Edge",
		"Below":   OtherCountry,
	}, m)

	m = BuildCountryCategoryMap(counts, 600)
	assert.Equal(t, OtherCountry, m["Bahrain"])
	assert.Len(t, m, len(counts))

	for c, v := range BuildCountryCategoryMap(counts, 0) {
		assert.Equal(t, c, v, "cutoff 0 keeps every country")
	}
	assert.Empty(t, BuildCountryCategoryMap(nil, CountryCutoff))
}

func TestNormalizeExperience(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"More than 50 years", 51},
		{"more than 50 YEARS", 51},
		{"Less than 1 year", 0.5},
		{"15", 15},
		{" 3 ", 3},
		{"2.5", 2.5},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := NormalizeExperience(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"abc", "", "0x1p3", "1_000", "NaN", "Inf", "ten"} {
		_, err := NormalizeExperience(bad)
		var pe *ParseError
		require.ErrorAs(t, err, &pe, bad)
		assert.Equal(t, FieldYearsCodePro, pe.Field)
		assert.Equal(t, bad, pe.Value)
		assert.ErrorIs(t, err, ErrNotNumeric)
	}
}

func TestNormalizeEducation(t *testing.T) {
	cases := map[string]string{
		"Bachelor\u2019s degree (B.A., B.S., B.Eng., etc.)":     EducationBachelor,
		"Bachelor's degree (B.A.)":                              EducationBachelor,
		"Master\u2019s degree (M.A., M.S., M.Eng., MBA, etc.)":  EducationMaster,
		"Professional degree (JD, MD, etc.)":                    EducationPostGrad,
		"Other doctoral degree (Ph.D., Ed.D., etc.)":            EducationLessThanBachelor,
		"Associate degree (A.A., A.S., etc.)":                   EducationLessThanBachelor,
		"Primary/elementary school":                             EducationLessThanBachelor,
		"":                                                      EducationLessThanBachelor,
		"Master's degree, then a Bachelor's degree":             EducationBachelor,
		"Professional degree after a Master\u2019s degree":      EducationMaster,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeEducation(in), in)
	}
	for _, lvl := range EducationLevels {
		assert.Contains(t, EducationLevels, NormalizeEducation(lvl))
	}
}

func TestLoadAndClean_BahrainCollapsedGermanyKept(t *testing.T) {
	// Bahrain has 500 raw rows but only 399 are full-time, so it is counted
	// below the cutoff after the employment filter and collapses to Other.
	partTime := fullTime("Bahrain", "50000")
	partTime.employment = "Employed, part-time"

	csv := buildCSV(
		repeat(fullTime("Bahrain", "50000"), 399),
		repeat(partTime, 101),
		repeat(fullTime("Germany", "72000"), 990),
		repeat(fullTime("Germany", "300000"), 5),
		repeat(fullTime("Germany", "5000"), 5),
	)

	tbl, stats, err := load(t, csv)
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Read:           1500,
		NotFullTime:    101,
		AboveMaxSalary: 5,
		BelowMinSalary: 5,
		OtherCountry:   399,
		Kept:           990,
	}, stats)

	require.Equal(t, 990, tbl.Len())
	for _, r := range tbl.All() {
		assert.Equal(t, "Germany", r.Country)
		assert.Equal(t, EducationBachelor, r.EdLevel)
		assert.Equal(t, 7.0, r.YearsCodePro)
		assert.Equal(t, 72000.0, r.Salary)
	}
}

func TestLoadAndClean_CutoffIsInclusive(t *testing.T) {
	csv := buildCSV(
		repeat(fullTime("Bahrain", "50000"), CountryCutoff),
		repeat(fullTime("Fiji", "50000"), CountryCutoff-1),
	)

	tbl, stats, err := load(t, csv)
	require.NoError(t, err)
	assert.Equal(t, CountryCutoff, tbl.Len())
	assert.Equal(t, CountryCutoff-1, stats.OtherCountry)
	assert.Equal(t, "Bahrain", tbl.At(0).Country)
}

func TestLoadAndClean_CountsBeforeSalaryFilter(t *testing.T) {
	// Out-of-range salaries still count toward the country's frequency.
	csv := buildCSV(
		repeat(fullTime("Chile", "50000"), 10),
		repeat(fullTime("Chile", "900000"), CountryCutoff-10),
	)

	tbl, stats, err := load(t, csv)
	require.NoError(t, err)
	assert.Equal(t, 10, tbl.Len())
	assert.Equal(t, CountryCutoff-10, stats.AboveMaxSalary)
	assert.Zero(t, stats.OtherCountry)
}

func TestLoadAndClean_PostConditions(t *testing.T) {
	var rows []rawRow
	eds := []string{
		"Bachelor\u2019s degree (B.A., B.S., B.Eng., etc.)",
		"Master\u2019s degree (M.A., M.S., M.Eng., MBA, etc.)",
		"Professional degree (JD, MD, etc.)",
		"Some college/university study without earning a degree",
		"Associate degree (A.A., A.S., etc.)",
	}
	years := []string{"Less than 1 year", "More than 50 years", "1", "12", "30"}
	salaries := []string{"9999", "10000", "65000", "250000", "250001", "NA", ""}
	countries := []string{"India", "Peru"}
	for i := 0; i < 2000; i++ {
		rows = append(rows, rawRow{
			country:    countries[i%len(countries)],
			edLevel:    eds[i%len(eds)],
			years:      years[i%len(years)],
			employment: FullTimeEmployment,
			salary:     salaries[i%len(salaries)],
		})
	}
	rows = append(rows, repeat(fullTime("Tuvalu", "80000"), 12)...)
	rows = append(rows, rawRow{"Peru", "NA", "3", FullTimeEmployment, "70000"})

	tbl, stats, err := load(t, buildCSV(rows))
	require.NoError(t, err)
	require.Positive(t, tbl.Len())

	for _, r := range tbl.All() {
		assert.GreaterOrEqual(t, r.Salary, float64(MinSalary))
		assert.LessOrEqual(t, r.Salary, float64(MaxSalary))
		assert.NotEqual(t, OtherCountry, r.Country)
		assert.Contains(t, EducationLevels, r.EdLevel)
		assert.Contains(t, []float64{0.5, 51, 1, 12, 30}, r.YearsCodePro)
	}
	assert.Equal(t, 1, stats.MissingField)
	assert.Equal(t, 12, stats.OtherCountry)
	assert.Equal(t, stats.Read,
		stats.MissingSalary+stats.MissingField+stats.NotFullTime+stats.AboveMaxSalary+
			stats.BelowMinSalary+stats.OtherCountry+stats.Kept)
}

func TestLoadAndClean_Idempotent(t *testing.T) {
	csv := buildCSV(repeat(fullTime("Germany", "72000"), 450), repeat(fullTime("Brazil", "31000.5"), 420))

	a, _, err := load(t, csv)
	require.NoError(t, err)
	b, _, err := load(t, csv)
	require.NoError(t, err)

	assert.Equal(t, a.Rows(), b.Rows())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	c, _, err := load(t, buildCSV(repeat(fullTime("Germany", "72001"), 450)))
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestLoadAndClean_ExperienceParseError(t *testing.T) {
	bad := fullTime("Germany", "72000")
	bad.years = "a decade"

	csv := buildCSV(repeat(fullTime("Germany", "72000"), 400), []rawRow{bad})
	tbl, _, err := load(t, csv)
	require.Error(t, err)
	assert.Nil(t, tbl)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FieldYearsCodePro, pe.Field)
	assert.Equal(t, "a decade", pe.Value)
	assert.Equal(t, 402, pe.Line)
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestLoadAndClean_FilteredRowsAreNotParsed(t *testing.T) {
	bad := fullTime("Germany", "900000")
	bad.years = "a decade"
	other := fullTime("Nauru", "50000")
	other.years = "lots"

	tbl, _, err := load(t, buildCSV(repeat(fullTime("Germany", "72000"), 400), []rawRow{bad, other}))
	require.NoError(t, err)
	assert.Equal(t, 400, tbl.Len())
}

func TestLoadAndClean_SalaryParseError(t *testing.T) {
	_, _, err := load(t, buildCSV([]rawRow{fullTime("Germany", "lots")}))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FieldSalary, pe.Field)
	assert.Equal(t, 2, pe.Line)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseSalary(t *testing.T) {
	for in, want := range map[string]float64{"72000": 72000, " 31000.5 ": 31000.5, "7.5e4": 75000} {
		got, err := ParseSalary(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "Inf", "-Inf", "1_000", "0x1p3", "lots"} {
		_, err := ParseSalary(bad)
		var pe *ParseError
		require.ErrorAs(t, err, &pe, bad)
		assert.Equal(t, FieldSalary, pe.Field)
	}

	_, _, err := load(t, buildCSV([]rawRow{fullTime("Germany", "72000"), fullTime("Germany", "Inf")}))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
	assert.Equal(t, "Inf", pe.Value)
}

func TestLoadAndClean_LoadErrors(t *testing.T) {
	cases := map[string]struct {
		in string
		op string
	}{
		"empty":           {"", "schema"},
		"missing columns": {"Country,EdLevel\nGermany,x\n", "schema"},
		"malformed":       {header + "1,dev,\"Germany,x,1,y,2\n", "read"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tbl, _, err := LoadAndClean(context.Background(), strings.NewReader(tc.in), WithSourceName("s.csv"))
			assert.Nil(t, tbl)
			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tc.op, le.Op)
			assert.Equal(t, "s.csv", le.Path)
		})
	}
}

func TestLoadAndClean_Options(t *testing.T) {
	var b strings.Builder
	b.WriteString("Country;EdLevel;YearsCodePro;Employment;ConvertedCompYearly\n")
	for range CountryCutoff {
		b.WriteString("Germany;Master's degree;4;Employed, full-time;72000\n")
	}
	b.WriteString("Germany;Bachelor\"s degree;4;Employed, full-time;72000\n")

	_, _, err := LoadAndClean(context.Background(), strings.NewReader(b.String()), WithComma(";"))
	require.Error(t, err, "bare quote in an unquoted field")

	tbl, _, err := LoadAndClean(context.Background(), strings.NewReader(b.String()), WithComma(";"), WithLazyQuotes(true))
	require.NoError(t, err)
	assert.Equal(t, CountryCutoff+1, tbl.Len())
	assert.Equal(t, EducationMaster, tbl.At(0).EdLevel)
}

func TestLoadAndClean_EmitsMetrics(t *testing.T) {
	rec := metrics.NewRecorder()
	metrics.SetBackend(rec)
	t.Cleanup(func() { metrics.SetBackend(nil) })

	_, _, err := load(t, buildCSV(repeat(fullTime("Germany", "72000"), 400), repeat(fullTime("Fiji", "72000"), 3)))
	require.NoError(t, err)

	assert.Equal(t, 403.0, rec.Counter("explore_records_total{kind=read}"))
	assert.Equal(t, 400.0, rec.Counter("explore_records_total{kind=kept}"))
	assert.Equal(t, 3.0, rec.Counter("explore_records_total{kind=dropped_other_country}"))
	assert.Equal(t, 1.0, rec.Counter("explore_step_total{step=load,status=ok}"))
	assert.Len(t, rec.Samples["explore_step_duration_seconds{step=load,status=ok}"], 1)

	_, _, err = load(t, "")
	require.Error(t, err)
	assert.Equal(t, 1.0, rec.Counter("explore_step_total{step=load,status=error}"))
}

func TestLoader_LoadsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte(buildCSV(repeat(fullTime("Germany", "72000"), 400))), 0o644))

	l := NewLoader(path)
	first, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 400, l.Stats().Kept)

	require.NoError(t, os.Remove(path))
	second, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestLoader_CachesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")
	l := NewLoader(path)

	_, err := l.Load(context.Background())
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "open", le.Op)
	assert.Equal(t, path, le.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte(buildCSV(repeat(fullTime("Germany", "72000"), 400))), 0o644))
	_, again := l.Load(context.Background())
	assert.Same(t, err, again)
}

func TestTable(t *testing.T) {
	in := []CleanedRecord{{Country: "A", Salary: 1}, {Country: "B", Salary: 2}}
	tbl := NewTable(in)
	in[0].Country = "mutated"

	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, "A", tbl.At(0).Country)

	rows := tbl.Rows()
	rows[1].Country = "mutated"
	assert.Equal(t, "B", tbl.At(1).Country)

	var seen []string
	for i, r := range tbl.All() {
		seen = append(seen, fmt.Sprint(i, r.Country))
	}
	assert.Equal(t, []string{"0A", "1B"}, seen)

	var nilTable *Table
	assert.Zero(t, nilTable.Len())
	assert.Nil(t, nilTable.Rows())
	assert.Panics(t, func() { nilTable.At(0) })
	assert.Panics(t, func() { tbl.At(2) })
	assert.Equal(t, NewTable(nil).Fingerprint(), nilTable.Fingerprint())
}

func TestErrors(t *testing.T) {
	le := &LoadError{Op: "open", Err: os.ErrNotExist}
	assert.Equal(t, "load survey: open: file does not exist", le.Error())
	assert.True(t, errors.Is(le, os.ErrNotExist))

	pe := &ParseError{Field: FieldSalary, Value: "x", Err: ErrNotNumeric}
	assert.Equal(t, `parse salary "x": not a decimal number`, pe.Error())
}
