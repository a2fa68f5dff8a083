package probe

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"explore/internal/survey"
)

const sampleCSV = "\uFEFFResponseId,Country,EdLevel,YearsCodePro,Employment,ConvertedCompYearly\n" +
	"1,Germany,Master's degree,5,\"Employed, full-time\",70000\n" +
	"2,India,NA,Less than 1 year,\"Employed, full-time\",\n" +
	"3,Germany,Bachelor's degree,ten,\"Employed, part-time\",31000.5\n" +
	"4,broken row\n"

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func column(t *testing.T, r Result, header string) Column {
	t.Helper()
	for _, c := range r.Columns {
		if c.Header == header {
			return c
		}
	}
	t.Fatalf("column %q not found in %+v", header, r.Columns)
	return Column{}
}

func TestProbe(t *testing.T) {
	path := writeFile(t, sampleCSV)

	res, err := Probe(context.Background(), Options{Path: path})
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, 3, res.SampleRows)
	assert.Equal(t, 1, res.SkippedRows)
	require.Len(t, res.Columns, 6)

	id := column(t, res, "ResponseId")
	assert.Equal(t, TypeInteger, id.Type)
	assert.Empty(t, id.Field)

	ed := column(t, res, "EdLevel")
	assert.Equal(t, survey.FieldEdLevel, ed.Field)
	assert.Equal(t, 1, ed.Missing)
	assert.Equal(t, 2, ed.Distinct)

	years := column(t, res, "YearsCodePro")
	assert.Equal(t, TypeText, years.Type)
	assert.Equal(t, 1, years.Invalid, "only 'ten' is rejected; the sentinel is fine")

	salary := column(t, res, "ConvertedCompYearly")
	assert.Equal(t, survey.FieldSalary, salary.Field)
	assert.Equal(t, TypeFloat, salary.Type)
	assert.Equal(t, 1, salary.Missing)
	assert.Zero(t, salary.Invalid)
}

func TestProbe_SalaryMatchesPipelineRules(t *testing.T) {
	in := "Country,EdLevel,YearsCodePro,Employment,ConvertedCompYearly\n"
	for _, s := range []string{"50000", "Inf", "1_000", "0x1p3", "7.5e4"} {
		in += "Germany,x,3,y," + s + "\n"
	}

	res, err := Probe(context.Background(), Options{Path: writeFile(t, in)})
	require.NoError(t, err)

	salary := column(t, res, "ConvertedCompYearly")
	assert.Equal(t, 3, salary.Invalid)
	for _, s := range []string{"Inf", "1_000", "0x1p3"} {
		_, err := survey.ParseSalary(s)
		assert.Error(t, err, s)
	}
}

func TestProbe_MissingFields(t *testing.T) {
	path := writeFile(t, "Country;EdLevel\nGermany;x\n")

	res, err := Probe(context.Background(), Options{Path: path, Comma: ';'})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, []string{survey.FieldYearsCodePro, survey.FieldEmployment, survey.FieldSalary}, res.MissingFields)

	var buf bytes.Buffer
	require.NoError(t, res.Render(&buf))
	assert.Contains(t, buf.String(), "missing required fields: years_code_pro, employment, salary")
}

func TestProbe_MaxBytesCutsAtNewline(t *testing.T) {
	path := writeFile(t, sampleCSV)

	// Header plus the first data row and part of the second.
	res, err := Probe(context.Background(), Options{Path: path, MaxBytes: 140})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SampleRows)
	assert.Zero(t, res.SkippedRows)
}

func TestProbe_Errors(t *testing.T) {
	_, err := Probe(context.Background(), Options{Path: filepath.Join(t.TempDir(), "none.csv")})
	var le *survey.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "open", le.Op)

	_, err = Probe(context.Background(), Options{Path: writeFile(t, "  \n")})
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "schema", le.Op)
}

func TestRender(t *testing.T) {
	res, err := Probe(context.Background(), Options{Path: writeFile(t, sampleCSV)})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, res.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "3 sample rows (1 skipped)")
	assert.Contains(t, out, "ConvertedCompYearly")
	assert.Contains(t, out, "years_code_pro")
	assert.NotContains(t, out, "missing required fields")
}
