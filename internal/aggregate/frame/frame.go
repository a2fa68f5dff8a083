// Package frame is the dataframe-backed aggregate engine (go-gota).
package frame

import (
	"context"
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"explore/internal/aggregate"
	"explore/internal/survey"
)

const Kind = "dataframe"

// Column names of the frame.
const (
	colCountry    = "country"
	colEdLevel    = "ed_level"
	colYears      = "years_code_pro"
	colYearsLabel = "years_label"
	colSalary     = "salary"
)

func init() {
	aggregate.Register(Kind, New)
}

// Engine holds the cleaned table as a gota DataFrame.
type Engine struct {
	df   dataframe.DataFrame
	rows int
}

// New copies tbl into a DataFrame.
//
// Experience is grouped through a string label column: gota builds group keys
// with %f for float columns, which would turn 0.5 into "0.500000". Groups are
// rebuilt from 6-decimal text, so means carry at most 5e-7 of rounding.
func New(_ context.Context, tbl *survey.Table) (aggregate.Engine, error) {
	n := tbl.Len()
	country := make([]string, 0, n)
	ed := make([]string, 0, n)
	years := make([]float64, 0, n)
	yearsLabel := make([]string, 0, n)
	salary := make([]float64, 0, n)
	for _, r := range tbl.All() {
		country = append(country, r.Country)
		ed = append(ed, r.EdLevel)
		years = append(years, r.YearsCodePro)
		yearsLabel = append(yearsLabel, aggregate.ExperienceLabel(r.YearsCodePro))
		salary = append(salary, r.Salary)
	}

	df := dataframe.New(
		series.New(country, series.String, colCountry),
		series.New(ed, series.String, colEdLevel),
		series.New(years, series.Float, colYears),
		series.New(yearsLabel, series.String, colYearsLabel),
		series.New(salary, series.Float, colSalary),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("build dataframe: %w", df.Err)
	}
	return &Engine{df: df, rows: n}, nil
}

func (e *Engine) groups(col string) (map[string]dataframe.DataFrame, error) {
	if e.rows == 0 {
		return nil, nil
	}
	g := e.df.GroupBy(col)
	if g.Err != nil {
		return nil, fmt.Errorf("group by %s: %w", col, g.Err)
	}
	return g.GetGroups(), nil
}

func (e *Engine) CountByCountry(ctx context.Context) ([]aggregate.Point, error) {
	groups, err := e.groups(colCountry)
	if err != nil {
		return nil, err
	}
	points := make([]aggregate.Point, 0, len(groups))
	for label, sub := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		points = append(points, aggregate.Point{Label: label, Value: float64(sub.Nrow())})
	}
	return aggregate.SortCounts(points, e.rows), nil
}

func (e *Engine) MeanSalaryByCountry(ctx context.Context) ([]aggregate.Point, error) {
	groups, err := e.groups(colCountry)
	if err != nil {
		return nil, err
	}
	points := make([]aggregate.Point, 0, len(groups))
	for label, sub := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		points = append(points, aggregate.Point{Label: label, Value: sub.Col(colSalary).Mean()})
	}
	return aggregate.SortMeans(points), nil
}

func (e *Engine) MeanSalaryByExperience(ctx context.Context) ([]aggregate.Point, error) {
	groups, err := e.groups(colYearsLabel)
	if err != nil {
		return nil, err
	}
	points := make([]aggregate.Point, 0, len(groups))
	for label, sub := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		points = append(points, aggregate.Point{
			Label: label,
			Key:   sub.Col(colYears).Elem(0).Float(),
			Value: sub.Col(colSalary).Mean(),
		})
	}
	return aggregate.SortMeans(points), nil
}

func (e *Engine) Close() error { return nil }
