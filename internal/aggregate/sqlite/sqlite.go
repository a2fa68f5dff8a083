// Package sqlite is the aggregate engine backed by an in-memory SQLite
// database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"explore/internal/aggregate"
	"explore/internal/survey"
)

const Kind = "sqlite"

const table = "survey"

var columns = []string{"country", "ed_level", "years_code_pro", "salary"}

// maxVars stays under SQLITE_MAX_VARIABLE_NUMBER of older builds.
const maxVars = 999

func init() {
	aggregate.Register(Kind, New)
}

// Engine runs the dashboard queries as GROUP BY statements.
type Engine struct {
	db   *sql.DB
	rows int
}

// New loads tbl into a private :memory: database. Every pooled connection to
// :memory: would get its own empty database, so the pool is pinned to one.
func New(ctx context.Context, tbl *survey.Table) (aggregate.Engine, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	e := &Engine{db: db, rows: tbl.Len()}
	if err := e.load(ctx, tbl); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) load(ctx context.Context, tbl *survey.Table) error {
	ddl := fmt.Sprintf(
		`CREATE TABLE %s (%s TEXT NOT NULL, %s TEXT NOT NULL, %s REAL NOT NULL, %s REAL NOT NULL)`,
		table, sqlIdent(columns[0]), sqlIdent(columns[1]), sqlIdent(columns[2]), sqlIdent(columns[3]),
	)
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	batch := make([][]any, 0, maxVars/len(columns))
	for _, r := range tbl.All() {
		batch = append(batch, []any{r.Country, r.EdLevel, r.YearsCodePro, r.Salary})
		if len(batch) == cap(batch) {
			if err := insertRows(ctx, tx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := insertRows(ctx, tx, batch); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRows(ctx context.Context, tx *sql.Tx, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}

	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func (e *Engine) CountByCountry(ctx context.Context) ([]aggregate.Point, error) {
	points, err := e.query(ctx, `SELECT country, 0, COUNT(*) FROM survey GROUP BY country`)
	if err != nil {
		return nil, err
	}
	return aggregate.SortCounts(points, e.rows), nil
}

func (e *Engine) MeanSalaryByCountry(ctx context.Context) ([]aggregate.Point, error) {
	points, err := e.query(ctx, `SELECT country, 0, AVG(salary) FROM survey GROUP BY country`)
	if err != nil {
		return nil, err
	}
	return aggregate.SortMeans(points), nil
}

func (e *Engine) MeanSalaryByExperience(ctx context.Context) ([]aggregate.Point, error) {
	points, err := e.query(ctx, `SELECT '', years_code_pro, AVG(salary) FROM survey GROUP BY years_code_pro`)
	if err != nil {
		return nil, err
	}
	for i := range points {
		points[i].Label = aggregate.ExperienceLabel(points[i].Key)
	}
	return aggregate.SortMeans(points), nil
}

// query scans (label, key, value) rows.
func (e *Engine) query(ctx context.Context, q string) ([]aggregate.Point, error) {
	rows, err := e.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []aggregate.Point
	for rows.Next() {
		var p aggregate.Point
		if err := rows.Scan(&p.Label, &p.Key, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (e *Engine) Close() error { return e.db.Close() }

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
