// Package report assembles the explore dashboard from a cleaned table and
// renders it as text tables or JSON.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"explore/internal/aggregate"
	"explore/internal/metrics"
	"explore/internal/survey"
)

const (
	Title    = "Explore Software Engineer Salaries"
	Subtitle = "Stack Overflow Developer Survey 2020"
)

// Chart kinds a renderer would draw each section as.
const (
	ChartPie  = "pie"
	ChartBar  = "bar"
	ChartLine = "line"
)

// Section is one chart of the dashboard.
type Section struct {
	Title  string            `json:"title"`
	Chart  string            `json:"chart"`
	Points []aggregate.Point `json:"points"`
}

type Dashboard struct {
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle"`
	Rows        int       `json:"rows"`
	Fingerprint string    `json:"fingerprint"`
	Sections    []Section `json:"sections"`
}

// Build runs the three dashboard queries against eng. eng must have been built
// over tbl.
func Build(ctx context.Context, tbl *survey.Table, eng aggregate.Engine) (Dashboard, error) {
	start := time.Now()
	d, err := build(ctx, tbl, eng)

	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := metrics.Labels{"step": "aggregate", "status": status}
	metrics.IncCounter(metrics.StepTotal, 1, labels)
	metrics.ObserveHistogram(metrics.StepDurationSeconds, time.Since(start).Seconds(), labels)

	return d, err
}

func build(ctx context.Context, tbl *survey.Table, eng aggregate.Engine) (Dashboard, error) {
	d := Dashboard{
		Title:       Title,
		Subtitle:    Subtitle,
		Rows:        tbl.Len(),
		Fingerprint: tbl.Fingerprint(),
	}

	queries := []struct {
		title string
		chart string
		run   func(context.Context) ([]aggregate.Point, error)
	}{
		{"Number of Data from different countries", ChartPie, eng.CountByCountry},
		{"Mean Salary based On Country", ChartBar, eng.MeanSalaryByCountry},
		{"Mean Salary based On Experience", ChartLine, eng.MeanSalaryByExperience},
	}
	for _, q := range queries {
		points, err := q.run(ctx)
		if err != nil {
			return Dashboard{}, fmt.Errorf("%s: %w", q.title, err)
		}
		if points == nil {
			points = []aggregate.Point{}
		}
		d.Sections = append(d.Sections, Section{Title: q.title, Chart: q.chart, Points: points})
	}
	return d, nil
}

// Write renders d as "text" or "json".
func Write(w io.Writer, format string, d Dashboard) error {
	switch format {
	case "json":
		return WriteJSON(w, d)
	case "text", "":
		return WriteText(w, d)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteText renders each section as a table under the dashboard heading.
func WriteText(w io.Writer, d Dashboard) error {
	if _, err := fmt.Fprintf(w, "%s\n%s\n%d rows, fingerprint %s\n", d.Title, d.Subtitle, d.Rows, d.Fingerprint); err != nil {
		return err
	}

	for _, s := range d.Sections {
		if _, err := fmt.Fprintf(w, "\n%s\n", s.Title); err != nil {
			return err
		}
		if len(s.Points) == 0 {
			if _, err := fmt.Fprintln(w, "(0 rows)"); err != nil {
				return err
			}
			continue
		}

		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)

		switch s.Chart {
		case ChartPie:
			t.AppendHeader(table.Row{"Country", "Responses", "Share"})
			for _, p := range s.Points {
				t.AppendRow(table.Row{p.Label, int(p.Value), fmt.Sprintf("%1.1f%%", p.Share)})
			}
		case ChartLine:
			t.AppendHeader(table.Row{"Years of Experience", "Mean Salary"})
			for _, p := range s.Points {
				t.AppendRow(table.Row{p.Label, fmt.Sprintf("%.2f", p.Value)})
			}
		default:
			t.AppendHeader(table.Row{"Country", "Mean Salary"})
			for _, p := range s.Points {
				t.AppendRow(table.Row{p.Label, fmt.Sprintf("%.2f", p.Value)})
			}
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
		})
		t.Render()
	}
	return nil
}
