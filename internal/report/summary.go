package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"explore/internal/survey"
)

// Summary describes one load: where it came from, what each cleaning stage
// dropped, and the resulting table's fingerprint.
type Summary struct {
	Source      string       `json:"source"`
	Stats       survey.Stats `json:"stats"`
	Rows        int          `json:"rows"`
	Fingerprint string       `json:"fingerprint"`
}

func NewSummary(source string, tbl *survey.Table, stats survey.Stats) Summary {
	return Summary{Source: source, Stats: stats, Rows: tbl.Len(), Fingerprint: tbl.Fingerprint()}
}

func WriteSummary(w io.Writer, format string, s Summary) error {
	switch format {
	case "json":
		return WriteJSON(w, s)
	case "text", "":
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}

	if _, err := fmt.Fprintf(w, "source %s\n", s.Source); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Rows"})
	t.AppendRows([]table.Row{
		{"read", s.Stats.Read},
		{"dropped: missing salary", s.Stats.MissingSalary},
		{"dropped: missing field", s.Stats.MissingField},
		{"dropped: not full-time", s.Stats.NotFullTime},
		{"dropped: salary above max", s.Stats.AboveMaxSalary},
		{"dropped: salary below min", s.Stats.BelowMinSalary},
		{"dropped: Other country", s.Stats.OtherCountry},
	})
	t.AppendFooter(table.Row{"kept", s.Stats.Kept})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight}})
	t.Render()

	_, err := fmt.Fprintf(w, "fingerprint %s\n", s.Fingerprint)
	return err
}
