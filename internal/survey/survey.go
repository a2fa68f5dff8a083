// Package survey loads the developer-survey CSV and turns it into the cleaned
// salary table that the dashboard aggregates read from.
//
// Cleaning is a fixed, ordered sequence of filters and recodes (see
// LoadAndClean). Its thresholds are constants, not configuration.
package survey

// Canonical field names, in the order the reader projects them.
const (
	FieldCountry      = "country"
	FieldEdLevel      = "ed_level"
	FieldYearsCodePro = "years_code_pro"
	FieldEmployment   = "employment"
	FieldSalary       = "salary"
)

// Columns is the projection applied to the raw file.
var Columns = []string{FieldCountry, FieldEdLevel, FieldYearsCodePro, FieldEmployment, FieldSalary}

// HeaderMap maps the survey's raw header names onto canonical fields. The
// salary column is renamed here.
var HeaderMap = map[string]string{
	"Country":             FieldCountry,
	"EdLevel":             FieldEdLevel,
	"YearsCodePro":        FieldYearsCodePro,
	"Employment":          FieldEmployment,
	"ConvertedCompYearly": FieldSalary,
}

const (
	CountryCutoff      = 400
	MinSalary          = 10000
	MaxSalary          = 250000
	OtherCountry       = "Other"
	FullTimeEmployment = "Employed, full-time"
)

// Record is one raw survey row restricted to the projected fields. An empty
// string means the cell was missing.
type Record struct {
	Line         int
	Country      string
	EdLevel      string
	YearsCodePro string
	Employment   string
	Salary       float64
	HasSalary    bool
}

// complete reports whether every non-salary field is present.
func (r Record) complete() bool {
	return r.Country != "" && r.EdLevel != "" && r.YearsCodePro != "" && r.Employment != ""
}

// CleanedRecord is a row of the cleaned table.
type CleanedRecord struct {
	Country      string  `json:"country"`
	EdLevel      string  `json:"ed_level"`
	YearsCodePro float64 `json:"years_code_pro"`
	Salary       float64 `json:"salary"`
}
