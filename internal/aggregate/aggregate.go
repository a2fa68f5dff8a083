// Package aggregate computes the dashboard's grouped statistics over a cleaned
// survey table. Backends register themselves by kind; import
// explore/internal/aggregate/all to get every built-in one.
package aggregate

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"explore/internal/survey"
)

// DefaultKind is the backend used when none is configured.
const DefaultKind = "dataframe"

// Point is one bar or slice of a chart.
//
// Label is the group name (a country, or the experience in years rendered
// with strconv 'g' formatting). Key is the numeric group value for
// experience groups and zero otherwise. Value is a count or a mean salary.
// Share is the group's percentage of all rows and is set only by
// CountByCountry.
type Point struct {
	Label string  `json:"label"`
	Key   float64 `json:"key,omitempty"`
	Value float64 `json:"value"`
	Share float64 `json:"share,omitempty"`
}

// Engine answers the three dashboard queries for a single table. Every
// backend returns identical labels and ordering; means may differ only by
// floating point summation order.
type Engine interface {
	// CountByCountry orders by descending count, ties by label.
	CountByCountry(ctx context.Context) ([]Point, error)
	// MeanSalaryByCountry orders by ascending mean, ties by label.
	MeanSalaryByCountry(ctx context.Context) ([]Point, error)
	// MeanSalaryByExperience orders by ascending mean, ties by years.
	MeanSalaryByExperience(ctx context.Context) ([]Point, error)
	Close() error
}

// Factory builds an Engine over tbl.
type Factory func(ctx context.Context, tbl *survey.Table) (Engine, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available to New under kind. It is meant to be
// called from a backend package's init and panics on an empty kind, a nil
// factory, or a duplicate registration.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("aggregate: Register called with empty kind")
	}
	if f == nil {
		panic("aggregate: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("aggregate: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New builds an Engine of the given kind. An empty kind selects DefaultKind.
func New(ctx context.Context, kind string, tbl *survey.Table) (Engine, error) {
	if kind == "" {
		kind = DefaultKind
	}

	mu.RLock()
	f := factories[kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported aggregate.backend=%s", kind)
	}
	return f(ctx, tbl)
}

// Kinds lists the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// ExperienceLabel renders years the way Point.Label carries it.
func ExperienceLabel(years float64) string {
	return strconv.FormatFloat(years, 'g', -1, 64)
}

// SortCounts orders count points by descending value, ties by label, and fills
// in Share from total.
func SortCounts(points []Point, total int) []Point {
	for i := range points {
		if total > 0 {
			points[i].Share = points[i].Value / float64(total) * 100
		}
	}
	slices.SortFunc(points, func(a, b Point) int {
		return cmp.Or(cmp.Compare(b.Value, a.Value), cmp.Compare(a.Label, b.Label))
	})
	return points
}

// SortMeans orders mean points by ascending value, ties by key then label.
func SortMeans(points []Point) []Point {
	slices.SortFunc(points, func(a, b Point) int {
		return cmp.Or(
			cmp.Compare(a.Value, b.Value),
			cmp.Compare(a.Key, b.Key),
			cmp.Compare(a.Label, b.Label),
		)
	})
	return points
}
