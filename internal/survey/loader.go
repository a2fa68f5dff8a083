package survey

import (
	"context"
	"os"
	"sync"
)

// Loader loads and cleans a survey file at most once per process. Every call to
// Load after the first returns the same *Table, or the same error.
type Loader struct {
	path string
	opts []Option

	once  sync.Once
	table *Table
	stats Stats
	err   error
}

func NewLoader(path string, opts ...Option) *Loader {
	return &Loader{path: path, opts: opts}
}

func (l *Loader) Path() string { return l.path }

// Load returns the cached table, reading it on the first call. The context of
// the first call governs the only read.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	l.once.Do(func() {
		f, err := os.Open(l.path)
		if err != nil {
			l.err = &LoadError{Path: l.path, Op: "open", Err: err}
			return
		}
		defer f.Close()

		opts := append([]Option{WithSourceName(l.path)}, l.opts...)
		l.table, l.stats, l.err = LoadAndClean(ctx, f, opts...)
	})
	return l.table, l.err
}

// Stats reports the stage counts of the completed load; zero before Load.
func (l *Loader) Stats() Stats {
	return l.stats
}
