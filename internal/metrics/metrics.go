// Package metrics is the process-wide instrumentation seam. Core code calls the
// package-level helpers; cmd wires a concrete Backend (or leaves the nop one).
package metrics

import "sync"

// Metric names emitted by the explorer.
const (
	RecordsTotal        = "explore_records_total"         // labels: kind
	StepTotal           = "explore_step_total"            // labels: step, status
	StepDurationSeconds = "explore_step_duration_seconds" // labels: step, status
)

type Labels map[string]string

type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b; nil restores the nop backend.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

func Flush() error {
	return current().Flush()
}

// Recorder is an in-memory Backend, handy for tests and dry runs.
type Recorder struct {
	mu       sync.Mutex
	Counters map[string]float64
	Samples  map[string][]float64
	Flushes  int
}

func NewRecorder() *Recorder {
	return &Recorder{Counters: map[string]float64{}, Samples: map[string][]float64{}}
}

// Key renders name{k=v} with the given label keys in order.
func Key(name string, labels Labels, keys ...string) string {
	s := name
	if len(keys) == 0 {
		return s
	}
	s += "{"
	for i, k := range keys {
		if i > 0 {
			s += ","
		}
		s += k + "=" + labels[k]
	}
	return s + "}"
}

func recorderKey(name string, labels Labels) string {
	switch name {
	case RecordsTotal:
		return Key(name, labels, "kind")
	case StepTotal, StepDurationSeconds:
		return Key(name, labels, "step", "status")
	default:
		return name
	}
}

func (r *Recorder) IncCounter(name string, delta float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Counters[recorderKey(name, labels)] += delta
}

func (r *Recorder) ObserveHistogram(name string, value float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := recorderKey(name, labels)
	r.Samples[k] = append(r.Samples[k], value)
}

func (r *Recorder) Flush() error {
	r.mu.Lock()
	r.Flushes++
	r.mu.Unlock()
	return nil
}

// Counter returns the current value of a recorded counter key.
func (r *Recorder) Counter(key string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Counters[key]
}
