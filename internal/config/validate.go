package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding; Path is the dotted config key.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

var (
	logLevels         = []string{"debug", "info", "warn", "error"}
	logFormats        = []string{"console", "json"}
	outputFormats     = []string{"text", "json"}
	aggregateBackends = []string{"dataframe", "sqlite"}
	metricsBackends   = []string{"none", "datadog"}
)

// Validate reports every problem found in c rather than stopping at the first.
func Validate(c Config) []Issue {
	var issues []Issue
	add := func(sev Severity, path, format string, a ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(c.Source.Path) == "" {
		add(SeverityError, "source.path", "must not be empty")
	}
	switch comma := c.Source.Comma; {
	case comma == `\t`:
	case utf8.RuneCountInString(comma) != 1:
		add(SeverityError, "source.comma", "must be a single character, got %q", comma)
	case comma == `"` || comma == "\r" || comma == "\n":
		add(SeverityError, "source.comma", "%q cannot be used as a delimiter", comma)
	}

	oneOf := func(path, v string, allowed []string) {
		for _, a := range allowed {
			if strings.EqualFold(v, a) {
				return
			}
		}
		add(SeverityError, path, "unknown value %q (want one of %s)", v, strings.Join(allowed, ", "))
	}
	oneOf("log.level", c.Log.Level, logLevels)
	oneOf("log.format", c.Log.Format, logFormats)
	oneOf("output", c.Output, outputFormats)
	oneOf("aggregate.backend", c.Aggregate.Backend, aggregateBackends)
	oneOf("metrics.backend", c.Metrics.Backend, metricsBackends)

	if c.Metrics.FlushEvery < 0 {
		add(SeverityError, "metrics.flush_every", "must not be negative")
	}
	if strings.EqualFold(c.Metrics.Backend, "datadog") {
		if c.Metrics.FlushEvery == 0 {
			add(SeverityWarning, "metrics.flush_every", "not set; datadog backend defaults to 60s")
		}
		for _, tag := range c.Metrics.Tags {
			if !strings.Contains(tag, ":") {
				add(SeverityWarning, "metrics.tags", "tag %q has no key:value separator", tag)
			}
		}
	}
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}
