package health

import (
	"context"
	"sort"
	"time"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Service encapsulates health-related checks.
type Service struct {
	checks  map[string]Checker
	timeout time.Duration
}

// NewService constructs a new health service. A nil checker is skipped.
func NewService(checks map[string]Checker) *Service {
	out := make(map[string]Checker, len(checks))
	for name, c := range checks {
		if c != nil {
			out[name] = c
		}
	}
	return &Service{checks: out, timeout: 2 * time.Second}
}

// Report is the health payload.
type Report struct {
	OK         bool              `json:"ok"`
	Components map[string]string `json:"components,omitempty"`
}

// Status runs every check with a short timeout.
func (s *Service) Status(ctx context.Context) Report {
	report := Report{OK: true}
	if s == nil || len(s.checks) == 0 {
		return report
	}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report.Components = make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name].Check(checkCtx)
		cancel()
		if err != nil {
			report.OK = false
			report.Components[name] = "down"
			continue
		}
		report.Components[name] = "up"
	}
	return report
}
