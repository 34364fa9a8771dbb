package health

import (
	"context"
	"sort"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Errors map[string]error
}

// Service coordinates health checks.
type Service struct {
	checks  map[string]Checker
	timeout time.Duration
}

// New creates a Service. Nil checkers are skipped, so optional
// dependencies can be passed unconditionally.
func New(timeout time.Duration, checks map[string]Checker) *Service {
	live := make(map[string]Checker, len(checks))
	for name, c := range checks {
		if c != nil {
			live[name] = c
		}
	}
	return &Service{checks: live, timeout: timeout}
}

// Names lists the registered checks in order.
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.checks))
	for n := range s.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check runs every registered check, each bounded by the service timeout.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy}
	if len(s.checks) == 0 {
		return r
	}

	r.Checks = make(map[string]CheckResult, len(s.checks))
	for _, name := range s.Names() {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name].Ping(cctx)
		cancel()

		if err != nil {
			r.Checks[name] = CheckError
			if r.Errors == nil {
				r.Errors = make(map[string]error)
			}
			r.Errors[name] = err
			r.Status = Degraded
			continue
		}
		r.Checks[name] = CheckOK
	}
	return r
}
