// Package health aggregates readiness probes of the server's dependencies.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultProbeTimeout bounds each probe.
const DefaultProbeTimeout = 2 * time.Second

// Status is the overall verdict.
type Status string

// Statuses.
const (
	Healthy  Status = "ok"
	Degraded Status = "degraded"
)

// CheckResult is the verdict of one probe.
type CheckResult string

// Check results.
const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report maps probe names to results. Database is always present.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Pinger is the database probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker is an optional component probe (embedding provider, token budget).
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Service runs all probes in parallel.
type Service struct {
	probes  map[string]func(context.Context) error
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Service probing the database.
func New(db Pinger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		probes:  map[string]func(context.Context) error{"database": db.Ping},
		timeout: DefaultProbeTimeout,
		logger:  logger,
	}
}

// WithCheck adds a named probe.
func (s *Service) WithCheck(name string, c Checker) *Service {
	s.probes[name] = c.HealthCheck
	return s
}

// WithTimeout overrides the per-probe timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Check runs every probe. One failure degrades the whole report.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(s.probes))}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, probe := range s.probes {
		wg.Go(func() {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			err := probe(pctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("Health probe failed", zap.String("check", name), zap.Error(err))
				r.Checks[name] = CheckError
				r.Status = Degraded
				return
			}
			r.Checks[name] = CheckOK
		})
	}
	wg.Wait()
	return r
}
