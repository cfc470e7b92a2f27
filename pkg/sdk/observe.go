package sdk

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes other than an API error code.
const (
	outcomeOK        = "ok"
	outcomeTransport = "transport"
)

type sdkMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	calls, err := reuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vecquiz",
		Subsystem: "sdk",
		Name:      "calls_total",
		Help:      "API calls made by the SDK, by operation and outcome (ok, transport or an error code).",
	}, []string{"operation", "outcome"}))
	if err != nil {
		return nil, err
	}
	duration, err := reuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vecquiz",
		Subsystem: "sdk",
		Name:      "call_duration_seconds",
		Help:      "SDK API call latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"operation"}))
	if err != nil {
		return nil, err
	}
	return &sdkMetrics{calls: calls, duration: duration}, nil
}

// reuse registers c, or returns the collector a previous client already
// registered under the same name.
func reuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("vecquiz: register sdk metrics: %w", err)
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		return c, fmt.Errorf("vecquiz: sdk metric registered as %T", are.ExistingCollector)
	}
	return existing, nil
}

type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg == nil {
		return o, nil
	}
	m, err := newSDKMetrics(reg)
	if err != nil {
		return nil, err
	}
	o.metrics = m
	return o, nil
}

// observe records one call. status is 0 when no response arrived.
func (o *observer) observe(op string, start time.Time, status int, err error) {
	elapsed := time.Since(start)
	outcome := outcomeOf(err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(op, outcome).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
	if o.logger == nil {
		return
	}

	attrs := []any{"op", op, "status", status, "duration", elapsed}
	switch outcome {
	case outcomeOK:
		o.logger.Debug("vecquiz call", attrs...)
	case outcomeTransport:
		o.logger.Warn("vecquiz call failed", append(attrs, "error", err)...)
	default:
		o.logger.Info("vecquiz call rejected", append(attrs, "code", outcome)...)
	}
}

// outcomeOf maps an error to a metric label: the API error code when the
// server answered, transport otherwise.
func outcomeOf(err error) string {
	if err == nil {
		return outcomeOK
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return apiErr.Code
	}
	return outcomeTransport
}
