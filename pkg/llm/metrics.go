package llm

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "assistant"

type providerMetrics struct {
	// requests - число запросов по исходу: причина завершения или "error".
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newProviderMetrics(reg prometheus.Registerer) (*providerMetrics, error) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of generative backend calls",
		},
		[]string{"provider", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of generative backend calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &providerMetrics{requests: requests, duration: duration}, nil
}

// register переиспользует уже зарегистрированный коллектор с тем же описанием.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

type instrumentedProvider struct {
	next    Provider
	name    string
	metrics *providerMetrics
}

// Instrumented оборачивает провайдер метриками Prometheus.
//
// name - метка provider (например, "gemini").
func Instrumented(p Provider, name string, reg prometheus.Registerer) (Provider, error) {
	m, err := newProviderMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &instrumentedProvider{next: p, name: name, metrics: m}, nil
}

func (i *instrumentedProvider) Generate(ctx context.Context, req Request) (ModelTurn, error) {
	start := time.Now()
	turn, err := i.next.Generate(ctx, req)
	i.metrics.duration.WithLabelValues(i.name).Observe(time.Since(start).Seconds())

	outcome := string(turn.FinishReason)
	if err != nil {
		outcome = "error"
	}
	i.metrics.requests.WithLabelValues(i.name, outcome).Inc()

	return turn, err
}
