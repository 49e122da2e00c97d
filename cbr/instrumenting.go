package cbr

import (
	"context"
	"cbr-rate-converter/domain"
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"time"
)

// instrumentingService decorates a cbr.Service with Prometheus metrics
type instrumentingService struct {
	next Service

	requests *prometheus.CounterVec
	duration prometheus.Histogram
	entries  prometheus.Gauge
}

// NewInstrumentingService registers the fetch metrics with reg and returns the decorated service.
func NewInstrumentingService(reg prometheus.Registerer, s Service) Service {
	factory := promauto.With(reg)
	return &instrumentingService{
		next: s,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cbr_fetch_requests_total",
				Help: "Rate table fetches by result",
			},
			[]string{"result"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cbr_fetch_duration_seconds",
				Help:    "Time spent fetching and parsing the rate table",
				Buckets: prometheus.DefBuckets,
			},
		),
		entries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cbr_rate_table_entries",
				Help: "Number of currencies in the last fetched rate table",
			},
		),
	}
}

func (s *instrumentingService) Rates(ctx context.Context) (*domain.RateTable, error) {
	begin := time.Now()
	table, err := s.next.Rates(ctx)
	s.duration.Observe(time.Since(begin).Seconds())
	s.requests.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		s.entries.Set(float64(table.Len()))
	}
	return table, err
}

func resultLabel(err error) string {
	var fetchErr *FetchError
	var parseErr *ParseError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &fetchErr):
		return "fetch_error"
	case errors.As(err, &parseErr):
		return "parse_error"
	default:
		return "error"
	}
}
