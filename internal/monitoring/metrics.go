package monitoring

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/brightshare/internal/resilience"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Latency buckets in milliseconds; scoring calls routinely take tens of seconds
var latencyBuckets = []float64{
	5, 25, 100, 250,
	500, 1000, 2500,
	5000, 10000, 30000, 60000, 90000,
}

// Metrics holds application metrics. The atomic counters back the JSON /metrics
// view; the collectors back /metrics/prometheus.
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	ResponseTimes      []time.Duration
	ResponseTimesMutex sync.RWMutex

	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex

	// Submission outcomes keyed by outcome name
	Submissions      map[string]int64
	SubmissionsMutex sync.RWMutex

	CircuitBreakerOpens  int64
	CircuitBreakerCloses int64

	RateLimitIPBlocks      int64
	RateLimitRedisErrors   int64
	RateLimitFallbackCount int64

	registry          *prometheus.Registry
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
	submissionTotal   *prometheus.CounterVec
	submissionLatency *prometheus.HistogramVec
	breakerState      *prometheus.GaugeVec
	rateLimitEvents   *prometheus.CounterVec
}

// NewMetrics creates a new metrics instance with its own Prometheus registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		StartTime:            time.Now(),
		ResponseTimes:        make([]time.Duration, 0, 1000),
		RequestCountByStatus: make(map[int]int64),
		Submissions:          make(map[string]int64),
		registry:             registry,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brightshare_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brightshare_http_latency_ms",
				Help:    "HTTP request latency in milliseconds",
				Buckets: latencyBuckets,
			},
			[]string{"method", "route"},
		),
		submissionTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brightshare_submissions_total",
				Help: "Dashboard submissions by outcome",
			},
			[]string{"outcome"},
		),
		submissionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brightshare_submission_latency_ms",
				Help:    "Time from submit to report or failure in milliseconds",
				Buckets: latencyBuckets,
			},
			[]string{"outcome"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "brightshare_circuit_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
			},
			[]string{"breaker"},
		),
		rateLimitEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brightshare_rate_limit_events_total",
				Help: "Rate limiter blocks, fallbacks and Redis errors",
			},
			[]string{"event"},
		),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// RecordResponseTime records response time for averaging and percentiles
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)

	// keep the last 1000 samples
	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = append(m.ResponseTimes, duration)
	if len(m.ResponseTimes) > 1000 {
		m.ResponseTimes = m.ResponseTimes[1:]
	}
	m.ResponseTimesMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	defer m.StatusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// ObserveHTTP feeds the Prometheus request collectors
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(float64(duration.Milliseconds()))
}

// ObserveSubmission records one dashboard submission outcome
func (m *Metrics) ObserveSubmission(outcome string, duration time.Duration) {
	m.SubmissionsMutex.Lock()
	m.Submissions[outcome]++
	m.SubmissionsMutex.Unlock()

	m.submissionTotal.WithLabelValues(outcome).Inc()
	m.submissionLatency.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

// RecordBreakerTransition matches resilience.CircuitBreakerConfig.OnStateChange
func (m *Metrics) RecordBreakerTransition(name string, from, to resilience.CircuitBreakerState) {
	switch to {
	case resilience.StateOpen:
		atomic.AddInt64(&m.CircuitBreakerOpens, 1)
	case resilience.StateClosed:
		atomic.AddInt64(&m.CircuitBreakerCloses, 1)
	}
	m.breakerState.WithLabelValues(name).Set(float64(to))
}

// GetPercentileResponseTime calculates percentile response time
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.ResponseTimesMutex.RLock()
	defer m.ResponseTimesMutex.RUnlock()

	if len(m.ResponseTimes) == 0 {
		return 0
	}

	times := make([]time.Duration, len(m.ResponseTimes))
	copy(times, m.ResponseTimes)

	sort.Slice(times, func(i, j int) bool {
		return times[i] < times[j]
	})

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}

	return times[index]
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64, len(m.RequestCountByStatus))
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetSubmissionStats returns submission counts by outcome
func (m *Metrics) GetSubmissionStats() map[string]int64 {
	m.SubmissionsMutex.RLock()
	defer m.SubmissionsMutex.RUnlock()

	stats := make(map[string]int64, len(m.Submissions))
	for outcome, count := range m.Submissions {
		stats[outcome] = count
	}
	return stats
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	avgResponseTime := atomic.LoadInt64(&m.AverageResponseTime)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"total_requests":       requests,
		"error_count":          errors,
		"error_rate_percent":   errorRate,
		"avg_response_time_ms": float64(avgResponseTime) / 1000000,
		"start_time":           m.StartTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1000000,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1000000,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1000000,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"submissions":              m.GetSubmissionStats(),

		"circuit_breaker_opens":  atomic.LoadInt64(&m.CircuitBreakerOpens),
		"circuit_breaker_closes": atomic.LoadInt64(&m.CircuitBreakerCloses),

		"rate_limit": m.GetRateLimitStats(),
	}
}

// Reset resets all counters (useful for testing). Prometheus collectors are
// cumulative and are left alone.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.AverageResponseTime, 0)
	atomic.StoreInt64(&m.CircuitBreakerOpens, 0)
	atomic.StoreInt64(&m.CircuitBreakerCloses, 0)
	atomic.StoreInt64(&m.RateLimitIPBlocks, 0)
	atomic.StoreInt64(&m.RateLimitRedisErrors, 0)
	atomic.StoreInt64(&m.RateLimitFallbackCount, 0)

	m.ResponseTimesMutex.Lock()
	m.ResponseTimes = m.ResponseTimes[:0]
	m.ResponseTimesMutex.Unlock()

	m.StatusMutex.Lock()
	m.RequestCountByStatus = make(map[int]int64)
	m.StatusMutex.Unlock()

	m.SubmissionsMutex.Lock()
	m.Submissions = make(map[string]int64)
	m.SubmissionsMutex.Unlock()

	m.StartTime = time.Now()
}

// IncrementRateLimitIPBlock increments IP-based rate limit blocks
func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.RateLimitIPBlocks, 1)
	m.rateLimitEvents.WithLabelValues("ip_block").Inc()
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
	m.rateLimitEvents.WithLabelValues("redis_error").Inc()
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
	m.rateLimitEvents.WithLabelValues("fallback").Inc()
}

// GetRateLimitStats returns rate limiting statistics
func (m *Metrics) GetRateLimitStats() map[string]interface{} {
	return map[string]interface{}{
		"ip_blocks":      atomic.LoadInt64(&m.RateLimitIPBlocks),
		"redis_errors":   atomic.LoadInt64(&m.RateLimitRedisErrors),
		"fallback_count": atomic.LoadInt64(&m.RateLimitFallbackCount),
	}
}

// Registry exposes the Prometheus registry backing this instance
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PrometheusHandler serves the registry in the Prometheus exposition format
func (m *Metrics) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
