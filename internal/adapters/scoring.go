package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/brightshare/internal/errors"
	"github.com/ZanzyTHEbar/brightshare/internal/resilience"
	"github.com/ZanzyTHEbar/brightshare/internal/types"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	scoringService = "scoring service"
	userAgent      = "BrightShare-Dashboard/1.0"

	// cap on how much of an error body is kept for diagnostics
	maxErrorBody = 4 << 10
	// cap on a successful payload; reports are a few KB
	maxReportBody = 1 << 20
)

var validate = validator.New()

// ScoringConfig configures a ScoringAdapter
type ScoringConfig struct {
	Endpoint         string
	Timeout          time.Duration
	MaxIdleConns     int
	MaxActiveConns   int
	FailureThreshold int
	RecoveryTimeout  time.Duration

	// OnBreakerChange is forwarded to the circuit breaker
	OnBreakerChange func(name string, from, to resilience.CircuitBreakerState)
}

// ScoringAdapter calls the remote scoring service for one video at a time
type ScoringAdapter struct {
	endpoint string
	timeout  time.Duration
	pool     *resilience.ConnectionPool
	tracer   trace.Tracer
}

// NewScoringAdapter creates a scoring adapter with connection pooling
func NewScoringAdapter(cfg ScoringConfig) *ScoringAdapter {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             "scoring",
		FailureThreshold: cfg.FailureThreshold,
		RecoveryTimeout:  cfg.RecoveryTimeout,
		OnStateChange:    cfg.OnBreakerChange,
	})

	pool := resilience.NewConnectionPool(cfg.MaxIdleConns, cfg.MaxActiveConns, 90*time.Second, cb)

	return &ScoringAdapter{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		pool:     pool,
		tracer:   otel.Tracer("brightshare-scoring-adapter"),
	}
}

// Score posts videoURL to the scoring service and decodes the report.
// The caller is expected to have trimmed and validated videoURL already.
func (s *ScoringAdapter) Score(ctx context.Context, videoURL string) (*types.ScoreReport, error) {
	ctx, span := s.tracer.Start(ctx, "ScoringAdapter.Score",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("scoring.endpoint", s.endpoint),
			attribute.Int("scoring.video_url_length", len(videoURL)),
		),
	)
	defer span.End()

	report, err := s.score(ctx, videoURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Float64("scoring.reward_score", types.Float(report.RewardScore)))
	span.SetStatus(codes.Ok, "report decoded")
	return report, nil
}

func (s *ScoringAdapter) score(ctx context.Context, videoURL string) (*types.ScoreReport, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(types.AnalyzeRequest{VideoURL: videoURL})
	if err != nil {
		return nil, errors.NewInternalError("Failed to encode scoring request", err)
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   userAgent,
	}

	resp, err := s.pool.DoRequest(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload), headers)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, errors.NewUpstreamStatusError(scoringService, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBody))
	if err != nil {
		return nil, transportError(err)
	}

	return decodeReport(raw)
}

// decodeReport fails closed: a report missing any required score is rejected
// rather than rendered with silent zeros.
func decodeReport(raw []byte) (*types.ScoreReport, error) {
	var report types.ScoreReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, errors.NewMalformedResponseError("Scoring service returned an unreadable response", err)
	}

	// the service reports some failures inside a 2xx body
	if report.Error != "" {
		return nil, errors.NewRequestError(fmt.Sprintf("Scoring service reported an error: %s", report.Error), nil)
	}

	if err := validate.Struct(&report); err != nil {
		return nil, errors.NewMalformedResponseError("Scoring service response is missing required fields", err)
	}

	return &report, nil
}

// transportError maps a failed exchange to a RequestError; any cause the
// errors package does not recognise is still a failure to reach the service.
func transportError(err error) error {
	appErr := errors.ToAppError(err)
	if errors.IsCategory(appErr, errors.CategoryInternal) {
		return errors.NewRequestError("Could not reach the scoring service", err)
	}
	return appErr
}

// GetPoolStats returns connection pool statistics
func (s *ScoringAdapter) GetPoolStats() map[string]interface{} {
	return s.pool.GetStats()
}

// BreakerState reports the scoring circuit breaker state
func (s *ScoringAdapter) BreakerState() resilience.CircuitBreakerState {
	return s.pool.CircuitBreaker().State()
}

// Endpoint returns the configured scoring URL
func (s *ScoringAdapter) Endpoint() string {
	return s.endpoint
}

// Close closes the connection pool
func (s *ScoringAdapter) Close() error {
	return s.pool.Close()
}
