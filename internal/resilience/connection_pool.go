package resilience

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// errUpstreamFailure marks a 5xx response so the breaker counts it without
// discarding the response the caller still needs to read.
var errUpstreamFailure = stderrors.New("upstream returned a server error")

// ConnectionPool shares one transport across callers of a single upstream.
// Callers beyond maxActive wait for a slot; every outcome feeds the breaker.
type ConnectionPool struct {
	maxIdle     int
	maxActive   int
	idleTimeout time.Duration

	circuitBreaker *CircuitBreaker
	transport      *http.Transport
	client         *http.Client
	slots          chan struct{}

	active    int64
	completed int64
	failed    int64
}

// NewConnectionPool creates a pool of at most maxActive concurrent requests
func NewConnectionPool(maxIdle, maxActive int, idleTimeout time.Duration, cb *CircuitBreaker) *ConnectionPool {
	if maxActive <= 0 {
		maxActive = 1
	}
	if maxIdle <= 0 {
		maxIdle = 1
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          maxIdle,
		MaxConnsPerHost:       maxActive,
		MaxIdleConnsPerHost:   maxIdle,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		maxIdle:        maxIdle,
		maxActive:      maxActive,
		idleTimeout:    idleTimeout,
		circuitBreaker: cb,
		transport:      transport,
		// no client-level timeout: callers bound latency through ctx
		client: &http.Client{Transport: transport},
		slots:  make(chan struct{}, maxActive),
	}
}

func (cp *ConnectionPool) acquire(ctx context.Context) error {
	select {
	case cp.slots <- struct{}{}:
		atomic.AddInt64(&cp.active, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (cp *ConnectionPool) release() {
	atomic.AddInt64(&cp.active, -1)
	<-cp.slots
}

// DoRequest executes exactly one HTTP request, waiting for a free slot first.
// Transport errors and 5xx responses count against the breaker; a 5xx response
// is still returned to the caller.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	if err := cp.acquire(ctx); err != nil {
		return nil, err
	}
	defer cp.release()

	var resp *http.Response

	err := cp.circuitBreaker.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return err
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		resp, err = cp.client.Do(req)
		duration := time.Since(start)

		if err != nil {
			atomic.AddInt64(&cp.failed, 1)
			slog.Warn("Request failed", "url", url, "error", err, "duration_ms", duration.Milliseconds())
			return err
		}

		atomic.AddInt64(&cp.completed, 1)
		slog.Debug("Request completed", "url", url, "status", resp.StatusCode, "duration_ms", duration.Milliseconds())

		if resp.StatusCode >= http.StatusInternalServerError {
			return errUpstreamFailure
		}
		return nil
	})

	if stderrors.Is(err, errUpstreamFailure) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CircuitBreaker exposes the breaker guarding this pool
func (cp *ConnectionPool) CircuitBreaker() *CircuitBreaker {
	return cp.circuitBreaker
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"active_requests":       atomic.LoadInt64(&cp.active),
		"completed_requests":    atomic.LoadInt64(&cp.completed),
		"failed_requests":       atomic.LoadInt64(&cp.failed),
		"max_idle":              cp.maxIdle,
		"max_active":            cp.maxActive,
		"idle_timeout_ms":       cp.idleTimeout.Milliseconds(),
		"circuit_breaker_state": cp.circuitBreaker.State(),
	}
}

// Close drops idle keep-alive connections
func (cp *ConnectionPool) Close() error {
	cp.transport.CloseIdleConnections()
	slog.Info("Connection pool closed")
	return nil
}
