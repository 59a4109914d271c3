package adapters

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/brightshare/internal/errors"
	"github.com/ZanzyTHEbar/brightshare/internal/resilience"
	"github.com/ZanzyTHEbar/brightshare/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `{
	"video_url": "https://www.tiktok.com/@creator/video/7234567890123456789",
	"reward_score": 7.89,
	"thumbnail": {"local_path": "thumbnails/7234.jpg", "url": "https://cdn.example.com/7234.jpg"},
	"engagement_index": {
		"EVI": 0.04523,
		"components": {"likes_ratio": 0.1, "shares_ratio": 0.2, "comments_ratio": 0.05, "collect_ratio": 0.03}
	},
	"content_quality": {"positivity_rate": 0.8123, "toxicity_rate": 0.0412, "Mquality": 0.89},
	"aigc_integrity": {"probability_aigc": 0.4321, "Mintegrity": 0.892, "analysis_detail": {"frames": 12}},
	"mission_bonus": {"small_creator": true, "underrepresented_country": false, "Bmission": 1.1}
}`

func newTestAdapter(t *testing.T, endpoint string, timeout time.Duration) *ScoringAdapter {
	t.Helper()
	adapter := NewScoringAdapter(ScoringConfig{
		Endpoint:         endpoint,
		Timeout:          timeout,
		MaxIdleConns:     1,
		MaxActiveConns:   2,
		FailureThreshold: 5,
		RecoveryTimeout:  time.Minute,
	})
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

func TestScoringAdapter_Score(t *testing.T) {
	var requests int
	var received types.AnalyzeRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleReport))
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server.URL, time.Second)

	report, err := adapter.Score(context.Background(), "https://www.tiktok.com/@creator/video/7234567890123456789")
	require.NoError(t, err)

	assert.Equal(t, 1, requests)
	assert.Equal(t, "https://www.tiktok.com/@creator/video/7234567890123456789", received.VideoURL)
	assert.Equal(t, 7.89, types.Float(report.RewardScore))
	assert.Equal(t, 0.2, types.Float(report.EngagementIndex.Components.SharesRatio))
	assert.True(t, types.Bool(report.MissionBonus.SmallCreator))
	assert.False(t, types.Bool(report.MissionBonus.UnderrepresentedCountry))
	assert.Equal(t, "https://cdn.example.com/7234.jpg", report.Thumbnail.URL)
}

func TestScoringAdapter_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		category errors.ErrorCategory
	}{
		{
			name:     "server error is a request error",
			status:   http.StatusInternalServerError,
			body:     `{"detail":"boom"}`,
			category: errors.CategoryRequest,
		},
		{
			name:     "client error is a request error",
			status:   http.StatusUnprocessableEntity,
			body:     `{"detail":"bad url"}`,
			category: errors.CategoryRequest,
		},
		{
			name:     "error field in 2xx body is a request error",
			status:   http.StatusOK,
			body:     `{"error":"video not found"}`,
			category: errors.CategoryRequest,
		},
		{
			name:     "non-json body is malformed",
			status:   http.StatusOK,
			body:     `<html>gateway</html>`,
			category: errors.CategoryMalformedResponse,
		},
		{
			name:     "missing section is malformed",
			status:   http.StatusOK,
			body:     `{"reward_score": 1.0}`,
			category: errors.CategoryMalformedResponse,
		},
		{
			name:   "missing nested number is malformed",
			status: http.StatusOK,
			body: `{
				"reward_score": 1.0,
				"engagement_index": {"EVI": 0.1, "components": {"likes_ratio": 0.1}},
				"content_quality": {"positivity_rate": 0.5, "toxicity_rate": 0.1, "Mquality": 0.7},
				"aigc_integrity": {"probability_aigc": 0.1, "Mintegrity": 0.97},
				"mission_bonus": {"small_creator": false, "underrepresented_country": false, "Bmission": 1.0}
			}`,
			category: errors.CategoryMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := newTestAdapter(t, server.URL, time.Second)

			report, err := adapter.Score(context.Background(), "https://www.tiktok.com/@creator/video/1")
			assert.Nil(t, report)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
		})
	}
}

func TestScoringAdapter_FalseFlagsAreNotMissing(t *testing.T) {
	body := `{
		"reward_score": 0,
		"engagement_index": {"EVI": 0, "components": {"likes_ratio": 0, "shares_ratio": 0, "comments_ratio": 0, "collect_ratio": 0}},
		"content_quality": {"positivity_rate": 0, "toxicity_rate": 0, "Mquality": 0},
		"aigc_integrity": {"probability_aigc": 0, "Mintegrity": 1},
		"mission_bonus": {"small_creator": false, "underrepresented_country": false, "Bmission": 1}
	}`

	report, err := decodeReport([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, 0.0, types.Float(report.RewardScore))
	assert.Nil(t, report.Thumbnail)
}

func TestScoringAdapter_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	adapter := newTestAdapter(t, server.URL, 50*time.Millisecond)

	_, err := adapter.Score(context.Background(), "https://www.tiktok.com/@creator/video/1")
	require.Error(t, err)

	appErr := errors.ToAppError(err)
	assert.Equal(t, errors.CategoryRequest, appErr.Category)
	assert.Equal(t, http.StatusGatewayTimeout, appErr.HTTPStatus)
}

func TestScoringAdapter_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	adapter := newTestAdapter(t, endpoint, time.Second)

	_, err := adapter.Score(context.Background(), "https://www.tiktok.com/@creator/video/1")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryRequest), "got %v", err)
}

func TestScoringAdapter_OpenBreakerStillCallsService(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	healthy := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		ok := healthy
		mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleReport))
	}))
	defer server.Close()

	adapter := newTestAdapter(t, server.URL, time.Second)

	for i := 0; i < 5; i++ {
		_, err := adapter.Score(context.Background(), "https://www.tiktok.com/@creator/video/1")
		require.Error(t, err)
	}
	require.Equal(t, resilience.StateOpen, adapter.BreakerState())

	mu.Lock()
	healthy = true
	mu.Unlock()

	report, err := adapter.Score(context.Background(), "https://www.tiktok.com/@creator/video/2")
	require.NoError(t, err)
	assert.Equal(t, 7.89, types.Float(report.RewardScore))

	mu.Lock()
	assert.Equal(t, 6, requests, "every submission reaches the service exactly once")
	mu.Unlock()
	assert.Equal(t, resilience.StateClosed, adapter.BreakerState())
}

func TestScoringAdapter_ConcurrentCallsBeyondPoolSizeAllReachService(t *testing.T) {
	var mu sync.Mutex
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleReport))
	}))
	defer server.Close()

	// the test adapter allows two active requests
	adapter := newTestAdapter(t, server.URL, 5*time.Second)

	const calls = 6
	var wg sync.WaitGroup
	errs := make(chan error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := adapter.Score(context.Background(), "https://www.tiktok.com/@creator/video/1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	mu.Lock()
	assert.Equal(t, calls, requests)
	mu.Unlock()
}
