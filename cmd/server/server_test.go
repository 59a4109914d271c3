package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/brightshare/internal/config"
	"github.com/ZanzyTHEbar/brightshare/internal/errors"
	"github.com/ZanzyTHEbar/brightshare/internal/session"
	"github.com/ZanzyTHEbar/brightshare/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const reportJSON = `{
	"video_url": "https://www.tiktok.com/@creator/video/1",
	"reward_score": 7.89,
	"thumbnail": {"local_path": "/tmp/thumb.jpg", "url": "https://cdn.example.com/thumb.jpg"},
	"engagement_index": {
		"EVI": 0.04523,
		"components": {"likes_ratio": 0.1, "shares_ratio": 0.2, "comments_ratio": 0.05, "collect_ratio": 0.03}
	},
	"content_quality": {"positivity_rate": 0.8, "toxicity_rate": 0.1, "Mquality": 0.85},
	"aigc_integrity": {"probability_aigc": 0.4321, "Mintegrity": 0.892, "analysis_detail": {}},
	"mission_bonus": {"small_creator": true, "underrepresented_country": false, "Bmission": 1.2}
}`

// scoringStub stands in for the remote scoring service
type scoringStub struct {
	server *httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	requests []types.AnalyzeRequest
	headers  []http.Header
	gate     chan struct{}
}

func newScoringStub(t *testing.T, status int, body string) *scoringStub {
	t.Helper()
	stub := &scoringStub{status: status, body: body}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req types.AnalyzeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		stub.mu.Lock()
		stub.requests = append(stub.requests, req)
		stub.headers = append(stub.headers, r.Header.Clone())
		gate, status, body := stub.gate, stub.status, stub.body
		stub.mu.Unlock()

		if gate != nil {
			<-gate
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *scoringStub) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func testConfig(endpoint string) config.Config {
	cfg := config.Default()
	cfg.Scoring.Endpoint = endpoint
	cfg.Scoring.Timeout = 2 * time.Second
	cfg.RateLimit.PerMinute = 1000
	cfg.Server.EnableSwagger = true
	return cfg
}

func newTestApp(t *testing.T, cfg config.Config) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

// client replays the session cookie like a browser
type client struct {
	handler http.Handler
	cookie  *http.Cookie
}

func newClient(a *app) *client {
	return &client{handler: a.router}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == session.CookieName {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) submitForm(videoURL string) *httptest.ResponseRecorder {
	form := url.Values{"video_url": {videoURL}}
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) analyze(videoURL string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(types.AnalyzeRequest{VideoURL: videoURL})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

type stateBody struct {
	Input      string             `json:"input"`
	InFlight   bool               `json:"in_flight"`
	Report     *types.ScoreReport `json:"report"`
	Disclosure map[string]bool    `json:"disclosure"`
}

func (c *client) state(t *testing.T) stateBody {
	t.Helper()
	w := c.get("/api/state")
	require.Equal(t, http.StatusOK, w.Code)

	var state stateBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	return state
}

func TestDashboard_EndToEndSuccess(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	a := newTestApp(t, testConfig(stub.server.URL))
	c := newClient(a)

	require.Equal(t, http.StatusOK, c.get("/").Code)

	w := c.submitForm("  https://www.tiktok.com/@creator/video/1  ")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	require.Equal(t, 1, stub.requestCount())
	assert.Equal(t, "https://www.tiktok.com/@creator/video/1", stub.requests[0].VideoURL)
	assert.Equal(t, "application/json", stub.headers[0].Get("Content-Type"))
	assert.Equal(t, "BrightShare-Dashboard/1.0", stub.headers[0].Get("User-Agent"))

	page := c.get("/")
	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()

	assert.Contains(t, body, `<span class="value">7.89</span>`)
	for _, ratio := range []string{"0.1000", "0.2000", "0.0500", "0.0300"} {
		assert.Contains(t, body, ratio)
	}
	assert.Contains(t, body, "43.2%")
	assert.Contains(t, body, "https://cdn.example.com/thumb.jpg")
	assert.NotContains(t, body, `class="explanation"`, "every panel starts closed")
	assert.NotEmpty(t, page.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "DENY", page.Header().Get("X-Frame-Options"))

	state := c.state(t)
	assert.False(t, state.InFlight)
	require.NotNil(t, state.Report)
	assert.Equal(t, 7.89, types.Float(state.Report.RewardScore))
}

func TestDashboard_EndToEndServiceError(t *testing.T) {
	stub := newScoringStub(t, http.StatusInternalServerError, `{"detail":"boom"}`)
	a := newTestApp(t, testConfig(stub.server.URL))
	c := newClient(a)

	c.get("/")
	require.Equal(t, http.StatusSeeOther, c.submitForm("https://www.tiktok.com/@creator/video/1").Code)
	assert.Equal(t, 1, stub.requestCount())

	body := c.get("/").Body.String()
	assert.Equal(t, 1, strings.Count(body, "scoring service returned status 500"))
	assert.NotContains(t, body, `class="report"`)

	// notices are one-shot
	assert.NotContains(t, c.get("/").Body.String(), "scoring service returned status 500")

	state := c.state(t)
	assert.False(t, state.InFlight)
	assert.Nil(t, state.Report)
	assert.Equal(t, "https://www.tiktok.com/@creator/video/1", state.Input)

	assert.Equal(t, int64(1), a.metrics.GetSubmissionStats()["request_error"])
}

func TestDashboard_BlankInputSendsNothing(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	a := newTestApp(t, testConfig(stub.server.URL))
	c := newClient(a)

	c.get("/")
	c.submitForm("   ")

	assert.Equal(t, 0, stub.requestCount())
	assert.Contains(t, c.get("/").Body.String(), "Please enter a TikTok URL")
}

func TestAPI_Analyze(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		input        string
		wantStatus   int
		wantCategory errors.ErrorCategory
		wantRequests int
	}{
		{
			name:         "success",
			status:       http.StatusOK,
			body:         reportJSON,
			input:        "https://www.tiktok.com/@creator/video/1",
			wantStatus:   http.StatusOK,
			wantRequests: 1,
		},
		{
			name:         "blank input",
			status:       http.StatusOK,
			body:         reportJSON,
			input:        "  ",
			wantStatus:   http.StatusBadRequest,
			wantCategory: errors.CategoryValidation,
		},
		{
			name:         "suspicious input",
			status:       http.StatusOK,
			body:         reportJSON,
			input:        "javascript:alert(1)",
			wantStatus:   http.StatusBadRequest,
			wantCategory: errors.CategoryValidation,
		},
		{
			name:         "upstream failure",
			status:       http.StatusServiceUnavailable,
			body:         `{}`,
			input:        "https://www.tiktok.com/@creator/video/1",
			wantStatus:   http.StatusBadGateway,
			wantCategory: errors.CategoryRequest,
			wantRequests: 1,
		},
		{
			name:         "report missing a section",
			status:       http.StatusOK,
			body:         `{"reward_score": 1.5}`,
			input:        "https://www.tiktok.com/@creator/video/1",
			wantStatus:   http.StatusBadGateway,
			wantCategory: errors.CategoryMalformedResponse,
			wantRequests: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newScoringStub(t, tt.status, tt.body)
			a := newTestApp(t, testConfig(stub.server.URL))
			c := newClient(a)

			w := c.analyze(tt.input)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantRequests, stub.requestCount())

			if tt.wantStatus == http.StatusOK {
				var report types.ScoreReport
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
				assert.Equal(t, 7.89, types.Float(report.RewardScore))
				return
			}

			var errResp errors.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
			assert.Equal(t, tt.wantCategory, errResp.Category)
			assert.NotEmpty(t, errResp.Message)

			// the JSON response already carried the failure
			assert.NotContains(t, c.get("/").Body.String(), errResp.Message)
		})
	}
}

func TestAPI_InvalidBody(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	c := newClient(newTestApp(t, testConfig(stub.server.URL)))

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"video_url":`))
	req.Header.Set("Content-Type", "application/json")
	w := c.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, stub.requestCount())
}

func TestAPI_SecondSubmitWhileInFlightIsRejected(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	stub.gate = make(chan struct{})
	c := newClient(newTestApp(t, testConfig(stub.server.URL)))

	c.get("/api/state")
	require.NotNil(t, c.cookie)

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- c.analyze("https://www.tiktok.com/@creator/video/1")
	}()

	require.Eventually(t, func() bool {
		return stub.requestCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, c.state(t).InFlight)

	second := c.analyze("https://www.tiktok.com/@creator/video/2")
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), `"category":"conflict"`)

	close(stub.gate)
	assert.Equal(t, http.StatusOK, (<-first).Code)
	assert.Equal(t, 1, stub.requestCount())
	assert.False(t, c.state(t).InFlight)
}

func TestAPI_DisclosureAndView(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	c := newClient(newTestApp(t, testConfig(stub.server.URL)))

	w := c.get("/api/view")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"view":null}`, w.Body.String())

	w = c.do(httptest.NewRequest(http.MethodPost, "/api/disclosure/composite", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var toggled struct {
		Node       string          `json:"node"`
		Open       bool            `json:"open"`
		Disclosure map[string]bool `json:"disclosure"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.Equal(t, "composite", toggled.Node)
	assert.True(t, toggled.Open)
	assert.Equal(t, map[string]bool{
		"composite": true, "engagement": false, "content": false, "aigc": false, "mission": false,
	}, toggled.Disclosure)

	require.Equal(t, http.StatusOK, c.analyze("https://www.tiktok.com/@creator/video/1").Code)

	w = c.get("/api/view")
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		View struct {
			Composite struct {
				Value       string          `json:"value"`
				Open        bool            `json:"open"`
				Explanation json.RawMessage `json:"explanation"`
			} `json:"composite"`
			Factors []struct {
				ID          string          `json:"id"`
				Open        bool            `json:"open"`
				Explanation json.RawMessage `json:"explanation"`
			} `json:"factors"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "7.89", view.View.Composite.Value)
	assert.True(t, view.View.Composite.Open)
	assert.NotEmpty(t, view.View.Composite.Explanation)
	require.Len(t, view.View.Factors, 4)
	for _, f := range view.View.Factors {
		assert.False(t, f.Open, f.ID)
		assert.Empty(t, f.Explanation, f.ID)
	}

	w = c.do(httptest.NewRequest(http.MethodPost, "/api/disclosure/everything", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessions_AreIsolated(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	a := newTestApp(t, testConfig(stub.server.URL))
	alice, bob := newClient(a), newClient(a)

	alice.get("/")
	bob.get("/")
	require.NotEqual(t, alice.cookie.Value, bob.cookie.Value)

	require.Equal(t, http.StatusOK, alice.analyze("https://www.tiktok.com/@creator/video/1").Code)

	assert.NotNil(t, alice.state(t).Report)
	assert.Nil(t, bob.state(t).Report)
}

func TestSubmit_RateLimited(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	cfg := testConfig(stub.server.URL)
	cfg.RateLimit.PerMinute = 1
	cfg.RateLimit.BurstMultiplier = 1
	c := newClient(newTestApp(t, cfg))

	c.get("/")
	assert.Equal(t, http.StatusSeeOther, c.submitForm("https://www.tiktok.com/@creator/video/1").Code)

	// the page stays an HTML flow: flash and redirect
	w := c.submitForm("https://www.tiktok.com/@creator/video/2")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.NotContains(t, w.Header().Get("Content-Type"), "json")
	assert.Equal(t, 1, stub.requestCount())

	page := c.get("/")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, page.Body.String(), "Rate limit exceeded. Please try again in")
	assert.NotContains(t, c.get("/").Body.String(), "Rate limit exceeded")

	state := c.state(t)
	assert.Equal(t, "https://www.tiktok.com/@creator/video/2", state.Input)
	assert.NotNil(t, state.Report, "the earlier report survives a throttled submit")
}

func TestAPI_AnalyzeRateLimited(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	cfg := testConfig(stub.server.URL)
	cfg.RateLimit.PerMinute = 1
	cfg.RateLimit.BurstMultiplier = 1
	c := newClient(newTestApp(t, cfg))

	require.Equal(t, http.StatusOK, c.analyze("https://www.tiktok.com/@creator/video/1").Code)

	w := c.analyze("https://www.tiktok.com/@creator/video/2")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"category":"rate_limit"`)
	assert.Equal(t, 1, stub.requestCount())
}

func TestSubmit_ClientDisconnectStillStoresReport(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	stub.gate = make(chan struct{})
	c := newClient(newTestApp(t, testConfig(stub.server.URL)))

	c.get("/")
	require.NotNil(t, c.cookie)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	form := url.Values{"video_url": {"https://www.tiktok.com/@creator/video/1"}}
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode())).WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.do(req)
	}()

	require.Eventually(t, func() bool {
		return stub.requestCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	// the browser goes away while the service is still working
	cancel()
	close(stub.gate)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("submit did not return")
	}

	state := c.state(t)
	assert.False(t, state.InFlight)
	require.NotNil(t, state.Report)
	assert.Equal(t, 7.89, types.Float(state.Report.RewardScore))
	assert.Equal(t, "https://www.tiktok.com/@creator/video/1", state.Input)
	assert.Equal(t, 1, stub.requestCount())
}

func TestSessionCookie_LivesForBrowserSession(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	c := newClient(newTestApp(t, testConfig(stub.server.URL)))

	w := c.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, c.cookie)

	// idle expiry is enforced server side, so the cookie carries no lifetime of its own
	assert.Zero(t, c.cookie.MaxAge)
	assert.True(t, c.cookie.Expires.IsZero())
	assert.NotContains(t, w.Header().Get("Set-Cookie"), "Max-Age")
	assert.NotContains(t, w.Header().Get("Set-Cookie"), "Expires")
}

func TestUnsupportedContentType(t *testing.T) {
	stub := newScoringStub(t, http.StatusOK, reportJSON)
	c := newClient(newTestApp(t, testConfig(stub.server.URL)))

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("video_url"))
	req.Header.Set("Content-Type", "text/plain")

	assert.Equal(t, http.StatusUnsupportedMediaType, c.do(req).Code)
	assert.Equal(t, 0, stub.requestCount())
}
