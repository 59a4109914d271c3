package main

import (
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/brightshare/internal/dashboard"
	"github.com/ZanzyTHEbar/brightshare/internal/errors"
	"github.com/ZanzyTHEbar/brightshare/internal/resilience"
	"github.com/ZanzyTHEbar/brightshare/internal/session"
	"github.com/ZanzyTHEbar/brightshare/internal/types"
	"github.com/gin-gonic/gin"
)

// StateResponse is the session's dashboard state
type StateResponse struct {
	Input      string                    `json:"input"`
	InFlight   bool                      `json:"in_flight"`
	Report     *types.ScoreReport        `json:"report"`
	Disclosure dashboard.DisclosureState `json:"disclosure" swaggertype:"object,boolean"`
}

// DisclosureResponse is returned after toggling a node
type DisclosureResponse struct {
	Node       dashboard.NodeID          `json:"node" swaggertype:"string"`
	Open       bool                      `json:"open"`
	Disclosure dashboard.DisclosureState `json:"disclosure" swaggertype:"object,boolean"`
}

// ViewResponse wraps the rendered view; View is null until a report exists
type ViewResponse struct {
	View *dashboard.ViewModel `json:"view"`
}

func mustSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := session.FromContext(c)
	if !ok {
		_ = c.Error(errors.NewInternalError("session middleware not installed", nil))
	}
	return sess, ok
}

// handleAnalyze godoc
//
//	@Summary		Score a TikTok video
//	@Description	Submits one video URL for the caller's session and returns the score report.
//	@Tags			dashboard
//	@Accept			json
//	@Produce		json
//	@Param			request	body		types.AnalyzeRequest	true	"Video to score"
//	@Success		200		{object}	types.ScoreReport
//	@Failure		400		{object}	errors.ErrorResponse	"Blank, oversize or invalid URL"
//	@Failure		409		{object}	errors.ErrorResponse	"A submission is already in flight"
//	@Failure		429		{object}	errors.ErrorResponse
//	@Failure		502		{object}	errors.ErrorResponse	"Scoring service failed or sent a malformed report"
//	@Failure		504		{object}	errors.ErrorResponse
//	@Router			/api/analyze [post]
func (a *app) handleAnalyze(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req types.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("Invalid request body", err.Error()))
		return
	}

	if appErr := a.security.ValidateSubmission(req.VideoURL); appErr != nil {
		sess.Controller.SetInput(req.VideoURL)
		_ = c.Error(appErr)
		return
	}

	report, err := sess.Controller.Submit(c.Request.Context(), req.VideoURL)
	if err != nil {
		// the response carries the failure; do not repeat it on the page
		sess.TakeNotice()
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// handleState godoc
//
//	@Summary	Dashboard state
//	@Tags		dashboard
//	@Produce	json
//	@Success	200	{object}	StateResponse
//	@Router		/api/state [get]
func (a *app) handleState(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	state := sess.Controller.Snapshot()
	c.JSON(http.StatusOK, StateResponse{
		Input:      state.Input,
		InFlight:   state.InFlight,
		Report:     state.Report,
		Disclosure: sess.Disclosure(),
	})
}

// handleToggleDisclosure godoc
//
//	@Summary	Toggle an explanatory panel
//	@Tags		dashboard
//	@Produce	json
//	@Param		node	path		string	true	"Node"	Enums(composite, engagement, content, aigc, mission)
//	@Success	200		{object}	DisclosureResponse
//	@Failure	400		{object}	errors.ErrorResponse
//	@Router		/api/disclosure/{node} [post]
func (a *app) handleToggleDisclosure(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	id, err := dashboard.ParseNodeID(c.Param("node"))
	if err != nil {
		_ = c.Error(errors.NewValidationError("Unknown score node", err.Error()))
		return
	}

	state := sess.Toggle(id)
	c.JSON(http.StatusOK, DisclosureResponse{
		Node:       id,
		Open:       state.IsOpen(id),
		Disclosure: state,
	})
}

// handleView godoc
//
//	@Summary		Rendered score view
//	@Description	Returns the formatted hierarchy the page draws, localized from Accept-Language.
//	@Tags			dashboard
//	@Produce		json
//	@Success		200	{object}	ViewResponse
//	@Router			/api/view [get]
func (a *app) handleView(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	loc := a.dashboard.Localizer(c)
	c.JSON(http.StatusOK, ViewResponse{
		View: dashboard.Render(sess.Controller.Report(), sess.Disclosure(), loc),
	})
}

// handleHealth godoc
//
//	@Summary	Liveness and scoring breaker state
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Failure	503	{object}	map[string]interface{}
//	@Router		/health [get]
func (a *app) handleHealth(c *gin.Context) {
	breaker := a.scorer.BreakerState()

	response := gin.H{
		"status":          "ok",
		"timestamp":       time.Now().Format(time.RFC3339),
		"version":         "1.0.0",
		"scoring_breaker": breaker,
		"sessions":        a.sessions.Size(),
	}

	if breaker == resilience.StateOpen {
		response["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

// handleServiceHealth godoc
//
//	@Summary	Dependency statistics
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Router		/health/services [get]
func (a *app) handleServiceHealth(c *gin.Context) {
	redisStatus := "disabled"
	if a.redis.IsEnabled() {
		redisStatus = "ok"
		if err := a.redis.HealthCheck(c.Request.Context()); err != nil {
			redisStatus = err.Error()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"scoring": gin.H{
			"endpoint": a.scorer.Endpoint(),
			"pool":     a.scorer.GetPoolStats(),
		},
		"rate_limiter": a.limiter.GetStats(),
		"redis":        redisStatus,
		"sessions":     a.sessions.Stats(),
		"compression":  a.compression.GetStats(),
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}
