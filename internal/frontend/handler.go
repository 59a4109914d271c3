package frontend

import (
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/brightshare/internal/dashboard"
	"github.com/ZanzyTHEbar/brightshare/internal/errors"
	"github.com/ZanzyTHEbar/brightshare/internal/security"
	"github.com/ZanzyTHEbar/brightshare/internal/session"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the server-rendered dashboard
type DashboardHandler struct {
	tmpl          *template.Template
	security      *security.SecurityMiddleware
	defaultLocale string
}

// NewDashboardHandler creates the dashboard page handlers
func NewDashboardHandler(tmpl *template.Template, sm *security.SecurityMiddleware, defaultLocale string) *DashboardHandler {
	return &DashboardHandler{
		tmpl:          tmpl,
		security:      sm,
		defaultLocale: defaultLocale,
	}
}

// Localizer picks the page language from Accept-Language
func (h *DashboardHandler) Localizer(c *gin.Context) *dashboard.Localizer {
	return dashboard.NewLocalizer(c.GetHeader("Accept-Language"), h.defaultLocale)
}

// Index renders the caller's dashboard
func (h *DashboardHandler) Index(c *gin.Context) {
	sess, ok := session.FromContext(c)
	if !ok {
		_ = c.Error(errors.NewInternalError("session middleware not installed", nil))
		return
	}

	nonce := security.GetNonce(c)
	if nonce == "" {
		slog.Warn("CSP nonce not found in context, generating new one")
		var err error
		nonce, err = security.GenerateNonce()
		if err != nil {
			_ = c.Error(errors.NewInternalError("Failed to generate nonce", err))
			return
		}
	}

	loc := h.Localizer(c)
	state := sess.Controller.Snapshot()

	data := PageData{
		Nonce:    nonce,
		Language: loc.Language(),
		Input:    state.Input,
		InFlight: state.InFlight,
		Notice:   sess.TakeNotice(),
		View:     dashboard.Render(state.Report, sess.Disclosure(), loc),
		Labels:   dashboard.PageLabels(loc),
	}

	if err := RenderDashboard(c, h.tmpl, data); err != nil {
		slog.Error("Failed to render dashboard", "error", err, "path", c.Request.URL.Path)
		_ = c.Error(errors.NewInternalError("Failed to render page", err))
		return
	}
}

// Submit runs one submission for the session and redirects back to the page
func (h *DashboardHandler) Submit(c *gin.Context) {
	sess, ok := session.FromContext(c)
	if !ok {
		_ = c.Error(errors.NewInternalError("session middleware not installed", nil))
		return
	}

	input := c.PostForm("video_url")

	if appErr := h.security.ValidateSubmission(input); appErr != nil {
		errors.LogError(c, appErr)
		sess.Controller.SetInput(input)
		sess.Flash(appErr.Message())
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	if _, err := sess.Controller.Submit(c.Request.Context(), input); err != nil {
		appErr := errors.ToAppError(err)
		errors.LogError(c, appErr)
		// the controller only notifies for failures it ran; a rejected
		// duplicate needs its own message
		if errors.IsCategory(appErr, errors.CategoryConflict) {
			sess.Flash(appErr.Message())
		}
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// RateLimited shows a throttled submission as a notice on the page
func (h *DashboardHandler) RateLimited(c *gin.Context, appErr *errors.AppError) {
	sess, ok := session.FromContext(c)
	if !ok {
		_ = c.Error(appErr)
		return
	}

	message := appErr.Message()
	if wait := c.Writer.Header().Get("Retry-After"); wait != "" {
		message += ". Please try again in " + wait + " seconds"
	}
	sess.Controller.SetInput(c.PostForm("video_url"))
	sess.Flash(message)
	c.Redirect(http.StatusSeeOther, "/")
}

// ToggleDisclosure flips one explanatory panel and redirects back to the page
func (h *DashboardHandler) ToggleDisclosure(c *gin.Context) {
	sess, ok := session.FromContext(c)
	if !ok {
		_ = c.Error(errors.NewInternalError("session middleware not installed", nil))
		return
	}

	id, err := dashboard.ParseNodeID(c.Param("node"))
	if err != nil {
		_ = c.Error(errors.NewValidationError("Unknown score node", err.Error()))
		return
	}

	sess.Toggle(id)
	c.Redirect(http.StatusSeeOther, "/#node-"+id.String())
}

// NewStaticHandler serves embedded assets with caching headers
func NewStaticHandler(staticFS fs.FS) gin.HandlerFunc {
	fileServer := http.StripPrefix("/static", http.FileServer(http.FS(staticFS)))

	return func(c *gin.Context) {
		name := strings.TrimPrefix(c.Param("filepath"), "/")
		if name == "" {
			c.Status(http.StatusNotFound)
			return
		}

		if _, err := fs.Stat(staticFS, name); err != nil {
			c.Status(http.StatusNotFound)
			return
		}

		c.Header("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
