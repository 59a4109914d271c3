package frontend

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"regexp"

	"github.com/ZanzyTHEbar/brightshare/internal/dashboard"
	"github.com/gin-gonic/gin"
)

var (
	scriptTagRegex = regexp.MustCompile(`<script([^>]*)>`)
	styleTagRegex  = regexp.MustCompile(`<link([^>]*rel=["']stylesheet["'][^>]*)>`)
)

// PageData is what dashboard.html renders
type PageData struct {
	Nonce    string
	Language string
	Input    string
	InFlight bool
	Notice   string
	View     *dashboard.ViewModel
	Labels   dashboard.Labels
}

// LoadDashboardTemplate loads dashboard.html from templateFS and injects nonce placeholders
func LoadDashboardTemplate(templateFS fs.FS) (*template.Template, error) {
	file, err := templateFS.Open("dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("failed to open dashboard.html: %w", err)
	}
	defer file.Close()

	htmlContent, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard.html: %w", err)
	}

	tmpl, err := template.New("dashboard").Parse(processHTMLForNonce(string(htmlContent)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return tmpl, nil
}

// processHTMLForNonce modifies HTML to include nonce template placeholders
func processHTMLForNonce(html string) string {
	html = scriptTagRegex.ReplaceAllString(html, `<script nonce="{{.Nonce}}"$1>`)
	html = styleTagRegex.ReplaceAllString(html, `<link nonce="{{.Nonce}}"$1>`)
	return html
}

// RenderDashboard executes the template into a buffer so a failure never sends a partial page
func RenderDashboard(c *gin.Context, tmpl *template.Template, data PageData) error {
	var buf bytes.Buffer

	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	return nil
}
