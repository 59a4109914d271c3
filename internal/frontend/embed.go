package frontend

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html static/*
var assetsFS embed.FS

// GetStaticFS returns the embedded stylesheet and script assets
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(assetsFS, "static")
}

// GetTemplateFS returns the embedded page templates
func GetTemplateFS() (fs.FS, error) {
	return fs.Sub(assetsFS, "templates")
}
