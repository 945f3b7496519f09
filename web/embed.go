// Package web embeds the dashboard front end served at the site root.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist/*
var distFiles embed.FS

// GetDistFS returns the embedded dashboard files rooted at dist
func GetDistFS() (fs.FS, error) {
	return fs.Sub(distFiles, "dist")
}
