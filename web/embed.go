// Package web embeds the browser frontend served at /.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var files embed.FS

// Static returns the frontend rooted at its index.html.
func Static() (fs.FS, error) {
	return fs.Sub(files, "static")
}
