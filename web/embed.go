// Package web holds the server-rendered templates.
package web

import "embed"

// Templates contains every page under templates/.
//
//go:embed templates
var Templates embed.FS
