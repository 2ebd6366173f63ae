package http

import (
	"fmt"
	"io/fs"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"

	"github.com/spec-kit/helpdesk/web"
)

// NewViews builds the template engine over the embedded templates.
func NewViews() (*html.Engine, error) {
	sub, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(nethttp.FS(sub), ".html")
	engine.AddFunc("date", func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04")
	})
	engine.AddFunc("lower", strings.ToLower)
	engine.AddFunc("statusClass", func(status any) string {
		switch strings.ToLower(fmt.Sprint(status)) {
		case "abierto":
			return "open"
		case "en proceso":
			return "progress"
		default:
			return "closed"
		}
	})
	return engine, nil
}
