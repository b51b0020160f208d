package console

/*
	This file contains functionality related to rendering templates
*/

import (
	"html/template"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unrolled/render"

	"github.com/trawler-io/trawler"
)

var timeFormat = "2006-01-02 15:04:05 -0700"

func ftimeFunc(ts float64) string {
	if ts == 0 {
		return ""
	}
	return trawler.FromUnixSeconds(ts).Format(timeFormat)
}

func fdurationFunc(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Truncate(time.Millisecond).String()
}

// Render is the global render.Render object used by all controllers
var Render *render.Render

// BuildRender builds Render
func BuildRender() {
	Render = render.New(render.Options{
		Directory:     trawler.Config.Console.TemplateDirectory,
		Layout:        "layout",
		IndentJSON:    true,
		IsDevelopment: true,
		Funcs: []template.FuncMap{
			template.FuncMap{
				"ftime":      ftimeFunc,
				"fduration":  fdurationFunc,
				"statusText": http.StatusText,
			},
		},
	})
}

func replyServerError(w http.ResponseWriter, err error) {
	log.Errorf("Rendering 500: %v", err)
	mp := map[string]interface{}{
		"anErrorHappend": true,
		"theError":       err.Error(),
	}
	Render.HTML(w, http.StatusInternalServerError, "serverError", mp)
}
