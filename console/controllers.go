/*
	This file contains the web-facing handlers.
*/
package console

import (
	"fmt"
	"net/http"
)

type Route struct {
	Path       string
	Controller func(w http.ResponseWriter, req *http.Request)
}

func Routes() []Route {
	return []Route{
		Route{Path: "/", Controller: HomeController},
		Route{Path: "/status", Controller: StatusController},
	}
}

func HomeController(w http.ResponseWriter, req *http.Request) {
	info, err := DS.Status(req.Context())
	if err != nil {
		replyServerError(w, fmt.Errorf("Status failed: %v", err))
		return
	}
	mp := map[string]interface{}{
		"Status": info,
	}
	Render.HTML(w, http.StatusOK, "home", mp)
}

// StatusController serves the crawl snapshot as JSON for scripts and
// monitoring.
func StatusController(w http.ResponseWriter, req *http.Request) {
	info, err := DS.Status(req.Context())
	if err != nil {
		Render.JSON(w, http.StatusInternalServerError, buildError("status-error", "%v", err))
		return
	}
	Render.JSON(w, http.StatusOK, info)
}
