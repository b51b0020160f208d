/*
Package console serves the web dashboard and REST API over the live crawl
state: visited and frontier sizes, stored page counts, top domains and a
/rest/add endpoint for queueing URLs by hand.
*/
package console

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/trawler-io/trawler"
)

var server *http.Server

// Start spins the console up in the background on Config.Console.Port. DS
// must be set before calling.
func Start() {
	BuildRender()
	router := mux.NewRouter()
	for _, route := range Routes() {
		router.HandleFunc(route.Path, route.Controller)
	}
	for _, route := range RestRoutes() {
		router.HandleFunc(route.Path, route.Controller)
	}

	server = &http.Server{
		Addr:    fmt.Sprintf(":%d", trawler.Config.Console.Port),
		Handler: router,
	}
	go func() {
		log.Infof("Console listening on %v", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Console listener failed: %v", err)
		}
	}()
}

// Stop shuts the console down, letting in-flight requests finish.
func Stop() {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Console shutdown failed: %v", err)
	}
	server = nil
}

// Run starts the console and blocks until ctx is canceled.
func Run(ctx context.Context) {
	Start()
	<-ctx.Done()
	Stop()
}
