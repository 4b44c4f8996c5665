// Package profiling starts the optional pprof endpoint and Pyroscope
// continuous profiling.
package profiling

import (
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/jonesrussell/feedback-api/infrastructure/logger"
)

const pprofReadHeaderTimeout = 5 * time.Second

// StartPprofServer serves /debug/pprof/ on localhost:port in the background.
// It binds to localhost only.
func StartPprofServer(port string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{
		Addr:              "localhost:" + port,
		Handler:           mux,
		ReadHeaderTimeout: pprofReadHeaderTimeout,
	}

	go func() {
		log.Info("Starting pprof server", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("pprof server error", logger.Error(err))
		}
	}()

	return srv
}
