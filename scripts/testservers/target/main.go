// Command target serves a local endpoint for trying surge policies. It can
// add latency and reject requests above an in-flight limit, which is enough
// to watch a ramp halt.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

type targetOptions struct {
	port        int
	latency     time.Duration
	maxInFlight int64
}

func main() {
	var opts targetOptions
	fs := pflag.NewFlagSet("target", pflag.ExitOnError)
	fs.IntVar(&opts.port, "port", 8080, "Listening port")
	fs.DurationVar(&opts.latency, "latency", 0, "Delay added to every response")
	fs.Int64Var(&opts.maxInFlight, "max-inflight", 0, "Answer 503 above this many concurrent requests (0 disables)")
	_ = fs.Parse(os.Args[1:])

	if opts.port <= 0 {
		logrus.Fatal("port must be > 0")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.port),
		Handler:           newHandler(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logrus.WithFields(logrus.Fields{
		"addr":         srv.Addr,
		"latency":      opts.latency,
		"max_inflight": opts.maxInFlight,
	}).Info("target listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.WithError(err).Fatal("target stopped")
	}
}

func newHandler(opts targetOptions) http.Handler {
	var inFlight atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)

		if opts.latency > 0 {
			select {
			case <-time.After(opts.latency):
			case <-r.Context().Done():
				return
			}
		}
		if opts.maxInFlight > 0 && n > opts.maxInFlight {
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "overloaded", "in_flight": n})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "path": r.URL.Path})
	})
	return mux
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
