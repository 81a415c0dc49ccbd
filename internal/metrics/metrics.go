package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	initOnce       sync.Once
	serverMutex    sync.Mutex
	currentSrv     *http.Server
	triggerChannel chan struct{}

	// healthy is flipped by the scheduler after every cycle
	healthy atomic.Bool
)

// Init initializes all metrics subsystems and registers them with Prometheus
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initWalkerMetrics()
		initDaemonMetrics()

		registerWalkerMetrics()
		registerDaemonMetrics()

		// Present in /metrics before the first run
		LastRunTimestamp.WithLabelValues("count").Set(0)
		LastRunTimestamp.WithLabelValues("remove").Set(0)

		triggerChannel = make(chan struct{}, 1)
		healthy.Store(true)
	})
}

// Trigger returns the channel that receives on-demand run requests
func Trigger() <-chan struct{} {
	Init()
	return triggerChannel
}

// SetHealthy records whether the last cycle completed without a fatal error
func SetHealthy(ok bool) {
	healthy.Store(ok)
}

// Healthy reports the last value passed to SetHealthy
func Healthy() bool {
	return healthy.Load()
}

// Handler serves /metrics, /health and /trigger
func Handler() http.Handler {
	Init()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if Healthy() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok","healthy":true}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","healthy":false}`))
	})

	mux.HandleFunc("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		select {
		case triggerChannel <- struct{}{}:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Run triggered"))
		default:
			http.Error(w, "Run already pending", http.StatusServiceUnavailable)
		}
	})

	return mux
}

// StartServer starts the metrics HTTP server on addr. The listener is bound
// before returning so address errors surface to the caller.
func StartServer(addr string, logger zerolog.Logger) error {
	Init()

	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Warn().Str("addr", currentSrv.Addr).Msg("Metrics server already running")
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		ErrorsTotal.Inc()
		return err
	}

	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: Handler(),
	}
	currentSrv = srv

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Metrics server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server error")
			ErrorsTotal.Inc()
		}
	}()

	return nil
}

// ServerAddr returns the bound address of the running server, or "".
func ServerAddr() string {
	serverMutex.Lock()
	defer serverMutex.Unlock()
	if currentSrv == nil {
		return ""
	}
	return currentSrv.Addr
}

// Shutdown gracefully shuts down the metrics server
func Shutdown(ctx context.Context, logger zerolog.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv == nil {
		return
	}

	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Metrics server shutdown error")
		ErrorsTotal.Inc()
	}
	currentSrv = nil
}
