package lifecycle

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/trainer-bot/internal/middleware"
	"github.com/Proton-105/trainer-bot/pkg/logger"
)

type probeResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewOpsHandler serves /metrics, /healthz and /readyz.
func NewOpsHandler(probes HealthChecker, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", probeHandler(probes.Liveness))
	mux.HandleFunc("GET /readyz", probeHandler(probes.Readiness))

	return logger.Middleware(middleware.HTTPLogging(log)(mux))
}

func probeHandler(probe ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := probeResponse{Status: "ok"}
		code := http.StatusOK
		if err := probe(r.Context()); err != nil {
			resp = probeResponse{Status: "unavailable", Error: err.Error()}
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
