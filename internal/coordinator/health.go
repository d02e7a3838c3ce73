package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// HealthServer provides HTTP health check endpoints for the coordinator.
type HealthServer struct {
	addr     string
	bus      Pinger
	ledger   Pinger
	watchdog *floorbus.Watchdog
	cache    *StateCache
	server   *http.Server
}

// NewHealthServer creates a new health check server. watchdog and cache may be nil.
func NewHealthServer(addr string, bus, ledger Pinger, watchdog *floorbus.Watchdog, cache *StateCache) *HealthServer {
	return &HealthServer{
		addr:     addr,
		bus:      bus,
		ledger:   ledger,
		watchdog: watchdog,
		cache:    cache,
	}
}

// Start starts the HTTP health check server in the background.
func (h *HealthServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheckHandler)

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Health server error: %v\n", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health check server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// healthCheckHandler handles GET /healthz requests.
// Returns 200 OK if Redis and the ledger are reachable, 503 Service Unavailable otherwise.
func (h *HealthServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status: "healthy",
		Redis:  "connected",
		Ledger: "ok",
	}
	if h.watchdog != nil {
		response.Bus = h.watchdog.State().String()
	}
	if h.cache != nil {
		if snap := h.cache.Get(); snap.SessionActive() {
			response.ActiveOperator = snap.Session.OperatorID
		}
	}

	var errs []string
	if err := h.bus.Ping(ctx); err != nil {
		response.Redis = "disconnected"
		errs = append(errs, fmt.Sprintf("redis: %v", err))
	}
	if err := h.ledger.Ping(ctx); err != nil {
		response.Ledger = "unavailable"
		errs = append(errs, fmt.Sprintf("ledger: %v", err))
	}

	status := http.StatusOK
	if len(errs) > 0 {
		response.Status = "unhealthy"
		response.Error = strings.Join(errs, "; ")
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status         string `json:"status"`
	Redis          string `json:"redis,omitempty"`
	Ledger         string `json:"ledger,omitempty"`
	Bus            string `json:"bus,omitempty"`
	ActiveOperator string `json:"active_operator,omitempty"`
	Error          string `json:"error,omitempty"`
}
