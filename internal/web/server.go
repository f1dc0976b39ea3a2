package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/meridianfi/vce/internal/logger"
	"github.com/meridianfi/vce/internal/state"
	"github.com/meridianfi/vce/internal/types"
	"github.com/meridianfi/vce/internal/utils"
)

var webLogger = logger.GetForComponent("web_server")

// VaultReader is the read-only vault surface the API exposes. All methods are
// side-effect-free views.
type VaultReader interface {
	Status() types.VaultStatus
	InputStatuses() []types.InputStatus
	RequestsOf(owner string) []types.RequestView
	RequestOf(owner, receiver string) (types.RequestView, bool)
	Params() types.VaultParams
}

// statusResponse is the /status payload: the raw base-unit status plus the
// headline totals rendered in whole-asset units for dashboards.
type statusResponse struct {
	types.VaultStatus
	TotalAssetsDisplay float64 `json:"total_assets_display"`
	CashDisplay        float64 `json:"cash_display"`
}

// WebServer handles HTTP requests for vault data
type WebServer struct {
	router *mux.Router
	addr   string
	vault  VaultReader
}

// NewWebServer creates a new web server instance
func NewWebServer(addr string, vault VaultReader) *WebServer {
	if addr == "" {
		addr = ":8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		addr:   addr,
		vault:  vault,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", ws.handleStatus).Methods("GET")
	api.HandleFunc("/inputs", ws.handleInputs).Methods("GET")
	api.HandleFunc("/requests/{owner}", ws.handleOwnerRequests).Methods("GET")
	api.HandleFunc("/requests/{owner}/{receiver}", ws.handleReceiverRequest).Methods("GET")
	api.HandleFunc("/cycles", ws.handleCycles).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("addr", ws.addr).Msg("Starting web server")

	server := &http.Server{
		Addr:         ws.addr,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	}
	if err := state.TestDBConnection(); err != nil {
		health["status"] = "degraded"
		health["database"] = err.Error()
	} else {
		health["database"] = "ok"
	}
	ws.writeJSON(w, http.StatusOK, health)
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := ws.vault.Status()
	decimals := int(ws.vault.Params().AssetDecimals)
	ws.writeJSON(w, http.StatusOK, statusResponse{
		VaultStatus:        status,
		TotalAssetsDisplay: displayAmount(status.TotalAssets, decimals),
		CashDisplay:        displayAmount(status.Cash, decimals),
	})
}

// displayAmount renders a base-unit amount string in whole-asset units.
// Conversion failures degrade to zero with a log line; the raw string field
// remains authoritative.
func displayAmount(raw string, decimals int) float64 {
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		webLogger.Warn().Str("amount", raw).Msg("Unparseable amount in status view")
		return 0
	}
	value, err := utils.SDKIntToFloat64(amount, decimals)
	if err != nil {
		webLogger.Warn().Err(err).Str("amount", raw).Msg("Display conversion failed")
		return 0
	}
	return value
}

func (ws *WebServer) handleInputs(w http.ResponseWriter, r *http.Request) {
	inputs := ws.vault.InputStatuses()
	if inputs == nil {
		inputs = []types.InputStatus{}
	}
	ws.writeJSON(w, http.StatusOK, inputs)
}

func (ws *WebServer) handleOwnerRequests(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]
	requests := ws.vault.RequestsOf(owner)
	if requests == nil {
		requests = []types.RequestView{}
	}
	ws.writeJSON(w, http.StatusOK, requests)
}

func (ws *WebServer) handleReceiverRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	view, ok := ws.vault.RequestOf(vars["owner"], vars["receiver"])
	if !ok {
		ws.writeError(w, http.StatusNotFound, "no open request for this owner and receiver")
		return
	}
	ws.writeJSON(w, http.StatusOK, view)
}

func (ws *WebServer) handleCycles(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			ws.writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
			return
		}
		limit = parsed
	}

	snapshots, err := state.LoadRecentSnapshots(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to load cycle snapshots")
		ws.writeError(w, http.StatusInternalServerError, "failed to load cycle snapshots")
		return
	}
	if snapshots == nil {
		snapshots = []types.CycleSnapshot{}
	}
	ws.writeJSON(w, http.StatusOK, snapshots)
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (ws *WebServer) writeError(w http.ResponseWriter, status int, message string) {
	ws.writeJSON(w, status, map[string]string{"error": message})
}

func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		webLogger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
