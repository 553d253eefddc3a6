package bridge

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/coinbase-dtc/bridge/aggregator"
	"github.com/coinbase-dtc/bridge/registry"
)

// StatusAvailable is the healthz response body's steady-state value.
const StatusAvailable = "available"

// APIPathPrefix is the prefix every admin route is registered under.
const APIPathPrefix = "/api/v1"

// AdminRouter exposes a read-only HTTP surface over the bridge's runtime
// state: health, per-exchange connection status, and the symbol catalog.
// It never accepts a write; order entry and configuration changes stay
// out of scope for this server.
type AdminRouter struct {
	logger    zerolog.Logger
	agg       *aggregator.Aggregator
	catalog   *registry.Catalog
	startedAt time.Time

	allowedOrigins []string
	verboseCORS    bool

	activeSessions func() int
}

// NewAdminRouter builds an admin router. activeSessions is called lazily
// on every /status request so the server's current session count is
// always fresh.
func NewAdminRouter(
	logger zerolog.Logger,
	agg *aggregator.Aggregator,
	catalog *registry.Catalog,
	allowedOrigins []string,
	verboseCORS bool,
	activeSessions func() int,
) *AdminRouter {
	return &AdminRouter{
		logger:         logger,
		agg:            agg,
		catalog:        catalog,
		startedAt:      time.Now().UTC(),
		allowedOrigins: allowedOrigins,
		verboseCORS:    verboseCORS,
		activeSessions: activeSessions,
	}
}

// RegisterRoutes mounts every admin endpoint under prefix on r.
func (a *AdminRouter) RegisterRoutes(r *mux.Router, prefix string) {
	r.HandleFunc(prefix+"/healthz", a.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/status", a.handleStatus).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/symbols", a.handleSymbols).Methods(http.MethodGet)
}

// CORSHandler wraps h with the configured CORS policy.
func (a *AdminRouter) CORSHandler(h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: a.allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
		Debug:          a.verboseCORS,
	})
	return c.Handler(h)
}

type healthzResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
}

func (a *AdminRouter) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthzResponse{
		Status: StatusAvailable,
		Uptime: time.Since(a.startedAt).String(),
	})
}

type statusResponse struct {
	Exchanges     map[string]string `json:"exchanges"`
	Subscriptions int               `json:"total_subscriptions"`
	Sessions      int               `json:"active_sessions"`
}

func (a *AdminRouter) handleStatus(w http.ResponseWriter, _ *http.Request) {
	states := a.agg.Status()
	exchanges := make(map[string]string, len(states))
	for name, state := range states {
		exchanges[name] = state.String()
	}
	sessions := 0
	if a.activeSessions != nil {
		sessions = a.activeSessions()
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Exchanges:     exchanges,
		Subscriptions: a.agg.TotalSubscriptions(),
		Sessions:      sessions,
	})
}

type symbolResponse struct {
	Canonical      string `json:"canonical"`
	NumericID      uint32 `json:"numeric_id"`
	Exchange       string `json:"exchange"`
	Active         bool   `json:"active"`
	PriceIncrement string `json:"price_increment"`
	SizeIncrement  string `json:"size_increment"`
}

type symbolsResponse struct {
	Symbols []symbolResponse `json:"symbols"`
}

func (a *AdminRouter) handleSymbols(w http.ResponseWriter, _ *http.Request) {
	available := a.catalog.AvailableSymbols()
	out := make([]symbolResponse, 0, len(available))
	for _, s := range available {
		out = append(out, symbolResponse{
			Canonical:      s.Canonical,
			NumericID:      s.NumericID,
			Exchange:       s.Exchange,
			Active:         s.Active,
			PriceIncrement: s.PriceIncrement.String(),
			SizeIncrement:  s.SizeIncrement.String(),
		})
	}
	writeJSON(w, http.StatusOK, symbolsResponse{Symbols: out})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
