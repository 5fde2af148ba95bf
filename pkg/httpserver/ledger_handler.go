package httpserver

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/snipeworks/solana-sniper/internal/ledger"
	"github.com/snipeworks/solana-sniper/pkg/types"
	"go.uber.org/zap"
)

// LedgerHandler serves read-only views over the trade ledger.
type LedgerHandler struct {
	store  ledger.Store
	logger *zap.Logger
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(store ledger.Store, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		store:  store,
		logger: logger,
	}
}

// TradesResponse represents the HTTP response for the trade history.
type TradesResponse struct {
	Trades []types.TradeRecord `json:"trades"`
	Count  int                 `json:"count"`
}

// PositionsResponse represents the HTTP response for open positions.
type PositionsResponse struct {
	Positions map[string]types.Position `json:"positions"`
	Count     int                       `json:"count"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleTrades handles GET /api/trades requests.
func (h *LedgerHandler) HandleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.store.LoadTrades(r.Context())
	if err != nil {
		h.logger.Error("load-trades-failed", zap.Error(err))
		h.writeError(w, "failed to load trades", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, TradesResponse{Trades: trades, Count: len(trades)})
}

// HandlePositions handles GET /api/positions requests.
func (h *LedgerHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.store.LoadPositions(r.Context())
	if err != nil {
		h.logger.Error("load-positions-failed", zap.Error(err))
		h.writeError(w, "failed to load positions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, PositionsResponse{Positions: positions, Count: len(positions)})
}

// HandleStats handles GET /api/stats requests.
func (h *LedgerHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	trades, err := h.store.LoadTrades(r.Context())
	if err != nil {
		h.logger.Error("load-trades-failed", zap.Error(err))
		h.writeError(w, "failed to load trades", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, types.ComputeStats(trades))
}

// writeJSON writes a JSON response.
func (h *LedgerHandler) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *LedgerHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(ErrorResponse{Error: message})
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
