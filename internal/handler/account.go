package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/efreitasn/metaexchange/internal/engine"
	"github.com/efreitasn/metaexchange/internal/service"
)

const (
	defaultBookDepth = 10
	maxBookDepth     = 1000
)

// AccountHandler handles HTTP requests for balances and book depth.
type AccountHandler struct {
	execSvc *service.ExecutionService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(execSvc *service.ExecutionService) *AccountHandler {
	return &AccountHandler{execSvc: execSvc}
}

type balanceResponse struct {
	AccountID int     `json:"account_id"`
	Exchange  string  `json:"exchange"`
	Base      float64 `json:"base"`
	Quote     float64 `json:"quote"`
}

type levelResponse struct {
	Price      float64 `json:"price"`
	Amount     float64 `json:"amount"`
	OrderCount int     `json:"order_count"`
	Feasible   bool    `json:"feasible"`
}

type bookResponse struct {
	Asks       []levelResponse `json:"asks"`
	Bids       []levelResponse `json:"bids"`
	AskOrders  int             `json:"ask_orders"`
	BidOrders  int             `json:"bid_orders"`
	SnapshotAt string          `json:"snapshot_at"`
}

// ListBalances handles GET /api/accounts.
func (h *AccountHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	balances := h.execSvc.Balances()

	resp := make([]balanceResponse, len(balances))
	for i, b := range balances {
		resp[i] = balanceResponse{
			AccountID: int(b.AccountID),
			Exchange:  b.Exchange,
			Base:      b.Base,
			Quote:     b.Quote,
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetBook handles GET /api/book?depth=N.
func (h *AccountHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	depth := defaultBookDepth
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxBookDepth {
			WriteError(w, http.StatusBadRequest, "validation_error",
				fmt.Sprintf("depth must be an integer between 1 and %d", maxBookDepth))
			return
		}
		depth = n
	}

	book, err := h.execSvc.Depth(depth)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, bookResponse{
		Asks:       buildLevels(book.Asks),
		Bids:       buildLevels(book.Bids),
		AskOrders:  book.AskOrders,
		BidOrders:  book.BidOrders,
		SnapshotAt: book.SnapshotAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

func buildLevels(levels []engine.PriceLevel) []levelResponse {
	out := make([]levelResponse, len(levels))
	for i, l := range levels {
		out[i] = levelResponse{
			Price:      l.Price,
			Amount:     l.TotalAmount,
			OrderCount: l.OrderCount,
			Feasible:   l.Feasible,
		}
	}
	return out
}
