package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/efreitasn/metaexchange/internal/domain"
	"github.com/efreitasn/metaexchange/internal/service"
)

// OrderHandler handles HTTP requests for buy, sell and quote endpoints.
type OrderHandler struct {
	execSvc *service.ExecutionService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(execSvc *service.ExecutionService) *OrderHandler {
	return &OrderHandler{execSvc: execSvc}
}

// amountRequest is the JSON request body for POST /api/orders/buy and
// POST /api/orders/sell.
type amountRequest struct {
	Amount *float64 `json:"amount"`
}

// quoteRequest is the JSON request body for POST /api/orders/quote.
type quoteRequest struct {
	Side   string   `json:"side"`
	Amount *float64 `json:"amount"`
}

// planResponse is the JSON response for every order endpoint. Fills is
// always present, empty when nothing could be filled.
type planResponse struct {
	PlanID       string         `json:"plan_id"`
	Side         string         `json:"side"`
	Requested    float64        `json:"requested"`
	Filled       float64        `json:"filled"`
	Remaining    float64        `json:"remaining"`
	Cost         float64        `json:"cost"`
	AveragePrice *float64       `json:"average_price"`
	Message      string         `json:"message,omitempty"`
	CreatedAt    string         `json:"created_at"`
	Fills        []fillResponse `json:"fills"`
}

// fillResponse is a single fill in the plan response.
type fillResponse struct {
	Exchange  string  `json:"exchange"`
	AccountID int     `json:"account_id"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
}

// Buy handles POST /api/orders/buy.
func (h *OrderHandler) Buy(w http.ResponseWriter, r *http.Request) {
	amount, ok := parseAmount(w, r)
	if !ok {
		return
	}

	plan, err := h.execSvc.Buy(amount)
	if err != nil {
		mapOrderError(w, err)
		return
	}
	writePlan(w, plan)
}

// Sell handles POST /api/orders/sell.
func (h *OrderHandler) Sell(w http.ResponseWriter, r *http.Request) {
	amount, ok := parseAmount(w, r)
	if !ok {
		return
	}

	plan, err := h.execSvc.Sell(amount)
	if err != nil {
		mapOrderError(w, err)
		return
	}
	writePlan(w, plan)
}

// Quote handles POST /api/orders/quote. A dry run is always 200, even
// when the book cannot cover the full amount.
func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Amount == nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "amount is required")
		return
	}

	side, err := domain.ParseSide(req.Side)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	plan, err := h.execSvc.Quote(side, *req.Amount)
	if err != nil {
		mapOrderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildPlanResponse(plan))
}

func parseAmount(w http.ResponseWriter, r *http.Request) (float64, bool) {
	var req amountRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return 0, false
	}
	if req.Amount == nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "amount is required")
		return 0, false
	}
	return *req.Amount, true
}

// writePlan answers 200 for a full fill and 422 for a partial one.
func writePlan(w http.ResponseWriter, plan *domain.Plan) {
	resp := buildPlanResponse(plan)
	if plan.Partial() {
		resp.Message = lowBalanceMessage(plan)
		WriteJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

func lowBalanceMessage(plan *domain.Plan) string {
	return fmt.Sprintf("Balance too low to complete the requested %s order(s). Amount remaining: %v",
		plan.Side, plan.Remaining)
}

func buildPlanResponse(plan *domain.Plan) planResponse {
	fills := make([]fillResponse, len(plan.Fills))
	for i, f := range plan.Fills {
		fills[i] = fillResponse{
			Exchange:  f.Exchange,
			AccountID: int(f.Account),
			Side:      string(f.Side),
			Price:     f.Price,
			Amount:    f.Amount,
		}
	}

	var avgPrice *float64
	if avg, ok := plan.AveragePrice(); ok {
		avgPrice = &avg
	}

	return planResponse{
		PlanID:       plan.ID,
		Side:         string(plan.Side),
		Requested:    plan.Requested,
		Filled:       plan.Filled(),
		Remaining:    plan.Remaining,
		Cost:         plan.Cost(),
		AveragePrice: avgPrice,
		CreatedAt:    plan.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Fills:        fills,
	}
}

// mapOrderError maps domain errors to HTTP responses for order endpoints.
func mapOrderError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrInvalidSide):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
