package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/efreitasn/metaexchange/internal/domain"
	"github.com/efreitasn/metaexchange/internal/engine"
)

// AccountBalance is a point-in-time copy of one exchange account.
type AccountBalance struct {
	AccountID domain.AccountID
	Exchange  string
	Base      float64
	Quote     float64
}

// DepthResponse holds the top aggregated levels of both queues.
type DepthResponse struct {
	Asks       []engine.PriceLevel
	Bids       []engine.PriceLevel
	AskOrders  int
	BidOrders  int
	SnapshotAt time.Time
}

// ExecutionService serves buy and sell requests against one allocation
// session. Accounts, asks and bids form a single unit of work, so every
// request holds the session lock for its whole run.
type ExecutionService struct {
	mu        sync.Mutex
	allocator *engine.Allocator
	logger    *zap.Logger
	now       func() time.Time
}

// NewExecutionService creates an ExecutionService over allocator.
func NewExecutionService(allocator *engine.Allocator, logger *zap.Logger) *ExecutionService {
	return &ExecutionService{
		allocator: allocator,
		logger:    logger,
		now:       time.Now,
	}
}

// Buy validates amount and fills it from the ask side. A plan with
// Remaining > 0 is a partial fill, not an error.
func (s *ExecutionService) Buy(amount float64) (*domain.Plan, error) {
	return s.execute(domain.SideBuy, amount, false)
}

// Sell validates amount and fills it into the bid side.
func (s *ExecutionService) Sell(amount float64) (*domain.Plan, error) {
	return s.execute(domain.SideSell, amount, false)
}

// Quote returns the plan a request would produce without executing it.
func (s *ExecutionService) Quote(side domain.Side, amount float64) (*domain.Plan, error) {
	if _, err := domain.ParseSide(string(side)); err != nil {
		return nil, err
	}
	return s.execute(side, amount, true)
}

func (s *ExecutionService) execute(side domain.Side, amount float64, dryRun bool) (*domain.Plan, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}

	s.mu.Lock()
	var (
		remaining float64
		fills     []domain.Fill
	)
	if dryRun {
		remaining, fills = s.allocator.Quote(side, amount)
	} else {
		remaining, fills = s.allocator.Execute(side, amount)
	}
	s.mu.Unlock()

	if fills == nil {
		fills = []domain.Fill{}
	}
	plan := &domain.Plan{
		ID:        uuid.New().String(),
		Side:      side,
		Requested: amount,
		Remaining: remaining,
		Fills:     fills,
		CreatedAt: s.now(),
	}

	fields := []zap.Field{
		zap.String("plan_id", plan.ID),
		zap.String("side", string(side)),
		zap.Bool("dry_run", dryRun),
		zap.Float64("requested", amount),
		zap.Float64("remaining", remaining),
		zap.Int("fills", len(fills)),
	}
	if avg, ok := plan.AveragePrice(); ok {
		fields = append(fields, zap.Float64("avg_price", avg))
	}
	fields = append(fields, zap.Bool("partial", plan.Partial()))
	s.logger.Info("plan executed", fields...)

	return plan, nil
}

// Balances returns a copy of every account's balances in id order.
func (s *ExecutionService) Balances() []AccountBalance {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := s.allocator.Accounts().All()
	out := make([]AccountBalance, len(accounts))
	for i, a := range accounts {
		out[i] = AccountBalance{AccountID: a.ID, Exchange: a.Exchange, Base: a.Base, Quote: a.Quote}
	}
	return out
}

// Depth returns up to n aggregated levels from each queue in priority
// order.
func (s *ExecutionService) Depth(n int) (*DepthResponse, error) {
	if n <= 0 {
		return nil, &domain.ValidationError{Message: "depth must be a positive integer"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	asks, bids := s.allocator.Asks(), s.allocator.Bids()
	return &DepthResponse{
		Asks:       asks.TopLevels(n),
		Bids:       bids.TopLevels(n),
		AskOrders:  asks.Len(),
		BidOrders:  bids.Len(),
		SnapshotAt: s.now(),
	}, nil
}
