// Command metaexchange loads an order book snapshot, runs one buy or sell
// against it and prints the resulting fills as JSON.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/efreitasn/metaexchange/internal/domain"
	"github.com/efreitasn/metaexchange/internal/engine"
	"github.com/efreitasn/metaexchange/internal/logging"
	"github.com/efreitasn/metaexchange/internal/service"
	"github.com/efreitasn/metaexchange/internal/snapshot"
)

// cliOptions are the parsed command-line flags.
type cliOptions struct {
	orderBooks   string
	buy          float64
	sell         float64
	limit        int
	baseBalance  float64
	quoteBalance float64
	verbose      bool
}

// fillOutput is one fill as printed on stdout.
type fillOutput struct {
	Exchange string  `json:"exchange"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	logger := logging.NewCLI(stderr, opts.verbose)
	defer func() { _ = logger.Sync() }()

	book, err := snapshot.LoadFile(opts.orderBooks, snapshot.Options{
		Limit:        opts.limit,
		BaseBalance:  opts.baseBalance,
		QuoteBalance: opts.quoteBalance,
	})
	if err != nil {
		logger.Error("failed to load order books", zap.String("path", opts.orderBooks), zap.Error(err))
		return 1
	}
	logger.Debug("order books loaded",
		zap.Int("exchanges", book.Exchanges),
		zap.Int("asks", len(book.Asks)),
		zap.Int("bids", len(book.Bids)),
	)

	allocator, err := engine.NewAllocatorFromOrders(book.Accounts, book.Asks, book.Bids)
	if err != nil {
		logger.Error("failed to build order queues", zap.Error(err))
		return 1
	}
	execSvc := service.NewExecutionService(allocator, logger)

	var plan *domain.Plan
	if opts.buy > 0 {
		plan, err = execSvc.Buy(opts.buy)
	} else {
		plan, err = execSvc.Sell(opts.sell)
	}
	if err != nil {
		logger.Error("request rejected", zap.Error(err))
		return 1
	}

	if err := printFills(stdout, plan.Fills); err != nil {
		logger.Error("failed to write fills", zap.Error(err))
		return 1
	}
	if plan.Partial() {
		fmt.Fprintf(stderr, "Balance too low to complete the requested %s order(s). Amount remaining: %v\n",
			plan.Side, plan.Remaining)
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions

	fs := pflag.NewFlagSet("metaexchange", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.orderBooks, "order-books", "o", "", "path to the order book snapshot file (required)")
	fs.Float64VarP(&opts.buy, "buy", "b", 0, "amount of base asset to buy")
	fs.Float64VarP(&opts.sell, "sell", "s", 0, "amount of base asset to sell")
	fs.IntVar(&opts.limit, "limit", 0, "read at most this many snapshot lines (0 = all)")
	fs.Float64Var(&opts.baseBalance, "base-balance", snapshot.DefaultBaseBalance, "starting base balance per exchange")
	fs.Float64Var(&opts.quoteBalance, "quote-balance", snapshot.DefaultQuoteBalance, "starting quote balance per exchange")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log loading details to stderr")

	// pflag reports its own parse errors on stderr.
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if err := validateFlags(opts); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		fs.Usage()
		return opts, err
	}
	return opts, nil
}

func validateFlags(opts cliOptions) error {
	switch {
	case opts.orderBooks == "":
		return errors.New("--order-books is required")
	case math.IsNaN(opts.buy) || math.IsNaN(opts.sell):
		return errors.New("--buy and --sell must be numbers")
	case opts.buy < 0 || opts.sell < 0:
		return errors.New("--buy and --sell must not be negative")
	case opts.buy > 0 && opts.sell > 0:
		return errors.New("specify only one of --buy or --sell")
	case opts.buy == 0 && opts.sell == 0:
		return errors.New("specify a positive --buy or --sell amount")
	case opts.limit < 0:
		return errors.New("--limit must not be negative")
	}
	return nil
}

func printFills(w io.Writer, fills []domain.Fill) error {
	out := make([]fillOutput, len(fills))
	for i, f := range fills {
		out[i] = fillOutput{
			Exchange: f.Exchange,
			Side:     string(f.Side),
			Price:    f.Price,
			Amount:   f.Amount,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
