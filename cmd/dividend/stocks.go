package main

import (
	"context"
	"errors"
	"flag"

	"github.com/google/subcommands"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/remote"
)

type stocksCmd struct {
	category  string
	sector    string
	minYield  float64
	minSafety int
	limit     int
	top       int
	refresh   bool
}

func (*stocksCmd) Name() string     { return "stocks" }
func (*stocksCmd) Synopsis() string { return "fetch and list dividend stocks" }
func (*stocksCmd) Usage() string {
	return `dividend stocks [-category c] [-sector s] [-min-yield y] [-min-safety n] [-limit n] [-refresh]
dividend stocks -top n [-category c]

  Lists stocks from the data API, falling back to the local cache when offline.
`
}

func (c *stocksCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", "", "Category: immediate, longshot, balanced")
	f.StringVar(&c.sector, "sector", "", "Sector name (case-insensitive)")
	f.Float64Var(&c.minYield, "min-yield", 0, "Minimum dividend yield in percent")
	f.IntVar(&c.minSafety, "min-safety", 0, "Minimum safety score (0-100)")
	f.IntVar(&c.limit, "limit", 0, "Maximum number of stocks")
	f.IntVar(&c.top, "top", 0, "List the n best-ranked stocks instead")
	f.BoolVar(&c.refresh, "refresh", false, "Ask the API to bypass its cache")
}

func (c *stocksCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var category *domain.Category
	if c.category != "" {
		cat := domain.Category(c.category)
		if !cat.IsValid() {
			fail("unknown category %q", c.category)
			return subcommands.ExitUsageError
		}
		category = &cat
	}

	e, err := openEnv(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	title := "Dividend Stocks"
	var res *remote.StocksResult
	if c.top > 0 {
		title = "Top Dividend Stocks"
		res, err = e.client.GetTopStocks(ctx, c.top, category)
	} else {
		res, err = e.client.GetStocks(ctx, c.query(category))
	}
	if errors.Is(err, remote.ErrNoDataAvailable) {
		fail("no data available: the API is unreachable and nothing is cached")
		return subcommands.ExitFailure
	}
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	printMarkdown(stocksMarkdown(title, res, e.cfg.Currency))
	return subcommands.ExitSuccess
}

func (c *stocksCmd) query(category *domain.Category) remote.StocksQuery {
	q := remote.StocksQuery{Category: category, ForceRefresh: c.refresh}
	if c.sector != "" {
		q.Sector = &c.sector
	}
	if c.minYield > 0 {
		q.MinYield = &c.minYield
	}
	if c.minSafety > 0 {
		q.MinSafety = &c.minSafety
	}
	if c.limit > 0 {
		q.Limit = &c.limit
	}
	return q
}

type trendsCmd struct{}

func (*trendsCmd) Name() string     { return "trends" }
func (*trendsCmd) Synopsis() string { return "show the trend history of a ticker" }
func (*trendsCmd) Usage() string {
	return `dividend trends <ticker>

  Shows yield, price and safety over time for one ticker.
`
}

func (*trendsCmd) SetFlags(*flag.FlagSet) {}

func (*trendsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fail("trends takes exactly one ticker")
		return subcommands.ExitUsageError
	}

	e, err := openEnv(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	res, err := e.client.GetTrends(ctx, f.Arg(0))
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	printMarkdown(trendsMarkdown(res, e.cfg.Currency))
	return subcommands.ExitSuccess
}
