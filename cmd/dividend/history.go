package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type historyCmd struct {
	limit int
	clear bool
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display recent swipes" }
func (*historyCmd) Usage() string {
	return `dividend history [-n <count>] [-clear]

  Lists the most recent swipe decisions. Cleared tickers return to the deck.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 20, "Number of swipes to show")
	f.BoolVar(&c.clear, "clear", false, "Forget every swipe")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.limit <= 0 {
		fail("-n must be positive")
		return subcommands.ExitUsageError
	}

	e, err := openEnv(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	if c.clear {
		if err := e.store.ClearHistory(ctx); err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintln(stdout, "History cleared")
		return subcommands.ExitSuccess
	}

	records, err := e.store.GetRecentSwipes(ctx, c.limit)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(historyMarkdown(records))
	return subcommands.ExitSuccess
}
