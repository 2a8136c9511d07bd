package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"dividend-hunter/internal/reporting"
)

type portfolioCmd struct {
	remove string
	clear  bool
}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "display the saved portfolio" }
func (*portfolioCmd) Usage() string {
	return `dividend portfolio [-remove <ticker>] [-clear]

  Displays the liked stocks with sector and category breakdowns.
`
}

func (c *portfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.remove, "remove", "", "Remove a ticker from the portfolio")
	f.BoolVar(&c.clear, "clear", false, "Remove every portfolio entry")
}

func (c *portfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	switch {
	case c.clear:
		if err := e.store.ClearPortfolio(ctx); err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintln(stdout, "Portfolio cleared")
		return subcommands.ExitSuccess
	case c.remove != "":
		ticker := strings.ToUpper(c.remove)
		found, err := e.store.IsInPortfolio(ctx, ticker)
		if err == nil && found {
			err = e.store.RemoveFromPortfolio(ctx, ticker)
		}
		if err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		if !found {
			fail("%s is not in the portfolio", ticker)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "Removed %s\n", ticker)
		return subcommands.ExitSuccess
	}

	report, err := e.store.PortfolioReport(ctx, e.cfg.Currency)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(reporting.RenderMarkdown(report))
	return subcommands.ExitSuccess
}

type statsCmd struct{}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "display portfolio totals" }
func (*statsCmd) Usage() string {
	return `dividend stats

  Prints the number of saved stocks, their average yield and the
  summed annual dividend per share.
`
}

func (*statsCmd) SetFlags(*flag.FlagSet) {}

func (*statsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	stats, err := e.store.GetPortfolioStats(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(stdout, "Stocks:          %d\n", stats.Count)
	fmt.Fprintf(stdout, "Average yield:   %.2f%%\n", stats.AvgYield)
	fmt.Fprintf(stdout, "Annual dividend: %s\n", reporting.FormatMoney(stats.TotalAnnualDividend, e.cfg.Currency))
	return subcommands.ExitSuccess
}

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the portfolio as CSV" }
func (*exportCmd) Usage() string {
	return `dividend export [-o <path>]

  Writes the portfolio to a CSV file. Without -o the file is named
  dividend-portfolio-YYYY-MM-DD.csv in the current directory. A directory
  given to -o receives the default file name.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file or directory")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	csv, ok, err := e.store.ExportPortfolioCSV(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	if !ok {
		fmt.Fprintln(stdout, "Portfolio is empty, nothing to export")
		return subcommands.ExitSuccess
	}

	path := c.target(e.store.ExportFilename())
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		fail("write %s: %v", path, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Exported portfolio to %s\n", path)
	return subcommands.ExitSuccess
}

func (c *exportCmd) target(filename string) string {
	if c.output == "" {
		return filename
	}
	if info, err := os.Stat(c.output); err == nil && info.IsDir() {
		return filepath.Join(c.output, filename)
	}
	return c.output
}
