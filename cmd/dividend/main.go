// Command dividend inspects and manages the local dividend-hunter data from a
// terminal: cached stocks, the saved portfolio, swipe history and settings.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// register adds every subcommand to c, grouped by topic.
func register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&stocksCmd{}, "market")
	c.Register(&trendsCmd{}, "market")

	c.Register(&portfolioCmd{}, "portfolio")
	c.Register(&statsCmd{}, "portfolio")
	c.Register(&exportCmd{}, "portfolio")

	c.Register(&historyCmd{}, "history")

	c.Register(&settingsCmd{}, "admin")
	c.Register(&maintenanceCmd{}, "admin")
}
