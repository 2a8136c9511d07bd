package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"sort"

	"github.com/google/subcommands"
)

type settingsCmd struct{}

func (*settingsCmd) Name() string     { return "settings" }
func (*settingsCmd) Synopsis() string { return "list or change settings" }
func (*settingsCmd) Usage() string {
	return `dividend settings
dividend settings <key> <value>

  Without arguments lists every stored setting. With a key and a value
  stores the value; values that parse as JSON are stored as such,
  anything else as a string.
`
}

func (*settingsCmd) SetFlags(*flag.FlagSet) {}

func (*settingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 && f.NArg() != 2 {
		fail("settings takes no arguments or a key and a value")
		return subcommands.ExitUsageError
	}

	e, err := openEnv(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	if f.NArg() == 2 {
		key := f.Arg(0)
		if err := e.store.SetSetting(ctx, key, settingValue(f.Arg(1))); err != nil {
			fail("%v", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "%s updated\n", key)
		return subcommands.ExitSuccess
	}

	settings, err := e.store.GetAllSettings(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(stdout, "%s = %s\n", k, settings[k])
	}
	return subcommands.ExitSuccess
}

// settingValue keeps valid JSON as is and quotes anything else.
func settingValue(arg string) any {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	return arg
}

type maintenanceCmd struct{}

func (*maintenanceCmd) Name() string     { return "maintenance" }
func (*maintenanceCmd) Synopsis() string { return "trim swipe history and old trend snapshots" }
func (*maintenanceCmd) Usage() string {
	return `dividend maintenance

  Keeps the most recent 2000 swipes and drops trend snapshots older
  than 90 days.
`
}

func (*maintenanceCmd) SetFlags(*flag.FlagSet) {}

func (*maintenanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := openEnv(ctx)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	report, err := e.store.RunMaintenance(ctx)
	fmt.Fprintf(stdout, "Removed %d swipes and %d trend snapshots\n", report.HistoryRemoved, report.TrendsRemoved)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
