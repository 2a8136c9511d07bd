package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/charmbracelet/glamour"

	"dividend-hunter/internal/app"
	"dividend-hunter/internal/config"
	"dividend-hunter/internal/remote"
	"dividend-hunter/internal/store"
)

var (
	configPath  = flag.String("config", "", "Path to YAML config file")
	storageFlag = flag.String("storage", "", "Storage backend: sqlite, postgres, memory")
	sqlitePath  = flag.String("sqlite-path", "", "SQLite database path")
	apiBase     = flag.String("api", "", "Dividend data API base URL")
	plain       = flag.Bool("plain", false, "Print raw markdown instead of styled terminal output")
)

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// env is the opened configuration, store and API client shared by subcommands.
type env struct {
	cfg    *config.Config
	store  *store.Store
	client *remote.Client
}

// openEnv loads configuration, applies global flags and opens the store.
// An unavailable storage engine degrades to memory with a warning on stderr.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(config.Overrides{
		APIBase:    *apiBase,
		Storage:    *storageFlag,
		SQLitePath: *sqlitePath,
	}); err != nil {
		return nil, err
	}

	logger := log.New(stderr, "[dividend] ", log.LstdFlags)
	st, err := app.OpenStore(ctx, cfg.Storage, app.StoreOptions{
		Logger:   logger,
		Notifier: app.LogNotifier{Logger: logger},
	})
	if err != nil {
		return nil, err
	}

	client := remote.New(cfg.API.BaseURL, st,
		remote.WithTimeout(cfg.API.Timeout),
		remote.WithMaxRetries(cfg.API.MaxRetries),
		remote.WithRetryDelay(cfg.API.RetryDelay),
		remote.WithLogger(logger),
	)

	return &env{cfg: cfg, store: st, client: client}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		fmt.Fprintf(stderr, "Error closing store: %v\n", err)
	}
}

// printMarkdown renders md for the terminal, or prints it as is with -plain.
func printMarkdown(md string) {
	if *plain {
		fmt.Fprint(stdout, md)
		return
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(stdout, out)
			return
		}
	}
	fmt.Fprint(stdout, md)
}

func fail(format string, args ...any) {
	fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
}
