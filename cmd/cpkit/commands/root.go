package commands

import (
	"context"
	"cpkit/lib/configuration"
	"cpkit/lib/osutil"
	"cpkit/lib/scraper"
	"cpkit/lib/scrapers/atcoder/core"
	"cpkit/lib/scrapers/atcoder/tasks"
	"cpkit/lib/session"
	"cpkit/lib/telemetry"
	"cpkit/lib/util/serviceutil"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var configPath *string
var verbose *bool

// app is what every command works with, it is set up before a command runs
// and torn down after. The session store is only opened by commands that
// use it.
type app struct {
	config configuration.Config
	client *core.Client
	store  configuration.SessionStore
	tel    telemetry.Telemetry
}

var current app

var rootCmd = &cobra.Command{
	Use:   "cpkit",
	Short: "cpkit fetches contest problems and their samples into a local Go project.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)

		config, err := configuration.Load(*configPath)
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}

		tel, err := telemetry.Setup(cmd.Context(), "cpkit", config.Telemetry)
		if err != nil {
			slog.Warn("failed to set up telemetry", "err", err)
		}

		opts, err := config.ClientOptions(*verbose)
		if err != nil {
			serviceutil.Fatal("failed to set up debug output", err)
		}
		client, err := core.NewClient(opts)
		if err != nil {
			serviceutil.Fatal("failed to create client", err)
		}

		current = app{
			config: config,
			client: client,
			tel:    tel,
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current.store != nil {
			current.store.Close()
		}
		err := current.tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "", "Path to the config file, cpkit.json5 is looked up when empty.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output, this also enables http dumps when debug_dump_dir is set.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// sessionStore opens the configured store on first use.
func (a *app) sessionStore() (configuration.SessionStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := a.config.Session.OpenStore()
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// newScraper opens the session store unless mode never touches it.
func (a *app) newScraper(mode scraper.Mode) (scraper.Scraper, error) {
	opts := scraper.Options{
		Auth:    a.client,
		Fetcher: tasks.NewFetcher(a.client),
		Retry:   a.config.RetryPolicy(),
		Workers: a.config.Workers,
	}
	if _, anonymous := mode.(scraper.NoLogin); !anonymous {
		store, err := a.sessionStore()
		if err != nil {
			return scraper.Scraper{}, err
		}
		opts.Store = store
	}
	return scraper.New(opts), nil
}

// credentials resolves the config and the environment first and only then
// asks on the terminal.
func (a app) credentials(ctx context.Context) (session.Credentials, error) {
	creds := a.config.Credentials()
	username, password, err := osutil.NewPrompter().Credentials(ctx, creds.Username, creds.Password)
	if errors.Is(err, osutil.ErrNotInteractive) {
		return creds, fmt.Errorf(
			"%w, set username and password in %s or %s and %s",
			err, configuration.FileName, configuration.UsernameEnv, configuration.PasswordEnv,
		)
	}
	if err != nil {
		return creds, err
	}
	return session.Credentials{Username: username, Password: password}, nil
}

// exitOnScrapeError prints what the user can do about err and exits.
func exitOnScrapeError(err error) {
	if errors.Is(err, context.Canceled) {
		slog.Warn("interrupted")
		os.Exit(130)
	}
	var scrapeErr *scraper.Error
	if errors.As(err, &scrapeErr) {
		fmt.Fprintln(os.Stderr, scrapeErr.Message())
		slog.Debug("scrape failed", "kind", scrapeErr.Kind, "err", scrapeErr.Err)
		os.Exit(1)
	}
	serviceutil.Fatal("scrape failed", err)
}
