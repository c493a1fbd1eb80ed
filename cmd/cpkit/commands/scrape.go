package commands

import (
	"context"
	"cpkit/lib/contest"
	"cpkit/lib/scraper"
	"cpkit/lib/session"
	"cpkit/lib/util/serviceutil"
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type modeFlags struct {
	anonymous *bool
	relogin   *bool
}

func addModeFlags(cmd *cobra.Command) modeFlags {
	return modeFlags{
		anonymous: cmd.Flags().Bool("anonymous", false, "Scrape without logging in, the saved session is neither used nor updated."),
		relogin:   cmd.Flags().Bool("relogin", false, "Log in again even when a saved session exists."),
	}
}

func (f modeFlags) mode(ctx context.Context) scraper.Mode {
	if *f.anonymous {
		return scraper.NoLogin{}
	}
	if *f.relogin {
		creds, err := current.credentials(ctx)
		if err != nil {
			serviceutil.Fatal("failed to read credentials", err)
		}
		return scraper.LoggedIn{Credentials: creds}
	}
	return scraper.LoggedInCached{
		Prompt: func(ctx context.Context) (session.Credentials, error) {
			return current.credentials(ctx)
		},
	}
}

func scrape(cmd *cobra.Command, raw string, flags modeFlags) contest.Bundle {
	id, err := contest.ParseID(raw)
	if err != nil {
		serviceutil.Fatal("invalid contest", err)
	}

	mode := flags.mode(cmd.Context())
	s, err := current.newScraper(mode)
	if err != nil {
		serviceutil.Fatal("failed to open session store", err)
	}
	bundle, err := s.Scrape(cmd.Context(), id, mode)
	if err != nil {
		exitOnScrapeError(err)
	}
	for _, w := range bundle.Warnings {
		slog.Warn(w.String())
	}
	return bundle
}

func printSummary(bundle contest.Bundle) {
	t := newTable()
	t.AppendHeader(table.Row{"Task", "Name", "Samples"})
	for _, task := range bundle.Tasks {
		samples := fmt.Sprint(len(task.Samples))
		if task.Flagged() {
			samples = "none"
		}
		t.AppendRow(table.Row{task.Task.Label, task.Task.Name, samples})
	}
	t.AppendFooter(table.Row{"", "Total", bundle.SampleCount()})
	t.Render()

	if flagged := bundle.FlaggedTasks(); len(flagged) > 0 {
		fmt.Fprintf(os.Stderr, "%d task(s) without samples: %v\n", len(flagged), flagged)
	}
}
