// Package scraper sequences login, task listing, page fetching and sample
// extraction into a single Scrape call.
//
// Only failures that leave nothing to work with are fatal: acquiring the
// session and listing the contest's tasks. Anything going wrong with a
// single task is recorded as a warning on the bundle and the task is kept
// with no samples.
package scraper

import (
	"context"
	"cpkit/lib/contest"
	"cpkit/lib/retry"
	"cpkit/lib/scrapers/atcoder/core"
	"cpkit/lib/scrapers/atcoder/samples"
	"cpkit/lib/session"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("cpkit.lib.scraper")

var meter = otel.Meter("cpkit.lib.scraper")
var samplesExtracted, _ = meter.Int64Counter("cpkit.samples.extracted")
var tasksFailed, _ = meter.Int64Counter("cpkit.tasks.failed")

type Authenticator interface {
	Login(ctx context.Context, creds session.Credentials) (session.Session, error)
}

// Fetcher reads the contest site, a nil session means unauthenticated.
type Fetcher interface {
	ListTasks(ctx context.Context, id contest.ID, s *session.Session) ([]contest.TaskRef, error)
	FetchTaskPage(ctx context.Context, task contest.TaskRef, s *session.Session) (string, error)
}

type Extractor func(raw string) samples.Result

const DefaultWorkers = 6

type Options struct {
	Auth    Authenticator
	Fetcher Fetcher
	// Store may be nil, in which case sessions are neither loaded nor saved.
	Store session.Store
	// Extract defaults to samples.Extract.
	Extract Extractor
	Retry   retry.Policy
	// Workers bounds how many task pages are fetched at once.
	Workers int
	Now     func() time.Time
}

type Scraper struct {
	auth    Authenticator
	fetcher Fetcher
	store   session.Store
	extract Extractor
	retry   retry.Policy
	workers int
	now     func() time.Time
}

func New(opts Options) Scraper {
	if opts.Extract == nil {
		opts.Extract = samples.Extract
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return Scraper{
		auth:    opts.Auth,
		fetcher: opts.Fetcher,
		store:   opts.Store,
		extract: opts.Extract,
		retry:   opts.Retry,
		workers: opts.Workers,
		now:     opts.Now,
	}
}

// Scrape produces the bundle of one contest. The returned error is either a
// *Error or the context's error when ctx ends first.
func (s Scraper) Scrape(ctx context.Context, id contest.ID, mode Mode) (contest.Bundle, error) {
	runId := uuid.NewString()
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()
	span.SetAttributes(
		attribute.String("contest", id.String()),
		attribute.String("mode", mode.String()),
		attribute.String("run_id", runId),
	)
	logger := slog.With("run_id", runId, "contest", id)

	acquired, err := s.acquireSession(ctx, logger, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire session")
		return contest.Bundle{}, err
	}
	warnings := acquired.warnings

	var refs []contest.TaskRef
	attempts, err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		refs, err = s.fetcher.ListTasks(ctx, id, acquired.session)
		return err
	}, core.IsRetryable)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list tasks")
		if ctx.Err() != nil {
			return contest.Bundle{}, ctx.Err()
		}
		logger.ErrorContext(ctx, "failed to list tasks", "attempts", attempts, "err", err)
		return contest.Bundle{}, &Error{Kind: FatalFetch, Err: err, cachedSession: acquired.cached}
	}
	logger.InfoContext(ctx, "listed tasks", "count", len(refs), "authenticated", acquired.session != nil)

	tasks, taskWarnings, err := s.scrapeTasks(ctx, logger, refs, acquired)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape aborted")
		return contest.Bundle{}, err
	}
	warnings = append(warnings, taskWarnings...)

	if acquired.fresh && s.store != nil {
		err := s.store.Save(ctx, *acquired.session)
		if err != nil {
			logger.WarnContext(ctx, "failed to persist session", "err", err)
			warnings = append(warnings, contest.Warning{
				Kind:    contest.WarningSessionSave,
				Message: err.Error(),
			})
		}
	}

	bundle := contest.Bundle{
		Contest:   id,
		Tasks:     tasks,
		Warnings:  warnings,
		ScrapedAt: s.now(),
	}
	span.SetAttributes(
		attribute.Int("tasks", len(bundle.Tasks)),
		attribute.Int("samples", bundle.SampleCount()),
		attribute.Int("warnings", len(bundle.Warnings)),
	)
	logger.InfoContext(
		ctx, "scrape finished",
		"tasks", len(bundle.Tasks),
		"samples", bundle.SampleCount(),
		"warnings", len(bundle.Warnings),
	)
	return bundle, nil
}
