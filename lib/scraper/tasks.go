package scraper

import (
	"context"
	"cpkit/lib/contest"
	"cpkit/lib/scrapers/atcoder/core"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// scrapeTasks fetches and extracts every task with at most s.workers pages in
// flight. The returned tasks are in the order of refs.
func (s Scraper) scrapeTasks(ctx context.Context, logger *slog.Logger, refs []contest.TaskRef, acquired acquiredSession) ([]contest.TaskBundle, []contest.Warning, error) {
	tasks := make([]contest.TaskBundle, len(refs))
	warnings := make([][]contest.Warning, len(refs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)
	for i, ref := range refs {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			task, taskWarnings, err := s.scrapeTask(groupCtx, logger, ref, acquired)
			tasks[i] = task
			warnings[i] = taskWarnings
			return err
		})
	}
	err := group.Wait()
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	if err != nil {
		return nil, nil, err
	}

	var flat []contest.Warning
	for _, w := range warnings {
		flat = append(flat, w...)
	}
	return tasks, flat, nil
}

// scrapeTask only returns an error when the whole scrape has to stop.
func (s Scraper) scrapeTask(ctx context.Context, logger *slog.Logger, ref contest.TaskRef, acquired acquiredSession) (contest.TaskBundle, []contest.Warning, error) {
	ctx, span := tracer.Start(ctx, "scrapeTask")
	defer span.End()
	span.SetAttributes(attribute.String("task", ref.Label))

	task := contest.TaskBundle{
		Task:    ref,
		Samples: []contest.SamplePair{},
	}

	// a request already in flight runs to completion or to the client
	// timeout, cancellation only stops further attempts
	var page string
	attempts, err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		page, err = s.fetcher.FetchTaskPage(context.WithoutCancel(ctx), ref, acquired.session)
		return err
	}, core.IsRetryable)
	if err != nil {
		span.RecordError(err)
		if ctx.Err() != nil {
			return task, nil, ctx.Err()
		}
		if acquired.session != nil && errors.Is(err, core.ErrForbidden) {
			return task, nil, &Error{Kind: FatalFetch, Err: err, cachedSession: acquired.cached}
		}
		logger.WarnContext(ctx, "failed to fetch task", "task", ref.Label, "attempts", attempts, "err", err)
		tasksFailed.Add(ctx, 1)
		return task, []contest.Warning{{
			Task:    ref.Label,
			Kind:    contest.WarningFetchFailed,
			Message: err.Error(),
		}}, nil
	}

	result := s.extract(page)
	var warnings []contest.Warning
	for _, msg := range result.Warnings {
		warnings = append(warnings, contest.Warning{
			Task:    ref.Label,
			Kind:    contest.WarningSampleMismatch,
			Message: msg,
		})
	}
	if len(result.Samples) == 0 {
		logger.WarnContext(ctx, "no samples found", "task", ref.Label)
		warnings = append(warnings, contest.Warning{
			Task:    ref.Label,
			Kind:    contest.WarningNoSamples,
			Message: "no sample pairs found on the task page",
		})
		return task, warnings, nil
	}

	task.Samples = result.Samples
	samplesExtracted.Add(ctx, int64(len(result.Samples)), metric.WithAttributes(attribute.String("task", ref.Label)))
	logger.DebugContext(ctx, "extracted samples", "task", ref.Label, "count", len(result.Samples))
	return task, warnings, nil
}
