package scraper

import (
	"context"
	"cpkit/lib/contest"
	"cpkit/lib/scrapers/atcoder/core"
	"cpkit/lib/session"
	"errors"
	"fmt"
	"log/slog"
)

var errNoCredentials = fmt.Errorf("no credentials")

type acquiredSession struct {
	// session is nil when scraping anonymously.
	session *session.Session
	// fresh is set when the session was just issued by a login and has not
	// been persisted yet.
	fresh bool
	// cached is set when the session came from the store.
	cached   bool
	warnings []contest.Warning
}

func (s Scraper) acquireSession(ctx context.Context, logger *slog.Logger, mode Mode) (acquiredSession, error) {
	switch mode := mode.(type) {
	case NoLogin:
		return acquiredSession{}, nil
	case LoggedIn:
		return s.login(ctx, logger, mode.Credentials)
	case LoggedInCached:
		var warnings []contest.Warning
		if s.store != nil {
			cached, err := s.store.Load(ctx)
			switch {
			case err != nil:
				logger.WarnContext(ctx, "ignoring saved session", "err", err)
				warnings = append(warnings, contest.Warning{
					Kind:    contest.WarningSessionLoad,
					Message: err.Error(),
				})
			case cached != nil:
				logger.DebugContext(ctx, "using saved session", "issued_at", cached.IssuedAt)
				return acquiredSession{session: cached, cached: true}, nil
			}
		}

		if mode.Prompt == nil {
			return acquiredSession{}, &Error{Kind: SessionUnavailable, Err: errNoCredentials}
		}
		creds, err := mode.Prompt(ctx)
		if err != nil {
			return acquiredSession{}, &Error{Kind: SessionUnavailable, Err: err}
		}
		if creds.Empty() {
			return acquiredSession{}, &Error{Kind: SessionUnavailable, Err: errNoCredentials}
		}
		acquired, err := s.login(ctx, logger, creds)
		acquired.warnings = append(warnings, acquired.warnings...)
		return acquired, err
	}
	return acquiredSession{}, fmt.Errorf("unknown scrape mode %T", mode)
}

func (s Scraper) login(ctx context.Context, logger *slog.Logger, creds session.Credentials) (acquiredSession, error) {
	if creds.Empty() {
		return acquiredSession{}, &Error{Kind: SessionUnavailable, Err: errNoCredentials}
	}

	var issued session.Session
	attempts, err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		issued, err = s.auth.Login(ctx, creds)
		return err
	}, core.IsRetryable)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return acquiredSession{}, err
		}
		logger.ErrorContext(ctx, "login failed", "attempts", attempts, "err", err)
		return acquiredSession{}, &Error{Kind: FatalAuth, Err: err}
	}
	logger.InfoContext(ctx, "logged in", "username", creds.Username)
	return acquiredSession{session: &issued, fresh: true}, nil
}
