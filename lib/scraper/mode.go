package scraper

import (
	"context"
	"cpkit/lib/session"
)

// Mode decides where the session of a scrape comes from.
type Mode interface {
	String() string
	isMode()
}

// LoggedIn always authenticates with the given credentials, ignoring any
// cached session.
type LoggedIn struct {
	Credentials session.Credentials
}

// LoggedInCached reuses the stored session when there is a complete one and
// otherwise asks Prompt for credentials.
type LoggedInCached struct {
	Prompt func(ctx context.Context) (session.Credentials, error)
}

// NoLogin scrapes anonymously, the session store is never touched.
type NoLogin struct{}

func (LoggedIn) String() string       { return "logged_in" }
func (LoggedInCached) String() string { return "logged_in_cached" }
func (NoLogin) String() string        { return "no_login" }

func (LoggedIn) isMode()       {}
func (LoggedInCached) isMode() {}
func (NoLogin) isMode()        {}
