package scraper

import (
	"cpkit/lib/scrapers/atcoder/core"
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// FatalAuth means the login handshake failed.
	FatalAuth ErrorKind = iota + 1
	// FatalFetch means the contest itself could not be read.
	FatalFetch
	// SessionUnavailable means a login was required but no credentials
	// could be obtained.
	SessionUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case FatalAuth:
		return "fatal_auth"
	case FatalFetch:
		return "fatal_fetch"
	case SessionUnavailable:
		return "session_unavailable"
	}
	return fmt.Sprintf("error_kind(%d)", int(k))
}

// Error aborts a whole scrape, Err is the underlying cause.
type Error struct {
	Kind ErrorKind
	Err  error

	cachedSession bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Message(), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is a short explanation of what the user can do about the error.
func (e *Error) Message() string {
	switch e.Kind {
	case FatalAuth:
		switch {
		case errors.Is(e.Err, core.ErrInvalidCredentials):
			return "login rejected, check the username and password"
		case errors.Is(e.Err, core.ErrNetwork):
			return "could not reach the site to log in, try again later"
		case errors.Is(e.Err, core.ErrUnexpectedResponse):
			return "the login page has an unexpected layout"
		}
		return "login failed"
	case FatalFetch:
		switch {
		case errors.Is(e.Err, core.ErrNotFound):
			return "contest not found, check the contest id"
		case errors.Is(e.Err, core.ErrForbidden) && e.cachedSession:
			return "the saved session was rejected, run `cpkit login` again"
		case errors.Is(e.Err, core.ErrForbidden):
			return "access to the contest was denied, it may not have started or may require a login"
		case errors.Is(e.Err, core.ErrNetwork):
			return "could not reach the site, try again later"
		case errors.Is(e.Err, core.ErrUnexpectedResponse):
			return "the task list has an unexpected layout"
		}
		return "failed to read the contest"
	case SessionUnavailable:
		return "a login is required but no credentials were provided"
	}
	return "scrape failed"
}
