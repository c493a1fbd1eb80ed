package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

var ErrCorrupt = fmt.Errorf("persisted session is corrupt")
var ErrIOFailure = fmt.Errorf("session store io failure")

// Store persists a single session. Implementations do no network I/O.
type Store interface {
	// Load returns nil and no error when there is nothing usable persisted.
	// A persisted session that is incomplete or expired is discarded.
	Load(ctx context.Context) (*Session, error)
	// Save either persists the entire session or leaves the store as it was.
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Options shared by the store implementations.
type Options struct {
	// RequiredCookies must all be present for a loaded session to be used.
	RequiredCookies []string
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func encode(s Session) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func decode(data []byte) (Session, error) {
	var s Session
	err := json.Unmarshal(data, &s)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if s.Cookies == nil {
		return Session{}, fmt.Errorf("%w: missing cookie set", ErrCorrupt)
	}
	for i, c := range s.Cookies {
		if c.Name == "" {
			return Session{}, fmt.Errorf("%w: cookie %d has no name", ErrCorrupt, i)
		}
	}
	return s, nil
}
