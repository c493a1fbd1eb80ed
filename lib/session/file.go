package session

import (
	"context"
	"cpkit/lib/osutil"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// FileStore keeps the session as a JSON document at Path.
type FileStore struct {
	Path string
	Options
}

func NewFileStore(path string, opts Options) FileStore {
	return FileStore{Path: path, Options: opts}
}

func (f FileStore) Load(ctx context.Context) (*Session, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	if !s.Complete(f.now(), f.RequiredCookies...) {
		slog.WarnContext(ctx, "discarding incomplete or expired session", "path", f.Path)
		err = os.Remove(f.Path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
		return nil, nil
	}
	return &s, nil
}

// Save writes to a temporary file in the same directory and renames it over
// Path, a failure at any point leaves the previous file intact.
func (f FileStore) Save(ctx context.Context, s Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}

	err = osutil.WriteFileAtomic(f.Path, data, 0600)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	slog.DebugContext(ctx, "session saved", "path", f.Path, "cookies", len(s.Cookies))
	return nil
}

func (f FileStore) Clear(ctx context.Context) error {
	err := os.Remove(f.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}
