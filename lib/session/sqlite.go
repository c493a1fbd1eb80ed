package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const Schema = `
create table if not exists session (
	id integer primary key check (id = 1),
	payload text not null,
	saved_at integer not null
);
`

// SQLiteStore keeps the session as a single row of a sqlite database, useful
// when the session should live next to other local state.
type SQLiteStore struct {
	db *sql.DB
	Options
}

func OpenSQLiteStore(path string, opts Options) (SQLiteStore, error) {
	err := os.MkdirAll(filepath.Dir(path), 0700)
	if err != nil {
		return SQLiteStore{}, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return SQLiteStore{}, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return SQLiteStore{}, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return NewSQLiteStore(db, opts), nil
}

func NewSQLiteStore(db *sql.DB, opts Options) SQLiteStore {
	return SQLiteStore{db: db, Options: opts}
}

func (s SQLiteStore) Close() error {
	return s.db.Close()
}

func (s SQLiteStore) Load(ctx context.Context) (*Session, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "select payload from session where id = 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	sess, err := decode([]byte(payload))
	if err != nil {
		return nil, err
	}
	if !sess.Complete(s.now(), s.RequiredCookies...) {
		slog.WarnContext(ctx, "discarding incomplete or expired session")
		err = s.Clear(ctx)
		if err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &sess, nil
}

func (s SQLiteStore) Save(ctx context.Context, sess Session) error {
	payload, err := encode(sess)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`insert into session (id, payload, saved_at) values (1, ?, ?)
		on conflict (id) do update set payload = excluded.payload, saved_at = excluded.saved_at`,
		string(payload),
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

func (s SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "delete from session")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}
