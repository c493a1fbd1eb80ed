package session

import (
	"context"
	"cpkit/lib/testutil"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testSession() Session {
	return Session{
		IssuedAt: issued,
		Cookies: []Cookie{
			{
				Name:     "REVEL_SESSION",
				Value:    "abcdef",
				Domain:   "atcoder.jp",
				Path:     "/",
				Expires:  issued.Add(24 * time.Hour),
				Secure:   true,
				HttpOnly: true,
			},
		},
	}
}

func testOptions() Options {
	return Options{
		RequiredCookies: []string{"REVEL_SESSION"},
		Now:             func() time.Time { return issued.Add(time.Minute) },
	}
}

func storesUnderTest(t *testing.T) map[string]Store {
	dir := t.TempDir()

	sqlite, err := OpenSQLiteStore(filepath.Join(dir, "session.db"), testOptions())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "nested", "session.json"), testOptions()),
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			loaded, err := store.Load(ctx)
			require.NoError(t, err)
			require.Nil(t, loaded)

			expected := testSession()
			err = store.Save(ctx, expected)
			require.NoError(t, err)

			loaded, err = store.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			require.True(t, expected.Equal(*loaded), "%+v != %+v", expected, *loaded)

			err = store.Clear(ctx)
			require.NoError(t, err)
			loaded, err = store.Load(ctx)
			require.NoError(t, err)
			require.Nil(t, loaded)
		})
	}
}

func TestStoreDiscardsIncompleteSession(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			partial := Session{
				IssuedAt: issued,
				Cookies:  []Cookie{{Name: "REVEL_FLASH", Value: "x"}},
			}
			err := store.Save(ctx, partial)
			require.NoError(t, err)

			loaded, err := store.Load(ctx)
			require.NoError(t, err)
			require.Nil(t, loaded)
		})
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path, testOptions())

	testCases := []string{
		"not json at all",
		`{"issued_at": "2024-03-01T12:00:00Z"}`,
		`{"issued_at": "2024-03-01T12:00:00Z", "cookies": [{"value": "nameless"}]}`,
	}
	for _, contents := range testCases {
		err := os.WriteFile(path, []byte(contents), 0600)
		require.NoError(t, err)

		loaded, err := store.Load(ctx)
		require.Nil(t, loaded)
		require.True(t, errors.Is(err, ErrCorrupt), "%q: %v", contents, err)
	}
}

func TestFileStoreSaveFailureLeavesPreviousSession(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	store := NewFileStore(path, testOptions())

	err := store.Save(ctx, testSession())
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// a directory at the target path makes the final rename fail
	blocked := NewFileStore(filepath.Join(dir, "blocked"), testOptions())
	err = os.MkdirAll(filepath.Join(dir, "blocked", "child"), 0700)
	require.NoError(t, err)
	err = blocked.Save(ctx, testSession())
	require.True(t, errors.Is(err, ErrIOFailure), "%v", err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		require.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestSQLiteStoreSharesDatabase(t *testing.T) {
	db := testutil.OpenDB(t, `create table contests (id text primary key);`+Schema)
	_, err := db.Exec(`insert into contests (id) values ('abc001')`)
	require.NoError(t, err)

	store := NewSQLiteStore(db, testOptions())
	require.NoError(t, store.Save(context.Background(), testSession()))
	require.NoError(t, store.Save(context.Background(), testSession()))

	var rows int
	require.NoError(t, db.QueryRow(`select count(*) from session`).Scan(&rows))
	require.Equal(t, 1, rows)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.True(t, testSession().Equal(*loaded))

	require.NoError(t, store.Clear(context.Background()))
	require.NoError(t, db.QueryRow(`select count(*) from contests`).Scan(&rows))
	require.Equal(t, 1, rows)
}
