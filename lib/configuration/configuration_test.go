package configuration

import (
	"context"
	"cpkit/lib/scrapers/atcoder/core"
	"cpkit/lib/session"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpkit.json5")
	err := os.WriteFile(path, []byte(`{
		username: "alice",
		session: { backend: "sqlite", path: "/tmp/cpkit.db" },
		retry: { max_attempts: 5 },
		workers: 2,
	}`), 0600)
	require.NoError(t, err)

	config, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "alice", config.Username)
	require.Equal(t, BackendSqlite, config.Session.Backend)
	require.Equal(t, "/tmp/cpkit.db", config.Session.Path)
	require.Equal(t, 2, config.Workers)
	require.Equal(t, core.DefaultBaseUrl, config.BaseUrl)
	require.Equal(t, 30, config.Http.TimeoutSeconds)

	policy := config.RetryPolicy()
	require.Equal(t, 5, policy.MaxAttempts)
	require.Equal(t, 500*time.Millisecond, policy.InitialInterval)
}

func TestLoadExplicitMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json5"))
	require.Error(t, err)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpkit.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{ session: { backend: "redis" } }`), 0600))

	_, err := Load(path)
	require.ErrorContains(t, err, "session.backend")
}

func TestCredentialsFallBackOnEnv(t *testing.T) {
	t.Setenv(UsernameEnv, "env-user")
	t.Setenv(PasswordEnv, "env-pass")

	config := Defaults()
	config.Username = "alice"
	creds := config.Credentials()
	require.Equal(t, session.Credentials{Username: "alice", Password: "env-pass"}, creds)
}

func TestOpenStore(t *testing.T) {
	for _, backend := range []string{BackendFile, BackendSqlite} {
		t.Run(backend, func(t *testing.T) {
			config := Session{
				Backend: backend,
				Path:    filepath.Join(t.TempDir(), "session"),
			}
			store, err := config.OpenStore()
			require.NoError(t, err)
			defer store.Close()

			now := time.Now()
			issued := session.Session{
				Cookies: []session.Cookie{{
					Name:    core.SessionCookie,
					Value:   "value",
					Expires: now.Add(time.Hour),
				}},
				IssuedAt: now,
			}
			require.NoError(t, store.Save(context.Background(), issued))

			loaded, err := store.Load(context.Background())
			require.NoError(t, err)
			require.NotNil(t, loaded)
			require.True(t, issued.Equal(*loaded))
		})
	}

	_, err := Session{Backend: "redis", Path: "x"}.OpenStore()
	require.Error(t, err)
}

func TestClientOptionsDumpsOnlyWhenDebugging(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "important.txt")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0600))
	config := Defaults()
	config.DebugDumpDir = dir

	opts, err := config.ClientOptions(false)
	require.NoError(t, err)
	require.Nil(t, opts.DebugOutput)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	opts, err = config.ClientOptions(true)
	require.NoError(t, err)
	require.NotNil(t, opts.DebugOutput)
	require.FileExists(t, existing)
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
