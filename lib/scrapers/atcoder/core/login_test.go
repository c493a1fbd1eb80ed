package core

import (
	"context"
	"cpkit/lib/scrapers/atcoder/atcodertest"
	"cpkit/lib/session"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, site *atcodertest.Site) *Client {
	client, err := NewClient(ClientOptions{
		BaseUrl: site.URL(),
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestLogin(t *testing.T) {
	site := atcodertest.NewSite(t, "alice", "hunter2", nil)
	client := newTestClient(t, site)

	s, err := client.Login(context.Background(), session.Credentials{Username: "alice", Password: "hunter2"})
	require.NoError(t, err)
	require.NotEmpty(t, s.Cookies)
	require.True(t, s.Complete(time.Now(), SessionCookie))

	cookie, ok := s.Cookie(SessionCookie)
	require.True(t, ok)
	require.Equal(t, "authenticated-session", cookie.Value)
	require.Equal(t, 2, site.Hits("/login"))
}

func TestLoginRoundTripsThroughStore(t *testing.T) {
	site := newSite(t)
	client := newTestClient(t, site)

	issued, err := client.Login(context.Background(), session.Credentials{Username: "alice", Password: "hunter2"})
	require.NoError(t, err)

	store := session.NewFileStore(t.TempDir()+"/session.json", session.Options{
		RequiredCookies: []string{SessionCookie},
	})
	err = store.Save(context.Background(), issued)
	require.NoError(t, err)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.True(t, issued.Equal(*loaded))
}

func newSite(t *testing.T) *atcodertest.Site {
	return atcodertest.NewSite(t, "alice", "hunter2", nil)
}

func TestLoginErrors(t *testing.T) {
	testCases := []struct {
		name     string
		setup    func(site *atcodertest.Site)
		creds    session.Credentials
		expected error
	}{
		{
			name:     "wrong password",
			creds:    session.Credentials{Username: "alice", Password: "wrong"},
			expected: ErrInvalidCredentials,
		},
		{
			name:     "empty credentials",
			creds:    session.Credentials{Username: "alice"},
			expected: ErrInvalidCredentials,
		},
		{
			name:     "missing csrf token",
			setup:    func(site *atcodertest.Site) { site.OmitCsrf = true },
			creds:    session.Credentials{Username: "alice", Password: "hunter2"},
			expected: ErrUnexpectedResponse,
		},
		{
			name:     "login page gone",
			setup:    func(site *atcodertest.Site) { site.FailLoginPage = http.StatusNotFound },
			creds:    session.Credentials{Username: "alice", Password: "hunter2"},
			expected: ErrUnexpectedResponse,
		},
		{
			name:     "login page unavailable",
			setup:    func(site *atcodertest.Site) { site.FailLoginPage = http.StatusServiceUnavailable },
			creds:    session.Credentials{Username: "alice", Password: "hunter2"},
			expected: ErrNetwork,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			site := newSite(t)
			if test.setup != nil {
				test.setup(site)
			}
			client := newTestClient(t, site)

			_, err := client.Login(context.Background(), test.creds)
			require.Error(t, err)
			require.True(t, errors.Is(err, test.expected), "expected %v, got %v", test.expected, err)
		})
	}
}

func TestLoginNetworkFailure(t *testing.T) {
	site := newSite(t)
	client := newTestClient(t, site)
	site.Server.Close()

	_, err := client.Login(context.Background(), session.Credentials{Username: "alice", Password: "hunter2"})
	require.True(t, errors.Is(err, ErrNetwork), "%v", err)
	require.True(t, IsRetryable(err))
}
