package restyutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu       sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages[id] = contents
}

func withLogLevel(t *testing.T, level slog.Level) {
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(previous) })
}

func newServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "REVEL_SESSION", Value: "secret-session"})
		w.Write([]byte("welcome"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestInstrumentClientDumpsRedacted(t *testing.T) {
	withLogLevel(t, slog.LevelDebug)
	server := newServer(t)

	output := &memoryOutput{messages: map[string]string{}}
	client := resty.New().SetBaseURL(server.URL)
	InstrumentClient(client, output)

	_, err := client.R().
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetHeader("Cookie", "REVEL_SESSION=anonymous").
		SetBody("username=alice&password=hunter2&csrf_token=abc").
		Post("/login")
	require.NoError(t, err)

	require.Len(t, output.messages, 1)
	dump := output.messages["1"]
	require.Contains(t, dump, "POST "+server.URL+"/login")
	require.Contains(t, dump, "---- RESPONSE ----\n\n200")
	require.Contains(t, dump, "Set-Cookie: [redacted]")
	require.Contains(t, dump, "welcome")
	require.NotContains(t, dump, "hunter2")
	require.NotContains(t, dump, "secret-session")
	require.NotContains(t, dump, "anonymous")
}

func TestInstrumentClientQuietWithoutDebug(t *testing.T) {
	withLogLevel(t, slog.LevelInfo)
	server := newServer(t)

	output := &memoryOutput{messages: map[string]string{}}
	client := resty.New().SetBaseURL(server.URL)
	InstrumentClient(client, output)

	_, err := client.R().Get("/")
	require.NoError(t, err)
	require.Empty(t, output.messages)
}
