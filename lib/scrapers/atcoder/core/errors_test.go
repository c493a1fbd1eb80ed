package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/login-redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login?continue=%2Fcontests%2Fabc001", http.StatusFound)
	})
	mux.HandleFunc("/not-started", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/contests/abc999", http.StatusFound)
	})
	mux.HandleFunc("/unavailable", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/throttled", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.HandleFunc("/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseUrl: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	testCases := []struct {
		path     string
		expected error
	}{
		{path: "/ok", expected: nil},
		{path: "/missing", expected: ErrNotFound},
		{path: "/forbidden", expected: ErrForbidden},
		{path: "/login-redirect", expected: ErrForbidden},
		{path: "/not-started", expected: ErrForbidden},
		{path: "/unavailable", expected: ErrNetwork},
		{path: "/throttled", expected: ErrNetwork},
		{path: "/teapot", expected: ErrUnexpectedResponse},
	}

	ctx := context.Background()
	for _, test := range testCases {
		res, err := client.R(ctx, nil).Get(test.path)
		classified := Classify(ctx, res, err)
		if test.expected == nil {
			require.NoError(t, classified, test.path)
			continue
		}
		require.True(t, errors.Is(classified, test.expected), "%s: %v", test.path, classified)
	}
}

func TestClassifyCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	client, err := NewClient(ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := client.R(ctx, nil).Get("/")
	classified := Classify(ctx, res, err)

	require.ErrorIs(t, classified, context.Canceled)
	require.False(t, IsRetryable(classified))
}
