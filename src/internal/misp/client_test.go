// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/misp-mcp-server/src/internal/misp"
)

const testAPIKey = "0123456789abcdef0123456789abcdef01234567"

// newTestClient points a client at the given test server with sane test
// settings.
func newTestClient(t *testing.T, srv *httptest.Server) *misp.Client {
	t.Helper()

	client, err := misp.NewClient(misp.Config{
		BaseURL:   srv.URL,
		APIKey:    testAPIKey,
		VerifySSL: true,
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err, "NewClient() error")
	return client
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name   string
		config misp.Config
		detail string
	}{
		{
			name:   "missing url",
			config: misp.Config{APIKey: testAPIKey},
			detail: "MISP_URL",
		},
		{
			name:   "relative url",
			config: misp.Config{BaseURL: "misp.local/api", APIKey: testAPIKey},
			detail: "absolute URL",
		},
		{
			name:   "missing api key",
			config: misp.Config{BaseURL: "https://misp.local"},
			detail: "MISP_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := misp.NewClient(tt.config)
			require.Error(t, err)
			assert.Nil(t, client)
			assert.True(t, misp.IsKind(err, misp.KindConfiguration), "want configuration error, got %v", err)
			assert.Contains(t, misp.Detail(err), tt.detail)
		})
	}
}

func TestClientSendsAuthenticatedRequests(t *testing.T) {
	var captured *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"version":"2.4.190","perm_sync":true,"perm_sighting":true}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	info, err := client.GetVersion(context.Background())
	require.NoError(t, err)
	require.NotNil(t, captured, "no request reached the server")

	assert.Equal(t, http.MethodGet, captured.Method)
	assert.Equal(t, "/servers/getVersion", captured.URL.Path)
	assert.Equal(t, testAPIKey, captured.Header.Get("Authorization"), "MISP expects the bare automation key")
	assert.Equal(t, "application/json", captured.Header.Get("Accept"))
	assert.Contains(t, captured.Header.Get("User-Agent"), "misp-mcp-server")

	assert.Equal(t, "2.4.190", info.Version)
	assert.True(t, bool(info.PermSync))
}

func TestClientStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   misp.Kind
		detail string
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"name":"Authentication failed","message":"Authentication failed","url":"/servers/getVersion"}`,
			kind:   misp.KindAuthentication,
			detail: "Authentication failed",
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   `{}`,
			kind:   misp.KindAuthentication,
			detail: "rejected the API key",
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"name":"Invalid event","message":"Invalid event"}`,
			kind:   misp.KindNotFound,
			detail: "Invalid event",
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			body:   `{"message":"A required field is missing","errors":{"info":["Info cannot be empty"]}}`,
			kind:   misp.KindValidation,
			detail: "required field",
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `not even json`,
			kind:   misp.KindUnknown,
			detail: "HTTP 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := newTestClient(t, srv)

			_, err := client.GetVersion(context.Background())
			require.Error(t, err)
			assert.True(t, misp.IsKind(err, tt.kind), "want %s, got %v", tt.kind, err)
			assert.Contains(t, misp.Detail(err), tt.detail)
		})
	}
}

func TestClientTransportErrors(t *testing.T) {
	t.Run("unreachable server", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		client := newTestClient(t, srv)
		srv.Close() // shut the listener before the call

		_, err := client.TestConnection(context.Background())
		require.Error(t, err)
		assert.True(t, misp.IsKind(err, misp.KindTransport), "want transport error, got %v", err)
	})

	t.Run("timeout is bounded", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		client, err := misp.NewClient(misp.Config{
			BaseURL:   srv.URL,
			APIKey:    testAPIKey,
			VerifySSL: true,
			Timeout:   100 * time.Millisecond,
		})
		require.NoError(t, err)

		start := time.Now()
		_, err = client.TestConnection(context.Background())
		elapsed := time.Since(start)

		require.Error(t, err)
		assert.True(t, misp.IsKind(err, misp.KindTransport), "want transport error, got %v", err)
		assert.Contains(t, misp.Detail(err), "timed out")
		assert.Less(t, elapsed, 5*time.Second, "the call must not hang past the configured timeout")
	})

	t.Run("self-signed rejected when verification is on", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"version":"2.4.190"}`))
		}))
		defer srv.Close()

		client, err := misp.NewClient(misp.Config{
			BaseURL:   srv.URL,
			APIKey:    testAPIKey,
			VerifySSL: true,
			Timeout:   5 * time.Second,
		})
		require.NoError(t, err)

		_, err = client.TestConnection(context.Background())
		require.Error(t, err)
		assert.True(t, misp.IsKind(err, misp.KindTransport), "want transport error, got %v", err)
	})

	t.Run("self-signed accepted when verification is off", func(t *testing.T) {
		srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"version":"2.4.190"}`))
		}))
		defer srv.Close()

		client, err := misp.NewClient(misp.Config{
			BaseURL:   srv.URL,
			APIKey:    testAPIKey,
			VerifySSL: false,
			Timeout:   5 * time.Second,
		})
		require.NoError(t, err)

		info, err := client.TestConnection(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "2.4.190", info.Version)
	})
}

func TestClientMetrics(t *testing.T) {
	var status int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(`{"version":"2.4.190"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	status = http.StatusOK
	_, err := client.GetVersion(context.Background())
	require.NoError(t, err)

	status = http.StatusUnauthorized
	_, err = client.GetVersion(context.Background())
	require.Error(t, err)

	snap := client.Metrics()
	assert.Equal(t, uint64(2), snap.Requests)
	assert.Equal(t, uint64(1), snap.Failures)
	assert.Equal(t, uint64(1), snap.FailuresByKind["authentication error"])
	assert.False(t, snap.LastRequest.IsZero())
	assert.NotEmpty(t, snap.LastError)
}

func TestListFeeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/feeds", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"Feed":{"id":"1","name":"CIRCL OSINT Feed","provider":"CIRCL","url":"https://www.circl.lu/doc/misp/feed-osint","source_format":"misp","enabled":true,"caching_enabled":true}},
			{"Feed":{"id":"2","name":"Retired feed","provider":"Nobody","enabled":"0","caching_enabled":"0"}}
		]`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)

	feeds, err := client.ListFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	assert.Equal(t, "CIRCL OSINT Feed", feeds[0].Name)
	assert.True(t, bool(feeds[0].Enabled))
	assert.False(t, bool(feeds[1].Enabled), "string zero decodes to false")
}
