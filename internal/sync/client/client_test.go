package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemohq/mnemo/internal/config"
	"github.com/mnemohq/mnemo/internal/sync"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

func testProxy(t *testing.T, handler http.Handler) *HTTPProxy {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPProxy(config.SyncConfig{Endpoint: srv.URL, TimeoutSeconds: 5}, nil)
}

func writeResponse(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	body, err := wire.EncodeResponse(v)
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
}

func TestLoginStoresToken(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/sync/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostFormValue("u"))
		assert.Equal(t, "hunter2", r.PostFormValue("p"))
		writeResponse(t, w, wire.LoginResponse{
			Status:    wire.ServerStatusOK,
			Timestamp: 1234.5,
			Token:     "session-token",
		})
	})
	mux.HandleFunc("/sync/getDecks", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "session-token", r.PostFormValue("k"))
		writeResponse(t, w, wire.DecksResponse{
			Status: wire.ServerStatusOK,
			Decks:  map[string]wire.DeckStatus{"default": {Modified: 10, LastSync: 5}},
		})
	})

	p := testProxy(t, mux)
	ctx := context.Background()

	ts, err := p.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.InDelta(t, 1234.5, ts, 1e-9)

	decks, err := p.GetDecks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.0, decks["default"].Modified)
}

func TestLoginBadCredentials(t *testing.T) {
	t.Parallel()

	p := testProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeResponse(t, w, wire.LoginResponse{Status: wire.ServerStatusBadAuth})
	}))

	_, err := p.Login(context.Background(), "alice", "wrong")
	var se *sync.SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sync.StatusInvalidCredentials, se.Code)
}

func TestSummarySendsEncodedLastSync(t *testing.T) {
	t.Parallel()

	p := testProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "true", r.PostFormValue("base64"))

		var lastSync float64
		require.NoError(t, wire.DecodeField(r.PostFormValue("lastSync"), &lastSync))
		assert.InDelta(t, 99.5, lastSync, 1e-9)

		writeResponse(t, w, &wire.Summary{})
	}))

	sum, err := p.Summary(context.Background(), 99.5)
	require.NoError(t, err)
	assert.NotNil(t, sum)
}

func TestHTTPErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code int
		want sync.Status
	}{
		{name: "forbidden", code: http.StatusForbidden, want: sync.StatusInvalidCredentials},
		{name: "unauthorized", code: http.StatusUnauthorized, want: sync.StatusInvalidCredentials},
		{name: "unavailable", code: http.StatusServiceUnavailable, want: sync.StatusTooBusy},
		{name: "throttled", code: http.StatusTooManyRequests, want: sync.StatusTooBusy},
		{name: "server error", code: http.StatusInternalServerError, want: sync.StatusError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := testProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))

			_, err := p.GetDecks(context.Background())
			var se *sync.SyncError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.want, se.Code)
		})
	}
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	p := testProxy(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GetDecks(ctx)
	var se *sync.SyncError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sync.StatusError, se.Code)
}
