package relay

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "guardian.reply", r.URL.Query().Get("method"))
		assert.Equal(t, "s-1", r.URL.Query().Get("session"))
		assert.Equal(t, "Mom", r.URL.Query().Get("guardian"))
		assert.Equal(t, "help", r.URL.Query().Get("text"))
		assert.Equal(t, "test_key", r.URL.Query().Get("api_key"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"reply": {"guardian": "Mom", "text": "On my way"}}`)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL + "/", APIKey: "test_key"})
	require.NoError(t, err)

	text, err := client.Reply(context.Background(), "s-1", "Mom", "help")
	require.NoError(t, err)
	assert.Equal(t, "On my way", text)
}

func TestCallback_Cached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "guardian.callback", r.URL.Query().Get("method"))
		fmt.Fprint(w, `{"reply": {"guardian": "Mom", "text": "Calling"}}`)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL + "/", APIKey: "test_key"})
	require.NoError(t, err)

	ctx := context.Background()
	text, err := client.Callback(ctx, "s-1", "Mom")
	require.NoError(t, err)
	assert.Equal(t, "Calling", text)

	cached, err := client.Callback(ctx, "s-1", "Mom")
	require.NoError(t, err)
	assert.Equal(t, text, cached)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReply_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"relay error", http.StatusOK, `{"error": 10, "message": "Invalid API key"}`, "relay error 10"},
		{"bad status", http.StatusBadGateway, `{}`, "status 502"},
		{"empty reply", http.StatusOK, `{"reply": {}}`, "empty reply"},
		{"malformed", http.StatusOK, `not json`, "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client, err := New(Config{BaseURL: server.URL + "/", APIKey: "test_key"})
			require.NoError(t, err)

			_, err = client.Reply(context.Background(), "s-1", "Mom", "help")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{BaseURL: "http://relay"})
	assert.Error(t, err)
}
