package response

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/durga/internal/infra/config"
)

type failingProvider struct{ err error }

func (p failingProvider) Reply(context.Context, Request) (string, error) { return "", p.err }
func (p failingProvider) Name() string { return "failing" }

func TestRotatingProvider(t *testing.T) {
	p, err := NewRotatingProvider(map[string]any{
		"messages": []any{"one", "two"},
	})
	require.NoError(t, err)

	ctx := context.Background()
	var got []string
	for i := 0; i < 5; i++ {
		text, err := p.Reply(ctx, Request{Kind: KindMessage})
		require.NoError(t, err)
		got = append(got, text)
	}
	assert.Equal(t, []string{"one", "two", "one", "two", "one"}, got)

	text, err := p.Reply(ctx, Request{Kind: KindCallback})
	require.NoError(t, err)
	assert.Equal(t, DefaultCallbackReply, text)
}

func TestRotatingProvider_Defaults(t *testing.T) {
	p, err := NewRotatingProvider(nil)
	require.NoError(t, err)

	text, err := p.Reply(context.Background(), Request{Kind: KindMessage})
	require.NoError(t, err)
	assert.Equal(t, DefaultMessageReplies[0], text)
}

func TestRandomProvider_SeedIsReproducible(t *testing.T) {
	settings := map[string]any{"seed": 42}

	a, err := NewRandomProvider(settings)
	require.NoError(t, err)
	b, err := NewRandomProvider(settings)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		ta, err := a.Reply(ctx, Request{Kind: KindMessage})
		require.NoError(t, err)
		tb, err := b.Reply(ctx, Request{Kind: KindMessage})
		require.NoError(t, err)
		assert.Equal(t, ta, tb)
		assert.Contains(t, DefaultMessageReplies, ta)
	}
}

func TestStaticProvider(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
	}{
		{name: "valid", settings: map[string]any{"text": "on my way"}, wantErr: false},
		{name: "missing text", settings: map[string]any{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewStaticProvider(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			text, err := p.Reply(context.Background(), Request{Kind: KindMessage})
			require.NoError(t, err)
			assert.Equal(t, "on my way", text)
		})
	}
}

func TestChain_Reply(t *testing.T) {
	tests := []struct {
		name      string
		providers []ProviderWithMetadata
		want      string
		wantErr   error
	}{
		{
			name: "first provider answers",
			providers: []ProviderWithMetadata{
				{Provider: Static("first"), DisplayName: "a"},
				{Provider: Static("second"), DisplayName: "b"},
			},
			want: "first",
		},
		{
			name: "falls through failure and empty reply",
			providers: []ProviderWithMetadata{
				{Provider: failingProvider{err: errors.New("offline")}, DisplayName: "a"},
				{Provider: Static(""), DisplayName: "b"},
				{Provider: Static("third"), DisplayName: "c"},
			},
			want: "third",
		},
		{
			name: "nobody answers",
			providers: []ProviderWithMetadata{
				{Provider: failingProvider{err: errors.New("offline")}, DisplayName: "a"},
			},
			wantErr: ErrNoReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := NewChain(tt.providers).Reply(context.Background(), Request{Kind: KindMessage})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestChain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChain([]ProviderWithMetadata{{Provider: Static("x")}}).Reply(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewChainFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ResponsesConfig
		wantLen int
		wantErr bool
	}{
		{name: "defaults", cfg: config.ResponsesConfig{}, wantLen: 1},
		{
			name: "configured",
			cfg: config.ResponsesConfig{Providers: []config.ProviderConfig{
				{Type: "static", DisplayName: "Dad", Settings: map[string]any{"text": "coming"}},
				{Type: "random", DisplayName: "Ops", Settings: map[string]any{"seed": 7}},
			}},
			wantLen: 2,
		},
		{
			name: "unknown type",
			cfg: config.ResponsesConfig{Providers: []config.ProviderConfig{
				{Type: "llm", DisplayName: "AI"},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := NewChainFromConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, chain.Len())
		})
	}
}

func TestRelayProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "guardian.reply":
			fmt.Fprintf(w, `{"reply": {"text": "got: %s"}}`, r.URL.Query().Get("text"))
		case "guardian.callback":
			fmt.Fprint(w, `{"reply": {"text": "ringing you"}}`)
		}
	}))
	defer server.Close()

	p, err := NewProvider(config.ProviderConfig{
		Type:     "relay",
		Settings: map[string]any{"base_url": server.URL, "api_key": "k"},
	})
	require.NoError(t, err)
	assert.Equal(t, "relay", p.Name())

	ctx := context.Background()
	text, err := p.Reply(ctx, Request{Kind: KindMessage, SessionID: "s", Guardian: "Mom", Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "got: hi", text)

	text, err = p.Reply(ctx, Request{Kind: KindCallback, SessionID: "s", Guardian: "Mom"})
	require.NoError(t, err)
	assert.Equal(t, "ringing you", text)
}

func TestRelayProvider_InvalidSettings(t *testing.T) {
	_, err := NewRelayProvider(map[string]any{"api_key": "k"})
	assert.Error(t, err)

	_, err = NewRelayProvider(map[string]any{"base_url": "not a url", "api_key": "k"})
	assert.Error(t, err)
}
