// Package relay provides a client for an HTTP guardian relay.
//
// A relay forwards ops-feed messages to a guardian's channel of choice and
// returns the guardian's reply text.
package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// callbackCacheEntry represents a cached callback acknowledgement.
type callbackCacheEntry struct {
	text string
}

// Client is a guardian relay API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// Callback acknowledgements keyed by session and guardian
	callbackCache map[string]*callbackCacheEntry

	// Mutex for cache access
	cacheMu sync.RWMutex
}

// Config represents relay client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ReplyResponse represents the response from the guardian.reply method.
type ReplyResponse struct {
	Reply struct {
		Guardian string `json:"guardian"`
		Text     string `json:"text"`
	} `json:"reply"`
}

// RelayError represents an error response from the relay.
type RelayError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new relay client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("relay base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("relay API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		apiKey:        cfg.APIKey,
		baseURL:       cfg.BaseURL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		callbackCache: make(map[string]*callbackCacheEntry),
	}, nil
}

// Reply forwards a user message to guardian and returns the reply.
func (c *Client) Reply(ctx context.Context, sessionID, guardian, text string) (string, error) {
	if sessionID == "" || guardian == "" {
		return "", errors.New("session id and guardian are required")
	}

	params := url.Values{}
	params.Set("method", "guardian.reply")
	params.Set("session", sessionID)
	params.Set("guardian", guardian)
	params.Set("text", text)

	return c.get(ctx, params)
}

// Callback asks guardian to call the user back and returns the
// acknowledgement. Acknowledgements are cached per session and guardian.
func (c *Client) Callback(ctx context.Context, sessionID, guardian string) (string, error) {
	if sessionID == "" || guardian == "" {
		return "", errors.New("session id and guardian are required")
	}

	cacheKey := sessionID + ":" + guardian
	c.cacheMu.RLock()
	if entry, ok := c.callbackCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("relay: using cached callback session_id=%s guardian=%s", sessionID, guardian)
		return entry.text, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("method", "guardian.callback")
	params.Set("session", sessionID)
	params.Set("guardian", guardian)

	text, err := c.get(ctx, params)
	if err != nil {
		return "", err
	}

	c.cacheMu.Lock()
	c.callbackCache[cacheKey] = &callbackCacheEntry{text: text}
	c.cacheMu.Unlock()

	return text, nil
}

func (c *Client) get(ctx context.Context, params url.Values) (string, error) {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}

	// Check for relay errors
	var apiError RelayError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != 0 {
		return "", errors.Errorf("relay error %d: %s", apiError.Error, apiError.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("relay returned status %d", resp.StatusCode)
	}

	var response ReplyResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", errors.Wrap(err, "failed to parse response")
	}
	if response.Reply.Text == "" {
		return "", errors.New("relay returned an empty reply")
	}

	return response.Reply.Text, nil
}
