package mochi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://app.mochi.cards/api"
	defaultHTTPTimeout = 30 * time.Second
)

// NameFieldID is the field identifier Mochi assigns to every template's
// name field.
const NameFieldID = "name"

// Config captures the runtime settings for the Mochi API.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// HTTPDoer describes the HTTP client used by the Mochi client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Mochi card API using basic auth with the API key as
// the username.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a Mochi client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Field is one template field value on a card.
type Field struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// CardRequest is the payload for creating a card. Template cards carry
// Fields keyed by field id; content cards carry markdown in Content.
type CardRequest struct {
	DeckID         string           `json:"deck-id"`
	TemplateID     string           `json:"template-id,omitempty"`
	Content        string           `json:"content,omitempty"`
	Pos            int64            `json:"pos,omitempty"`
	ReviewReversed bool             `json:"review-reversed"`
	Fields         map[string]Field `json:"fields,omitempty"`
}

// DeckRequest is the payload for creating a deck.
type DeckRequest struct {
	Name      string `json:"name"`
	ParentID  string `json:"parent-id,omitempty"`
	ShowSides bool   `json:"show-sides"`
}

// Card is the subset of the card response the pipeline uses.
type Card struct {
	ID string `json:"id"`
}

// Deck is the subset of the deck response the pipeline uses.
type Deck struct {
	ID string `json:"id"`
}

// StatusError reports a non-success HTTP response from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mochi request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// CreateCard creates one card and returns its identifier.
func (c *Client) CreateCard(ctx context.Context, req CardRequest) (*Card, error) {
	if strings.TrimSpace(req.DeckID) == "" {
		return nil, errors.New("mochi create card: deck id required")
	}
	if len(req.Fields) == 0 && strings.TrimSpace(req.Content) == "" {
		return nil, errors.New("mochi create card: fields or content required")
	}
	var card Card
	if err := c.postJSON(ctx, "cards/", req, &card); err != nil {
		return nil, err
	}
	if card.ID == "" {
		return nil, errors.New("mochi create card: response missing card id")
	}
	return &card, nil
}

// CreateDeck creates a deck and returns its identifier.
func (c *Client) CreateDeck(ctx context.Context, req DeckRequest) (*Deck, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, errors.New("mochi create deck: name required")
	}
	var deck Deck
	if err := c.postJSON(ctx, "decks/", req, &deck); err != nil {
		return nil, err
	}
	if deck.ID == "" {
		return nil, errors.New("mochi create deck: response missing deck id")
	}
	return &deck, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, target any) error {
	if c.cfg.APIKey == "" {
		return errors.New("mochi: api key required")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mochi request: encode body: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s", c.cfg.BaseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("mochi request: new request: %w", err)
	}
	req.SetBasicAuth(c.cfg.APIKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mochi request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mochi request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("mochi request: decode response: %w", err)
	}
	return nil
}
