// Package chat generates idle-talk lines from the local language model
// server.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-companion/internal/httpc"
	"github.com/teslashibe/go-companion/pkg/affect"
	"github.com/teslashibe/go-companion/pkg/engine"
)

const defaultBaseURL = "http://127.0.0.1:5001"

// Config holds generation client settings.
type Config struct {
	BaseURL   string        `koanf:"base_url"`
	MaxTokens int           `koanf:"max_tokens"`
	Timeout   time.Duration `koanf:"timeout"`
	Name      string        `koanf:"name"` // the companion's name in prompts
	Logger    *slog.Logger  `koanf:"-"`
}

// DefaultConfig returns settings for a server on localhost.
func DefaultConfig() Config {
	return Config{
		BaseURL:   defaultBaseURL,
		MaxTokens: 60,
		Timeout:   20 * time.Second,
		Name:      "PCPOS",
		Logger:    slog.Default(),
	}
}

// Option is a functional option for the client.
type Option func(*Config)

// WithBaseURL overrides the server URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithName sets the companion's name.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Request is the /generate payload.
type Request struct {
	Prompt       string  `json:"prompt"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float64 `json:"temperature"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
}

// Response is the /generate result.
type Response struct {
	Response         string `json:"response"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// Health is the /health result.
type Health struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Client calls the generation server.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a client.
func NewClient(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "chat"),
	}
}

// Generate posts a request to /generate.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.cfg.MaxTokens
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("chat: marshal payload: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/generate"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chat: create request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("chat: generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("chat: decode response: %w", err)
	}

	c.logger.Debug("generated",
		"prompt_tokens", out.PromptTokens,
		"completion_tokens", out.CompletionTokens,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &out, nil
}

// Health queries GET /health and returns ErrNotReady when the model is not
// loaded.
func (c *Client) Health(ctx context.Context) (Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/health"), nil)
	if err != nil {
		return Health{}, fmt.Errorf("chat: create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Health{}, fmt.Errorf("chat: health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Health{}, parseError(resp)
	}
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("chat: decode health: %w", err)
	}
	if h.Status != "healthy" {
		return h, fmt.Errorf("%w: %s", ErrNotReady, h.Status)
	}
	return h, nil
}

// IdleLine asks the model for something to say while nobody is talking.
func (c *Client) IdleLine(ctx context.Context, p engine.IdlePrompt) (affect.Utterance, error) {
	resp, err := c.Generate(ctx, IdleRequest(c.cfg.Name, p))
	if err != nil {
		return affect.Utterance{}, err
	}
	u, warn, err := ParseLine(resp.Response)
	if err != nil {
		return affect.Utterance{}, err
	}
	if warn != nil {
		c.logger.Warn("idle line prefix", "request_id", p.RequestID, "error", warn)
	}
	return u, nil
}

// IdleRequest builds the generation request for an idle line.
func IdleRequest(name string, p engine.IdlePrompt) Request {
	return Request{
		Prompt:       idleInstruction(p),
		Temperature:  0.5 + 0.5*affect.Clamp(p.Personality.Playfulness, 0, 1),
		SystemPrompt: systemPrompt(name, p.Personality),
	}
}

func systemPrompt(name string, pers affect.Personality) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a small animated companion.", name)
	b.WriteString(" Speak in one short sentence.")
	fmt.Fprintf(&b, " You are %s, %s and %s.",
		trait(pers.Warmth, "reserved", "friendly", "very warm"),
		trait(pers.Playfulness, "serious", "lighthearted", "playful"),
		trait(pers.Curiosity, "content", "interested", "very curious"),
	)
	tags := make([]string, 0, len(affect.Tags()))
	for _, t := range affect.Tags() {
		tags = append(tags, t.String())
	}
	fmt.Fprintf(&b, " Start every reply with an emotion tag in brackets, one of %s,", strings.Join(tags, ", "))
	b.WriteString(" optionally followed by a movement such as [HAPPY:bounce].")
	return b.String()
}

func idleInstruction(p engine.IdlePrompt) string {
	return fmt.Sprintf(
		"Nobody has said anything for a while. You currently feel %s (mood %.2f, energy %.2f, trust %.2f). Say something to start a conversation.",
		strings.ToLower(p.Tag.String()), p.Mood.Mood, p.Mood.Energy, p.Mood.Trust,
	)
}

func trait(v float64, low, mid, high string) string {
	switch {
	case v < 0.34:
		return low
	case v < 0.67:
		return mid
	default:
		return high
	}
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
