package speech

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
)

const defaultBaseURL = "http://127.0.0.1:5002"

// Config holds text-to-speech client settings.
type Config struct {
	BaseURL    string        `koanf:"base_url"`
	SpeakerWAV string        `koanf:"speaker_wav"` // reference voice path on the server
	Language   string        `koanf:"language"`
	Timeout    time.Duration `koanf:"timeout"`
	ReportMS   int           `koanf:"report_ms"`
	Realtime   bool          `koanf:"realtime"` // pace metering at playback speed
	Logger     *slog.Logger  `koanf:"-"`
}

// DefaultConfig returns settings for a server on localhost.
func DefaultConfig() Config {
	return Config{
		BaseURL:  defaultBaseURL,
		Language: "en",
		Timeout:  30 * time.Second,
		ReportMS: DefaultReportMS,
		Realtime: true,
		Logger:   slog.Default(),
	}
}

// Option is a functional option for the client.
type Option func(*Config)

// WithBaseURL overrides the server URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithSpeakerWAV sets the reference voice sample.
func WithSpeakerWAV(path string) Option {
	return func(c *Config) { c.SpeakerWAV = path }
}

// WithLanguage sets the synthesis language.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithRealtime toggles playback-speed pacing.
func WithRealtime(on bool) Option {
	return func(c *Config) { c.Realtime = on }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Status is the server's readiness report.
type Status struct {
	Status string `json:"status"`
	Device string `json:"device"`
}

// Ready reports whether the model is loaded.
func (s Status) Ready() bool { return s.Status == "ready" }

type ttsRequest struct {
	Text       string `json:"text"`
	SpeakerWAV string `json:"speaker_wav,omitempty"`
	Language   string `json:"language,omitempty"`
}

// Client talks to the local TTS server and meters the audio it returns so
// the avatar's mouth follows the voice.
type Client struct {
	cfg    Config
	http   *http.Client
	meter  *Meter
	logger *slog.Logger
}

// NewClient creates a client that reports lip-sync levels to level.
func NewClient(level LevelFunc, opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ReportMS <= 0 {
		cfg.ReportMS = DefaultReportMS
	}
	return &Client{
		cfg:    cfg,
		http:   httpc.NewClient(cfg.Timeout),
		meter:  NewMeter(level, cfg.ReportMS),
		logger: cfg.Logger.With("component", "speech"),
	}
}

// Meter exposes the lip-sync meter.
func (c *Client) Meter() *Meter { return c.meter }

// Status queries GET /status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/status"), nil)
	if err != nil {
		return Status{}, fmt.Errorf("speech: create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("speech: status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, parseError(resp)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("speech: decode status: %w", err)
	}
	return st, nil
}

// Synthesize posts text to /tts and returns the WAV bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	start := time.Now()

	body, err := json.Marshal(ttsRequest{Text: text, SpeakerWAV: c.cfg.SpeakerWAV, Language: c.cfg.Language})
	if err != nil {
		return nil, fmt.Errorf("speech: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/tts"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("speech: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: synthesize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech: read response: %w", err)
	}

	c.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return audio, nil
}

// Speak synthesizes text and meters it. With Realtime set, metering runs at
// playback speed so the engine sees the mouth move while the audio plays.
func (c *Client) Speak(ctx context.Context, text string) error {
	audio, err := c.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	pcm, rate, err := DecodeWAV(audio)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.meter.Silence(); err != nil {
			c.logger.Debug("silence report failed", "error", err)
		}
	}()
	return c.play(ctx, pcm, rate)
}

func (c *Client) play(ctx context.Context, pcm []int16, rate int) error {
	chunk := max(1, rate*c.cfg.ReportMS/1000)
	if !c.cfg.Realtime {
		for off := 0; off < len(pcm); off += chunk {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.feed(pcm[off:min(len(pcm), off+chunk)], rate)
		}
		return nil
	}

	ticker := time.NewTicker(time.Duration(c.cfg.ReportMS) * time.Millisecond)
	defer ticker.Stop()
	for off := 0; off < len(pcm); off += chunk {
		c.feed(pcm[off:min(len(pcm), off+chunk)], rate)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (c *Client) feed(pcm []int16, rate int) {
	if err := c.meter.Feed(pcm, rate); err != nil {
		c.logger.Debug("level report failed", "error", err)
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
