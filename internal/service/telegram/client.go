package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PricePulse/internal/service/ratelimit"
	xhttp "PricePulse/pkg/http"

	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("telegram: circuit open")

// Config for the Bot API client.
type Config struct {
	APIURL      string
	BotToken    string
	Timeout     time.Duration
	RatePerSec  float64
	FailureTrip uint32
	OpenFor     time.Duration
}

// Client sends messages through the Telegram Bot API. Calls are rate limited
// per chat and guarded by a circuit breaker.
type Client struct {
	http    *xhttp.Client
	cb      *gobreaker.CircuitBreaker
	limiter *ratelimit.Limiter
	baseURL string
	timeout time.Duration
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.telegram.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.FailureTrip == 0 {
		cfg.FailureTrip = 3
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = time.Minute
	}

	trip := cfg.FailureTrip
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "telegram",
		Timeout: cfg.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= trip
		},
		IsSuccessful: func(err error) bool {
			var se *xhttp.StatusError
			if errors.As(err, &se) {
				return !se.Retryable()
			}
			return err == nil
		},
	})

	return &Client{
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		cb:      cb,
		limiter: ratelimit.New(cfg.RatePerSec, 1),
		baseURL: strings.TrimRight(cfg.APIURL, "/") + "/bot" + cfg.BotToken,
		timeout: cfg.Timeout,
	}, nil
}

// SendMessage posts text to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var resp apiResponse
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    c.baseURL + "/sendMessage",
			Body:   sendMessageRequest{ChatID: chatID, Text: text, DisableWebPagePreview: true},
		}, &resp)
		if err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, fmt.Errorf("telegram api: %s", resp.Description)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
