package telegram

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Factory hands out Bot API clients per tenant token. Construction authorizes
// against the Bot API (getMe), so instances are cached by token.
type Factory interface {
	ClientFor(token string) (Client, error)
}

type factory struct {
	endpoint string
	timeout  time.Duration

	mu      sync.Mutex
	clients map[string]Client
}

// NewFactory creates a client factory. endpoint may be empty to use the
// public Bot API.
func NewFactory(endpoint string, timeout time.Duration) Factory {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &factory{
		endpoint: endpoint,
		timeout:  timeout,
		clients:  make(map[string]Client),
	}
}

func (f *factory) ClientFor(token string) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[token]; ok {
		return c, nil
	}

	httpClient := &http.Client{Timeout: f.timeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, f.endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}

	c := NewClient(bot)
	f.clients[token] = c
	return c, nil
}
