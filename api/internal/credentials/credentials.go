package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	TokenURL = "https://login.microsoftonline.com/botframework.com/oauth2/v2.0/token"
	Scope    = "https://api.botframework.com/.default"
)

// ErrUnknownBot means the activity was addressed to a bot id that has no
// configured application credentials.
var ErrUnknownBot = errors.New("credentials: unknown bot id")

// App is the Microsoft app registration a bot identity authenticates with.
type App struct {
	AppID       string
	AppPassword string
}

// Credential authorizes outbound calls made on behalf of one bot.
type Credential struct {
	AppID  string
	tokens oauth2.TokenSource
}

// NewCredential returns a credential backed by the client-credentials flow.
// An empty AppID yields a credential that sends no Authorization header,
// which is what the local emulator expects.
func NewCredential(app App) *Credential {
	if app.AppID == "" {
		return &Credential{}
	}
	cfg := clientcredentials.Config{
		ClientID:     app.AppID,
		ClientSecret: app.AppPassword,
		TokenURL:     TokenURL,
		Scopes:       []string{Scope},
	}
	return &Credential{AppID: app.AppID, tokens: cfg.TokenSource(context.Background())}
}

// Authorize sets the bearer token on req.
func (c *Credential) Authorize(req *http.Request) error {
	if c == nil || c.tokens == nil {
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("bot token for %s: %w", c.AppID, err)
	}
	tok.SetAuthHeader(req)
	return nil
}

// Provider maps a bot identity to its credential. Credentials are built on
// first use and reused for every later turn addressed to the same bot.
type Provider struct {
	apps    map[string]App
	factory func(App) *Credential

	mu    sync.Mutex
	cache map[string]*Credential
}

func NewProvider(apps map[string]App) *Provider {
	return &Provider{
		apps:    apps,
		factory: NewCredential,
		cache:   make(map[string]*Credential),
	}
}

func (p *Provider) Get(botID string) (*Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.cache[botID]; ok {
		return c, nil
	}
	app, ok := p.apps[botID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBot, botID)
	}
	c := p.factory(app)
	p.cache[botID] = c
	return c, nil
}
