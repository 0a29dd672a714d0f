package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/intunesync/internal/adapters/driven/graph"
	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driven"
	"github.com/custodia-labs/intunesync/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.SessionProvider = (*Provider)(nil)

// SettingsReader supplies the current settings at acquire time.
type SettingsReader interface {
	Get() (*domain.AppSettings, error)
}

// Provider acquires Graph sessions from configured credentials.
// Client credentials are used when tenant, client ID and secret are all set;
// a static access token takes precedence when configured.
type Provider struct {
	settings  SettingsReader
	transport *http.Client
	userAgent string
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the base HTTP client used for token and API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.transport = c }
}

// WithUserAgent sets the User-Agent sent to Graph.
func WithUserAgent(ua string) Option {
	return func(p *Provider) { p.userAgent = ua }
}

// NewProvider creates a session provider.
func NewProvider(settings SettingsReader, opts ...Option) *Provider {
	p := &Provider{settings: settings}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire obtains a token, checks its roles, and returns a ready session.
func (p *Provider) Acquire(ctx context.Context) (driven.Session, error) {
	settings, err := p.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	g := settings.Graph

	// Token refreshes outlive the caller's context.
	tokenCtx := context.WithoutCancel(ctx)
	if p.transport != nil {
		tokenCtx = context.WithValue(tokenCtx, oauth2.HTTPClient, p.transport)
	}

	var source oauth2.TokenSource
	method := g.AuthMethod()
	switch method {
	case domain.AuthMethodStaticToken:
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: g.AccessToken, TokenType: "Bearer"})
	case domain.AuthMethodClientCredentials:
		cfg := &clientcredentials.Config{
			ClientID:     g.ClientID,
			ClientSecret: g.ClientSecret,
			TokenURL:     g.TokenURL(),
			Scopes:       []string{domain.DefaultGraphScope},
		}
		source = cfg.TokenSource(tokenCtx)
	default:
		return nil, domain.ErrAuthRequired
	}

	token, err := fetchToken(ctx, source)
	if err != nil {
		return nil, err
	}

	principal := g.ClientID
	var roles []string
	if claims, ok := ParseClaims(token.AccessToken); ok {
		if !claims.HasAnyRole(SyncRoles...) {
			return nil, fmt.Errorf("%w: token lacks %s", domain.ErrPermissionMissing, RolePrivilegedOperations)
		}
		if pr := claims.Principal(); pr != "" {
			principal = pr
		}
		roles = claims.Roles
	} else {
		logger.Debug("auth: opaque access token, skipping role check")
	}
	if principal == "" {
		principal = "static-token"
	}

	httpClient := oauth2.NewClient(tokenCtx, oauth2.ReuseTokenSource(token, source))
	httpClient.Timeout = graph.DefaultTimeout

	client, err := graph.NewClient(graph.Config{
		BaseURL:    g.BaseURL,
		HTTPClient: httpClient,
		UserAgent:  p.userAgent,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("auth: session acquired for %s (%s)", principal, method)
	return &session{
		client:    client,
		principal: principal,
		method:    method,
		roles:     roles,
	}, nil
}

// fetchToken retrieves the first token, honouring ctx while waiting.
func fetchToken(ctx context.Context, source oauth2.TokenSource) (*oauth2.Token, error) {
	type result struct {
		token *oauth2.Token
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		t, err := source.Token()
		ch <- result{t, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, domain.NewTransportError("acquire token", fmt.Errorf("%w: %v", domain.ErrAuthInvalid, r.err))
		}
		if r.token.AccessToken == "" {
			return nil, domain.NewTransportError("acquire token", fmt.Errorf("%w: empty access token", domain.ErrAuthInvalid))
		}
		return r.token, nil
	}
}
