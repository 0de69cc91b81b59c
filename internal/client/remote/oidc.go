package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/pingate/internal/client/models"
	"github.com/dmitrijs2005/pingate/internal/netx"
)

// DeviceCodeNotifier shows the verification URL and user code to the user.
type DeviceCodeNotifier func(resp *oauth2.DeviceAuthResponse)

// OIDCConfig configures an OIDCClient.
type OIDCConfig struct {
	Issuer   string
	ClientID string
	Audience string
	Scopes   []string
}

// discovery is the subset of provider metadata the client uses.
type discovery struct {
	endpoint           oauth2.Endpoint
	revocationEndpoint string
}

// OIDCClient logs in with the OAuth 2.0 device authorization grant
// (RFC 8628), which suits terminals without an embedded browser, and ends
// sessions through token revocation (RFC 7009).
type OIDCClient struct {
	cfg        OIDCConfig
	httpClient *http.Client
	notify     DeviceCodeNotifier

	mu       sync.Mutex
	provider *discovery
}

func NewOIDCClient(cfg OIDCConfig, notify DeviceCodeNotifier, httpClient *http.Client) *OIDCClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if notify == nil {
		notify = func(*oauth2.DeviceAuthResponse) {}
	}
	return &OIDCClient{cfg: cfg, httpClient: httpClient, notify: notify}
}

func (c *OIDCClient) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// discover fetches and caches the provider metadata. Failures are not cached.
func (c *OIDCClient) discover(ctx context.Context) (*discovery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.provider != nil {
		return c.provider, nil
	}

	p, err := oidc.NewProvider(oidc.ClientContext(ctx, c.httpClient), c.cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", mapError(err))
	}

	var extra struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := p.Claims(&extra); err != nil {
		return nil, fmt.Errorf("%w: discovery document: %v", ErrProtocol, err)
	}

	d := &discovery{endpoint: p.Endpoint(), revocationEndpoint: extra.RevocationEndpoint}
	if d.endpoint.DeviceAuthURL == "" || d.endpoint.TokenURL == "" {
		return nil, fmt.Errorf("%w: provider does not support the device flow", ErrProtocol)
	}
	d.endpoint.AuthStyle = oauth2.AuthStyleInParams

	c.provider = d
	return c.provider, nil
}

func (c *OIDCClient) oauthConfig(d *discovery) *oauth2.Config {
	return &oauth2.Config{
		ClientID: c.cfg.ClientID,
		Scopes:   c.cfg.Scopes,
		Endpoint: d.endpoint,
	}
}

func (c *OIDCClient) InteractiveLogin(ctx context.Context) (models.Credentials, error) {
	d, err := c.discover(ctx)
	if err != nil {
		return models.Credentials{}, err
	}

	ctx = c.withHTTPClient(ctx)
	oc := c.oauthConfig(d)

	var opts []oauth2.AuthCodeOption
	if c.cfg.Audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", c.cfg.Audience))
	}

	da, err := oc.DeviceAuth(ctx, opts...)
	if err != nil {
		return models.Credentials{}, mapError(err)
	}
	c.notify(da)

	tok, err := oc.DeviceAccessToken(ctx, da)
	if err != nil {
		return models.Credentials{}, mapError(err)
	}

	creds := fromToken(tok, "")
	if creds.IDToken == "" {
		return models.Credentials{}, fmt.Errorf("%w: no id_token in token response (is the openid scope requested?)", ErrProtocol)
	}
	return creds, nil
}

func (c *OIDCClient) Refresh(ctx context.Context, creds models.Credentials) (models.Credentials, error) {
	if !creds.CanRefresh() {
		return models.Credentials{}, ErrUnauthorized
	}

	d, err := c.discover(ctx)
	if err != nil {
		return models.Credentials{}, err
	}

	ctx = c.withHTTPClient(ctx)
	src := c.oauthConfig(d).TokenSource(ctx, &oauth2.Token{
		RefreshToken: creds.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})

	tok, err := src.Token()
	if err != nil {
		return models.Credentials{}, mapError(err)
	}

	refreshed := fromToken(tok, creds.IDToken)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = creds.RefreshToken
	}
	return refreshed, nil
}

func (c *OIDCClient) ClearSession(ctx context.Context, creds models.Credentials) error {
	d, err := c.discover(ctx)
	if err != nil {
		return err
	}
	if d.revocationEndpoint == "" {
		return nil
	}

	token, hint := creds.RefreshToken, "refresh_token"
	if token == "" {
		token, hint = creds.AccessToken, "access_token"
	}
	if token == "" {
		return nil
	}

	form := url.Values{
		"client_id":       {c.cfg.ClientID},
		"token":           {token},
		"token_type_hint": {hint},
	}
	resp, err := netx.PostForm(ctx, c.httpClient, d.revocationEndpoint, form)
	if err != nil {
		return mapError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: revocation %v", ErrUnauthorized, netx.StatusError(resp))
	default:
		return fmt.Errorf("%w: revocation %v", ErrUnavailable, netx.StatusError(resp))
	}
}

func fromToken(tok *oauth2.Token, fallbackIDToken string) models.Credentials {
	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		idToken = fallbackIDToken
	}
	return models.Credentials{
		AccessToken:  tok.AccessToken,
		IDToken:      idToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry.UTC(),
	}
}

// mapError converts transport and OAuth errors into this package's sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrCanceled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		switch re.ErrorCode {
		case "access_denied":
			return fmt.Errorf("%w: %s", ErrCanceled, re.ErrorCode)
		case "expired_token":
			return fmt.Errorf("%w: %s", ErrTimeout, re.ErrorCode)
		case "invalid_grant", "invalid_client", "unauthorized_client":
			return fmt.Errorf("%w: %s", ErrUnauthorized, re.ErrorCode)
		}
		if re.Response != nil && re.Response.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s", ErrUnavailable, re.Response.Status)
		}
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
