package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/pingate/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const discoveryPath = "/.well-known/openid-configuration"

// fakeProvider is a minimal OIDC provider supporting discovery, the device
// flow, refresh and revocation.
type fakeProvider struct {
	srv *httptest.Server

	mu             sync.Mutex
	discoveryHits  int
	discoveryCode  int
	omitRevocation bool
	deviceStatus   int
	tokenStatus    int
	tokenBody      map[string]any
	revokeStatus   int
	revoked        url.Values
	lastGrant      string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		discoveryCode: http.StatusOK,
		deviceStatus:  http.StatusOK,
		tokenStatus:   http.StatusOK,
		revokeStatus:  http.StatusOK,
		tokenBody: map[string]any{
			"access_token":  "at-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "rt-1",
			"id_token":      "id-1",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(discoveryPath, p.handleDiscovery)
	mux.HandleFunc("/oauth/device/code", p.handleDevice)
	mux.HandleFunc("/oauth/token", p.handleToken)
	mux.HandleFunc("/oauth/revoke", p.handleRevoke)

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (p *fakeProvider) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discoveryHits++

	doc := map[string]string{
		"issuer":                        p.srv.URL,
		"device_authorization_endpoint": p.srv.URL + "/oauth/device/code",
		"token_endpoint":                p.srv.URL + "/oauth/token",
	}
	if !p.omitRevocation {
		doc["revocation_endpoint"] = p.srv.URL + "/oauth/revoke"
	}
	writeJSON(w, p.discoveryCode, doc)
}

func (p *fakeProvider) handleDevice(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	writeJSON(w, p.deviceStatus, map[string]any{
		"device_code":      "dc-1",
		"user_code":        "ABCD-EFGH",
		"verification_uri": p.srv.URL + "/activate",
		"expires_in":       300,
		"interval":         1,
	})
}

func (p *fakeProvider) handleToken(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastGrant = r.PostForm.Get("grant_type")
	writeJSON(w, p.tokenStatus, p.tokenBody)
}

func (p *fakeProvider) handleRevoke(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = r.PostForm
	w.WriteHeader(p.revokeStatus)
}

func (p *fakeProvider) client(notify DeviceCodeNotifier) *OIDCClient {
	return NewOIDCClient(OIDCConfig{
		Issuer:   p.srv.URL,
		ClientID: "cli",
		Scopes:   []string{"openid", "profile", "email", "offline_access"},
	}, notify, p.srv.Client())
}

func TestInteractiveLogin_Success(t *testing.T) {
	p := newFakeProvider(t)

	var shown *oauth2.DeviceAuthResponse
	c := p.client(func(r *oauth2.DeviceAuthResponse) { shown = r })

	creds, err := c.InteractiveLogin(context.Background())
	require.NoError(t, err)

	require.NotNil(t, shown)
	assert.Equal(t, "ABCD-EFGH", shown.UserCode)
	assert.Equal(t, "at-1", creds.AccessToken)
	assert.Equal(t, "id-1", creds.IDToken)
	assert.Equal(t, "rt-1", creds.RefreshToken)
	assert.Equal(t, "Bearer", creds.TokenType)
	assert.True(t, creds.Valid(time.Now(), 0))
	assert.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", p.lastGrant)
}

func TestInteractiveLogin_AccessDeniedIsCanceled(t *testing.T) {
	p := newFakeProvider(t)
	p.tokenStatus = http.StatusBadRequest
	p.tokenBody = map[string]any{"error": "access_denied"}

	_, err := p.client(nil).InteractiveLogin(context.Background())
	require.ErrorIs(t, err, ErrCanceled)
}

func TestInteractiveLogin_ContextCancelIsCanceled(t *testing.T) {
	p := newFakeProvider(t)
	p.tokenStatus = http.StatusBadRequest
	p.tokenBody = map[string]any{"error": "authorization_pending"}

	ctx, cancel := context.WithCancel(context.Background())
	c := p.client(func(*oauth2.DeviceAuthResponse) {
		time.AfterFunc(100*time.Millisecond, cancel)
	})

	_, err := c.InteractiveLogin(ctx)
	require.ErrorIs(t, err, ErrCanceled)
}

func TestInteractiveLogin_DeadlineIsTimeout(t *testing.T) {
	p := newFakeProvider(t)
	p.tokenStatus = http.StatusBadRequest
	p.tokenBody = map[string]any{"error": "authorization_pending"}

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	_, err := p.client(nil).InteractiveLogin(ctx)
	require.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrCanceled)
}

func TestInteractiveLogin_ExpiredDeviceCodeIsTimeout(t *testing.T) {
	p := newFakeProvider(t)
	p.tokenStatus = http.StatusBadRequest
	p.tokenBody = map[string]any{"error": "expired_token"}

	_, err := p.client(nil).InteractiveLogin(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
}

func TestInteractiveLogin_IssuerMismatch(t *testing.T) {
	p := newFakeProvider(t)
	c := NewOIDCClient(OIDCConfig{Issuer: p.srv.URL + "/", ClientID: "cli"}, nil, p.srv.Client())

	_, err := c.InteractiveLogin(context.Background())
	require.Error(t, err)
}

func TestInteractiveLogin_MissingIDToken(t *testing.T) {
	p := newFakeProvider(t)
	delete(p.tokenBody, "id_token")

	_, err := p.client(nil).InteractiveLogin(context.Background())
	require.ErrorIs(t, err, ErrProtocol)
}

func TestInteractiveLogin_DiscoveryFailure(t *testing.T) {
	p := newFakeProvider(t)
	p.discoveryCode = http.StatusServiceUnavailable

	_, err := p.client(nil).InteractiveLogin(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestInteractiveLogin_ProviderDown(t *testing.T) {
	p := newFakeProvider(t)
	c := p.client(nil)
	p.srv.Close()

	_, err := c.InteractiveLogin(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDiscovery_IsCached(t *testing.T) {
	p := newFakeProvider(t)
	c := p.client(nil)

	require.NoError(t, c.ClearSession(context.Background(), models.Credentials{AccessToken: "a"}))
	require.NoError(t, c.ClearSession(context.Background(), models.Credentials{AccessToken: "a"}))

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, 1, p.discoveryHits)
}

func TestRefresh_KeepsIDTokenAndRotatesRefreshToken(t *testing.T) {
	p := newFakeProvider(t)
	p.tokenBody = map[string]any{
		"access_token": "at-2",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}

	old := models.Credentials{AccessToken: "at-1", IDToken: "id-1", RefreshToken: "rt-1", Expiry: time.Now().Add(-time.Hour)}

	got, err := p.client(nil).Refresh(context.Background(), old)
	require.NoError(t, err)
	assert.Equal(t, "at-2", got.AccessToken)
	assert.Equal(t, "id-1", got.IDToken)
	assert.Equal(t, "rt-1", got.RefreshToken)
	assert.Equal(t, "refresh_token", p.lastGrant)
}

func TestRefresh_WithoutRefreshToken(t *testing.T) {
	p := newFakeProvider(t)

	_, err := p.client(nil).Refresh(context.Background(), models.Credentials{AccessToken: "a"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefresh_InvalidGrant(t *testing.T) {
	p := newFakeProvider(t)
	p.tokenStatus = http.StatusBadRequest
	p.tokenBody = map[string]any{"error": "invalid_grant"}

	_, err := p.client(nil).Refresh(context.Background(), models.Credentials{RefreshToken: "rt"})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestClearSession_RevokesRefreshToken(t *testing.T) {
	p := newFakeProvider(t)

	err := p.client(nil).ClearSession(context.Background(), models.Credentials{AccessToken: "at", RefreshToken: "rt"})
	require.NoError(t, err)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, "rt", p.revoked.Get("token"))
	assert.Equal(t, "refresh_token", p.revoked.Get("token_type_hint"))
	assert.Equal(t, "cli", p.revoked.Get("client_id"))
}

func TestClearSession_Failures(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusServiceUnavailable, want: ErrUnavailable},
		{status: http.StatusUnauthorized, want: ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newFakeProvider(t)
			p.revokeStatus = tt.status

			err := p.client(nil).ClearSession(context.Background(), models.Credentials{AccessToken: "at"})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClearSession_NoRevocationEndpoint(t *testing.T) {
	p := newFakeProvider(t)
	p.omitRevocation = true

	require.NoError(t, p.client(nil).ClearSession(context.Background(), models.Credentials{AccessToken: "at"}))
	assert.Nil(t, p.revoked)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "canceled", in: context.Canceled, want: ErrCanceled},
		{name: "deadline", in: context.DeadlineExceeded, want: ErrTimeout},
		{name: "denied", in: &oauth2.RetrieveError{ErrorCode: "access_denied"}, want: ErrCanceled},
		{name: "expired", in: &oauth2.RetrieveError{ErrorCode: "expired_token"}, want: ErrTimeout},
		{name: "invalid grant", in: &oauth2.RetrieveError{ErrorCode: "invalid_grant"}, want: ErrUnauthorized},
		{name: "server error", in: &oauth2.RetrieveError{Response: &http.Response{StatusCode: 502, Status: "502 Bad Gateway"}}, want: ErrUnavailable},
		{name: "odd oauth error", in: &oauth2.RetrieveError{ErrorCode: "weird", Response: &http.Response{StatusCode: 400}}, want: ErrProtocol},
		{name: "transport", in: errors.New("dial tcp: refused"), want: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, mapError(tt.in), tt.want)
		})
	}
	require.NoError(t, mapError(nil))
}
