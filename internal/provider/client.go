// Package provider talks to the external banking-data aggregator. The
// Client interface is the narrow surface the sync pipeline depends on;
// token refresh and consent-flow UI are outside it.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable marks any upstream failure: transport errors, non-2xx
// responses and undecodable payloads. Callers abort the sync cycle when
// they see it.
var ErrUnavailable = errors.New("banking provider unavailable")

// Client is the banking provider collaborator.
type Client interface {
	Name() string
	ExchangeAuthCode(ctx context.Context, code string) (string, error)
	FetchAccounts(ctx context.Context, accessToken string) (*AccountsPayload, error)
	FetchTransactions(ctx context.Context, accessToken string) (*TransactionsPayload, error)
	ConsentURL(redirectURI, state string) string
}

// TinkClient implements Client against the Tink v1 API.
type TinkClient struct {
	BaseURL      string
	LinkURL      string
	ClientID     string
	ClientSecret string
	Market       string
	HTTPClient   *http.Client
}

// NewTinkClient creates a Tink client with production endpoints and a
// bounded request timeout.
func NewTinkClient(clientID, clientSecret, market string) *TinkClient {
	return &TinkClient{
		BaseURL:      "https://api.tink.com",
		LinkURL:      "https://link.tink.com",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Market:       market,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *TinkClient) Name() string { return "tink" }

// ExchangeAuthCode trades a consent-flow authorization code for an
// access token.
func (c *TinkClient) ExchangeAuthCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"code":          {code},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: token exchange returned %d", ErrUnavailable, resp.StatusCode)
	}

	var tokenData struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenData); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrUnavailable, err)
	}
	if tokenData.AccessToken == "" {
		return "", fmt.Errorf("%w: token response missing access_token", ErrUnavailable)
	}
	return tokenData.AccessToken, nil
}

// FetchAccounts retrieves the raw account list.
func (c *TinkClient) FetchAccounts(ctx context.Context, accessToken string) (*AccountsPayload, error) {
	body, err := c.get(ctx, "/api/v1/accounts/list", accessToken)
	if err != nil {
		return nil, err
	}
	var payload AccountsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode accounts payload: %v", ErrUnavailable, err)
	}
	return &payload, nil
}

// FetchTransactions retrieves the raw transaction list.
func (c *TinkClient) FetchTransactions(ctx context.Context, accessToken string) (*TransactionsPayload, error) {
	body, err := c.get(ctx, "/api/v1/search", accessToken)
	if err != nil {
		return nil, err
	}
	var payload TransactionsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode transactions payload: %v", ErrUnavailable, err)
	}
	return &payload, nil
}

// ConsentURL builds the hosted consent-flow link. The state parameter
// carries the user id so the callback can recover it.
func (c *TinkClient) ConsentURL(redirectURI, state string) string {
	q := url.Values{
		"client_id":     {c.ClientID},
		"redirect_uri":  {redirectURI},
		"scope":         {"accounts:read,balances:read,transactions:read"},
		"market":        {c.Market},
		"state":         {state},
		"response_type": {"code"},
	}
	return c.LinkURL + "/1.0/authorize?" + q.Encode()
}

func (c *TinkClient) get(ctx context.Context, path, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnavailable, path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
