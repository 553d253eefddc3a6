// Package coinbase implements the primary feed adapter: a websocket
// market-data connection plus a JWT-authenticated REST client against
// Coinbase's Advanced Trade API.
package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/coinbase-dtc/bridge/auth"
)

const (
	restBaseURL  = "https://api.coinbase.com"
	restTimeout  = 10 * time.Second
	maxAttempts  = 3
	baseBackoffMS = 1000
)

// RESTErrorKind classifies a failed REST call per the retry policy: auth
// failures and parse errors never retry, rate limits and transient
// errors retry with exponential backoff up to maxAttempts.
type RESTErrorKind string

const (
	RESTErrorAuthFailed    RESTErrorKind = "auth_failed"
	RESTErrorRateLimited   RESTErrorKind = "rate_limited"
	RESTErrorTransient     RESTErrorKind = "transient"
	RESTErrorParse         RESTErrorKind = "parse_error"
)

// RESTError is returned by RESTClient calls that fail.
type RESTError struct {
	Kind    RESTErrorKind
	Message string
}

func (e *RESTError) Error() string {
	return fmt.Sprintf("coinbase rest: %s: %s", e.Kind, e.Message)
}

// Product is the subset of Coinbase's product listing this bridge needs
// to seed security definitions and symbol search.
type Product struct {
	ProductID      string `json:"product_id"`
	BaseName       string `json:"base_name"`
	QuoteName      string `json:"quote_name"`
	BaseCurrency   string `json:"base_currency_id"`
	QuoteCurrency  string `json:"quote_currency_id"`
	QuoteIncrement string `json:"quote_increment"`
	BaseIncrement  string `json:"base_increment"`
	Status         string `json:"status"`
}

type productsResponse struct {
	Products []Product `json:"products"`
}

// Balance is an amount denominated in a single currency, as Coinbase
// reports it on an Account.
type Balance struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Account is one brokerage account visible to the authenticated CDP
// credentials.
type Account struct {
	UUID             string  `json:"uuid"`
	Name             string  `json:"name"`
	Currency         string  `json:"currency"`
	AvailableBalance Balance `json:"available_balance"`
	Default          bool    `json:"default"`
	Active           bool    `json:"active"`
	Type             string  `json:"type"`
	Ready            bool    `json:"ready"`
	Hold             Balance `json:"hold"`
}

type accountsResponse struct {
	Accounts []Account `json:"accounts"`
	HasNext  bool      `json:"has_next"`
	Cursor   string    `json:"cursor"`
	Size     int       `json:"size"`
}

// Portfolio is one Advanced Trade portfolio owned by the authenticated
// CDP credentials.
type Portfolio struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type portfoliosResponse struct {
	Portfolios []Portfolio `json:"portfolios"`
}

type portfolioResponse struct {
	Portfolio Portfolio `json:"portfolio"`
}

// RESTClient is a JWT-authenticated client for Coinbase's Advanced Trade
// REST API.
type RESTClient struct {
	httpClient *http.Client
	authn      *auth.JWTAuthenticator
	baseURL    string
}

// NewRESTClient builds a REST client signing every request with authn.
// authn may be nil, in which case calls are made unauthenticated
// (sufficient for public endpoints like product listing).
func NewRESTClient(authn *auth.JWTAuthenticator) *RESTClient {
	return &RESTClient{
		httpClient: &http.Client{Timeout: restTimeout},
		authn:      authn,
		baseURL:    restBaseURL,
	}
}

// ListProducts fetches the full tradable product catalog. This is a
// public endpoint: it succeeds even when the client was built with a nil
// authenticator.
func (c *RESTClient) ListProducts(ctx context.Context) ([]Product, error) {
	var out productsResponse
	if err := c.getJSON(ctx, "/api/v3/brokerage/market/products", false, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// ListAccounts fetches every brokerage account visible to the
// authenticated CDP credentials. Requires an authenticator; with none
// configured this returns RESTErrorAuthFailed without making a request.
func (c *RESTClient) ListAccounts(ctx context.Context) ([]Account, error) {
	var out accountsResponse
	if err := c.getJSON(ctx, "/api/v3/brokerage/accounts", true, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// ListPortfolios fetches every portfolio owned by the authenticated CDP
// credentials.
func (c *RESTClient) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	var out portfoliosResponse
	if err := c.getJSON(ctx, "/api/v3/brokerage/portfolios", true, &out); err != nil {
		return nil, err
	}
	return out.Portfolios, nil
}

// CreatePortfolio creates a new Advanced Trade portfolio named name.
// Unlike the read endpoints this mutates account state, so callers must
// invoke it deliberately rather than as part of startup discovery.
func (c *RESTClient) CreatePortfolio(ctx context.Context, name string) (Portfolio, error) {
	var out portfolioResponse
	if err := c.postJSON(ctx, "/api/v3/brokerage/portfolios", map[string]string{"name": name}, true, &out); err != nil {
		return Portfolio{}, err
	}
	return out.Portfolio, nil
}

func (c *RESTClient) getJSON(ctx context.Context, path string, requireAuth bool, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, requireAuth, out)
}

func (c *RESTClient) postJSON(ctx context.Context, path string, body interface{}, requireAuth bool, out interface{}) error {
	var buf []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &RESTError{Kind: RESTErrorParse, Message: err.Error()}
		}
		buf = b
	}
	return c.doJSON(ctx, http.MethodPost, path, buf, requireAuth, out)
}

func (c *RESTClient) doJSON(ctx context.Context, method, path string, body []byte, requireAuth bool, out interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		respBody, restErr := c.doRequest(ctx, method, path, body, requireAuth)
		if restErr == nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return &RESTError{Kind: RESTErrorParse, Message: err.Error()}
			}
			return nil
		}
		lastErr = restErr
		if restErr.Kind == RESTErrorAuthFailed || restErr.Kind == RESTErrorParse {
			return restErr
		}
		if attempt < maxAttempts {
			delay := time.Duration(baseBackoffMS*(1<<uint(attempt-1))) * time.Millisecond
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return lastErr
}

func (c *RESTClient) doRequest(ctx context.Context, method, path string, body []byte, requireAuth bool) ([]byte, *RESTError) {
	if requireAuth && c.authn == nil {
		return nil, &RESTError{Kind: RESTErrorAuthFailed, Message: "endpoint requires CDP credentials, none configured"}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &RESTError{Kind: RESTErrorTransient, Message: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.authn != nil {
		token, err := c.authn.CurrentToken(method, path)
		if err != nil {
			return nil, &RESTError{Kind: RESTErrorAuthFailed, Message: err.Error()}
		}
		req.Header.Set("Authorization", auth.AuthorizationHeader(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RESTError{Kind: RESTErrorTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RESTError{Kind: RESTErrorTransient, Message: err.Error()}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &RESTError{Kind: RESTErrorAuthFailed, Message: string(body)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RESTError{Kind: RESTErrorRateLimited, Message: string(body)}
	case resp.StatusCode >= 500:
		return nil, &RESTError{Kind: RESTErrorTransient, Message: string(body)}
	default:
		return nil, &RESTError{Kind: RESTErrorTransient, Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, body)}
	}
}
