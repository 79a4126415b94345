// Package client is the typed HTTP client for the flightbooking REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Temporary reports whether retrying the same call may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

var ErrNoSearchID = errors.New("response carried no search id")

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Token is the bearer token attached to requests. Empty means anonymous.
func (c *Client) Token() string {
	return c.token
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

func (c *Client) StartSearch(ctx context.Context, req models.SearchRequest) (string, error) {
	var resp models.StartSearchResponse
	if err := c.do(ctx, http.MethodPost, "/flights/search", models.NewSearchBody(req), &resp); err != nil {
		return "", err
	}
	if resp.Success != nil && !*resp.Success {
		return "", &APIError{StatusCode: http.StatusOK, Code: "search_rejected", Message: resp.Message}
	}
	if resp.SearchID == "" {
		return "", ErrNoSearchID
	}
	return resp.SearchID, nil
}

func (c *Client) Results(ctx context.Context, searchID string) (models.ResultsPage, error) {
	var page models.ResultsPage
	err := c.do(ctx, http.MethodGet, "/flights/search/"+url.PathEscape(searchID)+"/results", nil, &page)
	return page, err
}

func (c *Client) ListCart(ctx context.Context) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *Client) AddCart(ctx context.Context, req models.AddCartRequest) (models.CartLine, error) {
	var line models.CartLine
	err := c.do(ctx, http.MethodPost, "/cart", req, &line)
	return line, err
}

func (c *Client) UpdateCart(ctx context.Context, id string, req models.UpdateCartRequest) (models.CartLine, error) {
	var line models.CartLine
	err := c.do(ctx, http.MethodPatch, "/cart/"+url.PathEscape(id), req, &line)
	return line, err
}

func (c *Client) DeleteCart(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(id), nil, nil)
}

// Checkout converts pending lines into a booking. Authenticated callers send
// no lines; anonymous callers send the lines held in local storage.
func (c *Client) Checkout(ctx context.Context, req models.CheckoutRequest) (models.Booking, error) {
	var booking models.Booking
	err := c.do(ctx, http.MethodPost, "/cart/checkout", req, &booking)
	return booking, err
}

func (c *Client) Booking(ctx context.Context, id string) (models.Booking, error) {
	var booking models.Booking
	err := c.do(ctx, http.MethodGet, "/bookings/"+url.PathEscape(id), nil, &booking)
	return booking, err
}

func (c *Client) Confirmation(ctx context.Context, id string) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/bookings/"+url.PathEscape(id)+"/confirmation", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	return string(body), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// send issues the request and returns the response only for 2xx statuses.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			apiErr.Code = errResp.Error
			apiErr.Message = errResp.Message
		}
		return nil, apiErr
	}
	return resp, nil
}
