// Package halo is a thin client for the HaloPSA REST API: OAuth2
// client-credentials authentication plus the two reads this service needs,
// clients and tickets.
package halo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"qbr-generator-go/internal/logger"
	"qbr-generator-go/internal/types"
)

// Config holds connection settings. Credentials are used for the session
// only and never persisted anywhere.
type Config struct {
	Host         string
	ClientID     string
	ClientSecret string
	Scope        string
}

// ConfigFromEnv reads HALO_HOST, CLIENT_ID, CLIENT_SECRET and HALO_SCOPE
// (default "all").
func ConfigFromEnv() Config {
	scope := os.Getenv("HALO_SCOPE")
	if scope == "" {
		scope = "all"
	}
	return Config{
		Host:         strings.TrimRight(os.Getenv("HALO_HOST"), "/"),
		ClientID:     os.Getenv("CLIENT_ID"),
		ClientSecret: os.Getenv("CLIENT_SECRET"),
		Scope:        scope,
	}
}

// Configured reports whether enough settings exist to attempt a connection.
func (c Config) Configured() bool {
	return c.Host != "" && c.ClientID != "" && c.ClientSecret != ""
}

type Client struct {
	cfg   Config
	http  *http.Client
	token string
}

func New(cfg Config) *Client {
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Authenticate exchanges the client id/secret for an access token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	log := logger.Component("halo")

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("scope", c.cfg.Scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+"/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Error("authentication request failed")
		return "", fmt.Errorf("authenticate: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		log.WithField("http_status", resp.StatusCode).Error("authentication rejected")
		return "", fmt.Errorf("authenticate: status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("authenticate: decode response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("authenticate: no token returned")
	}
	c.token = parsed.AccessToken
	log.Info("authenticated with HaloPSA")
	return c.token, nil
}

// GetClients fetches the customer list. Halo wraps the array in a
// {"clients": [...]} envelope on most versions; both forms are accepted.
func (c *Client) GetClients(ctx context.Context) ([]types.Client, error) {
	body, err := c.get(ctx, "Client", nil)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Clients []types.Client `json:"clients"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Clients) > 0 {
		return wrapped.Clients, nil
	}
	var bare []types.Client
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	return nil, fmt.Errorf("get clients: unexpected response shape")
}

// GetTickets fetches tickets for one client over a date range, newest
// first. An absent or empty result is returned as an empty slice, not an
// error; the metrics engine treats both identically.
func (c *Client) GetTickets(ctx context.Context, clientID int, startDate, endDate string, pageSize int) ([]types.Ticket, error) {
	params := url.Values{}
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("order", "id desc")
	params.Set("client_id", strconv.Itoa(clientID))
	if startDate != "" {
		params.Set("startdate", startDate)
	}
	if endDate != "" {
		params.Set("enddate", endDate)
	}

	body, err := c.get(ctx, "Tickets", params)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Tickets []types.Ticket `json:"tickets"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Tickets != nil {
		return wrapped.Tickets, nil
	}
	var bare []types.Ticket
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	return nil, fmt.Errorf("get tickets: unexpected response shape")
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	log := logger.Component("halo").WithField("endpoint", endpoint)

	if c.token == "" {
		if _, err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	u := fmt.Sprintf("%s/api/%s", c.cfg.Host, endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Error("request failed")
		return nil, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		log.WithField("http_status", resp.StatusCode).Error("request rejected")
		return nil, fmt.Errorf("get %s: status %d: %s", endpoint, resp.StatusCode, body)
	}
	return body, nil
}
