package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Imellstorm/wptest/internal/auth"
	"github.com/Imellstorm/wptest/internal/bidding"
	"github.com/Imellstorm/wptest/internal/inventory"
	"github.com/Imellstorm/wptest/internal/settlement"
	"github.com/Imellstorm/wptest/internal/types"
)

// envelope mirrors the server's response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// httpClient talks to the REST API. Domain rejections come back as
// *types.Error so callers can tell them apart from transport failures.
type httpClient struct {
	baseURL string
	client  *http.Client

	mu      sync.RWMutex
	secrets map[string]string
	tokens  map[string]string
}

func newHTTPClient(baseURL string) *httpClient {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		secrets: map[string]string{},
		tokens:  map[string]string{},
	}
}

func marshalLines(lines []types.RequestedLine) ([]byte, error) {
	return json.Marshal(lines)
}

func (c *httpClient) do(ctx context.Context, method, path, actor string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	c.mu.RLock()
	token := c.tokens[actor]
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, err)
	}
	if !env.Success {
		if env.Error == nil {
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return &types.Error{Kind: types.ErrorKind(env.Error.Code), Message: env.Error.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// CreateParticipant registers name and keeps the secret it is issued
func (c *httpClient) CreateParticipant(ctx context.Context, name string) error {
	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return err
	}
	var participant types.Participant
	if err := c.do(ctx, http.MethodPost, "/api/v1/participants", "", body, &participant); err != nil {
		return err
	}

	c.mu.Lock()
	c.secrets[name] = participant.Secret
	c.mu.Unlock()
	return nil
}

// Authenticate fetches a token for name and uses it on that participant's
// later writes
func (c *httpClient) Authenticate(ctx context.Context, name string) error {
	c.mu.RLock()
	secret := c.secrets[name]
	c.mu.RUnlock()

	body, err := json.Marshal(auth.TokenRequest{Name: name, Secret: secret})
	if err != nil {
		return err
	}
	var token auth.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/token", "", body, &token); err != nil {
		return err
	}

	c.mu.Lock()
	c.tokens[name] = token.Token
	c.mu.Unlock()
	return nil
}

func (c *httpClient) Generate(ctx context.Context, name string) (*inventory.Inventory, error) {
	var inv inventory.Inventory
	if err := c.do(ctx, http.MethodPost, "/api/v1/participants/"+name+"/inventory", name, nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *httpClient) PlaceBid(ctx context.Context, name string, rawLines []byte) (*bidding.Bid, error) {
	var bid bidding.Bid
	if err := c.do(ctx, http.MethodPost, "/api/v1/participants/"+name+"/bid", name, rawLines, &bid); err != nil {
		return nil, err
	}
	return &bid, nil
}

func (c *httpClient) Settle(ctx context.Context, bidder, counterparty string, rawLines []byte) (*settlement.Result, error) {
	body, err := json.Marshal(settlement.TradeRequest{
		Bidder:       bidder,
		Counterparty: counterparty,
		Items:        rawLines,
	})
	if err != nil {
		return nil, err
	}
	var result settlement.Result
	if err := c.do(ctx, http.MethodPost, "/api/v1/trades", counterparty, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
