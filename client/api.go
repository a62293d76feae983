package client

import (
	realtime_models "RinkLink/models/realtime"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// APIClient talks to the RinkLink games API. It satisfies
// livestore.SnapshotFetcher, so a Store can fetch its snapshots through it
// directly.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken sets the bearer token attached to every request.
func (c *APIClient) SetToken(token string) {
	c.token = token
}

// FetchGames retrieves the full schedule snapshot of an owner.
func (c *APIClient) FetchGames(ctx context.Context, ownerID string) ([]realtime_models.GameRecord, error) {
	endpoint := fmt.Sprintf("%s/games?user=%s", c.baseURL, url.QueryEscape(ownerID))

	var games []realtime_models.GameRecord
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// AddGames persists a batch of new games. The response carries the same
// games with their server-assigned ids, in request order, ready for
// ReconcileIDs.
func (c *APIClient) AddGames(ctx context.Context, games []realtime_models.GameRecord) ([]realtime_models.GameRecord, error) {
	endpoint := c.baseURL + "/games/add-games"

	var confirmed []realtime_models.GameRecord
	if err := c.doJSON(ctx, http.MethodPost, endpoint, games, &confirmed); err != nil {
		return nil, err
	}
	return confirmed, nil
}

// UpdateGame persists changes to a single game.
func (c *APIClient) UpdateGame(ctx context.Context, id string, game realtime_models.GameRecord) error {
	endpoint := fmt.Sprintf("%s/games/%s", c.baseURL, url.PathEscape(id))
	return c.doJSON(ctx, http.MethodPut, endpoint, game, nil)
}

// DeleteGame removes a single game.
func (c *APIClient) DeleteGame(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/games/%s", c.baseURL, url.PathEscape(id))
	return c.doJSON(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *APIClient) doJSON(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed - %s %s, Status: %d, Body: %s",
			method, endpoint, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
