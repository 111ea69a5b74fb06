package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is an HTTP Reader over the ledger service's transaction endpoint.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient builds a ledger client against baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *Client) GetTransaction(ctx context.Context, externalID string) (Transaction, error) {
	url := fmt.Sprintf("%s/v1/transaction/%s", c.baseURL, externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Transaction{}, fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Transaction{}, fmt.Errorf("ledger request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Transaction{}, ErrNotFound
	default:
		return Transaction{}, fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}

	var tx Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return Transaction{}, fmt.Errorf("decode ledger response: %w", err)
	}
	return tx, nil
}
