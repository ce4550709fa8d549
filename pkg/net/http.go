package net

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GetJSON retrieves the URL with the given client and decodes the JSON
// response into target. A nil client falls back to the shared client.
func GetJSON[T any](ctx context.Context, client *http.Client, url string, target *T) error {
	if client == nil {
		c, err := GetHTTPClient()
		if err != nil {
			return fmt.Errorf("error creating HTTP client: %w", err)
		}
		client = c
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("error creating HTTP Get request: %w", err)
	}
	req.Header.Set("User-Agent", clientAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error executing HTTP Get request: %w", err)
	}
	defer resp.Body.Close()

	PrintHTTPResponse(resp)

	if resp.StatusCode != http.StatusOK {
		body := ""
		if b, readErr := io.ReadAll(resp.Body); readErr == nil {
			body = string(b)
		}
		return fmt.Errorf("unexpected response status: %s - %s - %s", resp.Status, url, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("error decoding content: %w", err)
	}
	return nil
}
