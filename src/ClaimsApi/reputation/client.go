// Package reputation talks to the external identity-scoring provider. The
// score feeds the anti-bot rule: established identities skip the streak
// requirement.
package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type scoreResponse struct {
	Users []struct {
		SocialID uint64  `json:"socialId"`
		Score    float64 `json:"score"`
	} `json:"users"`
}

func NewClient(apiKey string, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Score fetches the provider's 0..1 quality score for one social identity.
func (c *Client) Score(ctx context.Context, socialID uint64) (float64, error) {
	url := fmt.Sprintf("%s/users/score?ids=%d", c.baseURL, socialID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("reputation provider status %d", resp.StatusCode)
	}

	var result scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}
	for _, u := range result.Users {
		if u.SocialID == socialID {
			return u.Score, nil
		}
	}
	return 0, fmt.Errorf("no score for social id %d", socialID)
}
