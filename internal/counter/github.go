package counter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// StatusError is returned when the metrics endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("metrics endpoint status %d: %s", e.StatusCode, e.Body)
}

// GitHubClient reads a repository's star count.
type GitHubClient struct {
	baseURL    string
	repo       string // owner/name
	httpClient *http.Client
}

func NewGitHubClient(baseURL, repo string, timeout time.Duration) *GitHubClient {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GitHubClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		repo:    strings.Trim(repo, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type repoResponse struct {
	StargazersCount *int `json:"stargazers_count"`
}

// FetchCount returns the current stargazer count.
func (c *GitHubClient) FetchCount(ctx context.Context) (int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/repos/"+c.repo, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("fetch repo %s: %w", c.repo, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var body repoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode repo: %w", err)
	}
	if body.StargazersCount == nil {
		return 0, fmt.Errorf("decode repo: stargazers_count missing")
	}
	return *body.StargazersCount, nil
}

// Close releases idle connections.
func (c *GitHubClient) Close() {
	c.httpClient.CloseIdleConnections()
}
