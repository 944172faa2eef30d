package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ClassifierChecker implements health checking for the object detection service.
type ClassifierChecker struct {
	url    string
	client *http.Client
}

// NewClassifierChecker creates a new classifier health checker.
// The url should be the base URL of the detection service (e.g., "https://detect.example.com").
func NewClassifierChecker(url string) *ClassifierChecker {
	return &ClassifierChecker{
		url: url,
		client: &http.Client{
			Timeout: 3 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
		},
	}
}

// HealthCheck performs a health check on the detection service by making an
// HTTP request. The service has no dedicated health endpoint, so reachability
// of the base URL stands in for one.
func (c *ClassifierChecker) HealthCheck(ctx context.Context) error {
	if c.url == "" {
		return fmt.Errorf("classifier url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach classifier: %w", err)
	}
	defer resp.Body.Close()

	// Consider the service healthy only for successful (2xx) responses.
	// Non-2xx status codes likely indicate the service is unavailable or misconfigured.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("classifier unhealthy: unexpected status code %d", resp.StatusCode)
	}

	return nil
}
