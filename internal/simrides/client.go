package simrides

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veloclub/segweek/pkg/logger"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// submitObservations posts every observation concurrently and tallies
// the match outcomes.
func submitObservations(ctx context.Context, config *Config, observations []Observation, stats *Stats) {
	logger.Get().Info(ctx, "submitting observations",
		logger.Int("count", len(observations)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/observations"

	var (
		submitted    int64
		qualified    int64
		notQualified int64
		failed       int64
	)

	obsChan := make(chan Observation, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for o := range obsChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				atomic.AddInt64(&submitted, 1)
				switch submitSingleObservation(ctx, client, url, o) {
				case "qualified":
					atomic.AddInt64(&qualified, 1)
				case "failed":
					atomic.AddInt64(&failed, 1)
				default:
					atomic.AddInt64(&notQualified, 1)
				}
			}
		}()
	}

	go func() {
		defer close(obsChan)
		for _, o := range observations {
			select {
			case <-ctx.Done():
				return
			case obsChan <- o:
			}
		}
	}()

	wg.Wait()

	stats.ObservationsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.Qualified = int(atomic.LoadInt64(&qualified))
	stats.NotQualified = int(atomic.LoadInt64(&notQualified))
	stats.Failed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "observation submission completed",
		logger.Int("qualified", stats.Qualified),
		logger.Int("notQualified", stats.NotQualified),
		logger.Int("failed", stats.Failed))
}

// submitSingleObservation posts one observation and classifies the
// response: the ack status on 200, "failed" otherwise.
func submitSingleObservation(ctx context.Context, client *HTTPClient, url string, o Observation) string {
	resp, err := client.Post(ctx, url, o)
	if err != nil {
		return "failed"
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return "failed"
	}

	var ack Ack
	if err := json.Unmarshal(body, &ack); err != nil {
		return "failed"
	}
	return ack.Status
}

// fetchLeaderboard retrieves the final standings for the target week.
func fetchLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/leaderboard?week=" + config.WeekID

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching leaderboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard request failed with status %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding leaderboard: %w", err)
	}

	stats.LeaderboardEntries = len(entries)
	return entries, nil
}
