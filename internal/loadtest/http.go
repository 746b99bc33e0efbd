package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitGuesses posts guesses concurrently using a worker pool. Outcomes
// keep the order of guesses; ones never sent are left out.
func submitGuesses(ctx context.Context, config *Config, guesses []Guess, stats *Stats) []Outcome {
	log.Printf("Submitting %d guesses with %d workers...", len(guesses), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/guess"

	outcomes := make([]Outcome, len(guesses))
	var (
		submitted atomic.Int64
		counts    sync.Map // label -> *atomic.Int64
		lastMu    sync.Mutex
		last      time.Time
	)
	count := func(label string) *atomic.Int64 {
		v, _ := counts.LoadOrStore(label, new(atomic.Int64))
		return v.(*atomic.Int64)
	}

	workers := max(1, config.Workers)
	indexChan := make(chan int, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexChan {
				if ctx.Err() != nil {
					return
				}
				out := submitSingleGuess(ctx, client, url, guesses[i])
				outcomes[i] = out
				submitted.Add(1)
				count(classify(out)).Add(1)

				lastMu.Lock()
				report := time.Since(last) >= ProgressInterval
				if report {
					last = time.Now()
				}
				lastMu.Unlock()
				if report && config.Verbose {
					log.Printf("Progress: %d/%d submitted (scored: %d, no flight: %d, failed: %d)",
						submitted.Load(), len(guesses),
						count(outcomeScored).Load(), count(outcomeNoFlight).Load(), count(outcomeFailed).Load())
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range guesses {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	stats.GuessesSubmitted = int(submitted.Load())
	stats.Scored = int(count(outcomeScored).Load())
	stats.PointsUnavail = int(count(outcomePointsUnavail).Load())
	stats.NoFlight = int(count(outcomeNoFlight).Load())
	stats.Rejected = int(count(outcomeRejected).Load())
	stats.Failed = int(count(outcomeFailed).Load())
	done := outcomes[:0]
	for _, out := range outcomes {
		if out.Code == 0 && out.Error == "" {
			continue
		}
		stats.TotalPoints += out.Points
		done = append(done, out)
	}

	log.Printf("Guess submission completed: scored %d, points unavailable %d, no flight %d, rejected %d, failed %d",
		stats.Scored, stats.PointsUnavail, stats.NoFlight, stats.Rejected, stats.Failed)
	return done
}

// submitSingleGuess posts one guess and records the answer.
func submitSingleGuess(ctx context.Context, client *HTTPClient, url string, g Guess) Outcome { //nolint:gocritic // guesses travel by value
	out := Outcome{Guess: g}
	resp, err := client.Post(ctx, url, g)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Code = resp.StatusCode

	body, err := readResponseBody(resp)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			out.Error = e.Message
		} else {
			out.Error = string(body)
		}
		return out
	}

	var gr guessResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		out.Error = fmt.Sprintf("failed to parse response: %v", err)
		out.Code = 0
		return out
	}
	out.Status = gr.Status
	out.Points = gr.Points.Total
	out.FlightID = gr.Flight.ID
	return out
}
