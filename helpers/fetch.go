package helpers

import (
	"bytes"
	"context"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"neurax/models"
)

// RetryPolicy describes the bounded retry behavior applied to outbound
// provider calls: exponential backoff on server/transport errors, explicit
// wait on rate limiting. MaxRetries counts retries, so an endpoint is hit
// at most MaxRetries+1 times.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     0.1,
	}
}

// Backoff returns the delay before retrying after the given zero-based
// attempt: BaseDelay * 2^attempt plus proportional jitter, clamped to
// MaxDelay. The random value is injected so tests stay deterministic.
func (p RetryPolicy) Backoff(attempt int, random float64) time.Duration {
	base := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	total := base + base*p.Jitter*random
	if max := float64(p.MaxDelay); p.MaxDelay > 0 && total > max {
		total = max
	}
	return time.Duration(total)
}

// APIResponse is a fully read provider response.
type APIResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Fetcher wraps outbound HTTP calls with the retry policy and tracks
// rate-limit reset times per endpoint, so a 429 on one call delays the next
// call to the same endpoint until the provider's window reopens.
type Fetcher struct {
	Client *http.Client
	Policy RetryPolicy

	mu     sync.Mutex
	resets map[string]time.Time

	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
	random func() float64
}

const resetBuffer = 250 * time.Millisecond

func NewFetcher(policy RetryPolicy) *Fetcher {
	return &Fetcher{
		Client: &http.Client{Timeout: 30 * time.Second},
		Policy: policy,
		resets: make(map[string]time.Time),
		sleep:  sleepContext,
		now:    time.Now,
		random: rand.Float64,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do sends the request, retrying per the policy. The body is replayed on
// every attempt. It returns the response on any 2xx status, and a typed
// *models.UpstreamAPIError otherwise.
func (f *Fetcher) Do(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*APIResponse, error) {
	key := endpointKey(method, rawURL)
	if err := f.waitForReset(ctx, key); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= f.Policy.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := f.Client.Do(req)
		if err != nil {
			lastErr = &models.UpstreamAPIError{StatusCode: 0, Body: err.Error()}
			if attempt == f.Policy.MaxRetries {
				return nil, lastErr
			}
			if err := f.sleep(ctx, f.Policy.Backoff(attempt, f.random())); err != nil {
				return nil, err
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return &APIResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			f.recordReset(key, resp.Header)
			lastErr = &models.UpstreamAPIError{StatusCode: resp.StatusCode, Body: string(respBody)}
			if attempt == f.Policy.MaxRetries {
				return nil, lastErr
			}
			if err := f.waitForReset(ctx, key); err != nil {
				return nil, err
			}
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = &models.UpstreamAPIError{StatusCode: resp.StatusCode, Body: string(respBody)}
			if attempt == f.Policy.MaxRetries {
				return nil, lastErr
			}
			if err := f.sleep(ctx, f.Policy.Backoff(attempt, f.random())); err != nil {
				return nil, err
			}
		default:
			return nil, &models.UpstreamAPIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}
	}
	return nil, lastErr
}

// waitForReset blocks until a previously recorded rate-limit window for the
// endpoint has reopened, plus a small buffer.
func (f *Fetcher) waitForReset(ctx context.Context, key string) error {
	f.mu.Lock()
	reset, ok := f.resets[key]
	if ok && !reset.After(f.now()) {
		delete(f.resets, key)
		ok = false
	}
	f.mu.Unlock()
	if !ok {
		return nil
	}
	return f.sleep(ctx, reset.Sub(f.now())+resetBuffer)
}

// recordReset parses the provider's x-rate-limit-reset header (epoch
// seconds). Responses without the header fall back to one backoff step.
func (f *Fetcher) recordReset(key string, header http.Header) {
	reset := f.now().Add(f.Policy.BaseDelay)
	if raw := header.Get("x-rate-limit-reset"); raw != "" {
		if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
			reset = time.Unix(epoch, 0)
		}
	}
	f.mu.Lock()
	f.resets[key] = reset
	f.mu.Unlock()
}

// endpointKey ignores the query string so all calls to one resource share a
// rate-limit window.
func endpointKey(method, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return method + " " + rawURL
	}
	return method + " " + u.Host + u.Path
}
