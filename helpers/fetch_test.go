package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"neurax/models"
)

func TestRetryPolicyBackoff(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, Jitter: 0.1}

	tests := []struct {
		name    string
		attempt int
		random  float64
		want    time.Duration
	}{
		{"first attempt no jitter", 0, 0, time.Second},
		{"first attempt full jitter", 0, 1, 1100 * time.Millisecond},
		{"doubles per attempt", 2, 0, 4 * time.Second},
		{"clamped to max delay", 5, 0, 30 * time.Second},
		{"jitter also clamped", 5, 1, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Backoff(tt.attempt, tt.random); got != tt.want {
				t.Errorf("Backoff(%d, %v) = %v, want %v", tt.attempt, tt.random, got, tt.want)
			}
		})
	}
}

func TestRetryPolicyBackoffWithoutMaxDelay(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second}
	if got := policy.Backoff(4, 0); got != 16*time.Second {
		t.Errorf("Backoff(4, 0) = %v, want 16s", got)
	}
}

// testFetcher returns a fetcher whose sleeps are recorded instead of
// executed and whose clock is pinned.
func testFetcher(policy RetryPolicy, at time.Time) (*Fetcher, *[]time.Duration) {
	f := NewFetcher(policy)
	sleeps := &[]time.Duration{}
	f.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	f.now = func() time.Time { return at }
	f.random = func() float64 { return 0 }
	return f, sleeps
}

func TestDoReturnsBodyOnSuccess(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	f, sleeps := testFetcher(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}, time.Unix(1700000000, 0))

	resp, err := f.Do(context.Background(), http.MethodGet, server.URL+"/thing", nil, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"ok":true}` {
		t.Errorf("unexpected response %d %q", resp.StatusCode, resp.Body)
	}
	if calls != 1 || len(*sleeps) != 0 {
		t.Errorf("calls = %d, sleeps = %v; want one call and no sleeps", calls, *sleeps)
	}
}

func TestDoWaitsForRateLimitReset(t *testing.T) {
	now := time.Unix(1700000000, 0)
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("x-rate-limit-reset", strconv.FormatInt(now.Add(5*time.Second).Unix(), 10))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f, sleeps := testFetcher(RetryPolicy{MaxRetries: 2, BaseDelay: time.Second}, now)

	resp, err := f.Do(context.Background(), http.MethodGet, server.URL+"/limited", nil, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(resp.Body) != "ok" || calls != 2 {
		t.Fatalf("resp = %q, calls = %d", resp.Body, calls)
	}

	want := 5*time.Second + resetBuffer
	if len(*sleeps) != 1 || (*sleeps)[0] != want {
		t.Errorf("sleeps = %v, want [%v]", *sleeps, want)
	}
}

func TestDoPreWaitsOnRecordedReset(t *testing.T) {
	now := time.Unix(1700000000, 0)
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("x-rate-limit-reset", strconv.FormatInt(now.Add(10*time.Second).Unix(), 10))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	// No retries: the first call fails outright and records the window.
	f, sleeps := testFetcher(RetryPolicy{MaxRetries: 0, BaseDelay: time.Second}, now)

	if _, err := f.Do(context.Background(), http.MethodGet, server.URL+"/limited", nil, nil); err == nil {
		t.Fatal("expected rate limit error")
	}
	if len(*sleeps) != 0 {
		t.Fatalf("no sleep expected on first call, got %v", *sleeps)
	}

	// The next call to the same endpoint waits out the window up front.
	resp, err := f.Do(context.Background(), http.MethodGet, server.URL+"/limited?page=2", nil, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Fatalf("resp = %q", resp.Body)
	}
	want := 10*time.Second + resetBuffer
	if len(*sleeps) != 1 || (*sleeps)[0] != want {
		t.Errorf("sleeps = %v, want [%v]", *sleeps, want)
	}
}

func TestDoRetriesServerErrorsWithBackoff(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f, sleeps := testFetcher(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}, time.Unix(1700000000, 0))

	resp, err := f.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if string(resp.Body) != "ok" || calls != 3 {
		t.Fatalf("resp = %q, calls = %d", resp.Body, calls)
	}
	if len(*sleeps) != 2 || (*sleeps)[0] != time.Second || (*sleeps)[1] != 2*time.Second {
		t.Errorf("sleeps = %v, want [1s 2s]", *sleeps)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("nope"))
	}))
	defer server.Close()

	f, _ := testFetcher(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}, time.Unix(1700000000, 0))

	_, err := f.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	apiErr, ok := err.(*models.UpstreamAPIError)
	if !ok {
		t.Fatalf("error = %T (%v), want *models.UpstreamAPIError", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Body != "nope" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f, _ := testFetcher(RetryPolicy{MaxRetries: 2, BaseDelay: time.Second}, time.Unix(1700000000, 0))

	_, err := f.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	apiErr, ok := err.(*models.UpstreamAPIError)
	if !ok {
		t.Fatalf("error = %T, want *models.UpstreamAPIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", apiErr.StatusCode)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want MaxRetries+1 = 3", calls)
	}
}

func TestDoRetriesTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connections now refused

	f, sleeps := testFetcher(RetryPolicy{MaxRetries: 1, BaseDelay: time.Second}, time.Unix(1700000000, 0))

	_, err := f.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	apiErr, ok := err.(*models.UpstreamAPIError)
	if !ok {
		t.Fatalf("error = %T, want *models.UpstreamAPIError", err)
	}
	if apiErr.StatusCode != 0 {
		t.Errorf("status = %d, want 0 for transport errors", apiErr.StatusCode)
	}
	if len(*sleeps) != 1 {
		t.Errorf("sleeps = %v, want one backoff", *sleeps)
	}
}

func TestEndpointKeyIgnoresQuery(t *testing.T) {
	a := endpointKey("GET", "https://api.twitter.com/1.1/thing.json?page=1")
	b := endpointKey("GET", "https://api.twitter.com/1.1/thing.json?page=2")
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	c := endpointKey("POST", "https://api.twitter.com/1.1/thing.json")
	if a == c {
		t.Error("method should be part of the key")
	}
}

func TestParseFormValidatesRequiredKeys(t *testing.T) {
	values, err := ParseForm([]byte("oauth_token=a&oauth_token_secret=b\n"), "oauth_token", "oauth_token_secret")
	if err != nil {
		t.Fatalf("ParseForm() error = %v", err)
	}
	if values.Get("oauth_token") != "a" {
		t.Errorf("oauth_token = %q", values.Get("oauth_token"))
	}

	if _, err := ParseForm([]byte("oauth_token=a"), "oauth_token", "oauth_token_secret"); err == nil {
		t.Error("expected error for missing oauth_token_secret")
	}
}
