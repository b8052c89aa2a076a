package helpers

import (
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// RetryTransport applies the retry policy at the http.RoundTripper level,
// for clients the server does not build requests for itself (the gotwi
// tweet client). Requests without a replayable body are never retried.
type RetryTransport struct {
	Base   http.RoundTripper
	Policy RetryPolicy

	sleep  func(d time.Duration)
	random func() float64
	now    func() time.Time
}

func NewRetryTransport(base http.RoundTripper, policy RetryPolicy) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{
		Base:   base,
		Policy: policy,
		sleep:  time.Sleep,
		random: rand.Float64,
		now:    time.Now,
	}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	replayable := req.Body == nil || req.GetBody != nil

	var resp *http.Response
	var err error
	for attempt := 0; attempt <= t.Policy.MaxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return resp, err
			}
			req.Body = body
		}

		resp, err = t.Base.RoundTrip(req)
		if !replayable || attempt == t.Policy.MaxRetries {
			return resp, err
		}

		if err != nil {
			t.sleep(t.Policy.Backoff(attempt, t.random()))
			continue
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			t.drain(resp)
			t.sleep(t.resetWait(resp))
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			t.drain(resp)
			t.sleep(t.Policy.Backoff(attempt, t.random()))
		default:
			return resp, nil
		}
	}
	return resp, err
}

// resetWait honors x-rate-limit-reset when present, clamped to MaxDelay.
func (t *RetryTransport) resetWait(resp *http.Response) time.Duration {
	wait := t.Policy.BaseDelay
	if raw := resp.Header.Get("x-rate-limit-reset"); raw != "" {
		if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
			wait = time.Unix(epoch, 0).Sub(t.now()) + resetBuffer
		}
	}
	if wait < 0 {
		wait = 0
	}
	if t.Policy.MaxDelay > 0 && wait > t.Policy.MaxDelay {
		wait = t.Policy.MaxDelay
	}
	return wait
}

func (t *RetryTransport) drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
