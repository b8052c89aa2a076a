package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestJSON sends a provider request through the fetcher and decodes the
// JSON response body into T. The body is encoded per the Content-Type
// header: url.Values as a form, anything else as JSON.
func RequestJSON[T any](
	ctx context.Context,
	fetcher *Fetcher,
	method string,
	fullURL string,
	headers map[string]string,
	queryParams url.Values,
	body interface{},
) (T, error) {
	var result T

	var payload []byte

	if body != nil {
		contentType := headers["Content-Type"]

		switch contentType {
		case "application/x-www-form-urlencoded":
			formValues, ok := body.(url.Values)
			if !ok {
				return result, fmt.Errorf("body must be url.Values when using application/x-www-form-urlencoded")
			}
			payload = []byte(formValues.Encode())

		case "application/json", "":
			b, err := json.Marshal(body)
			if err != nil {
				return result, err
			}
			payload = b

		default:
			return result, fmt.Errorf("unsupported Content-Type: %s", contentType)
		}
	}

	u, err := url.Parse(fullURL)
	if err != nil {
		return result, err
	}
	if len(queryParams) > 0 {
		q := u.Query()
		for k, v := range queryParams {
			q[k] = v
		}
		u.RawQuery = q.Encode()
	}

	header := http.Header{}
	for k, v := range headers {
		header.Set(k, v)
	}
	if body != nil && header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}

	resp, err := fetcher.Do(ctx, method, u.String(), header, payload)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return result, err
	}

	return result, nil
}

// ParseForm decodes a form-urlencoded provider response body, checking that
// every required key is present and non-empty. Provider responses are
// loosely shaped; this validates at the boundary instead of propagating
// empty strings.
func ParseForm(body []byte, required ...string) (url.Values, error) {
	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, err
	}
	for _, key := range required {
		if values.Get(key) == "" {
			return nil, fmt.Errorf("provider response missing %s", key)
		}
	}
	return values, nil
}
