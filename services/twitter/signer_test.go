package twitter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurax/models"
)

func fixedSigner(consumerKey, consumerSecret, nonce string, timestamp int64) *Signer {
	s := NewSigner(consumerKey, consumerSecret)
	s.Nonce = func() string { return nonce }
	s.Now = func() time.Time { return time.Unix(timestamp, 0) }
	return s
}

// Vector from the provider's signing documentation for the request-token
// leg.
func TestAuthorizationHeaderRequestTokenVector(t *testing.T) {
	signer := fixedSigner(
		"cChZNFj6T5R0TigYB9yd1w",
		"L8qq9PZyRg6ieKGEKhZolGC0vJWLw8iEJ88DRdyOg",
		"ea9ec8429b68d6b77cd5600adbbb0456",
		1318467427,
	)

	header, err := signer.AuthorizationHeader(
		"POST",
		"https://api.twitter.com/oauth/request_token",
		map[string]string{"oauth_callback": "http://localhost/sign-in-with-twitter/"},
		"", "",
	)
	require.NoError(t, err)

	assert.Equal(t,
		`OAuth oauth_callback="http%3A%2F%2Flocalhost%2Fsign-in-with-twitter%2F", `+
			`oauth_consumer_key="cChZNFj6T5R0TigYB9yd1w", `+
			`oauth_nonce="ea9ec8429b68d6b77cd5600adbbb0456", `+
			`oauth_signature="F1Li3tvehgcraF8DMJ7OyxO4w9Y%3D", `+
			`oauth_signature_method="HMAC-SHA1", `+
			`oauth_timestamp="1318467427", `+
			`oauth_version="1.0"`,
		header,
	)
}

func TestAuthorizationHeaderSignsQueryParams(t *testing.T) {
	signer := fixedSigner("consumer-key", "consumer-secret", "fixednonce", 1700000000)

	header, err := signer.AuthorizationHeader(
		"GET",
		"https://api.twitter.com/1.1/account/verify_credentials.json?include_email=true",
		nil,
		"access-token", "token-secret",
	)
	require.NoError(t, err)

	// Query params join the signature but never appear in the header.
	assert.NotContains(t, header, "include_email")
	assert.Contains(t, header, `oauth_signature="8CoSKcdP8NTa5LJ65MsXJQy03f8%3D"`)
	assert.Contains(t, header, `oauth_token="access-token"`)
}

func TestAuthorizationHeaderIsDeterministic(t *testing.T) {
	signer := fixedSigner("ck", "cs", "nonce", 1700000000)

	first, err := signer.AuthorizationHeader("POST", "https://api.twitter.com/oauth/access_token",
		map[string]string{"oauth_verifier": "v"}, "rt", "rs")
	require.NoError(t, err)
	second, err := signer.AuthorizationHeader("POST", "https://api.twitter.com/oauth/access_token",
		map[string]string{"oauth_verifier": "v"}, "rt", "rs")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAuthorizationHeaderOmitsEmptyToken(t *testing.T) {
	signer := fixedSigner("ck", "cs", "nonce", 1700000000)

	header, err := signer.AuthorizationHeader("POST", "https://api.twitter.com/oauth/request_token", nil, "", "")
	require.NoError(t, err)
	assert.NotContains(t, header, "oauth_token=")
	assert.True(t, strings.HasPrefix(header, "OAuth "))
}

func TestAuthorizationHeaderRequiresCredentials(t *testing.T) {
	signer := NewSigner("", "")

	_, err := signer.AuthorizationHeader("POST", "https://api.twitter.com/oauth/request_token", nil, "", "")
	assert.ErrorIs(t, err, models.ErrNotConfigured)
}

func TestPercentEncode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ladies + Gentlemen", "Ladies%20%2B%20Gentlemen"},
		{"An encoded string!", "An%20encoded%20string%21"},
		{"Dogs, Cats & Mice", "Dogs%2C%20Cats%20%26%20Mice"},
		{"☃", "%E2%98%83"},
		{"safe-._~ABCxyz019", "safe-._~ABCxyz019"},
		{"\n", "%0A"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, percentEncode(tc.in), "input %q", tc.in)
	}
}
