package twitter

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"neurax/models"
)

// Signer produces OAuth 1.0a HMAC-SHA1 Authorization headers. Nonce and Now
// are injectable so signatures are reproducible in tests.
type Signer struct {
	ConsumerKey    string
	ConsumerSecret string
	Nonce          func() string
	Now            func() time.Time
}

func NewSigner(consumerKey, consumerSecret string) *Signer {
	return &Signer{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Nonce: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		},
		Now: time.Now,
	}
}

func (s *Signer) Configured() bool {
	return s.ConsumerKey != "" && s.ConsumerSecret != ""
}

// AuthorizationHeader signs a request and returns the OAuth header value.
// extra carries protocol params such as oauth_callback or oauth_verifier;
// they are signed and emitted in the header. Query params found in rawURL
// join the signature base but stay in the URL. token/tokenSecret are empty
// for the request-token leg.
func (s *Signer) AuthorizationHeader(method, rawURL string, extra map[string]string, token, tokenSecret string) (string, error) {
	if !s.Configured() {
		return "", models.ErrNotConfigured
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	oauthParams := map[string]string{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_nonce":            s.Nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(s.Now().Unix(), 10),
		"oauth_version":          "1.0",
	}
	if token != "" {
		oauthParams["oauth_token"] = token
	}
	for key, value := range extra {
		oauthParams[key] = value
	}

	signature := s.signature(method, parsed, oauthParams, tokenSecret)
	oauthParams["oauth_signature"] = signature

	keys := make([]string, 0, len(oauthParams))
	for key := range oauthParams {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, percentEncode(key)+`="`+percentEncode(oauthParams[key])+`"`)
	}
	return "OAuth " + strings.Join(pairs, ", "), nil
}

// signature builds the base string METHOD&enc(baseURL)&enc(params) and
// signs it with enc(consumerSecret)&enc(tokenSecret).
func (s *Signer) signature(method string, parsed *url.URL, oauthParams map[string]string, tokenSecret string) string {
	type pair struct{ key, value string }
	pairs := make([]pair, 0, len(oauthParams)+4)
	for key, value := range oauthParams {
		pairs = append(pairs, pair{percentEncode(key), percentEncode(value)})
	}
	for key, values := range parsed.Query() {
		for _, value := range values {
			pairs = append(pairs, pair{percentEncode(key), percentEncode(value)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	encoded := make([]string, 0, len(pairs))
	for _, p := range pairs {
		encoded = append(encoded, p.key+"="+p.value)
	}
	paramString := strings.Join(encoded, "&")

	baseURL := parsed.Scheme + "://" + parsed.Host + parsed.Path
	base := strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(paramString)

	signingKey := percentEncode(s.ConsumerSecret) + "&" + percentEncode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode implements RFC 3986 encoding: only ALPHA, DIGIT, '-', '.',
// '_', '~' stay literal. url.QueryEscape is not usable here because it maps
// space to '+'.
func percentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}
