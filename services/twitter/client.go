package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/dghubble/oauth1"
	"github.com/michimani/gotwi"
	"github.com/michimani/gotwi/tweet/managetweet"
	"github.com/michimani/gotwi/tweet/managetweet/types"

	"neurax/helpers"
	"neurax/models"
)

const (
	mediaUploadURL        = "https://upload.twitter.com/1.1/media/upload.json?media_category=tweet_image"
	verifyCredentialsURL  = "https://api.twitter.com/1.1/account/verify_credentials.json"
	verifyCredentialQuery = "?include_email=false"
)

// Client performs API calls on behalf of one linked account. Every outbound
// path rides the retry policy: v2 calls through the retrying transport, v1.1
// calls through the fetcher.
type Client struct {
	signer  *Signer
	fetcher *helpers.Fetcher
	account *models.TwitterAccount
	policy  helpers.RetryPolicy

	// VerifyURL overrides the verify_credentials endpoint in tests.
	VerifyURL string
}

func NewClient(signer *Signer, fetcher *helpers.Fetcher, account *models.TwitterAccount, policy helpers.RetryPolicy) *Client {
	return &Client{
		signer:    signer,
		fetcher:   fetcher,
		account:   account,
		policy:    policy,
		VerifyURL: verifyCredentialsURL + verifyCredentialQuery,
	}
}

// PostTweet publishes text, optionally with one image, and returns the
// created tweet id.
func (c *Client) PostTweet(ctx context.Context, text, imageURL string) (string, error) {
	if !c.signer.Configured() {
		return "", models.ErrNotConfigured
	}
	if c.account.AccessToken == "" || c.account.AccessTokenSecret == "" {
		return "", models.ErrNotConfigured
	}

	in := &gotwi.NewClientInput{
		AuthenticationMethod: gotwi.AuthenMethodOAuth1UserContext,
		OAuthToken:           c.account.AccessToken,
		OAuthTokenSecret:     c.account.AccessTokenSecret,
		HTTPClient: &http.Client{
			Transport: helpers.NewRetryTransport(nil, c.policy),
		},
	}
	client, err := gotwi.NewClient(in)
	if err != nil {
		return "", err
	}

	var post types.CreateInput
	post.Text = gotwi.String(text)

	if imageURL != "" {
		mediaID, err := c.uploadMedia(imageURL)
		if err != nil {
			return "", err
		}
		post.Media = &types.CreateInputMedia{MediaIDs: []string{mediaID}}
	}

	res, err := managetweet.Create(ctx, client, &post)
	if err != nil {
		return "", err
	}
	return gotwi.StringValue(res.Data.ID), nil
}

type mediaUploadResponse struct {
	MediaID       int64  `json:"media_id"`
	MediaIDString string `json:"media_id_string"`
}

// uploadMedia pushes an image through the v1.1 chunkless media endpoint,
// which only speaks OAuth 1.0a signed multipart.
func (c *Client) uploadMedia(imageURL string) (string, error) {
	fileLocation, err := helpers.DownloadImage(imageURL)
	if err != nil {
		return "", err
	}
	defer os.Remove(fileLocation)

	file, err := os.Open(fileLocation)
	if err != nil {
		return "", err
	}
	defer file.Close()

	b := &bytes.Buffer{}
	form := multipart.NewWriter(b)
	fw, err := form.CreateFormFile("media", fileLocation)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, file); err != nil {
		return "", err
	}
	form.Close()

	config := oauth1.NewConfig(c.signer.ConsumerKey, c.signer.ConsumerSecret)
	token := oauth1.NewToken(c.account.AccessToken, c.account.AccessTokenSecret)
	httpClient := config.Client(oauth1.NoContext, token)

	uploadResp, err := httpClient.Post(mediaUploadURL, form.FormDataContentType(), bytes.NewReader(b.Bytes()))
	if err != nil {
		return "", err
	}
	defer uploadResp.Body.Close()

	body, err := io.ReadAll(uploadResp.Body)
	if err != nil {
		return "", err
	}
	if uploadResp.StatusCode < 200 || uploadResp.StatusCode >= 300 {
		return "", &models.UpstreamAPIError{StatusCode: uploadResp.StatusCode, Body: string(body)}
	}

	var m mediaUploadResponse
	if err := json.Unmarshal(body, &m); err != nil {
		return "", err
	}
	if m.MediaIDString != "" {
		return m.MediaIDString, nil
	}
	return strconv.FormatInt(m.MediaID, 10), nil
}

// AccountProfile is the subset of verify_credentials used for the metrics
// snapshot and profile refresh.
type AccountProfile struct {
	ID              string `json:"id_str"`
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	ProfileImageURL string `json:"profile_image_url_https"`
	FollowersCount  int64  `json:"followers_count"`
	FriendsCount    int64  `json:"friends_count"`
	StatusesCount   int64  `json:"statuses_count"`
}

// VerifyCredentials checks the stored tokens are still valid and returns
// the live profile behind them.
func (c *Client) VerifyCredentials(ctx context.Context) (*AccountProfile, error) {
	authHeader, err := c.signer.AuthorizationHeader(http.MethodGet, c.VerifyURL, nil,
		c.account.AccessToken, c.account.AccessTokenSecret)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", authHeader)
	resp, err := c.fetcher.Do(ctx, http.MethodGet, c.VerifyURL, header, nil)
	if err != nil {
		return nil, err
	}

	var profile AccountProfile
	if err := json.Unmarshal(resp.Body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
