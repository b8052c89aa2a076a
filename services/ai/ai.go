package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"neurax/helpers"
	"neurax/models"
	"neurax/services/market"
)

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	// https://openrouter.ai/models
	defaultModel = "mistralai/mistral-small-3.2-24b-instruct-2506:free"

	huggingFaceImageURL = "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-xl-base-1.0"
)

// Service generates tweets, content ideas, images and trading calls. Every
// generator degrades to a deterministic placeholder when its upstream key is
// missing, so the dashboard works in development without credentials.
type Service struct {
	client  *openai.Client
	fetcher *helpers.Fetcher
	market  *market.Service
	logger  *slog.Logger

	hfKey string
	model string

	// ImageURL overrides the image inference endpoint in tests.
	ImageURL string
	random   func() float64
}

func NewService(openRouterKey, huggingFaceKey string, fetcher *helpers.Fetcher, marketSvc *market.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	var client *openai.Client
	if openRouterKey != "" {
		cfg := openai.DefaultConfig(openRouterKey)
		cfg.BaseURL = openRouterBaseURL
		client = openai.NewClientWithConfig(cfg)
	}
	return &Service{
		client:   client,
		fetcher:  fetcher,
		market:   marketSvc,
		logger:   logger,
		hfKey:    huggingFaceKey,
		model:    defaultModel,
		ImageURL: huggingFaceImageURL,
		random:   rand.Float64,
	}
}

// GenerateTweet writes a short post about the topic in the given style.
func (s *Service) GenerateTweet(ctx context.Context, topic, style string) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("%w: topic is required", models.ErrValidation)
	}
	if style == "" {
		style = "engaging"
	}
	if s.client == nil {
		return placeholderTweet(topic), nil
	}

	prompt := fmt.Sprintf(
		"Write a %s tweet about %s. Keep it under 280 characters, 2-3 lines, informative, add hashtags. Do not include quotes.",
		style, topic)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a social media manager who writes sharp, concise posts."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		s.logger.Warn("tweet generation failed, using placeholder", "error", err)
		return placeholderTweet(topic), nil
	}
	if len(resp.Choices) == 0 {
		return placeholderTweet(topic), nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateIdeas produces count content ideas for the topic, one per line.
func (s *Service) GenerateIdeas(ctx context.Context, topic string, count int) ([]string, error) {
	if topic == "" {
		return nil, fmt.Errorf("%w: topic is required", models.ErrValidation)
	}
	if count <= 0 || count > 10 {
		count = 5
	}
	if s.client == nil {
		return placeholderIdeas(topic, count), nil
	}

	prompt := fmt.Sprintf(
		"List %d distinct tweet ideas about %s. One idea per line, no numbering, no quotes.",
		count, topic)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You brainstorm social media content."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		s.logger.Warn("idea generation failed, using placeholder", "error", err)
		return placeholderIdeas(topic, count), nil
	}
	if len(resp.Choices) == 0 {
		return placeholderIdeas(topic, count), nil
	}

	ideas := []string{}
	for _, line := range strings.Split(resp.Choices[0].Message.Content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line != "" {
			ideas = append(ideas, line)
		}
	}
	if len(ideas) == 0 {
		return placeholderIdeas(topic, count), nil
	}
	if len(ideas) > count {
		ideas = ideas[:count]
	}
	return ideas, nil
}

// GenerateImage renders the prompt through the inference endpoint and
// returns the image as a data URI, ready for an <img> tag or media upload.
func (s *Service) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is required", models.ErrValidation)
	}
	if s.hfKey == "" {
		return placeholderImage(prompt), nil
	}

	payload := []byte(fmt.Sprintf(`{"inputs":%q}`, prompt))
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.hfKey)
	header.Set("Content-Type", "application/json")

	resp, err := s.fetcher.Do(ctx, http.MethodPost, s.ImageURL, header, payload)
	if err != nil {
		return "", err
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", &models.UpstreamAPIError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(resp.Body), nil
}

// GenerateTradingCall produces a synthetic recommendation for the asset,
// anchored to the live market price: LONG targets +20%, SHORT -20%.
func (s *Service) GenerateTradingCall(ctx context.Context, userID int64, asset string) (*models.TradingCall, error) {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if asset == "" {
		supported := market.Supported()
		asset = supported[int(s.random()*float64(len(supported)))%len(supported)]
	}

	price, err := s.market.Price(ctx, asset)
	if err != nil {
		return nil, err
	}

	position := models.PositionLong
	target := price * 1.20
	if s.random() < 0.5 {
		position = models.PositionShort
		target = price * 0.80
	}

	return &models.TradingCall{
		UserID:       userID,
		Asset:        asset,
		Position:     position,
		EntryPrice:   formatPrice(price),
		TargetPrice:  formatPrice(target),
		CurrentPrice: formatPrice(price),
		Status:       models.CallStatusActive,
	}, nil
}

func placeholderTweet(topic string) string {
	return fmt.Sprintf("Thoughts on %s: the landscape keeps shifting and the ones paying attention win. More soon. #%s",
		topic, strings.ReplaceAll(topic, " ", ""))
}

func placeholderIdeas(topic string, count int) []string {
	templates := []string{
		"A contrarian take on %s",
		"Three things nobody tells you about %s",
		"How %s changed in the last year",
		"The biggest mistake people make with %s",
		"A beginner's first step into %s",
		"What the data actually says about %s",
		"Why %s matters more than you think",
		"A quick win with %s you can try today",
		"The future of %s in one tweet",
		"Lessons learned the hard way about %s",
	}
	ideas := make([]string, 0, count)
	for i := 0; i < count && i < len(templates); i++ {
		ideas = append(ideas, fmt.Sprintf(templates[i], topic))
	}
	return ideas
}

// placeholderImage is a small SVG card shown when image generation is not
// configured.
func placeholderImage(prompt string) string {
	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="512" height="512"><rect width="100%%" height="100%%" fill="#1a1a2e"/><text x="50%%" y="50%%" fill="#e0e0e0" font-family="sans-serif" font-size="20" text-anchor="middle">%s</text></svg>`,
		prompt)
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

func formatPrice(p float64) string {
	if p >= 1 {
		return fmt.Sprintf("%.2f", p)
	}
	return fmt.Sprintf("%.4f", p)
}
