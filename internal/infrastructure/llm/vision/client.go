package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to an OpenAI-compatible chat-completions endpoint used for
// per-page text recognition and whole-document summarization. The model is
// a black box: responses carry no guaranteed structure.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(baseURL, apiKey, model string, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

func (c *Client) Model() string {
	return c.model
}

// RecognizePage submits one page raster and returns the recognized text.
func (c *Client) RecognizePage(ctx context.Context, image []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: ocrInstruction},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(image)}},
			},
		}},
		MaxTokens: 4096,
	}

	text, err := c.complete(ctx, req, "recognize")
	if err != nil {
		return "", wrapTemporaryIfNeeded("recognize page", err)
	}
	return text, nil
}

// Summarize asks for a structured summary of the combined document text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: []contentPart{{Type: "text", Text: buildSummaryPrompt(text)}},
		}},
		MaxTokens: 2048,
	}

	summary, err := c.complete(ctx, req, "summarize")
	if err != nil {
		return "", wrapTemporaryIfNeeded("summarize document", err)
	}
	return summary, nil
}

func (c *Client) complete(ctx context.Context, req chatRequest, operation string) (string, error) {
	var resp chatResponse
	if err := c.postJSON(ctx, "/chat/completions", req, &resp, operation); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s response has no choices", operation)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// dataURL encodes a page raster as a base64 data URL, sniffing JPEG vs PNG
// from the magic bytes.
func dataURL(image []byte) string {
	format := "png"
	if len(image) >= 2 && image[0] == 0xff && image[1] == 0xd8 {
		format = "jpeg"
	}
	return fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(image))
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
