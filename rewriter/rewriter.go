// Package rewriter cleans up a transcript with a chat completion model.
package rewriter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"yada/log"
	"yada/pipeline"
)

// temperature is the smallest value the client will send; zero is
// dropped from the request by omitempty.
const temperature = math.SmallestNonzeroFloat32

type Options struct {
	Provider string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

type Client struct {
	opts Options
	http *http.Client
}

func New(opts Options) *Client {
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
	}
}

func (c *Client) Model() string { return c.opts.Model }

func (c *Client) Rewrite(ctx context.Context, transcript, instructions, credential string) (string, error) {
	config := openai.DefaultConfig(credential)
	if c.opts.BaseURL != "" {
		config.BaseURL = strings.TrimRight(c.opts.BaseURL, "/")
	}
	config.HTTPClient = c.http
	client := openai.NewClientWithConfig(config)

	start := time.Now()
	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instructions},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
	})
	if err != nil {
		return "", c.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", pipeline.ErrDecoding)
	}
	text := strings.TrimSpace(messageText(resp.Choices[0].Message))
	if text == "" {
		return "", fmt.Errorf("%w: response has no text", pipeline.ErrDecoding)
	}

	log.Infof("rewrite: model=%s tokens=%d/%d %dms", c.opts.Model,
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, time.Since(start).Milliseconds())
	return text, nil
}

// messageText concatenates the text parts of msg in order, or returns
// its flat content.
func messageText(msg openai.ChatCompletionMessage) string {
	if len(msg.MultiContent) == 0 {
		return msg.Content
	}
	var sb strings.Builder
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func (c *Client) wrapError(err error) error {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		return &APIError{Provider: c.opts.Provider, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	case errors.As(err, &reqErr):
		msg := reqErr.HTTPStatus
		if len(reqErr.Body) > 0 {
			msg = errorBody(reqErr.Body)
		}
		return &APIError{Provider: c.opts.Provider, StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return pipeline.WithKind(pipeline.ErrTransport, err)
}
