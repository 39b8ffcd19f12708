package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"yada/encoder"
	"yada/log"
	"yada/pipeline"
)

type Options struct {
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// Client uploads encoded audio to an OpenAI-compatible
// /audio/transcriptions endpoint.
type Client struct {
	provider Provider
	apiURL   string
	model    string
	lang     string
	client   *TracedClient
}

func New(p Provider, opts Options) *Client {
	base := p.BaseURL
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}
	model := p.TranscribeModel
	if opts.Model != "" {
		model = opts.Model
	}
	return &Client{
		provider: p,
		apiURL:   strings.TrimRight(base, "/") + "/audio/transcriptions",
		model:    model,
		lang:     opts.Language,
		client:   NewTracedClient(opts.Timeout),
	}
}

func (c *Client) Name() string  { return c.provider.Name }
func (c *Client) Model() string { return c.model }

// Warm opens a connection ahead of the first upload.
func (c *Client) Warm() {
	c.client.WarmConnection(c.apiURL)
}

func (c *Client) Transcribe(ctx context.Context, audio pipeline.EncodedAudio, credential string) (string, error) {
	res, err := c.transcribe(ctx, audio, credential)
	if err != nil {
		return "", err
	}

	m := res.Metrics
	log.TranscriptionMetrics(log.Metrics{
		AudioLengthS: audio.Duration,
		UploadKB:     float64(len(audio.Data)) / 1024,
		DNSTimeMs:    ms(m.DNS),
		ConnTimeMs:   ms(m.TCP),
		TLSTimeMs:    ms(m.TLS),
		TTFBMs:       ms(m.TTFB),
		TotalTimeMs:  ms(m.Total),
		RateLimit:    res.RateLimit,
	}, c.provider.Name, audio.Format, m.ConnReused, m.TLSProtocol)
	if res.NoSpeechProb > 0.8 {
		log.Warnf("transcript may be hallucinated (no_speech_prob=%.2f)", res.NoSpeechProb)
	}
	return res.Text, nil
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (c *Client) transcribe(ctx context.Context, audio pipeline.EncodedAudio, credential string) (*Result, error) {
	format := audio.Format
	if format == "" {
		format = encoder.FormatWAV
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="audio.%s"`, format))
	h.Set("Content-Type", encoder.ContentType(format))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, err
	}

	writer.WriteField("model", c.model)
	if c.provider.Verbose {
		writer.WriteField("response_format", "verbose_json")
	} else {
		writer.WriteField("response_format", "json")
	}
	if c.lang != "" {
		writer.WriteField("language", c.lang)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, &body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pipeline.WithKind(pipeline.ErrTransport, fmt.Errorf("%s request: %w", c.provider.Name, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Provider:   c.provider.Name,
			StatusCode: resp.StatusCode,
			Message:    ErrorMessage(resp.Body),
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			log.Warnf("%s rate limited, retry-after=%s", c.provider.Name, firstNonEmpty(resp.Header, "retry-after", "x-ratelimit-reset-requests"))
		}
		return nil, apiErr
	}

	res, err := parseResponse(resp.Body, c.provider.Verbose)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", pipeline.ErrDecoding, c.provider.Name, err)
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")
	res.Metrics = resp.Metrics
	res.RateLimit = remaining + "/" + limit
	return res, nil
}
