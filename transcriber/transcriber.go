package transcriber

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// Provider describes an OpenAI-compatible API serving both the
// transcription and the rewrite models.
type Provider struct {
	Name            string
	BaseURL         string
	TranscribeModel string
	RewriteModel    string
	// KeyEnv names the environment variable conventionally holding the key.
	KeyEnv string
	// Verbose requests verbose_json, which carries per-segment speech
	// probabilities.
	Verbose bool
}

var providers = map[string]Provider{
	"groq": {
		Name:            "groq",
		BaseURL:         "https://api.groq.com/openai/v1",
		TranscribeModel: "whisper-large-v3",
		RewriteModel:    "moonshotai/kimi-k2-instruct",
		KeyEnv:          "GROQ_API_KEY",
		Verbose:         true,
	},
	"openai": {
		Name:            "openai",
		BaseURL:         "https://api.openai.com/v1",
		TranscribeModel: "gpt-4o-transcribe",
		RewriteModel:    "gpt-4o-mini",
		KeyEnv:          "OPENAI_API_KEY",
	},
}

func LookupProvider(name string) (Provider, error) {
	p, ok := providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Provider{}, fmt.Errorf("unknown provider %q (use %s)", name, strings.Join(ProviderNames(), " or "))
	}
	return p, nil
}

func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for n := range providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type Result struct {
	Text         string
	Metrics      *NetworkMetrics
	RateLimit    string
	NoSpeechProb float64
	Duration     float64
}
