package transcriber

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"yada/encoder"
	"yada/pipeline"
)

func TestNetworkMetricsSum(t *testing.T) {
	m := &NetworkMetrics{
		ConnWait:   10 * time.Millisecond,
		DNS:        20 * time.Millisecond,
		TCP:        30 * time.Millisecond,
		TLS:        40 * time.Millisecond,
		ReqHeaders: 5 * time.Millisecond,
		ReqBody:    15 * time.Millisecond,
		TTFB:       50 * time.Millisecond,
		Download:   25 * time.Millisecond,
	}
	got := m.Sum()
	want := 195 * time.Millisecond
	if got != want {
		t.Errorf("Sum() = %v, want %v", got, want)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Rate-Limit", "100")

	if got := firstNonEmpty(h, "X-Missing", "X-Rate-Limit"); got != "100" {
		t.Errorf("got %q, want %q", got, "100")
	}
	if got := firstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}

func TestLookupProvider(t *testing.T) {
	p, err := LookupProvider(" Groq ")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "groq" || !p.Verbose {
		t.Errorf("got %+v", p)
	}
	if _, err := LookupProvider("deepgram"); err == nil {
		t.Error("expected error for unknown provider")
	}
	if got := strings.Join(ProviderNames(), ","); got != "groq,openai" {
		t.Errorf("ProviderNames() = %q", got)
	}
}

type captured struct {
	auth        string
	model       string
	format      string
	filename    string
	contentType string
	data        []byte
}

func newServer(t *testing.T, status int, body string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got != nil {
			got.auth = r.Header.Get("Authorization")
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm: %v", err)
			} else {
				got.model = r.FormValue("model")
				got.format = r.FormValue("response_format")
				f, hdr, err := r.FormFile("file")
				if err != nil {
					t.Errorf("FormFile: %v", err)
				} else {
					got.filename = hdr.Filename
					got.contentType = hdr.Header.Get("Content-Type")
					got.data, _ = io.ReadAll(f)
					f.Close()
				}
			}
		}
		w.Header().Set("x-ratelimit-remaining-requests", "99")
		w.Header().Set("x-ratelimit-limit-requests", "100")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(t *testing.T, name string) Provider {
	t.Helper()
	p, err := LookupProvider(name)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func wavAudio() pipeline.EncodedAudio {
	pcm := make([]byte, 3200)
	return pipeline.EncodedAudio{
		Data:     encoder.EncodeWAV(pcm, 16000, 1, 16),
		Format:   encoder.FormatWAV,
		Duration: 0.1,
	}
}

func TestTranscribeSendsMultipart(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{"text":" hello world ","segments":[{"text":"hello world","no_speech_prob":0.1}]}`, &got)

	c := New(testProvider(t, "groq"), Options{BaseURL: srv.URL + "/v1/", Timeout: 5 * time.Second})
	audio := wavAudio()
	text, err := c.Transcribe(context.Background(), audio, "sk-test")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	if got.auth != "Bearer sk-test" {
		t.Errorf("auth = %q", got.auth)
	}
	if got.model != "whisper-large-v3" {
		t.Errorf("model = %q", got.model)
	}
	if got.format != "verbose_json" {
		t.Errorf("response_format = %q", got.format)
	}
	if got.filename != "audio.wav" || got.contentType != "audio/wav" {
		t.Errorf("file = %q (%s)", got.filename, got.contentType)
	}
	if len(got.data) != len(audio.Data) {
		t.Errorf("uploaded %d bytes, want %d", len(got.data), len(audio.Data))
	}
}

func TestTranscribeOpenAIPlainJSON(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{"text":"hi"}`, &got)

	c := New(testProvider(t, "openai"), Options{BaseURL: srv.URL + "/v1", Model: "whisper-1"})
	text, err := c.Transcribe(context.Background(), wavAudio(), "k")
	if err != nil {
		t.Fatal(err)
	}
	if text != "hi" || got.format != "json" || got.model != "whisper-1" {
		t.Errorf("text=%q format=%q model=%q", text, got.format, got.model)
	}
}

func TestTranscribeAPIError(t *testing.T) {
	srv := newServer(t, http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`, nil)

	c := New(testProvider(t, "groq"), Options{BaseURL: srv.URL + "/v1"})
	_, err := c.Transcribe(context.Background(), wavAudio(), "k")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "rate limited (HTTP 429)" {
		t.Errorf("err = %q", err)
	}
	if !errors.Is(err, pipeline.ErrTransport) {
		t.Errorf("err should be a transport error: %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 429 {
		t.Errorf("errors.As = %+v", apiErr)
	}
}

func TestTranscribeEmptyText(t *testing.T) {
	for _, body := range []string{`{"text":"   "}`, `not json`} {
		srv := newServer(t, http.StatusOK, body, nil)
		c := New(testProvider(t, "openai"), Options{BaseURL: srv.URL + "/v1"})
		_, err := c.Transcribe(context.Background(), wavAudio(), "k")
		if !errors.Is(err, pipeline.ErrDecoding) {
			t.Errorf("body %q: err = %v, want decoding error", body, err)
		}
	}
}

func TestTranscribeNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(testProvider(t, "openai"), Options{BaseURL: url})
	_, err := c.Transcribe(context.Background(), wavAudio(), "k")
	if !errors.Is(err, pipeline.ErrTransport) {
		t.Errorf("err = %v, want transport error", err)
	}
}

func TestErrorMessage(t *testing.T) {
	long := strings.Repeat("x", 400)
	for _, tt := range []struct{ body, want string }{
		{`{"error":{"message":"bad key"}}`, "bad key"},
		{`{"error":"quota exceeded"}`, "quota exceeded"},
		{`{"message":"nope"}`, "nope"},
		{"  gateway timeout \n", "gateway timeout"},
		{"", "empty response body"},
		{long, long[:300] + "..."},
	} {
		if got := ErrorMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("ErrorMessage(%.20q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestParseResponseNoSpeech(t *testing.T) {
	res, err := parseResponse([]byte(`{"text":"thanks","duration":1.5,"segments":[{"no_speech_prob":0.2},{"no_speech_prob":0.9}]}`), true)
	if err != nil {
		t.Fatal(err)
	}
	if res.NoSpeechProb != 0.9 || res.Duration != 1.5 {
		t.Errorf("got %+v", res)
	}
}

func TestFake(t *testing.T) {
	f := NewFake("hello", nil)
	text, err := f.Transcribe(context.Background(), wavAudio(), "k")
	if err != nil || text != "hello" {
		t.Fatalf("got %q, %v", text, err)
	}
	if len(f.Calls()) != 1 || f.Credentials()[0] != "k" {
		t.Errorf("calls not recorded")
	}
}
