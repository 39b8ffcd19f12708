package transcriber

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type verboseResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text         string  `json:"text"`
		NoSpeechProb float64 `json:"no_speech_prob"`
	} `json:"segments"`
}

var errNoText = errors.New("response has no text")

func parseResponse(body []byte, verbose bool) (*Result, error) {
	var r verboseResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if strings.TrimSpace(r.Text) == "" {
		return nil, errNoText
	}

	res := &Result{Text: strings.TrimSpace(r.Text), Duration: r.Duration}
	if verbose {
		for _, seg := range r.Segments {
			res.NoSpeechProb = max(res.NoSpeechProb, seg.NoSpeechProb)
		}
	}
	return res, nil
}
