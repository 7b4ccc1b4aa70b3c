package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	deepgramSpeakURL  = "https://api.deepgram.com/v1/speak"
	defaultSpeakModel = "aura-2-luna-en"
)

// DeepgramProvider implements the TTS Provider interface using Deepgram's
// speak API.
type DeepgramProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewDeepgram creates a new Deepgram TTS provider. An empty model selects the
// default voice.
func NewDeepgram(apiKey, model string) *DeepgramProvider {
	return NewDeepgramWithClient(apiKey, model, deepgramSpeakURL, nil)
}

// NewDeepgramWithClient creates a provider with a custom endpoint and HTTP
// client, used by tests.
func NewDeepgramWithClient(apiKey, model, baseURL string, client *http.Client) *DeepgramProvider {
	if strings.TrimSpace(model) == "" {
		model = defaultSpeakModel
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = deepgramSpeakURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &DeepgramProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
	}
}

// Name returns the provider identifier.
func (d *DeepgramProvider) Name() string {
	return "deepgram/" + d.model
}

func (d *DeepgramProvider) speakRequest(ctx context.Context, text string, opts SynthesizeOptions) (*http.Response, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	u, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse speak URL: %w", err)
	}
	q := u.Query()
	model := opts.Voice
	if model == "" {
		model = d.model
	}
	q.Set("model", model)
	if opts.Encoding != "" {
		q.Set("encoding", opts.Encoding)
	}
	if opts.SampleRate > 0 {
		q.Set("sample_rate", fmt.Sprintf("%d", opts.SampleRate))
	}
	u.RawQuery = q.Encode()

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, fmt.Errorf("deepgram error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return resp, nil
}

// Synthesize converts text to audio in one shot.
func (d *DeepgramProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	resp, err := d.speakRequest(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	encoding := opts.Encoding
	if encoding == "" {
		encoding = "mp3"
	}
	return &Synthesis{Audio: audio, Encoding: encoding, Backend: d.Name()}, nil
}

// SynthesizeStream converts text to audio, streaming chunks as the response
// body arrives.
func (d *DeepgramProvider) SynthesizeStream(ctx context.Context, text string, opts SynthesizeOptions) (*SynthesisStream, error) {
	resp, err := d.speakRequest(ctx, text, opts)
	if err != nil {
		return nil, err
	}

	stream := NewSynthesisStream(d.Name())
	go func() {
		defer resp.Body.Close()
		defer stream.FinishSending()
		buf := make([]byte, 4096)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !stream.Send(chunk) {
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					stream.SetError(err)
				}
				stream.Close()
				return
			}
		}
	}()
	return stream, nil
}
