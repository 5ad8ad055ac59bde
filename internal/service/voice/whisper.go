package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edgex-labs/edgex/backend/internal/model/speech"
)

const (
	defaultWhisperModel = "whisper-1"
	maxAudioBytes       = 25 << 20
)

// WhisperConfig points at an OpenAI-compatible /audio/transcriptions endpoint.
type WhisperConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// WhisperClient transcribes audio through a Whisper-compatible HTTP API.
type WhisperClient struct {
	cfg  WhisperConfig
	http *http.Client
}

// NewWhisperClient validates cfg and returns a client.
func NewWhisperClient(cfg WhisperConfig) (*WhisperClient, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("whisper endpoint is not configured")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid whisper endpoint %q", endpoint)
	}
	cfg.Endpoint = endpoint
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &WhisperClient{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Probe checks that the endpoint answers. Any non-5xx status counts, since
// transcription endpoints usually reject GET.
func (c *WhisperClient) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint, nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

// Transcribe uploads one utterance and returns its text. It makes a single
// attempt; any failure is final for that utterance.
func (c *WhisperClient) Transcribe(ctx context.Context, req speech.TranscriptionRequest) (speech.TranscriptionResponse, error) {
	if req.Audio == nil {
		return speech.TranscriptionResponse{}, errors.New("no audio")
	}
	audio, err := io.ReadAll(io.LimitReader(req.Audio, maxAudioBytes+1))
	if err != nil {
		return speech.TranscriptionResponse{}, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return speech.TranscriptionResponse{}, errors.New("no audio")
	}
	if len(audio) > maxAudioBytes {
		return speech.TranscriptionResponse{}, errors.New("audio too large")
	}

	language := req.Language
	if language == "" {
		language = c.cfg.Language
	}
	filename := req.Filename
	if filename == "" {
		format := req.Format
		if format == "" {
			format = "webm"
		}
		filename = "utterance." + format
	}

	started := time.Now()
	payload, err := c.post(ctx, audio, filename, language)
	if err != nil {
		return speech.TranscriptionResponse{}, err
	}

	duration := time.Duration(payload.Duration * float64(time.Second))
	if duration == 0 {
		duration = time.Since(started)
	}
	return speech.TranscriptionResponse{
		Text:      strings.TrimSpace(payload.Text),
		Language:  payload.Language,
		Duration:  duration,
		CreatedAt: time.Now(),
	}, nil
}

func (c *WhisperClient) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

func (c *WhisperClient) post(ctx context.Context, audio []byte, filename, language string) (whisperResponse, error) {
	body, contentType, err := buildMultipart(audio, filename, c.cfg.Model, language)
	if err != nil {
		return whisperResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return whisperResponse{}, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	c.authorize(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return whisperResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return whisperResponse{}, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}

	var payload whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return whisperResponse{}, fmt.Errorf("decode whisper response: %w", err)
	}
	return payload, nil
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("whisper returned status %d", e.code)
	}
	return fmt.Sprintf("whisper returned status %d: %s", e.code, e.body)
}

func buildMultipart(audio []byte, filename, model, language string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	fields := map[string]string{"model": model, "response_format": "json"}
	if language != "" {
		fields["language"] = language
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
