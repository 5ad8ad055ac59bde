package voice

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgex-labs/edgex/backend/internal/model/speech"
)

func TestWhisperClientTranscribe(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "en" {
			t.Errorf("unexpected form %v", r.MultipartForm.Value)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if string(data) != "RIFF" || header.Filename != "utterance.wav" {
			t.Errorf("unexpected file %q %q", header.Filename, data)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  Hello class  ","language":"en","duration":1.5}`)
	}))
	defer server.Close()

	client, err := NewWhisperClient(WhisperConfig{Endpoint: server.URL, APIKey: "secret", Language: "en"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resp, err := client.Transcribe(context.Background(), speech.TranscriptionRequest{Audio: strings.NewReader("RIFF"), Format: "wav"})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if resp.Text != "Hello class" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected duration %v", resp.Duration)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls)
	}
}

func TestWhisperClientFailureIsFinal(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable} {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "upstream trouble", status)
		}))

		client, err := NewWhisperClient(WhisperConfig{Endpoint: server.URL})
		if err != nil {
			server.Close()
			t.Fatalf("new client: %v", err)
		}
		_, err = client.Transcribe(context.Background(), speech.TranscriptionRequest{Audio: strings.NewReader("abc")})
		server.Close()

		if err == nil || !strings.Contains(err.Error(), strconv.Itoa(status)) {
			t.Fatalf("status %d: expected status error, got %v", status, err)
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Fatalf("status %d: expected one upstream request for one utterance, got %d", status, got)
		}
	}
}

func TestWhisperClientNetworkErrorIsFinal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client, err := NewWhisperClient(WhisperConfig{Endpoint: endpoint, Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	start := time.Now()
	if _, err := client.Transcribe(context.Background(), speech.TranscriptionRequest{Audio: strings.NewReader("abc")}); err == nil {
		t.Fatal("expected connection error")
	}
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Fatalf("transcribe took %v, expected an immediate failure", elapsed)
	}
}

func TestNewWhisperClientRequiresEndpoint(t *testing.T) {
	if _, err := NewWhisperClient(WhisperConfig{}); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
	if _, err := NewWhisperClient(WhisperConfig{Endpoint: "not a url"}); err == nil {
		t.Fatal("expected error for invalid endpoint")
	}
}

func TestWhisperProbeAcceptsMethodNotAllowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	client, err := NewWhisperClient(WhisperConfig{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Probe(context.Background()); err != nil {
		t.Fatalf("probe: %v", err)
	}
}
