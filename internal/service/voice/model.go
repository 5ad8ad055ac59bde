package voice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edgex-labs/edgex/backend/internal/model/speech"
)

const loadTimeout = 30 * time.Second

// Transcriber turns one utterance into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req speech.TranscriptionRequest) (speech.TranscriptionResponse, error)
}

// Loader prepares a Transcriber. It runs at most once per Model.
type Loader func(ctx context.Context) (Transcriber, error)

// Model loads the transcriber on first use and keeps the outcome for the
// lifetime of the process, including a failed load.
type Model struct {
	load Loader

	once        sync.Once
	mu          sync.RWMutex
	transcriber Transcriber
	err         error
	loaded      bool
}

func NewModel(load Loader) *Model {
	return &Model{load: load}
}

// Get returns the loaded transcriber or an error wrapping ErrModelUnavailable.
func (m *Model) Get(ctx context.Context) (Transcriber, error) {
	m.once.Do(func() {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		var (
			t   Transcriber
			err error
		)
		if m.load == nil {
			err = fmt.Errorf("no transcription backend configured")
		} else {
			t, err = m.load(loadCtx)
		}
		if err == nil && t == nil {
			err = fmt.Errorf("transcription backend returned nothing")
		}

		m.mu.Lock()
		m.transcriber, m.err, m.loaded = t, err, true
		m.mu.Unlock()

		if err != nil {
			slog.Error("transcription model failed to load", "component", "voice", "error", err)
			return
		}
		slog.Info("transcription model loaded", "component", "voice")
	})

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, m.err)
	}
	return m.transcriber, nil
}

// Status reports whether a load was attempted and how it ended.
func (m *Model) Status() (loaded bool, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded, m.err
}

// WhisperLoader probes the endpoint before handing out the client.
func WhisperLoader(cfg WhisperConfig) Loader {
	return func(ctx context.Context) (Transcriber, error) {
		client, err := NewWhisperClient(cfg)
		if err != nil {
			return nil, err
		}
		if err := client.Probe(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
}
