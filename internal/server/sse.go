package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/jonathan/application-assistant/internal/generation"
	"github.com/jonathan/application-assistant/internal/types"
)

// Event names on the package stream.
const (
	eventProgress = "progress"
	eventComplete = "complete"
	eventError    = "error"
)

var errStreamingUnsupported = errors.New("streaming not supported")

// SSEWriter writes numbered Server-Sent Events. Tools running concurrently
// report progress from several goroutines, so writes are serialized.
type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	seq     int
}

// NewSSEWriter sets the event-stream headers on w.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent encodes data as JSON and sends it under the given event name.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteProgress matches generation.ProgressCallback.
func (s *SSEWriter) WriteProgress(event generation.ProgressEvent) {
	_ = s.WriteEvent(eventProgress, event)
}

// WriteError sends a terminal error event with a client-safe message.
func (s *SSEWriter) WriteError(message string) {
	_ = s.WriteEvent(eventError, ErrorResponse{Error: message})
}

// WriteComplete sends the final package outcome.
func (s *SSEWriter) WriteComplete(outcome types.PackageOutcome) {
	_ = s.WriteEvent(eventComplete, outcome)
}
