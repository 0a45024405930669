package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var ErrStreamingUnsupported = errors.New("streaming unsupported by response writer")

// Writer emits chat-completion chunks on an HTTP response, flushing after
// every event.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	id      string
	model   string
	created int64
	started bool
}

func NewWriter(w http.ResponseWriter, model string) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &Writer{
		w:       w,
		flusher: flusher,
		id:      "chatcmpl-" + uuid.NewString(),
		model:   model,
		created: time.Now().Unix(),
	}, nil
}

func (s *Writer) ID() string {
	return s.id
}

// Start writes the event-stream headers. It is called implicitly by the
// first event.
func (s *Writer) Start() {
	if s.started {
		return
	}
	s.started = true

	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

func (s *Writer) Started() bool {
	return s.started
}

func (s *Writer) Delta(content string) error {
	if content == "" {
		return nil
	}
	return s.writeChunk(ChunkDelta{Content: content}, nil)
}

// Done closes the stream with a stop chunk and the [DONE] sentinel.
func (s *Writer) Done() error {
	stop := "stop"
	if err := s.writeChunk(ChunkDelta{}, &stop); err != nil {
		return err
	}
	return s.write(dataPrefix + DonePayload + "\n\n")
}

func (s *Writer) writeChunk(delta ChunkDelta, finish *string) error {
	payload, err := json.Marshal(Chunk{
		ID:      s.id,
		Object:  chunkObject,
		Created: s.created,
		Model:   s.model,
		Choices: []ChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
	})
	if err != nil {
		return err
	}
	return s.write(dataPrefix + string(payload) + "\n\n")
}

func (s *Writer) write(event string) error {
	s.Start()
	if _, err := fmt.Fprint(s.w, event); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}
