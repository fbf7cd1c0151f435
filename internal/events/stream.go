package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// StreamWriter encodes events as server-sent-event data frames
// ("data: {json}\n\n"), flushing after each frame when the writer supports it.
// Once a write fails the writer goes quiet: the run keeps going without a
// consumer.
type StreamWriter struct {
	mu     sync.Mutex
	w      io.Writer
	broken error
}

// NewStreamWriter returns a writer framing events onto w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w}
}

// Emit writes one frame.
func (s *StreamWriter) Emit(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken != nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		s.broken = err
		return
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	if _, err := s.w.Write(frame); err != nil {
		s.broken = err
		return
	}
	if flusher, ok := s.w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Err returns the first write or encode failure.
func (s *StreamWriter) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broken
}

// ReadStream decodes "data: {json}" frames from r, calling fn for each event
// in order. Lines that are not data frames are ignored. It stops at EOF or at
// the first error returned by fn.
func ReadStream(r io.Reader, fn func(Event) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &evt); err != nil {
			return fmt.Errorf("decode event frame: %w", err)
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
	return scanner.Err()
}
