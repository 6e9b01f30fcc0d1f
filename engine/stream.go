package engine

import (
	"bufio"
	"io"
	"os"
)

// Stream is an open I/O channel addressed by an integer handle. Streams are
// opened and closed by explicit built-ins; nothing closes them on backtrack.
type Stream struct {
	Name   string
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
}

// NewInputStream wraps a reader.
func NewInputStream(name string, r io.Reader) *Stream {
	s := &Stream{Name: name, reader: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewOutputStream wraps a writer.
func NewOutputStream(name string, w io.Writer) *Stream {
	s := &Stream{Name: name, writer: w}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// StreamTable is the process-visible handle table. Handles 0, 1 and 2 are
// pre-registered to the standard streams.
type StreamTable struct {
	streams []*Stream
}

// NewStreamTable creates a table with the standard streams registered.
func NewStreamTable() *StreamTable {
	return &StreamTable{streams: []*Stream{
		NewInputStream("stdin", os.Stdin),
		NewOutputStream("stdout", os.Stdout),
		NewOutputStream("stderr", os.Stderr),
	}}
}

// Add registers a stream and returns its handle.
func (t *StreamTable) Add(s *Stream) int {
	for i, old := range t.streams {
		if old == nil {
			t.streams[i] = s
			return i
		}
	}
	t.streams = append(t.streams, s)
	return len(t.streams) - 1
}

// Get returns the stream behind a handle.
func (t *StreamTable) Get(h int) (*Stream, bool) {
	if h < 0 || h >= len(t.streams) || t.streams[h] == nil {
		return nil, false
	}
	return t.streams[h], true
}

// Close closes a stream and frees its handle. The standard handles cannot be
// closed.
func (t *StreamTable) Close(h int) error {
	if h < 3 {
		return &RuntimeError{Msg: "cannot close a standard stream"}
	}
	s, ok := t.Get(h)
	if !ok {
		return &RuntimeError{Msg: "unknown stream handle"}
	}
	t.streams[h] = nil
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// SetUserInput replaces the stream behind handle 0.
func (vm *VM) SetUserInput(r io.Reader) {
	vm.Streams.streams[0] = NewInputStream("user_input", r)
}

// SetUserOutput replaces the stream behind handle 1.
func (vm *VM) SetUserOutput(w io.Writer) {
	vm.Streams.streams[1] = NewOutputStream("user_output", w)
}
