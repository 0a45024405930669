package sse

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

const readSize = 4096

// Reader reassembles the text of a chat-completion event stream. Bytes are
// buffered until a full line is available, so multi-byte characters and
// events split across reads come out intact.
type Reader struct {
	src     io.Reader
	buf     []byte
	text    strings.Builder
	done    bool
	onDelta func(delta, full string)
}

func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// OnDelta registers a callback run after every appended fragment with the
// fragment and the text so far.
func (r *Reader) OnDelta(fn func(delta, full string)) {
	r.onDelta = fn
}

// Text is the explanation assembled so far.
func (r *Reader) Text() string {
	return r.text.String()
}

// Done reports whether the [DONE] sentinel has been seen.
func (r *Reader) Done() bool {
	return r.done
}

// ReadAll consumes the stream until [DONE] or EOF and returns the assembled
// text. A read error returns the partial text with the error.
func (r *Reader) ReadAll() (string, error) {
	chunk := make([]byte, readSize)
	for !r.done {
		n, err := r.src.Read(chunk)
		if n > 0 {
			r.buf = append(r.buf, chunk[:n]...)
			r.drain()
		}
		if err == io.EOF {
			r.flush()
			break
		}
		if err != nil {
			return r.Text(), err
		}
	}
	return r.Text(), nil
}

// drain handles every complete line in the buffer. A data line that is not
// valid JSON goes back on the front of the buffer and draining stops until
// more bytes arrive.
func (r *Reader) drain() {
	for !r.done {
		idx := bytes.IndexByte(r.buf, '\n')
		if idx < 0 {
			return
		}
		line := string(r.buf[:idx])
		r.buf = r.buf[idx+1:]

		if !r.handleLine(line) {
			r.buf = append([]byte(line+"\n"), r.buf...)
			return
		}
	}
}

// flush processes whatever is left once the stream has ended. Nothing more
// can arrive, so unparseable lines are dropped instead of pushed back.
func (r *Reader) flush() {
	if len(r.buf) == 0 {
		return
	}
	rest := string(r.buf)
	r.buf = nil
	for _, line := range strings.Split(rest, "\n") {
		if r.done {
			return
		}
		r.handleLine(line)
	}
}

// handleLine returns false only for a data line whose payload is not valid
// JSON.
func (r *Reader) handleLine(line string) bool {
	line = strings.TrimSuffix(line, "\r")
	if strings.HasPrefix(line, ":") || strings.TrimSpace(line) == "" {
		return true
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return true
	}

	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == DonePayload {
		r.done = true
		return true
	}

	var c Chunk
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return false
	}

	if delta := c.Content(); delta != "" {
		r.text.WriteString(delta)
		if r.onDelta != nil {
			r.onDelta(delta, r.text.String())
		}
	}
	return true
}
