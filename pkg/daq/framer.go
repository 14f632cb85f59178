package daq

import (
	"bytes"
	"strings"
)

// RawLine is a decoded text line together with its arrival order.
type RawLine struct {
	Seq  uint64
	Text string
}

// LineFramer splits a byte stream into newline-delimited lines.
// Partial lines are kept until their terminator arrives. Invalid UTF-8 is
// dropped and surrounding whitespace (including '\r') is trimmed.
type LineFramer struct {
	buf bytes.Buffer
	seq uint64
}

// Feed appends raw bytes read from the transport.
func (f *LineFramer) Feed(p []byte) {
	f.buf.Write(p)
}

// Next returns the next complete line, if any.
func (f *LineFramer) Next() (RawLine, bool) {
	data := f.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		return RawLine{}, false
	}

	text := decode(data[:idx])
	f.buf.Next(idx + 1)
	f.seq++

	return RawLine{Seq: f.seq, Text: text}, true
}

// Pending returns the number of buffered bytes that do not yet form a line.
func (f *LineFramer) Pending() int {
	return f.buf.Len()
}

// Reset discards any partial line.
func (f *LineFramer) Reset() {
	f.buf.Reset()
}

func decode(b []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(b), ""))
}
