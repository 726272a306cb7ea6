// Package logbuf accumulates incremental server log output.
//
// A Buffer is an append-only string plus the offset watermark used to ask
// the server for the next chunk. Offsets are byte offsets because the
// server seeks a byte position in its log file.
//
// The buffer has no size bound. A server that logs forever grows the
// buffer forever; rendering code reads Tail instead of the whole text so
// the cost of a long session is memory, not redraw time.
//
// Append is not idempotent: appending a chunk that was already delivered
// duplicates it. Deciding whether a chunk is fresh belongs to the caller,
// which knows which offset the chunk was requested from.
package logbuf

import "strings"

// Buffer holds accumulated log text. The zero value is an empty buffer.
type Buffer struct {
	text   string
	length int
}

// New returns a buffer that starts with text already delivered.
func New(text string) Buffer {
	return Buffer{text: text, length: len(text)}
}

// Append returns a new buffer with chunk added at the tail. An empty chunk
// returns b unchanged.
func (b Buffer) Append(chunk string) Buffer {
	if chunk == "" {
		return b
	}
	return Buffer{
		text:   b.text + chunk,
		length: len(b.text) + len(chunk),
	}
}

// Text returns the accumulated text.
func (b Buffer) Text() string {
	return b.text
}

// Len returns the offset watermark: the number of bytes delivered so far.
// This is the offset to request the next increment from.
func (b Buffer) Len() int {
	return b.length
}

// Empty reports whether nothing has been delivered yet.
func (b Buffer) Empty() bool {
	return b.length == 0
}

// Lines splits the text into lines. A trailing newline does not produce an
// empty final line.
func (b Buffer) Lines() []string {
	if b.text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(b.text, "\n"), "\n")
}

// Tail returns at most the last n lines joined with newlines.
func (b Buffer) Tail(n int) string {
	if n <= 0 {
		return ""
	}
	lines := b.Lines()
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
