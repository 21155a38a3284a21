// Package parser turns the line-oriented output of OS credential helpers into
// key/value records. Parsers are incremental: output may be fed in chunks of
// any size, and partial lines are buffered until their terminator arrives.
package parser

import (
	"strings"
	"sync"
)

// Record is one stored secret entry as reported by a credential helper
type Record map[string]string

// Get returns the first non-empty value among the given field names
func (r Record) Get(names ...string) string {
	for _, name := range names {
		if v := r[name]; v != "" {
			return v
		}
	}
	return ""
}

// Parser converts raw output chunks into records.
type Parser interface {
	// Feed consumes a chunk and returns the records completed by it.
	Feed(chunk []byte) []Record

	// Finish flushes buffered input and returns the remaining records,
	// normally just the one still open. An unterminated final line may close
	// one record and open another, so more than one can be returned.
	Finish() []Record
}

// lineBuffer splits a byte stream into lines across chunk boundaries
type lineBuffer struct {
	partial strings.Builder
}

// push appends a chunk and returns every line it completed, without terminators
func (b *lineBuffer) push(chunk []byte) []string {
	var lines []string
	data := string(chunk)
	for {
		idx := strings.IndexByte(data, '\n')
		if idx < 0 {
			b.partial.WriteString(data)
			return lines
		}
		b.partial.WriteString(data[:idx])
		lines = append(lines, strings.TrimSuffix(b.partial.String(), "\r"))
		b.partial.Reset()
		data = data[idx+1:]
	}
}

// flush returns the unterminated trailing line, if any
func (b *lineBuffer) flush() (string, bool) {
	if b.partial.Len() == 0 {
		return "", false
	}
	line := strings.TrimSuffix(b.partial.String(), "\r")
	b.partial.Reset()
	return line, true
}

// Writer adapts a Parser to io.Writer so it can consume process output
// as it streams.
type Writer struct {
	mu       sync.Mutex
	parser   Parser
	records  []Record
	finished bool
}

// NewWriter creates a writer feeding the given parser
func NewWriter(p Parser) *Writer {
	return &Writer{parser: p}
}

// Write feeds a chunk to the parser
func (w *Writer) Write(chunk []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.records = append(w.records, w.parser.Feed(chunk)...)
	return len(chunk), nil
}

// Records finishes the parser and returns every record seen, in input order
func (w *Writer) Records() []Record {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.finished {
		w.records = append(w.records, w.parser.Finish()...)
		w.finished = true
	}
	return w.records
}
