package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FieldTargetName starts a new entry in credential manager listings
const FieldTargetName = "targetName"

var fieldPattern = regexp.MustCompile(`^\s*([^:]+?)\s*:\s?(.*)$`)

// WinCredParser parses the `Key Name: value` listing of the Windows
// credential manager helper. A repeated Target Name closes the entry
// collected so far, so one listing may carry several entries.
type WinCredParser struct {
	buf     lineBuffer
	current Record
}

// NewWinCredParser creates a parser for credential manager listings
func NewWinCredParser() *WinCredParser {
	return &WinCredParser{}
}

// Feed implements Parser
func (p *WinCredParser) Feed(chunk []byte) []Record {
	var out []Record
	for _, line := range p.buf.push(chunk) {
		out = p.processLine(line, out)
	}
	return out
}

// Finish implements Parser
func (p *WinCredParser) Finish() []Record {
	var out []Record
	if line, ok := p.buf.flush(); ok {
		out = p.processLine(line, out)
	}
	if len(p.current) > 0 {
		out = append(out, p.current)
	}
	p.current = nil
	return out
}

func (p *WinCredParser) processLine(line string, out []Record) []Record {
	if strings.TrimSpace(line) == "" {
		return out
	}
	m := fieldPattern.FindStringSubmatch(line)
	if m == nil {
		return out
	}
	key := NormalizeKey(m[1])
	if key == "" {
		return out
	}

	if key == FieldTargetName && p.current[FieldTargetName] != "" {
		out = append(out, p.current)
		p.current = nil
	}
	if p.current == nil {
		p.current = Record{}
	}
	p.current[key] = strings.TrimRight(m[2], " \t")
	return out
}

// NormalizeKey converts a display name such as "Target Name" to lowerCamelCase
func NormalizeKey(name string) string {
	words := strings.Fields(name)
	var sb strings.Builder
	for i, w := range words {
		w = strings.ToLower(w)
		if i > 0 {
			r, size := utf8.DecodeRuneInString(w)
			sb.WriteRune(unicode.ToUpper(r))
			w = w[size:]
		}
		sb.WriteString(w)
	}
	return sb.String()
}
