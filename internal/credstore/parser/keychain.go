package parser

import (
	"regexp"
	"strings"
)

const (
	// HeaderKeychain opens a new entry in `security dump-keychain` output
	HeaderKeychain = "keychain"

	attributesMarker = "attributes:"
)

var (
	// key: value, key: "value"
	metaPattern = regexp.MustCompile(`^([\w-]+):\s*(.*)$`)

	// "acct"<blob>="value", 0x00000007 <blob>=<NULL>, "cdat"<timedate>=0x3230... "2018..."
	propertyPattern = regexp.MustCompile(
		`^\s+(?:"([^"]{4})"|0x[0-9A-Fa-f]+)\s*<\w+>=(?:(<NULL>)|"(.*)"|(0x[0-9A-Fa-f]*)(?:\s+"(.*)")?)\s*$`)
)

type keychainState int

const (
	seekingHeader keychainState = iota
	seekingAttributes
	collectingProperties
)

// KeychainParser parses the output of `security dump-keychain`.
// Each entry starts with a `keychain: "..."` header, continues with meta
// lines up to `attributes:`, and ends at the first line that is not a
// property.
type KeychainParser struct {
	buf     lineBuffer
	state   keychainState
	current Record
}

// NewKeychainParser creates a parser for keychain dumps
func NewKeychainParser() *KeychainParser {
	return &KeychainParser{}
}

// Feed implements Parser
func (p *KeychainParser) Feed(chunk []byte) []Record {
	var out []Record
	for _, line := range p.buf.push(chunk) {
		out = p.processLine(line, out)
	}
	return out
}

// Finish implements Parser
func (p *KeychainParser) Finish() []Record {
	var out []Record
	if line, ok := p.buf.flush(); ok {
		out = p.processLine(line, out)
	}

	if p.current != nil {
		out = append(out, p.current)
	}
	p.current = nil
	p.state = seekingHeader
	return out
}

func (p *KeychainParser) processLine(line string, out []Record) []Record {
	switch p.state {
	case seekingHeader:
		p.openIfHeader(line)

	case seekingAttributes:
		if strings.TrimSpace(line) == attributesMarker {
			p.state = collectingProperties
			return out
		}
		m := metaPattern.FindStringSubmatch(line)
		if m == nil {
			return out
		}
		if m[1] == HeaderKeychain {
			out = append(out, p.current)
			p.current = nil
			p.state = seekingHeader
			p.openIfHeader(line)
			return out
		}
		p.current[m[1]] = unquote(m[2])

	case collectingProperties:
		m := propertyPattern.FindStringSubmatch(line)
		if m == nil {
			out = append(out, p.current)
			p.current = nil
			p.state = seekingHeader
			p.openIfHeader(line)
			return out
		}
		if name := m[1]; name != "" {
			p.current[name] = propertyValue(m)
		}
	}
	return out
}

func (p *KeychainParser) openIfHeader(line string) {
	m := metaPattern.FindStringSubmatch(line)
	if m == nil || m[1] != HeaderKeychain {
		return
	}
	p.current = Record{HeaderKeychain: unquote(m[2])}
	p.state = seekingAttributes
}

// propertyValue picks the most readable form of a property value:
// the quoted string when present, else the raw hex blob, else empty for <NULL>
func propertyValue(m []string) string {
	switch {
	case m[2] != "":
		return ""
	case m[4] != "":
		if m[5] != "" {
			return m[5]
		}
		return m[4]
	default:
		return m[3]
	}
}

func unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		return v[1 : len(v)-1]
	}
	return v
}
