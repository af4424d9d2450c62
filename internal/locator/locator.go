package locator

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultOffset places the filename two segments before the trailing
// "revision/latest" pair used by the icon wiki.
const DefaultOffset = 3

// ErrMalformedLocator is returned when a filename cannot be derived from a locator.
var ErrMalformedLocator = errors.New("malformed locator")

// Result holds what Derive computes for a single locator.
type Result struct {
	// Filename is the decoded local file name.
	Filename string
	// URL is the locator re-encoded for transmission.
	URL string
}

// Normalizer derives local filenames and fetch-ready URLs from source locators.
type Normalizer struct {
	offset int
}

// NewNormalizer returns a Normalizer that takes the filename from the segment
// offset positions from the end of the path. Non-positive offsets fall back to DefaultOffset.
func NewNormalizer(offset int) *Normalizer {
	if offset <= 0 {
		offset = DefaultOffset
	}

	return &Normalizer{offset: offset}
}

var defaultNormalizer = NewNormalizer(DefaultOffset)

// Derive uses the default convention.
func Derive(locator string) (Result, error) {
	return defaultNormalizer.Derive(locator)
}

// Offset returns the configured segment offset.
func (n *Normalizer) Offset() int {
	return n.offset
}

// Derive maps a raw locator to its local filename and normalized URL.
// It performs no I/O and always returns the same result for the same input.
// A '%' that does not start a valid escape is kept as a literal character.
func (n *Normalizer) Derive(locator string) (Result, error) {
	p, err := split(locator)
	if err != nil {
		return Result{}, malformed(locator, err.Error())
	}

	segments := strings.Split(p.path, "/")
	if len(segments) < n.offset {
		return Result{}, malformed(locator, fmt.Sprintf("path has %d segments, need at least %d", len(segments), n.offset))
	}

	filename := unescape(segments[len(segments)-n.offset])
	if err := checkFilename(filename); err != nil {
		return Result{}, malformed(locator, err.Error())
	}

	encoded := make([]string, len(segments))
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		encoded[i] = EscapeSegment(strings.ReplaceAll(unescape(seg), " ", "_"))
	}

	var b strings.Builder
	b.WriteString(p.scheme)
	b.WriteString("://")
	b.WriteString(p.authority)
	b.WriteString(strings.Join(encoded, "/"))
	if p.query != "" {
		b.WriteByte('?')
		b.WriteString(p.query)
	}

	return Result{Filename: filename, URL: b.String()}, nil
}

type parts struct {
	scheme    string
	authority string
	path      string
	query     string
}

// split cuts a locator into scheme, authority, path and query without
// validating escapes. The fragment is dropped.
func split(raw string) (parts, error) {
	var p parts

	raw, _, _ = strings.Cut(raw, "#")

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || !validScheme(scheme) {
		return p, errors.New("missing scheme")
	}
	p.scheme = strings.ToLower(scheme)

	rest, p.query, _ = strings.Cut(rest, "?")

	if i := strings.IndexByte(rest, '/'); i >= 0 {
		p.authority, p.path = rest[:i], rest[i:]
	} else {
		p.authority = rest
	}

	host := p.authority
	if i := strings.LastIndexByte(host, '@'); i >= 0 {
		host = host[i+1:]
	}
	if host == "" {
		return p, errors.New("missing host")
	}

	return p, nil
}

func validScheme(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}

	return true
}

// unescape decodes %XX sequences and keeps any other '%' as is.
func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}

	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// EscapeSegment percent-encodes every byte outside the RFC 3986 unreserved set.
// Unlike url.PathEscape it also encodes sub-delimiters such as '(' ')' '&' '='.
func EscapeSegment(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}

	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}

	return false
}

// checkFilename rejects names that would escape the destination directory.
func checkFilename(name string) error {
	switch {
	case name == "":
		return errors.New("empty filename")
	case name == "." || name == "..":
		return fmt.Errorf("filename %q is a relative directory", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("filename %q contains a path separator", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("filename %q contains NUL", name)
	}

	return nil
}

func malformed(locator, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedLocator, locator, reason)
}
