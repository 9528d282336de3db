package provider

// source.go cleans raw source bytes before JSON parsing. Record dumps
// exported from spreadsheets on Windows often start with a UTF-8 BOM, and
// older CMS exports contain stray Latin-1 bytes that would make the whole
// document invalid JSON.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// newSourceReader strips a leading BOM and replaces invalid UTF-8 bytes
// with '?', streaming.
func newSourceReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &utf8Sanitizer{r: br}
}

// utf8Sanitizer rewrites invalid bytes in place. A multi-byte rune split
// across reads is carried over to the next call.
type utf8Sanitizer struct {
	r       io.Reader
	carry   []byte
	scratch [utf8.UTFMax]byte
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n := copy(p, s.carry)
	s.carry = s.carry[:0]

	m, err := s.r.Read(p[n:])
	n += m
	if n == 0 {
		return 0, err
	}
	return s.clean(p[:n], err == io.EOF), err
}

func (s *utf8Sanitizer) clean(data []byte, atEOF bool) int {
	if !atEOF {
		if tail := partialRune(data); tail > 0 {
			s.carry = append(s.scratch[:0], data[len(data)-tail:]...)
			data = data[:len(data)-tail]
		}
	}
	if utf8.Valid(data) {
		return len(data)
	}

	w := 0
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			i++
			continue
		}
		w += copy(data[w:], data[i:i+size])
		i += size
	}
	return w
}

// partialRune returns how many trailing bytes start an incomplete rune.
func partialRune(data []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		b := data[len(data)-i]
		if !utf8.RuneStart(b) {
			continue
		}
		if b >= 0xC0 && !utf8.FullRune(data[len(data)-i:]) {
			return i
		}
		return 0
	}
	return 0
}
