package rowsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"
)

// NewCSV reads a CSV extract. The stream is wrapped to skip a UTF-8 BOM
// and replace invalid byte sequences, since the extracts come from
// Windows exports with unreliable encodings. Quoting is lenient and rows
// may have ragged widths; short rows simply leave trailing columns
// empty.
func NewCSV(r io.Reader) (*recordReader, error) {
	cr := csv.NewReader(newSanitizingReader(newBOMSkippingReader(r)))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return newRecordReader(header, cr.Read), nil
}

// bomSkippingReader drops a leading UTF-8 BOM (0xEF 0xBB 0xBF) if one is
// present, passing everything else through untouched.
type bomSkippingReader struct {
	r       io.Reader
	checked bool
	buf     []byte
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{r: r}
}

func (b *bomSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head := make([]byte, 3)
		n, err := io.ReadFull(b.r, head)
		if n >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
			// BOM found, drop it.
		} else {
			b.buf = head[:n]
		}
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
	}
	if len(b.buf) > 0 {
		n := copy(p, b.buf)
		b.buf = b.buf[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// sanitizingReader replaces invalid UTF-8 sequences with the replacement
// rune so the CSV decoder never chokes on stray Windows-1252 bytes. A
// multi-byte rune split across reads is held back until completed.
type sanitizingReader struct {
	r       io.Reader
	pending []byte
	out     []byte
}

func newSanitizingReader(r io.Reader) *sanitizingReader {
	return &sanitizingReader{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *sanitizingReader) Read(p []byte) (int, error) {
	if len(s.out) > 0 {
		n := copy(p, s.out)
		s.out = s.out[n:]
		return n, nil
	}

	buf := make([]byte, 4096)
	n, err := s.r.Read(buf)
	if n == 0 {
		if err == io.EOF && len(s.pending) > 0 {
			// Truncated rune at end of stream.
			s.out = []byte(string(utf8.RuneError))
			s.pending = s.pending[:0]
			m := copy(p, s.out)
			s.out = s.out[m:]
			return m, nil
		}
		return 0, err
	}

	data := append(s.pending, buf[:n]...)
	s.pending = s.pending[:0]
	atEOF := err == io.EOF

	var clean []byte
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			if !atEOF && !utf8.FullRune(data) {
				// Possibly a rune split across reads.
				s.pending = append(s.pending, data...)
				break
			}
			clean = append(clean, []byte(string(utf8.RuneError))...)
			data = data[1:]
			continue
		}
		clean = append(clean, data[:size]...)
		data = data[size:]
	}

	s.out = clean
	m := copy(p, s.out)
	s.out = s.out[m:]
	if len(s.out) > 0 {
		return m, nil
	}
	return m, err
}
