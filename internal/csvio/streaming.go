package csvio

// streaming.go provides memory-efficient reader wrappers for export files.
//
// Export files from the warehouse systems regularly arrive with a UTF-8 BOM
// (Windows tooling) and the occasional invalid byte sequence. These wrappers
// fix both on the fly so the tokenizer only ever sees clean UTF-8, without
// buffering the whole file:
//
//   - utf8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - bomReader: strips a leading 0xEF 0xBB 0xBF
//   - CountingReader: tracks bytes consumed for progress reporting
//
// Use WrapReader to apply all three in the correct order.

import (
	"io"
	"unicode/utf8"
)

// utf8Sanitizer wraps an io.Reader and replaces invalid UTF-8 sequences
// with '?' as data streams through. Memory usage is O(buffer size).
type utf8Sanitizer struct {
	reader io.Reader

	// Bytes held back from the previous read that may be the start of a
	// multi-byte sequence split across reads.
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset

	if n == 0 {
		return 0, err
	}

	// Fast path: export data is overwhelmingly ASCII.
	if allASCII(p[:n]) {
		return n, err
	}

	sanitized := s.sanitize(p[:n], err == io.EOF)
	return sanitized, err
}

func allASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place, replacing invalid bytes with '?'.
// Returns the number of valid bytes. When not at EOF, an incomplete
// trailing sequence is saved to pending for the next read.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if trailing := incompleteTrailing(data); trailing > 0 {
				s.pending = append(s.pending, data[len(data)-trailing:]...)
				return len(data) - trailing
			}
		}
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])

		if !atEOF && read+size >= len(data) && incompleteRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		if r == utf8.RuneError && size == 1 {
			// '?' keeps the replacement single-byte so the rewrite
			// never expands the buffer.
			data[write] = '?'
			write++
			read++
		} else {
			copy(data[write:], data[read:read+size])
			write += size
			read += size
		}
	}

	return write
}

// incompleteTrailing returns how many bytes at the end of data could be the
// start of a multi-byte sequence that has not fully arrived yet.
func incompleteTrailing(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < seqLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// seqLen returns the expected length of a UTF-8 sequence starting with b.
func seqLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0 // continuation byte
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

func incompleteRune(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	return seqLen(data[0]) > len(data)
}

// bomReader wraps an io.Reader and skips a leading UTF-8 BOM if present.
type bomReader struct {
	reader  io.Reader
	checked bool
	buf     [3]byte
	held    []byte
	offset  int
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{reader: r}
}

func (r *bomReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		n, err := io.ReadFull(r.reader, r.buf[:])
		if n == 0 {
			return 0, err
		}

		if n >= 3 && r.buf[0] == 0xEF && r.buf[1] == 0xBB && r.buf[2] == 0xBF {
			r.held = nil
		} else {
			r.held = r.buf[:n]
			r.offset = 0
		}

		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}

		if len(r.held) > 0 {
			copied := copy(p, r.held[r.offset:])
			r.offset += copied
			if r.offset >= len(r.held) {
				r.held = nil
			}
			if copied < len(p) && err != io.EOF {
				n2, err2 := r.reader.Read(p[copied:])
				return copied + n2, err2
			}
			return copied, err
		}
	}

	if len(r.held) > r.offset {
		copied := copy(p, r.held[r.offset:])
		r.offset += copied
		if r.offset >= len(r.held) {
			r.held = nil
		}
		return copied, nil
	}

	return r.reader.Read(p)
}

// CountingReader wraps an io.Reader and tracks bytes consumed. Used for
// byte-based progress when the total row count of a file is unknown.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // 0 when unknown
}

func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Percent returns consumed bytes as a 0-100 percentage, 0 if total unknown.
func (r *CountingReader) Percent() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// WrapReader prepares a raw upload stream for tokenizing: BOM stripped first,
// then UTF-8 sanitized, then byte counting around everything for progress.
func WrapReader(r io.Reader, totalSize int64) *CountingReader {
	return &CountingReader{
		reader: newUTF8Sanitizer(newBOMReader(r)),
		Total:  totalSize,
	}
}
