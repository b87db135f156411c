package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// LineTerminator ends every record in both directions.
const LineTerminator = '\n'

// ErrPartialRecord is returned when the stream ends in the middle of a line.
// The incomplete bytes are never handed to a caller as a record.
var ErrPartialRecord = errors.New("stream ended inside a record")

// ErrEmbeddedNewline is returned when a token would split a record in two.
var ErrEmbeddedNewline = errors.New("token contains a line break")

// ParseLine tokenizes a raw record on whitespace.
// Returns false for blank or whitespace-only input.
func ParseLine(raw string) (Line, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Line{}, false
	}
	return Line{Verb: fields[0], Args: fields[1:]}, true
}

// FormatLine formats a record for transmission: tokens joined by single
// spaces followed by exactly one terminator.
func FormatLine(verb string, args ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString(verb)
	for _, arg := range args {
		buf.WriteByte(' ')
		buf.WriteString(arg)
	}
	buf.WriteByte(LineTerminator)
	return buf.Bytes()
}

// FormatRaw terminates an already assembled response body.
// An empty body still produces one (empty) record.
func FormatRaw(body string) []byte {
	out := make([]byte, 0, len(body)+1)
	out = append(out, body...)
	return append(out, LineTerminator)
}

// Reader reads whole records from a stream.
type Reader struct {
	reader *bufio.Reader
}

// NewReader creates a record reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{reader: bufio.NewReader(r)}
}

// ReadRecord blocks until a complete record is available and returns it
// without its terminator (a trailing "\r" is dropped as well).
// At end of stream it returns io.EOF, or ErrPartialRecord if unterminated
// bytes were pending.
func (r *Reader) ReadRecord() (string, error) {
	s, err := r.reader.ReadString(LineTerminator)
	if err != nil {
		if errors.Is(err, io.EOF) && len(s) > 0 {
			return "", ErrPartialRecord
		}
		return "", err
	}
	s = strings.TrimSuffix(s, string(LineTerminator))
	return strings.TrimSuffix(s, "\r"), nil
}

// Writer writes records. Each record goes out in a single Write call, so an
// unbuffered destination (a pipe) sees it immediately.
// Writer is not safe for concurrent use.
type Writer struct {
	w io.Writer
}

// NewWriter creates a record writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteLine writes verb and args as one record.
func (w *Writer) WriteLine(verb string, args ...string) error {
	if strings.ContainsAny(verb, "\r\n") {
		return ErrEmbeddedNewline
	}
	for _, a := range args {
		if strings.ContainsAny(a, "\r\n") {
			return ErrEmbeddedNewline
		}
	}
	_, err := w.w.Write(FormatLine(verb, args...))
	return err
}

// WriteResponse writes a query response body as one record.
func (w *Writer) WriteResponse(body string) error {
	if strings.ContainsAny(body, "\r\n") {
		return ErrEmbeddedNewline
	}
	_, err := w.w.Write(FormatRaw(body))
	return err
}
