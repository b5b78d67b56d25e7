package proto

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"

	maelstrom "github.com/jepsen-io/maelstrom/demo/go"
)

var null = []byte("null")

// header is the part of every body that is independent of the payload.
type header struct {
	Type      string  `json:"type"`
	MsgID     *uint64 `json:"msg_id"`
	InReplyTo *uint64 `json:"in_reply_to"`
}

// Decoder turns input lines into envelopes using a fixed vocabulary.
type Decoder struct {
	vocab Vocabulary
}

func NewDecoder(vocab Vocabulary) *Decoder {
	return &Decoder{vocab: vocab}
}

// Decode parses one JSON value. Unknown top-level and body fields are
// ignored; absent msg_id / in_reply_to decode to nil. Every failure wraps
// ErrMalformed.
func (d *Decoder) Decode(line []byte) (Envelope, error) {
	var frame maelstrom.Message
	if err := json.Unmarshal(line, &frame); err != nil {
		return Envelope{}, malformed(err, "envelope")
	}
	if frame.Src == "" {
		return Envelope{}, malformed(nil, "missing src")
	}
	if frame.Dest == "" {
		return Envelope{}, malformed(nil, "missing dest")
	}
	raw := bytes.TrimSpace(frame.Body)
	if len(raw) == 0 || bytes.Equal(raw, null) {
		return Envelope{}, malformed(nil, "missing body")
	}

	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		return Envelope{}, malformed(err, "body")
	}
	if h.Type == "" {
		return Envelope{}, malformed(nil, "missing body type")
	}
	variant, ok := d.vocab[h.Type]
	if !ok {
		return Envelope{}, malformed(nil, "unknown type %q", h.Type)
	}
	if len(variant.required) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Envelope{}, malformed(err, "%s body", h.Type)
		}
		for _, f := range variant.required {
			if _, ok := fields[f]; !ok {
				return Envelope{}, malformed(nil, "%s: missing field %q", h.Type, f)
			}
		}
	}
	payload, err := variant.decode(raw)
	if err != nil {
		return Envelope{}, malformed(err, "%s payload", h.Type)
	}

	return Envelope{
		Src:  frame.Src,
		Dest: frame.Dest,
		Body: Body{MsgID: h.MsgID, InReplyTo: h.InReplyTo, Payload: payload},
	}, nil
}

// Encoder writes one envelope per line and flushes after each one.
type Encoder struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

func (e *Encoder) Encode(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return err
	}
	return e.w.Flush()
}

// LineReader splits a stream into lines of arbitrary length.
type LineReader struct {
	r *bufio.Reader
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, 64<<10)}
}

// Next returns the next line without its terminator. A final line with no
// terminator is still returned; io.EOF follows it.
func (l *LineReader) Next() ([]byte, error) {
	line, err := l.r.ReadBytes('\n')
	if len(line) > 0 {
		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return line, nil
	}
	return nil, err
}
