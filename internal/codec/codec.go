package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wagiedev/crane-service-go/internal/errors"
)

// DefaultMaxLineSize is the largest worker output line the decoder buffers
// before discarding it.
const DefaultMaxLineSize = 16 * 1024 * 1024 // 16MB

// Request is one framed call to the worker.
//
// Wire format:
//
//	{"method": "initialize", "params": {"model_path": "/models/m1"}}
//
// ID is only written when id-correlated matching is enabled.
type Request struct {
	ID     *uint64 `json:"id,omitempty"`
	Method string  `json:"method"`
	Params any     `json:"params"`
}

// Response is one decoded worker reply.
//
// Wire format for success:
//
//	{"result": <any>}
//
// Wire format for error:
//
//	{"error": "<message>"}
type Response struct {
	// ID is the echoed request id, if the worker sent one.
	ID *uint64

	// Result is the raw result value. It is nil when the reply had no result.
	Result json.RawMessage

	// Error is the worker's error text. Empty means success.
	Error string
}

// IsError reports whether the reply is a failure.
func (r *Response) IsError() bool {
	return r.Error != ""
}

// wireResponse mirrors the reply line before error normalisation.
type wireResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Encode serializes a request as a single newline-terminated line.
func Encode(req *Request) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	// Encoder.Encode terminates the value with '\n'.
	if err := enc.Encode(req); err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Method, err)
	}

	return buf.Bytes(), nil
}

// Parse decodes one complete line into a Response.
//
// The line must hold a JSON object. Anything else yields a *errors.ProtocolError.
func Parse(line []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &errors.ProtocolError{
			RawData: string(line),
			Err:     fmt.Errorf("not a JSON object"),
		}
	}

	var wire wireResponse
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, &errors.ProtocolError{
			RawData: string(line),
			Err:     err,
		}
	}

	resp := &Response{
		Result: wire.Result,
		Error:  errorText(wire.Error),
	}

	if len(wire.ID) > 0 {
		var id uint64
		if err := json.Unmarshal(wire.ID, &id); err == nil {
			resp.ID = &id
		}
	}

	return resp, nil
}

// errorText normalises the "error" field. Absent, null and empty-string
// errors mean success; non-string values are reported as raw JSON.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}

// Decoder splits a continuous byte stream into newline-delimited lines.
//
// Bytes received since the last newline are held in a line buffer. Each call
// to Feed appends a chunk and returns every line it completed; the trailing
// fragment stays buffered until its newline arrives. Decoder is not safe for
// concurrent use; the supervisor feeds it from a single goroutine.
type Decoder struct {
	buf         []byte
	maxLineSize int
	discarding  bool
}

// NewDecoder creates a decoder. A non-positive maxLineSize selects
// DefaultMaxLineSize.
func NewDecoder(maxLineSize int) *Decoder {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}

	return &Decoder{maxLineSize: maxLineSize}
}

// Feed appends chunk to the line buffer and returns the complete, non-blank
// lines it produced, in order.
//
// A line longer than the maximum size is dropped through its terminating
// newline and reported once per call as a *errors.ProtocolError wrapping
// errors.ErrLineTooLong. Lines returned before or after it are unaffected.
func (d *Decoder) Feed(chunk []byte) ([][]byte, error) {
	var (
		lines [][]byte
		err   error
	)

	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			if d.discarding {
				return lines, err
			}

			d.buf = append(d.buf, chunk...)
			if len(d.buf) > d.maxLineSize {
				d.buf = nil
				d.discarding = true
				err = d.overflow()
			}

			return lines, err
		}

		segment := chunk[:i]
		chunk = chunk[i+1:]

		if d.discarding {
			d.discarding = false

			continue
		}

		var line []byte
		if len(d.buf) > 0 {
			line = append(d.buf, segment...)
			d.buf = nil
		} else {
			line = bytes.Clone(segment)
		}

		if len(line) > d.maxLineSize {
			err = d.overflow()

			continue
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		lines = append(lines, line)
	}

	return lines, err
}

// Buffered returns the number of bytes held for an incomplete line.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func (d *Decoder) overflow() error {
	return &errors.ProtocolError{
		Err: fmt.Errorf("%w (%d bytes)", errors.ErrLineTooLong, d.maxLineSize),
	}
}
