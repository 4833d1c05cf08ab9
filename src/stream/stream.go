// Package stream decodes large top-level JSON arrays one record at a time,
// so peak memory stays bounded regardless of document size.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultProgressInterval is how many decoded records pass between
// progress notifications.
const DefaultProgressInterval = 100

// ParseError reports malformed JSON with the byte offset where decoding
// gave up.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed JSON at byte %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ArrayDecoder pulls records out of a single top-level JSON array. It is
// single-pass and not restartable; a second pass needs a fresh reader.
// Usage mirrors bufio.Scanner:
//
//	dec := stream.NewArrayDecoder(r)
//	for dec.Next() {
//		var rec Record
//		if err := dec.Record(&rec); err != nil {
//			return err
//		}
//	}
//	return dec.Err()
type ArrayDecoder struct {
	dec      *json.Decoder
	started  bool
	done     bool
	err      error
	count    int
	interval int
	progress func(decoded int)
}

// NewArrayDecoder wraps r, which must yield one JSON array.
func NewArrayDecoder(r io.Reader) *ArrayDecoder {
	return &ArrayDecoder{
		dec:      json.NewDecoder(r),
		interval: DefaultProgressInterval,
	}
}

// OnProgress registers fn to be called every interval decoded records.
// Purely observational; an interval <= 0 keeps the default.
func (d *ArrayDecoder) OnProgress(interval int, fn func(decoded int)) {
	if interval > 0 {
		d.interval = interval
	}
	d.progress = fn
}

// Next reports whether another record is available. It consumes the array
// delimiters as it goes.
func (d *ArrayDecoder) Next() bool {
	if d.err != nil || d.done {
		return false
	}
	if !d.started {
		tok, err := d.dec.Token()
		if err != nil {
			d.fail(err)
			return false
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			d.err = &ParseError{
				Offset: d.dec.InputOffset(),
				Err:    fmt.Errorf("expected top-level array, got %v", tok),
			}
			return false
		}
		d.started = true
	}
	if !d.dec.More() {
		if _, err := d.dec.Token(); err != nil {
			d.fail(err)
		}
		d.done = true
		return false
	}
	return true
}

// Record decodes the next array element into v. Call only after Next
// returned true.
func (d *ArrayDecoder) Record(v any) error {
	if d.err != nil {
		return d.err
	}
	if err := d.dec.Decode(v); err != nil {
		d.fail(err)
		return d.err
	}
	d.count++
	if d.progress != nil && d.count%d.interval == 0 {
		d.progress(d.count)
	}
	return nil
}

// Count returns how many records have been decoded so far.
func (d *ArrayDecoder) Count() int {
	return d.count
}

// Err returns the first error hit during decoding. Malformed JSON comes
// back as *ParseError; a failing underlying reader surfaces its own error.
func (d *ArrayDecoder) Err() error {
	return d.err
}

func (d *ArrayDecoder) fail(err error) {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		d.err = &ParseError{Offset: syn.Offset, Err: err}
		return
	}
	var typ *json.UnmarshalTypeError
	if errors.As(err, &typ) {
		d.err = &ParseError{Offset: typ.Offset, Err: err}
		return
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		// Truncated document, not a reader failure.
		d.err = &ParseError{Offset: d.dec.InputOffset(), Err: io.ErrUnexpectedEOF}
		return
	}
	d.err = err
}

// DecodeCollection parses a fully materialized JSON array of records. The
// small optional collections do not need streaming; callers treat a decode
// failure as an empty collection, so the error exists only for logging.
func DecodeCollection[T any](data []byte) ([]T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("not a well-formed record array: %w", err)
	}
	return out, nil
}
