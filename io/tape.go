// Copyright 2025, Adeline Murphy

package io

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"unicode/utf8"
)

// INPUT_EOF is received once the input stream is exhausted.
const INPUT_EOF = ^uint32(0)

// Tape provides sequential console I/O. It wraps an io.Reader for input
// and an io.Writer for output, converting between machine words and
// bytes.
type Tape struct {
	Input  io.Reader
	Output io.Writer

	BytesIn  int // Bytes consumed from Input.
	RunesOut int // Runes written to Output.

	anchor io.Reader // Input whose origin was recorded.
	origin int64     // Offset of anchor at its first rewind.

	one [1]byte
	buf [utf8.UTFMax]byte
}

var _ Channel = (*Tape)(nil)

// Defines returns an iter of defines for the channel.
func (tc *Tape) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"INPUT_EOF": fmt.Sprintf("%#x", INPUT_EOF),
	})
}

// Rewind seeks the input back to where it stood at the first rewind, when
// the input can seek. The input may share a stream that was partially
// consumed before the machine started, so that offset is the origin.
func (tc *Tape) Rewind() {
	tc.BytesIn = 0
	tc.RunesOut = 0

	seeker, ok := tc.Input.(io.Seeker)
	if !ok {
		tc.anchor = nil
		return
	}

	if tc.anchor != tc.Input {
		origin, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			tc.anchor = nil
			return
		}
		tc.anchor = tc.Input
		tc.origin = origin
		return
	}

	seeker.Seek(tc.origin, io.SeekStart)
}

// Receive reads exactly one byte from the input stream. A missing input
// behaves as an exhausted one.
func (tc *Tape) Receive() (value uint32, err error) {
	if tc.Input == nil {
		value = INPUT_EOF
		return
	}

	_, err = io.ReadFull(tc.Input, tc.one[:])
	if errors.Is(err, io.EOF) {
		value = INPUT_EOF
		err = nil
		return
	}
	if err != nil {
		return
	}

	tc.BytesIn++
	value = uint32(tc.one[0])
	return
}

// Send writes the UTF-8 encoding of a rune to the output stream.
func (tc *Tape) Send(value rune) (err error) {
	if !utf8.ValidRune(value) {
		err = ErrRuneInvalid
		return
	}

	if tc.Output == nil {
		err = ErrChannelClosed
		return
	}

	n := utf8.EncodeRune(tc.buf[:], value)
	_, err = tc.Output.Write(tc.buf[:n])
	if err != nil {
		return
	}

	tc.RunesOut++
	return
}
