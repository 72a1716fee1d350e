package io

import (
	"bytes"
	"errors"
	"maps"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failReader struct {
	err error
}

func (fr *failReader) Read(p []byte) (int, error) {
	return 0, fr.err
}

type failWriter struct{}

func (fw *failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestTape_Receive(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{Input: bytes.NewReader([]byte{0x00, 0x41, 0xff})}

	for _, expected := range []uint32{0x00, 0x41, 0xff, INPUT_EOF, INPUT_EOF} {
		value, err := tape.Receive()
		assert.NoError(err)
		assert.Equal(expected, value)
	}
	assert.Equal(3, tape.BytesIn)
}

func TestTape_Receive_NoInput(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{}
	value, err := tape.Receive()
	assert.NoError(err)
	assert.Equal(INPUT_EOF, value)
}

func TestTape_Receive_Error(t *testing.T) {
	assert := assert.New(t)

	broken := errors.New("broken pipe")
	tape := &Tape{Input: &failReader{err: broken}}

	_, err := tape.Receive()
	assert.ErrorIs(err, broken)
	assert.Equal(0, tape.BytesIn)
}

func TestTape_Send(t *testing.T) {
	assert := assert.New(t)

	output := &bytes.Buffer{}
	tape := &Tape{Output: output}

	for _, r := range "Hé世\U0001f600\n" {
		assert.NoError(tape.Send(r))
	}

	assert.Equal("Hé世\U0001f600\n", output.String())
	assert.Equal(5, tape.RunesOut)
}

func TestTape_Send_Invalid(t *testing.T) {
	assert := assert.New(t)

	output := &bytes.Buffer{}
	tape := &Tape{Output: output}

	table := []struct {
		name  string
		value rune
	}{
		{"surrogate_lo", 0xd800},
		{"surrogate_hi", 0xdfff},
		{"beyond_unicode", 0x110000},
		{"negative", -1},
	}

	for _, entry := range table {
		err := tape.Send(entry.value)
		assert.ErrorIs(err, ErrRuneInvalid, entry.name)
	}
	assert.Equal(0, output.Len())
}

func TestTape_Send_Errors(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{}
	assert.ErrorIs(tape.Send('x'), ErrChannelClosed)

	tape.Output = &failWriter{}
	assert.Error(tape.Send('x'))
	assert.Equal(0, tape.RunesOut)
}

func TestTape_Rewind(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{Input: strings.NewReader("ab")}
	tape.Rewind()

	value, _ := tape.Receive()
	assert.Equal(uint32('a'), value)

	tape.Rewind()
	assert.Equal(0, tape.BytesIn)

	value, _ = tape.Receive()
	assert.Equal(uint32('a'), value)
}

func TestTape_Rewind_Origin(t *testing.T) {
	assert := assert.New(t)

	// The first bytes belong to someone else.
	input := strings.NewReader("xyab")
	skip := make([]byte, 2)
	_, err := input.Read(skip)
	assert.NoError(err)

	tape := &Tape{Input: input}
	tape.Rewind()

	value, _ := tape.Receive()
	assert.Equal(uint32('a'), value)
	value, _ = tape.Receive()
	assert.Equal(uint32('b'), value)
	value, _ = tape.Receive()
	assert.Equal(INPUT_EOF, value)

	tape.Rewind()
	value, _ = tape.Receive()
	assert.Equal(uint32('a'), value)

	// A new input gets its own origin.
	tape.Input = strings.NewReader("cd")
	tape.Rewind()
	value, _ = tape.Receive()
	assert.Equal(uint32('c'), value)
}

func TestTape_Defines(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{}
	defines := maps.Collect(tape.Defines())
	assert.Equal("0xffffffff", defines["INPUT_EOF"])
}
