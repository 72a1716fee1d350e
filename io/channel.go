// Copyright 2025, Adeline Murphy

// Package io provides the console channel of the Universal Machine.
// Input is consumed one byte at a time and output is produced one
// unicode scalar value at a time.
package io

// Channel defines the interface for the machine console.
type Channel interface {
	// Rewind resets the channel to its initial state, if possible.
	Rewind()
	// Receive reads one byte of input. At end of input it returns
	// INPUT_EOF and no error.
	Receive() (value uint32, err error)
	// Send writes a single unicode scalar value.
	Send(value rune) error
}
