// Copyright 2025, Adeline Murphy

package cpu

import (
	"encoding/binary"
	"errors"
	"io"
	"iter"
	"sort"
	"strings"
)

// Statement is a line of assembled code with its source location and
// generated words.
type Statement struct {
	LineNo    int
	Pc        int
	Words     []string
	Codes     []Code
	LinkLabel string
}

// Program is an assembled listing of segment 0.
type Program struct {
	Statements []Statement
}

type Debug struct {
	*Statement
	Index int
}

// ProgramFromImage creates a listing for a raw image, one statement per
// word, without source line numbers.
func ProgramFromImage(words []uint32) (prog *Program) {
	prog = &Program{
		Statements: make([]Statement, len(words)),
	}

	for pc, word := range words {
		code := Code(word)
		prog.Statements[pc] = Statement{
			Pc:    pc,
			Words: strings.Split(code.String(), " "),
			Codes: []Code{code},
		}
	}

	return
}

// Debug finds the statement that generated the word at pc. Statements are
// ordered by Pc.
func (prog *Program) Debug(pc uint32) (dbg Debug) {
	n := sort.Search(len(prog.Statements), func(n int) bool {
		st := &prog.Statements[n]
		return uint64(st.Pc+len(st.Codes)) > uint64(pc)
	})
	if n == len(prog.Statements) {
		return
	}

	st := &prog.Statements[n]
	if uint64(pc) < uint64(st.Pc) {
		return
	}

	dbg = Debug{
		Statement: st,
		Index:     int(pc) - st.Pc,
	}

	return
}

func (prog *Program) Binary() (bins []uint32) {
	for _, code := range prog.Codes() {
		bins = append(bins, uint32(code))
	}

	return
}

func (prog *Program) Codes() iter.Seq2[uint32, Code] {
	return func(yield func(pc uint32, code Code) bool) {
		for _, st := range prog.Statements {
			pc := uint32(st.Pc)
			for n, code := range st.Codes {
				if !yield(pc+uint32(n), code) {
					return
				}
			}
		}
	}
}

// Marshal writes the program as a big-endian image.
func (prog *Program) Marshal(output io.Writer) (err error) {
	return WriteImage(output, prog.Binary())
}

// Unmarshal replaces the program with a listing of a big-endian image.
func (prog *Program) Unmarshal(input io.Reader) (err error) {
	words, err := ReadImage(input)
	if err != nil {
		return
	}

	*prog = *ProgramFromImage(words)

	return
}

// ReadImage reads a complete program image. Each 4-byte chunk is one
// big-endian word; a trailing partial chunk is dropped.
func ReadImage(input io.Reader) (words []uint32, err error) {
	data, err := io.ReadAll(input)
	if err != nil {
		err = errors.Join(FAULT_PROGRAM_LOAD, err)
		return
	}

	words = make([]uint32, len(data)/4)
	for n := range words {
		words[n] = binary.BigEndian.Uint32(data[n*4:])
	}

	return
}

// WriteImage writes words as a big-endian image.
func WriteImage(output io.Writer, words []uint32) (err error) {
	data := make([]byte, 0, len(words)*4)
	for _, word := range words {
		data = binary.BigEndian.AppendUint32(data, word)
	}

	_, err = output.Write(data)
	if err != nil {
		err = errors.Join(ErrImageWrite, err)
	}

	return
}
