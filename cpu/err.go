// Copyright 2025, Adeline Murphy

package cpu

import (
	"errors"

	"github.com/adeline-murphy/rum/translate"
)

var f = translate.From

// Fault is a terminal machine condition.
type Fault int

//go:generate go tool stringer -linecomment -type=Fault
const (
	FAULT_INVALID_OPCODE       = Fault(0) // InvalidOpcode
	FAULT_OUT_OF_BOUNDS_FETCH  = Fault(1) // OutOfBoundsFetch
	FAULT_OUT_OF_BOUNDS_ACCESS = Fault(2) // OutOfBoundsAccess
	FAULT_INVALID_SEGMENT_OP   = Fault(3) // InvalidSegmentOp
	FAULT_DIVISION_BY_ZERO     = Fault(4) // DivisionByZero
	FAULT_INVALID_OUTPUT_VALUE = Fault(5) // InvalidOutputValue
	FAULT_INPUT_READ           = Fault(6) // InputReadError
	FAULT_PROGRAM_LOAD         = Fault(7) // ProgramLoadError
)

func (fault Fault) Error() string {
	return f("fault %v", fault.String())
}

// ExitCode is the process exit status reported for the fault.
func (fault Fault) ExitCode() int {
	return int(fault) + 2
}

var (
	// Cpu errors
	ErrNotRunning     = errors.New(f("machine not running"))
	ErrChannelInvalid = errors.New(f("channel invalid"))

	// Image errors
	ErrImageWrite = errors.New(f("image write"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("opcode missing"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrOpcode identifies the instruction that raised an error.
type ErrOpcode Code

func (eo ErrOpcode) Error() string {
	return f("bad opcode 0x%08x %v", uint32(eo), Code(eo).String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrSegment describes the segment reference that raised a fault.
type ErrSegment struct {
	Fault  Fault
	Handle uint32
	Offset uint32
}

func (err *ErrSegment) Error() string {
	return f("%v: segment %d offset %d", err.Fault, err.Handle, err.Offset)
}

func (err *ErrSegment) Unwrap() error {
	return err.Fault
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrValueRange uint32

func (err ErrValueRange) Error() string {
	return f("value 0x%x exceeds 0x%x", uint32(err), VALUE_MAX)
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
