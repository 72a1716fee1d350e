// Copyright 2025, Adeline Murphy

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/adeline-murphy/rum/io"
)

// Channel is the console interface.
type Channel io.Channel

// REGISTER_COUNT is the number of general purpose registers.
const REGISTER_COUNT = 8

var _cpu_defines = map[string]string{
	"REGISTER_COUNT": fmt.Sprintf("%v", REGISTER_COUNT),
	"VALUE_MAX":      fmt.Sprintf("%#x", VALUE_MAX),
}

// State is the execution state of the machine.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING = State(0) // running
	STATE_HALTED  = State(1) // halted
	STATE_FAULTED = State(2) // faulted
)

// Flow is the program counter policy returned by an operation.
type Flow int

//go:generate go tool stringer -linecomment -type=Flow
const (
	FLOW_ADVANCE   = Flow(0) // advance
	FLOW_JUMP      = Flow(1) // jump
	FLOW_TERMINATE = Flow(2) // terminate
)

// Cpu is the simulation context of the Universal Machine.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	// If set, an input transport error is logged and the
	// instruction completes without touching its register.
	// Otherwise the error is a FAULT_INPUT_READ.
	TolerateInputErrors bool

	Arena    Arena                  // Memory segments.
	Register [REGISTER_COUNT]uint32 // Register bank.
	Pc       uint32                 // Program counter into segment 0.
	State    State                  // Execution state.
	Fault    error                  // Reason for STATE_FAULTED.
	Console  Channel                // Console for in and out.
	Ticks    int                    // Instructions retired since reset.
}

// NewCpu creates a new machine with program loaded as segment 0.
func NewCpu(program []uint32) (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset(program)

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("% 6s: %v\n", "state", cpu.State)
	text += fmt.Sprintf("% 6s: %04X_%04X\n", "pc", cpu.Pc>>16, cpu.Pc&0xffff)
	for n, val := range cpu.Register {
		text += fmt.Sprintf("% 6s: %04X_%04X\n", fmt.Sprintf("r%d", n), val>>16, val&0xffff)
	}
	text += fmt.Sprintf("% 6s: %d/%d\n", "mapped", cpu.Arena.Mapped(), cpu.Arena.Count())
	text += fmt.Sprintf("% 6s: %d\n", "ticks", cpu.Ticks)

	return
}

// Reset the CPU state.
// - Clears the registers and program counter.
// - Replaces all segments with program as segment 0.
// - Zeros statistics counters.
// - Rewinds the console.
func (cpu *Cpu) Reset(program []uint32) {
	if cpu.Verbose {
		logrus.WithFields(logrus.Fields{"words": len(program)}).Debug("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Arena.Verbose = cpu.Verbose
	cpu.Arena.Reset(program)
	cpu.Pc = 0
	cpu.State = STATE_RUNNING
	cpu.Fault = nil
	cpu.Ticks = 0

	if cpu.Console != nil {
		cpu.Console.Rewind()
	}
}

// Tick executes a single instruction cycle. Any error is terminal and
// leaves the machine in STATE_FAULTED.
func (cpu *Cpu) Tick() (err error) {
	if cpu.State != STATE_RUNNING {
		err = ErrNotRunning
		return
	}

	defer func() {
		if err != nil {
			cpu.State = STATE_FAULTED
			cpu.Fault = err
		}
	}()

	code, err := cpu.Arena.Fetch(cpu.Pc)
	if err != nil {
		return
	}

	flow, target, err := cpu.Execute(code)
	if err != nil {
		return
	}

	cpu.Ticks++

	switch flow {
	case FLOW_ADVANCE:
		cpu.Pc++
	case FLOW_JUMP:
		cpu.Pc = target
	case FLOW_TERMINATE:
		cpu.State = STATE_HALTED
	}

	return
}

// Run ticks until the machine halts or faults.
func (cpu *Cpu) Run() (err error) {
	for cpu.State == STATE_RUNNING {
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	if cpu.State == STATE_FAULTED {
		err = cpu.Fault
	}

	return
}

// handler executes one decoded operation.
type handler func(cpu *Cpu, code Code) (flow Flow, target uint32, err error)

var handlers = [OPCODE_COUNT]handler{
	OP_CMOV:  (*Cpu).opCmov,
	OP_LOAD:  (*Cpu).opLoad,
	OP_STORE: (*Cpu).opStore,
	OP_ADD:   (*Cpu).opAdd,
	OP_MUL:   (*Cpu).opMul,
	OP_DIV:   (*Cpu).opDiv,
	OP_NAND:  (*Cpu).opNand,
	OP_HALT:  (*Cpu).opHalt,
	OP_MAP:   (*Cpu).opMap,
	OP_UNMAP: (*Cpu).opUnmap,
	OP_OUT:   (*Cpu).opOut,
	OP_IN:    (*Cpu).opIn,
	OP_LOADP: (*Cpu).opLoadp,
	OP_LOADV: (*Cpu).opLoadv,
}

// Execute executes a single decoded instruction, and returns how the
// program counter moves next.
func (cpu *Cpu) Execute(code Code) (flow Flow, target uint32, err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()

	if cpu.Verbose {
		logrus.WithFields(logrus.Fields{
			"pc":   fmt.Sprintf("%08x", cpu.Pc),
			"code": code.String(),
		}).Debug("cpu: execute")
	}

	op := code.Opcode()
	if !op.Valid() {
		err = FAULT_INVALID_OPCODE
		return
	}

	return handlers[op](cpu, code)
}

func (cpu *Cpu) opCmov(code Code) (flow Flow, target uint32, err error) {
	a, b, c := code.Abc()
	if cpu.Register[c] != 0 {
		cpu.Register[a] = cpu.Register[b]
	}
	return
}

func (cpu *Cpu) opLoad(code Code) (flow Flow, target uint32, err error) {
	a, b, c := code.Abc()
	value, err := cpu.Arena.Load(cpu.Register[b], cpu.Register[c])
	if err != nil {
		return
	}
	cpu.Register[a] = value
	return
}

func (cpu *Cpu) opStore(code Code) (flow Flow, target uint32, err error) {
	a, b, c := code.Abc()
	err = cpu.Arena.Store(cpu.Register[a], cpu.Register[b], cpu.Register[c])
	return
}

func (cpu *Cpu) opAdd(code Code) (flow Flow, target uint32, err error) {
	a, b, c := code.Abc()
	cpu.Register[a] = cpu.Register[b] + cpu.Register[c]
	return
}

func (cpu *Cpu) opMul(code Code) (flow Flow, target uint32, err error) {
	a, b, c := code.Abc()
	cpu.Register[a] = cpu.Register[b] * cpu.Register[c]
	return
}

func (cpu *Cpu) opDiv(code Code) (flow Flow, target uint32, err error) {
	a, b, c := code.Abc()
	if cpu.Register[c] == 0 {
		err = FAULT_DIVISION_BY_ZERO
		return
	}
	cpu.Register[a] = cpu.Register[b] / cpu.Register[c]
	return
}

func (cpu *Cpu) opNand(code Code) (flow Flow, target uint32, err error) {
	a, b, c := code.Abc()
	cpu.Register[a] = ^(cpu.Register[b] & cpu.Register[c])
	return
}

func (cpu *Cpu) opHalt(code Code) (flow Flow, target uint32, err error) {
	flow = FLOW_TERMINATE
	return
}

func (cpu *Cpu) opMap(code Code) (flow Flow, target uint32, err error) {
	_, b, c := code.Abc()
	cpu.Register[b] = cpu.Arena.Allocate(cpu.Register[c])
	return
}

func (cpu *Cpu) opUnmap(code Code) (flow Flow, target uint32, err error) {
	_, _, c := code.Abc()
	err = cpu.Arena.Deallocate(cpu.Register[c])
	return
}

func (cpu *Cpu) opOut(code Code) (flow Flow, target uint32, err error) {
	_, _, c := code.Abc()
	value := cpu.Register[c]
	if value > utf8.MaxRune || !utf8.ValidRune(rune(value)) {
		err = FAULT_INVALID_OUTPUT_VALUE
		return
	}
	if cpu.Console == nil {
		err = ErrChannelInvalid
		return
	}
	err = cpu.Console.Send(rune(value))
	return
}

func (cpu *Cpu) opIn(code Code) (flow Flow, target uint32, err error) {
	_, _, c := code.Abc()
	if cpu.Console == nil {
		err = ErrChannelInvalid
		return
	}
	value, err := cpu.Console.Receive()
	if err != nil {
		if cpu.TolerateInputErrors {
			logrus.WithError(err).WithField("pc", cpu.Pc).Warn("cpu: input error ignored")
			err = nil
			return
		}
		err = errors.Join(FAULT_INPUT_READ, err)
		return
	}
	cpu.Register[c] = value
	return
}

func (cpu *Cpu) opLoadp(code Code) (flow Flow, target uint32, err error) {
	_, b, c := code.Abc()
	err = cpu.Arena.Duplicate(cpu.Register[b])
	if err != nil {
		return
	}
	flow = FLOW_JUMP
	target = cpu.Register[c]
	return
}

func (cpu *Cpu) opLoadv(code Code) (flow Flow, target uint32, err error) {
	a, value := code.LoadvDecode()
	cpu.Register[a] = value & VALUE_MAX
	return
}
