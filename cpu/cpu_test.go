package cpu

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adeline-murphy/rum/io"
)

type failReader struct{}

var errFailRead = errors.New("read failed")

func (failReader) Read(p []byte) (int, error) {
	return 0, errFailRead
}

func runCodes(input string, codes ...Code) (cpu *Cpu, output string, err error) {
	program := make([]uint32, len(codes))
	for n, code := range codes {
		program[n] = uint32(code)
	}

	out := &bytes.Buffer{}
	cpu = &Cpu{
		Console: &io.Tape{Input: strings.NewReader(input), Output: out},
	}
	cpu.Reset(program)

	err = cpu.Run()
	output = out.String()

	return
}

func TestCpuHello(t *testing.T) {
	assert := assert.New(t)

	cpu, output, err := runCodes("",
		MakeCodeLoadv(0, 'H'),
		MakeCode(OP_OUT, 0, 0, 0),
		MakeCode(OP_HALT, 0, 0, 0),
	)
	assert.NoError(err)
	assert.Equal("H", output)
	assert.Equal(STATE_HALTED, cpu.State)
	assert.Equal(3, cpu.Ticks)
	assert.Equal(uint32(2), cpu.Pc)

	assert.ErrorIs(cpu.Tick(), ErrNotRunning)
}

func TestCpuArithmetic(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		op     Opcode
		b, c   uint32
		expect uint32
	}){
		{"add", OP_ADD, 5, 7, 12},
		{"add_wrap", OP_ADD, 0xffffffff, 2, 1},
		{"add_wrap_zero", OP_ADD, 0xffffffff, 1, 0},
		{"mul", OP_MUL, 6, 7, 42},
		{"mul_wrap", OP_MUL, 0x10000, 0x10000, 0},
		{"mul_wrap_low", OP_MUL, 0x80000001, 2, 2},
		{"mul_wrap_high", OP_MUL, 0x80000000, 2, 0},
		{"div", OP_DIV, 43, 7, 6},
		{"div_unsigned", OP_DIV, 0xfffffffe, 2, 0x7fffffff},
		{"nand", OP_NAND, 0xf0f0f0f0, 0xff00ff00, 0x0fff0fff},
		{"nand_not", OP_NAND, 0, 0, 0xffffffff},
		{"nand_ones", OP_NAND, 0xffffffff, 0xffffffff, 0},
	}

	for _, entry := range table {
		cpu := NewCpu([]uint32{uint32(MakeCode(entry.op, 1, 2, 3))})
		cpu.Register[1] = 0xdeadbeef
		cpu.Register[2] = entry.b
		cpu.Register[3] = entry.c
		err := cpu.Tick()
		assert.NoError(err, entry.name)
		assert.Equal(entry.expect, cpu.Register[1], entry.name)
		assert.Equal(uint32(1), cpu.Pc, entry.name)
	}
}

func TestCpuCmov(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu([]uint32{
		uint32(MakeCode(OP_CMOV, 0, 1, 2)),
		uint32(MakeCode(OP_CMOV, 3, 1, 4)),
	})
	cpu.Register[0] = 10
	cpu.Register[1] = 20
	cpu.Register[2] = 0
	cpu.Register[3] = 30
	cpu.Register[4] = 1

	assert.NoError(cpu.Tick())
	assert.Equal(uint32(10), cpu.Register[0])

	assert.NoError(cpu.Tick())
	assert.Equal(uint32(20), cpu.Register[3])
}

func TestCpuDivideByZero(t *testing.T) {
	assert := assert.New(t)

	cpu, _, err := runCodes("",
		MakeCodeLoadv(2, 9),
		MakeCode(OP_DIV, 1, 2, 3),
		MakeCode(OP_HALT, 0, 0, 0),
	)
	assert.ErrorIs(err, FAULT_DIVISION_BY_ZERO)
	assert.ErrorIs(err, ErrOpcode(0))
	assert.Equal(STATE_FAULTED, cpu.State)
	assert.Equal(uint32(1), cpu.Pc)
	assert.Equal(uint32(0), cpu.Register[1])
}

func TestCpuInvalidOpcode(t *testing.T) {
	assert := assert.New(t)

	for _, word := range []Code{0xe0000000, 0xf0000000} {
		cpu, output, err := runCodes("", word, MakeCode(OP_HALT, 0, 0, 0))
		assert.ErrorIs(err, FAULT_INVALID_OPCODE)
		assert.Equal("", output)
		assert.Equal(STATE_FAULTED, cpu.State)
		assert.Equal(0, cpu.Ticks)

		var fault Fault
		if assert.True(errors.As(err, &fault)) {
			assert.Equal(2, fault.ExitCode())
		}
	}
}

func TestCpuFetchOutOfBounds(t *testing.T) {
	assert := assert.New(t)

	_, _, err := runCodes("", MakeCodeLoadv(0, 1))
	assert.ErrorIs(err, FAULT_OUT_OF_BOUNDS_FETCH)

	_, _, err = runCodes("")
	assert.ErrorIs(err, FAULT_OUT_OF_BOUNDS_FETCH)
}

func TestCpuSegments(t *testing.T) {
	assert := assert.New(t)

	cpu, _, err := runCodes("",
		MakeCodeLoadv(1, 3),
		MakeCode(OP_MAP, 0, 2, 1),   // r2 = map(3)
		MakeCodeLoadv(3, 2),         // offset
		MakeCodeLoadv(4, 0x1234),    // value
		MakeCode(OP_STORE, 2, 3, 4), // seg[r2][2] = r4
		MakeCode(OP_LOAD, 5, 2, 3),  // r5 = seg[r2][2]
		MakeCode(OP_UNMAP, 0, 0, 2), // unmap r2
		MakeCode(OP_MAP, 0, 6, 1),   // r6 = map(3), reuses r2
		MakeCode(OP_LOAD, 7, 6, 3),  // r7 = seg[r6][2]
		MakeCode(OP_HALT, 0, 0, 0),
	)
	assert.NoError(err)
	assert.Equal(uint32(1), cpu.Register[2])
	assert.Equal(uint32(0x1234), cpu.Register[5])
	assert.Equal(uint32(1), cpu.Register[6])
	assert.Equal(uint32(0), cpu.Register[7])

	_, _, err = runCodes("",
		MakeCodeLoadv(1, 5),
		MakeCode(OP_UNMAP, 0, 0, 1),
	)
	assert.ErrorIs(err, FAULT_INVALID_SEGMENT_OP)

	_, _, err = runCodes("",
		MakeCode(OP_UNMAP, 0, 0, 0),
	)
	assert.ErrorIs(err, FAULT_INVALID_SEGMENT_OP)

	_, _, err = runCodes("",
		MakeCodeLoadv(1, 5),
		MakeCode(OP_LOAD, 0, 0, 1),
	)
	assert.ErrorIs(err, FAULT_OUT_OF_BOUNDS_ACCESS)
}

func TestCpuLoadProgram(t *testing.T) {
	assert := assert.New(t)

	// loadp from segment 0 is a jump.
	cpu, output, err := runCodes("",
		MakeCodeLoadv(3, 3),
		MakeCode(OP_LOADP, 0, 0, 3),
		MakeCode(OP_HALT, 0, 0, 0),
		MakeCodeLoadv(1, '!'),
		MakeCode(OP_OUT, 0, 0, 1),
		MakeCode(OP_HALT, 0, 0, 0),
	)
	assert.NoError(err)
	assert.Equal("!", output)
	assert.Equal(uint32(5), cpu.Pc)

	// loadp from a new segment replaces the program.
	cpu, output, err = runCodes("",
		MakeCodeLoadv(1, 2),
		MakeCode(OP_MAP, 0, 2, 1), // r2 = map(2)
		MakeCodeLoadv(3, 1),       // offset 1
		MakeCodeLoadv(4, 0x700),
		MakeCodeLoadv(5, 0x100000),
		MakeCode(OP_MUL, 4, 4, 5),   // r4 = halt
		MakeCode(OP_STORE, 2, 3, 4), // seg[r2][1] = halt
		MakeCode(OP_LOADP, 0, 2, 3), // run seg[r2] from 1
	)
	assert.NoError(err)
	assert.Equal("", output)
	assert.Equal(uint32(1), cpu.Pc)
	words, ok := cpu.Arena.Segment(0)
	assert.True(ok)
	assert.Equal([]uint32{0, 0x70000000}, words)

	_, _, err = runCodes("",
		MakeCodeLoadv(1, 4),
		MakeCode(OP_LOADP, 0, 1, 0),
	)
	assert.ErrorIs(err, FAULT_OUT_OF_BOUNDS_ACCESS)
}

func TestCpuOutput(t *testing.T) {
	assert := assert.New(t)

	_, output, err := runCodes("",
		MakeCodeLoadv(0, 0x263a),
		MakeCode(OP_OUT, 0, 0, 0),
		MakeCode(OP_HALT, 0, 0, 0),
	)
	assert.NoError(err)
	assert.Equal("☺", output)

	_, output, err = runCodes("",
		MakeCodeLoadv(0, 0xd800),
		MakeCode(OP_OUT, 0, 0, 0),
	)
	assert.ErrorIs(err, FAULT_INVALID_OUTPUT_VALUE)
	assert.Equal("", output)

	_, _, err = runCodes("",
		MakeCodeLoadv(0, 0x110000),
		MakeCode(OP_OUT, 0, 0, 0),
	)
	assert.ErrorIs(err, FAULT_INVALID_OUTPUT_VALUE)

	cpu := NewCpu([]uint32{uint32(MakeCode(OP_OUT, 0, 0, 0))})
	assert.ErrorIs(cpu.Run(), ErrChannelInvalid)
}

func TestCpuInput(t *testing.T) {
	assert := assert.New(t)

	cpu, _, err := runCodes("ab",
		MakeCode(OP_IN, 0, 0, 1),
		MakeCode(OP_IN, 0, 0, 2),
		MakeCode(OP_IN, 0, 0, 3),
		MakeCode(OP_HALT, 0, 0, 0),
	)
	assert.NoError(err)
	assert.Equal(uint32('a'), cpu.Register[1])
	assert.Equal(uint32('b'), cpu.Register[2])
	assert.Equal(uint32(0xffffffff), cpu.Register[3])
}

func TestCpuInputError(t *testing.T) {
	assert := assert.New(t)

	program := []uint32{
		uint32(MakeCodeLoadv(1, 7)),
		uint32(MakeCode(OP_IN, 0, 0, 1)),
		uint32(MakeCode(OP_HALT, 0, 0, 0)),
	}

	cpu := &Cpu{Console: &io.Tape{Input: failReader{}}}
	cpu.Reset(program)
	err := cpu.Run()
	assert.ErrorIs(err, FAULT_INPUT_READ)
	assert.ErrorIs(err, errFailRead)

	cpu.TolerateInputErrors = true
	cpu.Reset(program)
	assert.NoError(cpu.Run())
	assert.Equal(uint32(7), cpu.Register[1])
	assert.Equal(STATE_HALTED, cpu.State)
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu([]uint32{uint32(MakeCodeLoadv(1, 0x20)), uint32(MakeCode(OP_MAP, 0, 2, 1))})
	assert.NoError(cpu.Tick())
	assert.NoError(cpu.Tick())
	assert.Equal(2, cpu.Arena.Count())

	cpu.Reset([]uint32{uint32(MakeCode(OP_HALT, 0, 0, 0))})
	assert.Equal(uint32(0), cpu.Pc)
	assert.Equal([REGISTER_COUNT]uint32{}, cpu.Register)
	assert.Equal(1, cpu.Arena.Count())
	assert.Equal(0, cpu.Ticks)
	assert.Equal(STATE_RUNNING, cpu.State)
	assert.NoError(cpu.Fault)
	assert.Contains(cpu.String(), "running")
}

func TestCpuDefines(t *testing.T) {
	assert := assert.New(t)

	cpu := &Cpu{}
	defines := map[string]string{}
	for key, value := range cpu.Defines() {
		defines[key] = value
	}
	assert.Equal("8", defines["REGISTER_COUNT"])
	assert.Equal("0x1ffffff", defines["VALUE_MAX"])
}
