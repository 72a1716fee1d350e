// Copyright 2025, Adeline Murphy

package emulator

import (
	"errors"
	"iter"

	"github.com/sirupsen/logrus"

	"github.com/adeline-murphy/rum/cpu"
	"github.com/adeline-murphy/rum/internal"
	"github.com/adeline-murphy/rum/io"
)

// Emulator state. CPU + console tape.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Tape io.Tape // Tape console channel.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(nil),
		Program: &cpu.Program{},
	}

	emu.Cpu.Console = &emu.Tape

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2First(internal.IterSeq2Concat(
		emu.Cpu.Defines(),
		emu.Tape.Defines(),
	))
}

// Load a raw program image as the current program listing.
func (emu *Emulator) Load(words []uint32) {
	emu.Program = cpu.ProgramFromImage(words)
}

// Reset the machine with the current program as segment 0.
func (emu *Emulator) Reset() (err error) {
	if emu.Program == nil {
		err = ErrProgramMissing
		return
	}

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset(emu.Program.Binary())

	return
}

// Ticks returns the total ticks since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Code returns the current instruction code.
func (emu *Emulator) Code() (code cpu.Code) {
	code, _ = emu.Cpu.Arena.Fetch(emu.Cpu.Pc)
	return
}

// LineNo returns the current line number for the executing statement, or
// zero if there is no source line for it.
func (emu *Emulator) LineNo() int {
	return emu.lineNoAt(emu.Cpu.Pc)
}

func (emu *Emulator) lineNoAt(pc uint32) int {
	if emu.Program == nil {
		return 0
	}

	dbg := emu.Program.Debug(pc)
	if dbg.Statement == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single tick of the emulator.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Cpu.State != cpu.STATE_RUNNING {
		done = true
		err = emu.Cpu.Fault
		return
	}

	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Arena.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	defer func() {
		if err != nil {
			err = &ErrRuntime{Pc: pc, LineNo: emu.lineNoAt(pc), Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	done = emu.Cpu.State != cpu.STATE_RUNNING

	return
}

// Run ticks the emulator until the machine halts or faults.
func (emu *Emulator) Run() (err error) {
	for done := false; !done; {
		done, err = emu.Tick()
		if err != nil {
			break
		}
	}

	if emu.Verbose {
		logrus.WithFields(logrus.Fields{
			"ticks":  emu.Ticks(),
			"state":  emu.Cpu.State.String(),
			"mapped": emu.Cpu.Arena.Mapped(),
			"in":     emu.Tape.BytesIn,
			"out":    emu.Tape.RunesOut,
		}).Info("emulator: stopped")
	}

	return
}

// ExitCode returns the process exit status for the result of a run.
// A halt is zero, a fault is its own code, and anything else is one.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var fault cpu.Fault
	if errors.As(err, &fault) {
		return fault.ExitCode()
	}

	return 1
}
