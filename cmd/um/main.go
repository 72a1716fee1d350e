// Copyright 2025, Adeline Murphy

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/adeline-murphy/rum/cpu"
	"github.com/adeline-murphy/rum/emulator"
)

// imagePath returns the program image named on the command line. With no
// name, or "-", the image is standard input.
func imagePath(args []string) string {
	if len(args) == 0 {
		return "-"
	}

	return args[0]
}

func main() {
	var compile string
	var save string
	var input string
	var output string
	var verbose bool
	var tolerate bool
	defines := map[string]string{}

	flag.StringVar(&compile, "c", "", ".uma file to assemble")
	flag.StringVar(&save, "s", "", "Save assembled image, do not execute")
	flag.StringVar(&input, "i", "-", "Console input")
	flag.StringVar(&output, "o", "-", "Console output")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&tolerate, "tolerate-input-errors", false, "Ignore console input errors")
	flag.Func("D", "Predefine NAME=VALUE for the assembler", func(text string) (err error) {
		name, value, ok := strings.Cut(text, "=")
		if !ok || len(name) == 0 {
			err = fmt.Errorf("expected NAME=VALUE, not %q", text)
			return
		}
		defines[name] = value
		return
	})

	flag.Parse()

	logrus.SetOutput(os.Stderr)
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	fatal := func(code int, format string, args ...any) {
		logrus.Errorf(format, args...)
		os.Exit(code)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Cpu.TolerateInputErrors = tolerate

	switch {
	case len(compile) != 0:
		if flag.NArg() != 0 {
			fatal(1, "%v: Unknown arguments: %v", os.Args[0], flag.Args())
		}

		inf, err := os.Open(compile)
		if err != nil {
			fatal(1, "%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		asm.PredefineAll(emu.Defines())
		for name, value := range defines {
			asm.Predefine(name, value)
		}
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			fatal(1, "%v: %v", compile, err)
		}
	case flag.NArg() <= 1:
		image := imagePath(flag.Args())
		inf := os.Stdin
		if image != "-" {
			var err error
			inf, err = os.Open(image)
			if err != nil {
				fatal(cpu.FAULT_PROGRAM_LOAD.ExitCode(), "%v: %v", image, err)
			}
			defer inf.Close()
		}

		emu.Program = &cpu.Program{}
		err := emu.Program.Unmarshal(inf)
		if err != nil {
			fatal(emulator.ExitCode(err), "%v: %v", image, err)
		}
	default:
		flag.Usage()
		os.Exit(1)
	}

	if len(save) != 0 {
		ouf, err := os.Create(save)
		if err != nil {
			fatal(1, "%v: %v", save, err)
		}
		defer ouf.Close()

		err = emu.Program.Marshal(ouf)
		if err != nil {
			fatal(1, "%v: %v", save, err)
		}
		return
	}

	if input == "-" {
		emu.Tape.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			fatal(1, "%v: %v", input, err)
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}

	if output == "-" {
		emu.Tape.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			fatal(1, "%v: %v", output, err)
		}
		defer ouf.Close()
		emu.Tape.Output = ouf
	}

	err := emu.Reset()
	if err != nil {
		fatal(1, "%v", err)
	}

	err = emu.Run()
	if verbose {
		logrus.WithFields(logrus.Fields{"ticks": emu.Ticks()}).Info("um: statistics")
	}
	if err != nil {
		fatal(emulator.ExitCode(err), "%v", err)
	}
}
