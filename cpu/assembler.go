// Copyright 2025, Adeline Murphy

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for the Universal Machine.
type Assembler struct {
	Verbose   bool        // If set, verbosely logs the assembler actions.
	Statement []Statement // List of generated statements.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to program counters.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// PredefineAll predefines every equate of a define sequence.
func (asm *Assembler) PredefineAll(defines iter.Seq2[string, string]) {
	for equ, value := range defines {
		asm.Predefine(equ, value)
	}
}

// regMap is a map of register names to register indexes.
var regMap = map[string]int{
	"r0": 0,
	"r1": 1,
	"r2": 2,
	"r3": 3,
	"r4": 4,
	"r5": 5,
	"r6": 6,
	"r7": 7,
}

// abcMap maps the three register opcodes.
var abcMap = map[string]Opcode{
	"cmov":  OP_CMOV,
	"load":  OP_LOAD,
	"store": OP_STORE,
	"add":   OP_ADD,
	"mul":   OP_MUL,
	"div":   OP_DIV,
	"nand":  OP_NAND,
}

// bcMap maps the opcodes that use registers B and C.
var bcMap = map[string]Opcode{
	"map":   OP_MAP,
	"loadp": OP_LOADP,
	"jump":  OP_LOADP,
}

// cMap maps the opcodes that only use register C.
var cMap = map[string]Opcode{
	"unmap": OP_UNMAP,
	"out":   OP_OUT,
	"in":    OP_IN,
}

var labelRe = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}
	v64, err := strconv.ParseInt(strings.ReplaceAll(word, "_", ""), 0, 64)
	if err != nil || v64 > 0xffffffff || v64 < -int64(0x80000000) {
		err = ErrParseNumber(word)
		return
	}

	value = uint32(v64)

	if invert {
		value = ^value
	}

	return
}

// register returns the register index of a word.
func (asm *Assembler) register(word string) (reg int, err error) {
	reg, ok := regMap[word]
	if !ok {
		err = fmt.Errorf("%w: %v", ErrRegisterInvalid, word)
		return
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, pc := range asm.Label {
		pred[key] = starlark.MakeInt(pc)
	}
	for key, str := range asm.Equate {
		value32, _err := asm.valueOf(str)
		if _err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(int64(value32))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

var charRe = regexp.MustCompile(`'\\?[^']'`)
var parenRe = regexp.MustCompile(`\$\([^\$]*\)`)

// parseLine parses a single line as a statement.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = charRe.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = parenRe.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentPc()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// Local labels are unique to each expansion.
		local := fmt.Sprintf("%v_%v_%v_", name, lineno, asm.currentPc())

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentPc gets the program counter of the next statement.
func (asm *Assembler) currentPc() int {
	if len(asm.Statement) == 0 {
		return 0
	}

	last := asm.Statement[len(asm.Statement)-1]

	return last.Pc + len(last.Codes)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Statement = asm.Statement[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			logrus.WithFields(logrus.Fields{"line": lineno}).Debug(text)
		}

		text_comment := strings.SplitN(text, ";", 2)
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Statement {
		st := &asm.Statement[n]

		if len(st.LinkLabel) == 0 {
			continue
		}
		label := st.LinkLabel
		pc, ok := asm.Label[label]
		if !ok {
			lineno = st.LineNo
			line = strings.Join(st.Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		linked := &st.Codes[len(st.Codes)-1]
		if st.Words[0] == ".word" {
			*linked = Code(pc)
			continue
		}
		if pc > VALUE_MAX {
			lineno = st.LineNo
			line = strings.Join(st.Words, " ")
			err = ErrValueRange(pc)
			return
		}
		*linked = Code(FIELD_LOADV_VALUE.Put(uint32(*linked), uint32(pc)))
	}

	prog = &Program{
		Statements: slices.Clone(asm.Statement),
	}

	return
}

// valueOrLabel returns the value of a word, or the label to link if the
// word names one.
func (asm *Assembler) valueOrLabel(word string) (value uint32, label string, err error) {
	value, err = asm.valueOf(word)
	if err != nil && labelRe.MatchString(word) {
		_, is_reg := regMap[word]
		if !is_reg {
			err = nil
			label = word
		}
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(codes) == 0 {
			return
		}
		st := Statement{LineNo: lineno, Pc: asm.currentPc(), Words: initial_words, Codes: codes, LinkLabel: label}
		asm.Statement = append(asm.Statement, st)
	}()

	name := words[0]
	args := words[1:]

	regs := func(count int) (reg []int, err error) {
		if len(args) < count {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > count {
			err = ErrOpcodeExtraArgs
			return
		}
		reg = make([]int, count)
		for n, word := range args {
			reg[n], err = asm.register(word)
			if err != nil {
				return
			}
		}
		return
	}

	if op, ok := abcMap[name]; ok {
		var reg []int
		reg, err = regs(3)
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(op, reg[0], reg[1], reg[2]))
		return
	}

	if op, ok := bcMap[name]; ok {
		var reg []int
		reg, err = regs(2)
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(op, 0, reg[0], reg[1]))
		return
	}

	if op, ok := cMap[name]; ok {
		var reg []int
		reg, err = regs(1)
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(op, 0, 0, reg[0]))
		return
	}

	switch name {
	case "halt":
		_, err = regs(0)
		if err != nil {
			return
		}
		codes = append(codes, MakeCode(OP_HALT, 0, 0, 0))
	case "loadv":
		if len(args) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var a int
		a, err = asm.register(args[0])
		if err != nil {
			return
		}
		var value uint32
		value, label, err = asm.valueOrLabel(args[1])
		if err != nil {
			return
		}
		if value > VALUE_MAX {
			err = ErrValueRange(value)
			return
		}
		codes = append(codes, MakeCodeLoadv(a, value))
	case ".word":
		if len(args) < 1 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		var value uint32
		value, label, err = asm.valueOrLabel(args[0])
		if err != nil {
			return
		}
		codes = append(codes, Code(value))
	case ".zero":
		if len(args) != 1 {
			err = ErrOpcodeValueMissing
			return
		}
		var count uint32
		count, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if count > VALUE_MAX {
			err = ErrValueRange(count)
			return
		}
		codes = make([]Code, count)
	default:
		err = fmt.Errorf("%w: %v", ErrInstructionInvalid, name)
		return
	}

	return
}
