// Package cpu implements the Universal Machine and its assembler.
//
// The machine has eight 32-bit registers (r0-r7), a program counter into
// segment 0, and an arena of word segments addressed by 32-bit handles.
// Released handles are reused most recently released first. Fourteen
// operations act on the registers, the arena, and a console channel.
// Every failure is a terminal Fault that stops the machine.
//
// The assembler provides a textual form of the instruction set with
// macros, labels, equates, and compile-time expression evaluation.
package cpu
