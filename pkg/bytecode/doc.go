// Package bytecode defines the compiled form of a Turing machine program
// and the tools that operate on it without executing it.
//
// A program is a flat little-endian byte stream:
//
//	[state count:u16] [entry address:u32] [body...]
//
// The body is a sequence of state regions. Each region is a chain of arms;
// an arm is a pattern opcode (COMPARE_ARG, COMPARE_VAL, OTHER or HALT)
// followed, except for HALT, by a right-hand-side instruction sequence that
// always ends in a final transition (FINAL_STATE or FINAL_ARG). The two
// COMPARE forms carry a u16 skip operand equal to the byte length of their
// right-hand side, so a failed match jumps exactly past it to the next arm.
//
// Offset 6, immediately after the header, holds a shared HALT arm that the
// emitter places there unconditionally. Final transitions that halt the
// machine target this address (HaltAddress).
//
// The package provides:
//
//   - Opcodes: the 20 instruction bytes with metadata for decoding
//   - Cursor: a read position over program bytes with 8/16/32-bit fetches
//   - Program: a parsed, validated program ready for execution
//   - Builder: an emission layer with skip back-patching, used by compilers
//     and by tests that assemble programs by hand
//   - Disassemble: a human-readable listing of a program
//
// Execution lives in package vm.
package bytecode
