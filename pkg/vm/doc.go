// Package vm executes Turing machine bytecode against an unbounded symbol
// tape.
//
// Execution is two-level. The move evaluator reads the current state's arm
// chain and compares the symbol under the tape head against each arm's
// pattern; the first match dispatches into the RHS evaluator, which runs
// the arm's instructions (tape motion, writes, successor-state assembly)
// and ends in exactly one final transition. Control then returns to the
// move loop for the next move.
//
// States are first-class: a StateValue carries a bytecode address plus
// bindings for its state and symbol parameters, and the TAKE_ARG /
// CLONE_ARG / FREE_ARG instructions give the bytecode explicit move, copy
// and discard control over those bindings. Two push-only scratch stacks
// stage a state envelope until the MAKE_STATE or FINAL_STATE instruction
// that consumes it.
//
// A VM instance is single-threaded and not safe for concurrent use. The
// bytecode is trusted: contract violations (unknown opcodes, consumed
// argument slots, scratch overflow) surface as *FaultError rather than
// corrupting the run.
package vm
