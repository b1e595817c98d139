package bytecode

import "fmt"

// Opcode represents a single instruction byte.
//
// The numbering is split into two blocks: arm patterns (0-3), decoded by the
// move evaluator, and right-hand-side instructions (4-19), decoded by the
// RHS evaluator. The assignment is a contract with the compiler; it matches
// the reference emitter exactly.
type Opcode byte

const (
	// ========================================================================
	// Arm patterns (0x00-0x03)
	// ========================================================================

	OpCompareArg Opcode = 0 // Match head against symbol argument: COMPARE_ARG <arg:u8> <skip:u16>
	OpCompareVal Opcode = 1 // Match head against immediate: COMPARE_VAL <value:u16> <skip:u16>
	OpOther      Opcode = 2 // Always match, binding the head symbol
	OpHalt       Opcode = 3 // End of arm chain; stop the machine

	// ========================================================================
	// Tape motion and writes (0x04-0x0A)
	// ========================================================================

	OpLeft       Opcode = 4  // Move head left one square
	OpRight      Opcode = 5  // Move head right one square
	OpLeftN      Opcode = 6  // Move head left: LEFT_N <n:u8>
	OpRightN     Opcode = 7  // Move head right: RIGHT_N <n:u8>
	OpWriteArg   Opcode = 8  // Write symbol argument: WRITE_ARG <arg:u8>
	OpWriteVal   Opcode = 9  // Write immediate: WRITE_VAL <value:u16>
	OpWriteBound Opcode = 10 // Write the symbol bound by OTHER

	// ========================================================================
	// Successor-state assembly (0x0B-0x13)
	// ========================================================================

	OpSymbolArg   Opcode = 11 // Push symbol argument to symbol scratch: SYMBOL_ARG <arg:u8>
	OpSymbolVal   Opcode = 12 // Push immediate to symbol scratch: SYMBOL_VAL <value:u16>
	OpSymbolBound Opcode = 13 // Push the bound symbol to symbol scratch
	OpTakeArg     Opcode = 14 // Move state argument to state scratch: TAKE_ARG <arg:u8>
	OpCloneArg    Opcode = 15 // Deep-copy state argument to state scratch: CLONE_ARG <arg:u8>
	OpFreeArg     Opcode = 16 // Discard state argument: FREE_ARG <arg:u8>
	OpMakeState   Opcode = 17 // Assemble a state value: MAKE_STATE <children:u8> <addr:u32>
	OpFinalState  Opcode = 18 // Transition to a named state: FINAL_STATE <addr:u32>
	OpFinalArg    Opcode = 19 // Transition into a state argument: FINAL_ARG <arg:u8>
)

// OpcodeInfo provides metadata about each opcode for decoding and listing.
type OpcodeInfo struct {
	Name       string // Canonical mnemonic
	OperandLen int    // Number of operand bytes following the opcode
	Pattern    bool   // True for arm-pattern opcodes
	Terminal   bool   // True for opcodes that end an RHS sequence
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Arm patterns. COMPARE operands include the u16 skip field.
	OpCompareArg: {"COMPARE_ARG", 3, true, false},
	OpCompareVal: {"COMPARE_VAL", 4, true, false},
	OpOther:      {"OTHER", 0, true, false},
	OpHalt:       {"HALT", 0, true, false},

	// Tape motion and writes
	OpLeft:       {"LEFT", 0, false, false},
	OpRight:      {"RIGHT", 0, false, false},
	OpLeftN:      {"LEFT_N", 1, false, false},
	OpRightN:     {"RIGHT_N", 1, false, false},
	OpWriteArg:   {"WRITE_ARG", 1, false, false},
	OpWriteVal:   {"WRITE_VAL", 2, false, false},
	OpWriteBound: {"WRITE_BOUND", 0, false, false},

	// Successor-state assembly
	OpSymbolArg:   {"SYMBOL_ARG", 1, false, false},
	OpSymbolVal:   {"SYMBOL_VAL", 2, false, false},
	OpSymbolBound: {"SYMBOL_BOUND", 0, false, false},
	OpTakeArg:     {"TAKE_ARG", 1, false, false},
	OpCloneArg:    {"CLONE_ARG", 1, false, false},
	OpFreeArg:     {"FREE_ARG", 1, false, false},
	OpMakeState:   {"MAKE_STATE", 5, false, false},
	OpFinalState:  {"FINAL_STATE", 4, false, true},
	OpFinalArg:    {"FINAL_ARG", 1, false, true},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an otherwise zero OpcodeInfo named "UNKNOWN(0xNN)" if the opcode
// is not defined.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the canonical mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsPattern returns true if this opcode begins an arm.
func (op Opcode) IsPattern() bool {
	return GetOpcodeInfo(op).Pattern
}

// IsTerminal returns true if this opcode ends a right-hand side.
func (op Opcode) IsTerminal() bool {
	return GetOpcodeInfo(op).Terminal
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
