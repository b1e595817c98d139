package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of a program.
//
// The walk mirrors execution: states are listed in layout order, each as a
// chain of arms, each arm as a pattern followed by its right-hand side. A
// byte that cannot begin an instruction at its position is an error.
func Disassemble(p *Program) (string, error) {
	d := &disassembler{cur: NewCursor(p.Bytes), program: p}
	return d.run()
}

type disassembler struct {
	cur     Cursor
	program *Program
	sb      strings.Builder
}

func (d *disassembler) run() (string, error) {
	count := d.cur.U16()
	entry := d.cur.U32()

	fmt.Fprintf(&d.sb, "; Turmite bytecode\n")
	fmt.Fprintf(&d.sb, "; States: %d\n", count)
	fmt.Fprintf(&d.sb, "; Entry: 0x%08X\n\n", entry)

	at := d.cur.Pos()
	if op := Opcode(d.cur.U8()); op != OpHalt {
		return "", fmt.Errorf("expected shared HALT arm at %04X, found %s", at, op)
	}
	fmt.Fprintf(&d.sb, "%04X  HALT\n", at)

	for i := uint16(0); i < count; i++ {
		fmt.Fprintf(&d.sb, "\n; ===== state %d (0x%08X) =====\n", i, d.cur.Pos())
		if err := d.state(); err != nil {
			return "", err
		}
	}

	if d.cur.Pos() != len(d.program.Bytes) {
		return "", fmt.Errorf("%d trailing bytes after final state", len(d.program.Bytes)-d.cur.Pos())
	}

	return d.sb.String(), nil
}

// state lists arms until a chain-ending one (OTHER or HALT).
func (d *disassembler) state() error {
	for arm := 0; ; arm++ {
		fmt.Fprintf(&d.sb, "; arm %d:\n", arm)
		last, halt, err := d.pattern()
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
		if err := d.rhs(); err != nil {
			return err
		}
		if last {
			return nil
		}
	}
}

// pattern lists one arm header. Returns whether the arm always matches
// (ending the chain after its RHS) and whether it was a HALT.
func (d *disassembler) pattern() (last, halt bool, err error) {
	at := d.cur.Pos()
	op := Opcode(d.cur.U8())
	switch op {
	case OpCompareArg:
		arg := d.cur.U8()
		skip := d.cur.U16()
		fmt.Fprintf(&d.sb, "%04X  COMPARE_ARG arg=%d skip=%d\n", at, arg, skip)
		return false, false, nil
	case OpCompareVal:
		value := d.cur.U16()
		skip := d.cur.U16()
		fmt.Fprintf(&d.sb, "%04X  COMPARE_VAL value=%d skip=%d\n", at, value, skip)
		return false, false, nil
	case OpOther:
		fmt.Fprintf(&d.sb, "%04X  OTHER\n", at)
		return true, false, nil
	case OpHalt:
		fmt.Fprintf(&d.sb, "%04X  HALT\n", at)
		return true, true, nil
	default:
		return false, false, fmt.Errorf("invalid arm pattern %s at %04X", op, at)
	}
}

// rhs lists right-hand-side instructions up to and including the terminal.
func (d *disassembler) rhs() error {
	for {
		at := d.cur.Pos()
		op := Opcode(d.cur.U8())
		switch op {
		case OpLeft, OpRight, OpWriteBound, OpSymbolBound:
			fmt.Fprintf(&d.sb, "%04X    %s\n", at, op)
		case OpLeftN, OpRightN:
			fmt.Fprintf(&d.sb, "%04X    %s n=%d\n", at, op, d.cur.U8())
		case OpWriteArg, OpSymbolArg, OpTakeArg, OpCloneArg, OpFreeArg:
			fmt.Fprintf(&d.sb, "%04X    %s arg=%d\n", at, op, d.cur.U8())
		case OpWriteVal, OpSymbolVal:
			fmt.Fprintf(&d.sb, "%04X    %s value=%d\n", at, op, d.cur.U16())
		case OpMakeState:
			children := d.cur.U8()
			addr := d.cur.U32()
			fmt.Fprintf(&d.sb, "%04X    MAKE_STATE children=%d addr=0x%08X\n", at, children, addr)
		case OpFinalState:
			fmt.Fprintf(&d.sb, "%04X    FINAL_STATE addr=0x%08X\n", at, d.cur.U32())
			return nil
		case OpFinalArg:
			fmt.Fprintf(&d.sb, "%04X    FINAL_ARG arg=%d\n", at, d.cur.U8())
			return nil
		default:
			return fmt.Errorf("invalid instruction %s at %04X", op, at)
		}
	}
}
