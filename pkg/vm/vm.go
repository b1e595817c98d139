package vm

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/turmite/pkg/bytecode"
	"github.com/chazu/turmite/pkg/tape"
)

var log = commonlog.GetLogger("turmite.vm")

// Cause reports why a run ended.
type Cause int

const (
	// CauseHalt means a HALT arm matched or a final transition targeted
	// the shared HALT address.
	CauseHalt Cause = iota

	// CauseLeftBoundary means a leftward move crossed position 0.
	CauseLeftBoundary

	// CauseBudget means the move budget ran out before the machine
	// stopped on its own.
	CauseBudget
)

func (c Cause) String() string {
	switch c {
	case CauseHalt:
		return "halt"
	case CauseLeftBoundary:
		return "left-boundary"
	case CauseBudget:
		return "budget"
	default:
		return fmt.Sprintf("Cause(%d)", int(c))
	}
}

// FaultError reports a bytecode contract violation: an opcode that cannot
// appear at its position, an argument index with no live binding, or a
// scratch stack pushed past its capacity.
type FaultError struct {
	Address int
	Message string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("bytecode fault at 0x%08X: %s", e.Address, e.Message)
}

func (vm *VM) faultf(at int, format string, args ...any) error {
	return &FaultError{Address: at, Message: fmt.Sprintf(format, args...)}
}

// VM executes one program against one tape. It is single-use: construct
// with New, drive with Run, then read the accessors.
type VM struct {
	cur  bytecode.Cursor
	tape *tape.Tape

	// address is the current state's first arm; the cursor returns here
	// after every completed move.
	address uint32

	// Argument registers of the current state. A nil state slot is a
	// tombstone left by TAKE_ARG or FREE_ARG.
	stateArgs  []*StateValue
	symbolArgs []uint16

	// Scratch stacks staging a state envelope until MAKE_STATE or
	// FINAL_STATE consumes it.
	stateScratch  []*StateValue
	symbolScratch []uint16

	// bound holds the symbol captured by an OTHER arm for the duration
	// of its right-hand side.
	bound uint16

	moves int

	// Trace emits a debug log line per executed instruction.
	Trace bool
}

// New returns a VM positioned at the program's entry state with the given
// initial tape.
func New(p *bytecode.Program, initial []uint16) *VM {
	vm := &VM{
		cur:           bytecode.NewCursor(p.Bytes),
		tape:          tape.New(initial),
		address:       p.Entry,
		stateScratch:  make([]*StateValue, 0, StateScratchCapacity),
		symbolScratch: make([]uint16, 0, SymbolScratchCapacity),
	}
	vm.cur.Jump(p.Entry)
	return vm
}

// Run executes moves until the machine halts, falls off the left edge of
// the tape, or exhausts maxMoves. The budget is checked before each move,
// so maxMoves of 0 performs no moves at all.
func (vm *VM) Run(maxMoves int) (Cause, error) {
	for {
		if vm.moves >= maxMoves {
			return CauseBudget, nil
		}
		outcome, err := vm.runMove()
		if err != nil {
			return CauseHalt, err
		}
		switch outcome {
		case moveMatched:
			vm.moves++
		case moveHalted:
			return CauseHalt, nil
		case moveStopped:
			return CauseLeftBoundary, nil
		}
	}
}

type moveOutcome int

const (
	moveMatched moveOutcome = iota
	moveHalted
	moveStopped
)

// runMove scans the current state's arm chain for the first pattern
// matching the symbol under the head and executes its right-hand side.
func (vm *VM) runMove() (moveOutcome, error) {
	vm.cur.Jump(vm.address)
	symbol := vm.tape.Read()

	for {
		at := vm.cur.Pos()
		op := bytecode.Opcode(vm.cur.U8())
		if vm.Trace {
			log.Debugf("%04X %-13s head=%d moves=%d", at, op, vm.tape.Head(), vm.moves)
		}

		switch op {

		// ==== Arm patterns ====

		case bytecode.OpCompareArg:
			arg := vm.cur.U8()
			want, err := vm.symbolArg(at, arg)
			if err != nil {
				return moveHalted, err
			}
			skip := vm.cur.U16()
			if symbol == want {
				return vm.rhs()
			}
			vm.cur.Skip(int(skip))

		case bytecode.OpCompareVal:
			want := vm.cur.U16()
			skip := vm.cur.U16()
			if symbol == want {
				return vm.rhs()
			}
			vm.cur.Skip(int(skip))

		case bytecode.OpOther:
			vm.bound = symbol
			return vm.rhs()

		case bytecode.OpHalt:
			return moveHalted, nil

		default:
			return moveHalted, vm.faultf(at, "%s cannot begin an arm", op)
		}
	}
}

// rhs executes right-hand-side instructions up to the final transition.
func (vm *VM) rhs() (moveOutcome, error) {
	for {
		at := vm.cur.Pos()
		op := bytecode.Opcode(vm.cur.U8())
		if vm.Trace {
			log.Debugf("%04X %-13s head=%d moves=%d", at, op, vm.tape.Head(), vm.moves)
		}

		switch op {

		// ==== Tape motion ====

		case bytecode.OpLeft:
			if !vm.tape.Left(1) {
				vm.stop()
				return moveStopped, nil
			}

		case bytecode.OpRight:
			vm.tape.Right(1)

		case bytecode.OpLeftN:
			n := vm.cur.U8()
			if !vm.tape.Left(int(n)) {
				vm.stop()
				return moveStopped, nil
			}

		case bytecode.OpRightN:
			vm.tape.Right(int(vm.cur.U8()))

		// ==== Tape writes ====

		case bytecode.OpWriteArg:
			arg := vm.cur.U8()
			value, err := vm.symbolArg(at, arg)
			if err != nil {
				return moveHalted, err
			}
			vm.tape.Write(value)

		case bytecode.OpWriteVal:
			vm.tape.Write(vm.cur.U16())

		case bytecode.OpWriteBound:
			vm.tape.Write(vm.bound)

		// ==== Symbol scratch ====

		case bytecode.OpSymbolArg:
			arg := vm.cur.U8()
			value, err := vm.symbolArg(at, arg)
			if err != nil {
				return moveHalted, err
			}
			if err := vm.pushSymbol(at, value); err != nil {
				return moveHalted, err
			}

		case bytecode.OpSymbolVal:
			if err := vm.pushSymbol(at, vm.cur.U16()); err != nil {
				return moveHalted, err
			}

		case bytecode.OpSymbolBound:
			if err := vm.pushSymbol(at, vm.bound); err != nil {
				return moveHalted, err
			}

		// ==== State argument control ====

		case bytecode.OpTakeArg:
			arg := vm.cur.U8()
			value, err := vm.takeStateArg(at, arg)
			if err != nil {
				return moveHalted, err
			}
			if err := vm.pushState(at, value); err != nil {
				return moveHalted, err
			}

		case bytecode.OpCloneArg:
			arg := vm.cur.U8()
			value, err := vm.stateArg(at, arg)
			if err != nil {
				return moveHalted, err
			}
			if err := vm.pushState(at, value.Clone()); err != nil {
				return moveHalted, err
			}

		case bytecode.OpFreeArg:
			arg := vm.cur.U8()
			if _, err := vm.takeStateArg(at, arg); err != nil {
				return moveHalted, err
			}

		case bytecode.OpMakeState:
			children := int(vm.cur.U8())
			addr := vm.cur.U32()
			if children > len(vm.stateScratch) {
				return moveHalted, vm.faultf(at, "MAKE_STATE needs %d children, scratch holds %d", children, len(vm.stateScratch))
			}
			s := &StateValue{Address: addr}
			if children > 0 {
				split := len(vm.stateScratch) - children
				s.Children = append(s.Children, vm.stateScratch[split:]...)
				vm.stateScratch = vm.stateScratch[:split]
			}
			if len(vm.symbolScratch) > 0 {
				s.Symbols = append(s.Symbols, vm.symbolScratch...)
				vm.symbolScratch = vm.symbolScratch[:0]
			}
			if err := vm.pushState(at, s); err != nil {
				return moveHalted, err
			}

		// ==== Final transitions ====

		case bytecode.OpFinalState:
			vm.address = vm.cur.Goto()
			vm.enterScratch()
			return moveMatched, nil

		case bytecode.OpFinalArg:
			arg := vm.cur.U8()
			next, err := vm.takeStateArg(at, arg)
			if err != nil {
				return moveHalted, err
			}
			vm.address = next.Address
			vm.cur.Jump(next.Address)
			vm.stateArgs = next.Children
			vm.symbolArgs = next.Symbols
			return moveMatched, nil

		default:
			return moveHalted, vm.faultf(at, "%s cannot appear in a right-hand side", op)
		}
	}
}

// enterScratch installs the staged scratch stacks as the next state's
// argument registers.
func (vm *VM) enterScratch() {
	vm.stateArgs = append([]*StateValue(nil), vm.stateScratch...)
	vm.symbolArgs = append([]uint16(nil), vm.symbolScratch...)
	vm.stateScratch = vm.stateScratch[:0]
	vm.symbolScratch = vm.symbolScratch[:0]
}

// stop discards any staged envelope when the machine halts at the left
// tape boundary mid-move.
func (vm *VM) stop() {
	vm.stateScratch = vm.stateScratch[:0]
	vm.symbolScratch = vm.symbolScratch[:0]
}

func (vm *VM) symbolArg(at int, arg uint8) (uint16, error) {
	if int(arg) >= len(vm.symbolArgs) {
		return 0, vm.faultf(at, "symbol argument %d out of range (%d bound)", arg, len(vm.symbolArgs))
	}
	return vm.symbolArgs[arg], nil
}

func (vm *VM) stateArg(at int, arg uint8) (*StateValue, error) {
	if int(arg) >= len(vm.stateArgs) {
		return nil, vm.faultf(at, "state argument %d out of range (%d bound)", arg, len(vm.stateArgs))
	}
	s := vm.stateArgs[arg]
	if s == nil {
		return nil, vm.faultf(at, "state argument %d already consumed", arg)
	}
	return s, nil
}

func (vm *VM) takeStateArg(at int, arg uint8) (*StateValue, error) {
	s, err := vm.stateArg(at, arg)
	if err != nil {
		return nil, err
	}
	vm.stateArgs[arg] = nil
	return s, nil
}

func (vm *VM) pushState(at int, s *StateValue) error {
	if len(vm.stateScratch) >= StateScratchCapacity {
		return vm.faultf(at, "state scratch overflow (capacity %d)", StateScratchCapacity)
	}
	vm.stateScratch = append(vm.stateScratch, s)
	return nil
}

func (vm *VM) pushSymbol(at int, value uint16) error {
	if len(vm.symbolScratch) >= SymbolScratchCapacity {
		return vm.faultf(at, "symbol scratch overflow (capacity %d)", SymbolScratchCapacity)
	}
	vm.symbolScratch = append(vm.symbolScratch, value)
	return nil
}

// Close releases the argument registers, scratch stacks, and tape. It is
// safe to call more than once; the VM is unusable afterwards.
func (vm *VM) Close() {
	vm.stateArgs = nil
	vm.symbolArgs = nil
	vm.stateScratch = nil
	vm.symbolScratch = nil
	vm.tape = nil
}

// FinalAddress returns the address of the state the machine was in when
// the run ended.
func (vm *VM) FinalAddress() uint32 {
	return vm.address
}

// Moves returns the number of completed moves.
func (vm *VM) Moves() int {
	return vm.moves
}

// Head returns the tape head position.
func (vm *VM) Head() int {
	return vm.tape.Head()
}

// TapeLen returns the tape's backing array length.
func (vm *VM) TapeLen() int {
	return vm.tape.Len()
}

// Tape returns the tape contents with trailing blanks trimmed.
func (vm *VM) Tape() []uint16 {
	return vm.tape.Contents()
}

// Result bundles the observable outcome of a complete run.
type Result struct {
	Tape         []uint16
	Head         int
	FinalAddress uint32
	Moves        int
	Cause        Cause
}

// Simulate runs a program to completion against an initial tape and
// returns its outcome.
func Simulate(p *bytecode.Program, initial []uint16, maxMoves int) (*Result, error) {
	vm := New(p, initial)
	cause, err := vm.Run(maxMoves)
	if err != nil {
		return nil, err
	}
	r := &Result{
		Tape:         vm.Tape(),
		Head:         vm.Head(),
		FinalAddress: vm.FinalAddress(),
		Moves:        vm.Moves(),
		Cause:        cause,
	}
	vm.Close()
	return r, nil
}
