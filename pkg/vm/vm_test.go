package vm

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chazu/turmite/pkg/bytecode"
	"github.com/chazu/turmite/pkg/tape"
)

func build(t *testing.T, emit func(b *bytecode.Builder)) *bytecode.Program {
	t.Helper()
	b := bytecode.NewBuilder()
	emit(b)
	p, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

// patchAddr rewrites the u32 operand at at+1 of an instruction emitted
// before its target address was known.
func patchAddr(b *bytecode.Builder, at, target uint32) {
	buf := b.Bytes()
	buf[at+1] = byte(target)
	buf[at+2] = byte(target >> 8)
	buf[at+3] = byte(target >> 16)
	buf[at+4] = byte(target >> 24)
}

// buildAlternating writes '0' then rewrites each digit to the other one
// forever, moving right one square per move.
func buildAlternating(t *testing.T) *bytecode.Program {
	return build(t, func(b *bytecode.Builder) {
		entry := b.BeginState()
		b.Other()
		b.WriteVal('0')
		finalAt := b.Here()
		b.FinalState(0)

		flip := b.BeginState()
		patch := b.CompareVal('0')
		b.Right()
		b.WriteVal('1')
		b.FinalState(flip)
		b.EndArm(patch)
		patch = b.CompareVal('1')
		b.Right()
		b.WriteVal('0')
		b.FinalState(flip)
		b.EndArm(patch)
		b.Halt()

		patchAddr(b, finalAt, flip)
		b.SetEntry(entry)
	})
}

func TestAlternatingBits(t *testing.T) {
	machine := New(buildAlternating(t), nil)

	cause, err := machine.Run(10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cause != CauseBudget {
		t.Errorf("cause = %v, want budget", cause)
	}
	if got := machine.Moves(); got != 10 {
		t.Errorf("moves = %d, want 10", got)
	}
	if got := machine.Head(); got != 9 {
		t.Errorf("head = %d, want 9", got)
	}
	want := []uint16{'0', '1', '0', '1', '0', '1', '0', '1', '0', '1'}
	if got := machine.Tape(); !reflect.DeepEqual(got, want) {
		t.Errorf("tape = %v, want %v", got, want)
	}
}

func TestLeftBoundaryHalt(t *testing.T) {
	p := build(t, func(b *bytecode.Builder) {
		entry := b.BeginState()
		b.Other()
		b.Left()
		b.FinalState(entry)
		b.SetEntry(entry)
	})
	machine := New(p, nil)

	cause, err := machine.Run(1_000_000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cause != CauseLeftBoundary {
		t.Errorf("cause = %v, want left-boundary", cause)
	}
	if got := machine.Moves(); got != 0 {
		t.Errorf("moves = %d, want 0 (boundary breaks before the increment)", got)
	}
	if got := machine.Head(); got != 0 {
		t.Errorf("head = %d, want 0", got)
	}
	if got := machine.Tape(); len(got) != 0 {
		t.Errorf("tape = %v, want empty", got)
	}
}

func TestTapeGrowth(t *testing.T) {
	p := build(t, func(b *bytecode.Builder) {
		entry := b.BeginState()
		b.Other()
		for i := 0; i < 4; i++ {
			b.RightN(250)
		}
		b.WriteVal(0x41)
		b.FinalHalt()
		b.SetEntry(entry)
	})
	machine := New(p, nil)

	cause, err := machine.Run(100)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cause != CauseHalt {
		t.Errorf("cause = %v, want halt", cause)
	}
	if got := machine.Moves(); got != 1 {
		t.Errorf("moves = %d, want 1", got)
	}
	if got := machine.Head(); got != 1000 {
		t.Errorf("head = %d, want 1000", got)
	}
	if got := machine.TapeLen(); got < 1001 {
		t.Errorf("backing length = %d, want >= 1001", got)
	}
	contents := machine.Tape()
	if len(contents) != 1001 || contents[1000] != 0x41 {
		t.Fatalf("tape end = %v (len %d), want 0x41 at 1000", contents[len(contents)-1], len(contents))
	}
	for i := 0; i < 1000; i++ {
		if contents[i] != 0 {
			t.Fatalf("cell %d = %d, want blank", i, contents[i])
		}
	}
}

// buildHigherOrder assembles a state value carrying one symbol, enters it
// through FINAL_ARG, and has the target match the head against that symbol.
func buildHigherOrder(t *testing.T, sym uint16) *bytecode.Program {
	return build(t, func(b *bytecode.Builder) {
		target := b.BeginState()
		patch := b.CompareArg(0)
		b.WriteArg(0)
		b.FinalHalt()
		b.EndArm(patch)
		b.Halt()

		tramp := b.BeginState()
		b.Other()
		b.FinalArg(0)

		entry := b.BeginState()
		b.Other()
		b.SymbolVal(sym)
		b.MakeState(0, target)
		b.FinalState(tramp)
		b.SetEntry(entry)
	})
}

func TestHigherOrderState(t *testing.T) {
	for _, sym := range []uint16{0x61, 0x1234} {
		machine := New(buildHigherOrder(t, sym), []uint16{sym})

		cause, err := machine.Run(100)
		if err != nil {
			t.Fatalf("sym %#x: Run: %v", sym, err)
		}
		if cause != CauseHalt {
			t.Errorf("sym %#x: cause = %v, want halt", sym, cause)
		}
		if got := machine.Moves(); got != 3 {
			t.Errorf("sym %#x: moves = %d, want 3", sym, got)
		}
		if got := machine.Head(); got != 0 {
			t.Errorf("sym %#x: head = %d, want 0", sym, got)
		}
		if got := machine.Tape(); !reflect.DeepEqual(got, []uint16{sym}) {
			t.Errorf("sym %#x: tape = %v, want [%#x]", sym, got, sym)
		}
	}
}

func TestBlankWriteDoesNotGrow(t *testing.T) {
	p := build(t, func(b *bytecode.Builder) {
		entry := b.BeginState()
		b.Other()
		b.RightN(100)
		b.WriteVal(0)
		b.FinalHalt()
		b.SetEntry(entry)
	})
	machine := New(p, nil)

	if _, err := machine.Run(10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := machine.TapeLen(); got != tape.InitialCapacity {
		t.Errorf("backing length = %d, want %d (blank write must not grow)", got, tape.InitialCapacity)
	}
	if got := machine.Head(); got != 100 {
		t.Errorf("head = %d, want 100", got)
	}
	if got := machine.Moves(); got != 1 {
		t.Errorf("moves = %d, want 1", got)
	}
}

func TestBudgetExhaustion(t *testing.T) {
	machine := New(buildAlternating(t), nil)

	cause, err := machine.Run(0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cause != CauseBudget {
		t.Errorf("cause = %v, want budget", cause)
	}
	if got := machine.Moves(); got != 0 {
		t.Errorf("moves = %d, want 0", got)
	}
	if got := machine.Head(); got != 0 {
		t.Errorf("head = %d, want 0", got)
	}
	if got := machine.Tape(); len(got) != 0 {
		t.Errorf("tape = %v, want unchanged", got)
	}
}

func TestMissedArmSkipsToNext(t *testing.T) {
	p := build(t, func(b *bytecode.Builder) {
		entry := b.BeginState()
		patch := b.CompareVal(7)
		b.WriteVal(0x55)
		b.FinalHalt()
		b.EndArm(patch)
		b.Other()
		b.WriteVal(0x66)
		b.FinalHalt()
		b.SetEntry(entry)
	})
	machine := New(p, nil)

	if _, err := machine.Run(10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := machine.Tape(); !reflect.DeepEqual(got, []uint16{0x66}) {
		t.Errorf("tape = %v, want [0x66]", got)
	}
}

func TestOtherBindsHeadSymbol(t *testing.T) {
	p := build(t, func(b *bytecode.Builder) {
		entry := b.BeginState()
		b.Other()
		b.Right()
		b.WriteBound()
		b.FinalHalt()
		b.SetEntry(entry)
	})
	machine := New(p, []uint16{0x42})

	if _, err := machine.Run(10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := machine.Tape(); !reflect.DeepEqual(got, []uint16{0x42, 0x42}) {
		t.Errorf("tape = %v, want the bound symbol copied right", got)
	}
}

func TestCloneKeepsArgumentLive(t *testing.T) {
	// The entry builds a state carrying symbol 5; the middle state clones
	// it, then still enters the original through FINAL_ARG.
	p := build(t, func(b *bytecode.Builder) {
		target := b.BeginState()
		b.Other()
		b.WriteArg(0)
		b.FinalHalt()

		unwrap := b.BeginState()
		b.Other()
		b.FinalArg(0)

		mid := b.BeginState()
		b.Other()
		b.CloneArg(0)
		b.MakeState(1, unwrap)
		b.FinalArg(0)

		entry := b.BeginState()
		b.Other()
		b.SymbolVal(5)
		b.MakeState(0, target)
		b.FinalState(mid)
		b.SetEntry(entry)
	})
	machine := New(p, nil)

	cause, err := machine.Run(10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cause != CauseHalt {
		t.Errorf("cause = %v, want halt", cause)
	}
	if got := machine.Tape(); !reflect.DeepEqual(got, []uint16{5}) {
		t.Errorf("tape = %v, want [5]", got)
	}
}

func TestFreeThenFinalArgFaults(t *testing.T) {
	p := build(t, func(b *bytecode.Builder) {
		target := b.BeginState()
		b.Other()
		b.FinalHalt()

		mid := b.BeginState()
		b.Other()
		b.FreeArg(0)
		b.FinalArg(0)

		entry := b.BeginState()
		b.Other()
		b.MakeState(0, target)
		b.FinalState(mid)
		b.SetEntry(entry)
	})
	machine := New(p, nil)

	_, err := machine.Run(10)
	var fault *FaultError
	if !errors.As(err, &fault) {
		t.Fatalf("error = %v, want *FaultError", err)
	}
}

func TestSymbolArgOutOfRangeFaults(t *testing.T) {
	p := build(t, func(b *bytecode.Builder) {
		entry := b.BeginState()
		b.Other()
		b.WriteArg(0)
		b.FinalHalt()
		b.SetEntry(entry)
	})
	machine := New(p, nil)

	_, err := machine.Run(10)
	var fault *FaultError
	if !errors.As(err, &fault) {
		t.Fatalf("error = %v, want *FaultError", err)
	}
}

func TestUnknownArmOpcodeFaults(t *testing.T) {
	p := build(t, func(b *bytecode.Builder) {
		entry := b.BeginState()
		b.Other()
		b.FinalHalt()
		b.SetEntry(entry)
	})
	p.Bytes[p.Entry] = 0xEE
	machine := New(p, nil)

	_, err := machine.Run(10)
	var fault *FaultError
	if !errors.As(err, &fault) {
		t.Fatalf("error = %v, want *FaultError", err)
	}
}

func TestTakeArgTransfersOwnership(t *testing.T) {
	// mid wraps its argument in a fresh envelope via TAKE_ARG and enters
	// the wrapper; unwrap then finds the original symbol intact.
	p := build(t, func(b *bytecode.Builder) {
		target := b.BeginState()
		b.Other()
		b.WriteArg(0)
		b.FinalHalt()

		unwrap := b.BeginState()
		b.Other()
		b.FinalArg(0)

		mid := b.BeginState()
		b.Other()
		b.TakeArg(0)
		b.MakeState(1, unwrap)
		b.FinalState(unwrap)

		entry := b.BeginState()
		b.Other()
		b.SymbolVal(0x77)
		b.MakeState(0, target)
		b.FinalState(mid)
		b.SetEntry(entry)
	})
	machine := New(p, nil)

	cause, err := machine.Run(10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cause != CauseHalt {
		t.Errorf("cause = %v, want halt", cause)
	}
	if got := machine.Tape(); !reflect.DeepEqual(got, []uint16{0x77}) {
		t.Errorf("tape = %v, want [0x77]", got)
	}
}

func TestDeterminism(t *testing.T) {
	p := buildAlternating(t)

	first, err := Simulate(p, nil, 10)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	second, err := Simulate(p, nil, 10)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated runs diverged:\n%+v\n%+v", first, second)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	machine := New(buildAlternating(t), nil)

	if _, err := machine.Run(5); err != nil {
		t.Fatalf("Run: %v", err)
	}
	moves := machine.Moves()

	machine.Close()
	machine.Close()

	if got := machine.Moves(); got != moves {
		t.Errorf("moves after close = %d, want %d", got, moves)
	}
}

func TestCauseString(t *testing.T) {
	cases := []struct {
		cause Cause
		want  string
	}{
		{CauseHalt, "halt"},
		{CauseLeftBoundary, "left-boundary"},
		{CauseBudget, "budget"},
	}
	for _, c := range cases {
		if got := c.cause.String(); got != c.want {
			t.Errorf("%d.String() = %q, want %q", int(c.cause), got, c.want)
		}
	}
}
