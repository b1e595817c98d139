package bytecode

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the byte length of the program header: a u16 state
	// count followed by the u32 entry address.
	HeaderSize = 6

	// HaltAddress is the offset of the shared HALT arm the emitter places
	// immediately after the header. Final transitions that stop the
	// machine target this address.
	HaltAddress uint32 = 6
)

// Program is a parsed bytecode program. Bytes is the full immutable stream,
// header included; all addresses inside the body are offsets into it.
type Program struct {
	Bytes      []byte
	StateCount uint16 // informational; the VM does not consult it
	Entry      uint32 // offset of the starting state's first arm
}

// Parse validates the header of a byte stream and wraps it as a Program.
func Parse(data []byte) (*Program, error) {
	if len(data) < HeaderSize+1 {
		return nil, fmt.Errorf("program too short: need at least %d bytes, got %d", HeaderSize+1, len(data))
	}

	p := &Program{
		Bytes:      data,
		StateCount: binary.LittleEndian.Uint16(data[0:2]),
		Entry:      binary.LittleEndian.Uint32(data[2:6]),
	}

	if p.Entry < HeaderSize || int(p.Entry) >= len(data) {
		return nil, fmt.Errorf("entry address 0x%08X outside program body (len %d)", p.Entry, len(data))
	}
	if Opcode(data[HaltAddress]) != OpHalt {
		return nil, fmt.Errorf("missing shared HALT arm at offset %d", HaltAddress)
	}

	return p, nil
}

// Len returns the total byte length of the program.
func (p *Program) Len() int {
	return len(p.Bytes)
}

// Builder assembles a program byte stream. It mirrors the reference
// emitter: the header is reserved up front with an unset entry address, the
// shared HALT arm goes at offset 6, and states are appended after it.
//
// The zero value is not usable; call NewBuilder.
type Builder struct {
	buf        []byte
	stateCount uint16
	entrySet   bool
}

// NewBuilder returns a builder holding the reserved header and the shared
// HALT arm.
func NewBuilder() *Builder {
	return &Builder{
		buf: []byte{0, 0, 0xFF, 0xFF, 0xFF, 0xFF, byte(OpHalt)},
	}
}

// Here returns the address the next emitted byte will occupy.
func (b *Builder) Here() uint32 {
	return uint32(len(b.buf))
}

// SetEntry records addr as the program entry point.
func (b *Builder) SetEntry(addr uint32) {
	binary.LittleEndian.PutUint32(b.buf[2:6], addr)
	b.entrySet = true
}

// BeginState marks the start of a state region and returns its address.
// Arms emitted until the next BeginState belong to it.
func (b *Builder) BeginState() uint32 {
	b.stateCount++
	return b.Here()
}

// CompareArg emits a COMPARE_ARG arm header with a placeholder skip field.
// The returned patch location must be passed to EndArm once the arm's
// right-hand side has been emitted.
func (b *Builder) CompareArg(arg uint8) int {
	b.buf = append(b.buf, byte(OpCompareArg), arg)
	return b.skipPlaceholder()
}

// CompareVal emits a COMPARE_VAL arm header with a placeholder skip field.
func (b *Builder) CompareVal(value uint16) int {
	b.buf = append(b.buf, byte(OpCompareVal))
	b.u16(value)
	return b.skipPlaceholder()
}

// Other emits an OTHER arm header. OTHER arms always match, so they carry
// no skip field and need no EndArm.
func (b *Builder) Other() {
	b.buf = append(b.buf, byte(OpOther))
}

// Halt emits a HALT arm, ending the current arm chain.
func (b *Builder) Halt() {
	b.buf = append(b.buf, byte(OpHalt))
}

// EndArm patches a COMPARE arm's skip field to the byte length of the
// right-hand side emitted since the header.
func (b *Builder) EndArm(patch int) {
	rhsLen := len(b.buf) - (patch + 2)
	binary.LittleEndian.PutUint16(b.buf[patch:], uint16(rhsLen))
}

func (b *Builder) skipPlaceholder() int {
	at := len(b.buf)
	b.buf = append(b.buf, 0xFF, 0xFF)
	return at
}

// Right-hand-side instructions.

func (b *Builder) Left()  { b.op(OpLeft) }
func (b *Builder) Right() { b.op(OpRight) }

func (b *Builder) LeftN(n uint8) {
	b.op(OpLeftN)
	b.buf = append(b.buf, n)
}

func (b *Builder) RightN(n uint8) {
	b.op(OpRightN)
	b.buf = append(b.buf, n)
}

func (b *Builder) WriteArg(arg uint8) {
	b.op(OpWriteArg)
	b.buf = append(b.buf, arg)
}

func (b *Builder) WriteVal(value uint16) {
	b.op(OpWriteVal)
	b.u16(value)
}

func (b *Builder) WriteBound() { b.op(OpWriteBound) }

func (b *Builder) SymbolArg(arg uint8) {
	b.op(OpSymbolArg)
	b.buf = append(b.buf, arg)
}

func (b *Builder) SymbolVal(value uint16) {
	b.op(OpSymbolVal)
	b.u16(value)
}

func (b *Builder) SymbolBound() { b.op(OpSymbolBound) }

func (b *Builder) TakeArg(arg uint8) {
	b.op(OpTakeArg)
	b.buf = append(b.buf, arg)
}

func (b *Builder) CloneArg(arg uint8) {
	b.op(OpCloneArg)
	b.buf = append(b.buf, arg)
}

func (b *Builder) FreeArg(arg uint8) {
	b.op(OpFreeArg)
	b.buf = append(b.buf, arg)
}

func (b *Builder) MakeState(children uint8, addr uint32) {
	b.op(OpMakeState)
	b.buf = append(b.buf, children)
	b.u32(addr)
}

func (b *Builder) FinalState(addr uint32) {
	b.op(OpFinalState)
	b.u32(addr)
}

// FinalHalt emits a FINAL_STATE targeting the shared HALT arm.
func (b *Builder) FinalHalt() {
	b.FinalState(HaltAddress)
}

func (b *Builder) FinalArg(arg uint8) {
	b.op(OpFinalArg)
	b.buf = append(b.buf, arg)
}

func (b *Builder) op(o Opcode) {
	b.buf = append(b.buf, byte(o))
}

func (b *Builder) u16(v uint16) {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, v)
}

func (b *Builder) u32(v uint32) {
	b.buf = binary.LittleEndian.AppendUint32(b.buf, v)
}

// Bytes returns the raw byte stream assembled so far. The slice aliases the
// builder's buffer.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Build finalizes the header and parses the result.
func (b *Builder) Build() (*Program, error) {
	if !b.entrySet {
		return nil, fmt.Errorf("entry address never set")
	}
	binary.LittleEndian.PutUint16(b.buf[0:2], b.stateCount)
	return Parse(b.buf)
}
