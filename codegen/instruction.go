package codegen

import "fmt"

// Sentinel names the forward-jump label the statement lowerer's
// control-flow emission uses before the destination program counter is
// known. Branches internal to the multiplication/division routines never
// need a named sentinel at all; they resolve by instruction index instead
// (see emitPendingAt/patchIndex below).
type Sentinel string

const (
	SentinelFinish Sentinel = "finish"
)

// Instruction is one emitted line: either fully resolved text ("RST b",
// "JUMP 12", "HALT") or, for JUMP/JZERO/JPOS, a pending record naming the
// sentinel its target will eventually resolve to. A pending instruction
// that survives to final emission is a bug in the generator, not a user
// error — String panics rather than silently emitting garbage.
type Instruction struct {
	text     string
	op       string
	sentinel Sentinel
	pending  bool
}

func resolved(text string) Instruction {
	return Instruction{text: text}
}

func pendingJump(op string, s Sentinel) Instruction {
	return Instruction{op: op, sentinel: s, pending: true}
}

func (i Instruction) String() string {
	if i.pending {
		panic(fmt.Sprintf("codegen: instruction %s still pending on sentinel %q", i.op, i.sentinel))
	}
	return i.text
}

// buffer is the append-only (except for in-place backpatching) instruction
// stream owned by a single Encoder.
type buffer struct {
	lines []Instruction
}

func (b *buffer) len() int {
	return len(b.lines)
}

func (b *buffer) emit(text string) {
	b.lines = append(b.lines, resolved(text))
}

func (b *buffer) emitReg(op string, reg byte) {
	b.emit(fmt.Sprintf("%s %c", op, reg))
}

func (b *buffer) emitBare(op string) {
	b.emit(op)
}

func (b *buffer) emitJump(op string, target int) {
	b.emit(fmt.Sprintf("%s %d", op, target))
}

// emitPendingJump appends a jump whose target is not yet known, to be
// resolved in place by a later call to resolveFrom.
func (b *buffer) emitPendingJump(op string, s Sentinel) int {
	b.lines = append(b.lines, pendingJump(op, s))
	return len(b.lines) - 1
}

// resolveFrom replaces every still-pending instruction in
// [from, len(b.lines)) waiting on sentinel s with a resolved jump to pc.
// Scoping to a window keeps an inner block's pending jumps from being
// accidentally resolved by an outer block reusing the same sentinel name.
func (b *buffer) resolveFrom(from int, s Sentinel, pc int) {
	for i := from; i < len(b.lines); i++ {
		if b.lines[i].pending && b.lines[i].sentinel == s {
			b.lines[i] = resolved(fmt.Sprintf("%s %d", b.lines[i].op, pc))
		}
	}
}

// emitPendingAt appends a jump whose target will be patched by index,
// rather than by sentinel name — for single-use internal branches (inside
// the multiplication and division routines) that never outlive the
// function emitting them.
func (b *buffer) emitPendingAt(op string) int {
	b.lines = append(b.lines, Instruction{op: op, pending: true})
	return len(b.lines) - 1
}

// patchIndex resolves the pending instruction at idx to an absolute target.
func (b *buffer) patchIndex(idx int, target int) {
	b.lines[idx] = resolved(fmt.Sprintf("%s %d", b.lines[idx].op, target))
}

func (b *buffer) reset() {
	b.lines = nil
}

func (b *buffer) append(other []Instruction) {
	b.lines = append(b.lines, other...)
}
