package vm

import "fmt"

/*
	Target architecture:
			- 6 general registers, named a through f
			- register a doubles as the accumulator: ADD, SUB, LOAD and STORE
			  all read or write through it
			- memory is a single flat array of unsigned 64-bit cells, addressed
			  by the value held in a register
			- no negative numbers exist at runtime; SUB saturates at zero

	Bytecodes
			RST r    zero register r
			INC r    r := r + 1
			DEC r    r := r - 1, saturating at 0
			SHL r    r := r * 2
			SHR r    r := r / 2
			GET r    a := r
			PUT r    r := a
			ADD r    a := a + r
			SUB r    a := max(0, a - r)
			LOAD r   a := memory[r]
			STORE r  memory[r] := a
			READ     a := next value from the input stream
			WRITE    writes a to the output stream
			JUMP n   pc := n
			JZERO n  if a == 0 then pc := n
			JPOS n   if a > 0 then pc := n
			HALT     stops execution
*/

type Bytecode byte

const (
	Rst Bytecode = iota
	Inc
	Dec
	Shl
	Shr
	Get
	Put
	Add
	Sub
	Load
	Store
	Read
	Write
	Jump
	Jzero
	Jpos
	Halt
)

var instrToStrMap = map[Bytecode]string{
	Rst:   "RST",
	Inc:   "INC",
	Dec:   "DEC",
	Shl:   "SHL",
	Shr:   "SHR",
	Get:   "GET",
	Put:   "PUT",
	Add:   "ADD",
	Sub:   "SUB",
	Load:  "LOAD",
	Store: "STORE",
	Read:  "READ",
	Write: "WRITE",
	Jump:  "JUMP",
	Jzero: "JZERO",
	Jpos:  "JPOS",
	Halt:  "HALT",
}

var strToInstrMap map[string]Bytecode

func init() {
	strToInstrMap = make(map[string]Bytecode, len(instrToStrMap))
	for code, s := range instrToStrMap {
		strToInstrMap[s] = code
	}
}

func (b Bytecode) String() string {
	s, ok := instrToStrMap[b]
	if !ok {
		return "?unknown?"
	}
	return s
}

// RequiresRegister is true for every bytecode that addresses one of the
// six named registers.
func (b Bytecode) RequiresRegister() bool {
	switch b {
	case Rst, Inc, Dec, Shl, Shr, Get, Put, Add, Sub, Load, Store:
		return true
	default:
		return false
	}
}

// RequiresTarget is true for the three instructions that carry an absolute
// jump target.
func (b Bytecode) RequiresTarget() bool {
	switch b {
	case Jump, Jzero, Jpos:
		return true
	default:
		return false
	}
}

// Instruction is one decoded line of a program: a bytecode plus, depending on
// the bytecode, either a register or an absolute jump target.
type Instruction struct {
	Code     Bytecode
	Register byte // 'a'..'f', valid when Code.RequiresRegister()
	Target   int  // absolute PC, valid when Code.RequiresTarget()
}

func (i Instruction) String() string {
	switch {
	case i.Code.RequiresRegister():
		return fmt.Sprintf("%s %c", i.Code, i.Register)
	case i.Code.RequiresTarget():
		return fmt.Sprintf("%s %d", i.Code, i.Target)
	default:
		return i.Code.String()
	}
}

func IsRegisterName(r byte) bool {
	return r >= 'a' && r <= 'f'
}
