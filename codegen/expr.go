package codegen

import (
	"fmt"
	"math/bits"

	"github.com/oldhatfield/imperare/ast"
)

// LowerExpr lowers expr into register b, applying the peephole
// simplifications and general-case routines of the Expression Lowerer. The
// grammar restricts a BinOp's operands to a literal or a load (never
// another BinOp; see spec.md §6), so this never recurses more than one
// level deep.
func LowerExpr(e *Encoder, c *Compiler, expr ast.Expr, line int) error {
	if op, ok := expr.(*ast.BinOp); ok {
		return lowerBinOp(e, c, op, line)
	}
	return lowerOperand(e, c, expr, 'b', line)
}

// lowerOperand lowers a single rvalue (literal or load) into reg.
func lowerOperand(e *Encoder, c *Compiler, expr ast.Expr, reg byte, line int) error {
	switch v := expr.(type) {
	case *ast.Const:
		materializeConst(e, v.Value, reg)
		return nil
	case *ast.Load:
		return lowerLoadInto(e, c, v, reg, line)
	default:
		return fmt.Errorf("codegen: expected a literal or load operand, got %T", expr)
	}
}

// lowerLoadInto lowers one Load node (a scalar or array-element reference)
// into reg, using the paired scratch register arrayElementAddress needs for
// a variable-indexed array access.
func lowerLoadInto(e *Encoder, c *Compiler, load *ast.Load, reg byte, line int) error {
	scratch := scratchFor(reg)
	switch t := load.Target.(type) {
	case ast.Name:
		return loadScalar(e, c, t.Ident, reg, line)
	case *ast.ArrayAccess:
		idx, err := indexOperandOf(t.Index)
		if err != nil {
			return err
		}
		return loadArrayElement(e, c, t.Array, idx, reg, scratch, line)
	case ast.Undeclared:
		return &undeclaredError{name: t.Ident, line: t.Line}
	default:
		return fmt.Errorf("codegen: unsupported lvalue %T", load.Target)
	}
}

func scratchFor(reg byte) byte {
	switch reg {
	case 'b':
		return 'd'
	case 'c':
		return 'e'
	default:
		return 'f'
	}
}

func indexOperandOf(index ast.Expr) (indexOperand, error) {
	switch v := index.(type) {
	case *ast.Const:
		return literalIndex(v.Value), nil
	case *ast.Load:
		if name, ok := v.Target.(ast.Name); ok {
			return variableIndex(name.Ident), nil
		}
		if u, ok := v.Target.(ast.Undeclared); ok {
			return indexOperand{}, &undeclaredError{name: u.Ident, line: u.Line}
		}
	}
	return indexOperand{}, fmt.Errorf("codegen: unsupported array index expression %T", index)
}

// exprEqual reports structural equality between two rvalue operands
// (literal or load), used to detect the `e - e` family of shortcuts.
func exprEqual(a, b ast.Expr) bool {
	switch av := a.(type) {
	case *ast.Const:
		bv, ok := b.(*ast.Const)
		return ok && av.Value == bv.Value
	case *ast.Load:
		bv, ok := b.(*ast.Load)
		if !ok {
			return false
		}
		return lvalueEqual(av.Target, bv.Target)
	default:
		return false
	}
}

func lvalueEqual(a, b ast.Lvalue) bool {
	switch av := a.(type) {
	case ast.Name:
		bv, ok := b.(ast.Name)
		return ok && av.Ident == bv.Ident
	case *ast.ArrayAccess:
		bv, ok := b.(*ast.ArrayAccess)
		return ok && av.Array == bv.Array && exprEqual(av.Index, bv.Index)
	default:
		return false
	}
}

func isPowerOfTwo(v uint64) bool { return v != 0 && v&(v-1) == 0 }

func log2(v uint64) int { return bits.Len64(v) - 1 }

func foldArith(kind ast.BinOpKind, l, r uint64) uint64 {
	switch kind {
	case ast.Add:
		return l + r
	case ast.Sub:
		if l > r {
			return l - r
		}
		return 0
	case ast.Mul:
		return l * r
	case ast.Div:
		if r == 0 {
			return 0
		}
		return l / r
	case ast.Mod:
		if r == 0 {
			return 0
		}
		return l % r
	default:
		return 0
	}
}

func lowerBinOp(e *Encoder, c *Compiler, op *ast.BinOp, line int) error {
	if lc, ok := op.Left.(*ast.Const); ok {
		if rc, ok := op.Right.(*ast.Const); ok {
			materializeConst(e, foldArith(op.Kind, lc.Value, rc.Value), 'b')
			return nil
		}
	}

	if exprEqual(op.Left, op.Right) {
		return lowerEqualOperands(e, c, op, line)
	}

	if rc, ok := op.Right.(*ast.Const); ok {
		handled, err := lowerRightConst(e, c, op, rc.Value, line)
		if err != nil || handled {
			return err
		}
	}

	if lcz, ok := op.Left.(*ast.Const); ok {
		handled, err := lowerLeftConst(e, c, op, lcz.Value, line)
		if err != nil || handled {
			return err
		}
	}

	switch op.Kind {
	case ast.Add, ast.Sub:
		if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
			return err
		}
		if err := lowerOperand(e, c, op.Right, 'c', line); err != nil {
			return err
		}
		combineOp := "ADD"
		if op.Kind == ast.Sub {
			combineOp = "SUB"
		}
		e.buf.emitReg("GET", 'b')
		e.buf.emitReg(combineOp, 'c')
		e.buf.emitReg("PUT", 'b')
		return nil
	case ast.Mul:
		if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
			return err
		}
		if err := lowerOperand(e, c, op.Right, 'c', line); err != nil {
			return err
		}
		generalMul(e)
		return nil
	case ast.Div, ast.Mod:
		if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
			return err
		}
		if err := lowerOperand(e, c, op.Right, 'c', line); err != nil {
			return err
		}
		generalDivMod(e, op.Kind == ast.Mod)
		return nil
	default:
		return fmt.Errorf("codegen: unknown binary operator %v", op.Kind)
	}
}

// lowerEqualOperands handles `e op e` for structurally identical operands.
func lowerEqualOperands(e *Encoder, c *Compiler, op *ast.BinOp, line int) error {
	switch op.Kind {
	case ast.Add:
		if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
			return err
		}
		e.buf.emitReg("SHL", 'b')
		return nil
	case ast.Sub:
		materializeConst(e, 0, 'b')
		return nil
	case ast.Mul:
		if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
			return err
		}
		e.buf.emitReg("GET", 'b')
		e.buf.emitReg("PUT", 'c')
		generalMul(e)
		return nil
	case ast.Div:
		if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
			return err
		}
		e.buf.emitReg("GET", 'b')
		zeroIdx := e.buf.emitPendingAt("JZERO")
		materializeConst(e, 1, 'b')
		doneIdx := e.buf.emitPendingAt("JUMP")
		e.buf.patchIndex(zeroIdx, e.pc())
		materializeConst(e, 0, 'b')
		e.buf.patchIndex(doneIdx, e.pc())
		return nil
	case ast.Mod:
		materializeConst(e, 0, 'b')
		return nil
	default:
		return fmt.Errorf("codegen: unknown binary operator %v", op.Kind)
	}
}

// lowerRightConst handles the peephole shortcuts triggered by a literal on
// the right-hand side. handled is false when no shortcut applies and the
// caller should fall through to the general case.
func lowerRightConst(e *Encoder, c *Compiler, op *ast.BinOp, k uint64, line int) (bool, error) {
	switch op.Kind {
	case ast.Add:
		if k < 14 {
			if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
				return true, err
			}
			for i := uint64(0); i < k; i++ {
				e.buf.emitReg("INC", 'b')
			}
			return true, nil
		}
	case ast.Sub:
		if k < 14 {
			if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
				return true, err
			}
			for i := uint64(0); i < k; i++ {
				e.buf.emitReg("DEC", 'b')
			}
			return true, nil
		}
	case ast.Mul:
		switch {
		case k == 0:
			materializeConst(e, 0, 'b')
			return true, nil
		case k == 1:
			return true, lowerOperand(e, c, op.Left, 'b', line)
		case isPowerOfTwo(k):
			if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
				return true, err
			}
			for i := 0; i < log2(k); i++ {
				e.buf.emitReg("SHL", 'b')
			}
			return true, nil
		}
	case ast.Div:
		switch {
		case k == 0:
			materializeConst(e, 0, 'b')
			return true, nil
		case k == 1:
			return true, lowerOperand(e, c, op.Left, 'b', line)
		case isPowerOfTwo(k):
			if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
				return true, err
			}
			for i := 0; i < log2(k); i++ {
				e.buf.emitReg("SHR", 'b')
			}
			return true, nil
		}
	case ast.Mod:
		switch {
		case k == 0, k == 1:
			materializeConst(e, 0, 'b')
			return true, nil
		case k == 2:
			if err := lowerOperand(e, c, op.Left, 'b', line); err != nil {
				return true, err
			}
			e.buf.emitReg("GET", 'b')
			e.buf.emitReg("PUT", 'c')
			e.buf.emitReg("SHR", 'c')
			e.buf.emitReg("SHL", 'c')
			e.buf.emitReg("GET", 'b')
			e.buf.emitReg("SUB", 'c')
			e.buf.emitReg("PUT", 'b')
			return true, nil
		}
	}
	return false, nil
}

// lowerLeftConst handles the shortcuts keyed off a literal on the left-hand
// side: `0 - x`, `0 / x`, and `k * x` for k of 0, 1 or a power of two.
func lowerLeftConst(e *Encoder, c *Compiler, op *ast.BinOp, k uint64, line int) (bool, error) {
	switch op.Kind {
	case ast.Sub:
		if k == 0 {
			materializeConst(e, 0, 'b')
			return true, nil
		}
	case ast.Mul:
		switch {
		case k == 0:
			materializeConst(e, 0, 'b')
			return true, nil
		case k == 1:
			return true, lowerOperand(e, c, op.Right, 'b', line)
		case isPowerOfTwo(k):
			if err := lowerOperand(e, c, op.Right, 'b', line); err != nil {
				return true, err
			}
			for i := 0; i < log2(k); i++ {
				e.buf.emitReg("SHL", 'b')
			}
			return true, nil
		}
	case ast.Div:
		if k == 0 {
			materializeConst(e, 0, 'b')
			return true, nil
		}
	}
	return false, nil
}

// generalMul lowers the Russian-peasant shift-and-add routine: b holds the
// left operand, c the right, on entry; b holds the product on exit. d is the
// loop's running accumulator, e its counter, f a parity scratch.
func generalMul(e *Encoder) {
	const accReg, counterReg, tmpReg byte = 'd', 'e', 'f'

	e.buf.emitReg("GET", 'b')
	leftZeroIdx := e.buf.emitPendingAt("JZERO")
	e.buf.emitReg("GET", 'c')
	rightZeroIdx := e.buf.emitPendingAt("JZERO")

	e.buf.emitReg("GET", 'b')
	e.buf.emitReg("PUT", accReg)
	e.buf.emitReg("GET", 'c')
	e.buf.emitReg("PUT", counterReg)
	e.buf.emitReg("RST", 'b')

	loopStart := e.pc()
	e.buf.emitReg("GET", counterReg)
	doneIdx := e.buf.emitPendingAt("JZERO")

	e.buf.emitReg("GET", counterReg)
	e.buf.emitReg("PUT", tmpReg)
	e.buf.emitReg("SHR", tmpReg)
	e.buf.emitReg("SHL", tmpReg)
	e.buf.emitReg("GET", counterReg)
	e.buf.emitReg("SUB", tmpReg)
	evenIdx := e.buf.emitPendingAt("JZERO")
	e.buf.emitReg("GET", 'b')
	e.buf.emitReg("ADD", accReg)
	e.buf.emitReg("PUT", 'b')
	e.buf.patchIndex(evenIdx, e.pc())

	e.buf.emitReg("SHR", counterReg)
	e.buf.emitReg("SHL", accReg)
	e.buf.emitJump("JUMP", loopStart)

	e.buf.patchIndex(doneIdx, e.pc())
	skipZeroIdx := e.buf.emitPendingAt("JUMP")

	e.buf.patchIndex(leftZeroIdx, e.pc())
	e.buf.patchIndex(rightZeroIdx, e.pc())
	e.buf.emitReg("RST", 'b')

	e.buf.patchIndex(skipZeroIdx, e.pc())
}

// generalDivMod lowers a restoring shift-subtract long division: b holds
// the dividend, c the divisor, on entry. Registers: Q = b, D = c (the
// divisor, held throughout), N = d (the current divisor multiple, ramped
// up to the largest D*2^k <= dividend, then shifted back down one bit per
// iteration), R = e (running remainder), f holds the dividend until it is
// copied into R, then becomes free scratch for the ramp phase.
//
// The saturating-SUB invariant SUB(x, y) == 0 iff x <= y lets every
// "<=" / ">" test below use a single SUB followed by JZERO/JPOS against
// the accumulator, with no dedicated comparison register needed.
//
// Dividing by zero yields quotient 0, remainder 0 (R is reset before the
// divisor is even inspected, so the zero-divisor exit needs no special
// case of its own).
//
// On exit, b holds the quotient if wantRemainder is false, the remainder
// otherwise.
func generalDivMod(e *Encoder, wantRemainder bool) {
	const scratchReg, workReg, remReg byte = 'f', 'd', 'e'

	e.buf.emitReg("GET", 'b')
	e.buf.emitReg("PUT", scratchReg) // stash dividend before b becomes Q
	e.buf.emitReg("RST", 'b')        // Q := 0
	e.buf.emitReg("RST", remReg)     // R := 0

	e.buf.emitReg("GET", 'c')
	divisorZeroIdx := e.buf.emitPendingAt("JZERO")

	e.buf.emitReg("GET", scratchReg)
	e.buf.emitReg("PUT", remReg) // R := dividend
	e.buf.emitReg("GET", 'c')
	e.buf.emitReg("PUT", workReg) // N := D

	rampStart := e.pc()
	e.buf.emitReg("GET", workReg)
	e.buf.emitReg("PUT", scratchReg)
	e.buf.emitReg("SHL", scratchReg) // scratch := N*2
	e.buf.emitReg("GET", scratchReg)
	e.buf.emitReg("SUB", remReg) // a = max(0, N*2-R); >0 iff N*2>R
	rampDoneIdx := e.buf.emitPendingAt("JPOS")
	e.buf.emitReg("GET", scratchReg)
	e.buf.emitReg("PUT", workReg) // N := N*2
	e.buf.emitJump("JUMP", rampStart)
	e.buf.patchIndex(rampDoneIdx, e.pc())

	blockStart := e.pc()
	e.buf.emitReg("GET", workReg)
	e.buf.emitReg("SUB", remReg) // a = max(0, N-R); >0 iff N>R
	skipSubtractIdx := e.buf.emitPendingAt("JPOS")
	e.buf.emitReg("GET", remReg)
	e.buf.emitReg("SUB", workReg)
	e.buf.emitReg("PUT", remReg) // R -= N
	e.buf.emitReg("INC", 'b')    // this bit of Q is 1
	e.buf.patchIndex(skipSubtractIdx, e.pc())

	e.buf.emitReg("GET", workReg)
	e.buf.emitReg("SUB", 'c') // a = max(0, N-D); ==0 iff N<=D (N is never < D)
	doneIdx := e.buf.emitPendingAt("JZERO")
	e.buf.emitReg("SHR", workReg) // N /= 2
	e.buf.emitReg("SHL", 'b')     // room for the next, less significant bit
	e.buf.emitJump("JUMP", blockStart)

	finish := e.pc()
	e.buf.patchIndex(divisorZeroIdx, finish)
	e.buf.patchIndex(doneIdx, finish)

	if wantRemainder {
		e.buf.emitReg("GET", remReg)
		e.buf.emitReg("PUT", 'b')
	}
}

// undeclaredError wraps a parser-level Undeclared marker into a proper
// diagnostic once codegen reaches it.
type undeclaredError struct {
	name string
	line int
}

func (e *undeclaredError) Error() string {
	return fmt.Sprintf("line %d: undeclared name %q", e.line, e.name)
}
