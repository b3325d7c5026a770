package codegen

import "github.com/oldhatfield/imperare/ast"

// lowerCondition emits code that falls through when cond is true and jumps
// to the SentinelFinish sentinel (scoped to [from, ...) by the caller's
// later resolveFrom call) when it is false. It returns without emitting
// anything but a single unconditional record of "always true"/"always
// false" when the condition can be decided at compile time.
//
// Every runtime comparison below reduces to one saturating SUB (two for `=`
// and `!=`) followed by JZERO or JPOS against the accumulator: SUB(x, y)
// leaves 0 in the accumulator iff x <= y, and a positive value iff x > y.
// `<` is therefore expressed as "not (second <= first)", i.e.
// SUB(second, first) with JZERO jumping to finish when it is 0.
func lowerCondition(e *Encoder, c *Compiler, cond *ast.Cond, line int) error {
	if decided, isTrue := simplifyCondition(cond); decided {
		if !isTrue {
			e.buf.emitPendingJump("JUMP", SentinelFinish)
		}
		return nil
	}

	lc, leftConst := cond.Left.(*ast.Const)
	rc, rightConst := cond.Right.(*ast.Const)

	switch {
	case leftConst && lc.Value == 0:
		return lowerZeroLeft(e, c, cond, line)
	case rightConst && rc.Value == 0:
		return lowerZeroRight(e, c, cond, line)
	default:
		return lowerGeneralCondition(e, c, cond, line)
	}
}

// simplifyCondition decides a condition at compile time when both operands
// are literals, when both operands are structurally identical, or when a
// literal 0 makes the answer fixed (0 <= x, 0 > x, x >= 0, x < 0),
// returning (decided, value).
func simplifyCondition(cond *ast.Cond) (decided bool, value bool) {
	lc, leftConst := cond.Left.(*ast.Const)
	rc, rightConst := cond.Right.(*ast.Const)

	if leftConst && rightConst {
		return true, evalRel(cond.Kind, lc.Value, rc.Value)
	}

	if exprEqual(cond.Left, cond.Right) {
		switch cond.Kind {
		case ast.Eq, ast.Le, ast.Ge:
			return true, true
		case ast.Ne, ast.Lt, ast.Gt:
			return true, false
		}
	}

	if leftConst && lc.Value == 0 {
		switch cond.Kind {
		case ast.Le:
			return true, true // 0 <= x always
		case ast.Gt:
			return true, false // 0 > x never
		}
	}

	if rightConst && rc.Value == 0 {
		switch cond.Kind {
		case ast.Ge:
			return true, true // x >= 0 always
		case ast.Lt:
			return true, false // x < 0 never
		}
	}

	return false, false
}

func evalRel(kind ast.RelKind, l, r uint64) bool {
	switch kind {
	case ast.Eq:
		return l == r
	case ast.Ne:
		return l != r
	case ast.Lt:
		return l < r
	case ast.Gt:
		return l > r
	case ast.Le:
		return l <= r
	case ast.Ge:
		return l >= r
	default:
		return false
	}
}

// lowerZeroLeft handles the runtime-only cases with a literal 0 on the
// left that simplifyCondition could not already decide: 0 = x, 0 != x,
// 0 < x, 0 >= x.
func lowerZeroLeft(e *Encoder, c *Compiler, cond *ast.Cond, line int) error {
	if err := lowerOperand(e, c, cond.Right, 'c', line); err != nil {
		return err
	}
	e.buf.emitReg("GET", 'c')
	switch cond.Kind {
	case ast.Eq:
		e.buf.emitPendingJump("JPOS", SentinelFinish) // false unless x == 0
	case ast.Ne:
		e.buf.emitPendingJump("JZERO", SentinelFinish) // false unless x != 0
	case ast.Lt:
		e.buf.emitPendingJump("JZERO", SentinelFinish) // 0 < x false when x == 0
	case ast.Ge:
		e.buf.emitPendingJump("JPOS", SentinelFinish) // 0 >= x false unless x == 0
	}
	return nil
}

// lowerZeroRight handles the runtime-only cases with a literal 0 on the
// right: x = 0, x != 0, x > 0, x <= 0.
func lowerZeroRight(e *Encoder, c *Compiler, cond *ast.Cond, line int) error {
	if err := lowerOperand(e, c, cond.Left, 'b', line); err != nil {
		return err
	}
	e.buf.emitReg("GET", 'b')
	switch cond.Kind {
	case ast.Eq:
		e.buf.emitPendingJump("JPOS", SentinelFinish) // false unless x == 0
	case ast.Ne:
		e.buf.emitPendingJump("JZERO", SentinelFinish) // false unless x != 0
	case ast.Gt:
		e.buf.emitPendingJump("JZERO", SentinelFinish) // x > 0 false when x == 0
	case ast.Le:
		e.buf.emitPendingJump("JPOS", SentinelFinish) // x <= 0 false unless x == 0
	}
	return nil
}

// lowerGeneralCondition handles the fully general two-operand case via a
// saturating SUB whose sign answers the relational operator; `=` and `!=`
// test both differences.
func lowerGeneralCondition(e *Encoder, c *Compiler, cond *ast.Cond, line int) error {
	if err := lowerOperand(e, c, cond.Left, 'b', line); err != nil {
		return err
	}
	if err := lowerOperand(e, c, cond.Right, 'c', line); err != nil {
		return err
	}

	switch cond.Kind {
	case ast.Le:
		e.buf.emitReg("GET", 'b')
		e.buf.emitReg("SUB", 'c') // 0 iff left <= right
		e.buf.emitPendingJump("JPOS", SentinelFinish)
	case ast.Gt:
		e.buf.emitReg("GET", 'b')
		e.buf.emitReg("SUB", 'c') // 0 iff left <= right, i.e. not >
		e.buf.emitPendingJump("JZERO", SentinelFinish)
	case ast.Ge:
		e.buf.emitReg("GET", 'c')
		e.buf.emitReg("SUB", 'b') // 0 iff right <= left
		e.buf.emitPendingJump("JPOS", SentinelFinish)
	case ast.Lt:
		e.buf.emitReg("GET", 'c')
		e.buf.emitReg("SUB", 'b') // 0 iff right <= left, i.e. not <
		e.buf.emitPendingJump("JZERO", SentinelFinish)
	case ast.Eq:
		e.buf.emitReg("GET", 'b')
		e.buf.emitReg("SUB", 'c')
		e.buf.emitPendingJump("JPOS", SentinelFinish) // left > right => not equal
		e.buf.emitReg("GET", 'c')
		e.buf.emitReg("SUB", 'b')
		e.buf.emitPendingJump("JPOS", SentinelFinish) // right > left => not equal
	case ast.Ne:
		// Equal (condition false) iff both saturating differences are
		// zero. Either side coming back positive proves inequality and
		// skips straight past the jump to finish.
		e.buf.emitReg("GET", 'b')
		e.buf.emitReg("SUB", 'c')
		skip1 := e.buf.emitPendingAt("JPOS")
		e.buf.emitReg("GET", 'c')
		e.buf.emitReg("SUB", 'b')
		skip2 := e.buf.emitPendingAt("JPOS")
		e.buf.emitPendingJump("JUMP", SentinelFinish)
		e.buf.patchIndex(skip1, e.pc())
		e.buf.patchIndex(skip2, e.pc())
	}
	return nil
}
