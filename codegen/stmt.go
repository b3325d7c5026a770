package codegen

import (
	"fmt"

	"github.com/oldhatfield/imperare/ast"
	"github.com/oldhatfield/imperare/symtab"
)

// lowerStmts lowers a sequence of statements in order.
func (c *Compiler) lowerStmts(e *Encoder, stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := c.lowerStmt(e, s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) lowerStmt(e *Encoder, stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.ReadStmt:
		c.advanceLineno("READ")
		return c.lowerRead(e, s)
	case *ast.WriteStmt:
		c.advanceLineno("WRITE")
		return c.lowerWrite(e, s)
	case *ast.AssignStmt:
		c.advanceLineno("ASSIGN")
		return c.lowerAssign(e, s)
	case *ast.IfStmt:
		c.advanceLineno("IF")
		return c.lowerIf(e, s)
	case *ast.IfElseStmt:
		c.advanceLineno("IF")
		return c.lowerIfElse(e, s)
	case *ast.WhileStmt:
		c.advanceLineno("WHILE")
		return c.lowerWhile(e, s)
	case *ast.UntilStmt:
		c.advanceLineno("REPEAT")
		return c.lowerUntil(e, s)
	case *ast.ProcCallStmt:
		c.advanceLineno("PID")
		return c.lowerProcCall(e, s)
	default:
		return fmt.Errorf("codegen: unsupported statement %T", stmt)
	}
}

func (c *Compiler) lowerRead(e *Encoder, s *ast.ReadStmt) error {
	switch t := s.Target.(type) {
	case ast.Name:
		if err := scalarAddress(e, t.Ident, 'b', s.Line); err != nil {
			return err
		}
		e.buf.emitBare("READ")
		e.buf.emitReg("STORE", 'b')
		markInitialized(e, t.Ident)
		return nil
	case *ast.ArrayAccess:
		idx, err := indexOperandOf(t.Index)
		if err != nil {
			return err
		}
		if err := arrayElementAddress(e, c, t.Array, idx, 'b', 'd', s.Line); err != nil {
			return err
		}
		e.buf.emitBare("READ")
		e.buf.emitReg("STORE", 'b')
		return nil
	case ast.Undeclared:
		return &undeclaredError{name: t.Ident, line: t.Line}
	default:
		return fmt.Errorf("codegen: unsupported read target %T", s.Target)
	}
}

// lowerWrite materializes the address of s.Value's source cell (interning a
// literal into the constants region first if necessary, since a write's
// rvalue grammar restricts it to const/load and a literal operand must
// physically exist in memory before it can be WRITE'd), LOADs it, and emits
// WRITE, which reads the accumulator directly.
func (c *Compiler) lowerWrite(e *Encoder, s *ast.WriteStmt) error {
	switch v := s.Value.(type) {
	case *ast.Const:
		addr, err := ensureConstInMemory(e, c, v.Value)
		if err != nil {
			return err
		}
		materializeConst(e, uint64(addr), 'b')
		e.buf.emitReg("LOAD", 'b')
	case *ast.Load:
		switch t := v.Target.(type) {
		case ast.Name:
			if err := writeScalarSource(e, c, t.Ident, 'b', s.Line); err != nil {
				return err
			}
		case *ast.ArrayAccess:
			idx, err := indexOperandOf(t.Index)
			if err != nil {
				return err
			}
			if err := writeArraySource(e, c, t.Array, idx, 'b', 'd', s.Line); err != nil {
				return err
			}
		case ast.Undeclared:
			return &undeclaredError{name: t.Ident, line: t.Line}
		default:
			return fmt.Errorf("codegen: unsupported write source %T", v.Target)
		}
	default:
		return fmt.Errorf("codegen: write accepts only a literal or load, got %T", s.Value)
	}
	e.buf.emitBare("WRITE")
	return nil
}

// ensureConstInMemory interns value in the enclosing program's constants
// region the first time it is written, emitting the one-time materialize +
// STORE that physically places it in memory; later writes of the same
// value reuse the address already on record.
func ensureConstInMemory(e *Encoder, c *Compiler, value uint64) (int, error) {
	if addr, ok := e.Table.GetConst(value); ok {
		return addr, nil
	}
	addr := e.Table.AddConst(value, c.nextConstAddr)
	materializeConst(e, value, 'b')
	e.buf.emitReg("GET", 'b')
	materializeConst(e, uint64(addr), 'c')
	e.buf.emitReg("STORE", 'c')
	return addr, nil
}

func (c *Compiler) lowerAssign(e *Encoder, s *ast.AssignStmt) error {
	if err := LowerExpr(e, c, s.Value, s.Line); err != nil {
		return err
	}
	switch t := s.Target.(type) {
	case ast.Name:
		if sym, ok := e.Table.Get(t.Ident); ok && (sym.Kind == symtab.KindArray || sym.Kind == symtab.KindRefArray) {
			return &AssignToArrayWithoutIndexError{Name: t.Ident, Line: s.Line}
		}
		e.buf.emitReg("GET", 'b')
		if err := scalarAddress(e, t.Ident, 'c', s.Line); err != nil {
			return err
		}
		e.buf.emitReg("STORE", 'c')
		markInitialized(e, t.Ident)
		return nil
	case *ast.ArrayAccess:
		e.buf.emitReg("GET", 'b')
		e.buf.emitReg("PUT", 'd') // stash the rvalue before the index arithmetic reuses b/c
		idx, err := indexOperandOf(t.Index)
		if err != nil {
			return err
		}
		if err := arrayElementAddress(e, c, t.Array, idx, 'c', 'e', s.Line); err != nil {
			return err
		}
		e.buf.emitReg("GET", 'd')
		e.buf.emitReg("STORE", 'c')
		return nil
	case ast.Undeclared:
		return &undeclaredError{name: t.Ident, line: t.Line}
	default:
		return fmt.Errorf("codegen: unsupported assignment target %T", s.Target)
	}
}

// prepareConstsBeforeBlock interns every literal a write statement in
// stmts (including nested blocks) will need, before the block's first
// branch is emitted. Only write's literal operands require this: an
// arithmetic literal is always materialized straight into a register and
// never persists in memory, so it has no staleness concern across a
// branch not taken.
func prepareConstsBeforeBlock(e *Encoder, c *Compiler, stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := prepareConstsInStmt(e, c, stmt); err != nil {
			return err
		}
	}
	return nil
}

func prepareConstsInStmt(e *Encoder, c *Compiler, stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.WriteStmt:
		if v, ok := s.Value.(*ast.Const); ok {
			_, err := ensureConstInMemory(e, c, v.Value)
			return err
		}
	case *ast.IfStmt:
		return prepareConstsBeforeBlock(e, c, s.Body)
	case *ast.IfElseStmt:
		if err := prepareConstsBeforeBlock(e, c, s.Then); err != nil {
			return err
		}
		return prepareConstsBeforeBlock(e, c, s.Else)
	case *ast.WhileStmt:
		return prepareConstsBeforeBlock(e, c, s.Body)
	case *ast.UntilStmt:
		return prepareConstsBeforeBlock(e, c, s.Body)
	}
	return nil
}

func (c *Compiler) lowerIf(e *Encoder, s *ast.IfStmt) error {
	if err := prepareConstsBeforeBlock(e, c, s.Body); err != nil {
		return err
	}

	e.loopDepth++
	defer func() { e.loopDepth-- }()

	from := e.buf.len()
	if err := lowerCondition(e, c, &s.Cond, s.Line); err != nil {
		return err
	}
	if err := c.lowerStmts(e, s.Body); err != nil {
		return err
	}
	e.buf.resolveFrom(from, SentinelFinish, e.pc())
	return nil
}

func (c *Compiler) lowerIfElse(e *Encoder, s *ast.IfElseStmt) error {
	if err := prepareConstsBeforeBlock(e, c, s.Then); err != nil {
		return err
	}
	if err := prepareConstsBeforeBlock(e, c, s.Else); err != nil {
		return err
	}

	e.loopDepth++
	defer func() { e.loopDepth-- }()

	from := e.buf.len()
	if err := lowerCondition(e, c, &s.Cond, s.Line); err != nil {
		return err
	}
	if err := c.lowerStmts(e, s.Then); err != nil {
		return err
	}
	skipElseIdx := e.buf.emitPendingAt("JUMP")
	e.buf.resolveFrom(from, SentinelFinish, e.pc())
	if err := c.lowerStmts(e, s.Else); err != nil {
		return err
	}
	e.buf.patchIndex(skipElseIdx, e.pc())
	return nil
}

func (c *Compiler) lowerWhile(e *Encoder, s *ast.WhileStmt) error {
	if err := prepareConstsBeforeBlock(e, c, s.Body); err != nil {
		return err
	}

	e.loopDepth++
	defer func() { e.loopDepth-- }()

	top := e.pc()
	from := e.buf.len()
	if err := lowerCondition(e, c, &s.Cond, s.Line); err != nil {
		return err
	}
	if err := c.lowerStmts(e, s.Body); err != nil {
		return err
	}
	e.buf.emitJump("JUMP", top)
	e.buf.resolveFrom(from, SentinelFinish, e.pc())
	return nil
}

// lowerUntil lowers a REPEAT ... UNTIL cond loop: the body always runs at
// least once, then the loop repeats for as long as cond is false. Since
// lowerCondition falls through on true and jumps to SentinelFinish on
// false, "true" here needs no extra instruction (it's the exit path,
// which is simply where control already ends up); "false" is the one
// that must jump back to the top.
func (c *Compiler) lowerUntil(e *Encoder, s *ast.UntilStmt) error {
	if err := prepareConstsBeforeBlock(e, c, s.Body); err != nil {
		return err
	}

	e.loopDepth++
	defer func() { e.loopDepth-- }()

	top := e.pc()
	if err := c.lowerStmts(e, s.Body); err != nil {
		return err
	}
	from := e.buf.len()
	if err := lowerCondition(e, c, &s.Cond, s.Line); err != nil {
		return err
	}
	e.buf.resolveFrom(from, SentinelFinish, top)
	return nil
}
