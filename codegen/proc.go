package codegen

import (
	"github.com/oldhatfield/imperare/ast"
	"github.com/oldhatfield/imperare/symtab"
)

// lowerProcCall inlines one call to a previously declared procedure: its
// encoder is regenerated from scratch with this call's argument bindings,
// with codeOffset absorbing the caller's current emitted length so every
// jump target inside the callee's buffer comes out as a globally absolute
// address with no post-inlining patch pass needed. The callee's buffer is
// cleared once copied, so a later call to the same procedure starts clean.
func (c *Compiler) lowerProcCall(e *Encoder, call *ast.ProcCallStmt) error {
	callee, ok := c.lookupEncoder(call.Name)
	// A procedure may call only procedures declared before it (so never
	// itself); the main program may call any of them.
	for _, declared := range c.order {
		if !ok {
			break
		}
		if declared == e.Name {
			ok = false
		} else if declared == call.Name {
			break
		}
	}
	if !ok {
		return &UnknownProcedureError{Name: call.Name, Line: call.Line}
	}

	if len(call.Args) != len(callee.Table.Args) {
		return &ArgCountMismatchError{
			Name:     call.Name,
			Expected: len(callee.Table.Args),
			Got:      len(call.Args),
			Line:     call.Line,
		}
	}

	for i, argName := range call.Args {
		argSym, ok := e.Table.Get(argName)
		if !ok {
			return &symtab.UndeclaredNameError{Name: argName, Line: call.Line}
		}

		paramSym, _ := callee.Table.Get(callee.Table.Args[i])
		switch paramSym.Kind {
		case symtab.KindRefVariable:
			if argSym.Kind == symtab.KindArray || argSym.Kind == symtab.KindRefArray {
				return &ArgKindMismatchError{Name: call.Name, Arg: argName, Position: i + 1, Line: call.Line}
			}
			callee.Table.SetArgsVariableAddress(i, argSym.Offset)
		case symtab.KindRefArray:
			if argSym.Kind != symtab.KindArray && argSym.Kind != symtab.KindRefArray {
				return &ArgKindMismatchError{Name: call.Name, Arg: argName, Position: i + 1, Line: call.Line}
			}
			callee.Table.SetArgsArrayAddressAndSize(i, argSym.Offset, argSym.Size)
		}
	}

	callee.codeOffset = e.pc()
	if err := c.generate(callee); err != nil {
		return err
	}
	e.buf.append(callee.buf.lines)
	callee.buf.reset()

	// A by-reference scalar argument may have been written inside the
	// callee; there is no dataflow analysis to confirm it was, so it is
	// conservatively treated as initialized from here on, the same way a
	// direct assignment would be.
	for i, argName := range call.Args {
		paramSym, _ := callee.Table.Get(callee.Table.Args[i])
		if paramSym.Kind == symtab.KindRefVariable {
			markInitialized(e, argName)
		}
	}

	return nil
}
