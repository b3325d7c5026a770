package codegen

import "github.com/oldhatfield/imperare/symtab"

// scalarAddress resolves name as a scalar (Variable or RefVariable),
// materializing its address into reg, with no initialization check: this is
// the form a write-target (a `read` or `assign` destination) needs, since
// the point of reaching it is to initialize the cell, not consume it.
func scalarAddress(e *Encoder, name string, reg byte, line int) error {
	sym, ok := e.Table.Get(name)
	if !ok {
		return &symtab.UndeclaredNameError{Name: name, Line: line}
	}
	if sym.Kind == symtab.KindArray || sym.Kind == symtab.KindRefArray {
		return &ShapeMismatchError{Name: name, Line: line}
	}
	materializeConst(e, uint64(sym.Offset), reg)
	return nil
}

// dereferenceScalar resolves name's address into reg and emits LOAD reg,
// leaving its runtime value in the accumulator. If copyBack is set, it also
// emits PUT reg so the value ends up back in reg for further arithmetic.
// Using a scalar before it is known to be initialized is a hard error
// outside a conditional/loop context, and a warning (generation proceeds
// regardless) inside one.
func dereferenceScalar(e *Encoder, c *Compiler, name string, reg byte, line int, copyBack bool) error {
	sym, ok := e.Table.Get(name)
	if !ok {
		return &symtab.UndeclaredNameError{Name: name, Line: line}
	}
	if sym.Kind == symtab.KindArray || sym.Kind == symtab.KindRefArray {
		return &ShapeMismatchError{Name: name, Line: line}
	}
	if !sym.Initialized {
		if e.loopDepth > 0 {
			c.addWarning("line %d: %q used before being initialized", line, name)
		} else {
			return &UninitializedUseError{Name: name, Line: line}
		}
	}
	materializeConst(e, uint64(sym.Offset), reg)
	e.buf.emitReg("LOAD", reg)
	if copyBack {
		e.buf.emitReg("PUT", reg)
	}
	return nil
}

// loadScalar dereferences name into reg for use as an expression operand.
func loadScalar(e *Encoder, c *Compiler, name string, reg byte, line int) error {
	return dereferenceScalar(e, c, name, reg, line, true)
}

// writeScalarSource dereferences name straight into the accumulator, for a
// write statement's source: WRITE reads the accumulator directly and has no
// use for a copy in reg.
func writeScalarSource(e *Encoder, c *Compiler, name string, reg byte, line int) error {
	return dereferenceScalar(e, c, name, reg, line, false)
}

// markInitialized flags name as initialized after a read or assign.
func markInitialized(e *Encoder, name string) {
	if sym, ok := e.Table.Get(name); ok {
		sym.Initialized = true
	}
}

// arrayBaseAndSize resolves name as an array (Array or RefArray), returning
// its current base address and size.
func arrayBaseAndSize(e *Encoder, name string, line int) (int, int, error) {
	sym, ok := e.Table.Get(name)
	if !ok {
		return 0, 0, &symtab.UndeclaredNameError{Name: name, Line: line}
	}
	if sym.Kind != symtab.KindArray && sym.Kind != symtab.KindRefArray {
		return 0, 0, &ShapeMismatchError{Name: name, Line: line}
	}
	return sym.Offset, sym.Size, nil
}

// indexOperand is either a compile-time literal subscript or the name of a
// scalar variable holding the subscript at runtime, matching spec.md §6's
// lvalue grammar (`("array", name, index_literal_or_load)`).
type indexOperand struct {
	literal  *uint64
	variable string
}

func literalIndex(v uint64) indexOperand     { return indexOperand{literal: &v} }
func variableIndex(name string) indexOperand { return indexOperand{variable: name} }

// arrayElementAddress materializes the address of array[index] into reg1,
// using reg2 as scratch when index is not a compile-time literal.
//
//   - literal index: the address is computed at compile time (with a
//     bounds check against the array's size) and materialized directly.
//   - variable index: the array's base address is materialized into reg2,
//     the index variable's runtime value is loaded into reg1, and the two
//     are added together into reg1.
func arrayElementAddress(e *Encoder, c *Compiler, array string, index indexOperand, reg1, reg2 byte, line int) error {
	base, size, err := arrayBaseAndSize(e, array, line)
	if err != nil {
		return err
	}

	if index.literal != nil {
		idx := int(*index.literal)
		if idx < 0 || idx >= size {
			return &symtab.ArrayIndexOutOfRangeError{Name: array, Index: idx, Size: size, Line: line}
		}
		materializeConst(e, uint64(base+idx), reg1)
		return nil
	}

	materializeConst(e, uint64(base), reg2)
	if err := loadScalar(e, c, index.variable, reg1, line); err != nil {
		return err
	}
	e.buf.emitReg("GET", reg1)
	e.buf.emitReg("ADD", reg2)
	e.buf.emitReg("PUT", reg1)
	return nil
}

// dereferenceArrayElement resolves array[index]'s address into reg1 and
// emits LOAD reg1, leaving its value in the accumulator; copyBack mirrors
// dereferenceScalar.
func dereferenceArrayElement(e *Encoder, c *Compiler, array string, index indexOperand, reg1, reg2 byte, line int, copyBack bool) error {
	if err := arrayElementAddress(e, c, array, index, reg1, reg2, line); err != nil {
		return err
	}
	e.buf.emitReg("LOAD", reg1)
	if copyBack {
		e.buf.emitReg("PUT", reg1)
	}
	return nil
}

func loadArrayElement(e *Encoder, c *Compiler, array string, index indexOperand, reg1, reg2 byte, line int) error {
	return dereferenceArrayElement(e, c, array, index, reg1, reg2, line, true)
}

func writeArraySource(e *Encoder, c *Compiler, array string, index indexOperand, reg1, reg2 byte, line int) error {
	return dereferenceArrayElement(e, c, array, index, reg1, reg2, line, false)
}
