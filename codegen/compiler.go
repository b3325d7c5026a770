package codegen

import (
	"fmt"

	"github.com/oldhatfield/imperare/ast"
	"github.com/oldhatfield/imperare/symtab"
)

// LineToken is one (statement label, sourceLine) pair from the trace
// lang.Parse builds off the parsed statement tree, used only to advance the
// diagnostic line cursor as statements are lowered.
type LineToken struct {
	Token string
	Line  int
}

// Compiler reifies the global state spec.md's design notes call out as
// process-wide singletons in the original implementation: the constants
// region's next free address, the token/line table, and the diagnostic
// line cursor. Carrying them as fields here (rather than package-level
// vars) means a process can compile many programs without resetting
// anything by hand.
type Compiler struct {
	GlobalConstsAddress int
	ProgramLines        []LineToken
	GlobalCommandLineno int

	// Warnings accumulates non-fatal diagnostics (spec.md §7's warning
	// for a scalar used under a conditional/loop before it is known to be
	// initialized). Compiler never prints; callers decide what to do
	// with these.
	Warnings []string

	order    []string
	encoders map[string]*Encoder
	main     *Encoder

	lineCursor int
}

func (c *Compiler) nextConstAddr() int {
	addr := c.GlobalConstsAddress
	c.GlobalConstsAddress++
	return addr
}

func (c *Compiler) addWarning(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// advanceLineno moves the diagnostic line cursor forward to the next
// occurrence of tokenType in ProgramLines, recording its line in
// GlobalCommandLineno. Purely diagnostic: it never affects emitted code, and
// the errors and warnings this package reports take their line from the AST
// node being lowered rather than from this cursor.
func (c *Compiler) advanceLineno(tokenType string) {
	for i := c.lineCursor; i < len(c.ProgramLines); i++ {
		if c.ProgramLines[i].Token == tokenType {
			c.GlobalCommandLineno = c.ProgramLines[i].Line
			c.lineCursor = i + 1
			return
		}
	}
}

func (c *Compiler) lookupEncoder(name string) (*Encoder, bool) {
	enc, ok := c.encoders[name]
	return enc, ok
}

// Encoder is a code-generator instance bound to either the main program or
// one procedure. Each owns its symbol table and instruction buffer
// exclusively; a procedure encoder's buffer is regenerated from scratch on
// every call (see codegen/proc.go), since its parameter bindings change per
// call and there is no activation record to make a cached copy valid.
type Encoder struct {
	Name  string
	Table *symtab.Table

	buf        buffer
	codeOffset int
	loopDepth  int

	params []ast.Param
	decls  []ast.Decl
	body   []ast.Stmt
	line   int

	compiler *Compiler
}

// pc is the absolute program counter the next instruction emitted into this
// encoder's buffer will receive.
func (e *Encoder) pc() int {
	return e.codeOffset + e.buf.len()
}

func newEncoder(c *Compiler, name string, baseOffset int, params []ast.Param, decls []ast.Decl, body []ast.Stmt, line int) (*Encoder, error) {
	table := symtab.New(name, baseOffset)
	for _, p := range params {
		var err error
		switch p.Kind {
		case ast.ScalarParam:
			err = table.AddArgsVariable(p.Name, line)
		case ast.ArrayParam:
			err = table.AddArgsArray(p.Name, line)
		}
		if err != nil {
			return nil, err
		}
	}
	for _, d := range decls {
		var err error
		if d.IsArray {
			err = table.AddArray(d.Name, int(d.Size), d.Line)
		} else {
			err = table.AddVariable(d.Name, d.Line)
		}
		if err != nil {
			return nil, err
		}
	}
	return &Encoder{
		Name:     name,
		Table:    table,
		params:   params,
		decls:    decls,
		body:     body,
		line:     line,
		compiler: c,
	}, nil
}

// Compile generates the full program: every procedure's encoder (built but
// not yet run, since a procedure only emits code at a call site), then the
// main encoder's body, finishing with a single HALT. It returns the
// generated program as plain-text instruction lines, one per line, per
// spec.md §6's external interface.
func Compile(prog *ast.Program, programLines []LineToken) ([]string, *Compiler, error) {
	c := &Compiler{ProgramLines: programLines, encoders: make(map[string]*Encoder)}

	// Each procedure's locals are laid out after the previous procedure's,
	// and the main program's after the last procedure's, so no two encoders
	// share a memory cell.
	memoryOffset := 0
	for _, proc := range prog.Procedures {
		enc, err := newEncoder(c, proc.Name, memoryOffset, proc.Params, proc.Decls, proc.Body, proc.Line)
		if err != nil {
			return nil, nil, err
		}
		if _, exists := c.encoders[proc.Name]; exists {
			return nil, nil, &symtab.RedeclarationError{Name: proc.Name, Line: proc.Line}
		}
		c.encoders[proc.Name] = enc
		c.order = append(c.order, proc.Name)
		memoryOffset = enc.Table.MemoryOffset
	}

	main, err := newEncoder(c, "", memoryOffset, nil, prog.MainDecls, prog.MainBody, 0)
	if err != nil {
		return nil, nil, err
	}
	c.main = main

	// Constants live above all declared main-program storage; the +1 gap
	// matches the layout the original encoder produces.
	c.GlobalConstsAddress = main.Table.MemoryOffset + 1

	if err := c.generate(main); err != nil {
		return nil, nil, err
	}
	main.buf.emitBare("HALT")

	lines := make([]string, 0, main.buf.len())
	for _, instr := range main.buf.lines {
		lines = append(lines, instr.String())
	}
	return lines, c, nil
}

// generate (re)lowers enc's body into enc's buffer from scratch. Called
// once for the main encoder, and once per call site for a procedure
// encoder (see codegen/proc.go), since ref-parameter bindings differ on
// every call.
func (c *Compiler) generate(enc *Encoder) error {
	enc.buf.reset()
	return c.lowerStmts(enc, enc.body)
}
