package codegen

import "fmt"

// UninitializedUseError reports a scalar read before any write, outside any
// conditional or loop context. Inside such a context the same condition is
// a warning (see Compiler.addWarning) rather than this error, because an
// assignment on another path may have initialized the scalar by the time
// control reaches here on a later iteration.
type UninitializedUseError struct {
	Name string
	Line int
}

func (e *UninitializedUseError) Error() string {
	return fmt.Sprintf("line %d: %q used before being initialized", e.Line, e.Name)
}

// ShapeMismatchError reports an array name used where a scalar was
// expected, or vice versa.
type ShapeMismatchError struct {
	Name string
	Line int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("line %d: %q used with the wrong shape (array vs. scalar)", e.Line, e.Name)
}

// AssignToArrayWithoutIndexError reports an assignment whose target names
// an array with no subscript.
type AssignToArrayWithoutIndexError struct {
	Name string
	Line int
}

func (e *AssignToArrayWithoutIndexError) Error() string {
	return fmt.Sprintf("line %d: cannot assign to array %q without an index", e.Line, e.Name)
}

// UnknownProcedureError reports a call to a name with no earlier procedure
// declaration.
type UnknownProcedureError struct {
	Name string
	Line int
}

func (e *UnknownProcedureError) Error() string {
	return fmt.Sprintf("line %d: call to undeclared procedure %q", e.Line, e.Name)
}

// ArgCountMismatchError reports a call whose argument count does not match
// the callee's declared parameter count.
type ArgCountMismatchError struct {
	Name     string
	Expected int
	Got      int
	Line     int
}

func (e *ArgCountMismatchError) Error() string {
	return fmt.Sprintf("line %d: %q expects %d argument(s), got %d", e.Line, e.Name, e.Expected, e.Got)
}

// ArgKindMismatchError reports a call passing a scalar where an array
// parameter was declared, or vice versa.
type ArgKindMismatchError struct {
	Name     string
	Arg      string
	Position int
	Line     int
}

func (e *ArgKindMismatchError) Error() string {
	return fmt.Sprintf("line %d: argument %d (%q) to %q has the wrong shape", e.Line, e.Position, e.Arg, e.Name)
}
