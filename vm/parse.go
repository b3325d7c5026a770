package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseProgram turns the plain-text instruction stream the codegen package
// emits back into executable instructions. Unlike an assembler for a general
// purpose ISA, there are no labels to resolve here: codegen backpatches every
// jump to an absolute program counter before it ever writes a line out, so
// parsing is a straight one-line-to-one-instruction translation.
func ParseProgram(lines []string) ([]Instruction, error) {
	program := make([]Instruction, 0, len(lines))
	for lineno, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		code, ok := strToInstrMap[fields[0]]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown instruction %q", lineno+1, fields[0])
		}

		instr := Instruction{Code: code}
		switch {
		case code.RequiresRegister():
			if len(fields) != 2 || len(fields[1]) != 1 || !IsRegisterName(fields[1][0]) {
				return nil, fmt.Errorf("line %d: %s expects a single register a..f", lineno+1, fields[0])
			}
			instr.Register = fields[1][0]
		case code.RequiresTarget():
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: %s expects a jump target", lineno+1, fields[0])
			}
			target, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid jump target %q", lineno+1, fields[1])
			}
			instr.Target = target
		default:
			if len(fields) != 1 {
				return nil, fmt.Errorf("line %d: %s takes no argument", lineno+1, fields[0])
			}
		}

		program = append(program, instr)
	}

	return program, nil
}
