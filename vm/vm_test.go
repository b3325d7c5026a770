package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) []Instruction {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(src), "\n")
	program, err := ParseProgram(lines)
	require.NoError(t, err)
	return program
}

func TestWriteConstant(t *testing.T) {
	program := mustParse(t, `
		RST b
		INC b
		SHL b
		SHL b
		INC b
		GET b
		WRITE
		HALT
	`)

	var out bytes.Buffer
	machine := New(program, strings.NewReader(""), &out)
	require.NoError(t, machine.RunProgram())
	require.Equal(t, "5\n", out.String())
}

func TestReadWriteRoundTrip(t *testing.T) {
	program := mustParse(t, `
		READ
		WRITE
		HALT
	`)

	var out bytes.Buffer
	machine := New(program, strings.NewReader("17"), &out)
	require.NoError(t, machine.RunProgram())
	require.Equal(t, "17\n", out.String())
}

func TestSubSaturatesAtZero(t *testing.T) {
	program := mustParse(t, `
		RST b
		RST c
		INC c
		GET b
		SUB c
		PUT b
		GET b
		WRITE
		HALT
	`)

	var out bytes.Buffer
	machine := New(program, strings.NewReader(""), &out)
	require.NoError(t, machine.RunProgram())
	require.Equal(t, "0\n", out.String())
}

func TestLoadStoreAddressing(t *testing.T) {
	program := mustParse(t, `
		RST b
		INC b
		INC b
		GET b
		PUT c
		INC b
		INC b
		INC b
		GET b
		STORE c
		GET c
		PUT b
		LOAD b
		WRITE
		HALT
	`)

	var out bytes.Buffer
	machine := New(program, strings.NewReader(""), &out)
	require.NoError(t, machine.RunProgram())
	require.Equal(t, "5\n", out.String())
}

func TestUnknownInstructionErrors(t *testing.T) {
	_, err := ParseProgram([]string{"FROB a"})
	require.Error(t, err)
}

func TestRunningOffTheEndWithoutHaltIsClean(t *testing.T) {
	program := mustParse(t, `
		RST b
	`)

	var out bytes.Buffer
	machine := New(program, strings.NewReader(""), &out)
	require.NoError(t, machine.RunProgram())
}

func TestStepLimitExceeded(t *testing.T) {
	program := mustParse(t, `
		JUMP 0
	`)

	var out bytes.Buffer
	machine := New(program, strings.NewReader(""), &out)
	machine.StepLimit = 1000
	err := machine.RunProgram()
	require.ErrorIs(t, err, ErrStepLimitExceeded)
}
