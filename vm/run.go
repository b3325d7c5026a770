package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RunProgram executes the whole program to completion (HALT, running off
// the end, or a runtime fault) and returns the error that stopped it.
// ErrProgramFinished, set both by an explicit HALT and by running off the
// end, is not itself an error of interest to callers and is swallowed; any
// other outcome is returned.
func (vm *VM) RunProgram() error {
	steps := 0
	for {
		vm.step()
		if vm.errcode != nil {
			break
		}
		steps++
		if vm.StepLimit > 0 && steps >= vm.StepLimit {
			vm.errcode = ErrStepLimitExceeded
			break
		}
	}
	vm.stdout.Flush()
	if vm.errcode == ErrProgramFinished {
		return nil
	}
	return vm.errcode
}

// RunProgramDebugMode single-steps the program, printing register state and
// accepting break/run/next commands from stdin. It is meant for interactive
// troubleshooting of generated programs, not for test harnesses.
func (vm *VM) RunProgramDebugMode() error {
	reader := bufio.NewReader(os.Stdin)
	breakpoints := make(map[int]struct{})
	waitForInput := true

	vm.printState()
	for {
		if waitForInput {
			fmt.Print("\n-> ")
			line, _ := reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))

			switch {
			case line == "n" || line == "next" || line == "":
				vm.step()
				vm.printState()
			case line == "r" || line == "run":
				waitForInput = false
			case strings.HasPrefix(line, "b"):
				arg := strings.TrimSpace(strings.TrimPrefix(line, "b"))
				n, err := strconv.Atoi(arg)
				if err != nil {
					fmt.Println("unknown line number:", arg)
					continue
				}
				if _, ok := breakpoints[n]; ok {
					delete(breakpoints, n)
				} else {
					breakpoints[n] = struct{}{}
				}
			default:
				fmt.Println("commands: n(ext), r(un), b(reak) <line>")
				continue
			}
		} else {
			if _, ok := breakpoints[vm.pc]; ok {
				fmt.Println("breakpoint")
				waitForInput = true
				continue
			}
			vm.step()
		}

		if vm.errcode != nil {
			vm.stdout.Flush()
			if vm.errcode == ErrProgramFinished {
				return nil
			}
			return vm.errcode
		}
	}
}

func (vm *VM) printState() {
	if vm.pc < len(vm.program) {
		fmt.Printf("next> %d: %s\n", vm.pc, vm.program[vm.pc])
	}
	fmt.Printf("registers> a=%d b=%d c=%d d=%d e=%d f=%d\n",
		vm.registers[0], vm.registers[1], vm.registers[2],
		vm.registers[3], vm.registers[4], vm.registers[5])
}
