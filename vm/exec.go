package vm

// step executes a single instruction and advances the program counter
// (or overwrites it, for taken jumps). The loops that drive it are
// RunProgram and RunProgramDebugMode in run.go.
func (vm *VM) step() {
	if vm.pc < 0 || vm.pc >= len(vm.program) {
		vm.errcode = ErrProgramFinished
		return
	}

	instr := vm.program[vm.pc]
	vm.pc++

	switch instr.Code {
	case Rst:
		vm.setRegister(instr.Register, 0)
	case Inc:
		vm.setRegister(instr.Register, vm.register(instr.Register)+1)
	case Dec:
		v := vm.register(instr.Register)
		if v > 0 {
			vm.setRegister(instr.Register, v-1)
		}
	case Shl:
		vm.setRegister(instr.Register, vm.register(instr.Register)<<1)
	case Shr:
		vm.setRegister(instr.Register, vm.register(instr.Register)>>1)
	case Get:
		vm.setRegister('a', vm.register(instr.Register))
	case Put:
		vm.setRegister(instr.Register, vm.register('a'))
	case Add:
		vm.setRegister('a', vm.register('a')+vm.register(instr.Register))
	case Sub:
		a, r := vm.register('a'), vm.register(instr.Register)
		if a > r {
			vm.setRegister('a', a-r)
		} else {
			vm.setRegister('a', 0)
		}
	case Load:
		addr, err := vm.readAddress(instr.Register)
		if err != nil {
			vm.errcode = err
			return
		}
		vm.setRegister('a', vm.memory[addr])
	case Store:
		addr, err := vm.readAddress(instr.Register)
		if err != nil {
			vm.errcode = err
			return
		}
		vm.memory[addr] = vm.register('a')
	case Read:
		value, err := vm.readInput()
		if err != nil {
			vm.errcode = ErrIO
			return
		}
		vm.setRegister('a', value)
	case Write:
		vm.writeOutput(vm.register('a'))
	case Jump:
		vm.pc = instr.Target
	case Jzero:
		if vm.register('a') == 0 {
			vm.pc = instr.Target
		}
	case Jpos:
		if vm.register('a') > 0 {
			vm.pc = instr.Target
		}
	case Halt:
		vm.pc = len(vm.program)
		vm.errcode = ErrProgramFinished
	default:
		vm.errcode = ErrUnknownInstruction
	}
}
