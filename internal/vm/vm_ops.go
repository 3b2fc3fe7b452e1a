package vm

import (
	"fmt"
	"math"

	"github.com/glyphlang/glyph/internal/bytecode"
	"github.com/glyphlang/glyph/internal/config"
	"github.com/glyphlang/glyph/internal/object"
)

// step executes one instruction. The pc has already been advanced past the
// instruction; control-flow handlers overwrite it with their absolute
// target.
func (vm *VM) step(st *runState, op bytecode.Opcode, pos int, ops operands) error {
	switch op {
	case bytecode.OpPushNull:
		st.push(object.NullVal())
		return nil
	case bytecode.OpPushBool:
		st.push(object.BoolVal(ops.b != 0))
		return nil
	case bytecode.OpPushNumber:
		st.push(object.NumberVal(ops.f))
		return nil
	case bytecode.OpPushString:
		s, err := st.constant(op, pos, ops.u1)
		if err != nil {
			return err
		}
		st.push(object.StringVal(s))
		return nil
	case bytecode.OpPop:
		_, err := st.pop(op, pos)
		return err
	case bytecode.OpDup:
		v, err := st.peek(op, pos)
		if err != nil {
			return err
		}
		st.push(v)
		return nil
	case bytecode.OpPushFunc:
		// The name is attached by the store that follows in the emitted
		// declaration sequence.
		st.push(object.FuncVal("", int(ops.u1)))
		return nil

	case bytecode.OpLoadVar:
		name, err := st.constant(op, pos, ops.u1)
		if err != nil {
			return err
		}
		v, ok := st.vars[name]
		if !ok {
			return vm.fault(op, pos, "undefined variable %q", name)
		}
		st.push(v)
		return nil
	case bytecode.OpStoreVar:
		name, err := st.constant(op, pos, ops.u1)
		if err != nil {
			return err
		}
		v, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		if v.IsFunction() && v.Str == "" {
			v.Str = name
		}
		return st.storeVar(op, pos, name, v)
	case bytecode.OpStoreImmutable:
		name, err := st.constant(op, pos, ops.u1)
		if err != nil {
			return err
		}
		if _, frozen := st.immutable[name]; frozen {
			return vm.fault(op, pos, "%q is already immutable", name)
		}
		v, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		if err := st.storeVar(op, pos, name, v); err != nil {
			return err
		}
		st.immutable[name] = struct{}{}
		return nil

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
		bytecode.OpPower:
		return vm.execArith(st, op, pos)
	case bytecode.OpRoot:
		// Unary square root. NaN propagates for negative operands.
		v, err := st.popNumber(op, pos)
		if err != nil {
			return err
		}
		st.push(object.NumberVal(math.Sqrt(v)))
		return nil
	case bytecode.OpInfinity:
		st.push(object.NumberVal(math.Inf(1)))
		return nil

	case bytecode.OpEqual, bytecode.OpNotEqual:
		b, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		a, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		eq := a.Equals(b)
		if op == bytecode.OpNotEqual {
			eq = !eq
		}
		st.push(object.BoolVal(eq))
		return nil
	case bytecode.OpLessThan, bytecode.OpGreaterThan, bytecode.OpLessEqual,
		bytecode.OpGreaterEqual, bytecode.OpApprox:
		return vm.execCompare(st, op, pos)

	case bytecode.OpAnd, bytecode.OpOr:
		b, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		a, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		if op == bytecode.OpAnd {
			st.push(object.BoolVal(a.Truthy() && b.Truthy()))
		} else {
			st.push(object.BoolVal(a.Truthy() || b.Truthy()))
		}
		return nil
	case bytecode.OpNot:
		v, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		st.push(object.BoolVal(!v.Truthy()))
		return nil

	case bytecode.OpJump:
		st.pc = int(ops.u1)
		return nil
	case bytecode.OpJumpIfFalse:
		v, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		if !v.Truthy() {
			st.pc = int(ops.u1)
		}
		return nil
	case bytecode.OpJumpIfNull:
		v, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		if v.IsNull() {
			st.pc = int(ops.u1)
		}
		return nil
	case bytecode.OpCall:
		return vm.execCall(st, op, pos, ops)
	case bytecode.OpReturn:
		if len(st.calls) == 0 {
			// A bare return outside any call ends the program.
			st.pc = len(st.prog.Code)
			return nil
		}
		st.pc = st.calls[len(st.calls)-1]
		st.calls = st.calls[:len(st.calls)-1]
		return nil
	case bytecode.OpHalt:
		payload := object.NullVal()
		if len(st.stack) > 0 {
			payload, _ = st.pop(op, pos)
		}
		return &HaltError{Payload: payload}

	case bytecode.OpMakeArray:
		n := int(ops.u1)
		if n > len(st.stack) {
			return vm.fault(op, pos, "stack underflow: need %d elements, have %d", n, len(st.stack))
		}
		elems := make([]object.Value, n)
		copy(elems, st.stack[len(st.stack)-n:])
		st.stack = st.stack[:len(st.stack)-n]
		st.push(object.ArrayVal(elems))
		return nil
	case bytecode.OpMakeObject:
		n := int(ops.u1)
		if 2*n > len(st.stack) {
			return vm.fault(op, pos, "stack underflow: need %d key/value pairs, have %d values", n, len(st.stack))
		}
		fields := make(map[string]object.Value, n)
		base := len(st.stack) - 2*n
		for i := 0; i < n; i++ {
			key := st.stack[base+2*i]
			if !key.IsString() {
				return vm.fault(op, pos, "object key must be String, got %s", key.Type)
			}
			fields[key.Str] = st.stack[base+2*i+1]
		}
		st.stack = st.stack[:base]
		st.push(object.MapVal(fields))
		return nil

	case bytecode.OpLoopStart:
		// Marker only. The operand is the past-the-loop target used by the
		// exits registered during lowering.
		return nil
	case bytecode.OpLoopEnd:
		st.pc = int(ops.u1)
		return nil
	case bytecode.OpForEach:
		return vm.execForEach(st, op, pos, ops)

	case bytecode.OpTryStart:
		st.handlers = append(st.handlers, handler{target: int(ops.u1), depth: len(st.stack)})
		return nil
	case bytecode.OpTryEnd:
		if len(st.handlers) > 0 {
			st.handlers = st.handlers[:len(st.handlers)-1]
		}
		return nil

	default:
		return vm.execDomain(st, op, pos, ops)
	}
}

func (vm *VM) execArith(st *runState, op bytecode.Opcode, pos int) error {
	b, err := st.popNumber(op, pos)
	if err != nil {
		return err
	}
	a, err := st.popNumber(op, pos)
	if err != nil {
		return err
	}
	var out float64
	switch op {
	case bytecode.OpAdd:
		out = a + b
	case bytecode.OpSub:
		out = a - b
	case bytecode.OpMul:
		out = a * b
	case bytecode.OpDiv:
		// Deliberate divergence from IEEE propagation: dividing by zero is
		// an error, never Inf or NaN.
		if b == 0 {
			return vm.fault(op, pos, "division by zero")
		}
		out = a / b
	case bytecode.OpPower:
		out = math.Pow(a, b)
	}
	st.push(object.NumberVal(out))
	return nil
}

func (vm *VM) execCompare(st *runState, op bytecode.Opcode, pos int) error {
	b, err := st.popNumber(op, pos)
	if err != nil {
		return err
	}
	a, err := st.popNumber(op, pos)
	if err != nil {
		return err
	}
	var out bool
	switch op {
	case bytecode.OpLessThan:
		out = a < b
	case bytecode.OpGreaterThan:
		out = a > b
	case bytecode.OpLessEqual:
		out = a <= b
	case bytecode.OpGreaterEqual:
		out = a >= b
	case bytecode.OpApprox:
		out = math.Abs(a-b) < config.ApproxEpsilon
	}
	st.push(object.BoolVal(out))
	return nil
}

// execCall resolves the callee by name, binds popped arguments to the
// positional $1..$N variables, records the return address, and jumps to the
// function's entry offset.
func (vm *VM) execCall(st *runState, op bytecode.Opcode, pos int, ops operands) error {
	name, err := st.constant(op, pos, ops.u1)
	if err != nil {
		return err
	}
	callee, ok := st.vars[name]
	if !ok {
		return vm.fault(op, pos, "undefined function %q", name)
	}
	if !callee.IsFunction() {
		return vm.fault(op, pos, "%q is not a function (got %s)", name, callee.Type)
	}

	argc := int(ops.b)
	if argc > len(st.stack) {
		return vm.fault(op, pos, "stack underflow: call needs %d arguments, have %d", argc, len(st.stack))
	}
	for i := argc; i >= 1; i-- {
		arg, _ := st.pop(op, pos)
		argName := fmt.Sprintf("%s%d", config.ArgVariablePrefix, i)
		if err := st.storeVar(op, pos, argName, arg); err != nil {
			return err
		}
	}

	st.calls = append(st.calls, st.pc)
	st.pc = callee.Entry
	return nil
}

// execForEach drives one iteration step. On first arrival the collection is
// popped from the stack; each pass binds the next element and falls through
// into the body, whose trailing back edge returns here. When the elements
// are exhausted the iterator is dropped and control jumps past the loop.
func (vm *VM) execForEach(st *runState, op bytecode.Opcode, pos int, ops operands) error {
	name, err := st.constant(op, pos, ops.u1)
	if err != nil {
		return err
	}

	key := iterKey{pos: pos, depth: len(st.calls)}
	it, ok := st.iters[key]
	if !ok {
		coll, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		var elems []object.Value
		switch coll.Type {
		case object.TypeArray:
			elems = coll.Elems
		case object.TypeString:
			for _, r := range coll.Str {
				elems = append(elems, object.StringVal(string(r)))
			}
		default:
			return vm.fault(op, pos, "expected Array or String collection, got %s", coll.Type)
		}
		it = &iterator{elems: elems}
		st.iters[key] = it
	}

	if it.next >= len(it.elems) {
		delete(st.iters, key)
		st.pc = int(ops.u2)
		return nil
	}
	elem := it.elems[it.next]
	it.next++
	return st.storeVar(op, pos, name, elem)
}
