// Package vm executes compiled bytecode programs on a stack machine.
//
// The dispatch loop is bounded by a configurable iteration ceiling so
// malformed or adversarial bytecode aborts with a runtime error instead of
// hanging. Every run owns fresh execution state; the Program itself is
// read-only and may be executed repeatedly.
package vm

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/glyphlang/glyph/internal/bytecode"
	"github.com/glyphlang/glyph/internal/config"
	"github.com/glyphlang/glyph/internal/object"
)

// RuntimeError aborts an execution: stack underflow, operand type mismatch,
// division by zero, an immutability violation, an unsupported opcode, or the
// iteration ceiling. A failed execution is not resumable.
type RuntimeError struct {
	Op  bytecode.Opcode
	Pos int
	Msg string

	// uncatchable errors bypass try/rescue handlers. The iteration ceiling
	// is the only one: letting a program rescue its own runaway loop would
	// defeat the bound.
	uncatchable bool
}

func (e *RuntimeError) Error() string {
	// A ceiling abort is not attributable to one faulting instruction, so
	// its message carries no mnemonic.
	if e.uncatchable {
		return fmt.Sprintf("runtime error at %04X: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("runtime error at %04X (%s): %s", e.Pos, e.Op.Name(), e.Msg)
}

// HaltError is an explicit program-authored termination. It carries the
// halt payload and is deliberately distinct from RuntimeError: a halt is an
// expected outcome, not an engine fault, and rescue blocks do not catch it.
type HaltError struct {
	Payload object.Value
}

func (e *HaltError) Error() string {
	return "program halted: " + e.Payload.Inspect()
}

// VM executes programs. A VM instance must not be driven by more than one
// caller at a time; independent instances may share a Program freely.
type VM struct {
	opts  config.Options
	out   io.Writer
	in    *bufio.Reader
	store *Store
	rng   *rand.Rand
}

// New returns a VM with the given options, writing to stdout and reading
// nothing until SetInput is called.
func New(opts config.Options) *VM {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = config.DefaultMaxIterations
	}
	return &VM{
		opts: opts,
		out:  os.Stdout,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetOutput redirects the VM's output opcodes.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetInput supplies the reader behind the input opcode. Without one, input
// pushes the absence value.
func (vm *VM) SetInput(r io.Reader) {
	vm.in = bufio.NewReader(r)
}

// Close releases the persistence store, if one was opened.
func (vm *VM) Close() error {
	if vm.store == nil {
		return nil
	}
	err := vm.store.Close()
	vm.store = nil
	return err
}

func (vm *VM) ensureStore() (*Store, error) {
	if vm.store != nil {
		return vm.store, nil
	}
	s, err := OpenStore(vm.opts.StorePath)
	if err != nil {
		return nil, err
	}
	vm.store = s
	return s, nil
}

// handler is one armed try/rescue region: where to jump and how deep the
// operand stack was when the region was entered.
type handler struct {
	target int
	depth  int
}

// iterator is the VM-side state of one in-flight for-each loop. The key
// includes the call depth alongside the instruction offset: a function that
// recursively re-enters its own for-each must not share iteration state with
// the outer pass.
type iterKey struct {
	pos   int
	depth int
}

type iterator struct {
	elems []object.Value
	next  int
}

// runState is the per-execution mutable state. It is created by Execute and
// discarded when Execute returns.
type runState struct {
	prog      *bytecode.Program
	pc        int
	stack     []object.Value
	vars      map[string]object.Value
	immutable map[string]struct{}
	calls     []int
	handlers  []handler
	iters     map[iterKey]*iterator
	start     time.Time
}

// operands holds the decoded fixed-width operand bytes of the current
// instruction, populated according to the opcode's layout.
type operands struct {
	b  uint8
	u1 uint32
	u2 uint32
	f  float64
}

// Execute runs the program to completion and returns the top of the operand
// stack, or the absence value if the stack is empty. Errors follow the
// taxonomy: *bytecode.FormatError for undefined opcode bytes, *RuntimeError
// for execution faults, *HaltError for an authored halt.
func (vm *VM) Execute(prog *bytecode.Program) (object.Value, error) {
	st := &runState{
		prog:      prog,
		vars:      make(map[string]object.Value),
		immutable: make(map[string]struct{}),
		iters:     make(map[iterKey]*iterator),
		start:     time.Now(),
	}

	iterations := 0
	for st.pc < len(prog.Code) {
		iterations++
		if iterations > vm.opts.MaxIterations {
			return object.NullVal(), &RuntimeError{
				Pos:         st.pc,
				Msg:         fmt.Sprintf("iteration ceiling of %d exceeded", vm.opts.MaxIterations),
				uncatchable: true,
			}
		}

		insPos := st.pc
		op, err := bytecode.Decode(prog.Code[insPos])
		if err != nil {
			return object.NullVal(), err
		}
		if vm.opts.Trace {
			_, line := bytecode.Instruction(prog, insPos)
			fmt.Fprintln(vm.out, line)
		}

		ops, err := vm.fetchOperands(st, op, insPos)
		if err != nil {
			return object.NullVal(), err
		}

		if op == bytecode.OpEnd {
			break
		}
		if err := vm.step(st, op, insPos, ops); err != nil {
			rerr, ok := err.(*RuntimeError)
			if !ok || rerr.uncatchable || len(st.handlers) == 0 {
				return object.NullVal(), err
			}
			h := st.handlers[len(st.handlers)-1]
			st.handlers = st.handlers[:len(st.handlers)-1]
			if len(st.stack) > h.depth {
				st.stack = st.stack[:h.depth]
			}
			st.stack = append(st.stack, object.StringVal(rerr.Msg))
			st.pc = h.target
		}
	}

	if len(st.stack) == 0 {
		return object.NullVal(), nil
	}
	return st.stack[len(st.stack)-1], nil
}

// fetchOperands reads the instruction's operand bytes and advances the pc
// past the whole instruction. Truncated operands are a format fault.
func (vm *VM) fetchOperands(st *runState, op bytecode.Opcode, insPos int) (operands, error) {
	layout := op.Operand()
	if insPos+1+layout.Width() > len(st.prog.Code) {
		return operands{}, &bytecode.FormatError{
			Msg: fmt.Sprintf("%s at offset %d: operand truncated", op.Name(), insPos),
		}
	}

	var ops operands
	var err error
	pos := insPos + 1
	switch layout {
	case bytecode.OperandByte:
		ops.b, err = st.prog.ReadU8(pos)
	case bytecode.OperandIndex, bytecode.OperandOffset, bytecode.OperandCount:
		ops.u1, err = st.prog.ReadU32(pos)
	case bytecode.OperandNumber:
		ops.f, err = st.prog.ReadF64(pos)
	case bytecode.OperandCall:
		if ops.u1, err = st.prog.ReadU32(pos); err == nil {
			ops.b, err = st.prog.ReadU8(pos + 4)
		}
	case bytecode.OperandIndexOffset:
		if ops.u1, err = st.prog.ReadU32(pos); err == nil {
			ops.u2, err = st.prog.ReadU32(pos + 4)
		}
	}
	if err != nil {
		return operands{}, err
	}
	st.pc = insPos + 1 + layout.Width()
	return ops, nil
}

// Stack and environment helpers. All faults are typed runtime errors, never
// panics.

func (vm *VM) fault(op bytecode.Opcode, pos int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Op: op, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (st *runState) push(v object.Value) {
	st.stack = append(st.stack, v)
}

func (st *runState) pop(op bytecode.Opcode, pos int) (object.Value, error) {
	if len(st.stack) == 0 {
		return object.Value{}, &RuntimeError{Op: op, Pos: pos, Msg: "stack underflow"}
	}
	v := st.stack[len(st.stack)-1]
	st.stack = st.stack[:len(st.stack)-1]
	return v, nil
}

func (st *runState) peek(op bytecode.Opcode, pos int) (object.Value, error) {
	if len(st.stack) == 0 {
		return object.Value{}, &RuntimeError{Op: op, Pos: pos, Msg: "stack underflow"}
	}
	return st.stack[len(st.stack)-1], nil
}

// popNumber pops an operand that must be numeric.
func (st *runState) popNumber(op bytecode.Opcode, pos int) (float64, error) {
	v, err := st.pop(op, pos)
	if err != nil {
		return 0, err
	}
	if !v.IsNumber() {
		return 0, &RuntimeError{Op: op, Pos: pos, Msg: fmt.Sprintf("expected Number operand, got %s", v.Type)}
	}
	return v.Num, nil
}

// popString pops an operand that must be a string.
func (st *runState) popString(op bytecode.Opcode, pos int) (string, error) {
	v, err := st.pop(op, pos)
	if err != nil {
		return "", err
	}
	if !v.IsString() {
		return "", &RuntimeError{Op: op, Pos: pos, Msg: fmt.Sprintf("expected String operand, got %s", v.Type)}
	}
	return v.Str, nil
}

// constant resolves a pool index carried by the current instruction.
func (st *runState) constant(op bytecode.Opcode, pos int, idx uint32) (string, error) {
	s, err := st.prog.Constant(idx)
	if err != nil {
		return "", &RuntimeError{Op: op, Pos: pos, Msg: err.Error()}
	}
	return s, nil
}

// storeVar writes a binding, honoring the immutable set.
func (st *runState) storeVar(op bytecode.Opcode, pos int, name string, v object.Value) error {
	if _, frozen := st.immutable[name]; frozen {
		return &RuntimeError{Op: op, Pos: pos, Msg: fmt.Sprintf("cannot assign to immutable %q", name)}
	}
	st.vars[name] = v
	return nil
}
