package vm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glyphlang/glyph/internal/bytecode"
	"github.com/glyphlang/glyph/internal/object"
)

// execDomain handles the domain opcodes: I/O, data, time, persistence, and
// resource handles. Opcodes whose behavior this engine does not provide pop
// nothing and fail with a named runtime error, so a program never continues
// past an operation that silently did nothing.
func (vm *VM) execDomain(st *runState, op bytecode.Opcode, pos int, ops operands) error {
	switch op {
	case bytecode.OpInput:
		if vm.in == nil {
			st.push(object.NullVal())
			return nil
		}
		line, err := vm.in.ReadString('\n')
		if err != nil && err != io.EOF {
			return vm.fault(op, pos, "read input: %v", err)
		}
		if line == "" && err == io.EOF {
			st.push(object.NullVal())
			return nil
		}
		st.push(object.StringVal(strings.TrimRight(line, "\r\n")))
		return nil

	case bytecode.OpOutput, bytecode.OpLog, bytecode.OpDebug:
		v, err := st.peek(op, pos)
		if err != nil {
			return err
		}
		switch op {
		case bytecode.OpLog:
			fmt.Fprintf(vm.out, "[log] %s\n", v.Inspect())
		case bytecode.OpDebug:
			fmt.Fprintf(vm.out, "[debug] %s\n", v.Inspect())
		default:
			fmt.Fprintln(vm.out, v.Inspect())
		}
		return nil

	case bytecode.OpJsonParse:
		raw, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return vm.fault(op, pos, "invalid JSON: %v", err)
		}
		st.push(object.FromInterface(data))
		return nil

	case bytecode.OpSplit:
		delim, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		target, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		parts := strings.Split(target, delim)
		elems := make([]object.Value, len(parts))
		for i, p := range parts {
			elems[i] = object.StringVal(p)
		}
		st.push(object.ArrayVal(elems))
		return nil

	case bytecode.OpJoin:
		sep, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		coll, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		if coll.Type != object.TypeArray {
			return vm.fault(op, pos, "expected Array operand, got %s", coll.Type)
		}
		parts := make([]string, len(coll.Elems))
		for i, e := range coll.Elems {
			parts[i] = stringify(e)
		}
		st.push(object.StringVal(strings.Join(parts, sep)))
		return nil

	case bytecode.OpRegexMatch, bytecode.OpRegex:
		pattern, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		target, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return vm.fault(op, pos, "invalid pattern %q: %v", pattern, err)
		}
		st.push(object.BoolVal(re.MatchString(target)))
		return nil

	case bytecode.OpHash:
		v, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		sum := sha256.Sum256([]byte(stringify(v)))
		st.push(object.StringVal(hex.EncodeToString(sum[:])))
		return nil

	case bytecode.OpDateTime:
		st.push(object.StringVal(time.Now().Format(time.RFC3339)))
		return nil
	case bytecode.OpRandom:
		st.push(object.NumberVal(vm.rng.Float64()))
		return nil
	case bytecode.OpDelta:
		st.push(object.NumberVal(time.Since(st.start).Seconds()))
		return nil

	case bytecode.OpEnvVar:
		name, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		val, ok := os.LookupEnv(name)
		if !ok {
			st.push(object.NullVal())
			return nil
		}
		st.push(object.StringVal(val))
		return nil

	case bytecode.OpPathResolve:
		path, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return vm.fault(op, pos, "resolve %q: %v", path, err)
		}
		st.push(object.StringVal(abs))
		return nil

	case bytecode.OpPortNumber:
		n, err := st.popNumber(op, pos)
		if err != nil {
			return err
		}
		if n != float64(int(n)) || n < 1 || n > 65535 {
			return vm.fault(op, pos, "invalid port %v", n)
		}
		st.push(object.NumberVal(n))
		return nil

	case bytecode.OpPropertyAccess:
		name, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		obj, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		if obj.Type != object.TypeMap {
			return vm.fault(op, pos, "expected Map operand, got %s", obj.Type)
		}
		field, ok := obj.Fields[name]
		if !ok {
			st.push(object.NullVal())
			return nil
		}
		st.push(field)
		return nil

	case bytecode.OpMemoryAlloc:
		n, err := st.popNumber(op, pos)
		if err != nil {
			return err
		}
		if n < 0 || n != float64(int(n)) {
			return vm.fault(op, pos, "invalid allocation size %v", n)
		}
		elems := make([]object.Value, int(n))
		for i := range elems {
			elems[i] = object.NullVal()
		}
		st.push(object.ArrayVal(elems))
		return nil

	case bytecode.OpAssert:
		v, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		if !v.Truthy() {
			return vm.fault(op, pos, "assertion failed: %s", v.Inspect())
		}
		st.push(object.BoolVal(true))
		return nil

	case bytecode.OpTestStart:
		name, err := st.constant(op, pos, ops.u1)
		if err != nil {
			return err
		}
		fmt.Fprintf(vm.out, "[test] %s\n", name)
		return nil

	case bytecode.OpImport:
		// Module loading lives outside the execution engine. The import
		// yields the absence value so downstream code sees a defined result.
		if _, err := st.constant(op, pos, ops.u1); err != nil {
			return err
		}
		st.push(object.NullVal())
		return nil

	case bytecode.OpExitProgram:
		payload := object.NullVal()
		if len(st.stack) > 0 {
			payload, _ = st.pop(op, pos)
		}
		return &HaltError{Payload: payload}

	case bytecode.OpPersist:
		v, err := st.peek(op, pos)
		if err != nil {
			return err
		}
		store, err := vm.ensureStore()
		if err != nil {
			return vm.fault(op, pos, "open store: %v", err)
		}
		if err := store.Persist(v); err != nil {
			return vm.fault(op, pos, "persist: %v", err)
		}
		return nil

	case bytecode.OpQuery:
		store, err := vm.ensureStore()
		if err != nil {
			return vm.fault(op, pos, "open store: %v", err)
		}
		values, err := store.Query()
		if err != nil {
			return vm.fault(op, pos, "query: %v", err)
		}
		st.push(object.ArrayVal(values))
		return nil

	case bytecode.OpFileHandle:
		path, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		st.push(newHandle("file", map[string]object.Value{"path": object.StringVal(path)}))
		return nil
	case bytecode.OpCreatePacket:
		payload, err := st.pop(op, pos)
		if err != nil {
			return err
		}
		st.push(newHandle("packet", map[string]object.Value{"payload": payload}))
		return nil
	case bytecode.OpProcessCreate:
		command, err := st.popString(op, pos)
		if err != nil {
			return err
		}
		st.push(newHandle("process", map[string]object.Value{"command": object.StringVal(command)}))
		return nil
	case bytecode.OpCreateSocket:
		st.push(newHandle("socket", nil))
		return nil
	case bytecode.OpCreateStream:
		st.push(newHandle("stream", nil))
		return nil
	case bytecode.OpCreateBuffer:
		st.push(newHandle("buffer", nil))
		return nil

	default:
		return vm.fault(op, pos, "%s is not supported by this execution engine", op.Name())
	}
}

// newHandle mints an opaque resource handle: a map carrying the resource
// kind, a fresh UUID, and any extra descriptive fields.
func newHandle(kind string, extra map[string]object.Value) object.Value {
	fields := map[string]object.Value{
		"kind": object.StringVal(kind),
		"id":   object.StringVal(uuid.NewString()),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return object.MapVal(fields)
}

// stringify renders a value for string-building operations: strings keep
// their raw text, everything else uses the display form.
func stringify(v object.Value) string {
	if v.IsString() {
		return v.Str
	}
	return v.Inspect()
}
