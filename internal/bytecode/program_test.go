package bytecode

import "testing"

func TestAddConstantDeduplicates(t *testing.T) {
	p := NewProgram()
	a := p.AddConstant("hello")
	b := p.AddConstant("world")
	c := p.AddConstant("hello")

	if a == b {
		t.Fatalf("distinct strings share index %d", a)
	}
	if a != c {
		t.Errorf("equal strings got distinct indices %d and %d", a, c)
	}
	if len(p.Constants) != 2 {
		t.Errorf("pool size = %d, want 2", len(p.Constants))
	}
}

func TestAddConstantAfterDeserialize(t *testing.T) {
	p := NewProgram()
	p.AddConstant("kept")

	// A freshly deserialized program has no dedupe index; interning must
	// still not duplicate existing entries.
	q := &Program{Constants: append([]string(nil), p.Constants...)}
	if idx := q.AddConstant("kept"); idx != 0 {
		t.Errorf("rebuilt index returned %d, want 0", idx)
	}
	if len(q.Constants) != 1 {
		t.Errorf("pool grew to %d entries", len(q.Constants))
	}
}

func TestEmitAndReadBack(t *testing.T) {
	p := NewProgram()
	p.EmitOp(OpPushNull)
	p.EmitU8(OpPushBool, 1)
	p.EmitF64(OpPushNumber, 3.5)
	p.EmitU32(OpJump, 42)
	p.EmitU32U8(OpCall, 7, 2)
	p.EmitU32U32(OpForEach, 3, 99)

	b, err := p.ReadU8(2)
	if err != nil || b != 1 {
		t.Errorf("ReadU8 = %d, %v", b, err)
	}
	f, err := p.ReadF64(4)
	if err != nil || f != 3.5 {
		t.Errorf("ReadF64 = %v, %v", f, err)
	}
	u, err := p.ReadU32(13)
	if err != nil || u != 42 {
		t.Errorf("ReadU32 = %d, %v", u, err)
	}
	argc, err := p.ReadU8(22)
	if err != nil || argc != 2 {
		t.Errorf("call argc = %d, %v", argc, err)
	}
	target, err := p.ReadU32(28)
	if err != nil || target != 99 {
		t.Errorf("for-each target = %d, %v", target, err)
	}
}

func TestPatchOverwritesInPlace(t *testing.T) {
	p := NewProgram()
	pos := p.Position() + 1
	p.EmitU32(OpJump, 0)
	sizeBefore := len(p.Code)

	if err := p.PatchU32(pos, 1234); err != nil {
		t.Fatalf("patch failed: %s", err)
	}
	if len(p.Code) != sizeBefore {
		t.Fatalf("patch changed code length: %d -> %d", sizeBefore, len(p.Code))
	}
	got, err := p.ReadU32(pos)
	if err != nil || got != 1234 {
		t.Errorf("patched operand = %d, %v", got, err)
	}
}

func TestPatchOutOfRange(t *testing.T) {
	p := NewProgram()
	p.EmitOp(OpPushNull)
	if err := p.PatchU32(0, 1); err == nil {
		t.Error("patch past the end should fail")
	}
	if err := p.PatchU32(-1, 1); err == nil {
		t.Error("negative patch position should fail")
	}
}

func TestConstantOutOfRange(t *testing.T) {
	p := NewProgram()
	p.AddConstant("only")
	if _, err := p.Constant(1); err == nil {
		t.Error("out-of-range constant index should fail")
	}
}
