package bytecode

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, p *Program) *Program {
	t.Helper()
	var buf bytes.Buffer
	if err := Serialize(p, &buf); err != nil {
		t.Fatalf("serialize failed: %s", err)
	}
	out, err := Deserialize(&buf)
	if err != nil {
		t.Fatalf("deserialize failed: %s", err)
	}
	return out
}

func TestSerializeRoundTrip(t *testing.T) {
	p := NewProgram()
	p.AddConstant("greeting")
	p.AddConstant("héllo wörld")
	p.EmitU32(OpPushString, 1)
	p.EmitF64(OpPushNumber, 2.5)
	p.EmitOp(OpAdd)
	p.EmitOp(OpEnd)

	out := roundTrip(t, p)
	if len(out.Constants) != len(p.Constants) {
		t.Fatalf("constant count = %d, want %d", len(out.Constants), len(p.Constants))
	}
	for i := range p.Constants {
		if out.Constants[i] != p.Constants[i] {
			t.Errorf("constant %d = %q, want %q", i, out.Constants[i], p.Constants[i])
		}
	}
	if !bytes.Equal(out.Code, p.Code) {
		t.Errorf("code bytes differ: got %x, want %x", out.Code, p.Code)
	}
}

func TestSerializeRoundTripEmptyProgram(t *testing.T) {
	out := roundTrip(t, NewProgram())
	if len(out.Constants) != 0 || len(out.Code) != 0 {
		t.Errorf("empty program round trip produced %d constants, %d code bytes",
			len(out.Constants), len(out.Code))
	}
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	_, err := Deserialize(strings.NewReader("NOPE\x01\x00\x00\x00\x00\x00\x00\x00\x00"))
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("wrong magic: got %v, want *FormatError", err)
	}
}

func TestDeserializeRejectsBadVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := Serialize(NewProgram(), &buf); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	raw[4] = 0x7F
	_, err := Deserialize(bytes.NewReader(raw))
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("wrong version: got %v, want *FormatError", err)
	}
}

func TestDeserializeTruncatedIsIOError(t *testing.T) {
	p := NewProgram()
	p.AddConstant("payload")
	p.EmitOp(OpEnd)
	var buf bytes.Buffer
	if err := Serialize(p, &buf); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()

	for cut := 1; cut < len(raw); cut++ {
		_, err := Deserialize(bytes.NewReader(raw[:cut]))
		if err == nil {
			t.Fatalf("truncation at %d bytes accepted", cut)
		}
		var ferr *FormatError
		if errors.As(err, &ferr) {
			t.Fatalf("truncation at %d bytes reported as format error: %s", cut, err)
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			t.Fatalf("truncation at %d bytes: got %v, want an io error", cut, err)
		}
	}
}

func TestDeserializeRejectsInvalidUTF8Constant(t *testing.T) {
	p := NewProgram()
	p.AddConstant("ok")
	var buf bytes.Buffer
	if err := Serialize(p, &buf); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()
	// Header (5) + count (4) + length (4) puts the constant text at 13.
	raw[13] = 0xFF
	raw[14] = 0xFE
	_, err := Deserialize(bytes.NewReader(raw))
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("invalid UTF-8: got %v, want *FormatError", err)
	}
}

func TestDeserializeRejectsUndefinedOpcode(t *testing.T) {
	p := NewProgram()
	p.Code = []byte{0x0F} // unmapped byte
	var buf bytes.Buffer
	if err := Serialize(p, &buf); err != nil {
		t.Fatal(err)
	}
	_, err := Deserialize(&buf)
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("undefined opcode: got %v, want *FormatError", err)
	}
}

func TestDeserializeRejectsTruncatedOperand(t *testing.T) {
	p := NewProgram()
	p.Code = []byte{byte(OpJump), 0x00, 0x00} // jump needs 4 operand bytes
	var buf bytes.Buffer
	if err := Serialize(p, &buf); err != nil {
		t.Fatal(err)
	}
	_, err := Deserialize(&buf)
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("truncated operand: got %v, want *FormatError", err)
	}
}
