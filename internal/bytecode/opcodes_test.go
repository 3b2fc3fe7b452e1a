package bytecode

import (
	"testing"
)

func TestOpcodeRoundTrip(t *testing.T) {
	for _, op := range Opcodes() {
		decoded, err := Decode(Encode(op))
		if err != nil {
			t.Fatalf("decode(encode(%s)) failed: %s", op.Name(), err)
		}
		if decoded != op {
			t.Errorf("decode(encode(%s)) = %s", op.Name(), decoded.Name())
		}
	}
}

func TestDecodeRejectsUnmappedBytes(t *testing.T) {
	for b := 0; b < 256; b++ {
		if Defined(Opcode(b)) {
			continue
		}
		_, err := Decode(byte(b))
		if err == nil {
			t.Fatalf("decode(0x%02X) should fail", b)
		}
		if _, ok := err.(*FormatError); !ok {
			t.Errorf("decode(0x%02X) error is not *FormatError. got=%T", b, err)
		}
	}
}

func TestOpcodeNamesAreUnique(t *testing.T) {
	seen := make(map[string]Opcode)
	for _, op := range Opcodes() {
		if prev, dup := seen[op.Name()]; dup {
			t.Errorf("mnemonic %q used by 0x%02X and 0x%02X", op.Name(), byte(prev), byte(op))
		}
		seen[op.Name()] = op
	}
}

func TestOperandWidths(t *testing.T) {
	tests := []struct {
		op    Opcode
		width int
	}{
		{OpPushNull, 0},
		{OpPushBool, 1},
		{OpPushNumber, 8},
		{OpPushString, 4},
		{OpJump, 4},
		{OpCall, 5},
		{OpForEach, 8},
		{OpRetry, 1},
		{OpMakeArray, 4},
		{OpEnd, 0},
	}
	for _, tt := range tests {
		if got := tt.op.Operand().Width(); got != tt.width {
			t.Errorf("%s operand width = %d, want %d", tt.op.Name(), got, tt.width)
		}
	}
}
