package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Program is a compiled unit: a deduplicated string constant pool plus a
// flat instruction stream. Instructions reference constants by pool index
// and each other by absolute byte offset into Code.
type Program struct {
	Constants []string
	Code      []byte

	// constIndex maps constant text to its pool index so repeated strings
	// are stored once. It is rebuilt lazily after deserialization.
	constIndex map[string]uint32
}

// NewProgram returns an empty program ready for emission.
func NewProgram() *Program {
	return &Program{constIndex: make(map[string]uint32)}
}

// AddConstant interns s in the pool and returns its index. Adding the same
// string twice returns the same index.
func (p *Program) AddConstant(s string) uint32 {
	if p.constIndex == nil {
		p.constIndex = make(map[string]uint32, len(p.Constants))
		for i, c := range p.Constants {
			p.constIndex[c] = uint32(i)
		}
	}
	if idx, ok := p.constIndex[s]; ok {
		return idx
	}
	idx := uint32(len(p.Constants))
	p.Constants = append(p.Constants, s)
	p.constIndex[s] = idx
	return idx
}

// Constant returns the pool entry at idx, or an error for an out-of-range
// index.
func (p *Program) Constant(idx uint32) (string, error) {
	if int(idx) >= len(p.Constants) {
		return "", fmt.Errorf("constant index %d out of range (pool size %d)", idx, len(p.Constants))
	}
	return p.Constants[idx], nil
}

// Position returns the offset the next emitted byte will occupy.
func (p *Program) Position() int {
	return len(p.Code)
}

// EmitOp appends a bare instruction.
func (p *Program) EmitOp(op Opcode) {
	p.Code = append(p.Code, byte(op))
}

// EmitU8 appends an instruction with a 1-byte operand.
func (p *Program) EmitU8(op Opcode, v uint8) {
	p.Code = append(p.Code, byte(op), v)
}

// EmitU32 appends an instruction with a 4-byte big-endian operand.
func (p *Program) EmitU32(op Opcode, v uint32) {
	p.Code = append(p.Code, byte(op))
	p.Code = binary.BigEndian.AppendUint32(p.Code, v)
}

// EmitF64 appends an instruction with an 8-byte big-endian float operand.
func (p *Program) EmitF64(op Opcode, v float64) {
	p.Code = append(p.Code, byte(op))
	p.Code = binary.BigEndian.AppendUint64(p.Code, math.Float64bits(v))
}

// EmitU32U8 appends an instruction with a 4-byte operand followed by a
// 1-byte operand (the call layout).
func (p *Program) EmitU32U8(op Opcode, a uint32, b uint8) {
	p.Code = append(p.Code, byte(op))
	p.Code = binary.BigEndian.AppendUint32(p.Code, a)
	p.Code = append(p.Code, b)
}

// EmitU32U32 appends an instruction with two 4-byte operands (the for-each
// layout).
func (p *Program) EmitU32U32(op Opcode, a, b uint32) {
	p.Code = append(p.Code, byte(op))
	p.Code = binary.BigEndian.AppendUint32(p.Code, a)
	p.Code = binary.BigEndian.AppendUint32(p.Code, b)
}

// PatchU32 overwrites the 4 bytes at pos with v. Forward jumps are emitted
// with a zero placeholder and patched here once the target is known.
func (p *Program) PatchU32(pos int, v uint32) error {
	if pos < 0 || pos+4 > len(p.Code) {
		return fmt.Errorf("patch position %d out of range (code size %d)", pos, len(p.Code))
	}
	binary.BigEndian.PutUint32(p.Code[pos:], v)
	return nil
}

// ReadU8 reads the 1-byte operand at pos.
func (p *Program) ReadU8(pos int) (uint8, error) {
	if pos < 0 || pos >= len(p.Code) {
		return 0, fmt.Errorf("operand at %d out of range (code size %d)", pos, len(p.Code))
	}
	return p.Code[pos], nil
}

// ReadU32 reads the 4-byte big-endian operand at pos.
func (p *Program) ReadU32(pos int) (uint32, error) {
	if pos < 0 || pos+4 > len(p.Code) {
		return 0, fmt.Errorf("operand at %d out of range (code size %d)", pos, len(p.Code))
	}
	return binary.BigEndian.Uint32(p.Code[pos:]), nil
}

// ReadF64 reads the 8-byte big-endian float operand at pos.
func (p *Program) ReadF64(pos int) (float64, error) {
	if pos < 0 || pos+8 > len(p.Code) {
		return 0, fmt.Errorf("operand at %d out of range (code size %d)", pos, len(p.Code))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(p.Code[pos:])), nil
}
