package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Disassemble renders the program as one instruction per line:
// offset, mnemonic, operands, and a comment resolving constant indices.
// Operand layouts come from the opcode table, so the disassembler can never
// disagree with the decoder about instruction widths.
func Disassemble(p *Program) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("; constants: %d, code: %d bytes\n", len(p.Constants), len(p.Code)))
	for pos := 0; pos < len(p.Code); {
		next, line := disasmInstruction(p, pos)
		sb.WriteString(line)
		sb.WriteByte('\n')
		if next <= pos {
			break
		}
		pos = next
	}
	return sb.String()
}

// Instruction renders the single instruction at pos and returns the offset
// of the next one. The VM's trace mode uses it per dispatch step.
func Instruction(p *Program, pos int) (int, string) {
	return disasmInstruction(p, pos)
}

// disasmInstruction renders the instruction at pos and returns the offset of
// the next one. Undefined bytes and truncated operands render as raw data so
// a damaged file can still be inspected.
func disasmInstruction(p *Program, pos int) (int, string) {
	op := Opcode(p.Code[pos])
	if !Defined(op) {
		return pos + 1, fmt.Sprintf("%04X  .byte 0x%02X", pos, byte(op))
	}
	layout := op.Operand()
	if pos+1+layout.Width() > len(p.Code) {
		return len(p.Code), fmt.Sprintf("%04X  %s <truncated operand>", pos, op.Name())
	}

	operands := p.Code[pos+1 : pos+1+layout.Width()]
	line := fmt.Sprintf("%04X  %s", pos, op.Name())
	switch layout {
	case OperandByte:
		line += fmt.Sprintf(" %d", operands[0])
	case OperandIndex:
		idx := binary.BigEndian.Uint32(operands)
		line += fmt.Sprintf(" %d%s", idx, constComment(p, idx))
	case OperandOffset:
		line += fmt.Sprintf(" -> %04X", binary.BigEndian.Uint32(operands))
	case OperandCount:
		line += fmt.Sprintf(" %d", binary.BigEndian.Uint32(operands))
	case OperandNumber:
		f := math.Float64frombits(binary.BigEndian.Uint64(operands))
		line += " " + strconv.FormatFloat(f, 'g', -1, 64)
	case OperandCall:
		idx := binary.BigEndian.Uint32(operands)
		line += fmt.Sprintf(" %d argc=%d%s", idx, operands[4], constComment(p, idx))
	case OperandIndexOffset:
		idx := binary.BigEndian.Uint32(operands)
		line += fmt.Sprintf(" %d -> %04X%s", idx, binary.BigEndian.Uint32(operands[4:]), constComment(p, idx))
	}
	return pos + 1 + layout.Width(), line
}

func constComment(p *Program, idx uint32) string {
	if int(idx) >= len(p.Constants) {
		return "  ; <bad index>"
	}
	return "  ; " + strconv.Quote(p.Constants[idx])
}
