package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// Serialized program layout, all multi-byte fields big-endian:
//
//	magic      4 bytes  "GLYB"
//	version    1 byte   0x01
//	constants  u32 count, then per constant: u32 length + UTF-8 bytes
//	code       u32 length + raw instruction bytes
//
// The same byte order is used in-memory for operands, so serialization is a
// straight copy of Code.
var magic = [4]byte{'G', 'L', 'Y', 'B'}

// FormatVersion is the on-disk format revision. Readers reject anything
// else; there is no cross-version migration.
const FormatVersion byte = 0x01

// FormatError reports malformed serialized input: wrong magic, wrong
// version, invalid constant encoding, or an undefined opcode byte. I/O
// failures (including truncation) are reported as ordinary wrapped errors,
// not FormatErrors.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "bytecode format: " + e.Msg
}

// Serialize writes p in the on-disk format.
func Serialize(p *Program, w io.Writer) error {
	var buf bytes.Buffer
	buf.Write(magic[:])
	buf.WriteByte(FormatVersion)

	var scratch [4]byte
	binary.BigEndian.PutUint32(scratch[:], uint32(len(p.Constants)))
	buf.Write(scratch[:])
	for _, c := range p.Constants {
		binary.BigEndian.PutUint32(scratch[:], uint32(len(c)))
		buf.Write(scratch[:])
		buf.WriteString(c)
	}

	binary.BigEndian.PutUint32(scratch[:], uint32(len(p.Code)))
	buf.Write(scratch[:])
	buf.Write(p.Code)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write program: %w", err)
	}
	return nil
}

// Deserialize reads a program back. Magic and version must match exactly,
// every constant must be valid UTF-8, and every byte of the code section at
// an instruction boundary must decode to a defined opcode. Short reads
// surface as wrapped io errors.
func Deserialize(r io.Reader) (*Program, error) {
	var header [5]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(header[:4], magic[:]) {
		return nil, &FormatError{Msg: fmt.Sprintf("bad magic %q", header[:4])}
	}
	if header[4] != FormatVersion {
		return nil, &FormatError{Msg: fmt.Sprintf("unsupported version %d (want %d)", header[4], FormatVersion)}
	}

	count, err := readU32(r, "constant count")
	if err != nil {
		return nil, err
	}
	p := NewProgram()
	for i := uint32(0); i < count; i++ {
		length, err := readU32(r, "constant length")
		if err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("read constant %d: %w", i, err)
		}
		if !utf8.Valid(raw) {
			return nil, &FormatError{Msg: fmt.Sprintf("constant %d is not valid UTF-8", i)}
		}
		p.Constants = append(p.Constants, string(raw))
	}

	codeLen, err := readU32(r, "code length")
	if err != nil {
		return nil, err
	}
	p.Code = make([]byte, codeLen)
	if _, err := io.ReadFull(r, p.Code); err != nil {
		return nil, fmt.Errorf("read code: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func readU32(r io.Reader, what string) (uint32, error) {
	var scratch [4]byte
	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return 0, fmt.Errorf("read %s: %w", what, err)
	}
	return binary.BigEndian.Uint32(scratch[:]), nil
}

// validate walks the code section instruction by instruction, rejecting
// undefined opcodes and operands that run past the end of the stream.
func (p *Program) validate() error {
	for pos := 0; pos < len(p.Code); {
		op, err := Decode(p.Code[pos])
		if err != nil {
			return err
		}
		width := op.Operand().Width()
		if pos+1+width > len(p.Code) {
			return &FormatError{Msg: fmt.Sprintf("%s at offset %d: operand truncated", op.Name(), pos)}
		}
		pos += 1 + width
	}
	return nil
}
