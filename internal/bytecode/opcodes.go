// Package bytecode defines the Glyph instruction set, the Program container
// with its deduplicated constant pool, and the serialized file format.
package bytecode

import (
	"fmt"
	"sort"
)

// Opcode is a single VM instruction kind. Its numeric value is its byte
// encoding, so Encode is the identity on defined opcodes and Decode is a
// membership check against the opcode table below.
type Opcode byte

// Stack operations (0x0x)
const (
	OpPushNull   Opcode = 0x00
	OpPushBool   Opcode = 0x01 // 1-byte operand: 0=false, 1=true
	OpPushNumber Opcode = 0x02 // 8-byte operand: big-endian float64
	OpPushString Opcode = 0x03 // 4-byte operand: constant pool index
	OpPop        Opcode = 0x04
	OpDup        Opcode = 0x05
	OpPushFunc   Opcode = 0x06 // 4-byte operand: absolute entry offset
)

// Variable operations (0x1x); operand is a 4-byte name index
const (
	OpLoadVar        Opcode = 0x10
	OpStoreVar       Opcode = 0x11
	OpStoreImmutable Opcode = 0x12
)

// Arithmetic (0x2x)
const (
	OpAdd      Opcode = 0x20
	OpSub      Opcode = 0x21
	OpMul      Opcode = 0x22
	OpDiv      Opcode = 0x23
	OpPower    Opcode = 0x24
	OpRoot     Opcode = 0x25
	OpInfinity Opcode = 0x26
)

// Comparison (0x3x)
const (
	OpEqual          Opcode = 0x30
	OpNotEqual       Opcode = 0x31
	OpLessThan       Opcode = 0x32
	OpGreaterThan    Opcode = 0x33
	OpApprox         Opcode = 0x34
	OpPropertyAccess Opcode = 0x35
	OpGreaterEqual   Opcode = 0x36
	OpLessEqual      Opcode = 0x37
)

// Logic (0x4x)
const (
	OpAnd Opcode = 0x40
	OpOr  Opcode = 0x41
	OpNot Opcode = 0x42
)

// I/O and HTTP (0x5x)
const (
	OpInput       Opcode = 0x50
	OpOutput      Opcode = 0x51
	OpHTTPGet     Opcode = 0x52
	OpHTTPPost    Opcode = 0x53
	OpHTTPPut     Opcode = 0x54
	OpHTTPDelete  Opcode = 0x55
	OpHTTPPatch   Opcode = 0x56
	OpHTTPHead    Opcode = 0x57
	OpHTTPOptions Opcode = 0x58
)

// Data and networking (0x6x)
const (
	OpJsonParse     Opcode = 0x60
	OpPersist       Opcode = 0x61
	OpQuery         Opcode = 0x62
	OpCreateSocket  Opcode = 0x63
	OpListenPort    Opcode = 0x64
	OpConnectRemote Opcode = 0x65
	OpPortNumber    Opcode = 0x66
	OpCreatePacket  Opcode = 0x67
	OpHandshake     Opcode = 0x68
	OpRegexMatch    Opcode = 0x69
	OpAuth          Opcode = 0x6A
)

// Control flow (0x7x); jump operands are 4-byte absolute offsets
const (
	OpJump        Opcode = 0x70
	OpJumpIfFalse Opcode = 0x71
	OpJumpIfNull  Opcode = 0x72
	OpCall        Opcode = 0x73 // 4-byte function-name index + 1-byte argc
	OpReturn      Opcode = 0x74
	OpHalt        Opcode = 0x75
)

// Collections, streams and buffers (0x8x)
const (
	OpMakeArray    Opcode = 0x80 // 4-byte element count
	OpMakeObject   Opcode = 0x81 // 4-byte key/value pair count
	OpCreateStream Opcode = 0x82
	OpCreateBuffer Opcode = 0x83
	OpFlushBuffer  Opcode = 0x84
	OpEndOfFile    Opcode = 0x85
	OpSkipBytes    Opcode = 0x86
)

// Loop markers (0x9x)
const (
	OpLoopStart Opcode = 0x90 // 4-byte past-the-loop offset
	OpLoopEnd   Opcode = 0x91 // 4-byte back-edge offset
)

// Higher-order, crypto, exception regions (0xAx)
const (
	OpForEach         Opcode = 0xA0 // 4-byte name index + 4-byte past-the-loop offset
	OpFilter          Opcode = 0xA1
	OpReduce          Opcode = 0xA2
	OpSplit           Opcode = 0xA3
	OpJoin            Opcode = 0xA4
	OpRegex           Opcode = 0xA5
	OpHash            Opcode = 0xA6
	OpEncrypt         Opcode = 0xA7
	OpDecrypt         Opcode = 0xA8
	OpTryStart        Opcode = 0xA9 // 4-byte rescue-target offset
	OpTryEnd          Opcode = 0xAA
	OpRetry           Opcode = 0xAB // 1-byte attempt count
	OpSign            Opcode = 0xAC
	OpVerifySignature Opcode = 0xAD
)

// Async and concurrency (0xBx)
const (
	OpAsync  Opcode = 0xB0
	OpAwait  Opcode = 0xB1
	OpThread Opcode = 0xB2
	OpLock   Opcode = 0xB3
	OpEmit   Opcode = 0xB4
	OpWatch  Opcode = 0xB5
)

// Time and random (0xCx)
const (
	OpDateTime Opcode = 0xC0
	OpRandom   Opcode = 0xC1
	OpDelta    Opcode = 0xC2
)

// System and process (0xDx)
const (
	OpImport        Opcode = 0xD0 // 4-byte module-name index
	OpLog           Opcode = 0xD1
	OpDebug         Opcode = 0xD2
	OpEnvVar        Opcode = 0xD3
	OpProcessCreate Opcode = 0xD4
	OpShellExec     Opcode = 0xD5
	OpMemoryAlloc   Opcode = 0xD6
	OpExitProgram   Opcode = 0xD7
	OpSendSignal    Opcode = 0xD8
)

// Testing (0xEx)
const (
	OpTestStart      Opcode = 0xE0 // 4-byte test-name index
	OpAssert         Opcode = 0xE1
	OpMock           Opcode = 0xE2 // 4-byte target index
	OpBenchmarkStart Opcode = 0xE3
	OpBenchmarkEnd   Opcode = 0xE4
)

// Filesystem (0xFx)
const (
	OpFileHandle    Opcode = 0xF0
	OpFileRead      Opcode = 0xF1
	OpFileWrite     Opcode = 0xF2
	OpFileAppend    Opcode = 0xF3
	OpDirectory     Opcode = 0xF4
	OpPathResolve   Opcode = 0xF5
	OpDeleteFile    Opcode = 0xF6
	OpSetPermission Opcode = 0xF7
)

// OpEnd terminates execution.
const OpEnd Opcode = 0xFF

// OperandLayout describes the fixed-width operand bytes that follow an
// opcode. Fixed widths are what make in-place patching possible: a
// variable-width encoding could not be overwritten without shifting every
// later offset.
type OperandLayout uint8

const (
	OperandNone        OperandLayout = iota
	OperandByte                      // 1 byte
	OperandIndex                     // 4-byte constant pool index
	OperandOffset                    // 4-byte absolute code offset
	OperandCount                     // 4-byte element/pair count
	OperandNumber                    // 8-byte big-endian float64
	OperandCall                      // 4-byte name index + 1-byte argc
	OperandIndexOffset               // 4-byte name index + 4-byte code offset
)

// Width returns the operand size in bytes.
func (l OperandLayout) Width() int {
	switch l {
	case OperandByte:
		return 1
	case OperandIndex, OperandOffset, OperandCount:
		return 4
	case OperandCall:
		return 5
	case OperandNumber, OperandIndexOffset:
		return 8
	default:
		return 0
	}
}

// opInfo is one row of the instruction table.
type opInfo struct {
	Name    string
	Operand OperandLayout
}

// opcodeTable is the single source of truth for the instruction set. Decode
// checks membership here, the disassembler takes operand layouts from here,
// and the round-trip tests iterate it. There is deliberately no second,
// hand-mirrored mapping to drift out of sync.
var opcodeTable = map[Opcode]opInfo{
	OpPushNull:   {"PUSH_NULL", OperandNone},
	OpPushBool:   {"PUSH_BOOL", OperandByte},
	OpPushNumber: {"PUSH_NUMBER", OperandNumber},
	OpPushString: {"PUSH_STRING", OperandIndex},
	OpPop:        {"POP", OperandNone},
	OpDup:        {"DUP", OperandNone},
	OpPushFunc:   {"PUSH_FUNC", OperandOffset},

	OpLoadVar:        {"LOAD_VAR", OperandIndex},
	OpStoreVar:       {"STORE_VAR", OperandIndex},
	OpStoreImmutable: {"STORE_IMMUTABLE", OperandIndex},

	OpAdd:      {"ADD", OperandNone},
	OpSub:      {"SUB", OperandNone},
	OpMul:      {"MUL", OperandNone},
	OpDiv:      {"DIV", OperandNone},
	OpPower:    {"POWER", OperandNone},
	OpRoot:     {"ROOT", OperandNone},
	OpInfinity: {"INFINITY", OperandNone},

	OpEqual:          {"EQUAL", OperandNone},
	OpNotEqual:       {"NOT_EQUAL", OperandNone},
	OpLessThan:       {"LESS_THAN", OperandNone},
	OpGreaterThan:    {"GREATER_THAN", OperandNone},
	OpApprox:         {"APPROX", OperandNone},
	OpPropertyAccess: {"PROPERTY_ACCESS", OperandNone},
	OpGreaterEqual:   {"GREATER_EQUAL", OperandNone},
	OpLessEqual:      {"LESS_EQUAL", OperandNone},

	OpAnd: {"AND", OperandNone},
	OpOr:  {"OR", OperandNone},
	OpNot: {"NOT", OperandNone},

	OpInput:       {"INPUT", OperandNone},
	OpOutput:      {"OUTPUT", OperandNone},
	OpHTTPGet:     {"HTTP_GET", OperandNone},
	OpHTTPPost:    {"HTTP_POST", OperandNone},
	OpHTTPPut:     {"HTTP_PUT", OperandNone},
	OpHTTPDelete:  {"HTTP_DELETE", OperandNone},
	OpHTTPPatch:   {"HTTP_PATCH", OperandNone},
	OpHTTPHead:    {"HTTP_HEAD", OperandNone},
	OpHTTPOptions: {"HTTP_OPTIONS", OperandNone},

	OpJsonParse:     {"JSON_PARSE", OperandNone},
	OpPersist:       {"PERSIST", OperandNone},
	OpQuery:         {"QUERY", OperandNone},
	OpCreateSocket:  {"CREATE_SOCKET", OperandNone},
	OpListenPort:    {"LISTEN_PORT", OperandNone},
	OpConnectRemote: {"CONNECT_REMOTE", OperandNone},
	OpPortNumber:    {"PORT_NUMBER", OperandNone},
	OpCreatePacket:  {"CREATE_PACKET", OperandNone},
	OpHandshake:     {"HANDSHAKE", OperandNone},
	OpRegexMatch:    {"REGEX_MATCH", OperandNone},
	OpAuth:          {"AUTH", OperandNone},

	OpJump:        {"JUMP", OperandOffset},
	OpJumpIfFalse: {"JUMP_IF_FALSE", OperandOffset},
	OpJumpIfNull:  {"JUMP_IF_NULL", OperandOffset},
	OpCall:        {"CALL", OperandCall},
	OpReturn:      {"RETURN", OperandNone},
	OpHalt:        {"HALT", OperandNone},

	OpMakeArray:    {"MAKE_ARRAY", OperandCount},
	OpMakeObject:   {"MAKE_OBJECT", OperandCount},
	OpCreateStream: {"CREATE_STREAM", OperandNone},
	OpCreateBuffer: {"CREATE_BUFFER", OperandNone},
	OpFlushBuffer:  {"FLUSH_BUFFER", OperandNone},
	OpEndOfFile:    {"END_OF_FILE", OperandNone},
	OpSkipBytes:    {"SKIP_BYTES", OperandNone},

	OpLoopStart: {"LOOP_START", OperandOffset},
	OpLoopEnd:   {"LOOP_END", OperandOffset},

	OpForEach:         {"FOR_EACH", OperandIndexOffset},
	OpFilter:          {"FILTER", OperandNone},
	OpReduce:          {"REDUCE", OperandNone},
	OpSplit:           {"SPLIT", OperandNone},
	OpJoin:            {"JOIN", OperandNone},
	OpRegex:           {"REGEX", OperandNone},
	OpHash:            {"HASH", OperandNone},
	OpEncrypt:         {"ENCRYPT", OperandNone},
	OpDecrypt:         {"DECRYPT", OperandNone},
	OpTryStart:        {"TRY_START", OperandOffset},
	OpTryEnd:          {"TRY_END", OperandNone},
	OpRetry:           {"RETRY", OperandByte},
	OpSign:            {"SIGN", OperandNone},
	OpVerifySignature: {"VERIFY_SIGNATURE", OperandNone},

	OpAsync:  {"ASYNC", OperandNone},
	OpAwait:  {"AWAIT", OperandNone},
	OpThread: {"THREAD", OperandNone},
	OpLock:   {"LOCK", OperandNone},
	OpEmit:   {"EMIT", OperandNone},
	OpWatch:  {"WATCH", OperandNone},

	OpDateTime: {"DATE_TIME", OperandNone},
	OpRandom:   {"RANDOM", OperandNone},
	OpDelta:    {"DELTA", OperandNone},

	OpImport:        {"IMPORT", OperandIndex},
	OpLog:           {"LOG", OperandNone},
	OpDebug:         {"DEBUG", OperandNone},
	OpEnvVar:        {"ENV_VAR", OperandNone},
	OpProcessCreate: {"PROCESS_CREATE", OperandNone},
	OpShellExec:     {"SHELL_EXEC", OperandNone},
	OpMemoryAlloc:   {"MEMORY_ALLOC", OperandNone},
	OpExitProgram:   {"EXIT_PROGRAM", OperandNone},
	OpSendSignal:    {"SEND_SIGNAL", OperandNone},

	OpTestStart:      {"TEST_START", OperandIndex},
	OpAssert:         {"ASSERT", OperandNone},
	OpMock:           {"MOCK", OperandIndex},
	OpBenchmarkStart: {"BENCHMARK_START", OperandNone},
	OpBenchmarkEnd:   {"BENCHMARK_END", OperandNone},

	OpFileHandle:    {"FILE_HANDLE", OperandNone},
	OpFileRead:      {"FILE_READ", OperandNone},
	OpFileWrite:     {"FILE_WRITE", OperandNone},
	OpFileAppend:    {"FILE_APPEND", OperandNone},
	OpDirectory:     {"DIRECTORY", OperandNone},
	OpPathResolve:   {"PATH_RESOLVE", OperandNone},
	OpDeleteFile:    {"DELETE_FILE", OperandNone},
	OpSetPermission: {"SET_PERMISSION", OperandNone},

	OpEnd: {"END", OperandNone},
}

// Encode returns the opcode's byte encoding.
func Encode(op Opcode) byte {
	return byte(op)
}

// Decode maps a byte back to its opcode. Bytes outside the defined set fail
// with a *FormatError; they are never substituted with a different opcode.
func Decode(b byte) (Opcode, error) {
	op := Opcode(b)
	if _, ok := opcodeTable[op]; !ok {
		return 0, &FormatError{Msg: fmt.Sprintf("unknown opcode 0x%02X", b)}
	}
	return op, nil
}

// Defined reports whether the byte value maps to an opcode.
func Defined(op Opcode) bool {
	_, ok := opcodeTable[op]
	return ok
}

// Name returns the opcode's mnemonic, or a hex placeholder for unmapped
// bytes.
func (op Opcode) Name() string {
	if info, ok := opcodeTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN_0x%02X", byte(op))
}

// Operand returns the opcode's operand layout.
func (op Opcode) Operand() OperandLayout {
	return opcodeTable[op].Operand
}

// Opcodes returns every defined opcode, in ascending byte order.
func Opcodes() []Opcode {
	out := make([]Opcode, 0, len(opcodeTable))
	for op := range opcodeTable {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
