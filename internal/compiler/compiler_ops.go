package compiler

import (
	"github.com/glyphlang/glyph/internal/ast"
	"github.com/glyphlang/glyph/internal/bytecode"
)

// opTable maps each domain operation tag to its opcode. Lowering is uniform:
// children in order, then the opcode. Tags absent from the table are
// unsupported and fail compilation.
var opTable = map[ast.OpKind]bytecode.Opcode{
	ast.OpInput:           bytecode.OpInput,
	ast.OpOutput:          bytecode.OpOutput,
	ast.OpJsonParse:       bytecode.OpJsonParse,
	ast.OpPersist:         bytecode.OpPersist,
	ast.OpQuery:           bytecode.OpQuery,
	ast.OpAdd:             bytecode.OpAdd,
	ast.OpSubtract:        bytecode.OpSub,
	ast.OpMultiply:        bytecode.OpMul,
	ast.OpDivide:          bytecode.OpDiv,
	ast.OpPower:           bytecode.OpPower,
	ast.OpRoot:            bytecode.OpRoot,
	ast.OpInfinity:        bytecode.OpInfinity,
	ast.OpEqual:           bytecode.OpEqual,
	ast.OpNotEqual:        bytecode.OpNotEqual,
	ast.OpLessThan:        bytecode.OpLessThan,
	ast.OpGreaterThan:     bytecode.OpGreaterThan,
	ast.OpLessEqual:       bytecode.OpLessEqual,
	ast.OpGreaterEqual:    bytecode.OpGreaterEqual,
	ast.OpApprox:          bytecode.OpApprox,
	ast.OpAnd:             bytecode.OpAnd,
	ast.OpOr:              bytecode.OpOr,
	ast.OpNot:             bytecode.OpNot,
	ast.OpHash:            bytecode.OpHash,
	ast.OpEncrypt:         bytecode.OpEncrypt,
	ast.OpDecrypt:         bytecode.OpDecrypt,
	ast.OpSign:            bytecode.OpSign,
	ast.OpVerifySignature: bytecode.OpVerifySignature,
	ast.OpDateTime:        bytecode.OpDateTime,
	ast.OpRandom:          bytecode.OpRandom,
	ast.OpLog:             bytecode.OpLog,
	ast.OpDebug:           bytecode.OpDebug,
	ast.OpAssert:          bytecode.OpAssert,
	ast.OpRegexMatch:      bytecode.OpRegexMatch,
	ast.OpAuth:            bytecode.OpAuth,
	ast.OpFileHandle:      bytecode.OpFileHandle,
	ast.OpReadContent:     bytecode.OpFileRead,
	ast.OpWriteContent:    bytecode.OpFileWrite,
	ast.OpAppendContent:   bytecode.OpFileAppend,
	ast.OpDirectory:       bytecode.OpDirectory,
	ast.OpPathResolve:     bytecode.OpPathResolve,
	ast.OpDeleteFile:      bytecode.OpDeleteFile,
	ast.OpSetPermission:   bytecode.OpSetPermission,
	ast.OpEnvVar:          bytecode.OpEnvVar,
	ast.OpProcessCreate:   bytecode.OpProcessCreate,
	ast.OpShellExec:       bytecode.OpShellExec,
	ast.OpMemoryAlloc:     bytecode.OpMemoryAlloc,
	ast.OpExitProgram:     bytecode.OpExitProgram,
	ast.OpSendSignal:      bytecode.OpSendSignal,
	ast.OpCreateSocket:    bytecode.OpCreateSocket,
	ast.OpListenPort:      bytecode.OpListenPort,
	ast.OpConnectRemote:   bytecode.OpConnectRemote,
	ast.OpPortNumber:      bytecode.OpPortNumber,
	ast.OpCreatePacket:    bytecode.OpCreatePacket,
	ast.OpHandshake:       bytecode.OpHandshake,
	ast.OpCreateStream:    bytecode.OpCreateStream,
	ast.OpCreateBuffer:    bytecode.OpCreateBuffer,
	ast.OpFlushBuffer:     bytecode.OpFlushBuffer,
	ast.OpEndOfFile:       bytecode.OpEndOfFile,
	ast.OpSkipBytes:       bytecode.OpSkipBytes,
	ast.OpEmit:            bytecode.OpEmit,
	ast.OpWatch:           bytecode.OpWatch,
	ast.OpHTTPGet:         bytecode.OpHTTPGet,
	ast.OpHTTPPost:        bytecode.OpHTTPPost,
	ast.OpHTTPPut:         bytecode.OpHTTPPut,
	ast.OpHTTPDelete:      bytecode.OpHTTPDelete,
	ast.OpHTTPPatch:       bytecode.OpHTTPPatch,
	ast.OpHTTPHead:        bytecode.OpHTTPHead,
	ast.OpHTTPOptions:     bytecode.OpHTTPOptions,
}

// compileOp lowers a domain operation: children in order, then one opcode.
// Modulo has no opcode and is rejected here with a named error.
func (c *Compiler) compileOp(node *ast.Op) error {
	op, ok := opTable[node.Kind]
	if !ok {
		return &Error{Shape: "Op(" + node.Kind.String() + ")", Reason: "not supported by this execution engine"}
	}
	for _, arg := range node.Args {
		if err := c.compileNode(arg); err != nil {
			return err
		}
	}
	c.prog.EmitOp(op)
	return nil
}
