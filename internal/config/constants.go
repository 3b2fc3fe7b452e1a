package config

// SourceFileExt is the Glyph source file extension.
const SourceFileExt = ".gly"

// BytecodeFileExt is the serialized program file extension.
const BytecodeFileExt = ".glyb"

// PipeVariable is the reserved name for the value flowing through a pipe
// chain. A reference to it compiles to nothing: the value is already on the
// operand stack when the downstream operation runs.
const PipeVariable = "_pipe"

// DefaultMaxIterations bounds the VM dispatch loop. Exceeding it aborts
// execution with a runtime error instead of hanging on malformed bytecode.
const DefaultMaxIterations = 10000

// DefaultRetryAttempts is the attempt count encoded for a retry block when
// the source does not specify one.
const DefaultRetryAttempts = 3

// ApproxEpsilon is the tolerance of the approximate-equality operation.
const ApproxEpsilon = 1e-6

// ArgVariablePrefix is the prefix for positional argument bindings created
// by the call opcode: the first argument becomes "$1", the second "$2", ...
const ArgVariablePrefix = "$"
