// Package ast defines the syntax tree consumed by the bytecode compiler.
//
// The parser producing these nodes lives outside this module; the node set
// here is the compiler's input contract. Structural shapes (sequencing,
// control flow, bindings) get their own node types, while the long tail of
// leaf domain operations shares the Op node: an operation tag plus 0–3
// child expressions.
package ast

// Node is the base interface for all syntax tree nodes.
type Node interface {
	nodeKind() string
}

// StringLiteral is a quoted string.
type StringLiteral struct {
	Value string
}

// NumberLiteral is a 64-bit float literal.
type NumberLiteral struct {
	Value float64
}

// Variable is a reference to a named binding. The reserved pipe name
// (config.PipeVariable) refers to the value already on the operand stack.
type Variable struct {
	Name string
}

// Empty is the absent expression. It lowers to a null push.
type Empty struct{}

// Sequence is an ordered list of nodes executed left to right.
type Sequence struct {
	Nodes []Node
}

// Pipe feeds the value of Source into Operation. The operation refers to the
// piped value through the reserved pipe variable.
type Pipe struct {
	Source    Node
	Operation Node
}

// PipeInto evaluates Value and binds it to Variable, keeping the value on
// the stack for further chaining.
type PipeInto struct {
	Value    Node
	Variable string
}

// Guard jumps past Then when the value of Condition is null.
type Guard struct {
	Condition Node
	Then      Node
}

// Halt aborts execution, carrying the value of its operand to the caller.
type Halt struct {
	Value Node
}

// If is a conditional with an optional else branch.
type If struct {
	Condition Node
	Then      Node
	Else      Node // nil when absent
}

// Loop repeats Body while Condition is truthy. A nil Condition loops until
// the VM's iteration ceiling aborts execution.
type Loop struct {
	Condition Node // nil for an unconditional loop
	Body      Node
}

// ForEach iterates a collection, binding each element to Variable.
type ForEach struct {
	Variable   string
	Collection Node
	Body       Node
}

// Function declares a named function. Arguments are positional and reach the
// body as $1..$N bindings.
type Function struct {
	Name string
	Body Node
}

// Call invokes a declared function by name. Arguments are positional and
// reach the body as $1..$N bindings.
type Call struct {
	Name string
	Args []Node
}

// TryRescue runs Try; a runtime error inside it transfers control to Rescue
// with the error message on the stack.
type TryRescue struct {
	Try    Node
	Rescue Node // nil when absent
}

// Retry re-runs Body up to MaxAttempts times on failure.
type Retry struct {
	MaxAttempts int // 0 means the default attempt count
	Body        Node
}

// Filter applies a predicate to the piped collection.
type Filter struct {
	Predicate Node
}

// Reduce folds the piped collection with Operation starting from Initial.
type Reduce struct {
	Operation Node
	Initial   Node
}

// Async marks Body for asynchronous execution.
type Async struct {
	Body Node
}

// Await waits for the value of an asynchronous expression.
type Await struct {
	Expression Node
}

// Thread runs Body on its own thread of execution.
type Thread struct {
	Body Node
}

// Lock runs Body under a mutual-exclusion lock.
type Lock struct {
	Body Node
}

// Mock substitutes Target during tests.
type Mock struct {
	Target Node
}

// Benchmark measures the execution of Body.
type Benchmark struct {
	Body Node
}

// Test names a test block.
type Test struct {
	Name string
	Body Node
}

// Immutable binds Value to Name and forbids later stores to it.
type Immutable struct {
	Name  string
	Value Node
}

// Delta stores Value under Name and emits the delta marker.
type Delta struct {
	Name  string
	Value Node
}

// Import loads a named module.
type Import struct {
	Module string
}

// PropertyAccess reads a named property from the value of Object.
type PropertyAccess struct {
	Object   Node
	Property string
}

// ArrayLiteral builds an array from its element expressions.
type ArrayLiteral struct {
	Elements []Node
}

// Pair is one key/value entry of an object literal.
type Pair struct {
	Key   string
	Value Node
}

// ObjectLiteral builds a string-keyed map from its pairs.
type ObjectLiteral struct {
	Pairs []Pair
}

// Split divides Target by Delimiter. An Empty target means the piped value
// is already on the stack; a nil delimiter means a single space.
type Split struct {
	Target    Node
	Delimiter Node // nil for the default delimiter
}

// Join concatenates the elements of a collection with Separator. An Empty
// elements node means the piped value; a nil separator means "".
type Join struct {
	Elements  Node
	Separator Node // nil for the default separator
}

// StringConcat concatenates the string forms of two values.
type StringConcat struct {
	Left  Node
	Right Node
}

// Length yields the element count of a collection or string.
type Length struct {
	Value Node
}

// Index reads one element of a collection.
type Index struct {
	Target Node
	Idx    Node
}

// OpKind tags a domain operation.
type OpKind int

// Domain operation tags. Each maps to exactly one opcode; the compiler
// lowers the children in order and emits that opcode.
const (
	OpInput OpKind = iota
	OpOutput
	OpJsonParse
	OpPersist
	OpQuery
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpPower
	OpRoot
	OpInfinity
	OpEqual
	OpNotEqual
	OpLessThan
	OpGreaterThan
	OpLessEqual
	OpGreaterEqual
	OpApprox
	OpAnd
	OpOr
	OpNot
	OpHash
	OpEncrypt
	OpDecrypt
	OpSign
	OpVerifySignature
	OpDateTime
	OpRandom
	OpLog
	OpDebug
	OpAssert
	OpRegexMatch
	OpAuth
	OpFileHandle
	OpReadContent
	OpWriteContent
	OpAppendContent
	OpDirectory
	OpPathResolve
	OpDeleteFile
	OpSetPermission
	OpEnvVar
	OpProcessCreate
	OpShellExec
	OpMemoryAlloc
	OpExitProgram
	OpSendSignal
	OpCreateSocket
	OpListenPort
	OpConnectRemote
	OpPortNumber
	OpCreatePacket
	OpHandshake
	OpCreateStream
	OpCreateBuffer
	OpFlushBuffer
	OpEndOfFile
	OpSkipBytes
	OpEmit
	OpWatch
	OpHTTPGet
	OpHTTPPost
	OpHTTPPut
	OpHTTPDelete
	OpHTTPPatch
	OpHTTPHead
	OpHTTPOptions
)

// Op is a domain operation: a tag plus its child expressions. Optional
// arguments (e.g. HTTP headers) are passed as Empty nodes.
type Op struct {
	Kind OpKind
	Args []Node
}

var opKindNames = map[OpKind]string{
	OpInput:           "Input",
	OpOutput:          "Output",
	OpJsonParse:       "JsonParse",
	OpPersist:         "Persist",
	OpQuery:           "Query",
	OpAdd:             "Add",
	OpSubtract:        "Subtract",
	OpMultiply:        "Multiply",
	OpDivide:          "Divide",
	OpModulo:          "Modulo",
	OpPower:           "Power",
	OpRoot:            "Root",
	OpInfinity:        "Infinity",
	OpEqual:           "Equal",
	OpNotEqual:        "NotEqual",
	OpLessThan:        "LessThan",
	OpGreaterThan:     "GreaterThan",
	OpLessEqual:       "LessEqual",
	OpGreaterEqual:    "GreaterEqual",
	OpApprox:          "Approx",
	OpAnd:             "And",
	OpOr:              "Or",
	OpNot:             "Not",
	OpHash:            "Hash",
	OpEncrypt:         "Encrypt",
	OpDecrypt:         "Decrypt",
	OpSign:            "Sign",
	OpVerifySignature: "VerifySignature",
	OpDateTime:        "DateTime",
	OpRandom:          "Random",
	OpLog:             "Log",
	OpDebug:           "Debug",
	OpAssert:          "Assert",
	OpRegexMatch:      "RegexMatch",
	OpAuth:            "Auth",
	OpFileHandle:      "FileHandle",
	OpReadContent:     "ReadContent",
	OpWriteContent:    "WriteContent",
	OpAppendContent:   "AppendContent",
	OpDirectory:       "Directory",
	OpPathResolve:     "PathResolve",
	OpDeleteFile:      "DeleteFile",
	OpSetPermission:   "SetPermission",
	OpEnvVar:          "EnvVar",
	OpProcessCreate:   "ProcessCreate",
	OpShellExec:       "ShellExec",
	OpMemoryAlloc:     "MemoryAlloc",
	OpExitProgram:     "ExitProgram",
	OpSendSignal:      "SendSignal",
	OpCreateSocket:    "CreateSocket",
	OpListenPort:      "ListenPort",
	OpConnectRemote:   "ConnectRemote",
	OpPortNumber:      "PortNumber",
	OpCreatePacket:    "CreatePacket",
	OpHandshake:       "Handshake",
	OpCreateStream:    "CreateStream",
	OpCreateBuffer:    "CreateBuffer",
	OpFlushBuffer:     "FlushBuffer",
	OpEndOfFile:       "EndOfFile",
	OpSkipBytes:       "SkipBytes",
	OpEmit:            "Emit",
	OpWatch:           "Watch",
	OpHTTPGet:         "HttpGet",
	OpHTTPPost:        "HttpPost",
	OpHTTPPut:         "HttpPut",
	OpHTTPDelete:      "HttpDelete",
	OpHTTPPatch:       "HttpPatch",
	OpHTTPHead:        "HttpHead",
	OpHTTPOptions:     "HttpOptions",
}

// String returns the operation tag's name for diagnostics.
func (k OpKind) String() string {
	if name, ok := opKindNames[k]; ok {
		return name
	}
	return "UnknownOp"
}

func (*StringLiteral) nodeKind() string  { return "StringLiteral" }
func (*NumberLiteral) nodeKind() string  { return "NumberLiteral" }
func (*Variable) nodeKind() string       { return "Variable" }
func (*Empty) nodeKind() string          { return "Empty" }
func (*Sequence) nodeKind() string       { return "Sequence" }
func (*Pipe) nodeKind() string           { return "Pipe" }
func (*PipeInto) nodeKind() string       { return "PipeInto" }
func (*Guard) nodeKind() string          { return "Guard" }
func (*Halt) nodeKind() string           { return "Halt" }
func (*If) nodeKind() string             { return "If" }
func (*Loop) nodeKind() string           { return "Loop" }
func (*ForEach) nodeKind() string        { return "ForEach" }
func (*Function) nodeKind() string       { return "Function" }
func (*Call) nodeKind() string           { return "Call" }
func (*TryRescue) nodeKind() string      { return "TryRescue" }
func (*Retry) nodeKind() string          { return "Retry" }
func (*Filter) nodeKind() string         { return "Filter" }
func (*Reduce) nodeKind() string         { return "Reduce" }
func (*Async) nodeKind() string          { return "Async" }
func (*Await) nodeKind() string          { return "Await" }
func (*Thread) nodeKind() string         { return "Thread" }
func (*Lock) nodeKind() string           { return "Lock" }
func (*Mock) nodeKind() string           { return "Mock" }
func (*Benchmark) nodeKind() string      { return "Benchmark" }
func (*Test) nodeKind() string           { return "Test" }
func (*Immutable) nodeKind() string      { return "Immutable" }
func (*Delta) nodeKind() string          { return "Delta" }
func (*Import) nodeKind() string         { return "Import" }
func (*PropertyAccess) nodeKind() string { return "PropertyAccess" }
func (*ArrayLiteral) nodeKind() string   { return "ArrayLiteral" }
func (*ObjectLiteral) nodeKind() string  { return "ObjectLiteral" }
func (*Split) nodeKind() string          { return "Split" }
func (*Join) nodeKind() string           { return "Join" }
func (*StringConcat) nodeKind() string   { return "StringConcat" }
func (*Length) nodeKind() string         { return "Length" }
func (*Index) nodeKind() string          { return "Index" }
func (*Op) nodeKind() string             { return "Op" }

// KindName returns the node's shape name for compiler diagnostics.
func KindName(n Node) string {
	if n == nil {
		return "nil"
	}
	return n.nodeKind()
}
