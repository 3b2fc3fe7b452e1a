// Package compiler lowers syntax trees into bytecode programs. Lowering is a
// single tree walk: children first, then the parent's opcode, so every
// expression node nets exactly one value on the operand stack when executed.
package compiler

import (
	"fmt"

	"github.com/glyphlang/glyph/internal/ast"
	"github.com/glyphlang/glyph/internal/bytecode"
	"github.com/glyphlang/glyph/internal/config"
)

// Error reports a syntax tree node the compiler refuses: either a shape with
// no defined lowering or one deliberately unsupported by this execution
// engine. It is raised before any bytecode for the node is emitted.
type Error struct {
	Shape  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("compile %s: %s", e.Shape, e.Reason)
}

func unsupported(n ast.Node) *Error {
	return &Error{Shape: ast.KindName(n), Reason: "not supported by this execution engine"}
}

// loopContext records the unresolved exit patch sites of one loop being
// lowered. A loop can accumulate several exits (the loop-start slot plus a
// condition exit), all patched to the first instruction past the loop when
// lowering the node finishes. Contexts never outlive their node.
type loopContext struct {
	exits []int
}

// Compiler holds the program under construction.
type Compiler struct {
	prog      *bytecode.Program
	functions map[string]int
	loops     []loopContext
}

// NewCompiler returns a compiler with an empty program.
func NewCompiler() *Compiler {
	return &Compiler{
		prog:      bytecode.NewProgram(),
		functions: make(map[string]int),
	}
}

// Compile lowers the node sequence and returns the finished program,
// terminated with an end instruction. A compile error yields no program.
func Compile(nodes []ast.Node) (*bytecode.Program, error) {
	c := NewCompiler()
	for _, n := range nodes {
		if err := c.compileNode(n); err != nil {
			return nil, err
		}
	}
	c.prog.EmitOp(bytecode.OpEnd)
	return c.prog, nil
}

func (c *Compiler) compileNode(n ast.Node) error {
	switch node := n.(type) {
	case *ast.StringLiteral:
		c.prog.EmitU32(bytecode.OpPushString, c.prog.AddConstant(node.Value))
		return nil
	case *ast.NumberLiteral:
		c.prog.EmitF64(bytecode.OpPushNumber, node.Value)
		return nil
	case *ast.Variable:
		// The pipe value is already on the stack; referencing it emits
		// nothing so `value OP arg` and `value |> OP arg` compile the same.
		if node.Name == config.PipeVariable {
			return nil
		}
		c.prog.EmitU32(bytecode.OpLoadVar, c.prog.AddConstant(node.Name))
		return nil
	case *ast.Empty:
		c.prog.EmitOp(bytecode.OpPushNull)
		return nil
	case *ast.Sequence:
		for _, child := range node.Nodes {
			if err := c.compileNode(child); err != nil {
				return err
			}
		}
		return nil
	case *ast.Pipe:
		if err := c.compileNode(node.Source); err != nil {
			return err
		}
		return c.compileNode(node.Operation)
	case *ast.PipeInto:
		if err := c.compileNode(node.Value); err != nil {
			return err
		}
		c.prog.EmitOp(bytecode.OpDup)
		c.prog.EmitU32(bytecode.OpStoreVar, c.prog.AddConstant(node.Variable))
		return nil
	case *ast.Guard:
		return c.compileGuard(node)
	case *ast.Halt:
		if err := c.compileNode(node.Value); err != nil {
			return err
		}
		c.prog.EmitOp(bytecode.OpHalt)
		return nil
	case *ast.If:
		return c.compileIf(node)
	case *ast.Loop:
		return c.compileLoop(node)
	case *ast.ForEach:
		return c.compileForEach(node)
	case *ast.Function:
		return c.compileFunction(node)
	case *ast.Call:
		return c.compileCall(node)
	case *ast.TryRescue:
		return c.compileTryRescue(node)
	case *ast.Immutable:
		if err := c.compileNode(node.Value); err != nil {
			return err
		}
		c.prog.EmitU32(bytecode.OpStoreImmutable, c.prog.AddConstant(node.Name))
		return nil
	case *ast.Delta:
		if err := c.compileNode(node.Value); err != nil {
			return err
		}
		c.prog.EmitU32(bytecode.OpStoreVar, c.prog.AddConstant(node.Name))
		c.prog.EmitOp(bytecode.OpDelta)
		return nil
	case *ast.Import:
		c.prog.EmitU32(bytecode.OpImport, c.prog.AddConstant(node.Module))
		return nil
	case *ast.Test:
		c.prog.EmitU32(bytecode.OpTestStart, c.prog.AddConstant(node.Name))
		return c.compileNode(node.Body)
	case *ast.PropertyAccess:
		if err := c.compileNode(node.Object); err != nil {
			return err
		}
		c.prog.EmitU32(bytecode.OpPushString, c.prog.AddConstant(node.Property))
		c.prog.EmitOp(bytecode.OpPropertyAccess)
		return nil
	case *ast.ArrayLiteral:
		for _, el := range node.Elements {
			if err := c.compileNode(el); err != nil {
				return err
			}
		}
		c.prog.EmitU32(bytecode.OpMakeArray, uint32(len(node.Elements)))
		return nil
	case *ast.ObjectLiteral:
		for _, pair := range node.Pairs {
			c.prog.EmitU32(bytecode.OpPushString, c.prog.AddConstant(pair.Key))
			if err := c.compileNode(pair.Value); err != nil {
				return err
			}
		}
		c.prog.EmitU32(bytecode.OpMakeObject, uint32(len(node.Pairs)))
		return nil
	case *ast.Split:
		return c.compileSplit(node)
	case *ast.Join:
		return c.compileJoin(node)
	case *ast.StringConcat:
		return c.compileStringConcat(node)
	case *ast.Op:
		return c.compileOp(node)
	case *ast.Filter, *ast.Reduce, *ast.Retry, *ast.Async, *ast.Await,
		*ast.Thread, *ast.Lock, *ast.Mock, *ast.Benchmark,
		*ast.Length, *ast.Index:
		return unsupported(n)
	default:
		return &Error{Shape: ast.KindName(n), Reason: "no lowering defined"}
	}
}

// compileSplit divides a string by a delimiter. An Empty target means the
// piped value is already on the stack; a nil delimiter defaults to a space.
func (c *Compiler) compileSplit(node *ast.Split) error {
	if _, piped := node.Target.(*ast.Empty); !piped {
		if err := c.compileNode(node.Target); err != nil {
			return err
		}
	}
	if node.Delimiter == nil {
		c.prog.EmitU32(bytecode.OpPushString, c.prog.AddConstant(" "))
	} else if err := c.compileNode(node.Delimiter); err != nil {
		return err
	}
	c.prog.EmitOp(bytecode.OpSplit)
	return nil
}

func (c *Compiler) compileJoin(node *ast.Join) error {
	if _, piped := node.Elements.(*ast.Empty); !piped {
		if err := c.compileNode(node.Elements); err != nil {
			return err
		}
	}
	if node.Separator == nil {
		c.prog.EmitU32(bytecode.OpPushString, c.prog.AddConstant(""))
	} else if err := c.compileNode(node.Separator); err != nil {
		return err
	}
	c.prog.EmitOp(bytecode.OpJoin)
	return nil
}

// compileStringConcat lowers to a two-element array joined on the empty
// string, reusing the join opcode's stringification.
func (c *Compiler) compileStringConcat(node *ast.StringConcat) error {
	if err := c.compileNode(node.Left); err != nil {
		return err
	}
	if err := c.compileNode(node.Right); err != nil {
		return err
	}
	c.prog.EmitU32(bytecode.OpMakeArray, 2)
	c.prog.EmitU32(bytecode.OpPushString, c.prog.AddConstant(""))
	c.prog.EmitOp(bytecode.OpJoin)
	return nil
}
