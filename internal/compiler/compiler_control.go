package compiler

import (
	"github.com/glyphlang/glyph/internal/ast"
	"github.com/glyphlang/glyph/internal/bytecode"
)

// emitPlaceholder emits op with a zero offset operand and returns the
// operand's position for later patching.
func (c *Compiler) emitPlaceholder(op bytecode.Opcode) int {
	pos := c.prog.Position() + 1
	c.prog.EmitU32(op, 0)
	return pos
}

func (c *Compiler) patchHere(pos int) error {
	return c.prog.PatchU32(pos, uint32(c.prog.Position()))
}

// compileGuard jumps past the guarded body when the condition is null.
func (c *Compiler) compileGuard(node *ast.Guard) error {
	if err := c.compileNode(node.Condition); err != nil {
		return err
	}
	skip := c.emitPlaceholder(bytecode.OpJumpIfNull)
	if err := c.compileNode(node.Then); err != nil {
		return err
	}
	return c.patchHere(skip)
}

func (c *Compiler) compileIf(node *ast.If) error {
	if err := c.compileNode(node.Condition); err != nil {
		return err
	}
	falseTarget := c.emitPlaceholder(bytecode.OpJumpIfFalse)
	if err := c.compileNode(node.Then); err != nil {
		return err
	}
	if node.Else == nil {
		return c.patchHere(falseTarget)
	}
	skipElse := c.emitPlaceholder(bytecode.OpJump)
	if err := c.patchHere(falseTarget); err != nil {
		return err
	}
	if err := c.compileNode(node.Else); err != nil {
		return err
	}
	return c.patchHere(skipElse)
}

// compileLoop lowers a while-style loop. The loop-start slot and the
// condition exit both land in the loop context; the back edge targets the
// loop-start instruction so the condition is re-evaluated every iteration.
func (c *Compiler) compileLoop(node *ast.Loop) error {
	start := c.prog.Position()
	ctx := loopContext{exits: []int{c.emitPlaceholder(bytecode.OpLoopStart)}}
	c.loops = append(c.loops, ctx)

	if node.Condition != nil {
		if err := c.compileNode(node.Condition); err != nil {
			c.loops = c.loops[:len(c.loops)-1]
			return err
		}
		exit := c.emitPlaceholder(bytecode.OpJumpIfFalse)
		c.loops[len(c.loops)-1].exits = append(c.loops[len(c.loops)-1].exits, exit)
	}

	if err := c.compileNode(node.Body); err != nil {
		c.loops = c.loops[:len(c.loops)-1]
		return err
	}
	c.prog.EmitU32(bytecode.OpLoopEnd, uint32(start))

	ctx = c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, site := range ctx.exits {
		if err := c.patchHere(site); err != nil {
			return err
		}
	}
	return nil
}

// compileForEach emits the collection, then a for-each instruction carrying
// the binding name and the past-the-loop target. The back edge returns to
// the for-each instruction itself, which advances the iteration.
func (c *Compiler) compileForEach(node *ast.ForEach) error {
	if err := c.compileNode(node.Collection); err != nil {
		return err
	}
	nameIdx := c.prog.AddConstant(node.Variable)
	fePos := c.prog.Position()
	c.prog.EmitU32U32(bytecode.OpForEach, nameIdx, 0)
	if err := c.compileNode(node.Body); err != nil {
		return err
	}
	c.prog.EmitU32(bytecode.OpLoopEnd, uint32(fePos))
	return c.prog.PatchU32(fePos+5, uint32(c.prog.Position()))
}

// compileFunction jumps over the body, records the entry offset, and binds a
// function-reference value to the name.
func (c *Compiler) compileFunction(node *ast.Function) error {
	skip := c.emitPlaceholder(bytecode.OpJump)
	entry := c.prog.Position()
	c.functions[node.Name] = entry
	if err := c.compileNode(node.Body); err != nil {
		return err
	}
	c.prog.EmitOp(bytecode.OpReturn)
	if err := c.patchHere(skip); err != nil {
		return err
	}
	c.prog.EmitU32(bytecode.OpPushFunc, uint32(entry))
	c.prog.EmitU32(bytecode.OpStoreVar, c.prog.AddConstant(node.Name))
	return nil
}

func (c *Compiler) compileCall(node *ast.Call) error {
	if len(node.Args) > 255 {
		return &Error{Shape: "Call", Reason: "more than 255 arguments"}
	}
	for _, arg := range node.Args {
		if err := c.compileNode(arg); err != nil {
			return err
		}
	}
	c.prog.EmitU32U8(bytecode.OpCall, c.prog.AddConstant(node.Name), uint8(len(node.Args)))
	return nil
}

// compileTryRescue brackets the protected body with try markers. A rescue
// body is skipped on the success path; the try-start operand points at it so
// the VM can transfer control there when a catchable error fires.
func (c *Compiler) compileTryRescue(node *ast.TryRescue) error {
	rescueTarget := c.emitPlaceholder(bytecode.OpTryStart)
	if err := c.compileNode(node.Try); err != nil {
		return err
	}
	c.prog.EmitOp(bytecode.OpTryEnd)
	if node.Rescue == nil {
		return c.patchHere(rescueTarget)
	}
	skipRescue := c.emitPlaceholder(bytecode.OpJump)
	if err := c.patchHere(rescueTarget); err != nil {
		return err
	}
	if err := c.compileNode(node.Rescue); err != nil {
		return err
	}
	return c.patchHere(skipRescue)
}
