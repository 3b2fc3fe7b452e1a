package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/glyphlang/glyph/internal/ast"
	"github.com/glyphlang/glyph/internal/bytecode"
	"github.com/glyphlang/glyph/internal/config"
)

func compileOne(t *testing.T, n ast.Node) *bytecode.Program {
	t.Helper()
	prog, err := Compile([]ast.Node{n})
	if err != nil {
		t.Fatalf("compilation error: %s", err)
	}
	return prog
}

func readTarget(t *testing.T, prog *bytecode.Program, pos int) int {
	t.Helper()
	v, err := prog.ReadU32(pos)
	if err != nil {
		t.Fatalf("read operand at %d: %s", pos, err)
	}
	return int(v)
}

func TestCompileOutputLiteral(t *testing.T) {
	prog := compileOne(t, &ast.Op{Kind: ast.OpOutput, Args: []ast.Node{
		&ast.StringLiteral{Value: "Hello"},
	}})

	if len(prog.Constants) != 1 || prog.Constants[0] != "Hello" {
		t.Errorf("constants = %v, want [Hello]", prog.Constants)
	}
	want := []byte{
		byte(bytecode.OpPushString), 0, 0, 0, 0,
		byte(bytecode.OpOutput),
		byte(bytecode.OpEnd),
	}
	if string(prog.Code) != string(want) {
		t.Errorf("code = %x, want %x", prog.Code, want)
	}
}

func TestCompileRepeatedLiteralsShareConstant(t *testing.T) {
	prog := compileOne(t, &ast.Sequence{Nodes: []ast.Node{
		&ast.StringLiteral{Value: "dup"},
		&ast.StringLiteral{Value: "dup"},
	}})
	if len(prog.Constants) != 1 {
		t.Errorf("pool = %v, want a single shared entry", prog.Constants)
	}
}

func TestCompilePipeVariableEmitsNothing(t *testing.T) {
	prog := compileOne(t, &ast.Variable{Name: config.PipeVariable})
	if len(prog.Code) != 1 || bytecode.Opcode(prog.Code[0]) != bytecode.OpEnd {
		t.Errorf("pipe variable emitted %x, want only END", prog.Code)
	}
}

func TestCompilePipeMatchesInlineForm(t *testing.T) {
	inline := compileOne(t, &ast.Op{Kind: ast.OpAdd, Args: []ast.Node{
		&ast.NumberLiteral{Value: 1},
		&ast.NumberLiteral{Value: 2},
	}})
	piped := compileOne(t, &ast.Pipe{
		Source: &ast.NumberLiteral{Value: 1},
		Operation: &ast.Op{Kind: ast.OpAdd, Args: []ast.Node{
			&ast.Variable{Name: config.PipeVariable},
			&ast.NumberLiteral{Value: 2},
		}},
	})
	if string(inline.Code) != string(piped.Code) {
		t.Errorf("pipe form compiled differently:\ninline %x\npiped  %x", inline.Code, piped.Code)
	}
}

func TestCompileIfElsePatchTargets(t *testing.T) {
	prog := compileOne(t, &ast.If{
		Condition: &ast.NumberLiteral{Value: 1},
		Then:      &ast.StringLiteral{Value: "A"},
		Else:      &ast.StringLiteral{Value: "B"},
	})

	// PUSH_NUMBER(9) JUMP_IF_FALSE(5) PUSH_STRING(5) JUMP(5) PUSH_STRING(5) END
	falseTarget := readTarget(t, prog, 10)
	skipTarget := readTarget(t, prog, 20)
	if falseTarget != 24 {
		t.Errorf("false target = %d, want start of else branch (24)", falseTarget)
	}
	if skipTarget != 29 {
		t.Errorf("skip target = %d, want past else branch (29)", skipTarget)
	}
}

func TestCompileIfWithoutElse(t *testing.T) {
	prog := compileOne(t, &ast.If{
		Condition: &ast.NumberLiteral{Value: 1},
		Then:      &ast.StringLiteral{Value: "A"},
	})
	falseTarget := readTarget(t, prog, 10)
	if falseTarget != 19 {
		t.Errorf("false target = %d, want past then branch (19)", falseTarget)
	}
}

func TestCompileLoopPatchesEveryExit(t *testing.T) {
	prog := compileOne(t, &ast.Loop{
		Condition: &ast.NumberLiteral{Value: 0},
		Body:      &ast.StringLiteral{Value: "x"},
	})

	// LOOP_START(5) PUSH_NUMBER(9) JUMP_IF_FALSE(5) PUSH_STRING(5) LOOP_END(5)
	pastLoop := 29
	if got := readTarget(t, prog, 1); got != pastLoop {
		t.Errorf("loop-start exit = %d, want %d", got, pastLoop)
	}
	if got := readTarget(t, prog, 15); got != pastLoop {
		t.Errorf("condition exit = %d, want %d", got, pastLoop)
	}
	if got := readTarget(t, prog, 25); got != 0 {
		t.Errorf("back edge = %d, want loop start 0", got)
	}
}

func TestCompileForEachLayout(t *testing.T) {
	prog := compileOne(t, &ast.ForEach{
		Variable:   "item",
		Collection: &ast.ArrayLiteral{Elements: []ast.Node{&ast.NumberLiteral{Value: 1}}},
		Body:       &ast.Variable{Name: "item"},
	})

	// PUSH_NUMBER(9) MAKE_ARRAY(5) FOR_EACH(9) LOAD_VAR(5) LOOP_END(5) END
	fePos := 14
	if op := bytecode.Opcode(prog.Code[fePos]); op != bytecode.OpForEach {
		t.Fatalf("opcode at %d = %s, want FOR_EACH", fePos, op.Name())
	}
	if got := readTarget(t, prog, fePos+5); got != 33 {
		t.Errorf("for-each end target = %d, want 33", got)
	}
	if got := readTarget(t, prog, 29); got != fePos {
		t.Errorf("back edge = %d, want the for-each instruction %d", got, fePos)
	}
}

func TestCompileFunctionDeclaration(t *testing.T) {
	prog := compileOne(t, &ast.Function{
		Name: "noop",
		Body: &ast.Empty{},
	})

	// JUMP(5) [entry: PUSH_NULL(1) RETURN(1)] PUSH_FUNC(5) STORE_VAR(5) END
	if got := readTarget(t, prog, 1); got != 7 {
		t.Errorf("jump over body = %d, want 7", got)
	}
	if op := bytecode.Opcode(prog.Code[7]); op != bytecode.OpPushFunc {
		t.Fatalf("opcode at 7 = %s, want PUSH_FUNC", op.Name())
	}
	if got := readTarget(t, prog, 8); got != 5 {
		t.Errorf("function entry = %d, want 5", got)
	}
}

func TestCompileTryRescueLayout(t *testing.T) {
	prog := compileOne(t, &ast.TryRescue{
		Try:    &ast.NumberLiteral{Value: 1},
		Rescue: &ast.StringLiteral{Value: "oops"},
	})

	// TRY_START(5) PUSH_NUMBER(9) TRY_END(1) JUMP(5) PUSH_STRING(5) END
	if got := readTarget(t, prog, 1); got != 20 {
		t.Errorf("rescue target = %d, want 20", got)
	}
	if got := readTarget(t, prog, 16); got != 25 {
		t.Errorf("skip-rescue target = %d, want 25", got)
	}
}

func TestCompileStringConcatLowersToJoin(t *testing.T) {
	prog := compileOne(t, &ast.StringConcat{
		Left:  &ast.StringLiteral{Value: "a"},
		Right: &ast.StringLiteral{Value: "b"},
	})
	tail := prog.Code[len(prog.Code)-2:]
	if bytecode.Opcode(tail[0]) != bytecode.OpJoin {
		t.Errorf("concat does not end in JOIN: %x", prog.Code)
	}
}

func TestCompileRejectsUnsupportedShapes(t *testing.T) {
	nodes := []ast.Node{
		&ast.Filter{Predicate: &ast.Empty{}},
		&ast.Reduce{Operation: &ast.Empty{}, Initial: &ast.Empty{}},
		&ast.Retry{Body: &ast.Empty{}},
		&ast.Async{Body: &ast.Empty{}},
		&ast.Await{Expression: &ast.Empty{}},
		&ast.Thread{Body: &ast.Empty{}},
		&ast.Lock{Body: &ast.Empty{}},
		&ast.Mock{Target: &ast.Empty{}},
		&ast.Benchmark{Body: &ast.Empty{}},
		&ast.Length{Value: &ast.Empty{}},
		&ast.Index{Target: &ast.Empty{}, Idx: &ast.Empty{}},
	}
	for _, n := range nodes {
		t.Run(ast.KindName(n), func(t *testing.T) {
			_, err := Compile([]ast.Node{n})
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("got %v, want *Error", err)
			}
			if cerr.Shape != ast.KindName(n) {
				t.Errorf("error names shape %q, want %q", cerr.Shape, ast.KindName(n))
			}
		})
	}
}

func TestCompileRejectsModulo(t *testing.T) {
	_, err := Compile([]ast.Node{&ast.Op{Kind: ast.OpModulo, Args: []ast.Node{
		&ast.NumberLiteral{Value: 5},
		&ast.NumberLiteral{Value: 2},
	}}})
	if err == nil || !strings.Contains(err.Error(), "Modulo") {
		t.Errorf("got %v, want an error naming Modulo", err)
	}
}

func TestCompileErrorYieldsNoProgram(t *testing.T) {
	prog, err := Compile([]ast.Node{
		&ast.StringLiteral{Value: "before"},
		&ast.Mock{Target: &ast.Empty{}},
	})
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if prog != nil {
		t.Error("failed compilation returned a program")
	}
}

func TestCompileCallArgumentLimit(t *testing.T) {
	args := make([]ast.Node, 256)
	for i := range args {
		args[i] = &ast.NumberLiteral{Value: float64(i)}
	}
	_, err := Compile([]ast.Node{&ast.Call{Name: "f", Args: args}})
	if err == nil {
		t.Error("256 arguments should not compile")
	}
}
