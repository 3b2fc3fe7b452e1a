package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/glyphlang/glyph/internal/bytecode"
	"github.com/glyphlang/glyph/internal/config"
	"github.com/glyphlang/glyph/internal/vm"
)

// Version can be overridden at build time:
// -ldflags "-X main.Version=x.y.z"
var Version = "0.1.0"

const optionsFile = "glyph.yaml"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: glyph <command> [arguments]

Commands:
  run <file%s>     execute a compiled program and print its result
  disasm <file%s>  print a program's disassembly
  version           print the version
`, config.BytecodeFileExt, config.BytecodeFileExt)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		if err := runProgram(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "glyph: %v\n", err)
			os.Exit(1)
		}
	case "disasm":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		if err := disasmProgram(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "glyph: %v\n", err)
			os.Exit(1)
		}
	case "version", "-v", "--version":
		fmt.Printf("glyph %s (format v%d)\n", Version, bytecode.FormatVersion)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "glyph: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

// loadOptions reads glyph.yaml from the working directory when present.
func loadOptions() (config.Options, error) {
	if _, err := os.Stat(optionsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.DefaultOptions(), nil
		}
		return config.Options{}, err
	}
	return config.LoadOptions(optionsFile)
}

func loadProgram(path string) (*bytecode.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return bytecode.Deserialize(f)
}

func runProgram(path string) error {
	opts, err := loadOptions()
	if err != nil {
		return err
	}
	prog, err := loadProgram(path)
	if err != nil {
		return err
	}

	machine := vm.New(opts)
	machine.SetInput(os.Stdin)
	defer machine.Close()

	result, err := machine.Execute(prog)
	if err != nil {
		var halt *vm.HaltError
		if errors.As(err, &halt) {
			fmt.Println(halt.Payload.Inspect())
			return nil
		}
		return err
	}
	fmt.Println(result.Inspect())
	return nil
}

func disasmProgram(path string) error {
	prog, err := loadProgram(path)
	if err != nil {
		return err
	}
	listing := bytecode.Disassemble(prog)
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		listing = colorize(listing)
	}
	fmt.Print(listing)
	return nil
}

// colorize dims comments and offsets for terminal output.
func colorize(listing string) string {
	const (
		dim   = "\x1b[2m"
		cyan  = "\x1b[36m"
		reset = "\x1b[0m"
	)
	lines := strings.Split(listing, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ";") {
			lines[i] = dim + line + reset
			continue
		}
		if idx := strings.Index(line, "  ; "); idx >= 0 {
			line = line[:idx] + dim + line[idx:] + reset
		}
		if len(line) > 4 {
			line = cyan + line[:4] + reset + line[4:]
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
