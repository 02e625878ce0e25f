package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goforj/godump"
	"github.com/mattn/go-isatty"
	"github.com/xplshn/ratc/pkg/cli"
	"github.com/xplshn/ratc/pkg/codegen"
	"github.com/xplshn/ratc/pkg/compiler"
	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/lexer"
	"github.com/xplshn/ratc/pkg/util"
)

// errReported marks failures whose diagnostics were already printed.
var errReported = errors.New("compilation failed")

type driver struct {
	cfg        *config.Config
	stdout     io.Writer
	stderr     io.Writer
	dumpIR     bool
	dumpTokens bool
	link       bool
	traceFile  string
}

func main() {
	app := cli.NewApp("ratc")
	app.Synopsis = "[options] <input.rat> ..."
	app.Description = "A single-pass compiler for Rat23F. Emits a stack machine instruction listing and symbol table, or native code through QBE or LLVM."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/ratc>"

	var (
		outFile     string
		backend     string
		target      string
		traceFile   string
		dumpIR      bool
		dumpTokens  bool
		interactive bool
		link        bool
		wall        bool
		wnoall      bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&backend, "backend", "b", "listing", "Select the backend: listing, qbe or llvm.", "backend")
	fs.String(&target, "target", "t", "", "Set the QBE target ABI (defaults to the host).", "target")
	fs.String(&traceFile, "trace-file", "", "", "Write the grammar rule trace into <file>. Implies -Ftrace.", "file")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Dump the backend's intermediate representation and exit.")
	fs.Bool(&dumpTokens, "dump-tokens", "", false, "Dump the token stream before parsing.")
	fs.Bool(&interactive, "interactive", "i", false, "Prompt for input and output file names until 'q'.")
	fs.Bool(&link, "link", "l", false, "Assemble and link native output into an executable.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&wnoall, "Wno-all", "", false, "Disable all warnings.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		// RATCFLAGS come first so the command line can override them
		for _, flag := range strings.Fields(os.Getenv("RATCFLAGS")) {
			if err := cfg.ApplyFlag(flag); err != nil {
				return fmt.Errorf("RATCFLAGS: %w", err)
			}
		}
		if wall {
			cfg.SetAllWarnings(true)
		}
		if wnoall {
			cfg.SetAllWarnings(false)
		}
		cfg.ApplyFlagGroups(warningFlags, featureFlags)
		if traceFile != "" {
			cfg.SetFeature(config.FeatTrace, true)
		}
		if err := cfg.SetBackend(backend); err != nil {
			return err
		}
		cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target)
		if link && cfg.BackendName == "listing" {
			return errors.New("--link needs a native backend (--backend qbe or llvm)")
		}

		d := &driver{
			cfg: cfg, stdout: os.Stdout, stderr: os.Stderr,
			dumpIR: dumpIR, dumpTokens: dumpTokens, link: link, traceFile: traceFile,
		}

		if interactive || len(inputFiles) == 0 {
			return d.interactive(os.Stdin, isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()))
		}
		if outFile != "" && len(inputFiles) > 1 {
			return errors.New("-o cannot be used with more than one input file")
		}

		failed := 0
		for _, in := range inputFiles {
			out := outFile
			if out == "" {
				out = d.defaultOutput(in)
			}
			if err := d.compileFile(in, out); err != nil {
				failed++
				d.report(err)
			}
		}
		if failed > 0 {
			return errReported
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "ratc: %v\n", err)
		}
		os.Exit(1)
	}
}

func (d *driver) report(err error) {
	if !errors.Is(err, errReported) {
		fmt.Fprintf(d.stderr, "ratc: %v\n", err)
	}
}

// interactive repeats the read-a-filename loop until 'q' or end of input.
// Prompts are only printed when stdin is a terminal.
func (d *driver) interactive(in io.Reader, prompt bool) error {
	sc := bufio.NewScanner(in)
	ask := func(question string) (string, bool) {
		if prompt {
			fmt.Fprintln(d.stdout, question)
		}
		if !sc.Scan() {
			return "", false
		}
		return strings.TrimSpace(sc.Text()), true
	}

	failed := 0
	for {
		name, ok := ask("Input the name of the file to read from, or enter 'q' to quit:")
		if !ok || name == "q" {
			break
		}
		if name == "" {
			continue
		}
		out, ok := ask("Input the name of the file to write to (empty for the default):")
		if !ok {
			break
		}
		if out == "" {
			out = d.defaultOutput(name)
		}
		if err := d.compileFile(name, out); err != nil {
			failed++
			d.report(err)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return errReported
	}
	return nil
}

func (d *driver) defaultOutput(in string) string {
	if d.link {
		return "a.out"
	}
	base := strings.TrimSuffix(in, filepath.Ext(in))
	switch d.cfg.BackendName {
	case "qbe":
		return base + ".s"
	case "llvm":
		return base + ".ll"
	}
	return base + ".lst"
}

func (d *driver) compileFile(in, out string) error {
	content, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("could not read file '%s': %w", in, err)
	}
	src := string(content)
	rep := util.NewReporter(d.stderr, util.SourceFileRecord{Name: in, Content: []rune(src)})

	fmt.Fprintln(d.stdout, "----------------------")
	fmt.Fprintf(d.stdout, "Tokenizing '%s'...\n", in)
	if d.dumpTokens {
		godump.Dump(lexer.Tokenize(src, d.cfg))
	}

	fmt.Fprintln(d.stdout, "Parsing and generating code...")
	res, err := compiler.Compile(src, d.cfg)
	if err != nil {
		for _, tok := range compiler.InvalidTokens(src, d.cfg) {
			rep.Warn(d.cfg, config.WarnInvalid, tok, "invalid token '%s'", tok.Lexeme)
		}
		rep.Error(err)
		return errReported
	}
	for _, w := range res.Warnings {
		rep.Warn(d.cfg, w.Kind, w.Tok, "%s", w.Msg)
	}

	if d.traceFile != "" && res.Trace != nil {
		if err := writeTrace(d.traceFile, res); err != nil {
			return err
		}
	}

	backend, err := codegen.SelectBackend(d.cfg.BackendName)
	if err != nil {
		return err
	}

	if d.dumpIR {
		fmt.Fprintf(d.stdout, "Dumping IR for '%s' backend...\n", d.cfg.BackendName)
		text, err := backend.GenerateIR(res.Program, res.Symbols, d.cfg)
		if err != nil {
			return fmt.Errorf("backend IR generation failed: %w", err)
		}
		fmt.Fprint(d.stdout, text)
		return nil
	}

	fmt.Fprintf(d.stdout, "Generating code with '%s' backend...\n", d.cfg.BackendName)
	output, err := backend.Generate(res.Program, res.Symbols, d.cfg)
	if err != nil {
		return fmt.Errorf("backend code generation failed: %w", err)
	}

	if d.link {
		fmt.Fprintf(d.stdout, "Linking to create '%s'...\n", out)
		if err := assembleAndLink(out, output.String(), d.cfg.BackendName); err != nil {
			return fmt.Errorf("assembler/linker failed: %w", err)
		}
	} else {
		fmt.Fprintf(d.stdout, "Writing '%s' (%s)...\n", out, humanize.Bytes(uint64(output.Len())))
		if err := os.WriteFile(out, output.Bytes(), 0o644); err != nil {
			return err
		}
	}

	fmt.Fprintf(d.stdout, "%s tokens, %s instructions, %s symbols, %s warnings\n",
		humanize.Comma(int64(len(res.Tokens))),
		humanize.Comma(int64(res.Program.Len())),
		humanize.Comma(int64(res.Symbols.Len())),
		humanize.Comma(int64(rep.Warns)))
	fmt.Fprintln(d.stdout, "----------------------")
	fmt.Fprintln(d.stdout, "Done!")
	return nil
}

func writeTrace(path string, res *compiler.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := res.Trace.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// assembleAndLink builds an executable from QBE assembly with cc, or from
// LLVM IR with clang.
func assembleAndLink(outFile, code, backend string) error {
	cc, ext := "cc", ".s"
	if backend == "llvm" {
		cc, ext = "clang", ".ll"
	}
	src, err := os.CreateTemp("", "ratc-main-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(src.Name())
	if _, err := src.WriteString(code); err != nil {
		src.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	src.Close()

	cmd := exec.Command(cc, "-no-pie", "-o", outFile, src.Name())
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s command failed: %w\nOutput:\n%s", cc, err, string(output))
	}
	return nil
}
