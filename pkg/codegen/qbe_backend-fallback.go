//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/ir"
	"github.com/xplshn/ratc/pkg/symtab"
)

// Generate hands the IL to a system 'qbe', since libqbe is not built for Windows.
func (b *qbeBackend) Generate(prog *ir.Program, syms *symtab.Table, cfg *config.Config) (*bytes.Buffer, error) {
	qbePath, err := exec.LookPath("qbe")
	if err != nil {
		return nil, fmt.Errorf("libqbe is unavailable on windows and 'qbe' is not in PATH: %w", err)
	}

	qbeIR, err := b.GenerateIR(prog, syms, cfg)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "ratc-qbe-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in, out := filepath.Join(dir, "input.ssa"), filepath.Join(dir, "output.s")
	if err := os.WriteFile(in, []byte(qbeIR), 0o644); err != nil {
		return nil, err
	}

	cmd := exec.Command(qbePath, "-o", out, "-t", cfg.QbeTarget, in)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("\n--- QBE Compilation Failed ---\nGenerated IR:\n%s\n\nqbe: %w\n%s", qbeIR, err, output)
	}

	asm, err := os.ReadFile(out)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(asm), nil
}
