package codegen

import (
	"bytes"
	"fmt"

	"github.com/xplshn/ratc/pkg/config"
	"github.com/xplshn/ratc/pkg/ir"
	"github.com/xplshn/ratc/pkg/symtab"
)

// Backend is the interface that all output backends must implement.
type Backend interface {
	// Generate produces the final artifact for a finished program.
	Generate(prog *ir.Program, syms *symtab.Table, cfg *config.Config) (*bytes.Buffer, error)
	// GenerateIR produces the backend's intermediate text, for --dump-ir.
	GenerateIR(prog *ir.Program, syms *symtab.Table, cfg *config.Config) (string, error)
}

func SelectBackend(name string) (Backend, error) {
	switch name {
	case "listing":
		return NewListingBackend(), nil
	case "qbe":
		return NewQBEBackend(), nil
	case "llvm":
		return NewLLVMBackend(), nil
	}
	return nil, fmt.Errorf("unsupported backend '%s'", name)
}

type listingBackend struct{}

func NewListingBackend() Backend { return listingBackend{} }

// Generate writes the assembly listing followed by the symbol table listing.
func (listingBackend) Generate(prog *ir.Program, syms *symtab.Table, cfg *config.Config) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	buf.WriteString("Assembly Code:\n")
	if err := prog.WriteListing(&buf); err != nil {
		return nil, err
	}
	buf.WriteString("\nSymbol Table:\n")
	if err := syms.WriteListing(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}

func (b listingBackend) GenerateIR(prog *ir.Program, syms *symtab.Table, cfg *config.Config) (string, error) {
	buf, err := b.Generate(prog, syms, cfg)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
