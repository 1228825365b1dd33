package codegen

import (
	"bytes"
	"fmt"

	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/ir"
	"github.com/rainierwolfcastle/nqcc/pkg/symbols"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes a TACKY program and the symbol table it was lowered
	// against, and produces target assembly.
	Generate(prog *ir.Program, syms *symbols.Table, cfg *config.Config) (*bytes.Buffer, error)
}

// SelectBackend returns the backend named by cfg.BackendName.
func SelectBackend(cfg *config.Config) (Backend, error) {
	switch cfg.BackendName {
	case "x86_64":
		return NewX86Backend(), nil
	case "qbe":
		return NewQBEBackend(), nil
	}
	return nil, fmt.Errorf("unsupported backend '%s'", cfg.BackendName)
}
