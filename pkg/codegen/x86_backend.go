package codegen

import (
	"bytes"

	"github.com/rainierwolfcastle/nqcc/pkg/asm"
	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/ir"
	"github.com/rainierwolfcastle/nqcc/pkg/symbols"
)

type x86Backend struct{}

func NewX86Backend() Backend { return &x86Backend{} }

// Lower runs instruction selection, storage assignment and legalization,
// returning machine IR ready for emission.
func Lower(prog *ir.Program, syms *symbols.Table, cfg *config.Config) (*asm.Program, error) {
	mprog, err := asm.Select(prog)
	if err != nil {
		return nil, err
	}
	mprog = asm.ReplacePseudos(mprog, syms)
	return asm.Fixup(mprog, cfg)
}

func (b *x86Backend) Generate(prog *ir.Program, syms *symbols.Table, cfg *config.Config) (*bytes.Buffer, error) {
	mprog, err := Lower(prog, syms, cfg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	asm.Emit(&buf, mprog, cfg)
	return &buf, nil
}
