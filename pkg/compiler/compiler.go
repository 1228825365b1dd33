// Package compiler drives a translation unit through every stage, from
// source text to assembly.
package compiler

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rainierwolfcastle/nqcc/pkg/asm"
	"github.com/rainierwolfcastle/nqcc/pkg/ast"
	"github.com/rainierwolfcastle/nqcc/pkg/codegen"
	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/ir"
	"github.com/rainierwolfcastle/nqcc/pkg/lexer"
	"github.com/rainierwolfcastle/nqcc/pkg/loops"
	"github.com/rainierwolfcastle/nqcc/pkg/parser"
	"github.com/rainierwolfcastle/nqcc/pkg/resolver"
	"github.com/rainierwolfcastle/nqcc/pkg/symbols"
	"github.com/rainierwolfcastle/nqcc/pkg/token"
	"github.com/rainierwolfcastle/nqcc/pkg/typeChecker"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
)

// Compiler owns the unique-name generator, so names never repeat across the
// translation units it compiles.
type Compiler struct {
	cfg   *config.Config
	names *util.NameGen

	// Progress receives one line per stage. Nil disables it.
	Progress io.Writer
}

func New(cfg *config.Config) *Compiler {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Compiler{cfg: cfg, names: util.NewNameGen()}
}

// Result holds whatever the stages that ran produced.
type Result struct {
	Tokens  []token.Token
	AST     *ast.Node
	Symbols *symbols.Table
	IR      *ir.Program
	Machine *asm.Program
	Output  *bytes.Buffer
}

func (c *Compiler) progress(format string, args ...interface{}) {
	if c.Progress != nil {
		fmt.Fprintf(c.Progress, format+"\n", args...)
	}
}

func (c *Compiler) Lex(src []rune, fileIndex int) ([]token.Token, error) {
	c.progress("Tokenizing source...")
	return lexer.Tokenize(src, fileIndex)
}

func (c *Compiler) Parse(toks []token.Token) (*ast.Node, error) {
	c.progress("Parsing tokens into AST...")
	return parser.NewParser(toks).Parse()
}

// Validate resolves names, labels loops and type checks root, returning the
// populated symbol table.
func (c *Compiler) Validate(root *ast.Node) (*ast.Node, *symbols.Table, error) {
	issued := c.cfg.WarningsIssued

	c.progress("Resolving identifiers...")
	root, err := resolver.NewResolver(c.names, c.cfg).Resolve(root)
	if err != nil {
		return nil, nil, err
	}

	c.progress("Labeling loops...")
	if root, err = loops.NewLabeler(c.names).Label(root); err != nil {
		return nil, nil, err
	}

	c.progress("Type checking...")
	syms := symbols.NewTable()
	if root, err = typeChecker.NewTypeChecker(syms, c.cfg).Check(root); err != nil {
		return nil, nil, err
	}

	if n := c.cfg.WarningsIssued - issued; c.cfg.WarningsAsErrors && n > 0 {
		return nil, nil, util.Errorf(util.ErrWarningAsError, token.Token{}, "%d warning(s) treated as errors", n)
	}
	return root, syms, nil
}

func (c *Compiler) Tacky(root *ast.Node, syms *symbols.Table) (*ir.Program, error) {
	c.progress("Creating intermediate representation...")
	return codegen.NewContext(syms, c.names, c.cfg).GenerateIR(root)
}

// Codegen produces machine IR for the x86_64 backend without emitting it.
func (c *Compiler) Codegen(prog *ir.Program, syms *symbols.Table) (*asm.Program, error) {
	c.progress("Selecting instructions...")
	return codegen.Lower(prog, syms, c.cfg)
}

func (c *Compiler) Emit(prog *ir.Program, syms *symbols.Table) (*bytes.Buffer, error) {
	c.progress("Generating code with '%s' backend...", c.cfg.BackendName)
	backend, err := codegen.SelectBackend(c.cfg)
	if err != nil {
		return nil, err
	}
	return backend.Generate(prog, syms, c.cfg)
}

// Compile runs src through every stage up to and including stop. StageAll
// runs the whole pipeline and fills Result.Output with assembly.
func (c *Compiler) Compile(src []rune, fileIndex int, stop config.Stage) (*Result, error) {
	res := &Result{}
	var err error

	if res.Tokens, err = c.Lex(src, fileIndex); err != nil || stop == config.StageLex {
		return res, err
	}
	if res.AST, err = c.Parse(res.Tokens); err != nil || stop == config.StageParse {
		return res, err
	}
	if res.AST, res.Symbols, err = c.Validate(res.AST); err != nil || stop == config.StageValidate {
		return res, err
	}
	if res.IR, err = c.Tacky(res.AST, res.Symbols); err != nil || stop == config.StageTacky {
		return res, err
	}
	if stop == config.StageCodegen {
		if c.cfg.BackendName == "x86_64" {
			res.Machine, err = c.Codegen(res.IR, res.Symbols)
		}
		return res, err
	}
	res.Output, err = c.Emit(res.IR, res.Symbols)
	return res, err
}
