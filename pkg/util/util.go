package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/token"
	"golang.org/x/term"
)

// ErrorKind classifies a compilation failure.
type ErrorKind int

const (
	ErrSyntax ErrorKind = iota
	ErrDuplicateDeclaration
	ErrUndeclaredIdentifier
	ErrInvalidLvalue
	ErrBreakOutsideLoop
	ErrContinueOutsideLoop
	ErrIncompatibleDeclaration
	ErrMultipleDefinition
	ErrConflictingLinkage
	ErrNonConstantInitializer
	ErrExternInitializer
	ErrStorageClassInForHeader
	ErrWrongArgumentCount
	ErrNameKindMismatch
	ErrNestedFunctionDefinition
	ErrStaticBlockFunction
	ErrWarningAsError
	ErrInternal
)

var errorKindNames = map[ErrorKind]string{
	ErrSyntax:                   "syntax",
	ErrDuplicateDeclaration:     "duplicate-declaration",
	ErrUndeclaredIdentifier:     "undeclared-identifier",
	ErrInvalidLvalue:            "invalid-lvalue",
	ErrBreakOutsideLoop:         "break-outside-loop",
	ErrContinueOutsideLoop:      "continue-outside-loop",
	ErrIncompatibleDeclaration:  "incompatible-declaration",
	ErrMultipleDefinition:       "multiple-definition",
	ErrConflictingLinkage:       "conflicting-linkage",
	ErrNonConstantInitializer:   "non-constant-initializer",
	ErrExternInitializer:        "extern-initializer",
	ErrStorageClassInForHeader:  "storage-class-in-for-header",
	ErrWrongArgumentCount:       "wrong-argument-count",
	ErrNameKindMismatch:         "name-kind-mismatch",
	ErrNestedFunctionDefinition: "nested-function-definition",
	ErrStaticBlockFunction:      "static-block-function",
	ErrWarningAsError:           "warning-as-error",
	ErrInternal:                 "internal",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error(%d)", int(k))
}

// CompileError is the error every pipeline stage returns. Tok locates the
// offending construct; a zero Tok means no position is known.
type CompileError struct {
	Kind ErrorKind
	Tok  token.Token
	Msg  string
}

func (e *CompileError) Error() string {
	if e.Tok.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%d:%d: %s", e.Tok.Line, e.Tok.Column, e.Msg)
}

// Errorf builds a *CompileError.
func Errorf(kind ErrorKind, tok token.Token, format string, args ...interface{}) error {
	return &CompileError{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// Internalf reports a broken invariant between stages.
func Internalf(format string, args ...interface{}) error {
	return &CompileError{Kind: ErrInternal, Msg: "internal compiler error: " + fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind of err, if it is (or wraps) a *CompileError.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var (
	sourceFiles []SourceFileRecord
	diagOut     io.Writer = os.Stderr
	useColor              = term.IsTerminal(int(os.Stderr.Fd()))
)

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

// SetOutput redirects diagnostics. Colors are disabled for anything but a terminal.
func SetOutput(w io.Writer) {
	diagOut = w
	if f, ok := w.(*os.File); ok {
		useColor = term.IsTerminal(int(f.Fd()))
	} else {
		useColor = false
	}
}

func color(code string) string {
	if !useColor {
		return ""
	}
	return code
}

// findFileAndLine converts a global token to a file-specific location
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "unknown", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(w, "  %s\n", string(content[lineStart:lineEnd]))

	col := tok.Column
	if col < 1 {
		col = 1
	}
	fmt.Fprintf(w, "  %s%s^", strings.Repeat(" ", col-1), color("\033[32m"))
	if tok.Len > 1 {
		fmt.Fprintf(w, "%s", strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintln(w, color("\033[0m"))
}

// Report prints err as a diagnostic. Compile errors get a location and caret.
func Report(err error) {
	var ce *CompileError
	if !errors.As(err, &ce) {
		fmt.Fprintf(diagOut, "nqcc: %serror:%s %v\n", color("\033[31m"), color("\033[0m"), err)
		return
	}
	if ce.Tok.Line == 0 {
		fmt.Fprintf(diagOut, "nqcc: %serror:%s %s\n", color("\033[31m"), color("\033[0m"), ce.Msg)
		return
	}
	filename, line, col := findFileAndLine(ce.Tok)
	fmt.Fprintf(diagOut, "%s:%d:%d: %serror:%s %s\n", filename, line, col, color("\033[31m"), color("\033[0m"), ce.Msg)
	printErrorLine(diagOut, ce.Tok)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	cfg.WarningsIssued++
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(diagOut, "%s:%d:%d: %swarning:%s ", filename, line, col, color("\033[33m"), color("\033[0m"))
	fmt.Fprintf(diagOut, format, args...)
	fmt.Fprintf(diagOut, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(diagOut, tok)
}

// NameGen hands out compilation-unique names for renamed locals, loop ids,
// temporaries and labels. One generator serves a whole compiler instance.
type NameGen struct{ counter int }

func NewNameGen() *NameGen { return &NameGen{} }

func (g *NameGen) next() int {
	n := g.counter
	g.counter++
	return n
}

// Temp returns a fresh temporary name.
func (g *NameGen) Temp() string { return fmt.Sprintf("tmp.%d", g.next()) }

// Label returns prefix followed by a fresh suffix.
func (g *NameGen) Label(prefix string) string { return fmt.Sprintf("%s.%d", prefix, g.next()) }
