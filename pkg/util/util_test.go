package util

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameGenSharesCounter(t *testing.T) {
	g := NewNameGen()
	assert.Equal(t, "tmp.0", g.Temp())
	assert.Equal(t, "x.1", g.Label("x"))
	assert.Equal(t, "while.2", g.Label("while"))
	assert.Equal(t, "tmp.3", g.Temp())
}

func TestKindOf(t *testing.T) {
	err := Errorf(ErrUndeclaredIdentifier, token.Token{Line: 2, Column: 5}, "undeclared '%s'", "x")
	assert.Equal(t, "2:5: undeclared 'x'", err.Error())

	kind, ok := KindOf(fmt.Errorf("wrapped: %w", err))
	require.True(t, ok)
	assert.Equal(t, ErrUndeclaredIdentifier, kind)

	_, ok = KindOf(fmt.Errorf("plain"))
	assert.False(t, ok)

	kind, _ = KindOf(Internalf("bad %d", 1))
	assert.Equal(t, ErrInternal, kind)
}

func TestReportPrintsCaret(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})
	SetSourceFiles([]SourceFileRecord{{Name: "a.c", Content: []rune("int main(void) {\n  return y;\n}\n")}})
	defer SetSourceFiles(nil)

	Report(Errorf(ErrUndeclaredIdentifier, token.Token{Line: 2, Column: 10, Len: 1}, "use of undeclared identifier 'y'"))
	assert.Equal(t, "a.c:2:10: error: use of undeclared identifier 'y'\n    return y;\n           ^\n", buf.String())
}

func TestWarnCountsIssued(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	cfg := config.NewConfig()
	Warn(cfg, config.WarnShadow, token.Token{}, "shadowed")
	assert.Zero(t, cfg.WarningsIssued)
	assert.Empty(t, buf.String())

	cfg.SetWarning(config.WarnShadow, true)
	Warn(cfg, config.WarnShadow, token.Token{}, "declaration of '%s' shadows a previous local", "x")
	assert.Equal(t, 1, cfg.WarningsIssued)
	assert.Contains(t, buf.String(), "declaration of 'x' shadows a previous local [-Wshadow]")
}
