package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableKeepsInsertionOrder(t *testing.T) {
	tab := NewTable()
	tab.Set("b", Symbol{Type: IntType, Attrs: StaticAttr{Init: InitialValue{Kind: Tentative}, Global: true}})
	tab.Set("a", Symbol{Type: FunType(2), Attrs: FunAttr{Defined: true, Global: true}})
	tab.Set("c", Symbol{Type: IntType, Attrs: LocalAttr{}})
	tab.Set("b", Symbol{Type: IntType, Attrs: StaticAttr{Init: InitialOf(4), Global: true}})

	assert.Equal(t, []string{"b", "a", "c"}, tab.Names())
	assert.Equal(t, 3, tab.Len())

	b, ok := tab.Get("b")
	assert.True(t, ok)
	assert.Equal(t, InitialOf(4), b.Attrs.(StaticAttr).Init)

	_, ok = tab.Get("missing")
	assert.False(t, ok)
}

func TestIsStatic(t *testing.T) {
	tab := NewTable()
	tab.Set("g", Symbol{Type: IntType, Attrs: StaticAttr{Init: InitialValue{Kind: NoInitializer}}})
	tab.Set("l", Symbol{Type: IntType, Attrs: LocalAttr{}})
	tab.Set("f", Symbol{Type: FunType(0), Attrs: FunAttr{}})

	assert.True(t, tab.IsStatic("g"))
	assert.False(t, tab.IsStatic("l"))
	assert.False(t, tab.IsStatic("f"))
	assert.False(t, tab.IsStatic("unknown"))
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "int", IntType.String())
	assert.Equal(t, "int(3 params)", FunType(3).String())
}
