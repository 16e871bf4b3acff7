package demangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniff(t *testing.T) {
	assert.Equal(t, DialectItanium, Sniff("_Z3fooi"))
	assert.Equal(t, DialectMSVC, Sniff("?foo@@YAHH@Z"))
	assert.Equal(t, DialectCodeWarrior, Sniff("Widget__ct__Fv"))
	assert.Equal(t, DialectNone, Sniff("plain_c_name"))
}

func TestDemangleItaniumSimpleFunction(t *testing.T) {
	out := Demangle("_Z3fooi")
	require.NotEmpty(t, out)
	assert.Contains(t, out, "foo")
}

func TestDemangleMSVC(t *testing.T) {
	out := Demangle("?foo@Bar@@QEAAXXZ")
	require.NotEmpty(t, out)
	assert.Contains(t, out, "Bar")
	assert.Contains(t, out, "foo")
}

func TestDemangleCodeWarriorCtor(t *testing.T) {
	out := Demangle("Widget__ct__Fv")
	require.NotEmpty(t, out)
	assert.Equal(t, "Widget::Widget()", out)
}

func TestDemangleCodeWarriorDtor(t *testing.T) {
	out := Demangle("Widget__dt__Fv")
	require.NotEmpty(t, out)
	assert.Equal(t, "Widget::~Widget()", out)
}

func TestDemangleUnrecognized(t *testing.T) {
	assert.Equal(t, "", Demangle("plain_c_name_with_no_markers"))
}
