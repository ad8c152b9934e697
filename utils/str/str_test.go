package str

import (
	"testing"

	"github.com/aspectgo/aspectgo/test/assert"
)

func TestRandomStr(t *testing.T) {
	a := RandomStr(8)
	b := RandomStr(8)
	assert.Equal(t, 8, len(a))
	assert.Equal(t, 8, len(b))
	assert.Equal(t, 0, len(RandomStr(0)))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "abc", ToString("abc"))
	assert.Equal(t, "abc", ToString([]byte("abc")))
	assert.Equal(t, "true", ToString(true))
	assert.Equal(t, "42", ToString(42))
	assert.Equal(t, "42", ToString(int64(42)))
	assert.Equal(t, "4.2", ToString(4.2))
	assert.Equal(t, `{"Name":"a"}`, ToString(struct{ Name string }{Name: "a"}))
}

func TestConvertDollarPlaceholder(t *testing.T) {
	sql := "INSERT INTO t (a, b) VALUES (?, ?)"
	assert.Equal(t, sql, ConvertDollarPlaceholder(sql, "mysql"))
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", ConvertDollarPlaceholder(sql, "postgres"))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "a"))
	assert.False(t, Contains([]string{"a", "b"}, "c"))
	assert.False(t, Contains(nil, "a"))
}
