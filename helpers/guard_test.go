package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrPanic(t *testing.T) {
	t.Run("empty_panics", func(t *testing.T) {
		assert.PanicsWithValue(t, "addr is required", func() {
			StrPanic("", "addr is required")
		})
	})
	t.Run("non_empty_returns_value", func(t *testing.T) {
		require.Equal(t, ":9000", StrPanic(":9000", "addr is required"))
	})
}

func TestNilPanic(t *testing.T) {
	t.Run("nil_interface_panics", func(t *testing.T) {
		var v interface{}
		assert.PanicsWithValue(t, "interface is required", func() {
			NilPanic(v, "interface is required")
		})
	})
	t.Run("nil_func_panics", func(t *testing.T) {
		var f func() int
		assert.PanicsWithValue(t, "func is required", func() {
			NilPanic(f, "func is required")
		})
	})
	t.Run("nil_map_panics", func(t *testing.T) {
		var m map[string]int
		assert.PanicsWithValue(t, "map is required", func() {
			NilPanic(m, "map is required")
		})
	})
	t.Run("nil_pointer_panics", func(t *testing.T) {
		var p *ManualClock
		assert.PanicsWithValue(t, "clock is required", func() {
			NilPanic(p, "clock is required")
		})
	})
	t.Run("non_nil_returns_value", func(t *testing.T) {
		c := NewManualClock(TestNow())
		require.Same(t, c, NilPanic(c, "clock is required"))
	})
	t.Run("zero_struct_is_not_nil", func(t *testing.T) {
		type cfg struct{ Port int }
		require.Equal(t, cfg{}, NilPanic(cfg{}, "cfg is required"))
	})
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(TestNow())
	assert.Equal(t, TestNow(), c.Now())

	got := c.Advance(90)
	assert.Equal(t, TestNow().Add(90), got)
	assert.Equal(t, got, c.Now())

	c.Set(TestNow())
	assert.Equal(t, TestNow(), c.Now())
}
