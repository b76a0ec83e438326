package endless

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow_FIFOEviction(t *testing.T) {
	w := NewWindow(3)
	w.Add("a", "b", "c", "d")
	assert.Equal(t, []string{"b", "c", "d"}, w.Keys())

	// 重复出现不刷新位置
	w.Add("c")
	assert.Equal(t, []string{"b", "c", "d"}, w.Keys())

	w.Add("e")
	assert.Equal(t, []string{"c", "d", "e"}, w.Keys())

	w.Add("e", "f", "f")
	assert.Equal(t, []string{"d", "e", "f"}, w.Keys())
}

func TestWindow_DefaultSize(t *testing.T) {
	w := NewWindow(0)
	for i := 0; i < 40; i++ {
		w.Add(fmt.Sprintf("t:%d", i))
	}
	assert.Equal(t, DefaultWindowSize, w.Len())
	assert.Equal(t, "t:10", w.Keys()[0])
}
