package endless

// Window remembers the most recently seen question keys, oldest evicted first.
type Window struct {
	size int
	keys []string
}

func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{size: size}
}

// Add appends keys in arrival order. A key already in the window keeps its
// slot, so eviction is strictly first in, first out.
func (w *Window) Add(keys ...string) {
	for _, k := range keys {
		if w.contains(k) {
			continue
		}
		w.keys = append(w.keys, k)
	}
	if over := len(w.keys) - w.size; over > 0 {
		w.keys = append([]string(nil), w.keys[over:]...)
	}
}

// Keys returns the window oldest first.
func (w *Window) Keys() []string {
	return append([]string(nil), w.keys...)
}

func (w *Window) Len() int { return len(w.keys) }

func (w *Window) contains(k string) bool {
	for _, existing := range w.keys {
		if existing == k {
			return true
		}
	}
	return false
}
