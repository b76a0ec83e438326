package sessiondriver

// Timer counts the remaining budget down one second per tick. Once it hits
// zero it keeps counting overdue seconds up instead of stopping.
type Timer struct {
	Remaining int
	Overdue   int
}

func (t *Timer) Tick() {
	if t.Remaining > 0 {
		t.Remaining--
		return
	}
	t.Overdue++
}

func (t Timer) IsOverdue() bool {
	return t.Remaining <= 0
}
