package model

// Mode is how an attempt is taken. Test and Practice run inside a Session;
// Endless attempts are recorded without one.
type Mode string

const (
	ModeTest     Mode = "Test"
	ModePractice Mode = "Practice"
	ModeEndless  Mode = "Endless"
)

// IsSessionMode reports whether a session may be started in this mode.
func (m Mode) IsSessionMode() bool {
	return m == ModeTest || m == ModePractice
}

func (m Mode) IsValid() bool {
	return m.IsSessionMode() || m == ModeEndless
}
