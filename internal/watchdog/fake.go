package watchdog

// Fake is a test double that counts kicks.
type Fake struct {
	// Kicks counts calls to Kick.
	Kicks int

	// KickError, if set, will be returned by Kick.
	KickError error

	// Closed tracks if Close was called.
	Closed bool
}

// Kick records the kick.
func (f *Fake) Kick() error {
	f.Kicks++
	return f.KickError
}

// Close marks the watchdog as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
