package audio

import "time"

func init() {
	RegisterBackend("headless", openHeadless)
}

// openHeadless renders nothing to a device. Its clock follows wall time so
// the scheduler behaves as it would against a real device.
func openHeadless(opts Options) (Context, error) {
	c := NewSoftContext(opts.SampleRate)
	start := time.Now()
	c.clock = func() float64 { return time.Since(start).Seconds() }
	return c, nil
}
