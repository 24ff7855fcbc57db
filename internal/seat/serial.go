package seat

import "fmt"

// Newer reports whether serial a was issued after b, tolerating 32-bit wraparound
func Newer(a, b uint32) bool {
	return int32(a-b) > 0
}

// AtLeast reports whether a is b or was issued after it
func AtLeast(a, b uint32) bool {
	return int32(a-b) >= 0
}

// SerialGenerator hands out and tracks per-seat serials. In the compositor role Next
// produces them; in the client role Observe records the latest one received.
type SerialGenerator struct {
	last     uint32
	observed bool
}

// Next returns a serial strictly newer than any returned or observed before
func (g *SerialGenerator) Next() uint32 {
	g.last++
	g.observed = true
	return g.last
}

// Observe records a serial carried by an inbound event. Older serials are ignored.
func (g *SerialGenerator) Observe(serial uint32) {
	if !g.observed || Newer(serial, g.last) {
		g.last = serial
		g.observed = true
	}
}

// Last returns the most recent serial
func (g *SerialGenerator) Last() uint32 {
	return g.last
}

// EnterSerial remembers the serial of the enter event that granted focus.
// Requests authorized by that enter must cite it or a later serial.
type EnterSerial struct {
	serial uint32
	valid  bool
}

// Capture stamps serial as the authorizing enter serial
func (e *EnterSerial) Capture(serial uint32) {
	e.serial = serial
	e.valid = true
}

// Value returns the captured serial, if any
func (e *EnterSerial) Value() (uint32, bool) {
	return e.serial, e.valid
}

// Check validates a serial cited by a request
func (e *EnterSerial) Check(serial uint32) error {
	if !e.valid {
		return fmt.Errorf("%w: no enter received", ErrStaleSerial)
	}
	if !AtLeast(serial, e.serial) {
		return fmt.Errorf("%w: %d precedes enter serial %d", ErrStaleSerial, serial, e.serial)
	}
	return nil
}
