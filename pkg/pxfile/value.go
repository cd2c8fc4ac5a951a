package pxfile

// Value is one decoded-but-unconverted cell: a tagged union of an explicit
// null flag, a signed integer, a double, or a byte buffer with explicit
// length. The consumer must call Release exactly once per value, whether
// or not the value turned out to be null-like; the owning Doc counts
// outstanding values so tests can verify the discipline.
type Value struct {
	// Null is the backend's explicit null flag. It wins over any payload.
	Null bool

	// Int carries short/long/autoinc/date/time/logical payloads.
	Int int64

	// Real carries number/currency/timestamp payloads.
	Real float64

	// Buf carries text and binary payloads. A nil Buf means no buffer was
	// produced; a non-nil zero-length Buf is a produced-but-empty buffer
	// and must still be released.
	Buf []byte

	free     func()
	released bool
}

// Release returns the value's resources to the backend. Releasing twice is
// a no-op.
func (v *Value) Release() {
	if v == nil || v.released {
		return
	}
	v.released = true
	v.Buf = nil
	if v.free != nil {
		v.free()
	}
}

// Released reports whether Release has been called.
func (v *Value) Released() bool {
	return v.released
}

// NewValue builds a raw value whose Release invokes free once. It exists
// for alternate backends and test doubles; Doc wires its own accounting.
func NewValue(null bool, i int64, r float64, buf []byte, free func()) *Value {
	return &Value{Null: null, Int: i, Real: r, Buf: buf, free: free}
}
