package fluid

// Value is a settable scalar. The host reads it every frame to paint the
// property it backs; the runner writes it once per tick while an animation
// or value link targets it.
type Value struct {
	v       float64
	version uint64
}

// NewValue returns a Value holding v.
func NewValue(v float64) *Value {
	return &Value{v: v}
}

// Get returns the current value.
func (v *Value) Get() float64 {
	return v.v
}

// Set stores x. The version counter only advances when the value changes,
// so hosts can skip repainting unchanged properties.
func (v *Value) Set(x float64) {
	if v.v == x {
		return
	}
	v.v = x
	v.version++
}

// Version returns a counter that increases every time the value changes.
func (v *Value) Version() uint64 {
	return v.version
}
