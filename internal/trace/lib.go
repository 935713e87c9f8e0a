package trace

// Lib is the recorded library namespace. The original callable receives it
// the way a default library-handle argument is captured in the traced
// function's signature: invoking operations on it during the trace pass
// records them exactly like methods on traced values do.
type Lib struct {
	rec *Recorder
}

// Tensor records construction of a tensor from literal data. The data is
// frozen into the graph; replay always rebuilds the same tensor.
func (l *Lib) Tensor(vals ...float64) *Value {
	return l.rec.applyOne("tensor", nil, []any{vals}, nil)
}

// Arange records construction of [0, 1, ..., n-1]. The bound is a
// trace-time constant.
func (l *Lib) Arange(n int) *Value {
	return l.rec.applyOne("arange", nil, []any{n}, nil)
}

// Rand records drawing a uniform random tensor of the given shape from the
// execution environment's RNG.
func (l *Lib) Rand(shape ...int) *Value {
	return l.rec.applyOne("rand", nil, []any{shape}, nil)
}

// RandInt records drawing random integers in [0, max) with the given shape.
func (l *Lib) RandInt(max int, size ...int) *Value {
	return l.rec.applyOne("randint", nil, []any{max, size}, nil)
}

// ManualSeed records re-seeding the execution environment's RNG. Replay
// preserves ordering, so random operations recorded after the seed
// reproduce the traced values.
func (l *Lib) ManualSeed(seed int) {
	l.rec.apply("manual_seed", nil, []any{seed}, nil)
}

// Mul records and computes the elementwise product of two operands.
func (l *Lib) Mul(a, b any) *Value {
	return l.rec.applyOne("mul", nil, []any{scalarOperand(a), scalarOperand(b)}, nil)
}

// Split records partitioning a traced value into chunks of the given size.
// It is a multi-output operation: every returned value gets its own
// placeholder, so each downstream-consumed chunk replays independently.
func (l *Lib) Split(v *Value, size int) []*Value {
	return l.rec.apply("split", nil, []any{v, size}, nil)
}

// Linear records a dense layer application w·x + b.
func (l *Lib) Linear(x, w, b any) *Value {
	return l.rec.applyOne("linear", nil, []any{scalarOperand(x), scalarOperand(w), scalarOperand(b)}, nil)
}
