package tracking

// Filter debounces detections into turret commands.
//
// Only the first box is considered; the detector's ordering is kept as-is.
// A coordinate is emitted when it moves more than Tolerance units on either
// axis from the last emitted one, or (once) when the target disappears.
// NoTarget takes part in the comparison as (-1,-1), so a target appearing
// close to the origin right after a loss is not sent.
type Filter struct {
	quantum   int
	tolerance int
	last      Coordinate
}

// NewFilter creates a filter whose last sent value is NoTarget.
func NewFilter(cfg Config) *Filter {
	return &Filter{
		quantum:   cfg.Quantum,
		tolerance: cfg.Tolerance,
		last:      NoTarget,
	}
}

// Quantize converts a pixel position to actuator units.
func (f *Filter) Quantize(px, py int) Coordinate {
	return Coordinate{X: px / f.quantum, Y: py / f.quantum}
}

// Next consumes one tick's detections and returns the coordinate to send, if any.
func (f *Filter) Next(boxes []Box) (Coordinate, bool) {
	if len(boxes) == 0 {
		if f.last.IsSentinel() {
			return NoTarget, false
		}
		f.last = NoTarget
		return NoTarget, true
	}

	cur := f.Quantize(boxes[0].Center())
	if !f.exceeds(cur) {
		return cur, false
	}
	f.last = cur
	return cur, true
}

// Last returns the most recently emitted coordinate.
func (f *Filter) Last() Coordinate {
	return f.last
}

// Reset forgets the last emitted coordinate.
func (f *Filter) Reset() {
	f.last = NoTarget
}

func (f *Filter) exceeds(cur Coordinate) bool {
	return abs(cur.X-f.last.X) > f.tolerance || abs(cur.Y-f.last.Y) > f.tolerance
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
