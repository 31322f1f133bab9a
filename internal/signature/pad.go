package signature

// Pad accumulates the strokes of one signature capture session. Each
// discrete drag gesture becomes one committed stroke; an in-progress
// stroke stays uncommitted until the gesture ends.
type Pad struct {
	width   float64
	height  float64
	strokes [][]Point
	current []Point
}

// NewPad constructs a capture pad with the measured surface size.
func NewPad(width, height float64) *Pad {
	return &Pad{width: width, height: height}
}

// Begin starts a new stroke at the given sample.
func (p *Pad) Begin(point Point) {
	p.current = []Point{point}
}

// Extend appends a sample to the in-progress stroke. Samples arriving
// before Begin are treated as a stroke start.
func (p *Pad) Extend(point Point) {
	if p.current == nil {
		p.Begin(point)
		return
	}
	p.current = append(p.current, point)
}

// End commits the in-progress stroke. Empty gestures are discarded.
func (p *Pad) End() {
	if len(p.current) > 0 {
		p.strokes = append(p.strokes, p.current)
	}
	p.current = nil
}

// Undo drops the most recently committed stroke.
func (p *Pad) Undo() {
	if len(p.strokes) > 0 {
		p.strokes = p.strokes[:len(p.strokes)-1]
	}
}

// Clear drops all committed strokes and any in-progress stroke.
func (p *Pad) Clear() {
	p.strokes = nil
	p.current = nil
}

// IsEmpty reports whether no stroke has been committed.
func (p *Pad) IsEmpty() bool {
	return len(p.strokes) == 0
}

// StrokeCount returns the number of committed strokes.
func (p *Pad) StrokeCount() int {
	return len(p.strokes)
}

// SmoothedPaths returns one smoothed path string per committed stroke.
func (p *Pad) SmoothedPaths() []string {
	paths := make([]string, 0, len(p.strokes))
	for _, stroke := range p.strokes {
		if path := SmoothPath(stroke); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// DataURI serializes the committed strokes into the persisted vector form.
func (p *Pad) DataURI() string {
	return RenderDataURI(p.SmoothedPaths(), p.width, p.height)
}
