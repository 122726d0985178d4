package patterns

import "slices"

// History is a creator's bounded list of per-record interaction totals, oldest first.
// It is not safe for concurrent use; the owning store serializes access per creator.
type History struct {
	points []float64
	limit  int
}

// NewHistory creates an empty history keeping at most limit points.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// RestoreHistory rebuilds a history from a snapshot, trimming to limit.
func RestoreHistory(points []float64, limit int) *History {
	h := NewHistory(limit)
	for _, p := range points {
		h.Append(p)
	}
	return h
}

// Append adds a point, evicting the oldest when full.
func (h *History) Append(v float64) {
	h.points = append(h.points, v)
	if over := len(h.points) - h.limit; over > 0 {
		h.points = slices.Delete(h.points, 0, over)
	}
}

// Points returns a copy of all stored points.
func (h *History) Points() []float64 {
	return slices.Clone(h.points)
}

// Window returns a copy of the last n points.
func (h *History) Window(n int) []float64 {
	if n >= len(h.points) {
		return h.Points()
	}
	return slices.Clone(h.points[len(h.points)-n:])
}

// Len returns the number of stored points.
func (h *History) Len() int {
	return len(h.points)
}
