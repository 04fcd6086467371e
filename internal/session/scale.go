package session

// ScaleMemory remembers the colorbar maximum used for a column so that
// consecutive map renderings of the same variable share a scale and stay
// visually comparable. An explicit max on a map command records it; a
// later map of the same column without a max reuses the recorded value.
// An explicit negative=false resets the column, since flipping the sign
// convention invalidates the remembered scale.
type ScaleMemory struct {
	maxima map[string]float64
}

// NewScaleMemory creates an empty scale memory.
func NewScaleMemory() *ScaleMemory {
	return &ScaleMemory{maxima: make(map[string]float64)}
}

// RecordMax stores the colorbar maximum for column, replacing any
// previous value.
func (m *ScaleMemory) RecordMax(column string, max float64) {
	m.maxima[column] = max
}

// Lookup returns the remembered maximum for column.
func (m *ScaleMemory) Lookup(column string) (float64, bool) {
	v, ok := m.maxima[column]
	return v, ok
}

// Clear forgets the remembered maximum for column.
func (m *ScaleMemory) Clear(column string) {
	delete(m.maxima, column)
}

// Reset forgets all remembered maxima. Reloading the dataset calls this
// because a new dataset has no relation to the old value ranges.
func (m *ScaleMemory) Reset() {
	m.maxima = make(map[string]float64)
}
