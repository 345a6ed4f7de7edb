package sim

// SparseSet stores values keyed by entity slot id. Values are packed densely
// so iteration skips empty slots; removal swaps the last value into the gap.
type SparseSet[T any] struct {
	denseIDs    []uint32
	denseValues []T
	sparse      []int
}

func (s *SparseSet[T]) Has(id uint32) bool {
	if id == 0 || int(id) > len(s.sparse) {
		return false
	}
	idx := s.sparse[id-1]
	return idx >= 0 && idx < len(s.denseIDs) && s.denseIDs[idx] == id
}

func (s *SparseSet[T]) Get(id uint32) (T, bool) {
	if !s.Has(id) {
		var zero T
		return zero, false
	}
	return s.denseValues[s.sparse[id-1]], true
}

// Set inserts or replaces the value for id.
func (s *SparseSet[T]) Set(id uint32, v T) {
	if id == 0 {
		return
	}
	for int(id) > len(s.sparse) {
		s.sparse = append(s.sparse, -1)
	}
	if s.Has(id) {
		s.denseValues[s.sparse[id-1]] = v
		return
	}
	s.denseIDs = append(s.denseIDs, id)
	s.denseValues = append(s.denseValues, v)
	s.sparse[id-1] = len(s.denseIDs) - 1
}

func (s *SparseSet[T]) Remove(id uint32) bool {
	if !s.Has(id) {
		return false
	}
	idx := s.sparse[id-1]
	last := len(s.denseIDs) - 1
	lastID := s.denseIDs[last]

	s.denseIDs[idx] = lastID
	s.denseValues[idx] = s.denseValues[last]
	s.sparse[lastID-1] = idx

	var zero T
	s.denseValues[last] = zero
	s.denseIDs = s.denseIDs[:last]
	s.denseValues = s.denseValues[:last]
	s.sparse[id-1] = -1
	return true
}

func (s *SparseSet[T]) Len() int {
	return len(s.denseIDs)
}

// IDs returns the dense id list. Callers must not modify it.
func (s *SparseSet[T]) IDs() []uint32 {
	return s.denseIDs
}
