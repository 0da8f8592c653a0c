package physics

type slot[T any] struct {
	value      *T
	generation uint32
}

// arena stores values in reusable slots. A slot's generation is bumped on
// reuse so old (index, generation) pairs stop resolving.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

func (a *arena[T]) insert(v *T) (uint32, uint32) {
	a.count++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.generation++
		s.value = v
		return idx, s.generation
	}
	a.slots = append(a.slots, slot[T]{value: v})
	return uint32(len(a.slots) - 1), 0
}

func (a *arena[T]) get(idx, gen uint32) (*T, bool) {
	if int(idx) >= len(a.slots) {
		return nil, false
	}
	s := a.slots[idx]
	if s.value == nil || s.generation != gen {
		return nil, false
	}
	return s.value, true
}

func (a *arena[T]) remove(idx, gen uint32) (*T, bool) {
	v, ok := a.get(idx, gen)
	if !ok {
		return nil, false
	}
	a.slots[idx].value = nil
	a.free = append(a.free, idx)
	a.count--
	return v, true
}

func (a *arena[T]) each(fn func(idx, gen uint32, v *T)) {
	for i, s := range a.slots {
		if s.value != nil {
			fn(uint32(i), s.generation, s.value)
		}
	}
}
