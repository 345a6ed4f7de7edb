package sim

import "strconv"

// Entity is a generational handle. The low 32 bits are a slot id starting
// at 1 and the high 32 bits the slot's generation, so a handle goes stale
// once its slot is reused.
type Entity uint64

const entityIDBits = 32

func makeEntity(id, gen uint32) Entity {
	return Entity(uint64(gen)<<entityIDBits | uint64(id))
}

func (e Entity) id() uint32 {
	return uint32(e)
}

func (e Entity) generation() uint32 {
	return uint32(uint64(e) >> entityIDBits)
}

func (e Entity) String() string {
	return strconv.FormatUint(uint64(e.id()), 10) + "v" + strconv.FormatUint(uint64(e.generation()), 10)
}

func (e Entity) Valid() bool {
	return e.id() > 0
}

// entityStore tracks slot generations and free slots.
type entityStore struct {
	gen  []uint32
	free []uint32
}

func (s *entityStore) create() Entity {
	var id uint32
	if n := len(s.free); n > 0 {
		id = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.gen = append(s.gen, 0)
		id = uint32(len(s.gen))
	}
	return makeEntity(id, s.gen[id-1])
}

func (s *entityStore) destroy(e Entity) bool {
	if !s.isAlive(e) {
		return false
	}
	s.gen[e.id()-1]++
	s.free = append(s.free, e.id())
	return true
}

func (s *entityStore) isAlive(e Entity) bool {
	id := e.id()
	if id == 0 || int(id) > len(s.gen) {
		return false
	}
	return s.gen[id-1] == e.generation()
}

// handle rebuilds the live handle for a slot.
func (s *entityStore) handle(id uint32) Entity {
	return makeEntity(id, s.gen[id-1])
}
