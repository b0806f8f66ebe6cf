package transform

const (
	delBefore = 1
	delAfter  = 2
	delAcross = 4
	delSide   = 8

	recoverFactor = 1 << 16
	noRecover     = -1
)

func makeRecover(index, offset int) int { return index + offset*recoverFactor }
func recoverIndex(value int) int        { return value & (recoverFactor - 1) }
func recoverOffset(value int) int       { return (value - recoverIndex(value)) / recoverFactor }

// MapResult is the result of mapping a position, including information
// about whether the content around it was deleted.
type MapResult struct {
	// Pos is the mapped position.
	Pos int

	delInfo int
	recover int
}

// Deleted reports whether the position was deleted, that is, whether the
// step removed the token on the side queried by the assoc argument.
func (r MapResult) Deleted() bool { return r.delInfo&delSide > 0 }

// DeletedBefore reports whether the token before the position was deleted.
func (r MapResult) DeletedBefore() bool { return r.delInfo&(delBefore|delAcross) > 0 }

// DeletedAfter reports whether the token after the position was deleted.
func (r MapResult) DeletedAfter() bool { return r.delInfo&(delAfter|delAcross) > 0 }

// DeletedAcross reports whether a deleted range spans across the position.
func (r MapResult) DeletedAcross() bool { return r.delInfo&delAcross > 0 }

// Mappable is anything that can map positions: a StepMap or a Mapping.
type Mappable interface {
	// Map maps a position. assoc < 0 keeps the position to the left of
	// content inserted at it, assoc > 0 to the right.
	Map(pos, assoc int) int
	MapResult(pos, assoc int) MapResult
}

// StepMap describes the deleted and inserted ranges of a single step as a
// flat list of (start, oldSize, newSize) triples.
type StepMap struct {
	ranges   []int
	inverted bool
}

// EmptyStepMap maps every position to itself.
var EmptyStepMap = &StepMap{}

// NewStepMap creates a step map from (start, oldSize, newSize) triples.
func NewStepMap(ranges ...int) *StepMap {
	if len(ranges) == 0 {
		return EmptyStepMap
	}
	return &StepMap{ranges: ranges}
}

// OffsetStepMap returns a map that shifts all positions by n.
func OffsetStepMap(n int) *StepMap {
	switch {
	case n == 0:
		return EmptyStepMap
	case n < 0:
		return NewStepMap(0, -n, 0)
	default:
		return NewStepMap(0, 0, n)
	}
}

func (m *StepMap) indexes() (oldIndex, newIndex int) {
	if m.inverted {
		return 2, 1
	}
	return 1, 2
}

// Recover maps a recovery value produced by this map's inverse.
func (m *StepMap) Recover(value int) int {
	diff := 0
	index := recoverIndex(value)
	if !m.inverted {
		for i := 0; i < index; i++ {
			diff += m.ranges[i*3+2] - m.ranges[i*3+1]
		}
	}
	return m.ranges[index*3] + diff + recoverOffset(value)
}

// MapResult maps a position and reports deletion information.
func (m *StepMap) MapResult(pos, assoc int) MapResult {
	return m.mapPos(pos, assoc, false)
}

// Map maps a position.
func (m *StepMap) Map(pos, assoc int) int {
	return m.mapPos(pos, assoc, true).Pos
}

func (m *StepMap) mapPos(pos, assoc int, simple bool) MapResult {
	diff := 0
	oldIndex, newIndex := m.indexes()
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		if m.inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize, newSize := m.ranges[i+oldIndex], m.ranges[i+newIndex]
		end := start + oldSize
		if pos <= end {
			side := assoc
			if oldSize != 0 {
				if pos == start {
					side = -1
				} else if pos == end {
					side = 1
				}
			}
			result := start + diff
			if side >= 0 {
				result += newSize
			}
			if simple {
				return MapResult{Pos: result, recover: noRecover}
			}
			edge := end
			if assoc < 0 {
				edge = start
			}
			recover := noRecover
			if pos != edge {
				recover = makeRecover(i/3, pos-start)
			}
			del := delAcross
			if pos == start {
				del = delAfter
			} else if pos == end {
				del = delBefore
			}
			if (assoc < 0 && pos != start) || (assoc >= 0 && pos != end) {
				del |= delSide
			}
			return MapResult{Pos: result, delInfo: del, recover: recover}
		}
		diff += newSize - oldSize
	}
	return MapResult{Pos: pos + diff, recover: noRecover}
}

// Touches reports whether the given recovery value points into the range
// of this map that touches pos.
func (m *StepMap) Touches(pos, recover int) bool {
	diff := 0
	index := recoverIndex(recover)
	oldIndex, newIndex := m.indexes()
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		if m.inverted {
			start -= diff
		}
		if start > pos {
			break
		}
		oldSize := m.ranges[i+oldIndex]
		end := start + oldSize
		if pos <= end && i == index*3 {
			return true
		}
		diff += m.ranges[i+newIndex] - oldSize
	}
	return false
}

// ForEach calls fn for each changed range with its old and new extent.
func (m *StepMap) ForEach(fn func(oldStart, oldEnd, newStart, newEnd int)) {
	oldIndex, newIndex := m.indexes()
	diff := 0
	for i := 0; i < len(m.ranges); i += 3 {
		start := m.ranges[i]
		oldStart, newStart := start, start
		if m.inverted {
			oldStart -= diff
		} else {
			newStart += diff
		}
		oldSize, newSize := m.ranges[i+oldIndex], m.ranges[i+newIndex]
		fn(oldStart, oldStart+oldSize, newStart, newStart+newSize)
		diff += newSize - oldSize
	}
}

// Invert returns the map that undoes this one.
func (m *StepMap) Invert() *StepMap {
	if len(m.ranges) == 0 {
		return m
	}
	return &StepMap{ranges: m.ranges, inverted: !m.inverted}
}

// Empty reports whether the map has no ranges.
func (m *StepMap) Empty() bool { return len(m.ranges) == 0 }

// Mapping is a pipeline of step maps. Maps can be marked as mirrors of
// each other, meaning one undoes the other, which lets positions deleted by
// the first be recovered by the second.
type Mapping struct {
	maps   []*StepMap
	mirror []int
	from   int
	to     int
}

// NewMapping creates a mapping over the given maps.
func NewMapping(maps ...*StepMap) *Mapping {
	return &Mapping{maps: maps, to: len(maps)}
}

// Maps returns the maps in this mapping's range.
func (m *Mapping) Maps() []*StepMap {
	return m.maps[m.from:m.to]
}

// Len returns the number of maps in the mapping's range.
func (m *Mapping) Len() int { return m.to - m.from }

// Slice returns a mapping over a sub-range of this one's maps.
func (m *Mapping) Slice(from, to int) *Mapping {
	return &Mapping{maps: m.maps[:m.to:m.to], mirror: m.mirror[:len(m.mirror):len(m.mirror)], from: m.from + from, to: m.from + to}
}

// SliceFrom returns a mapping from index from to the end.
func (m *Mapping) SliceFrom(from int) *Mapping {
	return m.Slice(from, m.Len())
}

// Copy returns an independent copy.
func (m *Mapping) Copy() *Mapping {
	cp := NewMapping()
	cp.AppendMapping(m)
	return cp
}

// AppendMap adds a map to the end. mirrors is the index of a map this one
// mirrors, or -1.
func (m *Mapping) AppendMap(sm *StepMap, mirrors int) {
	if m.to != len(m.maps) {
		m.maps = append([]*StepMap(nil), m.maps[:m.to]...)
	}
	m.maps = append(m.maps, sm)
	m.to = len(m.maps)
	if mirrors >= 0 {
		m.SetMirror(len(m.maps)-1, mirrors)
	}
}

// AppendMapping appends all maps of another mapping, keeping its mirrors.
func (m *Mapping) AppendMapping(other *Mapping) {
	startSize := len(m.maps)
	for i := other.from; i < other.to; i++ {
		mirr := other.GetMirror(i)
		if mirr >= other.from && mirr < i {
			m.AppendMap(other.maps[i], startSize+mirr-other.from)
		} else {
			m.AppendMap(other.maps[i], -1)
		}
	}
}

// AppendMappingInverted appends the inverse of another mapping.
func (m *Mapping) AppendMappingInverted(other *Mapping) {
	totalSize := len(m.maps) + other.Len()
	for i := other.to - 1; i >= other.from; i-- {
		mirr := other.GetMirror(i)
		if mirr > i && mirr < other.to {
			m.AppendMap(other.maps[i].Invert(), totalSize-(mirr-other.from)-1)
		} else {
			m.AppendMap(other.maps[i].Invert(), -1)
		}
	}
}

// Invert returns the inverse mapping.
func (m *Mapping) Invert() *Mapping {
	inverse := NewMapping()
	inverse.AppendMappingInverted(m)
	return inverse
}

// GetMirror returns the index of the map mirroring map n, or -1.
func (m *Mapping) GetMirror(n int) int {
	for i := 0; i < len(m.mirror); i++ {
		if m.mirror[i] == n {
			if i%2 == 1 {
				return m.mirror[i-1]
			}
			return m.mirror[i+1]
		}
	}
	return -1
}

// SetMirror marks maps n and mirror as mirrors of each other.
func (m *Mapping) SetMirror(n, mirror int) {
	m.mirror = append(m.mirror, n, mirror)
}

// Map maps a position through the whole mapping.
func (m *Mapping) Map(pos, assoc int) int {
	if len(m.mirror) > 0 {
		return m.mapPos(pos, assoc).Pos
	}
	for i := m.from; i < m.to; i++ {
		pos = m.maps[i].Map(pos, assoc)
	}
	return pos
}

// MapResult maps a position and accumulates deletion information.
func (m *Mapping) MapResult(pos, assoc int) MapResult {
	return m.mapPos(pos, assoc)
}

func (m *Mapping) mapPos(pos, assoc int) MapResult {
	delInfo := 0
	for i := m.from; i < m.to; i++ {
		sm := m.maps[i]
		result := sm.MapResult(pos, assoc)
		if result.recover != noRecover {
			corr := m.GetMirror(i)
			if corr >= 0 && corr > i && corr < m.to {
				i = corr
				pos = m.maps[corr].Recover(result.recover)
				continue
			}
		}
		delInfo |= result.delInfo
		pos = result.Pos
	}
	return MapResult{Pos: pos, delInfo: delInfo, recover: noRecover}
}
