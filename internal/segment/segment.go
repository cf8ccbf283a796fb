package segment

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/scmemory/model"
)

const (
	// Capacity is the number of slots per segment.
	Capacity = 8192

	// RecordSize is the encoded size of one slot.
	RecordSize = 32

	// HeaderSize is the encoded size of the segment header.
	HeaderSize = 32

	// BlockSize is the exact on-disk size of one segment.
	BlockSize = HeaderSize + Capacity*RecordSize
)

const stateLive uint8 = 0x01

// Slot is one element record.
type Slot struct {
	Type   model.Type
	Access model.AccessLevels
	State  uint8
	Gen    uint32
	Begin  model.Addr
	End    model.Addr
}

// Live reports whether the slot holds an element.
func (s *Slot) Live() bool {
	return s.State&stateLive != 0
}

// Segment is a fixed array of slots plus its free-slot bitmap.
// It is not safe for concurrent use; the engine lock guards it.
type Segment struct {
	id    uint32
	slots []Slot
	free  *roaring.Bitmap
	live  int
}

// New creates an empty segment.
func New(id uint32) *Segment {
	free := roaring.New()
	free.AddRange(0, Capacity)

	return &Segment{
		id:    id,
		slots: make([]Slot, Capacity),
		free:  free,
	}
}

// ID returns the segment index.
func (s *Segment) ID() uint32 { return s.id }

// Live returns the number of live slots.
func (s *Segment) Live() int { return s.live }

// Free returns the number of free slots.
func (s *Segment) Free() int { return Capacity - s.live }

// Full reports whether no slot is free.
func (s *Segment) Full() bool { return s.free.IsEmpty() }

// Empty reports whether no slot is live.
func (s *Segment) Empty() bool { return s.live == 0 }

// Alloc marks the lowest free slot live, stamps it with gen and returns its offset.
func (s *Segment) Alloc(gen uint32) (uint32, error) {
	if s.free.IsEmpty() {
		return 0, ErrFull
	}

	off := s.free.Minimum()
	s.free.Remove(off)

	s.slots[off] = Slot{State: stateLive, Gen: gen}
	s.live++

	return off, nil
}

// Release frees a live slot. The record is cleared but keeps its generation.
func (s *Segment) Release(off uint32) error {
	if off >= Capacity {
		return ErrInvalidOffset
	}

	slot := &s.slots[off]
	if !slot.Live() {
		return nil
	}

	*slot = Slot{Gen: slot.Gen}
	s.free.Add(off)
	s.live--

	return nil
}

// Slot returns the record at off, or nil when off is out of range.
func (s *Segment) Slot(off uint32) *Slot {
	if off >= Capacity {
		return nil
	}

	return &s.slots[off]
}

// Lookup returns the live record addressed by addr, or nil.
func (s *Segment) Lookup(addr model.Addr) *Slot {
	slot := s.Slot(addr.Offset)
	if slot == nil || !slot.Live() || slot.Gen != addr.Gen {
		return nil
	}

	return slot
}

// Addr returns the address of the occupant of off.
func (s *Segment) Addr(off uint32) model.Addr {
	return model.Addr{Seg: s.id, Offset: off, Gen: s.slots[off].Gen}
}

// ForEachLive calls fn for every live slot in offset order until fn returns false.
func (s *Segment) ForEachLive(fn func(addr model.Addr, slot *Slot) bool) {
	if s.live == 0 {
		return
	}

	for off := range s.slots {
		slot := &s.slots[off]
		if !slot.Live() {
			continue
		}

		if !fn(model.Addr{Seg: s.id, Offset: uint32(off), Gen: slot.Gen}, slot) {
			return
		}
	}
}
