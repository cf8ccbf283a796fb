package model

import (
	"fmt"
)

// SegmentID identifies a segment. Segments are numbered densely from zero.
type SegmentID = uint32

// Addr is the opaque address of an element.
//
// Seg and Offset locate the slot, Gen identifies the occupant. A slot that
// is erased and reused gets a new generation so stale addresses never alias
// the new element.
type Addr struct {
	Seg    uint32
	Offset uint32
	Gen    uint32
}

// EmptyAddr is the invalid sentinel.
var EmptyAddr = Addr{}

// IsEmpty reports whether a is the zero address.
func (a Addr) IsEmpty() bool {
	return a.Gen == 0
}

// Key packs segment and offset into a single integer. The generation is not
// part of the key.
func (a Addr) Key() uint64 {
	return uint64(a.Seg)<<32 | uint64(a.Offset)
}

// AddrFromKey is the inverse of Key.
func AddrFromKey(key uint64, gen uint32) Addr {
	return Addr{Seg: uint32(key >> 32), Offset: uint32(key), Gen: gen}
}

// String returns a string representation of the address.
func (a Addr) String() string {
	if a.IsEmpty() {
		return "Addr(empty)"
	}

	return fmt.Sprintf("Addr(%d:%d#%d)", a.Seg, a.Offset, a.Gen)
}

// Triple is one result of a three-element template: source, connector, target.
type Triple [3]Addr

// Quintuple is one result of a five-element template:
// source, arc1, target, arc2, attribute (arc2 goes from attribute to arc1).
type Quintuple [5]Addr
