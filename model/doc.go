// Package model defines the core types shared by every layer of scmemory.
//
// # Identity Types
//
//   - Addr: Element address (Seg, Offset, Gen). The zero value is the
//     invalid sentinel; an address stays valid only while its slot holds the
//     same generation.
//
// # Element Types
//
//   - Type: sc-type bitmask. The low five bits select the element category
//     (node, link, edge, arc). Remaining bits carry constancy, arc polarity
//     and permanence, or node structure.
//   - AccessLevels: read level in the low nibble, write level in the high one.
//
// # Pattern Types
//
//   - Param: one position of an iterator template, either Fixed(addr) or
//     Any(type).
//   - Triple, Quintuple: iterator results.
//
// Templates are built from params:
//
//	it := ctx.Iterator3(model.Fixed(class), model.Any(model.ArcPosConstPerm), model.Any(model.Node))
package model
