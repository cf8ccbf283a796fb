// Package engine implements the sc-memory core.
//
// The engine orchestrates:
//   - fixed-size segments of element slots with generation-checked addresses
//   - the adjacency index of incident arcs per element and arc type
//   - cascading erase over incident arcs
//   - triple and quintuple pattern iterators
//   - snapshot saves and validated loads of the repository
package engine
