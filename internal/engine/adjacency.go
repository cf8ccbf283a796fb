package engine

import (
	"cmp"
	"slices"

	"github.com/hupe1980/scmemory/model"
)

type direction uint8

const (
	dirOut direction = iota
	dirIn
)

// adjEntry is one incident arc. seq orders entries by insertion across all
// type buckets of an element.
type adjEntry struct {
	seq uint64
	arc model.Addr
}

// chains groups the incident arcs of one element by arc type.
type chains map[model.Type][]adjEntry

// adjacency indexes incident arcs per element, direction and arc type.
// It is guarded by the engine lock.
type adjacency struct {
	seq uint64
	out map[uint64]chains
	in  map[uint64]chains
}

func newAdjacency() *adjacency {
	return &adjacency{
		out: make(map[uint64]chains),
		in:  make(map[uint64]chains),
	}
}

func (a *adjacency) side(d direction) map[uint64]chains {
	if d == dirOut {
		return a.out
	}

	return a.in
}

// add links arc into the out chain of begin and the in chain of end.
func (a *adjacency) add(arc model.Addr, t model.Type, begin, end model.Addr) {
	a.seq++
	a.push(a.out, begin, t, adjEntry{seq: a.seq, arc: arc})
	a.push(a.in, end, t, adjEntry{seq: a.seq, arc: arc})
}

func (a *adjacency) push(side map[uint64]chains, el model.Addr, t model.Type, e adjEntry) {
	c, ok := side[el.Key()]
	if !ok {
		c = make(chains)
		side[el.Key()] = c
	}

	list := c[t]
	if n := len(list); n == 0 || list[n-1].seq < e.seq {
		c[t] = append(list, e)
		return
	}

	i, _ := slices.BinarySearchFunc(list, e.seq, func(x adjEntry, seq uint64) int {
		return cmp.Compare(x.seq, seq)
	})
	c[t] = slices.Insert(list, i, e)
}

// remove unlinks arc from both chains and returns its entry.
func (a *adjacency) remove(arc model.Addr, t model.Type, begin, end model.Addr) (adjEntry, bool) {
	e, ok := a.pull(a.out, begin, t, arc)
	a.pull(a.in, end, t, arc)

	return e, ok
}

func (a *adjacency) pull(side map[uint64]chains, el model.Addr, t model.Type, arc model.Addr) (adjEntry, bool) {
	c, ok := side[el.Key()]
	if !ok {
		return adjEntry{}, false
	}

	list := c[t]

	i := slices.IndexFunc(list, func(x adjEntry) bool { return x.arc == arc })
	if i < 0 {
		return adjEntry{}, false
	}

	e := list[i]

	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(c, t)
		if len(c) == 0 {
			delete(side, el.Key())
		}
	} else {
		c[t] = list
	}

	return e, true
}

// retype moves arc to the chains of its new type and keeps its position.
func (a *adjacency) retype(arc model.Addr, from, to model.Type, begin, end model.Addr) {
	if from == to {
		return
	}

	e, ok := a.pull(a.out, begin, from, arc)
	if !ok {
		return
	}
	a.pull(a.in, end, from, arc)

	a.push(a.out, begin, to, e)
	a.push(a.in, end, to, e)
}

// drop forgets both chain sets of el.
func (a *adjacency) drop(el model.Addr) {
	delete(a.out, el.Key())
	delete(a.in, el.Key())
}

// degree counts the arcs incident to el in direction d whose type matches constraint.
func (a *adjacency) degree(el model.Addr, d direction, constraint model.Type) int {
	n := 0
	for t, list := range a.side(d)[el.Key()] {
		if t.Matches(constraint) {
			n += len(list)
		}
	}

	return n
}

// arcs returns the arcs incident to el in direction d whose type matches
// constraint, in insertion order.
func (a *adjacency) arcs(el model.Addr, d direction, constraint model.Type) []model.Addr {
	c := a.side(d)[el.Key()]
	if len(c) == 0 {
		return nil
	}

	var (
		entries []adjEntry
		buckets int
	)

	for t, list := range c {
		if !t.Matches(constraint) {
			continue
		}

		entries = append(entries, list...)
		buckets++
	}

	if buckets > 1 {
		slices.SortFunc(entries, func(x, y adjEntry) int { return cmp.Compare(x.seq, y.seq) })
	}

	out := make([]model.Addr, len(entries))
	for i, e := range entries {
		out[i] = e.arc
	}

	return out
}
