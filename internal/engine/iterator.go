package engine

import (
	"strings"

	"github.com/hupe1980/scmemory/model"
)

func patternName(params ...model.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}

	return strings.Join(parts, "_")
}

// Iterator3 enumerates (source, connector, target) triples matching a
// template. It holds no lock between calls to Next.
type Iterator3 struct {
	e      *Engine
	levels model.AccessLevels
	params [3]model.Param

	started bool
	done    bool
	cands   []model.Addr
	pos     int
	cur     model.Triple
	matches int
	err     error
}

// Iterator3 returns a triple iterator. At least one position must be fixed.
// No traversal happens before the first call to Next.
func (e *Engine) Iterator3(levels model.AccessLevels, p1, p2, p3 model.Param) (*Iterator3, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	if !p1.IsFixed() && !p2.IsFixed() && !p3.IsFixed() {
		return nil, ErrUnsupportedTemplate
	}

	return &Iterator3{e: e, levels: levels, params: [3]model.Param{p1, p2, p3}}, nil
}

// Pattern returns the template name, e.g. "f_a_a".
func (it *Iterator3) Pattern() string {
	return patternName(it.params[:]...)
}

// Next advances to the next match. It returns false once the iterator is
// exhausted and keeps returning false afterwards.
func (it *Iterator3) Next() bool {
	if it.done {
		return false
	}

	if err := it.e.checkOpen(); err != nil {
		it.err = err
		it.finish()
		return false
	}

	if !it.started {
		it.started = true
		it.cands = it.e.candidates3(it.levels, it.params)
	}

	for it.pos < len(it.cands) {
		arc := it.cands[it.pos]
		it.pos++

		if t, ok := it.e.match3(it.levels, it.params, arc); ok {
			it.cur = t
			it.matches++
			return true
		}
	}

	it.finish()

	return false
}

func (it *Iterator3) finish() {
	it.done = true
	it.cands = nil
	it.cur = model.Triple{}
}

// Value returns position i (0..2) of the current match.
func (it *Iterator3) Value(i int) model.Addr {
	return it.cur[i]
}

// Triple returns the current match.
func (it *Iterator3) Triple() model.Triple {
	return it.cur
}

// Matches returns the number of matches produced so far.
func (it *Iterator3) Matches() int {
	return it.matches
}

// Err returns the error that ended iteration early, if any.
func (it *Iterator3) Err() error {
	return it.err
}

// candidates3 snapshots the connector candidates for a template: the fixed
// connector itself, or the shorter of the out chain of a fixed source and
// the in chain of a fixed target.
func (e *Engine) candidates3(levels model.AccessLevels, p [3]model.Param) []model.Addr {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if p[1].IsFixed() {
		return []model.Addr{p[1].Addr()}
	}

	src, tgt := p[0], p[2]
	constraint := p[1].Type()

	for _, fp := range []model.Param{src, tgt} {
		if fp.IsFixed() {
			if _, err := e.readable(levels, fp.Addr()); err != nil {
				return nil
			}
		}
	}

	switch {
	case src.IsFixed() && tgt.IsFixed():
		if e.adj.degree(tgt.Addr(), dirIn, constraint) < e.adj.degree(src.Addr(), dirOut, constraint) {
			return e.adj.arcs(tgt.Addr(), dirIn, constraint)
		}
		return e.adj.arcs(src.Addr(), dirOut, constraint)
	case src.IsFixed():
		return e.adj.arcs(src.Addr(), dirOut, constraint)
	case tgt.IsFixed():
		return e.adj.arcs(tgt.Addr(), dirIn, constraint)
	default:
		return nil
	}
}

// match3 validates a candidate connector against the template under the read lock.
func (e *Engine) match3(levels model.AccessLevels, p [3]model.Param, arc model.Addr) (model.Triple, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	slot, err := e.readable(levels, arc)
	if err != nil || !slot.Type.IsArc() || !p[1].Accepts(arc, slot.Type) {
		return model.Triple{}, false
	}

	begin, err := e.readable(levels, slot.Begin)
	if err != nil || !p[0].Accepts(slot.Begin, begin.Type) {
		return model.Triple{}, false
	}

	end, err := e.readable(levels, slot.End)
	if err != nil || !p[2].Accepts(slot.End, end.Type) {
		return model.Triple{}, false
	}

	return model.Triple{slot.Begin, arc, slot.End}, true
}

// Iterator5 enumerates quintuples (a, arc1, b, arc2, c) where arc1 connects
// a to b and arc2 connects c to arc1.
type Iterator5 struct {
	e       *Engine
	levels  model.AccessLevels
	params  [5]model.Param
	reverse bool

	outer   *Iterator3
	inner   *Iterator3
	first   model.Triple
	done    bool
	cur     model.Quintuple
	matches int
	err     error
}

// Iterator5 returns a quintuple iterator. When (a, arc1, b) has a fixed
// position it is resolved first; otherwise c or arc2 must be fixed and the
// attribute arc is resolved first.
func (e *Engine) Iterator5(levels model.AccessLevels, p1, p2, p3, p4, p5 model.Param) (*Iterator5, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	it := &Iterator5{e: e, levels: levels, params: [5]model.Param{p1, p2, p3, p4, p5}}

	var err error

	switch {
	case p1.IsFixed() || p2.IsFixed() || p3.IsFixed():
		it.outer, err = e.Iterator3(levels, p1, p2, p3)
	case p4.IsFixed() || p5.IsFixed():
		it.reverse = true
		it.outer, err = e.Iterator3(levels, p5, p4, model.Any(p2.Type()))
	default:
		return nil, ErrUnsupportedTemplate
	}

	if err != nil {
		return nil, err
	}

	return it, nil
}

// Pattern returns the template name, e.g. "f_a_a_a_a".
func (it *Iterator5) Pattern() string {
	return patternName(it.params[:]...)
}

// Next advances to the next match.
func (it *Iterator5) Next() bool {
	for !it.done {
		if it.inner != nil && it.inner.Next() {
			in := it.inner.Triple()
			if it.reverse {
				it.cur = model.Quintuple{in[0], in[1], in[2], it.first[1], it.first[0]}
			} else {
				it.cur = model.Quintuple{it.first[0], it.first[1], it.first[2], in[1], in[0]}
			}
			it.matches++
			return true
		}

		if it.inner != nil && it.inner.Err() != nil {
			it.err = it.inner.Err()
			break
		}

		if !it.outer.Next() {
			it.err = it.outer.Err()
			break
		}

		it.first = it.outer.Triple()

		p := it.params
		if it.reverse {
			it.inner = &Iterator3{e: it.e, levels: it.levels, params: [3]model.Param{p[0], model.Fixed(it.first[2]), p[2]}}
		} else {
			it.inner = &Iterator3{e: it.e, levels: it.levels, params: [3]model.Param{p[4], p[3], model.Fixed(it.first[1])}}
		}
	}

	it.done = true
	it.inner = nil
	it.cur = model.Quintuple{}

	return false
}

// Value returns position i (0..4) of the current match.
func (it *Iterator5) Value(i int) model.Addr {
	return it.cur[i]
}

// Quintuple returns the current match.
func (it *Iterator5) Quintuple() model.Quintuple {
	return it.cur
}

// Matches returns the number of matches produced so far.
func (it *Iterator5) Matches() int {
	return it.matches
}

// Err returns the error that ended iteration early, if any.
func (it *Iterator5) Err() error {
	return it.err
}
