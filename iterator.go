package scmemory

import (
	"iter"
	"time"

	"github.com/hupe1980/scmemory/internal/engine"
	"github.com/hupe1980/scmemory/model"
)

// Iterator3 is a pull cursor over triples (source, connector, target).
// It performs no traversal until the first call to Next and holds no lock
// between calls.
type Iterator3 struct {
	it       *engine.Iterator3
	metrics  MetricsCollector
	start    time.Time
	recorded bool
}

// Next advances to the next match and reports whether there is one.
func (i *Iterator3) Next() bool {
	if i.start.IsZero() {
		i.start = time.Now()
	}

	if i.it.Next() {
		return true
	}

	if !i.recorded {
		i.recorded = true
		i.metrics.RecordIterate(i.it.Pattern(), i.it.Matches(), time.Since(i.start))
	}

	return false
}

// Value returns position idx (0..2) of the current match.
func (i *Iterator3) Value(idx int) model.Addr { return i.it.Value(idx) }

// Triple returns the current match.
func (i *Iterator3) Triple() model.Triple { return i.it.Triple() }

// Err returns the error that ended iteration early, if any.
func (i *Iterator3) Err() error { return translateError(i.it.Err()) }

// Iterator5 is a pull cursor over quintuples (a, arc1, b, arc2, c) where
// arc1 connects a to b and arc2 connects c to arc1.
type Iterator5 struct {
	it       *engine.Iterator5
	metrics  MetricsCollector
	start    time.Time
	recorded bool
}

// Next advances to the next match and reports whether there is one.
func (i *Iterator5) Next() bool {
	if i.start.IsZero() {
		i.start = time.Now()
	}

	if i.it.Next() {
		return true
	}

	if !i.recorded {
		i.recorded = true
		i.metrics.RecordIterate(i.it.Pattern(), i.it.Matches(), time.Since(i.start))
	}

	return false
}

// Value returns position idx (0..4) of the current match.
func (i *Iterator5) Value(idx int) model.Addr { return i.it.Value(idx) }

// Quintuple returns the current match.
func (i *Iterator5) Quintuple() model.Quintuple { return i.it.Quintuple() }

// Err returns the error that ended iteration early, if any.
func (i *Iterator5) Err() error { return translateError(i.it.Err()) }

// Iterator3 returns a triple iterator. At least one position must be fixed;
// f_a_f, f_a_a, a_a_f, a_f_a and f_f_f are supported.
func (c *MemoryContext) Iterator3(p1, p2, p3 model.Param) (*Iterator3, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	it, err := c.mem.engine.Iterator3(c.levels, p1, p2, p3)
	if err != nil {
		return nil, translateError(err)
	}

	return &Iterator3{it: it, metrics: c.mem.metrics}, nil
}

// Iterator5 returns a quintuple iterator. Either (a, arc1, b) or (arc2, c)
// must contain a fixed position.
func (c *MemoryContext) Iterator5(p1, p2, p3, p4, p5 model.Param) (*Iterator5, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	it, err := c.mem.engine.Iterator5(c.levels, p1, p2, p3, p4, p5)
	if err != nil {
		return nil, translateError(err)
	}

	return &Iterator5{it: it, metrics: c.mem.metrics}, nil
}

// Triples returns the matches of a triple template as a sequence.
//
//	seq, err := ctx.Triples(model.Fixed(a), model.Any(model.ArcPosConstPerm), model.Any(model.Node))
//	for t := range seq {
//	    fmt.Println(t[2])
//	}
func (c *MemoryContext) Triples(p1, p2, p3 model.Param) (iter.Seq[model.Triple], error) {
	it, err := c.Iterator3(p1, p2, p3)
	if err != nil {
		return nil, err
	}

	return func(yield func(model.Triple) bool) {
		for it.Next() {
			if !yield(it.Triple()) {
				return
			}
		}
	}, nil
}

// Quintuples returns the matches of a quintuple template as a sequence.
func (c *MemoryContext) Quintuples(p1, p2, p3, p4, p5 model.Param) (iter.Seq[model.Quintuple], error) {
	it, err := c.Iterator5(p1, p2, p3, p4, p5)
	if err != nil {
		return nil, err
	}

	return func(yield func(model.Quintuple) bool) {
		for it.Next() {
			if !yield(it.Quintuple()) {
				return
			}
		}
	}, nil
}
