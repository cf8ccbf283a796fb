package testutil

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/scmemory/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := make([]byte, n)
	_, _ = r.rand.Read(b)

	return b
}

// Payloads returns num distinct payloads of at most maxLen bytes. Each
// payload starts with its index so no two are equal.
func (r *RNG) Payloads(num, maxLen int) [][]byte {
	out := make([][]byte, num)
	for i := range out {
		out[i] = append([]byte(fmt.Sprintf("%06d:", i)), r.Bytes(r.Intn(maxLen+1))...)
	}

	return out
}

// Builder creates elements. *scmemory.MemoryContext implements it.
type Builder interface {
	CreateNode(t model.Type) (model.Addr, error)
	CreateLink() (model.Addr, error)
	CreateArc(t model.Type, begin, end model.Addr) (model.Addr, error)
}

// Graph is a reference model of the elements created through a Builder.
type Graph struct {
	Nodes []model.Addr
	Arcs  []model.Addr

	ends  map[model.Addr][2]model.Addr
	types map[model.Addr]model.Type
	live  map[model.Addr]bool
}

// NewGraph returns an empty reference model.
func NewGraph() *Graph {
	return &Graph{
		ends:  make(map[model.Addr][2]model.Addr),
		types: make(map[model.Addr]model.Type),
		live:  make(map[model.Addr]bool),
	}
}

var arcTypes = []model.Type{
	model.ArcPosConstPerm,
	model.ArcCommonConst,
	model.ArcNegConstPerm,
	model.ArcPosVarPerm,
}

// RandomGraph creates nodes and then arcs between random live elements,
// including earlier arcs, and records them in a Graph.
func RandomGraph(b Builder, rng *RNG, nodes, arcs int) (*Graph, error) {
	g := NewGraph()

	for range nodes {
		a, err := b.CreateNode(model.NodeConst)
		if err != nil {
			return nil, err
		}

		g.AddNode(a, model.NodeConst)
	}

	for range arcs {
		all := g.Elements()
		if len(all) == 0 {
			break
		}

		begin := all[rng.Intn(len(all))]
		end := all[rng.Intn(len(all))]
		t := arcTypes[rng.Intn(len(arcTypes))]

		a, err := b.CreateArc(t, begin, end)
		if err != nil {
			return nil, err
		}

		g.AddArc(a, t, begin, end)
	}

	return g, nil
}

// AddNode records a node or link.
func (g *Graph) AddNode(a model.Addr, t model.Type) {
	g.Nodes = append(g.Nodes, a)
	g.types[a] = t
	g.live[a] = true
}

// AddArc records an arc.
func (g *Graph) AddArc(a model.Addr, t model.Type, begin, end model.Addr) {
	g.Arcs = append(g.Arcs, a)
	g.types[a] = t
	g.ends[a] = [2]model.Addr{begin, end}
	g.live[a] = true
}

// IsLive reports whether a was recorded and not erased.
func (g *Graph) IsLive(a model.Addr) bool { return g.live[a] }

// Type returns the recorded type of a.
func (g *Graph) Type(a model.Addr) model.Type { return g.types[a] }

// Elements returns every live element in creation order, nodes first.
func (g *Graph) Elements() []model.Addr {
	out := make([]model.Addr, 0, len(g.Nodes)+len(g.Arcs))
	for _, a := range g.Nodes {
		if g.live[a] {
			out = append(out, a)
		}
	}

	for _, a := range g.Arcs {
		if g.live[a] {
			out = append(out, a)
		}
	}

	return out
}

// OutArcs returns the live arcs leaving a, in creation order.
func (g *Graph) OutArcs(a model.Addr) []model.Addr {
	var out []model.Addr
	for _, arc := range g.Arcs {
		if g.live[arc] && g.ends[arc][0] == a {
			out = append(out, arc)
		}
	}

	return out
}

// InArcs returns the live arcs entering a, in creation order.
func (g *Graph) InArcs(a model.Addr) []model.Addr {
	var out []model.Addr
	for _, arc := range g.Arcs {
		if g.live[arc] && g.ends[arc][1] == a {
			out = append(out, arc)
		}
	}

	return out
}

// EraseSet returns a and every live arc that transitively depends on it, sorted by key.
func (g *Graph) EraseSet(a model.Addr) []model.Addr {
	if !g.live[a] {
		return nil
	}

	seen := map[model.Addr]bool{a: true}
	queue := []model.Addr{a}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, arc := range g.Arcs {
			if !g.live[arc] || seen[arc] {
				continue
			}

			if e := g.ends[arc]; e[0] == cur || e[1] == cur {
				seen[arc] = true
				queue = append(queue, arc)
			}
		}
	}

	out := make([]model.Addr, 0, len(seen))
	for el := range seen {
		out = append(out, el)
	}

	slices.SortFunc(out, func(x, y model.Addr) int {
		switch {
		case x.Key() < y.Key():
			return -1
		case x.Key() > y.Key():
			return 1
		default:
			return 0
		}
	})

	return out
}

// Erase applies the erase of a to the model and returns the removed elements.
func (g *Graph) Erase(a model.Addr) []model.Addr {
	gone := g.EraseSet(a)
	for _, el := range gone {
		g.live[el] = false
	}

	return gone
}
