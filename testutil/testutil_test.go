package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scmemory/model"
)

type fakeBuilder struct {
	next uint32
}

func (b *fakeBuilder) addr() model.Addr {
	b.next++
	return model.Addr{Seg: 0, Offset: b.next, Gen: b.next}
}

func (b *fakeBuilder) CreateNode(model.Type) (model.Addr, error) { return b.addr(), nil }
func (b *fakeBuilder) CreateLink() (model.Addr, error) { return b.addr(), nil }
func (b *fakeBuilder) CreateArc(model.Type, model.Addr, model.Addr) (model.Addr, error) {
	return b.addr(), nil
}

func TestRandomGraph(t *testing.T) {
	rng := NewRNG(4711)

	g, err := RandomGraph(&fakeBuilder{}, rng, 10, 30)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 10)
	assert.Len(t, g.Arcs, 30)
	assert.Len(t, g.Elements(), 40)

	var out int
	for _, a := range g.Elements() {
		out += len(g.OutArcs(a))
	}

	assert.Equal(t, 30, out)
}

func TestEraseSet(t *testing.T) {
	g := NewGraph()
	a := model.Addr{Offset: 1, Gen: 1}
	b := model.Addr{Offset: 2, Gen: 1}
	c := model.Addr{Offset: 3, Gen: 1}
	ab := model.Addr{Offset: 4, Gen: 1}
	cab := model.Addr{Offset: 5, Gen: 1}
	bc := model.Addr{Offset: 6, Gen: 1}

	g.AddNode(a, model.NodeConst)
	g.AddNode(b, model.NodeConst)
	g.AddNode(c, model.NodeConst)
	g.AddArc(ab, model.ArcPosConstPerm, a, b)
	g.AddArc(cab, model.ArcPosConstPerm, c, ab)
	g.AddArc(bc, model.ArcPosConstPerm, b, c)

	assert.Equal(t, []model.Addr{a, ab, cab}, g.EraseSet(a))

	gone := g.Erase(a)
	assert.Len(t, gone, 3)
	assert.False(t, g.IsLive(ab))
	assert.True(t, g.IsLive(bc))
	assert.Equal(t, []model.Addr{bc}, g.OutArcs(b))
	assert.Empty(t, g.InArcs(b))
	assert.Nil(t, g.EraseSet(a))
}

func TestPayloads(t *testing.T) {
	rng := NewRNG(4711)

	p := rng.Payloads(20, 16)
	require.Len(t, p, 20)

	seen := make(map[string]bool)
	for _, b := range p {
		assert.False(t, seen[string(b)])
		seen[string(b)] = true
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	b1 := rng.Bytes(16)

	rng.Reset()
	b2 := rng.Bytes(16)

	assert.Equal(t, b1, b2)
	assert.Equal(t, int64(4711), rng.Seed())
}
