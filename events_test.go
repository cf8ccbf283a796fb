package scmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scmemory/model"
)

func TestSubscribeArcEvents(t *testing.T) {
	m := openMemory(t, t.TempDir())
	c := newContext(t, m)

	a, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)
	b, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)

	var out, in, removed []Event

	cancelOut := m.Subscribe(EventAddOutputArc, a, func(ev Event) { out = append(out, ev) })
	defer cancelOut()

	cancelIn := m.Subscribe(EventAddInputArc, b, func(ev Event) { in = append(in, ev) })

	cancelRemoved := m.Subscribe(EventRemoveInputArc, b, func(ev Event) { removed = append(removed, ev) })
	defer cancelRemoved()

	arc, err := c.CreateArc(model.ArcPosConstPerm, a, b)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, Event{Kind: EventAddOutputArc, Element: a, Type: model.ArcPosConstPerm, Arc: arc, Other: b}, out[0])

	require.Len(t, in, 1)
	assert.Equal(t, a, in[0].Other)

	// Arcs from other elements are not delivered.
	_, err = c.CreateArc(model.ArcPosConstPerm, b, b)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Len(t, in, 2)

	cancelIn()
	cancelIn()

	_, err = c.CreateArc(model.ArcPosConstPerm, a, b)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Len(t, in, 2)

	require.NoError(t, c.EraseElement(a))
	assert.Len(t, removed, 2)
}

func TestSubscribeAllElements(t *testing.T) {
	ctx := context.Background()
	m := openMemory(t, t.TempDir())
	c := newContext(t, m)

	var created, erased, changed, idtf []Event

	m.Subscribe(EventElementCreated, model.EmptyAddr, func(ev Event) { created = append(created, ev) })
	m.Subscribe(EventElementErased, model.EmptyAddr, func(ev Event) { erased = append(erased, ev) })
	m.Subscribe(EventContentChanged, model.EmptyAddr, func(ev Event) { changed = append(changed, ev) })
	m.Subscribe(EventIdentifierSet, model.EmptyAddr, func(ev Event) { idtf = append(idtf, ev) })

	a, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)
	b, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)
	_, err = c.CreateArc(model.ArcPosConstPerm, a, b)
	require.NoError(t, err)
	l, err := c.CreateLink()
	require.NoError(t, err)

	assert.Len(t, created, 4)

	require.NoError(t, c.SetLinkContent(ctx, l, []byte("x")))
	require.Len(t, changed, 1)
	assert.Equal(t, l, changed[0].Element)

	require.NoError(t, c.EraseElement(a))
	assert.Len(t, erased, 2)
	assert.Equal(t, a, erased[0].Element)

	_, err = c.SetSystemIdentifier(ctx, b, "b")
	require.NoError(t, err)

	require.Len(t, idtf, 1)
	assert.Equal(t, b, idtf[0].Element)
	assert.Equal(t, "b", idtf[0].Name)
	assert.Equal(t, ScopeSystem, idtf[0].Scope)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "add_output_arc", EventAddOutputArc.String())
	assert.Equal(t, "identifier_set", EventIdentifierSet.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}
