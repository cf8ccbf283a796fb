package scmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scmemory/model"
)

func TestSystemIdentifier(t *testing.T) {
	ctx := context.Background()
	m := openMemory(t, t.TempDir())
	c := newContext(t, m)

	_, err := c.FindElementBySystemIdentifier("apple")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, m.Stats().Nodes)

	apple, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)
	pear, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)

	ok, err := c.SetSystemIdentifier(ctx, apple, "apple")
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := c.FindElementBySystemIdentifier("apple")
	require.NoError(t, err)
	assert.Equal(t, apple, found)

	name, err := c.ElementIdentifier(ctx, ScopeSystem, apple)
	require.NoError(t, err)
	assert.Equal(t, "apple", name)

	// Setting the same identifier again is a no-op.
	ok, err = c.SetSystemIdentifier(ctx, apple, "apple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetSystemIdentifier(ctx, pear, "apple")
	assert.ErrorIs(t, err, ErrIdentifierInUse)
	assert.False(t, ok)

	_, err = c.SetSystemIdentifier(ctx, pear, "")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = c.ElementIdentifier(ctx, ScopeSystem, pear)
	assert.ErrorIs(t, err, ErrNotFound)

	// Renaming releases the old identifier.
	ok, err = c.SetSystemIdentifier(ctx, apple, "green_apple")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = c.FindElementBySystemIdentifier("apple")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = c.SetSystemIdentifier(ctx, pear, "apple")
	require.NoError(t, err)
	assert.True(t, ok)

	found, err = c.FindElementBySystemIdentifier("green_apple")
	require.NoError(t, err)
	assert.Equal(t, apple, found)

	// Erasing the element releases its identifier.
	require.NoError(t, c.EraseElement(pear))

	_, err = c.FindElementBySystemIdentifier("apple")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.SetSystemIdentifier(ctx, pear, "pear")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestIdentifierKeynodes(t *testing.T) {
	ctx := context.Background()
	m := openMemory(t, t.TempDir())
	c := newContext(t, m)

	n, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)

	_, err = c.SetSystemIdentifier(ctx, n, "n")
	require.NoError(t, err)
	require.NoError(t, c.SetMainIdentifier(ctx, n, "N"))

	sys, err := c.FindElementBySystemIdentifier(systemIdentifierKeynode)
	require.NoError(t, err)

	name, err := c.ElementIdentifier(ctx, ScopeSystem, sys)
	require.NoError(t, err)
	assert.Equal(t, systemIdentifierKeynode, name)

	main, err := c.FindElementBySystemIdentifier(mainIdentifierKeynode)
	require.NoError(t, err)
	assert.NotEqual(t, sys, main)

	levels, err := c.ElementAccessLevels(main)
	require.NoError(t, err)
	assert.Equal(t, keynodeLevels, levels)

	// Keynodes are readable with the lowest levels.
	guest, err := m.NewContext(model.AccessLevelsMin, "guest")
	require.NoError(t, err)

	found, err := guest.FindElementBySystemIdentifier(mainIdentifierKeynode)
	require.NoError(t, err)
	assert.Equal(t, main, found)
}

func TestMainIdentifier(t *testing.T) {
	ctx := context.Background()
	m := openMemory(t, t.TempDir())
	c := newContext(t, m)

	a, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)
	b, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)

	found, err := c.FindElementsByMainIdentifier("Apple")
	require.NoError(t, err)
	assert.Empty(t, found)

	require.NoError(t, c.SetMainIdentifier(ctx, a, "Apple"))
	require.NoError(t, c.SetMainIdentifier(ctx, b, "Apple"))

	found, err = c.FindElementsByMainIdentifier("Apple")
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.Addr{a, b}, found)

	require.NoError(t, c.SetMainIdentifier(ctx, b, "Pear"))

	found, err = c.FindElementsByMainIdentifier("Apple")
	require.NoError(t, err)
	assert.Equal(t, []model.Addr{a}, found)

	name, err := c.ElementIdentifier(ctx, ScopeMain, b)
	require.NoError(t, err)
	assert.Equal(t, "Pear", name)

	// Main identifiers do not leak into the system scope.
	_, err = c.FindElementBySystemIdentifier("Apple")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestElementIdentifierWithoutContent(t *testing.T) {
	ctx := context.Background()
	m := openMemory(t, t.TempDir())
	c := newContext(t, m)

	a, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)
	require.NoError(t, c.SetMainIdentifier(ctx, a, "Apple"))

	rel, err := m.keynode(ctx, ScopeMain, false)
	require.NoError(t, err)
	require.False(t, rel.IsEmpty())

	// An identifier link that never received its name.
	b, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)
	l, err := c.CreateLink()
	require.NoError(t, err)
	arc, err := c.CreateArc(model.ArcCommonConst, b, l)
	require.NoError(t, err)
	_, err = c.CreateArc(model.ArcPosConstPerm, rel, arc)
	require.NoError(t, err)

	_, err = c.ElementIdentifier(ctx, ScopeMain, b)
	assert.ErrorIs(t, err, ErrNotFound)

	name, err := c.ElementIdentifier(ctx, ScopeMain, a)
	require.NoError(t, err)
	assert.Equal(t, "Apple", name)
}

func TestIdentifierPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m, err := Open(dir)
	require.NoError(t, err)
	c := newContext(t, m)

	n, err := c.CreateNode(model.NodeConst)
	require.NoError(t, err)
	_, err = c.SetSystemIdentifier(ctx, n, "persistent")
	require.NoError(t, err)

	before := m.Stats().Nodes
	require.NoError(t, m.Close())

	m2 := openMemory(t, dir)
	c2 := newContext(t, m2)

	found, err := c2.FindElementBySystemIdentifier("persistent")
	require.NoError(t, err)
	assert.Equal(t, n, found)

	// The keynodes are found again instead of being recreated.
	other, err := c2.CreateNode(model.NodeConst)
	require.NoError(t, err)
	_, err = c2.SetSystemIdentifier(ctx, other, "other")
	require.NoError(t, err)

	assert.Equal(t, before+1, m2.Stats().Nodes)
}
