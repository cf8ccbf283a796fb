package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddr(t *testing.T) {
	assert.True(t, EmptyAddr.IsEmpty())

	a := Addr{Seg: 3, Offset: 17, Gen: 9}
	assert.False(t, a.IsEmpty())
	assert.Equal(t, a, AddrFromKey(a.Key(), 9))
	assert.NotEqual(t, a, Addr{Seg: 3, Offset: 17, Gen: 10})
	assert.Equal(t, "Addr(3:17#9)", a.String())
}

func TestTypeImmutableMask(t *testing.T) {
	t.Run("node", func(t *testing.T) {
		assert.Equal(t, ElementMask, NodeConstClass.ImmutableMask())
	})

	t.Run("arc", func(t *testing.T) {
		m := ArcPosConstPerm.ImmutableMask()
		assert.NotZero(t, m&ArcPos)
		assert.NotZero(t, m&ArcPerm)
		assert.Zero(t, m&Const)
	})
}

func TestTypeMatches(t *testing.T) {
	assert.True(t, ArcPosConstPerm.Matches(ArcAccess))
	assert.True(t, ArcPosConstPerm.Matches(0))
	assert.False(t, ArcCommonConst.Matches(ArcAccess))
	assert.True(t, NodeConstClass.Matches(NodeConst))
}

func TestTypeValid(t *testing.T) {
	assert.True(t, NodeConst.Valid())
	assert.True(t, ArcPosConstPerm.Valid())
	assert.False(t, Type(0).Valid())
	assert.False(t, (Node | Link).Valid())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "node|const", NodeConst.String())
	assert.Equal(t, "access|const|pos|perm", ArcPosConstPerm.String())
}

func TestAccessLevels(t *testing.T) {
	l := NewAccessLevels(3, 7)
	assert.Equal(t, uint8(3), l.Read())
	assert.Equal(t, uint8(7), l.Write())

	assert.True(t, AccessLevelsFull.CanRead(l))
	assert.True(t, AccessLevelsFull.CanWrite(l))
	assert.False(t, AccessLevelsMin.CanRead(l))
	assert.True(t, l.CanRead(AccessLevelsMin))
}

func TestParam(t *testing.T) {
	a := Addr{Seg: 0, Offset: 1, Gen: 1}

	f := Fixed(a)
	assert.True(t, f.IsFixed())
	assert.True(t, f.Accepts(a, NodeConst))
	assert.False(t, f.Accepts(Addr{Offset: 2, Gen: 1}, NodeConst))
	assert.Equal(t, "f", f.String())

	anyNode := Any(Node)
	assert.False(t, anyNode.IsFixed())
	assert.True(t, anyNode.Accepts(a, NodeConstClass))
	assert.False(t, anyNode.Accepts(a, LinkConst))
	assert.Equal(t, "a", anyNode.String())
}
