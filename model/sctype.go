package model

import "strings"

// Type is the sc-type bitmask of an element.
type Type uint16

// Element categories.
const (
	Node       Type = 0x1
	Link       Type = 0x2
	EdgeCommon Type = 0x4
	ArcCommon  Type = 0x8
	ArcAccess  Type = 0x10
)

// Constancy.
const (
	Const Type = 0x20
	Var   Type = 0x40
)

// Arc polarity and permanence.
const (
	ArcPos  Type = 0x80
	ArcNeg  Type = 0x100
	ArcFuz  Type = 0x200
	ArcTemp Type = 0x400
	ArcPerm Type = 0x800
)

// Node structure subtypes. They share bits with the arc flags and are only
// meaningful on nodes.
const (
	NodeTuple    Type = 0x80
	NodeStruct   Type = 0x100
	NodeRole     Type = 0x200
	NodeNoRole   Type = 0x400
	NodeClass    Type = 0x800
	NodeAbstract Type = 0x1000
	NodeMaterial Type = 0x2000
)

// Masks.
const (
	ElementMask    Type = 0x1f
	ArcMask        Type = EdgeCommon | ArcCommon | ArcAccess
	ConstancyMask  Type = Const | Var
	PositivityMask Type = ArcPos | ArcNeg | ArcFuz
	PermanencyMask Type = ArcTemp | ArcPerm
	NodeStructMask Type = 0x3f80
)

// Common composites.
const (
	NodeConst       Type = Node | Const
	NodeVar         Type = Node | Var
	NodeConstClass  Type = Node | Const | NodeClass
	NodeConstNoRole Type = Node | Const | NodeNoRole
	NodeConstRole   Type = Node | Const | NodeRole
	LinkConst       Type = Link | Const
	EdgeCommonConst Type = EdgeCommon | Const
	ArcCommonConst  Type = ArcCommon | Const
	ArcCommonVar    Type = ArcCommon | Var
	ArcPosConstPerm Type = ArcAccess | Const | ArcPos | ArcPerm
	ArcNegConstPerm Type = ArcAccess | Const | ArcNeg | ArcPerm
	ArcFuzConstPerm Type = ArcAccess | Const | ArcFuz | ArcPerm
	ArcPosConstTemp Type = ArcAccess | Const | ArcPos | ArcTemp
	ArcPosVarPerm   Type = ArcAccess | Var | ArcPos | ArcPerm
)

// IsNode reports whether t is a node type.
func (t Type) IsNode() bool { return t&Node != 0 }

// IsLink reports whether t is a link type.
func (t Type) IsLink() bool { return t&Link != 0 }

// IsArc reports whether t is any connector type (edge, common arc, access arc).
func (t Type) IsArc() bool { return t&ArcMask != 0 }

// Category returns the element category bits of t.
func (t Type) Category() Type { return t & ElementMask }

// ImmutableMask returns the bits of t that may never change after creation.
func (t Type) ImmutableMask() Type {
	if t.IsArc() {
		return ElementMask | PositivityMask | PermanencyMask
	}

	return ElementMask
}

// Matches reports whether t carries every bit of the constraint c.
// The zero constraint matches every type.
func (t Type) Matches(c Type) bool {
	return t&c == c
}

// Valid reports whether t names exactly one element category.
func (t Type) Valid() bool {
	switch t.Category() {
	case Node, Link, EdgeCommon, ArcCommon, ArcAccess:
		return true
	default:
		return false
	}
}

var typeNames = []struct {
	bit  Type
	name string
}{
	{Const, "const"},
	{Var, "var"},
}

// String returns a short human readable rendering such as "node|const".
func (t Type) String() string {
	var parts []string

	switch t.Category() {
	case Node:
		parts = append(parts, "node")
	case Link:
		parts = append(parts, "link")
	case EdgeCommon:
		parts = append(parts, "edge")
	case ArcCommon:
		parts = append(parts, "arc")
	case ArcAccess:
		parts = append(parts, "access")
	default:
		if t.Category() != 0 {
			parts = append(parts, "invalid")
		}
	}

	for _, n := range typeNames {
		if t&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}

	if t.IsArc() {
		switch {
		case t&ArcPos != 0:
			parts = append(parts, "pos")
		case t&ArcNeg != 0:
			parts = append(parts, "neg")
		case t&ArcFuz != 0:
			parts = append(parts, "fuz")
		}

		switch {
		case t&ArcPerm != 0:
			parts = append(parts, "perm")
		case t&ArcTemp != 0:
			parts = append(parts, "temp")
		}
	}

	if len(parts) == 0 {
		return "unknown"
	}

	return strings.Join(parts, "|")
}
