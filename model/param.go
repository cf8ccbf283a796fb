package model

// Param is one position of an iterator template.
type Param struct {
	addr  Addr
	typ   Type
	fixed bool
}

// Fixed constrains the position to exactly addr.
func Fixed(addr Addr) Param {
	return Param{addr: addr, fixed: true}
}

// Any constrains the position to elements whose type carries every bit of t.
func Any(t Type) Param {
	return Param{typ: t}
}

// IsFixed reports whether the position is pinned to an address.
func (p Param) IsFixed() bool { return p.fixed }

// Addr returns the pinned address. It is empty for Any params.
func (p Param) Addr() Addr { return p.addr }

// Type returns the type constraint. It is zero for Fixed params.
func (p Param) Type() Type { return p.typ }

// Accepts reports whether an element with address a and type t satisfies p.
func (p Param) Accepts(a Addr, t Type) bool {
	if p.fixed {
		return p.addr == a
	}

	return t.Matches(p.typ)
}

// String returns "f" for fixed and "a" for any, matching template names like f_a_a.
func (p Param) String() string {
	if p.fixed {
		return "f"
	}

	return "a"
}
