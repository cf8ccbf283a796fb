package scmemory

import (
	"context"
	"errors"

	"github.com/hupe1980/scmemory/internal/engine"
	"github.com/hupe1980/scmemory/internal/event"
	"github.com/hupe1980/scmemory/model"
)

// IdentifierScope selects the identifier relation.
type IdentifierScope string

// Identifier scopes.
const (
	// ScopeSystem identifiers are unique across the memory.
	ScopeSystem IdentifierScope = "sys"
	// ScopeMain identifiers are human readable names and may repeat.
	ScopeMain IdentifierScope = "main"
)

const (
	systemIdentifierKeynode = "nrel_system_identifier"
	mainIdentifierKeynode   = "nrel_main_idtf"
)

// Keynodes are readable by every context and writable only at full level.
var keynodeLevels = model.NewAccessLevels(0, 15)

// An identifier of el in relation rel is stored as
//
//	el --(ArcCommonConst) A--> link(name)
//	rel --(ArcPosConstPerm)--> A

// keynode returns the relation node of scope. Keynodes are created on first
// use when create is set; otherwise a missing keynode yields the empty address.
// Callers hold idtfMu.
func (m *Memory) keynode(ctx context.Context, scope IdentifierScope, create bool) (model.Addr, error) {
	if k, ok := m.keynodes[scope]; ok && m.engine.IsElement(k) {
		return k, nil
	}

	sys, err := m.systemKeynode(ctx, create)
	if err != nil || sys.IsEmpty() || scope == ScopeSystem {
		return sys, err
	}

	owners, err := m.owners(model.AccessLevelsFull, sys, mainIdentifierKeynode)
	if err != nil {
		return model.EmptyAddr, err
	}

	if len(owners) > 0 {
		m.keynodes[ScopeMain] = owners[0]
		return owners[0], nil
	}

	if !create {
		return model.EmptyAddr, nil
	}

	k, err := m.engine.CreateNode(keynodeLevels, model.NodeConstNoRole)
	if err != nil {
		return model.EmptyAddr, err
	}

	if err := m.attach(ctx, keynodeLevels, sys, k, mainIdentifierKeynode); err != nil {
		return model.EmptyAddr, err
	}

	m.keynodes[ScopeMain] = k

	return k, nil
}

// systemKeynode resolves the node that names itself nrel_system_identifier.
func (m *Memory) systemKeynode(ctx context.Context, create bool) (model.Addr, error) {
	if k, ok := m.keynodes[ScopeSystem]; ok && m.engine.IsElement(k) {
		return k, nil
	}

	links, err := m.engine.FindLinksByContent(model.AccessLevelsFull, []byte(systemIdentifierKeynode))
	if err != nil {
		return model.EmptyAddr, err
	}

	for _, l := range links {
		it, err := m.engine.Iterator5(model.AccessLevelsFull,
			model.Any(model.Node), model.Any(model.ArcCommonConst), model.Fixed(l),
			model.Any(model.ArcPosConstPerm), model.Any(model.Node))
		if err != nil {
			return model.EmptyAddr, err
		}

		for it.Next() {
			if it.Value(0) == it.Value(4) {
				m.keynodes[ScopeSystem] = it.Value(0)
				return it.Value(0), nil
			}
		}

		if err := it.Err(); err != nil {
			return model.EmptyAddr, err
		}
	}

	if !create {
		return model.EmptyAddr, nil
	}

	k, err := m.engine.CreateNode(keynodeLevels, model.NodeConstNoRole)
	if err != nil {
		return model.EmptyAddr, err
	}

	if err := m.attach(ctx, keynodeLevels, k, k, systemIdentifierKeynode); err != nil {
		return model.EmptyAddr, err
	}

	m.keynodes[ScopeSystem] = k

	return k, nil
}

// attach links el to a new link holding name through relation rel.
func (m *Memory) attach(ctx context.Context, levels model.AccessLevels, rel, el model.Addr, name string) error {
	l, err := m.engine.CreateLink(levels)
	if err != nil {
		return err
	}

	if err := m.engine.SetLinkContent(ctx, levels, l, []byte(name)); err != nil {
		return err
	}

	a, err := m.engine.CreateArc(levels, model.ArcCommonConst, el, l)
	if err != nil {
		return err
	}

	_, err = m.engine.CreateArc(levels, model.ArcPosConstPerm, rel, a)

	return err
}

// owners returns the elements that carry name in relation rel, deduplicated
// in discovery order.
func (m *Memory) owners(levels model.AccessLevels, rel model.Addr, name string) ([]model.Addr, error) {
	links, err := m.engine.FindLinksByContent(levels, []byte(name))
	if err != nil {
		return nil, err
	}

	var (
		out  []model.Addr
		seen = make(map[model.Addr]struct{})
	)

	for _, l := range links {
		it, err := m.engine.Iterator5(levels,
			model.Any(0), model.Any(model.ArcCommonConst), model.Fixed(l),
			model.Any(model.ArcPosConstPerm), model.Fixed(rel))
		if err != nil {
			return nil, err
		}

		for it.Next() {
			el := it.Value(0)
			if _, ok := seen[el]; ok {
				continue
			}

			seen[el] = struct{}{}
			out = append(out, el)
		}

		if err := it.Err(); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// identifierLinks returns the links that hold identifiers of el in relation rel.
func (m *Memory) identifierLinks(levels model.AccessLevels, rel, el model.Addr) ([]model.Addr, error) {
	it, err := m.engine.Iterator5(levels,
		model.Fixed(el), model.Any(model.ArcCommonConst), model.Any(model.Link),
		model.Any(model.ArcPosConstPerm), model.Fixed(rel))
	if err != nil {
		return nil, err
	}

	var out []model.Addr
	for it.Next() {
		out = append(out, it.Value(2))
	}

	return out, it.Err()
}

// setIdentifier replaces the identifier of addr in scope with name.
func (c *MemoryContext) setIdentifier(ctx context.Context, scope IdentifierScope, addr model.Addr, name string) (bool, error) {
	if err := c.check(); err != nil {
		return false, err
	}

	if name == "" {
		return false, ErrInvalidIdentifier
	}

	m := c.mem
	e := m.engine

	t, err := e.Type(c.levels, addr)
	if err != nil {
		return false, translateError(err)
	}

	m.idtfMu.Lock()
	defer m.idtfMu.Unlock()

	rel, err := m.keynode(ctx, scope, true)
	if err != nil {
		return false, translateError(err)
	}

	if scope == ScopeSystem {
		owners, err := m.owners(model.AccessLevelsFull, rel, name)
		if err != nil {
			return false, translateError(err)
		}

		for _, o := range owners {
			if o != addr {
				return false, ErrIdentifierInUse
			}
		}

		if len(owners) > 0 {
			return true, nil
		}
	}

	prev, err := m.identifierLinks(c.levels, rel, addr)
	if err != nil {
		return false, translateError(err)
	}

	for _, l := range prev {
		if _, err := e.Erase(c.levels, l); err != nil {
			return false, translateError(err)
		}
	}

	if err := m.attach(ctx, c.levels, rel, addr, name); err != nil {
		return false, translateError(err)
	}

	e.Bus().Publish(event.Event{Kind: event.IdentifierSet, Addr: addr, Type: t, Name: name, Scope: string(scope)})

	return true, nil
}

// SetSystemIdentifier gives addr the unique identifier name, replacing a
// previous one. It returns false with ErrIdentifierInUse when another
// element already owns name.
func (c *MemoryContext) SetSystemIdentifier(ctx context.Context, addr model.Addr, name string) (bool, error) {
	return c.setIdentifier(ctx, ScopeSystem, addr, name)
}

// SetMainIdentifier gives addr the main identifier name, replacing a previous one.
func (c *MemoryContext) SetMainIdentifier(ctx context.Context, addr model.Addr, name string) error {
	_, err := c.setIdentifier(ctx, ScopeMain, addr, name)
	return err
}

func (c *MemoryContext) findByIdentifier(scope IdentifierScope, name string) ([]model.Addr, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	m := c.mem

	m.idtfMu.Lock()
	defer m.idtfMu.Unlock()

	rel, err := m.keynode(context.Background(), scope, false)
	if err != nil {
		return nil, translateError(err)
	}

	if rel.IsEmpty() {
		return nil, nil
	}

	owners, err := m.owners(c.levels, rel, name)

	return owners, translateError(err)
}

// FindElementBySystemIdentifier returns the element whose system identifier
// is name, or ErrNotFound.
func (c *MemoryContext) FindElementBySystemIdentifier(name string) (model.Addr, error) {
	owners, err := c.findByIdentifier(ScopeSystem, name)
	if err != nil {
		return model.EmptyAddr, err
	}

	if len(owners) == 0 {
		return model.EmptyAddr, ErrNotFound
	}

	return owners[0], nil
}

// FindElementsByMainIdentifier returns every element whose main identifier is name.
func (c *MemoryContext) FindElementsByMainIdentifier(name string) ([]model.Addr, error) {
	return c.findByIdentifier(ScopeMain, name)
}

// ElementIdentifier returns the identifier of addr in scope, or ErrNotFound.
func (c *MemoryContext) ElementIdentifier(ctx context.Context, scope IdentifierScope, addr model.Addr) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}

	link, err := c.identifierLink(scope, addr)
	if err != nil {
		return "", translateError(err)
	}

	if link.IsEmpty() {
		return "", ErrNotFound
	}

	data, err := c.mem.engine.LinkContent(ctx, c.levels, link)
	if errors.Is(err, engine.ErrNoContent) {
		return "", ErrNotFound
	}

	if err != nil {
		return "", translateError(err)
	}

	return string(data), nil
}

func (c *MemoryContext) identifierLink(scope IdentifierScope, addr model.Addr) (model.Addr, error) {
	m := c.mem

	m.idtfMu.Lock()
	defer m.idtfMu.Unlock()

	rel, err := m.keynode(context.Background(), scope, false)
	if err != nil || rel.IsEmpty() {
		return model.EmptyAddr, err
	}

	links, err := m.identifierLinks(c.levels, rel, addr)
	if err != nil || len(links) == 0 {
		return model.EmptyAddr, err
	}

	return links[0], nil
}
