package engine

import (
	"context"
	"errors"

	"github.com/hupe1980/scmemory/internal/content"
	"github.com/hupe1980/scmemory/internal/event"
	"github.com/hupe1980/scmemory/internal/segment"
	"github.com/hupe1980/scmemory/model"
)

// CreateNode creates a node. A type without category bits is a node type.
func (e *Engine) CreateNode(levels model.AccessLevels, t model.Type) (model.Addr, error) {
	if t.Category() == 0 {
		t |= model.Node
	}

	if t.Category() != model.Node {
		return model.EmptyAddr, ErrInvalidType
	}

	return e.create(levels, t)
}

// CreateLink creates a link without content.
func (e *Engine) CreateLink(levels model.AccessLevels) (model.Addr, error) {
	return e.create(levels, model.Link)
}

func (e *Engine) create(levels model.AccessLevels, t model.Type) (model.Addr, error) {
	if err := e.checkOpen(); err != nil {
		return model.EmptyAddr, err
	}

	e.mu.Lock()
	addr, _, err := e.alloc(t, levels)
	e.mu.Unlock()

	if err != nil {
		return model.EmptyAddr, err
	}

	e.bus.Publish(event.Event{Kind: event.ElementCreated, Addr: addr, Type: t})

	return addr, nil
}

// CreateArc creates an arc of type t from begin to end. Either endpoint may be an arc.
func (e *Engine) CreateArc(levels model.AccessLevels, t model.Type, begin, end model.Addr) (model.Addr, error) {
	if err := e.checkOpen(); err != nil {
		return model.EmptyAddr, err
	}

	if !t.IsArc() || !t.Valid() {
		return model.EmptyAddr, ErrInvalidType
	}

	e.mu.Lock()

	b, en := e.lookup(begin), e.lookup(end)
	if b == nil || en == nil {
		e.mu.Unlock()
		return model.EmptyAddr, ErrInvalidEndpoint
	}

	if !levels.CanRead(b.Access) || !levels.CanRead(en.Access) {
		e.mu.Unlock()
		return model.EmptyAddr, ErrAccessDenied
	}

	addr, slot, err := e.alloc(t, levels)
	if err != nil {
		e.mu.Unlock()
		return model.EmptyAddr, err
	}

	slot.Begin = begin
	slot.End = end
	e.adj.add(addr, t, begin, end)

	e.mu.Unlock()

	e.bus.Publish(
		event.Event{Kind: event.ElementCreated, Addr: addr, Type: t, Begin: begin, End: end},
		event.Event{Kind: event.ArcAdded, Addr: addr, Type: t, Begin: begin, End: end},
	)

	return addr, nil
}

// IsElement reports whether addr names a live element.
func (e *Engine) IsElement(addr model.Addr) bool {
	if e.closed.Load() {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.lookup(addr) != nil
}

// Erase removes addr and, transitively, every arc incident to a removed
// element. It returns the number of erased elements.
func (e *Engine) Erase(levels model.AccessLevels, addr model.Addr) (int, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	e.mu.Lock()

	root := e.lookup(addr)
	if root == nil {
		e.mu.Unlock()
		return 0, ErrInvalidAddress
	}

	if !levels.CanWrite(root.Access) {
		e.mu.Unlock()
		return 0, ErrAccessDenied
	}

	var (
		events []event.Event
		links  []model.Addr
	)

	queue := []model.Addr{addr}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		slot := e.lookup(cur)
		if slot == nil {
			continue
		}

		queue = append(queue, e.adj.arcs(cur, dirOut, 0)...)
		queue = append(queue, e.adj.arcs(cur, dirIn, 0)...)

		if slot.Type.IsArc() {
			e.adj.remove(cur, slot.Type, slot.Begin, slot.End)
			events = append(events, event.Event{
				Kind: event.ArcRemoved, Addr: cur, Type: slot.Type, Begin: slot.Begin, End: slot.End,
			})
		}

		if slot.Type.IsLink() {
			links = append(links, cur)
		}

		e.adj.drop(cur)
		events = append(events, event.Event{Kind: event.ElementErased, Addr: cur, Type: slot.Type})

		_ = e.segments[cur.Seg].Release(cur.Offset)
	}

	e.dirty.Store(true)
	e.mu.Unlock()

	// Content removal is generation checked, so a slot reused meanwhile keeps
	// its new payload.
	for _, l := range links {
		e.content.Remove(l)
	}

	e.bus.Publish(events...)

	n := 0
	for _, ev := range events {
		if ev.Kind == event.ElementErased {
			n++
		}
	}

	return n, nil
}

// readable returns the live slot of addr if levels may read it.
func (e *Engine) readable(levels model.AccessLevels, addr model.Addr) (*segment.Slot, error) {
	slot := e.lookup(addr)
	if slot == nil {
		return nil, ErrInvalidAddress
	}

	if !levels.CanRead(slot.Access) {
		return nil, ErrAccessDenied
	}

	return slot, nil
}

// Type returns the type of addr.
func (e *Engine) Type(levels model.AccessLevels, addr model.Addr) (model.Type, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	slot, err := e.readable(levels, addr)
	if err != nil {
		return 0, err
	}

	return slot.Type, nil
}

// SetSubtype replaces the mutable bits of the type of addr with subtype.
func (e *Engine) SetSubtype(levels model.AccessLevels, addr model.Addr, subtype model.Type) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	slot := e.lookup(addr)
	if slot == nil {
		return ErrInvalidAddress
	}

	if !levels.CanWrite(slot.Access) {
		return ErrAccessDenied
	}

	immutable := slot.Type.ImmutableMask()
	if subtype&immutable != 0 {
		return ErrImmutableBitsViolation
	}

	from := slot.Type
	to := from&immutable | subtype

	if from.IsArc() {
		e.adj.retype(addr, from, to, slot.Begin, slot.End)
	}

	slot.Type = to
	e.dirty.Store(true)

	return nil
}

// AccessLevels returns the access levels of addr.
func (e *Engine) AccessLevels(levels model.AccessLevels, addr model.Addr) (model.AccessLevels, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	slot, err := e.readable(levels, addr)
	if err != nil {
		return 0, err
	}

	return slot.Access, nil
}

// SetAccessLevels sets the access levels of addr and returns the previous
// ones. Levels above those of the caller are lowered to the caller's.
func (e *Engine) SetAccessLevels(levels model.AccessLevels, addr model.Addr, value model.AccessLevels) (model.AccessLevels, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	slot := e.lookup(addr)
	if slot == nil {
		return 0, ErrInvalidAddress
	}

	if !levels.CanWrite(slot.Access) {
		return 0, ErrAccessDenied
	}

	prev := slot.Access
	slot.Access = model.NewAccessLevels(min(value.Read(), levels.Read()), min(value.Write(), levels.Write()))
	e.dirty.Store(true)

	return prev, nil
}

// ArcEnds returns the begin and end of the arc at addr.
func (e *Engine) ArcEnds(levels model.AccessLevels, addr model.Addr) (begin, end model.Addr, err error) {
	if err := e.checkOpen(); err != nil {
		return model.EmptyAddr, model.EmptyAddr, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	slot, err := e.readable(levels, addr)
	if err != nil {
		return model.EmptyAddr, model.EmptyAddr, err
	}

	if !slot.Type.IsArc() {
		return model.EmptyAddr, model.EmptyAddr, ErrNotAnArc
	}

	return slot.Begin, slot.End, nil
}

// checkLink validates that addr is a link the caller may access.
func (e *Engine) checkLink(levels model.AccessLevels, addr model.Addr, write bool) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	slot := e.lookup(addr)
	if slot == nil {
		return ErrInvalidAddress
	}

	if !slot.Type.IsLink() {
		return ErrNotALink
	}

	if write && !levels.CanWrite(slot.Access) || !write && !levels.CanRead(slot.Access) {
		return ErrAccessDenied
	}

	return nil
}

// SetLinkContent replaces the payload of the link at addr. The payload is
// written without holding the engine lock; a link erased meanwhile loses it.
func (e *Engine) SetLinkContent(ctx context.Context, levels model.AccessLevels, addr model.Addr, data []byte) error {
	if err := e.checkOpen(); err != nil {
		return err
	}

	if err := e.checkLink(levels, addr, true); err != nil {
		return err
	}

	if err := e.content.Set(ctx, addr, data); err != nil {
		if errors.Is(err, content.ErrStale) {
			return ErrInvalidAddress
		}
		return err
	}

	e.mu.RLock()
	alive := e.lookup(addr) != nil
	e.mu.RUnlock()

	if !alive {
		e.content.Remove(addr)
		return ErrInvalidAddress
	}

	e.dirty.Store(true)
	e.metrics.OnThroughput("content_write", int64(len(data)))

	e.bus.Publish(event.Event{Kind: event.ContentChanged, Addr: addr, Type: model.Link})

	return nil
}

// LinkContent returns the payload of the link at addr. A link that never
// received content fails with ErrNoContent.
func (e *Engine) LinkContent(ctx context.Context, levels model.AccessLevels, addr model.Addr) ([]byte, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	if err := e.checkLink(levels, addr, false); err != nil {
		return nil, err
	}

	data, err := e.content.Get(ctx, addr)
	if errors.Is(err, content.ErrNoContent) {
		return nil, ErrNoContent
	}

	return data, err
}

// FindLinksByContent returns the live links readable by levels whose payload equals data.
func (e *Engine) FindLinksByContent(levels model.AccessLevels, data []byte) ([]model.Addr, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	found := e.content.Find(data)

	e.mu.RLock()
	defer e.mu.RUnlock()

	out := found[:0]
	for _, a := range found {
		slot := e.lookup(a)
		if slot == nil || !slot.Type.IsLink() || !levels.CanRead(slot.Access) {
			continue
		}
		out = append(out, a)
	}

	return out, nil
}
