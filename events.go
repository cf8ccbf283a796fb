package scmemory

import (
	"github.com/hupe1980/scmemory/internal/event"
	"github.com/hupe1980/scmemory/model"
)

// EventKind identifies a mutation a subscriber can react to.
type EventKind uint8

// Event kinds.
const (
	EventElementCreated EventKind = iota + 1
	EventElementErased
	EventAddOutputArc
	EventAddInputArc
	EventRemoveOutputArc
	EventRemoveInputArc
	EventContentChanged
	EventIdentifierSet
)

func (k EventKind) String() string {
	switch k {
	case EventElementCreated:
		return "element_created"
	case EventElementErased:
		return "element_erased"
	case EventAddOutputArc:
		return "add_output_arc"
	case EventAddInputArc:
		return "add_input_arc"
	case EventRemoveOutputArc:
		return "remove_output_arc"
	case EventRemoveInputArc:
		return "remove_input_arc"
	case EventContentChanged:
		return "content_changed"
	case EventIdentifierSet:
		return "identifier_set"
	default:
		return "unknown"
	}
}

// Event describes one mutation from the point of view of Element.
//
// For arc events Arc is the connector and Other the opposite endpoint. For
// EventIdentifierSet Name and Scope carry the identifier.
type Event struct {
	Kind    EventKind
	Element model.Addr
	Type    model.Type
	Arc     model.Addr
	Other   model.Addr
	Name    string
	Scope   IdentifierScope
}

// Subscribe calls fn for every event of kind concerning addr. The empty
// address subscribes to all elements. fn runs synchronously after the
// mutation is applied and must not block. The returned function cancels
// the subscription.
func (m *Memory) Subscribe(kind EventKind, addr model.Addr, fn func(Event)) (cancel func()) {
	filter := func(ev event.Event) bool {
		for _, out := range translateEvent(ev) {
			if out.Kind == kind && (addr.IsEmpty() || out.Element == addr) {
				return true
			}
		}
		return false
	}

	return m.engine.Bus().Subscribe(filter, func(ev event.Event) {
		for _, out := range translateEvent(ev) {
			if out.Kind == kind && (addr.IsEmpty() || out.Element == addr) {
				fn(out)
			}
		}
	})
}

// translateEvent maps an engine event to the events of the affected elements.
// An arc event concerns both endpoints.
func translateEvent(ev event.Event) []Event {
	switch ev.Kind {
	case event.ElementCreated:
		return []Event{{Kind: EventElementCreated, Element: ev.Addr, Type: ev.Type}}
	case event.ElementErased:
		return []Event{{Kind: EventElementErased, Element: ev.Addr, Type: ev.Type}}
	case event.ArcAdded:
		return []Event{
			{Kind: EventAddOutputArc, Element: ev.Begin, Type: ev.Type, Arc: ev.Addr, Other: ev.End},
			{Kind: EventAddInputArc, Element: ev.End, Type: ev.Type, Arc: ev.Addr, Other: ev.Begin},
		}
	case event.ArcRemoved:
		return []Event{
			{Kind: EventRemoveOutputArc, Element: ev.Begin, Type: ev.Type, Arc: ev.Addr, Other: ev.End},
			{Kind: EventRemoveInputArc, Element: ev.End, Type: ev.Type, Arc: ev.Addr, Other: ev.Begin},
		}
	case event.ContentChanged:
		return []Event{{Kind: EventContentChanged, Element: ev.Addr, Type: ev.Type}}
	case event.IdentifierSet:
		return []Event{{Kind: EventIdentifierSet, Element: ev.Addr, Type: ev.Type, Name: ev.Name, Scope: IdentifierScope(ev.Scope)}}
	default:
		return nil
	}
}
