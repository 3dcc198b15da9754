package model

import (
	"source-weaver/internal/compose"
	"source-weaver/internal/decl"
)

// Model answers template queries over a composed TypeGraph.
type Model struct {
	graph *compose.TypeGraph
	types []*compose.LogicalType
}

// New wraps a composed graph.
func New(graph *compose.TypeGraph) *Model {
	return &Model{graph: graph, types: graph.Types()}
}

// Graph returns the underlying graph.
func (m *Model) Graph() *compose.TypeGraph {
	return m.graph
}

// Len returns the number of types.
func (m *Model) Len() int {
	return len(m.types)
}

// All returns every type in discovery order.
func (m *Model) All() []*compose.LogicalType {
	return append([]*compose.LogicalType(nil), m.types...)
}

// Lookup finds a type by canonical name or unique local name.
func (m *Model) Lookup(name string) *compose.LogicalType {
	return m.graph.Lookup(name)
}

// Based returns every type whose based-types closure contains name.
func (m *Model) Based(name string) []*compose.LogicalType {
	return m.filter(func(t *compose.LogicalType) bool {
		return t.IsBasedOn(name)
	})
}

// Implementing returns the non-protocol types conforming, directly or
// transitively, to the protocol name. A name that resolves to a parsed type
// other than a protocol yields nothing; an unknown name is assumed to be an
// external protocol.
func (m *Model) Implementing(name string) []*compose.LogicalType {
	if t := m.Lookup(name); t != nil && t.Kind != decl.KindProtocol {
		return nil
	}

	return m.filter(func(t *compose.LogicalType) bool {
		return t.Kind != decl.KindProtocol && t.IsBasedOn(name)
	})
}

// Inheriting returns the classes that subclass name, directly or
// transitively. A name that resolves to a parsed non-class yields nothing.
func (m *Model) Inheriting(name string) []*compose.LogicalType {
	if t := m.Lookup(name); t != nil && t.Kind != decl.KindClass {
		return nil
	}

	return m.filter(func(t *compose.LogicalType) bool {
		return t.Kind == decl.KindClass && t.IsBasedOn(name)
	})
}

// Annotated returns the types carrying annotation key.
func (m *Model) Annotated(key string) []*compose.LogicalType {
	return m.filter(func(t *compose.LogicalType) bool {
		return t.Annotations.Has(key)
	})
}

// AnnotatedWith returns the types whose annotation key equals value.
// Numbers compare as float64 regardless of the Go numeric type of value.
func (m *Model) AnnotatedWith(key string, value any) []*compose.LogicalType {
	return m.filter(func(t *compose.LogicalType) bool {
		v, ok := t.Annotations.Get(key)

		return ok && v.Matches(value)
	})
}

// OfKind returns the types of the given kind.
func (m *Model) OfKind(kind decl.Kind) []*compose.LogicalType {
	return m.filter(func(t *compose.LogicalType) bool {
		return t.Kind == kind
	})
}

// Classes returns all classes.
func (m *Model) Classes() []*compose.LogicalType { return m.OfKind(decl.KindClass) }

// Structs returns all structs.
func (m *Model) Structs() []*compose.LogicalType { return m.OfKind(decl.KindStruct) }

// Enums returns all enums.
func (m *Model) Enums() []*compose.LogicalType { return m.OfKind(decl.KindEnum) }

// Protocols returns all protocols.
func (m *Model) Protocols() []*compose.LogicalType { return m.OfKind(decl.KindProtocol) }

// Typealiases returns all typealiases.
func (m *Model) Typealiases() []*compose.LogicalType { return m.OfKind(decl.KindTypealias) }

// Extensions returns the types known only through extensions.
func (m *Model) Extensions() []*compose.LogicalType {
	return m.filter(func(t *compose.LogicalType) bool {
		return t.IsExtension
	})
}

// InFile returns the types whose primary (or first) declaration is in file.
func (m *Model) InFile(file string) []*compose.LogicalType {
	return m.filter(func(t *compose.LogicalType) bool {
		return t.File() == file
	})
}

// InheritanceOrder returns all types with every resolved supertype placed
// before its subtypes. Ties keep discovery order.
func (m *Model) InheritanceOrder() []*compose.LogicalType {
	sorted, err := sortBySupertypes(m.types)
	if err != nil {
		// Composed graphs are acyclic; keep discovery order.
		return m.All()
	}

	return sorted
}

func (m *Model) filter(keep func(*compose.LogicalType) bool) []*compose.LogicalType {
	var out []*compose.LogicalType

	for _, t := range m.types {
		if keep(t) {
			out = append(out, t)
		}
	}

	return out
}
