package compose

import (
	"strings"
	"sync"

	"source-weaver/internal/annotation"
	"source-weaver/internal/common"
	"source-weaver/internal/decl"
	"source-weaver/internal/source"
)

// TypeID addresses a LogicalType inside its TypeGraph. The zero value refers
// to no type.
type TypeID int

// NoType is the TypeID of an unresolved reference.
const NoType TypeID = 0

// TypeRef is a reference to another type as written in a declaration.
type TypeRef struct {
	Name string // Name as declared, e.g. "Base<T>" or "*io.Reader"
	ID   TypeID // Target type, NoType when the name did not resolve
}

// Resolved reports whether the reference points into the graph.
func (r TypeRef) Resolved() bool {
	return r.ID != NoType
}

// BaseName returns the declared name without pointer markers, existential
// keywords, or generic arguments.
func (r TypeRef) BaseName() string {
	return normalizeName(r.Name)
}

// GenericTypeParameter is the right-hand side of a generic requirement.
type GenericTypeParameter struct {
	TypeName   string // Type expression, e.g. "Hashable" or "Array<Int>"
	Constraint string // Optional constraint from "Name: Constraint" forms
}

// String renders the parameter in source syntax.
func (p GenericTypeParameter) String() string {
	if p.Constraint == "" {
		return p.TypeName
	}

	return p.TypeName + ": " + p.Constraint
}

// GenericRequirement is a resolved constraint. Values are comparable with ==.
type GenericRequirement struct {
	Left         TypeRef
	Right        GenericTypeParameter
	Relationship decl.Relationship
}

// String renders the requirement in source syntax.
func (g GenericRequirement) String() string {
	if g.Relationship == decl.RelationshipConformsTo {
		return g.Left.Name + ": " + g.Right.String()
	}

	return g.Left.Name + " " + g.Relationship.Syntax() + " " + g.Right.String()
}

// Parameter is a method or subscript parameter with its parsed annotations.
type Parameter struct {
	Label        string
	Name         string
	TypeName     string
	IsInout      bool
	DefaultValue string
	Annotations  annotation.Bag
}

// Member is a merged member of a LogicalType.
type Member struct {
	Kind          decl.MemberKind
	Name          string
	Parameters    []Parameter
	TypeName      string
	IsStatic      bool
	Body          string
	Annotations   annotation.Bag
	Owner         TypeID          // Type the member belongs to
	FromExtension bool            // Declared in an extension rather than the primary
	Location      source.Location // Declaration the member is attributed to
}

// Signature identifies the member for duplicate detection.
func (m *Member) Signature() string {
	return signature(m.Kind, m.Name, m.IsStatic, m.Parameters)
}

func signature(kind decl.MemberKind, name string, static bool, params []Parameter) string {
	d := decl.Member{Kind: kind, Name: name, IsStatic: static}
	for _, p := range params {
		d.Parameters = append(d.Parameters, decl.Parameter{Label: p.Label, TypeName: p.TypeName, IsInout: p.IsInout})
	}

	return d.Signature()
}

// LogicalType is the merged, canonical view of one type name.
type LogicalType struct {
	ID                  TypeID
	Name                string // Canonical name, module-qualified when known
	LocalName           string
	Module              string
	Kind                decl.Kind
	IsExtension         bool // No primary declaration was seen
	AliasOf             string
	GenericParameters   []decl.GenericParameter
	GenericRequirements []GenericRequirement
	Inherits            []TypeRef
	Members             []Member
	Annotations         annotation.Bag
	Declarations        []source.Location // Primary first, then extensions

	graph      *TypeGraph
	basedOnce  sync.Once
	based      []TypeID
	basedNames []string
}

// Location returns the location of the primary (or first) declaration.
func (t *LogicalType) Location() source.Location {
	loc, _ := common.First(t.Declarations)

	return loc
}

// File returns the file of the primary (or first) declaration.
func (t *LogicalType) File() string {
	return t.Location().File
}

// Graph returns the graph the type belongs to.
func (t *LogicalType) Graph() *TypeGraph {
	return t.graph
}

// Supertypes returns the resolved direct supertypes and protocols.
func (t *LogicalType) Supertypes() []*LogicalType {
	var out []*LogicalType

	for _, ref := range t.Inherits {
		if st := t.graph.Type(ref.ID); st != nil {
			out = append(out, st)
		}
	}

	return out
}

// Superclass returns the first resolved class supertype of a class, or nil.
func (t *LogicalType) Superclass() *LogicalType {
	if t.Kind != decl.KindClass {
		return nil
	}

	for _, st := range t.Supertypes() {
		if st.Kind == decl.KindClass {
			return st
		}
	}

	return nil
}

// Protocols returns the resolved direct protocol conformances.
func (t *LogicalType) Protocols() []*LogicalType {
	var out []*LogicalType

	for _, st := range t.Supertypes() {
		if st.Kind == decl.KindProtocol {
			out = append(out, st)
		}
	}

	return out
}

// BasedTypes returns the transitive closure of resolved supertypes and
// protocols, nearest first. Computed once per type.
func (t *LogicalType) BasedTypes() []*LogicalType {
	t.basedOnce.Do(t.computeBased)

	out := make([]*LogicalType, len(t.based))
	for i, id := range t.based {
		out[i] = t.graph.Type(id)
	}

	return out
}

// BasedNames returns the canonical names of BasedTypes followed by the base
// names of unresolved references anywhere in the closure.
func (t *LogicalType) BasedNames() []string {
	t.basedOnce.Do(t.computeBased)

	return append([]string(nil), t.basedNames...)
}

// IsBasedOn reports whether name (canonical or local) is in the closure.
func (t *LogicalType) IsBasedOn(name string) bool {
	for _, n := range t.BasedNames() {
		if n == name || decl.LocalName(n) == name {
			return true
		}
	}

	return false
}

// computeBased walks resolved edges depth-first. Cycles were rejected during
// composition; the seen set only guards against diamonds.
func (t *LogicalType) computeBased() {
	seenID := map[TypeID]bool{t.ID: true}
	seenName := map[string]bool{}

	var resolved, unresolved []string

	for _, ref := range t.Inherits {
		st := t.graph.Type(ref.ID)
		if st == nil {
			if name := ref.BaseName(); !seenName[name] {
				seenName[name] = true
				unresolved = append(unresolved, name)
			}

			continue
		}

		candidates := append([]*LogicalType{st}, st.BasedTypes()...)
		for _, c := range candidates {
			if seenID[c.ID] {
				continue
			}

			seenID[c.ID] = true
			t.based = append(t.based, c.ID)
			resolved = append(resolved, c.Name)
			seenName[c.Name] = true
		}

		for _, name := range st.BasedNames() {
			if !seenName[name] {
				seenName[name] = true
				unresolved = append(unresolved, name)
			}
		}
	}

	t.basedNames = append(resolved, unresolved...)
}

// Methods returns members of kind method.
func (t *LogicalType) Methods() []Member { return t.membersOf(decl.MemberMethod) }

// Properties returns members of kind property.
func (t *LogicalType) Properties() []Member { return t.membersOf(decl.MemberProperty) }

// Subscripts returns members of kind subscript.
func (t *LogicalType) Subscripts() []Member { return t.membersOf(decl.MemberSubscript) }

// AssociatedTypes returns members of kind associatedtype.
func (t *LogicalType) AssociatedTypes() []Member { return t.membersOf(decl.MemberAssociatedType) }

func (t *LogicalType) membersOf(kind decl.MemberKind) []Member {
	var out []Member

	for _, m := range t.Members {
		if m.Kind == kind {
			out = append(out, m)
		}
	}

	return out
}

// TypeGraph holds every composed type. IDs index into the arena.
type TypeGraph struct {
	types   []*LogicalType
	byName  map[string]TypeID
	byLocal map[string][]TypeID
}

func newTypeGraph() *TypeGraph {
	return &TypeGraph{
		byName:  make(map[string]TypeID),
		byLocal: make(map[string][]TypeID),
	}
}

func (g *TypeGraph) add(t *LogicalType) {
	g.types = append(g.types, t)
	t.ID = TypeID(len(g.types))
	t.graph = g
	g.byName[t.Name] = t.ID
	g.byLocal[t.LocalName] = append(g.byLocal[t.LocalName], t.ID)
}

// Len returns the number of types.
func (g *TypeGraph) Len() int {
	return len(g.types)
}

// Types returns all types in discovery order.
func (g *TypeGraph) Types() []*LogicalType {
	return append([]*LogicalType(nil), g.types...)
}

// Type returns the type with the given ID, or nil.
func (g *TypeGraph) Type(id TypeID) *LogicalType {
	if id <= NoType || int(id) > len(g.types) {
		return nil
	}

	return g.types[id-1]
}

// Lookup finds a type by canonical name, falling back to a unique local name.
func (g *TypeGraph) Lookup(name string) *LogicalType {
	if id, ok := g.byName[name]; ok {
		return g.Type(id)
	}

	if ids := g.byLocal[name]; common.IsSingle(ids) {
		return g.Type(ids[0])
	}

	return nil
}

// LookupLocal returns every type whose local name is name.
func (g *TypeGraph) LookupLocal(name string) []*LogicalType {
	ids := g.byLocal[name]

	out := make([]*LogicalType, len(ids))
	for i, id := range ids {
		out[i] = g.Type(id)
	}

	return out
}

// Resolve returns the target of ref, or nil when unresolved.
func (g *TypeGraph) Resolve(ref TypeRef) *LogicalType {
	return g.Type(ref.ID)
}

// normalizeName strips pointer and reference markers, existential keywords,
// and generic arguments from a type expression.
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	for _, kw := range []string{"any ", "some "} {
		name = strings.TrimPrefix(name, kw)
	}

	name = strings.TrimLeft(name, "*& ")
	if i := strings.IndexAny(name, "<["); i > 0 {
		name = name[:i]
	}

	return strings.TrimSpace(name)
}
