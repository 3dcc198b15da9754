package compose

import (
	"fmt"
	"slices"

	"github.com/davecgh/go-spew/spew"

	"source-weaver/internal/annotation"
)

// Mismatch is one difference found by Diff.
type Mismatch struct {
	Path     string // e.g. "app.User.members[2].annotations"
	Expected string
	Actual   string
}

// String returns a human-readable representation of the mismatch.
func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", m.Path, m.Expected, m.Actual)
}

var dumper = spew.ConfigState{
	Indent:                  " ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Diff compares two graphs field by field, ignoring source locations, and
// returns the named mismatches. An empty result means the graphs are
// structurally identical, including type order.
func Diff(expected, actual *TypeGraph) []Mismatch {
	var d differ

	expNames := typeNames(expected)
	actNames := typeNames(actual)

	if !slices.Equal(expNames, actNames) {
		d.add("types", expNames, actNames)
	}

	for _, et := range expected.types {
		at := actual.Lookup(et.Name)
		if at == nil || at.Name != et.Name {
			continue
		}

		d.diffType(et, at)
	}

	return d.out
}

type differ struct {
	out []Mismatch
}

func (d *differ) add(path string, expected, actual any) {
	d.out = append(d.out, Mismatch{
		Path:     path,
		Expected: dumper.Sprint(expected),
		Actual:   dumper.Sprint(actual),
	})
}

func (d *differ) check(path string, equal bool, expected, actual any) {
	if !equal {
		d.add(path, expected, actual)
	}
}

func (d *differ) diffType(e, a *LogicalType) {
	p := e.Name

	d.check(p+".kind", e.Kind == a.Kind, e.Kind.String(), a.Kind.String())
	d.check(p+".isExtension", e.IsExtension == a.IsExtension, e.IsExtension, a.IsExtension)
	d.check(p+".localName", e.LocalName == a.LocalName, e.LocalName, a.LocalName)
	d.check(p+".module", e.Module == a.Module, e.Module, a.Module)
	d.check(p+".aliasOf", e.AliasOf == a.AliasOf, e.AliasOf, a.AliasOf)
	d.check(p+".genericParameters", slices.Equal(e.GenericParameters, a.GenericParameters),
		e.GenericParameters, a.GenericParameters)

	eReqs, aReqs := requirementStrings(e), requirementStrings(a)
	d.check(p+".genericRequirements", slices.Equal(eReqs, aReqs), eReqs, aReqs)

	eInh, aInh := inheritStrings(e), inheritStrings(a)
	d.check(p+".inherits", slices.Equal(eInh, aInh), eInh, aInh)

	d.diffBag(p+".annotations", e.Annotations, a.Annotations)

	if len(e.Members) != len(a.Members) {
		d.add(p+".members", memberSignatures(e), memberSignatures(a))

		return
	}

	for i := range e.Members {
		d.diffMember(fmt.Sprintf("%s.members[%d]", p, i), &e.Members[i], &a.Members[i])
	}
}

func (d *differ) diffMember(p string, e, a *Member) {
	d.check(p+".signature", e.Signature() == a.Signature(), e.Signature(), a.Signature())
	d.check(p+".type", e.TypeName == a.TypeName, e.TypeName, a.TypeName)
	d.check(p+".body", e.Body == a.Body, e.Body, a.Body)
	d.check(p+".fromExtension", e.FromExtension == a.FromExtension, e.FromExtension, a.FromExtension)
	d.diffBag(p+".annotations", e.Annotations, a.Annotations)
}

func (d *differ) diffBag(p string, e, a annotation.Bag) {
	d.check(p, e.Equal(a), e.String(), a.String())
}

func typeNames(g *TypeGraph) []string {
	names := make([]string, len(g.types))
	for i, t := range g.types {
		names[i] = t.Name
	}

	return names
}

func requirementStrings(t *LogicalType) []string {
	out := make([]string, len(t.GenericRequirements))
	for i, r := range t.GenericRequirements {
		out[i] = r.String() + " -> " + t.graph.refTarget(r.Left)
	}

	return out
}

func inheritStrings(t *LogicalType) []string {
	out := make([]string, len(t.Inherits))
	for i, r := range t.Inherits {
		out[i] = r.Name + " -> " + t.graph.refTarget(r)
	}

	return out
}

func memberSignatures(t *LogicalType) []string {
	out := make([]string, len(t.Members))
	for i := range t.Members {
		out[i] = t.Members[i].Signature()
	}

	return out
}

// refTarget names the target of ref, independent of arena positions.
func (g *TypeGraph) refTarget(ref TypeRef) string {
	if st := g.Type(ref.ID); st != nil {
		return st.Name
	}

	return "?"
}
