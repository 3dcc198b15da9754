package compose

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"source-weaver/internal/annotation"
	"source-weaver/internal/decl"
	"source-weaver/internal/diagnostic"
	"source-weaver/internal/source"
)

func typeDecl(kind decl.Kind, name, file string, line int, inherits ...string) decl.PartialDeclaration {
	return decl.PartialDeclaration{
		Kind:     kind,
		Name:     name,
		Inherits: inherits,
		Location: source.Location{File: file, Line: line, Column: 1},
	}
}

func extDecl(name, file string, line int, inherits ...string) decl.PartialDeclaration {
	return typeDecl(decl.KindExtension, name, file, line, inherits...)
}

func method(name, body string, comment ...string) decl.Member {
	return decl.Member{
		Kind:    decl.MemberMethod,
		Name:    name,
		Body:    body,
		Comment: decl.Comment{Leading: comment},
	}
}

func mustCompose(t *testing.T, decls []decl.PartialDeclaration, order ...string) *Result {
	t.Helper()

	res, err := New(Options{FileOrder: order}).Compose(decls)
	require.NoError(t, err)
	require.NotNil(t, res)

	return res
}

func names(types []*LogicalType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.Name
	}

	return out
}

func TestCompose_TransitiveBasedTypes(t *testing.T) {
	res := mustCompose(t, []decl.PartialDeclaration{
		typeDecl(decl.KindClass, "A", "a.swift", 1, "B"),
		typeDecl(decl.KindClass, "B", "a.swift", 5, "C"),
		typeDecl(decl.KindProtocol, "C", "a.swift", 9),
	})

	a := res.Graph.Lookup("A")
	require.NotNil(t, a)

	assert.Equal(t, []string{"B", "C"}, names(a.BasedTypes()))
	assert.True(t, a.IsBasedOn("C"))
	assert.Equal(t, "B", a.Superclass().Name)
	assert.Empty(t, a.Protocols())
	assert.Equal(t, []string{"C"}, names(res.Graph.Lookup("B").Protocols()))
	assert.Empty(t, res.Graph.Lookup("C").BasedTypes())
}

func TestCompose_BasedNamesIncludeUnresolved(t *testing.T) {
	res := mustCompose(t, []decl.PartialDeclaration{
		typeDecl(decl.KindClass, "A", "a.swift", 1, "B", "Codable"),
		typeDecl(decl.KindClass, "B", "a.swift", 5, "Equatable"),
	})

	a := res.Graph.Lookup("A")
	require.NotNil(t, a)

	assert.Equal(t, []string{"B", "Equatable", "Codable"}, a.BasedNames())
	assert.True(t, a.IsBasedOn("Equatable"))
	assert.False(t, a.Inherits[1].Resolved())
	assert.Equal(t, "Codable", a.Inherits[1].Name)

	for _, d := range res.Diagnostics.Infos {
		assert.Equal(t, diagnostic.CodeUnresolvedReference, d.Code)
	}

	assert.Len(t, res.Diagnostics.Infos, 2)
	assert.False(t, res.Diagnostics.HasWarnings())
}

func TestCompose_Cycles(t *testing.T) {
	tests := []struct {
		name  string
		decls []decl.PartialDeclaration
		path  string
	}{
		{
			name: "self reference",
			decls: []decl.PartialDeclaration{
				typeDecl(decl.KindClass, "A", "a.swift", 1, "A"),
			},
			path: "A -> A",
		},
		{
			name: "two types",
			decls: []decl.PartialDeclaration{
				typeDecl(decl.KindClass, "A", "a.swift", 1, "B"),
				typeDecl(decl.KindClass, "B", "a.swift", 2, "A"),
			},
			path: "A -> B -> A",
		},
		{
			name: "through a protocol extension",
			decls: []decl.PartialDeclaration{
				typeDecl(decl.KindProtocol, "P", "a.swift", 1, "Q"),
				typeDecl(decl.KindProtocol, "Q", "a.swift", 2),
				extDecl("Q", "b.swift", 1, "R"),
				typeDecl(decl.KindProtocol, "R", "c.swift", 1, "P"),
			},
			path: "P -> Q -> R -> P",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(Options{}).Compose(tt.decls)
			require.Error(t, err)
			assert.Nil(t, res)

			assert.True(t, errors.Is(err, ErrComposition))
			assert.True(t, errors.Is(err, ErrSupertypeCycle))
			assert.False(t, errors.Is(err, ErrDuplicateDeclaration))
			assert.Contains(t, err.Error(), tt.path)

			var cerr *Error
			require.True(t, errors.As(err, &cerr))
			require.Len(t, cerr.Diagnostics.Errors, 1)
			assert.Equal(t, diagnostic.CodeSupertypeCycle, cerr.Diagnostics.Errors[0].Code)
		})
	}
}

func TestCompose_DuplicatePrimary(t *testing.T) {
	_, err := New(Options{}).Compose([]decl.PartialDeclaration{
		typeDecl(decl.KindStruct, "User", "a.swift", 3),
		typeDecl(decl.KindClass, "User", "b.swift", 7),
	})
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrDuplicateDeclaration))
	assert.Contains(t, err.Error(), "a.swift:3:1")
	assert.Contains(t, err.Error(), "b.swift:7:1")
}

func TestCompose_ExtensionOnlyType(t *testing.T) {
	ext := extDecl("Foo", "a.swift", 1)
	ext.Members = []decl.Member{method("bar", "")}

	res := mustCompose(t, []decl.PartialDeclaration{ext})

	foo := res.Graph.Lookup("Foo")
	require.NotNil(t, foo)

	assert.True(t, foo.IsExtension)
	assert.Equal(t, decl.KindExtension, foo.Kind)
	assert.Empty(t, foo.Inherits)
	assert.Empty(t, foo.Supertypes())
	assert.Empty(t, foo.BasedTypes())
	require.Len(t, foo.Members, 1)
	assert.Equal(t, foo.ID, foo.Members[0].Owner)
	assert.True(t, foo.Members[0].FromExtension)
	assert.True(t, res.Diagnostics.IsValid())
}

func TestCompose_ExtensionBindsToUniquePrimary(t *testing.T) {
	user := typeDecl(decl.KindStruct, "User", "a.swift", 1)
	user.Module = "app"
	user.Members = []decl.Member{{Kind: decl.MemberProperty, Name: "id", TypeName: "Int"}}

	ext := extDecl("User", "b.swift", 1, "Codable")
	ext.Members = []decl.Member{method("save", "")}

	res := mustCompose(t, []decl.PartialDeclaration{ext, user})

	require.Equal(t, 1, res.Graph.Len())

	u := res.Graph.Lookup("app.User")
	require.NotNil(t, u)
	assert.Same(t, u, res.Graph.Lookup("User"))

	assert.False(t, u.IsExtension)
	assert.Equal(t, "app", u.Module)
	assert.Equal(t, []string{"property id", "method save()"}, []string{u.Members[0].Signature(), u.Members[1].Signature()})
	assert.False(t, u.Members[0].FromExtension)
	assert.True(t, u.Members[1].FromExtension)
	assert.Equal(t, "Codable", u.Inherits[0].Name)
	assert.Len(t, u.Declarations, 2)
	assert.Equal(t, "a.swift", u.File())
}

func permutationFixture() []decl.PartialDeclaration {
	base := typeDecl(decl.KindProtocol, "Entity", "a.swift", 1)
	base.Comment = decl.Comment{Leading: []string{"// weaver: persist"}}

	user := typeDecl(decl.KindClass, "User", "a.swift", 10, "Entity")
	user.Members = []decl.Member{method("load", "")}

	extA := extDecl("User", "b.swift", 1, "Codable")
	extA.Members = []decl.Member{method("encode", "", "// weaver: skip = false")}

	extB := extDecl("User", "c.swift", 1)
	extB.Members = []decl.Member{method("encode", "", "// weaver: skip = true"), method("decode", "")}

	orphan := extDecl("Orphan", "c.swift", 20)

	admin := typeDecl(decl.KindClass, "Admin", "c.swift", 30, "User")

	return []decl.PartialDeclaration{base, user, extA, extB, orphan, admin}
}

func TestCompose_DeterministicUnderPermutation(t *testing.T) {
	order := []string{"a.swift", "b.swift", "c.swift"}
	fixture := permutationFixture()

	want := mustCompose(t, fixture, order...).Graph

	permutations := [][]int{
		{5, 4, 3, 2, 1, 0},
		{2, 0, 4, 1, 5, 3},
		{3, 4, 5, 0, 1, 2},
	}

	for _, perm := range permutations {
		decls := make([]decl.PartialDeclaration, len(perm))
		for i, j := range perm {
			decls[i] = fixture[j]
		}

		got := mustCompose(t, decls, order...).Graph
		assert.Empty(t, Diff(want, got), "permutation %v", perm)
	}

	assert.Equal(t, []string{"Entity", "User", "Orphan", "Admin"}, names(want.Types()))

	user := want.Lookup("User")
	require.NotNil(t, user)

	skip, ok := user.Members[1].Annotations.Get("skip")
	require.True(t, ok)
	assert.True(t, skip.Equal(annotation.Bool(true)))
}

func TestCompose_FileOrderBreaksMemberTies(t *testing.T) {
	fixture := permutationFixture()

	forward := mustCompose(t, fixture, "a.swift", "b.swift", "c.swift").Graph
	reverse := mustCompose(t, fixture, "a.swift", "c.swift", "b.swift").Graph

	sigs := func(g *TypeGraph) []string {
		u := g.Lookup("User")

		return memberSignatures(u)
	}

	assert.Equal(t, []string{"method load()", "method encode()", "method decode()"}, sigs(forward))
	assert.Equal(t, []string{"method load()", "method encode()", "method decode()"}, sigs(reverse))

	// c.swift first: its "skip = true" is overlaid by b.swift's "skip = false".
	skip, _ := reverse.Lookup("User").Members[1].Annotations.Get("skip")
	assert.True(t, skip.Equal(annotation.Bool(false)))
	assert.NotEmpty(t, Diff(forward, reverse))
}

func TestCompose_AnnotationMerge(t *testing.T) {
	primary := typeDecl(decl.KindStruct, "Job", "a.swift", 1)
	primary.Comment = decl.Comment{Leading: []string{"// weaver: a = 1"}}
	primary.Members = []decl.Member{method("run", "", "// weaver: x = 1")}

	first := extDecl("Job", "b.swift", 1)
	first.Comment = decl.Comment{Leading: []string{"// weaver: a = 2, b = 1"}}
	first.Members = []decl.Member{method("run", "", "// weaver: x = 2, y = 1"), method("stop", "", "// weaver: z = 1")}

	second := extDecl("Job", "c.swift", 1)
	second.Comment = decl.Comment{Leading: []string{"// weaver: b = 2, c"}}
	second.Members = []decl.Member{method("stop", "", "// weaver: z = 2")}

	res := mustCompose(t, []decl.PartialDeclaration{primary, first, second}, "a.swift", "b.swift", "c.swift")
	job := res.Graph.Lookup("Job")
	require.NotNil(t, job)

	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2), "c": true}, job.Annotations.Map())

	require.Len(t, job.Members, 2)
	assert.Equal(t, map[string]any{"x": float64(1), "y": float64(1)}, job.Members[0].Annotations.Map())
	assert.Equal(t, map[string]any{"z": float64(2)}, job.Members[1].Annotations.Map())
}

func TestCompose_MemberBodyConflict(t *testing.T) {
	first := extDecl("Job", "a.swift", 1)
	first.Members = []decl.Member{method("run", "a()")}

	second := extDecl("Job", "b.swift", 1)
	second.Members = []decl.Member{method("run", "b()")}

	same := extDecl("Job", "c.swift", 1)
	same.Members = []decl.Member{method("run", "a()")}

	res := mustCompose(t, []decl.PartialDeclaration{first, second, same}, "a.swift", "b.swift", "c.swift")

	job := res.Graph.Lookup("Job")
	require.Len(t, job.Members, 1)
	assert.Equal(t, "a()", job.Members[0].Body)

	require.Len(t, res.Diagnostics.Warnings, 1)
	w := res.Diagnostics.Warnings[0]
	assert.Equal(t, diagnostic.CodeMemberConflict, w.Code)
	assert.Equal(t, "Job.run", w.Subject)
	assert.Equal(t, "b.swift", w.Location.File)
}

func TestCompose_MemberAnnotationsLaterExtensionOverlays(t *testing.T) {
	primary := typeDecl(decl.KindStruct, "Job", "a.swift", 1)
	primary.Members = []decl.Member{method("f", "", "// weaver: a = 1")}

	first := extDecl("Job", "b.swift", 1)
	first.Members = []decl.Member{method("f", "", "// weaver: a = 2, b = 1")}

	second := extDecl("Job", "c.swift", 1)
	second.Members = []decl.Member{method("f", "", "// weaver: b = 2")}

	res := mustCompose(t, []decl.PartialDeclaration{primary, first, second}, "a.swift", "b.swift", "c.swift")

	job := res.Graph.Lookup("Job")
	require.Len(t, job.Members, 1)
	assert.False(t, job.Members[0].FromExtension)
	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, job.Members[0].Annotations.Map())
}

func TestCompose_MemberBodyConflictNamesAdoptedBody(t *testing.T) {
	primary := typeDecl(decl.KindStruct, "Job", "a.swift", 1)
	primary.Members = []decl.Member{method("run", "")}

	first := extDecl("Job", "b.swift", 1)
	first.Members = []decl.Member{method("run", "b()")}

	second := extDecl("Job", "c.swift", 1)
	second.Members = []decl.Member{method("run", "c()")}

	res := mustCompose(t, []decl.PartialDeclaration{primary, first, second}, "a.swift", "b.swift", "c.swift")

	job := res.Graph.Lookup("Job")
	require.Len(t, job.Members, 1)
	assert.Equal(t, "b()", job.Members[0].Body)
	assert.Equal(t, "a.swift", job.Members[0].Location.File)

	require.Len(t, res.Diagnostics.Warnings, 1)
	w := res.Diagnostics.Warnings[0]
	assert.Contains(t, w.Message, "keeping the one from b.swift:1:1")
	assert.Equal(t, "c.swift", w.Location.File)
}

func TestCompose_ParameterDetails(t *testing.T) {
	param := func(name, def string, comment ...string) decl.Parameter {
		return decl.Parameter{
			Label:        "by",
			Name:         name,
			TypeName:     "Int",
			DefaultValue: def,
			Comment:      decl.Comment{Leading: comment},
		}
	}

	bump := method("bump", "")
	bump.Parameters = []decl.Parameter{param("step", "", `// weaver: min = 1, unit = "x"`)}

	primary := typeDecl(decl.KindStruct, "Counter", "a.swift", 1)
	primary.Members = []decl.Member{bump}

	again := method("bump", "")
	again.Parameters = []decl.Parameter{param("n", "2", "// weaver: min = 5, max = 10")}

	byRef := method("bump", "")
	byRef.Parameters = []decl.Parameter{{Label: "by", Name: "total", TypeName: "Int", IsInout: true}}

	ext := extDecl("Counter", "b.swift", 1)
	ext.Members = []decl.Member{again, byRef}

	res := mustCompose(t, []decl.PartialDeclaration{primary, ext}, "a.swift", "b.swift")

	counter := res.Graph.Lookup("Counter")
	require.Len(t, counter.Members, 2)
	assert.Equal(t, "method bump(by:Int)", counter.Members[0].Signature())
	assert.Equal(t, "method bump(by:inout Int)", counter.Members[1].Signature())

	require.Len(t, counter.Members[0].Parameters, 1)
	step := counter.Members[0].Parameters[0]
	assert.Equal(t, "step", step.Name)
	assert.Equal(t, "2", step.DefaultValue)
	assert.Equal(t, map[string]any{"min": float64(1), "unit": "x", "max": float64(10)}, step.Annotations.Map())

	assert.True(t, counter.Members[1].Parameters[0].IsInout)
}

func TestCompose_UnresolvedReferenceSuggestions(t *testing.T) {
	res := mustCompose(t, []decl.PartialDeclaration{
		typeDecl(decl.KindClass, "BaseModel", "a.swift", 1),
		typeDecl(decl.KindClass, "Account", "a.swift", 5, "BaseModle", "Codable"),
	})

	require.Len(t, res.Diagnostics.Warnings, 1)
	w := res.Diagnostics.Warnings[0]
	assert.Equal(t, diagnostic.CodeUnresolvedReference, w.Code)
	assert.Equal(t, "Account", w.Subject)
	assert.Equal(t, []string{"BaseModel"}, w.Suggestions)
	assert.Contains(t, w.String(), "did you mean BaseModel?")

	require.Len(t, res.Diagnostics.Infos, 1)
	assert.Empty(t, res.Diagnostics.Infos[0].Suggestions)

	account := res.Graph.Lookup("Account")
	assert.Len(t, account.Inherits, 2)
	assert.Empty(t, account.Supertypes())
}

func TestCompose_InheritanceNamesNormalised(t *testing.T) {
	res := mustCompose(t, []decl.PartialDeclaration{
		typeDecl(decl.KindClass, "Base", "a.swift", 1),
		typeDecl(decl.KindClass, "Child", "a.swift", 2, "Base<Int>", "*Base", "any Base"),
	})

	child := res.Graph.Lookup("Child")
	require.Len(t, child.Inherits, 1)
	assert.Equal(t, "Base<Int>", child.Inherits[0].Name)
	assert.Equal(t, "Base", child.Inherits[0].BaseName())
	assert.True(t, child.Inherits[0].Resolved())
}

func TestCompose_GenericRequirements(t *testing.T) {
	payload := typeDecl(decl.KindProtocol, "Payload", "a.swift", 1)

	box := typeDecl(decl.KindStruct, "Box", "a.swift", 5)
	box.GenericParameters = []decl.GenericParameter{{Name: "T"}}
	box.Members = []decl.Member{{Kind: decl.MemberAssociatedType, Name: "Element"}}
	box.GenericRequirements = []decl.GenericRequirement{
		{Left: "T", Right: "Hashable", Relationship: decl.RelationshipConformsTo},
		{Left: "Element", Right: "Int", Relationship: decl.RelationshipEquals},
		{Left: "Payload", Right: "Key: Hashable", Relationship: decl.RelationshipConformsTo},
		{Left: "T.Element", Right: "Dictionary<String, Int>", Relationship: decl.RelationshipEquals},
		{Left: "T", Right: "Array<Int", Relationship: decl.RelationshipEquals},
		{Left: "", Right: "Int", Relationship: decl.RelationshipEquals},
		{Left: "T", Right: "Hashable", Relationship: decl.RelationshipConformsTo},
	}

	res := mustCompose(t, []decl.PartialDeclaration{payload, box})

	b := res.Graph.Lookup("Box")
	require.Len(t, b.GenericRequirements, 4)

	assert.Equal(t, "T: Hashable", b.GenericRequirements[0].String())
	assert.False(t, b.GenericRequirements[0].Left.Resolved())

	assert.Equal(t, "Element == Int", b.GenericRequirements[1].String())

	assert.Equal(t, res.Graph.Lookup("Payload").ID, b.GenericRequirements[2].Left.ID)
	assert.Equal(t, GenericTypeParameter{TypeName: "Key", Constraint: "Hashable"}, b.GenericRequirements[2].Right)

	assert.Equal(t, GenericTypeParameter{TypeName: "Dictionary<String, Int>"}, b.GenericRequirements[3].Right)

	require.Len(t, res.Diagnostics.Warnings, 2)
	for _, w := range res.Diagnostics.Warnings {
		assert.Equal(t, diagnostic.CodeGenericMalformed, w.Code)
	}

	assert.Empty(t, res.Diagnostics.Infos)
}

func TestCompose_MalformedAnnotationIsNotFatal(t *testing.T) {
	d := typeDecl(decl.KindStruct, "Job", "a.swift", 1)
	d.Comment = decl.Comment{Leading: []string{`// weaver: ok = 1, bad = [1, 2`}}

	res := mustCompose(t, []decl.PartialDeclaration{d})

	job := res.Graph.Lookup("Job")
	assert.Equal(t, map[string]any{"ok": float64(1)}, job.Annotations.Map())
	require.Len(t, res.Diagnostics.Warnings, 1)
	assert.Equal(t, diagnostic.CodeAnnotationMalformed, res.Diagnostics.Warnings[0].Code)
}

func TestTypeGraph_ConcurrentClosure(t *testing.T) {
	res := mustCompose(t, []decl.PartialDeclaration{
		typeDecl(decl.KindClass, "A", "a.swift", 1, "B", "D"),
		typeDecl(decl.KindClass, "B", "a.swift", 2, "C"),
		typeDecl(decl.KindProtocol, "C", "a.swift", 3),
		typeDecl(decl.KindProtocol, "D", "a.swift", 4, "C"),
	})

	var wg sync.WaitGroup

	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			results[i] = names(res.Graph.Lookup("A").BasedTypes())
		}(i)
	}

	wg.Wait()

	for _, r := range results {
		assert.Equal(t, []string{"B", "C", "D"}, r)
	}
}

func TestTypeGraph_LookupAmbiguousLocalName(t *testing.T) {
	a := typeDecl(decl.KindStruct, "Item", "a.swift", 1)
	a.Module = "shop"
	b := typeDecl(decl.KindStruct, "Item", "b.swift", 1)
	b.Module = "blog"

	res := mustCompose(t, []decl.PartialDeclaration{a, b})

	assert.Nil(t, res.Graph.Lookup("Item"))
	assert.NotNil(t, res.Graph.Lookup("shop.Item"))
	assert.Len(t, res.Graph.LookupLocal("Item"), 2)
	assert.Nil(t, res.Graph.Type(NoType))
	assert.Nil(t, res.Graph.Type(TypeID(99)))
}

func TestDiff_NamesMismatches(t *testing.T) {
	a := typeDecl(decl.KindStruct, "Job", "a.swift", 1)
	b := a
	b.Comment = decl.Comment{Leading: []string{"// weaver: queue = \"fast\""}}
	b.Location = source.Location{File: "elsewhere.swift", Line: 42}

	left := mustCompose(t, []decl.PartialDeclaration{a}).Graph
	right := mustCompose(t, []decl.PartialDeclaration{b}).Graph

	diffs := Diff(left, right)
	require.Len(t, diffs, 1)
	assert.Equal(t, "Job.annotations", diffs[0].Path)
	assert.Contains(t, diffs[0].String(), `queue = "fast"`)

	b.Comment = decl.Comment{}
	assert.Empty(t, Diff(left, mustCompose(t, []decl.PartialDeclaration{b}).Graph), "locations are ignored")

	extra := mustCompose(t, []decl.PartialDeclaration{a, typeDecl(decl.KindEnum, "State", "a.swift", 9)}).Graph
	diffs = Diff(left, extra)
	require.NotEmpty(t, diffs)
	assert.Equal(t, "types", diffs[0].Path)
	assert.True(t, slices.ContainsFunc(diffs, func(m Mismatch) bool { return m.Path == "types" }))
}
