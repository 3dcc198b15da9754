package compose

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"source-weaver/internal/annotation"
	"source-weaver/internal/common"
	"source-weaver/internal/decl"
	"source-weaver/internal/diagnostic"
	"source-weaver/internal/match"
	"source-weaver/internal/source"
)

// Options configures a Composer.
type Options struct {
	// FileOrder ranks input files. Declarations from files not listed follow
	// the listed ones, sorted by path.
	FileOrder []string
	// Marker is the annotation marker, annotation.DefaultMarker when empty.
	Marker string
}

// Composer builds a TypeGraph from partial declarations.
type Composer struct {
	opts   Options
	parser *annotation.Parser
	rank   map[string]int
}

// Result is a successful composition.
type Result struct {
	Graph       *TypeGraph
	Diagnostics diagnostic.Diagnostics
}

// New creates a Composer.
func New(opts Options) *Composer {
	rank := make(map[string]int, len(opts.FileOrder))
	for i, f := range opts.FileOrder {
		if _, ok := rank[f]; !ok {
			rank[f] = i
		}
	}

	return &Composer{
		opts:   opts,
		parser: annotation.NewParser(opts.Marker),
		rank:   rank,
	}
}

// group collects the declarations sharing one canonical name.
type group struct {
	name       string
	primary    *decl.PartialDeclaration
	extensions []*decl.PartialDeclaration
	first      int // position of the earliest declaration in the ordered input
}

type state struct {
	parser *annotation.Parser
	graph  *TypeGraph
	names  []string // canonical names, for suggestions
	diags  diagnostic.Diagnostics
}

// Compose merges decls into a TypeGraph. Fatal problems (supertype cycles,
// duplicate primary declarations) return an *Error and no graph; everything
// else is reported in Result.Diagnostics.
func (c *Composer) Compose(decls []decl.PartialDeclaration) (*Result, error) {
	s := &state{parser: c.parser, graph: newTypeGraph()}

	groups := s.group(c.order(decls))

	for _, g := range groups {
		s.graph.add(s.newType(g))
	}

	for _, t := range s.graph.types {
		s.names = append(s.names, t.Name)
	}

	for i, g := range groups {
		t := s.graph.types[i]
		s.mergeMembers(t, g)
		s.resolveInherits(t, g)
		s.resolveRequirements(t, g)
	}

	s.checkCycles()

	if s.diags.HasErrors() {
		return nil, &Error{Diagnostics: s.diags}
	}

	return &Result{Graph: s.graph, Diagnostics: s.diags}, nil
}

// order returns pointers to decls sorted by file rank, then position within
// the file. Ties keep input order.
func (c *Composer) order(decls []decl.PartialDeclaration) []*decl.PartialDeclaration {
	out := make([]*decl.PartialDeclaration, len(decls))
	for i := range decls {
		out[i] = &decls[i]
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a.File != b.File {
			return c.fileLess(a.File, b.File)
		}

		if a.Line != b.Line {
			return a.Line < b.Line
		}

		return a.Column < b.Column
	})

	return out
}

func (c *Composer) fileLess(a, b string) bool {
	ra, okA := c.rank[a]
	rb, okB := c.rank[b]

	switch {
	case okA && okB:
		return ra < rb
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}

// group buckets declarations by canonical name. Primaries are placed first so
// extensions can bind to them regardless of file order.
func (s *state) group(ordered []*decl.PartialDeclaration) []*group {
	byName := make(map[string]*group)
	localPrimaries := make(map[string][]string)

	var groups []*group

	for i, d := range ordered {
		if d.IsExtension() {
			continue
		}

		name := d.CanonicalName()
		if g, ok := byName[name]; ok {
			s.diags.AddError(diagnostic.CodeDuplicateDeclaration,
				fmt.Sprintf("type %s is declared at %s and again at %s", name, where(g.primary.Location), where(d.Location)),
				name, d.Location)

			continue
		}

		g := &group{name: name, primary: d, first: i}
		byName[name] = g
		groups = append(groups, g)

		local := decl.LocalName(name)
		localPrimaries[local] = append(localPrimaries[local], name)
	}

	for i, d := range ordered {
		if !d.IsExtension() {
			continue
		}

		name := s.bindExtension(d, byName, localPrimaries)

		g, ok := byName[name]
		if !ok {
			g = &group{name: name, first: i}
			byName[name] = g
			groups = append(groups, g)
		}

		g.extensions = append(g.extensions, d)
		g.first = min(g.first, i)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].first < groups[j].first
	})

	return groups
}

// bindExtension picks the canonical name an extension contributes to: the
// same-module primary, else the unique primary with that local name, else the
// extension's own canonical name.
func (s *state) bindExtension(d *decl.PartialDeclaration, byName map[string]*group, localPrimaries map[string][]string) string {
	full := d.CanonicalName()
	if g, ok := byName[full]; ok && g.primary != nil {
		return full
	}

	if strings.Contains(d.Name, ".") {
		return full
	}

	switch candidates := localPrimaries[d.Name]; len(candidates) {
	case 0:
	case 1:
		return candidates[0]
	default:
		s.diags.Add(diagnostic.Diagnostic{
			Severity:    diagnostic.SeverityWarning,
			Code:        diagnostic.CodeUnresolvedReference,
			Message:     fmt.Sprintf("extension of %s matches several types; treating it as a separate type", d.Name),
			Subject:     full,
			Location:    d.Location,
			Suggestions: candidates,
		})
	}

	return full
}

func (s *state) newType(g *group) *LogicalType {
	t := &LogicalType{
		Name:        g.name,
		LocalName:   decl.LocalName(g.name),
		Module:      moduleOf(g.name),
		Kind:        decl.KindExtension,
		IsExtension: true,
		Annotations: annotation.Bag{},
	}

	if p := g.primary; p != nil {
		t.Kind = p.Kind
		t.IsExtension = false
		t.AliasOf = p.AliasOf
		t.GenericParameters = slices.Clone(p.GenericParameters)
		t.Declarations = append(t.Declarations, p.Location)
		t.Annotations = s.parser.ParseComment(p.Comment, p.Location, &s.diags)
	}

	fromExtensions := annotation.Bag{}

	for _, e := range g.extensions {
		t.Declarations = append(t.Declarations, e.Location)
		fromExtensions.Merge(s.parser.ParseComment(e.Comment, e.Location, &s.diags))

		if g.primary == nil && len(t.GenericParameters) == 0 {
			t.GenericParameters = slices.Clone(e.GenericParameters)
		}
	}

	t.Annotations.MergeMissing(fromExtensions)

	return t
}

// memberOrigin remembers, per merged member, the annotations its primary
// declaration carried and where the kept body was declared.
type memberOrigin struct {
	primary       annotation.Bag
	primaryParams []annotation.Bag
	body          source.Location
}

// mergeMembers unions the members of the primary and every extension.
// Duplicates by signature are kept once, attributed to the first declaration.
func (s *state) mergeMembers(t *LogicalType, g *group) {
	index := make(map[string]int)

	var origins []memberOrigin

	add := func(d *decl.PartialDeclaration, fromExtension bool) {
		for i := range d.Members {
			m := &d.Members[i]

			loc := m.Location
			if loc.IsZero() {
				loc = d.Location
			}

			bag := s.parser.ParseComment(m.Comment, loc, &s.diags)
			params := s.parameters(m.Parameters, loc)

			sig := m.Signature()
			if at, ok := index[sig]; ok {
				s.mergeMember(t, &t.Members[at], &origins[at], m, bag, params, loc)

				continue
			}

			origin := memberOrigin{body: loc}
			if !fromExtension {
				origin.primary = bag.Clone()
				for _, p := range params {
					origin.primaryParams = append(origin.primaryParams, p.Annotations.Clone())
				}
			}

			index[sig] = len(t.Members)
			origins = append(origins, origin)
			t.Members = append(t.Members, Member{
				Kind:          m.Kind,
				Name:          m.Name,
				Parameters:    params,
				TypeName:      m.TypeName,
				IsStatic:      m.IsStatic,
				Body:          m.Body,
				Annotations:   bag,
				Owner:         t.ID,
				FromExtension: fromExtension,
				Location:      loc,
			})
		}
	}

	if g.primary != nil {
		add(g.primary, false)
	}

	for _, e := range g.extensions {
		add(e, true)
	}
}

func (s *state) parameters(params []decl.Parameter, loc source.Location) []Parameter {
	if len(params) == 0 {
		return nil
	}

	out := make([]Parameter, len(params))
	for i, p := range params {
		out[i] = Parameter{
			Label:        p.Label,
			Name:         p.Name,
			TypeName:     p.TypeName,
			IsInout:      p.IsInout,
			DefaultValue: p.DefaultValue,
			Annotations:  s.parser.ParseComment(p.Comment, loc, &s.diags),
		}
	}

	return out
}

// mergeMember folds a redeclaration into existing. Later declarations
// overlay earlier annotations, except keys the primary declared.
func (s *state) mergeMember(t *LogicalType, existing *Member, origin *memberOrigin, m *decl.Member,
	bag annotation.Bag, params []Parameter, loc source.Location,
) {
	overlay(existing.Annotations, bag, origin.primary)

	for i := range existing.Parameters {
		ep, p := &existing.Parameters[i], params[i]

		var primary annotation.Bag
		if i < len(origin.primaryParams) {
			primary = origin.primaryParams[i]
		}

		overlay(ep.Annotations, p.Annotations, primary)

		if ep.Name == "" {
			ep.Name = p.Name
		}

		if ep.DefaultValue == "" {
			ep.DefaultValue = p.DefaultValue
		}
	}

	if existing.TypeName == "" {
		existing.TypeName = m.TypeName
	}

	switch {
	case m.Body == "" || m.Body == existing.Body:
	case existing.Body == "":
		existing.Body = m.Body
		origin.body = loc
	default:
		s.diags.AddWarning(diagnostic.CodeMemberConflict,
			fmt.Sprintf("%s has two different bodies; keeping the one from %s", existing.Signature(), where(origin.body)),
			t.Name+"."+existing.Name, loc)
	}
}

// overlay copies later into dst and then restores the keys of primary.
func overlay(dst, later, primary annotation.Bag) {
	dst.Merge(later)
	dst.Merge(primary)
}

func (s *state) resolveInherits(t *LogicalType, g *group) {
	seen := make(map[string]bool)

	add := func(d *decl.PartialDeclaration) {
		for _, raw := range d.Inherits {
			ref := TypeRef{Name: strings.TrimSpace(raw)}

			base := ref.BaseName()
			if base == "" || seen[base] {
				continue
			}

			seen[base] = true

			ref.ID = s.resolve(base, t.Module)
			if !ref.Resolved() {
				s.unresolved(t, base, d.Location)
			}

			t.Inherits = append(t.Inherits, ref)
		}
	}

	if g.primary != nil {
		add(g.primary)
	}

	for _, e := range g.extensions {
		add(e)
	}
}

// resolve looks name up exactly, then qualified with module, then by unique
// local name.
func (s *state) resolve(name, module string) TypeID {
	if id, ok := s.graph.byName[name]; ok {
		return id
	}

	if id, ok := s.graph.byName[decl.Qualify(module, name)]; ok {
		return id
	}

	if !strings.Contains(name, ".") {
		if ids := s.graph.byLocal[name]; common.IsSingle(ids) {
			return ids[0]
		}
	}

	return NoType
}

// unresolved records a reference to a type outside the parsed set. A close
// spelling match suggests a typo and is reported as a warning; anything else
// is most likely an external type and only noted.
func (s *state) unresolved(t *LogicalType, name string, loc source.Location) {
	suggestions := match.Suggest(name, s.names)

	severity := diagnostic.SeverityInfo
	if len(suggestions) > 0 {
		severity = diagnostic.SeverityWarning
	}

	s.diags.Add(diagnostic.Diagnostic{
		Severity:    severity,
		Code:        diagnostic.CodeUnresolvedReference,
		Message:     fmt.Sprintf("%s is not among the parsed types", name),
		Subject:     t.Name,
		Location:    loc,
		Suggestions: suggestions,
	})
}

func (s *state) resolveRequirements(t *LogicalType, g *group) {
	local := make(map[string]bool)
	local["Self"] = true

	for _, p := range t.GenericParameters {
		local[p.Name] = true
	}

	for _, m := range t.Members {
		if m.Kind == decl.MemberAssociatedType {
			local[m.Name] = true
		}
	}

	add := func(d *decl.PartialDeclaration) {
		for _, r := range d.GenericRequirements {
			req, err := parseRequirement(r)
			if err != nil {
				s.diags.AddWarning(diagnostic.CodeGenericMalformed,
					fmt.Sprintf("dropped generic requirement %q: %v", r.String(), err), t.Name, d.Location)

				continue
			}

			if root := rootName(req.Left.Name); !local[root] {
				req.Left.ID = s.resolve(req.Left.BaseName(), t.Module)
				if !req.Left.Resolved() {
					s.unresolved(t, req.Left.BaseName(), d.Location)
				}
			}

			if !slices.Contains(t.GenericRequirements, req) {
				t.GenericRequirements = append(t.GenericRequirements, req)
			}
		}
	}

	if g.primary != nil {
		add(g.primary)
	}

	for _, e := range g.extensions {
		add(e)
	}
}

func parseRequirement(r decl.GenericRequirement) (GenericRequirement, error) {
	left := strings.TrimSpace(r.Left)
	right := strings.TrimSpace(r.Right)

	if err := checkTypeExpr(left); err != nil {
		return GenericRequirement{}, fmt.Errorf("left side: %w", err)
	}

	if err := checkTypeExpr(right); err != nil {
		return GenericRequirement{}, fmt.Errorf("right side: %w", err)
	}

	param := GenericTypeParameter{TypeName: right}

	for _, sep := range []string{"==", ":"} {
		i := indexTopLevel(right, sep)
		if i < 0 {
			continue
		}

		name, constraint := strings.TrimSpace(right[:i]), strings.TrimSpace(right[i+len(sep):])
		if name == "" || constraint == "" {
			return GenericRequirement{}, fmt.Errorf("right side %q has an empty operand", right)
		}

		param = GenericTypeParameter{TypeName: name, Constraint: constraint}

		break
	}

	return GenericRequirement{
		Left:         TypeRef{Name: left},
		Right:        param,
		Relationship: r.Relationship,
	}, nil
}

// checkTypeExpr accepts non-empty text with balanced brackets. The arrow of
// function types ("->") does not close an angle bracket.
func checkTypeExpr(s string) error {
	if s == "" {
		return fmt.Errorf("empty type expression")
	}

	pairs := map[byte]byte{')': '(', ']': '[', '}': '{', '>': '<'}

	var stack []byte

	for i := 0; i < len(s); i++ {
		ch := s[i]

		switch ch {
		case '(', '[', '{', '<':
			stack = append(stack, ch)
		case ')', ']', '}', '>':
			if ch == '>' && i > 0 && s[i-1] == '-' {
				continue
			}

			if len(stack) == 0 || stack[len(stack)-1] != pairs[ch] {
				return fmt.Errorf("unbalanced %q in %q", ch, s)
			}

			stack = stack[:len(stack)-1]
		case '"', '\'', ';':
			return fmt.Errorf("unexpected %q in %q", ch, s)
		}
	}

	if len(stack) > 0 {
		return fmt.Errorf("unclosed %q in %q", stack[len(stack)-1], s)
	}

	return nil
}

// indexTopLevel finds sep outside any brackets.
func indexTopLevel(s, sep string) int {
	depth := 0

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}':
			depth--
		case '>':
			if i == 0 || s[i-1] != '-' {
				depth--
			}
		}

		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			return i
		}
	}

	return -1
}

// rootName returns the first path segment, e.g. "T" for "T.Element".
func rootName(name string) string {
	base := normalizeName(name)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}

	return base
}

// checkCycles runs a depth-first search over resolved supertype edges and
// reports every back edge as a fatal cycle.
func (s *state) checkCycles() {
	const (
		unvisited = iota
		visiting
		done
	)

	marks := make([]int, s.graph.Len()+1)

	var stack []TypeID

	var visit func(id TypeID)
	visit = func(id TypeID) {
		marks[id] = visiting
		stack = append(stack, id)

		for _, ref := range s.graph.Type(id).Inherits {
			if !ref.Resolved() {
				continue
			}

			switch marks[ref.ID] {
			case visiting:
				s.reportCycle(stack, ref.ID)
			case unvisited:
				visit(ref.ID)
			}
		}

		stack = stack[:len(stack)-1]
		marks[id] = done
	}

	for _, t := range s.graph.types {
		if marks[t.ID] == unvisited {
			visit(t.ID)
		}
	}
}

func (s *state) reportCycle(stack []TypeID, target TypeID) {
	start := slices.Index(stack, target)

	path := make([]string, 0, len(stack)-start+1)
	for _, id := range stack[start:] {
		path = append(path, s.graph.Type(id).Name)
	}

	t := s.graph.Type(target)
	path = append(path, t.Name)

	s.diags.AddError(diagnostic.CodeSupertypeCycle,
		"supertype cycle: "+strings.Join(path, " -> "), t.Name, t.Location())
}

func moduleOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}

	return ""
}

func where(loc source.Location) string {
	if s := loc.String(); s != "" {
		return s
	}

	return "an unknown location"
}
