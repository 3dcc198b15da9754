package decl

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"source-weaver/internal/common"
	"source-weaver/internal/source"
)

// PartialDeclaration is one type-level declaration as emitted by an extractor.
type PartialDeclaration struct {
	// Kind of the declaration.
	Kind Kind `yaml:"kind"`
	// Name is the local (or already qualified) type name.
	Name string `yaml:"name"`
	// Module qualifies Name when the extractor knows it.
	Module string `yaml:"module,omitempty"`
	// Inherits lists declared supertypes and protocols, unresolved.
	Inherits []string `yaml:"inherits,omitempty"`
	// GenericParameters are the declared type parameters.
	GenericParameters []GenericParameter `yaml:"generic_parameters,omitempty"`
	// GenericRequirements are where-clause style constraints.
	GenericRequirements []GenericRequirement `yaml:"generic_requirements,omitempty"`
	// Members declared in this unit, in source order.
	Members []Member `yaml:"members,omitempty"`
	// AliasOf is the aliased type expression for typealiases.
	AliasOf string `yaml:"alias_of,omitempty"`
	// Comment is the raw comment text attached to the declaration.
	Comment Comment `yaml:"comment,omitempty"`
	// Location of the declaration keyword.
	Location source.Location `yaml:"location,omitempty"`
}

// IsExtension reports whether the declaration extends a type declared elsewhere.
func (d *PartialDeclaration) IsExtension() bool {
	return d.Kind == KindExtension
}

// CanonicalName returns the module-qualified name, or the bare name when
// no module is known or the name is already qualified.
func (d *PartialDeclaration) CanonicalName() string {
	return Qualify(d.Module, d.Name)
}

// Qualify joins module and name unless name already contains a module prefix.
func Qualify(module, name string) string {
	if module == "" || strings.Contains(name, ".") {
		return name
	}

	return module + "." + name
}

// LocalName strips any module prefix from a canonical name.
func LocalName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}

	return name
}

// Member is a method, property, subscript, or associated type.
type Member struct {
	// Kind of the member.
	Kind MemberKind `yaml:"kind"`
	// Name of the member (empty for subscripts).
	Name string `yaml:"name,omitempty"`
	// Parameters of methods and subscripts.
	Parameters []Parameter `yaml:"parameters,omitempty"`
	// TypeName is the property type or the method result type.
	TypeName string `yaml:"type,omitempty"`
	// IsStatic marks type-level members.
	IsStatic bool `yaml:"static,omitempty"`
	// Body is the implementation text, when the extractor supplies it.
	Body string `yaml:"body,omitempty"`
	// Comment is the raw comment text attached to the member.
	Comment Comment `yaml:"comment,omitempty"`
	// Location of the member.
	Location source.Location `yaml:"location,omitempty"`
}

// Signature identifies a member for duplicate detection: kind, static flag,
// name, and parameter labels with their types. Defaults and comments do not
// take part.
func (m *Member) Signature() string {
	var b strings.Builder
	if m.IsStatic {
		b.WriteString("static ")
	}

	b.WriteString(m.Kind.String())
	b.WriteString(" ")
	b.WriteString(m.Name)

	if m.Kind == MemberMethod || m.Kind == MemberSubscript {
		b.WriteString("(")
		for i, p := range m.Parameters {
			if i > 0 {
				b.WriteString(",")
			}

			b.WriteString(p.Label)
			b.WriteString(":")

			if p.IsInout {
				b.WriteString("inout ")
			}

			b.WriteString(p.TypeName)
		}
		b.WriteString(")")
	}

	return b.String()
}

// Parameter is a method or subscript parameter.
type Parameter struct {
	// Label is the external argument label (empty when the language has none).
	Label string `yaml:"label,omitempty"`
	// Name is the internal parameter name.
	Name string `yaml:"name,omitempty"`
	// TypeName is the parameter type expression.
	TypeName string `yaml:"type"`
	// IsInout marks parameters passed by reference.
	IsInout bool `yaml:"inout,omitempty"`
	// DefaultValue is the default argument expression, verbatim.
	DefaultValue string `yaml:"default,omitempty"`
	// Comment is the raw comment text attached to the parameter.
	Comment Comment `yaml:"comment,omitempty"`
}

// GenericParameter is a declared type parameter with an optional constraint.
type GenericParameter struct {
	Name       string `yaml:"name"`
	Constraint string `yaml:"constraint,omitempty"`
}

// Relationship ties the two sides of a generic requirement.
type Relationship int

const (
	RelationshipEquals Relationship = iota
	RelationshipConformsTo
)

// String returns the relationship name.
func (r Relationship) String() string {
	switch r {
	case RelationshipEquals:
		return "equals"
	case RelationshipConformsTo:
		return "conformsTo"
	default:
		return common.UnknownStr
	}
}

// Syntax returns the operator used in source, e.g. "==" or ":".
func (r Relationship) Syntax() string {
	switch r {
	case RelationshipEquals:
		return "=="
	case RelationshipConformsTo:
		return ":"
	default:
		return ""
	}
}

// ParseRelationship accepts the relationship name or its syntax.
func ParseRelationship(s string) (Relationship, error) {
	switch strings.TrimSpace(s) {
	case "equals", "==":
		return RelationshipEquals, nil
	case "conformsTo", "conforms_to", ":":
		return RelationshipConformsTo, nil
	default:
		return 0, fmt.Errorf("unknown generic relationship %q", s)
	}
}

// UnmarshalYAML decodes a relationship name or syntax.
func (r *Relationship) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := ParseRelationship(s)
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

// MarshalYAML encodes the relationship name.
func (r Relationship) MarshalYAML() (any, error) {
	return r.String(), nil
}

// GenericRequirement is a raw constraint, e.g. "Element == Int" or "T: Hashable".
type GenericRequirement struct {
	Left         string       `yaml:"left"`
	Right        string       `yaml:"right"`
	Relationship Relationship `yaml:"relationship"`
}

// String renders the requirement in source syntax.
func (g GenericRequirement) String() string {
	if g.Relationship == RelationshipConformsTo {
		return g.Left + ": " + g.Right
	}

	return g.Left + " " + g.Relationship.Syntax() + " " + g.Right
}

// Comment is raw comment text attached to a declaration, verbatim.
type Comment struct {
	// Leading lines precede the declaration, comment markers included.
	Leading []string `yaml:"leading,omitempty"`
	// Trailing is a same-line comment after the declaration.
	Trailing string `yaml:"trailing,omitempty"`
}

// IsEmpty reports whether no comment text is attached.
func (c Comment) IsEmpty() bool {
	return len(c.Leading) == 0 && c.Trailing == ""
}

// Lines returns leading lines followed by the trailing comment, if any.
func (c Comment) Lines() []string {
	lines := make([]string, 0, len(c.Leading)+1)
	lines = append(lines, c.Leading...)

	if c.Trailing != "" {
		lines = append(lines, c.Trailing)
	}

	return lines
}

// File is the ordered declaration list of one input file.
type File struct {
	Path         string               `yaml:"path"`
	Module       string               `yaml:"module,omitempty"`
	Declarations []PartialDeclaration `yaml:"declarations"`
}

// Flatten concatenates the declarations of files and returns them together
// with the file discovery order.
func Flatten(files []File) ([]PartialDeclaration, []string) {
	var decls []PartialDeclaration

	order := make([]string, 0, len(files))
	for _, f := range files {
		order = append(order, f.Path)
		decls = append(decls, f.Declarations...)
	}

	return decls, order
}
