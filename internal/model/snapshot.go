package model

import (
	"gopkg.in/yaml.v3"

	"source-weaver/internal/compose"
)

// Snapshot is a serialisable dump of the model, used by the inspect command.
type Snapshot struct {
	Types []TypeSnapshot `yaml:"types"`
}

// TypeSnapshot describes one type.
type TypeSnapshot struct {
	Name         string           `yaml:"name"`
	Kind         string           `yaml:"kind"`
	Module       string           `yaml:"module,omitempty"`
	Extension    bool             `yaml:"extension_only,omitempty"`
	AliasOf      string           `yaml:"alias_of,omitempty"`
	Generics     []string         `yaml:"generics,omitempty"`
	Requirements []string         `yaml:"requirements,omitempty"`
	Inherits     []RefSnapshot    `yaml:"inherits,omitempty"`
	Based        []string         `yaml:"based,omitempty"`
	Annotations  map[string]any   `yaml:"annotations,omitempty"`
	Members      []MemberSnapshot `yaml:"members,omitempty"`
	Declarations []string         `yaml:"declarations,omitempty"`
}

// RefSnapshot is a supertype reference.
type RefSnapshot struct {
	Name   string `yaml:"name"`
	Target string `yaml:"target,omitempty"` // empty when unresolved
}

// MemberSnapshot describes one merged member.
type MemberSnapshot struct {
	Signature   string         `yaml:"signature"`
	Type        string         `yaml:"type,omitempty"`
	Extension   bool           `yaml:"from_extension,omitempty"`
	Annotations map[string]any `yaml:"annotations,omitempty"`
	// Parameters lists only parameters that carry a default or annotations.
	Parameters []ParameterSnapshot `yaml:"parameters,omitempty"`
}

// ParameterSnapshot describes a parameter worth showing.
type ParameterSnapshot struct {
	Name        string         `yaml:"name"`
	Default     string         `yaml:"default,omitempty"`
	Annotations map[string]any `yaml:"annotations,omitempty"`
}

// Snapshot captures every type in discovery order.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{Types: make([]TypeSnapshot, 0, len(m.types))}

	for _, t := range m.types {
		s.Types = append(s.Types, m.snapshotType(t))
	}

	return s
}

func (m *Model) snapshotType(t *compose.LogicalType) TypeSnapshot {
	ts := TypeSnapshot{
		Name:      t.Name,
		Kind:      t.Kind.String(),
		Module:    t.Module,
		Extension: t.IsExtension,
		AliasOf:   t.AliasOf,
		Based:     t.BasedNames(),
	}

	for _, g := range t.GenericParameters {
		if g.Constraint != "" {
			ts.Generics = append(ts.Generics, g.Name+": "+g.Constraint)
		} else {
			ts.Generics = append(ts.Generics, g.Name)
		}
	}

	for _, r := range t.GenericRequirements {
		ts.Requirements = append(ts.Requirements, r.String())
	}

	for _, ref := range t.Inherits {
		rs := RefSnapshot{Name: ref.Name}
		if st := m.graph.Resolve(ref); st != nil {
			rs.Target = st.Name
		}

		ts.Inherits = append(ts.Inherits, rs)
	}

	if len(t.Annotations) > 0 {
		ts.Annotations = t.Annotations.Map()
	}

	for i := range t.Members {
		mem := &t.Members[i]

		ms := MemberSnapshot{
			Signature: mem.Signature(),
			Type:      mem.TypeName,
			Extension: mem.FromExtension,
		}
		if len(mem.Annotations) > 0 {
			ms.Annotations = mem.Annotations.Map()
		}

		for _, p := range mem.Parameters {
			if p.DefaultValue == "" && len(p.Annotations) == 0 {
				continue
			}

			ps := ParameterSnapshot{Name: p.Name, Default: p.DefaultValue}
			if len(p.Annotations) > 0 {
				ps.Annotations = p.Annotations.Map()
			}

			ms.Parameters = append(ms.Parameters, ps)
		}

		ts.Members = append(ts.Members, ms)
	}

	for _, loc := range t.Declarations {
		if s := loc.String(); s != "" {
			ts.Declarations = append(ts.Declarations, s)
		}
	}

	return ts
}

// YAML encodes the snapshot.
func (s Snapshot) YAML() ([]byte, error) {
	return yaml.Marshal(s)
}
