package decl

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"source-weaver/internal/common"
)

// Kind is the syntactic kind of a partial declaration.
type Kind int

const (
	KindUnknown Kind = iota
	KindClass
	KindStruct
	KindEnum
	KindProtocol
	KindExtension
	KindTypealias
)

var kindNames = map[Kind]string{
	KindClass:     "class",
	KindStruct:    "struct",
	KindEnum:      "enum",
	KindProtocol:  "protocol",
	KindExtension: "extension",
	KindTypealias: "typealias",
}

// String returns the lower-case keyword for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return common.UnknownStr
}

// ParseKind parses a kind keyword. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}

	return KindUnknown, fmt.Errorf("unknown declaration kind %q", s)
}

// UnmarshalYAML decodes a kind keyword.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}

// MarshalYAML encodes the kind keyword.
func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

//go:generate go tool stringer -type=MemberKind -linecomment -output=memberkind_string.go

// MemberKind is the kind of a type member.
type MemberKind int

const (
	MemberMethod         MemberKind = iota // method
	MemberProperty                         // property
	MemberSubscript                        // subscript
	MemberAssociatedType                   // associatedtype
)

// ParseMemberKind parses a member kind keyword.
func ParseMemberKind(s string) (MemberKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k := MemberMethod; k <= MemberAssociatedType; k++ {
		if k.String() == s {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown member kind %q", s)
}

// UnmarshalYAML decodes a member kind keyword.
func (k *MemberKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := ParseMemberKind(s)
	if err != nil {
		return err
	}

	*k = parsed

	return nil
}

// MarshalYAML encodes the member kind keyword.
func (k MemberKind) MarshalYAML() (any, error) {
	return k.String(), nil
}
