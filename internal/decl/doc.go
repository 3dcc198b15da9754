// Package decl defines the partial declarations produced by extractors.
//
// A PartialDeclaration is one syntactic unit as it appears in one file:
// a type, an extension of a type, or a typealias, with its members,
// unresolved supertype names, generic clauses, and raw comment text.
// Declarations are immutable once produced and are consumed by the
// composer in a single run.
//
// Extractors written in other languages hand declarations over as YAML
// manifests (see LoadManifest):
//
//	files:
//	  - path: Sources/Foo.swift
//	    module: App
//	    declarations:
//	      - kind: class
//	        name: Foo
//	        inherits: [Base, Codable]
//	        comment:
//	          leading: ["// weaver: skipEquality"]
//	        members:
//	          - kind: method
//	            name: run
//	            parameters: [{label: with, name: value, type: Int}]
//	            type: Void
package decl
