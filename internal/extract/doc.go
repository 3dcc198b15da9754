// Package extract turns Go source into partial declarations.
//
// It uses golang.org/x/tools/go/packages with the AST and go/types to walk
// every file of the loaded packages, one goroutine per file:
//   - structs become struct declarations; embedded fields become inherits
//   - interfaces become protocols; embedded interfaces become inherits
//   - named basic types become enums, with their constants as static members
//   - methods on types declared in another file become extension declarations
//
// Doc comments are kept verbatim so annotations can be parsed from them.
package extract
