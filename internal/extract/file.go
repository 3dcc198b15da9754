package extract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strconv"
	"strings"

	"source-weaver/internal/common"
	"source-weaver/internal/decl"
	"source-weaver/internal/source"
)

// basicTypes are the predeclared types whose named variants become enums.
var basicTypes = map[string]bool{
	"bool": true, "string": true, "byte": true, "rune": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true, "complex64": true, "complex128": true,
}

// ExtractFile parses one Go source file without type information and returns
// its declarations. Selectors in embedded types are qualified through the
// file's imports.
func ExtractFile(filename string, src []byte, module string, opts Options) (decl.File, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return decl.File{}, fmt.Errorf("parsing %s: %w", filename, err)
	}

	return newFileExtractor(fset, file, src, filename, module, nil, opts).extract(), nil
}

// fileExtractor turns the type and method declarations of one file into
// partial declarations.
type fileExtractor struct {
	fset     *token.FileSet
	file     *ast.File
	src      []byte
	filename string
	module   string
	info     *types.Info // nil when parsing without type information
	imports  map[string]string
	opts     Options

	decls  []decl.PartialDeclaration
	byName map[string]int // declared type name -> index into decls
}

func newFileExtractor(fset *token.FileSet, file *ast.File, src []byte, filename, module string,
	info *types.Info, opts Options,
) *fileExtractor {
	x := &fileExtractor{
		fset:     fset,
		file:     file,
		src:      src,
		filename: filename,
		module:   module,
		info:     info,
		imports:  make(map[string]string),
		opts:     opts,
		byName:   make(map[string]int),
	}

	for _, imp := range file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}

		alias := common.PkgAlias(path)
		if imp.Name != nil {
			alias = imp.Name.Name
		}

		x.imports[alias] = path
	}

	return x
}

func (x *fileExtractor) extract() decl.File {
	for _, d := range x.file.Decls {
		if gd, ok := d.(*ast.GenDecl); ok && gd.Tok == token.TYPE {
			x.typeDecl(gd)
		}
	}

	for _, d := range x.file.Decls {
		switch d := d.(type) {
		case *ast.GenDecl:
			if d.Tok == token.CONST {
				x.constDecl(d)
			}
		case *ast.FuncDecl:
			if d.Recv != nil && len(d.Recv.List) == 1 {
				x.methodDecl(d)
			}
		}
	}

	return decl.File{Path: x.filename, Module: x.module, Declarations: x.decls}
}

func (x *fileExtractor) exported(name string) bool {
	return x.opts.IncludeUnexported || token.IsExported(name)
}

func (x *fileExtractor) location(pos token.Pos) source.Location {
	p := x.fset.Position(pos)

	return source.Location{File: x.filename, Line: p.Line, Column: p.Column}
}

func (x *fileExtractor) typeDecl(gd *ast.GenDecl) {
	for _, spec := range gd.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok || !x.exported(ts.Name.Name) {
			continue
		}

		doc := ts.Doc
		if doc == nil && common.IsSingle(gd.Specs) {
			doc = gd.Doc
		}

		d := decl.PartialDeclaration{
			Name:     ts.Name.Name,
			Module:   x.module,
			Comment:  comment(doc, ts.Comment),
			Location: x.location(ts.Name.Pos()),
		}

		x.typeParams(&d, ts.TypeParams)

		if ts.Assign.IsValid() {
			d.Kind = decl.KindTypealias
			d.AliasOf = types.ExprString(ts.Type)
		} else {
			x.typeBody(&d, ts.Type)
		}

		x.byName[d.Name] = len(x.decls)
		x.decls = append(x.decls, d)
	}
}

func (x *fileExtractor) typeBody(d *decl.PartialDeclaration, expr ast.Expr) {
	switch t := expr.(type) {
	case *ast.StructType:
		d.Kind = decl.KindStruct
		x.structFields(d, t)
	case *ast.InterfaceType:
		d.Kind = decl.KindProtocol
		x.interfaceMethods(d, t)
	default:
		d.Kind = decl.KindStruct
		if isBasic(expr) {
			d.Kind = decl.KindEnum
		}
	}
}

func isBasic(expr ast.Expr) bool {
	id, ok := expr.(*ast.Ident)

	return ok && basicTypes[id.Name]
}

func (x *fileExtractor) typeParams(d *decl.PartialDeclaration, fields *ast.FieldList) {
	if fields == nil {
		return
	}

	for _, f := range fields.List {
		constraint := types.ExprString(f.Type)

		for _, name := range f.Names {
			d.GenericParameters = append(d.GenericParameters, decl.GenericParameter{
				Name:       name.Name,
				Constraint: constraint,
			})

			if constraint != "any" && constraint != "interface{}" {
				d.GenericRequirements = append(d.GenericRequirements, decl.GenericRequirement{
					Left:         name.Name,
					Right:        constraint,
					Relationship: decl.RelationshipConformsTo,
				})
			}
		}
	}
}

func (x *fileExtractor) structFields(d *decl.PartialDeclaration, st *ast.StructType) {
	for _, f := range st.Fields.List {
		if len(f.Names) == 0 {
			d.Inherits = append(d.Inherits, x.typeRef(f.Type))

			continue
		}

		for _, name := range f.Names {
			if !x.exported(name.Name) {
				continue
			}

			d.Members = append(d.Members, decl.Member{
				Kind:     decl.MemberProperty,
				Name:     name.Name,
				TypeName: types.ExprString(f.Type),
				Comment:  comment(f.Doc, f.Comment),
				Location: x.location(name.Pos()),
			})
		}
	}
}

func (x *fileExtractor) interfaceMethods(d *decl.PartialDeclaration, it *ast.InterfaceType) {
	for _, f := range it.Methods.List {
		ft, isFunc := f.Type.(*ast.FuncType)

		switch {
		case len(f.Names) == 0 && isTypeName(f.Type):
			d.Inherits = append(d.Inherits, x.typeRef(f.Type))
		case isFunc:
			for _, name := range f.Names {
				d.Members = append(d.Members, x.method(name, ft, f.Doc, f.Comment))
			}
		}
	}
}

// isTypeName reports whether expr names a type, as opposed to a union or
// approximation element of a constraint interface.
func isTypeName(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.Ident, *ast.SelectorExpr:
		return true
	case *ast.IndexExpr:
		return isTypeName(e.X)
	case *ast.IndexListExpr:
		return isTypeName(e.X)
	default:
		return false
	}
}

func (x *fileExtractor) method(name *ast.Ident, ft *ast.FuncType, doc, trailing *ast.CommentGroup) decl.Member {
	m := decl.Member{
		Kind:     decl.MemberMethod,
		Name:     name.Name,
		TypeName: results(ft.Results),
		Comment:  comment(doc, trailing),
		Location: x.location(name.Pos()),
	}

	if ft.Params != nil {
		prevEnd := ft.Params.Opening

		for _, p := range ft.Params.List {
			typeName := types.ExprString(p.Type)
			c := x.paramComment(p, prevEnd, ft.Params.Closing)
			prevEnd = p.End()

			if len(p.Names) == 0 {
				m.Parameters = append(m.Parameters, decl.Parameter{TypeName: typeName, Comment: c})

				continue
			}

			for _, n := range p.Names {
				m.Parameters = append(m.Parameters, decl.Parameter{Name: n.Name, TypeName: typeName, Comment: c})
			}
		}
	}

	return m
}

// paramComment collects the comments of a parameter inside a multi-line
// parameter list: groups on the lines directly above it that start after
// the previous parameter, and a group following it on its last line. The
// parser attaches neither to the field.
func (x *fileExtractor) paramComment(p *ast.Field, prevEnd, closing token.Pos) decl.Comment {
	var leading, trailing []*ast.Comment

	start := x.fset.Position(p.Pos()).Line
	end := x.fset.Position(p.End()).Line
	prevLine := x.fset.Position(prevEnd).Line

	for _, cg := range x.file.Comments {
		if cg.Pos() <= prevEnd || cg.Pos() >= closing {
			continue
		}

		first, last := x.fset.Position(cg.Pos()).Line, x.fset.Position(cg.End()).Line

		switch {
		case cg.End() <= p.Pos() && first > prevLine && last == start-1:
			leading = append(leading, cg.List...)
		case cg.Pos() >= p.End() && first == end:
			trailing = append(trailing, cg.List...)
		}
	}

	return comment(commentGroup(leading), commentGroup(trailing))
}

func commentGroup(list []*ast.Comment) *ast.CommentGroup {
	if len(list) == 0 {
		return nil
	}

	return &ast.CommentGroup{List: list}
}

func results(fields *ast.FieldList) string {
	if fields == nil || len(fields.List) == 0 {
		return ""
	}

	var parts []string

	for _, f := range fields.List {
		n := max(len(f.Names), 1)
		for range n {
			parts = append(parts, types.ExprString(f.Type))
		}
	}

	if len(parts) == 1 {
		return parts[0]
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// methodDecl attaches a method to its receiver's declaration in this file, or
// to an extension declaration when the receiver is declared elsewhere.
func (x *fileExtractor) methodDecl(fd *ast.FuncDecl) {
	recv := receiverName(fd.Recv.List[0].Type)
	if recv == "" || !x.exported(recv) || !x.exported(fd.Name.Name) {
		return
	}

	m := x.method(fd.Name, fd.Type, fd.Doc, nil)
	m.Body = x.body(fd.Body)

	owner := x.owner(recv, fd.Pos())
	owner.Members = append(owner.Members, m)
}

// owner returns the declaration collecting members of recv, creating an
// extension declaration on first use.
func (x *fileExtractor) owner(recv string, pos token.Pos) *decl.PartialDeclaration {
	if i, ok := x.byName[recv]; ok {
		return &x.decls[i]
	}

	x.byName[recv] = len(x.decls)
	x.decls = append(x.decls, decl.PartialDeclaration{
		Kind:     decl.KindExtension,
		Name:     recv,
		Module:   x.module,
		Location: x.location(pos),
	})

	return &x.decls[len(x.decls)-1]
}

// constDecl records constants of a declared enum type as static properties.
// Specs without an explicit type inherit the previous one, as iota blocks do.
func (x *fileExtractor) constDecl(gd *ast.GenDecl) {
	var current string

	for _, spec := range gd.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}

		switch {
		case vs.Type != nil:
			id, isIdent := vs.Type.(*ast.Ident)
			current = ""

			if isIdent {
				current = id.Name
			}
		case len(vs.Values) > 0:
			current = ""
		}

		i, ok := x.byName[current]
		if !ok || x.decls[i].Kind != decl.KindEnum {
			continue
		}

		for _, name := range vs.Names {
			if name.Name == "_" || !x.exported(name.Name) {
				continue
			}

			x.decls[i].Members = append(x.decls[i].Members, decl.Member{
				Kind:     decl.MemberProperty,
				Name:     name.Name,
				TypeName: current,
				IsStatic: true,
				Comment:  comment(vs.Doc, vs.Comment),
				Location: x.location(name.Pos()),
			})
		}
	}
}

func receiverName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return receiverName(e.X)
	case *ast.IndexExpr:
		return receiverName(e.X)
	case *ast.IndexListExpr:
		return receiverName(e.X)
	case *ast.ParenExpr:
		return receiverName(e.X)
	case *ast.Ident:
		return e.Name
	default:
		return ""
	}
}

// typeRef renders an embedded type, qualifying package selectors with the
// import path so the composer can match them across packages.
func (x *fileExtractor) typeRef(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.StarExpr:
		return x.typeRef(e.X)
	case *ast.SelectorExpr:
		pkg, ok := e.X.(*ast.Ident)
		if !ok {
			return types.ExprString(e)
		}

		return x.importPath(pkg) + "." + e.Sel.Name
	case *ast.IndexExpr:
		return x.typeRef(e.X) + "[" + types.ExprString(e.Index) + "]"
	case *ast.IndexListExpr:
		args := make([]string, len(e.Indices))
		for i, idx := range e.Indices {
			args[i] = types.ExprString(idx)
		}

		return x.typeRef(e.X) + "[" + strings.Join(args, ", ") + "]"
	default:
		return types.ExprString(expr)
	}
}

func (x *fileExtractor) importPath(pkg *ast.Ident) string {
	if x.info != nil {
		if pn, ok := x.info.Uses[pkg].(*types.PkgName); ok {
			return pn.Imported().Path()
		}
	}

	if path, ok := x.imports[pkg.Name]; ok {
		return path
	}

	return pkg.Name
}

// body returns the source text inside a function body, or "" when the file
// content is unavailable.
func (x *fileExtractor) body(b *ast.BlockStmt) string {
	if b == nil || x.src == nil {
		return ""
	}

	start, end := x.fset.Position(b.Lbrace).Offset+1, x.fset.Position(b.Rbrace).Offset
	if start < 0 || end > len(x.src) || start > end {
		return ""
	}

	return strings.TrimSpace(string(x.src[start:end]))
}

// comment keeps comment text verbatim, one entry per source line.
func comment(doc, trailing *ast.CommentGroup) decl.Comment {
	var c decl.Comment

	if doc != nil {
		for _, cm := range doc.List {
			c.Leading = append(c.Leading, strings.Split(cm.Text, "\n")...)
		}
	}

	if trailing != nil {
		parts := make([]string, 0, len(trailing.List))
		for _, cm := range trailing.List {
			parts = append(parts, cm.Text)
		}

		c.Trailing = strings.Join(parts, " ")
	}

	return c
}
