package parsing

import (
	"go/ast"
	"go/parser"
	"go/token"
)

// goBackend parses Go source with the standard library's go/parser and
// converts the resulting *ast.File into the generic Node/Tree shape, using
// kind names that mirror tree-sitter-go's grammar so the chunker and SQI
// extractors can treat every language uniformly.
type goBackend struct{}

func newGoBackend() *goBackend { return &goBackend{} }

// Parse converts source into a Tree. On a syntax error the stdlib parser
// still returns a best-effort *ast.File; that partial tree is converted and
// returned alongside the error so callers can fall back gracefully instead
// of losing the file entirely.
func (b *goBackend) Parse(source []byte) (Tree, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", source, parser.ParseComments)
	if file == nil {
		return nil, err
	}
	root := buildGoFile(fset, file, source)
	return &goTree{root: root, source: source}, err
}

type goTree struct {
	root   *goNode
	source []byte
}

func (t *goTree) Root() Node         { return t.root }
func (t *goTree) Language() Language { return LangGo }
func (t *goTree) Source() []byte     { return t.source }
func (t *goTree) Close()             {}

// goNode is a fully materialized generic-tree node built once at parse time
// (go/ast already gives us the whole tree, so there is no lazy-node API to
// mirror the way tree-sitter has one).
type goNode struct {
	kind                 string
	startLine, endLine   int
	startByte, endByte   int
	text                 string
	isNamed              bool
	children             []*goNode
	fields               map[string]*goNode
	parent               *goNode
}

func (n *goNode) Kind() string   { return n.kind }
func (n *goNode) StartLine() int { return n.startLine }
func (n *goNode) EndLine() int   { return n.endLine }
func (n *goNode) StartByte() int { return n.startByte }
func (n *goNode) EndByte() int   { return n.endByte }
func (n *goNode) Text() string   { return n.text }
func (n *goNode) IsNamed() bool  { return n.isNamed }
func (n *goNode) ChildCount() int {
	if n == nil {
		return 0
	}
	return len(n.children)
}

func (n *goNode) Child(i int) Node {
	if n == nil || i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

func (n *goNode) FieldChild(name string) (Node, bool) {
	if n == nil || n.fields == nil {
		return nil, false
	}
	c, ok := n.fields[name]
	if !ok || c == nil {
		return nil, false
	}
	return c, true
}

func (n *goNode) Parent() Node {
	if n == nil || n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *goNode) addChild(c *goNode) {
	if c == nil {
		return
	}
	c.parent = n
	n.children = append(n.children, c)
}

func (n *goNode) setField(name string, c *goNode) {
	if c == nil {
		return
	}
	if n.fields == nil {
		n.fields = make(map[string]*goNode)
	}
	n.fields[name] = c
	n.addChild(c)
}

type goBuilder struct {
	fset *token.FileSet
	src  []byte
}

func (b *goBuilder) span(start, end token.Pos) (int, int, int, int) {
	sp := b.fset.Position(start)
	ep := b.fset.Position(end)
	return sp.Line, ep.Line, sp.Offset, ep.Offset
}

func (b *goBuilder) node(kind string, start, end token.Pos, named bool) *goNode {
	sl, el, sb, eb := b.span(start, end)
	if eb > len(b.src) {
		eb = len(b.src)
	}
	if sb > eb {
		sb = eb
	}
	return &goNode{
		kind:      kind,
		startLine: sl,
		endLine:   el,
		startByte: sb,
		endByte:   eb,
		text:      string(b.src[sb:eb]),
		isNamed:   named,
	}
}

func buildGoFile(fset *token.FileSet, file *ast.File, src []byte) *goNode {
	b := &goBuilder{fset: fset, src: src}
	root := b.node("source_file", file.Pos(), file.End(), true)

	pkg := b.node("package_clause", file.Package, file.Name.End(), true)
	pkg.setField("name", b.identifier(file.Name))
	root.addChild(pkg)

	for _, decl := range file.Decls {
		root.addChild(b.convertDecl(decl))
	}
	return root
}

func (b *goBuilder) identifier(id *ast.Ident) *goNode {
	if id == nil {
		return nil
	}
	n := b.node("identifier", id.Pos(), id.End(), true)
	n.text = id.Name
	return n
}

func (b *goBuilder) docComment(group *ast.CommentGroup) *goNode {
	if group == nil || len(group.List) == 0 {
		return nil
	}
	n := b.node("comment", group.Pos(), group.End(), true)
	n.text = group.Text()
	return n
}

func (b *goBuilder) convertDecl(decl ast.Decl) *goNode {
	switch d := decl.(type) {
	case *ast.GenDecl:
		return b.convertGenDecl(d)
	case *ast.FuncDecl:
		return b.convertFuncDecl(d)
	default:
		return b.node("declaration", decl.Pos(), decl.End(), true)
	}
}

func (b *goBuilder) convertGenDecl(d *ast.GenDecl) *goNode {
	switch d.Tok {
	case token.IMPORT:
		n := b.node("import_declaration", d.Pos(), d.End(), true)
		for _, spec := range d.Specs {
			imp := spec.(*ast.ImportSpec)
			specNode := b.node("import_spec", imp.Pos(), imp.End(), true)
			path := b.node("interpreted_string_literal", imp.Path.Pos(), imp.Path.End(), true)
			path.text = imp.Path.Value
			specNode.setField("path", path)
			if imp.Name != nil {
				specNode.setField("name", b.identifier(imp.Name))
			}
			if doc := b.docComment(imp.Doc); doc != nil {
				specNode.setField("doc", doc)
			}
			n.addChild(specNode)
		}
		return n

	case token.TYPE:
		n := b.node("type_declaration", d.Pos(), d.End(), true)
		for _, spec := range d.Specs {
			ts := spec.(*ast.TypeSpec)
			specNode := b.node("type_spec", ts.Pos(), ts.End(), true)
			specNode.setField("name", b.identifier(ts.Name))
			specNode.setField("type", b.convertTypeExpr(ts.Type))
			doc := ts.Doc
			if doc == nil {
				doc = d.Doc
			}
			if docNode := b.docComment(doc); docNode != nil {
				specNode.setField("doc", docNode)
			}
			n.addChild(specNode)
		}
		return n

	case token.VAR, token.CONST:
		kind := "var_declaration"
		specKind := "var_spec"
		if d.Tok == token.CONST {
			kind = "const_declaration"
			specKind = "const_spec"
		}
		n := b.node(kind, d.Pos(), d.End(), true)
		for _, spec := range d.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, name := range vs.Names {
				specNode := b.node(specKind, vs.Pos(), vs.End(), true)
				specNode.setField("name", b.identifier(name))
				if vs.Type != nil {
					specNode.setField("type", b.convertTypeExpr(vs.Type))
				}
				if i < len(vs.Values) {
					specNode.setField("value", b.convertExpr(vs.Values[i]))
				}
				doc := vs.Doc
				if doc == nil {
					doc = d.Doc
				}
				if docNode := b.docComment(doc); docNode != nil {
					specNode.setField("doc", docNode)
				}
				n.addChild(specNode)
			}
		}
		return n

	default:
		return b.node("declaration", d.Pos(), d.End(), true)
	}
}

func (b *goBuilder) convertFuncDecl(d *ast.FuncDecl) *goNode {
	kind := "function_declaration"
	if d.Recv != nil && len(d.Recv.List) > 0 {
		kind = "method_declaration"
	}
	n := b.node(kind, d.Pos(), d.End(), true)
	n.setField("name", b.identifier(d.Name))

	if d.Recv != nil && len(d.Recv.List) > 0 {
		n.setField("receiver", b.fieldList(d.Recv, "parameter_declaration"))
	}
	if d.Type.Params != nil {
		n.setField("parameters", b.fieldList(d.Type.Params, "parameter_declaration"))
	}
	if d.Type.Results != nil {
		n.setField("result", b.fieldList(d.Type.Results, "parameter_declaration"))
	}
	if docNode := b.docComment(d.Doc); docNode != nil {
		n.setField("doc", docNode)
	}
	if d.Body != nil {
		n.setField("body", b.convertBlock(d.Body))
	}
	return n
}

func (b *goBuilder) fieldList(fl *ast.FieldList, itemKind string) *goNode {
	n := b.node("parameter_list", fl.Pos(), fl.End(), true)
	for _, f := range fl.List {
		typeNode := b.convertTypeExpr(f.Type)
		if len(f.Names) == 0 {
			item := b.node(itemKind, f.Pos(), f.End(), true)
			item.setField("type", typeNode)
			n.addChild(item)
			continue
		}
		for _, name := range f.Names {
			item := b.node(itemKind, f.Pos(), f.End(), true)
			item.setField("name", b.identifier(name))
			item.setField("type", typeNode)
			n.addChild(item)
		}
	}
	return n
}

func (b *goBuilder) convertTypeExpr(e ast.Expr) *goNode {
	if e == nil {
		return nil
	}
	switch t := e.(type) {
	case *ast.StructType:
		n := b.node("struct_type", t.Pos(), t.End(), true)
		if t.Fields != nil {
			for _, f := range t.Fields.List {
				typeNode := b.convertTypeExpr(f.Type)
				if len(f.Names) == 0 {
					field := b.node("field_declaration", f.Pos(), f.End(), true)
					field.setField("type", typeNode)
					n.addChild(field)
					continue
				}
				for _, name := range f.Names {
					field := b.node("field_declaration", f.Pos(), f.End(), true)
					field.setField("name", b.identifier(name))
					field.setField("type", typeNode)
					n.addChild(field)
				}
			}
		}
		return n

	case *ast.InterfaceType:
		n := b.node("interface_type", t.Pos(), t.End(), true)
		if t.Methods != nil {
			for _, f := range t.Methods.List {
				if len(f.Names) == 0 {
					// Embedded interface.
					embedded := b.node("embedded_type", f.Pos(), f.End(), true)
					embedded.setField("type", b.convertTypeExpr(f.Type))
					n.addChild(embedded)
					continue
				}
				for _, name := range f.Names {
					method := b.node("method_elem", f.Pos(), f.End(), true)
					method.setField("name", b.identifier(name))
					if ft, ok := f.Type.(*ast.FuncType); ok {
						if ft.Params != nil {
							method.setField("parameters", b.fieldList(ft.Params, "parameter_declaration"))
						}
						if ft.Results != nil {
							method.setField("result", b.fieldList(ft.Results, "parameter_declaration"))
						}
					}
					n.addChild(method)
				}
			}
		}
		return n

	case *ast.Ident:
		return b.identifier(t)

	case *ast.SelectorExpr:
		n := b.node("qualified_type", t.Pos(), t.End(), true)
		n.setField("package", b.convertExpr(t.X))
		n.setField("name", b.identifier(t.Sel))
		return n

	case *ast.StarExpr:
		n := b.node("pointer_type", t.Pos(), t.End(), true)
		n.setField("type", b.convertTypeExpr(t.X))
		return n

	case *ast.ArrayType:
		n := b.node("array_type", t.Pos(), t.End(), true)
		n.setField("element", b.convertTypeExpr(t.Elt))
		return n

	case *ast.MapType:
		n := b.node("map_type", t.Pos(), t.End(), true)
		n.setField("key", b.convertTypeExpr(t.Key))
		n.setField("value", b.convertTypeExpr(t.Value))
		return n

	case *ast.FuncType:
		n := b.node("function_type", t.Pos(), t.End(), true)
		if t.Params != nil {
			n.setField("parameters", b.fieldList(t.Params, "parameter_declaration"))
		}
		if t.Results != nil {
			n.setField("result", b.fieldList(t.Results, "parameter_declaration"))
		}
		return n

	default:
		return b.node("type", e.Pos(), e.End(), true)
	}
}

// convertBlock and convertStmt/convertExpr build a best-effort body tree
// covering the statement and expression forms the usage linker cares about
// (calls, selectors, assignment, composite literals, type assertions).
// Less common forms fall back to an opaque "statement"/"expression" node so
// traversal never panics, at the cost of not descending further into them.
func (b *goBuilder) convertBlock(block *ast.BlockStmt) *goNode {
	n := b.node("block", block.Pos(), block.End(), true)
	for _, stmt := range block.List {
		n.addChild(b.convertStmt(stmt))
	}
	return n
}

func (b *goBuilder) convertStmt(s ast.Stmt) *goNode {
	switch st := s.(type) {
	case *ast.ExprStmt:
		return b.convertExpr(st.X)

	case *ast.AssignStmt:
		kind := "assignment_statement"
		if st.Tok == token.DEFINE {
			kind = "short_var_declaration"
		}
		n := b.node(kind, st.Pos(), st.End(), true)
		n.setField("left", b.exprList(st.Lhs))
		n.setField("right", b.exprList(st.Rhs))
		return n

	case *ast.DeclStmt:
		return b.convertDecl(st.Decl)

	case *ast.ReturnStmt:
		n := b.node("return_statement", st.Pos(), st.End(), true)
		for _, r := range st.Results {
			n.addChild(b.convertExpr(r))
		}
		return n

	case *ast.IfStmt:
		n := b.node("if_statement", st.Pos(), st.End(), true)
		if st.Init != nil {
			n.setField("initializer", b.convertStmt(st.Init))
		}
		n.setField("condition", b.convertExpr(st.Cond))
		n.setField("consequence", b.convertBlock(st.Body))
		if st.Else != nil {
			n.setField("alternative", b.convertStmt(st.Else))
		}
		return n

	case *ast.ForStmt:
		n := b.node("for_statement", st.Pos(), st.End(), true)
		if st.Cond != nil {
			n.setField("condition", b.convertExpr(st.Cond))
		}
		n.setField("body", b.convertBlock(st.Body))
		return n

	case *ast.RangeStmt:
		n := b.node("range_statement", st.Pos(), st.End(), true)
		n.setField("right", b.convertExpr(st.X))
		n.setField("body", b.convertBlock(st.Body))
		return n

	case *ast.BlockStmt:
		return b.convertBlock(st)

	case *ast.GoStmt:
		n := b.node("go_statement", st.Pos(), st.End(), true)
		n.setField("call", b.convertExpr(st.Call))
		return n

	case *ast.DeferStmt:
		n := b.node("defer_statement", st.Pos(), st.End(), true)
		n.setField("call", b.convertExpr(st.Call))
		return n

	case *ast.SwitchStmt:
		n := b.node("expression_switch_statement", st.Pos(), st.End(), true)
		for _, c := range st.Body.List {
			n.addChild(b.convertStmt(c))
		}
		return n

	case *ast.TypeSwitchStmt:
		n := b.node("type_switch_statement", st.Pos(), st.End(), true)
		n.setField("assign", b.convertStmt(st.Assign))
		for _, c := range st.Body.List {
			n.addChild(b.convertStmt(c))
		}
		return n

	case *ast.CaseClause:
		n := b.node("expression_case", st.Pos(), st.End(), true)
		for _, e := range st.List {
			n.addChild(b.convertExpr(e))
		}
		for _, inner := range st.Body {
			n.addChild(b.convertStmt(inner))
		}
		return n

	default:
		return b.node("statement", s.Pos(), s.End(), true)
	}
}

func (b *goBuilder) exprList(exprs []ast.Expr) *goNode {
	if len(exprs) == 1 {
		return b.convertExpr(exprs[0])
	}
	first, last := exprs[0], exprs[len(exprs)-1]
	n := b.node("expression_list", first.Pos(), last.End(), true)
	for _, e := range exprs {
		n.addChild(b.convertExpr(e))
	}
	return n
}

func (b *goBuilder) convertExpr(e ast.Expr) *goNode {
	if e == nil {
		return nil
	}
	switch ex := e.(type) {
	case *ast.Ident:
		return b.identifier(ex)

	case *ast.CallExpr:
		n := b.node("call_expression", ex.Pos(), ex.End(), true)
		n.setField("function", b.convertExpr(ex.Fun))
		args := b.node("argument_list", ex.Lparen, ex.Rparen, true)
		for _, a := range ex.Args {
			args.addChild(b.convertExpr(a))
		}
		n.setField("arguments", args)
		return n

	case *ast.SelectorExpr:
		n := b.node("selector_expression", ex.Pos(), ex.End(), true)
		n.setField("operand", b.convertExpr(ex.X))
		n.setField("field", b.identifier(ex.Sel))
		return n

	case *ast.CompositeLit:
		n := b.node("composite_literal", ex.Pos(), ex.End(), true)
		if ex.Type != nil {
			n.setField("type", b.convertTypeExpr(ex.Type))
		}
		for _, el := range ex.Elts {
			n.addChild(b.convertExpr(el))
		}
		return n

	case *ast.TypeAssertExpr:
		n := b.node("type_assertion_expression", ex.Pos(), ex.End(), true)
		n.setField("operand", b.convertExpr(ex.X))
		if ex.Type != nil {
			n.setField("type", b.convertTypeExpr(ex.Type))
		}
		return n

	case *ast.KeyValueExpr:
		n := b.node("keyed_element", ex.Pos(), ex.End(), true)
		n.setField("key", b.convertExpr(ex.Key))
		n.setField("value", b.convertExpr(ex.Value))
		return n

	case *ast.UnaryExpr:
		n := b.node("unary_expression", ex.Pos(), ex.End(), true)
		n.setField("operand", b.convertExpr(ex.X))
		return n

	case *ast.StarExpr:
		n := b.node("pointer_expression", ex.Pos(), ex.End(), true)
		n.setField("operand", b.convertExpr(ex.X))
		return n

	case *ast.ParenExpr:
		return b.convertExpr(ex.X)

	case *ast.BinaryExpr:
		n := b.node("binary_expression", ex.Pos(), ex.End(), true)
		n.setField("left", b.convertExpr(ex.X))
		n.setField("right", b.convertExpr(ex.Y))
		return n

	case *ast.FuncLit:
		n := b.node("func_literal", ex.Pos(), ex.End(), true)
		if ex.Type.Params != nil {
			n.setField("parameters", b.fieldList(ex.Type.Params, "parameter_declaration"))
		}
		n.setField("body", b.convertBlock(ex.Body))
		return n

	case *ast.BasicLit:
		n := b.node("literal", ex.Pos(), ex.End(), true)
		return n

	default:
		return b.node("expression", e.Pos(), e.End(), true)
	}
}
