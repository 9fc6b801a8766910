package sqi

import (
	"strings"
	"unicode"

	"github.com/stefan-kp/sourcerack-sub001/internal/parsing"
)

func isUpperFirst(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func defaultLanguageConfigs() map[parsing.Language]languageConfig {
	return map[parsing.Language]languageConfig{
		parsing.LangGo:         goConfig(),
		parsing.LangTypeScript: tsConfig(),
		parsing.LangTSX:        tsConfig(),
		parsing.LangJavaScript: tsConfig(),
		parsing.LangPython:     pythonConfig(),
		parsing.LangJava:       javaConfig(),
		parsing.LangRuby:       rubyConfig(),
		parsing.LangRust:       rustConfig(),
		parsing.LangC:          cConfig(),
		parsing.LangCPP:        cppConfig(),
		parsing.LangPHP:        phpConfig(),
	}
}

func docFieldComment(n parsing.Node) string {
	doc, ok := n.FieldChild("doc")
	if !ok {
		return ""
	}
	return stripDocFrame(doc.Text())
}

func goReceiverType(n parsing.Node) (string, bool) {
	recv, ok := n.FieldChild("receiver")
	if !ok || recv.ChildCount() == 0 {
		return "", false
	}
	item := recv.Child(0)
	typeNode, ok := item.FieldChild("type")
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(typeNode.Text(), "*"), true
}

func goConfig() languageConfig {
	return languageConfig{
		docComment: docFieldComment,
		declare: func(n parsing.Node) (Symbol, bool) {
			switch n.Kind() {
			case "function_declaration":
				name, _ := nodeName(n)
				return Symbol{
					Name: name, Kind: KindFunction,
					IsExported: isUpperFirst(name),
					Visibility: visibilityFromExport(isUpperFirst(name)),
					ReturnType: joinTexts(paramTexts(n, "result")),
					Parameters: paramTexts(n, "parameters"),
				}, true
			case "method_declaration":
				name, _ := nodeName(n)
				qn := name
				if recv, ok := goReceiverType(n); ok {
					qn = recv + "." + name
				}
				return Symbol{
					Name: name, QualifiedName: qn, Kind: KindMethod,
					IsExported: isUpperFirst(name),
					Visibility: visibilityFromExport(isUpperFirst(name)),
					ReturnType: joinTexts(paramTexts(n, "result")),
					Parameters: paramTexts(n, "parameters"),
				}, true
			case "type_spec":
				name, _ := nodeName(n)
				kind := KindTypeAlias
				if t, ok := n.FieldChild("type"); ok {
					switch t.Kind() {
					case "struct_type":
						kind = KindStruct
					case "interface_type":
						kind = KindInterface
					}
				}
				return Symbol{
					Name: name, Kind: kind,
					IsExported: isUpperFirst(name),
					Visibility: visibilityFromExport(isUpperFirst(name)),
				}, true
			case "const_spec", "var_spec":
				name, _ := nodeName(n)
				kind := KindVariable
				if n.Kind() == "const_spec" {
					kind = KindConstant
				}
				returnType := ""
				if t, ok := n.FieldChild("type"); ok {
					returnType = t.Text()
				}
				return Symbol{
					Name: name, Kind: kind,
					IsExported: isUpperFirst(name),
					Visibility: visibilityFromExport(isUpperFirst(name)),
					ReturnType: returnType,
				}, true
			}
			return Symbol{}, false
		},
		importOf: func(n parsing.Node) (Import, bool) {
			if n.Kind() != "import_spec" {
				return Import{}, false
			}
			pathNode, ok := n.FieldChild("path")
			if !ok {
				return Import{}, false
			}
			path := stripQuotes(pathNode.Text())
			local := lastSegment(path)
			if aliasNode, ok := n.FieldChild("name"); ok {
				local = aliasNode.Text()
			}
			return Import{
				Type:            "go_import",
				ModuleSpecifier: path,
				Bindings:        []Binding{{ImportedName: local, LocalName: local}},
			}, true
		},
	}
}

func visibilityFromExport(exported bool) Visibility {
	if exported {
		return VisibilityPublic
	}
	return VisibilityPrivate
}

func joinTexts(texts []string) string {
	return strings.Join(texts, ", ")
}

// tsConfig covers TypeScript, TSX, and JavaScript: richer surface (decorators,
// access modifiers, async/static keywords, ES module imports, commonjs
// require) since the usage-type and import vocabulary in the contract is
// modeled directly on this family.
func tsConfig() languageConfig {
	classKinds := map[string]bool{"class_declaration": true, "interface_declaration": true}
	isExported := func(n parsing.Node) bool {
		p := n.Parent()
		if p == nil {
			return false
		}
		if p.Kind() == "export_statement" {
			return true
		}
		if gp := p.Parent(); gp != nil && gp.Kind() == "export_statement" {
			return true
		}
		return false
	}
	visibility := func(n parsing.Node) Visibility {
		for i := 0; i < n.ChildCount(); i++ {
			switch n.Child(i).Kind() {
			case "accessibility_modifier":
				switch strings.TrimSpace(n.Child(i).Text()) {
				case "private":
					return VisibilityPrivate
				case "protected":
					return VisibilityProtected
				case "public":
					return VisibilityPublic
				}
			}
		}
		return VisibilityUndefined
	}
	docComment := func(n parsing.Node) string {
		raw := precedingComment(n, "comment")
		if !strings.HasPrefix(strings.TrimSpace(raw), "/**") {
			return ""
		}
		return stripDocFrame(raw)
	}

	return languageConfig{
		classKinds: classKinds,
		docComment: docComment,
		declare: func(n parsing.Node) (Symbol, bool) {
			switch n.Kind() {
			case "class_declaration":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindClass, IsExported: isExported(n), Visibility: VisibilityUndefined}, true
			case "interface_declaration":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindInterface, IsExported: isExported(n)}, true
			case "type_alias_declaration":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindTypeAlias, IsExported: isExported(n)}, true
			case "enum_declaration":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindEnum, IsExported: isExported(n)}, true
			case "method_definition":
				name, _ := nodeName(n)
				return Symbol{
					Name: name, Kind: KindMethod,
					Visibility: visibility(n),
					IsStatic:   hasChildKind(n, "static"),
					IsAsync:    hasChildKind(n, "async"),
					Parameters: paramTexts(n, "parameters"),
					ReturnType: returnTypeAnnotation(n),
				}, true
			case "function_declaration", "generator_function_declaration":
				name, _ := nodeName(n)
				return Symbol{
					Name: name, Kind: KindFunction,
					IsExported: isExported(n),
					IsAsync:    hasChildKind(n, "async"),
					Parameters: paramTexts(n, "parameters"),
					ReturnType: returnTypeAnnotation(n),
				}, true
			case "variable_declarator":
				name, _ := nodeName(n)
				if name == "" {
					return Symbol{}, false
				}
				kind := KindVariable
				if p := n.Parent(); p != nil && strings.HasPrefix(strings.TrimSpace(p.Text()), "const") {
					kind = KindConstant
				}
				return Symbol{Name: name, Kind: kind}, true
			}
			return Symbol{}, false
		},
		importOf: func(n parsing.Node) (Import, bool) {
			if n.Kind() != "import_statement" {
				return Import{}, false
			}
			source, ok := n.FieldChild("source")
			if !ok {
				return Import{}, false
			}
			imp := Import{Type: "es_import", ModuleSpecifier: stripQuotes(source.Text())}
			clause, ok := parsing.FindChildByKind(n, "import_clause")
			if !ok {
				return imp, true
			}
			imp.Bindings = tsImportBindings(clause)
			return imp, true
		},
		requireOf: func(n parsing.Node) (Import, bool) {
			if n.Kind() != "call_expression" {
				return Import{}, false
			}
			fn, ok := n.FieldChild("function")
			if !ok || fn.Text() != "require" {
				return Import{}, false
			}
			args, ok := n.FieldChild("arguments")
			if !ok || args.ChildCount() == 0 {
				return Import{}, false
			}
			first := args.Child(0)
			if !strings.Contains(first.Kind(), "string") {
				return Import{}, false
			}
			return Import{Type: "commonjs", ModuleSpecifier: stripQuotes(first.Text()), Bindings: requireBindings(n)}, true
		},
	}
}

func returnTypeAnnotation(n parsing.Node) string {
	if t, ok := n.FieldChild("return_type"); ok {
		return t.Text()
	}
	return ""
}

func tsImportBindings(clause parsing.Node) []Binding {
	var bindings []Binding
	for i := 0; i < clause.ChildCount(); i++ {
		c := clause.Child(i)
		switch c.Kind() {
		case "identifier":
			bindings = append(bindings, Binding{ImportedName: "default", LocalName: c.Text()})
		case "namespace_import":
			if id, ok := parsing.FindChildByKind(c, "identifier"); ok {
				bindings = append(bindings, Binding{ImportedName: "*", LocalName: id.Text()})
			}
		case "named_imports":
			for j := 0; j < c.ChildCount(); j++ {
				spec := c.Child(j)
				if spec.Kind() != "import_specifier" {
					continue
				}
				nameNode, ok := spec.FieldChild("name")
				if !ok {
					continue
				}
				local := nameNode.Text()
				if aliasNode, ok := spec.FieldChild("alias"); ok {
					local = aliasNode.Text()
				}
				bindings = append(bindings, Binding{
					ImportedName: nameNode.Text(),
					LocalName:    local,
					IsTypeOnly:   hasChildKind(spec, "type"),
				})
			}
		}
	}
	return bindings
}

// requireBindings recovers named bindings from `const { a, b } = require(...)`
// by looking at the object pattern on the left of the enclosing declarator.
func requireBindings(requireCall parsing.Node) []Binding {
	declarator := requireCall.Parent()
	if declarator == nil || declarator.Kind() != "variable_declarator" {
		return nil
	}
	left, ok := declarator.FieldChild("name")
	if !ok || left.Kind() != "object_pattern" {
		return nil
	}
	var bindings []Binding
	for i := 0; i < left.ChildCount(); i++ {
		prop := left.Child(i)
		if !prop.IsNamed() {
			continue
		}
		name := prop.Text()
		bindings = append(bindings, Binding{ImportedName: name, LocalName: name})
	}
	return bindings
}

func pythonConfig() languageConfig {
	classKinds := map[string]bool{"class_definition": true}
	return languageConfig{
		classKinds: classKinds,
		docComment: func(n parsing.Node) string {
			body, ok := n.FieldChild("body")
			if !ok || body.ChildCount() == 0 {
				return ""
			}
			first := body.Child(0)
			if strings.Contains(first.Kind(), "string") {
				return strings.Trim(first.Text(), "\"' \n")
			}
			return ""
		},
		declare: func(n parsing.Node) (Symbol, bool) {
			switch n.Kind() {
			case "class_definition":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindClass, Visibility: pythonVisibility(name)}, true
			case "function_definition":
				name, _ := nodeName(n)
				kind := KindFunction
				if _, inClass := enclosingKind(n, classKinds); inClass {
					kind = KindMethod
				}
				return Symbol{
					Name: name, Kind: kind,
					Visibility: pythonVisibility(name),
					IsAsync:    strings.HasPrefix(strings.TrimSpace(n.Text()), "async"),
					Parameters: paramTexts(n, "parameters"),
					ReturnType: returnTypeAnnotation(n),
				}, true
			}
			return Symbol{}, false
		},
		importOf: func(n parsing.Node) (Import, bool) {
			switch n.Kind() {
			case "import_statement":
				return Import{Type: "python_import", ModuleSpecifier: strings.TrimSpace(strings.TrimPrefix(n.Text(), "import"))}, true
			case "import_from_statement":
				moduleName, ok := n.FieldChild("module_name")
				spec := ""
				if ok {
					spec = moduleName.Text()
				}
				return Import{Type: "python_import", ModuleSpecifier: spec}, true
			}
			return Import{}, false
		},
	}
}

func pythonVisibility(name string) Visibility {
	if strings.HasPrefix(name, "_") {
		return VisibilityPrivate
	}
	return VisibilityPublic
}

func enclosingKind(n parsing.Node, kinds map[string]bool) (parsing.Node, bool) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if kinds[p.Kind()] {
			return p, true
		}
	}
	return nil, false
}

func javaConfig() languageConfig {
	classKinds := map[string]bool{"class_declaration": true, "interface_declaration": true, "enum_declaration": true}
	modifierVisibility := func(n parsing.Node) Visibility {
		mods, ok := n.FieldChild("modifiers")
		if !ok {
			return VisibilityUndefined
		}
		text := mods.Text()
		switch {
		case strings.Contains(text, "private"):
			return VisibilityPrivate
		case strings.Contains(text, "protected"):
			return VisibilityProtected
		case strings.Contains(text, "public"):
			return VisibilityPublic
		}
		return VisibilityUndefined
	}
	return languageConfig{
		classKinds: classKinds,
		declare: func(n parsing.Node) (Symbol, bool) {
			switch n.Kind() {
			case "class_declaration", "interface_declaration", "enum_declaration":
				name, _ := nodeName(n)
				kind := KindClass
				if n.Kind() == "interface_declaration" {
					kind = KindInterface
				} else if n.Kind() == "enum_declaration" {
					kind = KindEnum
				}
				return Symbol{Name: name, Kind: kind, Visibility: modifierVisibility(n)}, true
			case "method_declaration", "constructor_declaration":
				name, _ := nodeName(n)
				mods, _ := n.FieldChild("modifiers")
				isStatic := mods != nil && strings.Contains(mods.Text(), "static")
				return Symbol{
					Name: name, Kind: KindMethod,
					Visibility: modifierVisibility(n),
					IsStatic:   isStatic,
					Parameters: paramTexts(n, "parameters"),
					ReturnType: returnTypeAnnotation(n),
				}, true
			}
			return Symbol{}, false
		},
		importOf: func(n parsing.Node) (Import, bool) {
			if n.Kind() != "import_declaration" {
				return Import{}, false
			}
			return Import{Type: "java_import", ModuleSpecifier: strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(n.Text(), "import")), ";")}, true
		},
	}
}

func rubyConfig() languageConfig {
	classKinds := map[string]bool{"class": true, "module": true}
	return languageConfig{
		classKinds: classKinds,
		declare: func(n parsing.Node) (Symbol, bool) {
			switch n.Kind() {
			case "class":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindClass}, true
			case "module":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindNamespace}, true
			case "method", "singleton_method":
				name, _ := nodeName(n)
				kind := KindFunction
				if _, inClass := enclosingKind(n, classKinds); inClass {
					kind = KindMethod
				}
				return Symbol{Name: name, Kind: kind, IsStatic: n.Kind() == "singleton_method", Parameters: paramTexts(n, "parameters")}, true
			}
			return Symbol{}, false
		},
		requireOf: func(n parsing.Node) (Import, bool) {
			if n.Kind() != "call" {
				return Import{}, false
			}
			method, ok := n.FieldChild("method")
			if !ok || (method.Text() != "require" && method.Text() != "require_relative") {
				return Import{}, false
			}
			args, ok := n.FieldChild("arguments")
			if !ok || args.ChildCount() == 0 {
				return Import{}, false
			}
			return Import{Type: "ruby_require", ModuleSpecifier: stripQuotes(args.Child(0).Text())}, true
		},
	}
}

func rustConfig() languageConfig {
	classKinds := map[string]bool{"impl_item": true, "trait_item": true}
	return languageConfig{
		classKinds: classKinds,
		declare: func(n parsing.Node) (Symbol, bool) {
			switch n.Kind() {
			case "struct_item":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindStruct, IsExported: hasChildKind(n, "visibility_modifier")}, true
			case "enum_item":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindEnum, IsExported: hasChildKind(n, "visibility_modifier")}, true
			case "trait_item":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindTrait, IsExported: hasChildKind(n, "visibility_modifier")}, true
			case "impl_item":
				name := ""
				if t, ok := n.FieldChild("type"); ok {
					name = t.Text()
				}
				return Symbol{Name: name, Kind: KindImpl}, true
			case "function_item":
				name, _ := nodeName(n)
				kind := KindFunction
				if _, inImpl := enclosingKind(n, classKinds); inImpl {
					kind = KindMethod
				}
				return Symbol{
					Name: name, Kind: kind,
					IsExported: hasChildKind(n, "visibility_modifier"),
					IsAsync:    hasChildKind(n, "async"),
					Parameters: paramTexts(n, "parameters"),
					ReturnType: returnTypeAnnotation(n),
				}, true
			}
			return Symbol{}, false
		},
		importOf: func(n parsing.Node) (Import, bool) {
			if n.Kind() != "use_declaration" {
				return Import{}, false
			}
			return Import{Type: "rust_use", ModuleSpecifier: strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(n.Text(), "use")), ";")}, true
		},
	}
}

func cConfig() languageConfig {
	return languageConfig{
		declare: func(n parsing.Node) (Symbol, bool) {
			switch n.Kind() {
			case "struct_specifier":
				name, _ := nodeName(n)
				if name == "" {
					return Symbol{}, false
				}
				return Symbol{Name: name, Kind: KindStruct}, true
			case "function_definition":
				declarator, ok := n.FieldChild("declarator")
				if !ok {
					return Symbol{}, false
				}
				return Symbol{Name: declarator.Text(), Kind: KindFunction}, true
			}
			return Symbol{}, false
		},
		importOf: func(n parsing.Node) (Import, bool) {
			if n.Kind() != "preproc_include" {
				return Import{}, false
			}
			return Import{Type: "c_include", ModuleSpecifier: strings.Trim(strings.TrimSpace(strings.TrimPrefix(n.Text(), "#include")), "<>\"")}, true
		},
	}
}

func cppConfig() languageConfig {
	base := cConfig()
	base.classKinds = map[string]bool{"struct_specifier": true, "class_specifier": true}
	decl := base.declare
	base.declare = func(n parsing.Node) (Symbol, bool) {
		if n.Kind() == "class_specifier" {
			name, _ := nodeName(n)
			if name == "" {
				return Symbol{}, false
			}
			return Symbol{Name: name, Kind: KindClass}, true
		}
		return decl(n)
	}
	return base
}

func phpConfig() languageConfig {
	classKinds := map[string]bool{"class_declaration": true, "interface_declaration": true}
	return languageConfig{
		classKinds: classKinds,
		declare: func(n parsing.Node) (Symbol, bool) {
			switch n.Kind() {
			case "class_declaration":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindClass}, true
			case "interface_declaration":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindInterface}, true
			case "function_definition":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindFunction, Parameters: paramTexts(n, "parameters")}, true
			case "method_declaration":
				name, _ := nodeName(n)
				return Symbol{Name: name, Kind: KindMethod, Parameters: paramTexts(n, "parameters")}, true
			}
			return Symbol{}, false
		},
	}
}
