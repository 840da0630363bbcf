package grammar

import (
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

const (
	ecmaMethods = `(method_definition name: (_) @name) @definition`
	ecmaImports = `(import_statement source: (string) @name) @definition`

	// Only direct children of the program are functions; an exported one
	// spans its export keyword.
	ecmaFunctions = `
(program (function_declaration name: (identifier) @name) @definition)
(program (export_statement declaration: (function_declaration name: (identifier) @name)) @definition)
(program (lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function))) @definition)
(program (export_statement declaration: (lexical_declaration (variable_declarator name: (identifier) @name value: (arrow_function)))) @definition)`
)

// Builtin returns the definitions shipped with differ.
func Builtin() []Definition {
	return []Definition{
		{
			ID:         "go",
			Extensions: []string{".go"},
			Aliases:    []string{"golang"},
			Language:   golang.GetLanguage,
			FunctionsQuery: `
(function_declaration name: (identifier) @name) @definition
(method_declaration name: (field_identifier) @name) @definition`,
			// Go methods live outside their receiver type, so there is no class body to insert into.
			ImportsQuery: `(import_spec path: (_) @name) @definition`,
		},
		{
			ID:         "javascript",
			Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
			Aliases:    []string{"js", "jsx"},
			Language:   javascript.GetLanguage,
			FunctionsQuery: ecmaFunctions + `
(program (generator_function_declaration name: (identifier) @name) @definition)
(program (export_statement declaration: (generator_function_declaration name: (identifier) @name)) @definition)`,
			ClassesQuery: `
(class_declaration name: (identifier) @name) @definition
(export_statement declaration: (class_declaration name: (identifier) @name)) @definition`,
			MethodsQuery: ecmaMethods,
			ImportsQuery: ecmaImports,
		},
		{
			ID:             "typescript",
			Extensions:     []string{".ts", ".mts", ".cts"},
			Aliases:        []string{"ts"},
			Language:       typescript.GetLanguage,
			FunctionsQuery: ecmaFunctions,
			ClassesQuery: `
(class_declaration name: (type_identifier) @name) @definition
(abstract_class_declaration name: (type_identifier) @name) @definition
(export_statement declaration: (class_declaration name: (type_identifier) @name)) @definition
(export_statement declaration: (abstract_class_declaration name: (type_identifier) @name)) @definition`,
			MethodsQuery: ecmaMethods,
			ImportsQuery: ecmaImports,
		},
		{
			ID:             "tsx",
			Extensions:     []string{".tsx"},
			Language:       tsx.GetLanguage,
			FunctionsQuery: ecmaFunctions,
			ClassesQuery: `
(class_declaration name: (type_identifier) @name) @definition
(export_statement declaration: (class_declaration name: (type_identifier) @name)) @definition`,
			MethodsQuery: ecmaMethods,
			ImportsQuery: ecmaImports,
		},
		{
			ID:         "python",
			Extensions: []string{".py", ".pyi"},
			Aliases:    []string{"py", "python3"},
			Language:   python.GetLanguage,
			// Decorated definitions span their decorators.
			FunctionsQuery: `
(module (function_definition name: (identifier) @name) @definition)
(module (decorated_definition definition: (function_definition name: (identifier) @name)) @definition)`,
			ClassesQuery: `
(class_definition name: (identifier) @name) @definition
(decorated_definition definition: (class_definition name: (identifier) @name)) @definition`,
			MethodsQuery: `
(class_definition body: (block (function_definition name: (identifier) @name) @definition))
(class_definition body: (block (decorated_definition definition: (function_definition name: (identifier) @name)) @definition))`,
			ImportsQuery: `
(import_statement) @definition
(import_from_statement) @definition`,
		},
		{
			ID:             "rust",
			Extensions:     []string{".rs"},
			Aliases:        []string{"rs"},
			Language:       rust.GetLanguage,
			FunctionsQuery: `(source_file (function_item name: (identifier) @name) @definition)`,
			// Every impl block of a type, inherent or trait, indexes under the type name.
			ClassesQuery: `
(impl_item type: (type_identifier) @name) @definition
(impl_item type: (generic_type type: (type_identifier) @name)) @definition`,
			MethodsQuery: `(declaration_list (function_item name: (identifier) @name) @definition)`,
			ImportsQuery: `(use_declaration) @definition`,
		},
		{
			ID:         "java",
			Extensions: []string{".java"},
			Language:   java.GetLanguage,
			ClassesQuery: `
(class_declaration name: (identifier) @name) @definition
(interface_declaration name: (identifier) @name) @definition`,
			MethodsQuery: `
(method_declaration name: (identifier) @name) @definition
(constructor_declaration name: (identifier) @name) @definition`,
			ImportsQuery: `(import_declaration) @definition`,
		},
	}
}

// BuiltinRegistry returns a registry of the builtin definitions restricted to
// enabled ids; no ids means all of them.
func BuiltinRegistry(enabled ...string) (*Registry, error) {
	defs := Builtin()
	if len(enabled) == 0 {
		return NewRegistry(defs...)
	}
	keep := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		keep[id] = true
	}
	var picked []Definition
	for _, d := range defs {
		if keep[d.ID] {
			picked = append(picked, d)
			delete(keep, d.ID)
		}
	}
	for id := range keep {
		return nil, &UnknownLanguageError{ID: id}
	}
	return NewRegistry(picked...)
}
