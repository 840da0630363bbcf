// Package change holds the request and edit types shared by the resolver,
// the patcher and the validator, plus the error taxonomy they report with.
package change

import (
	"fmt"
	"strings"
)

// Kind is the closed set of actions a change request may ask for.
type Kind int

const (
	KindUnknown Kind = iota
	CreateFile
	AddImport
	AddFunction
	ReplaceFunction
	DeleteFunction
	AddStruct
	AddEnum
	ReplaceBlock
	InsertAfter
	InsertBefore
	ModifyLine
	AddMethod
	ReplaceMethod
)

// Kinds lists every supported kind in declaration order.
var Kinds = []Kind{
	CreateFile, AddImport, AddFunction, ReplaceFunction, DeleteFunction,
	AddStruct, AddEnum, ReplaceBlock, InsertAfter, InsertBefore,
	ModifyLine, AddMethod, ReplaceMethod,
}

// Family groups kinds that resolve the same way.
type Family int

const (
	FamilyNone Family = iota
	FamilyFile
	FamilyImport
	FamilyFunction
	FamilyDeclaration
	FamilyMethod
	FamilyBlock
	FamilyLine
)

func (k Kind) String() string {
	switch k {
	case CreateFile:
		return "create_file"
	case AddImport:
		return "add_import"
	case AddFunction:
		return "add_function"
	case ReplaceFunction:
		return "replace_function"
	case DeleteFunction:
		return "delete_function"
	case AddStruct:
		return "add_struct"
	case AddEnum:
		return "add_enum"
	case ReplaceBlock:
		return "replace_block"
	case InsertAfter:
		return "insert_after"
	case InsertBefore:
		return "insert_before"
	case ModifyLine:
		return "modify_line"
	case AddMethod:
		return "add_method"
	case ReplaceMethod:
		return "replace_method"
	default:
		return "unknown"
	}
}

// ParseKind maps a wire name to a Kind. Names are matched case-insensitively
// and dashes are accepted in place of underscores.
func ParseKind(s string) (Kind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}
	return KindUnknown, &Error{Code: UnsupportedAction, Request: -1, Msg: fmt.Sprintf("unsupported action %q", s)}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k == KindUnknown {
		return nil, &Error{Code: UnsupportedAction, Request: -1, Msg: "cannot encode unknown action"}
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Family returns the resolution family of k.
func (k Kind) Family() Family {
	switch k {
	case CreateFile:
		return FamilyFile
	case AddImport:
		return FamilyImport
	case ReplaceFunction, DeleteFunction:
		return FamilyFunction
	case AddFunction, AddStruct, AddEnum:
		return FamilyDeclaration
	case AddMethod, ReplaceMethod:
		return FamilyMethod
	case ReplaceBlock, InsertAfter, InsertBefore:
		return FamilyBlock
	case ModifyLine:
		return FamilyLine
	default:
		return FamilyNone
	}
}

// Creates reports whether k may legitimately target a file that does not exist yet.
func (k Kind) Creates() bool {
	switch k {
	case CreateFile, AddImport, AddFunction, AddStruct, AddEnum:
		return true
	default:
		return false
	}
}

// NeedsClass reports whether k must name an enclosing class.
func (k Kind) NeedsClass() bool { return k.Family() == FamilyMethod }

// NeedsTarget reports whether k is meaningless without a target.
func (k Kind) NeedsTarget() bool {
	switch k {
	case ReplaceFunction, DeleteFunction, ReplaceBlock, InsertAfter, InsertBefore, ModifyLine, ReplaceMethod:
		return true
	default:
		return false
	}
}
