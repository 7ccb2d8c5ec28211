package move

// Visibility is a Move function's declared visibility.
type Visibility uint8

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
	VisibilityFriend
)

// FunctionAbi describes one callable function's signature.
type FunctionAbi struct {
	Module     Address
	ModuleName string
	Name       string
	Params     []SignatureToken
	Returns    []SignatureToken
	TypeParams []Abilities
	Visibility Visibility

	// StructAbilities resolves the abilities of any Struct-kind
	// SignatureToken appearing in Params/Returns whose StructTag matches
	// the given key, so callers of Abilities()/IsHotPotatoStruct don't
	// need their own side-table. Populated by cmd/movefuzz's fixture
	// loader (toPackageAbi).
	StructAbilities func(tag StructTag) Abilities
}

// Ident uniquely names a function within a package set.
type Ident struct {
	Module Address
	Name   string
	Func   string
}

func (f FunctionAbi) Ident() Ident {
	return Ident{Module: f.Module, Name: f.ModuleName, Func: f.Name}
}

// ModuleAbi is the set of functions and struct ability declarations of one
// on-chain module.
type ModuleAbi struct {
	Package   Address
	Name      string
	Functions []FunctionAbi
	// StructAbilities maps a bare struct name (declared within this
	// module) to its ability set.
	StructAbilities map[string]Abilities
}

// PackageAbi is the full ABI surface of an on-chain package: every module
// it defines.
type PackageAbi struct {
	ID      Address
	Modules []ModuleAbi
}

// ResolveStructAbilities looks up the ability set of a struct tag across
// every module this package declares. Structs defined in other packages
// fall back to a conservative all-abilities-absent default (callers that
// need cross-package lookups should consult a LedgerView instead).
func (p PackageAbi) ResolveStructAbilities(tag StructTag) Abilities {
	for _, m := range p.Modules {
		if m.Package == tag.Address && m.Name == tag.Module {
			if a, ok := m.StructAbilities[tag.Name]; ok {
				return a
			}
		}
	}
	return 0
}
