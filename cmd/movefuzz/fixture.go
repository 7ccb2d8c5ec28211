package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/movy/movefuzz/internal/ledger"
	"github.com/movy/movefuzz/pkg/move"
)

// fixtureFunction is the JSON-friendly stand-in for move.FunctionAbi:
// FunctionAbi.StructAbilities is a func value and cannot round-trip
// through JSON, so the CLI reads abilities keyed by bare struct name per
// module and builds the closure itself in toPackageAbi.
type fixtureFunction struct {
	Name       string                `json:"name"`
	Params     []move.SignatureToken `json:"params"`
	Returns    []move.SignatureToken `json:"returns"`
	TypeParams []move.Abilities      `json:"type_params,omitempty"`
	Visibility move.Visibility       `json:"visibility"`
}

type fixtureModule struct {
	Name            string                     `json:"name"`
	Functions       []fixtureFunction          `json:"functions"`
	StructAbilities map[string]move.Abilities  `json:"struct_abilities,omitempty"`
}

type fixturePackage struct {
	ID      string          `json:"id"`
	Modules []fixtureModule `json:"modules"`
}

type fixtureOwner struct {
	Kind           string `json:"kind"` // address | shared | immutable | object
	Address        string `json:"address,omitempty"`
	InitialVersion uint64 `json:"initial_version,omitempty"`
	Parent         string `json:"parent,omitempty"`
}

type fixtureObject struct {
	ID      string              `json:"id"`
	Version uint64              `json:"version"`
	Type    move.SignatureToken `json:"type"`
	Owner   fixtureOwner        `json:"owner"`
	Contents []byte             `json:"contents,omitempty"`
}

// ledgerFixture is the on-disk shape of a --ledger seed file: the fixed
// set of packages and objects movefuzz treats as "on-chain" for the
// run, standing in for spec.md §1's out-of-scope live chain connection
// (LedgerView is an interface the core consumes; this is the simplest
// concrete implementation an operator can hand-author or export from a
// local test chain).
type ledgerFixture struct {
	Packages []fixturePackage `json:"packages"`
	Objects  []fixtureObject  `json:"objects"`
}

func loadLedgerFixture(path string) (*ledger.FakeLedger, []move.PackageAbi, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading ledger fixture %s", path)
	}
	var fx ledgerFixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, nil, errors.Wrapf(err, "parsing ledger fixture %s", path)
	}

	led := ledger.NewFakeLedger()
	packages := make([]move.PackageAbi, 0, len(fx.Packages))
	for _, p := range fx.Packages {
		abi, err := toPackageAbi(p)
		if err != nil {
			return nil, nil, err
		}
		led.PutPackage(abi)
		packages = append(packages, abi)
	}

	for _, o := range fx.Objects {
		obj, err := toObject(o)
		if err != nil {
			return nil, nil, err
		}
		led.PutObject(obj)
	}

	return led, packages, nil
}

func toPackageAbi(p fixturePackage) (move.PackageAbi, error) {
	pkgAddr, err := move.AddressFromHex(p.ID)
	if err != nil {
		return move.PackageAbi{}, errors.Wrapf(err, "package id %q", p.ID)
	}

	abi := move.PackageAbi{ID: pkgAddr}
	for _, m := range p.Modules {
		abilities := m.StructAbilities
		mod := move.ModuleAbi{
			Package:         pkgAddr,
			Name:            m.Name,
			StructAbilities: abilities,
		}
		for _, fn := range m.Functions {
			mod.Functions = append(mod.Functions, move.FunctionAbi{
				Module:     pkgAddr,
				ModuleName: m.Name,
				Name:       fn.Name,
				Params:     fn.Params,
				Returns:    fn.Returns,
				TypeParams: fn.TypeParams,
				Visibility: fn.Visibility,
				StructAbilities: func(tag move.StructTag) move.Abilities {
					if tag.Address == pkgAddr && tag.Module == m.Name {
						return abilities[tag.Name]
					}
					return 0
				},
			})
		}
		abi.Modules = append(abi.Modules, mod)
	}
	return abi, nil
}

func toObject(o fixtureObject) (ledger.Object, error) {
	id, err := move.AddressFromHex(o.ID)
	if err != nil {
		return ledger.Object{}, errors.Wrapf(err, "object id %q", o.ID)
	}
	owner, err := toOwner(o.Owner)
	if err != nil {
		return ledger.Object{}, err
	}
	return ledger.Object{
		Info: move.ObjectInfo{
			ID:      id,
			Version: o.Version,
			Type:    o.Type,
			Owner:   owner,
		},
		Contents: o.Contents,
	}, nil
}

func toOwner(o fixtureOwner) (move.Owner, error) {
	switch o.Kind {
	case "shared":
		return move.Owner{Kind: move.OwnerShared, InitialVersion: o.InitialVersion}, nil
	case "immutable":
		return move.Owner{Kind: move.OwnerImmutable}, nil
	case "object":
		parent, err := move.AddressFromHex(o.Parent)
		if err != nil {
			return move.Owner{}, errors.Wrapf(err, "owner parent %q", o.Parent)
		}
		return move.Owner{Kind: move.OwnerObject, Parent: parent}, nil
	case "address", "":
		addr, err := move.AddressFromHex(o.Address)
		if err != nil {
			return move.Owner{}, errors.Wrapf(err, "owner address %q", o.Address)
		}
		return move.Owner{Kind: move.OwnerAddress, Address: addr}, nil
	default:
		return move.Owner{}, errors.Errorf("unknown owner kind %q", o.Kind)
	}
}

// loadSeedSequences reads a JSON array of move.MoveSequence from path,
// the --seed input format for `movefuzz run` (SPEC_FULL.md §6 corpus
// seeding).
func loadSeedSequences(path string) ([]move.MoveSequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading seed file %s", path)
	}
	var seqs []move.MoveSequence
	if err := json.Unmarshal(data, &seqs); err != nil {
		return nil, errors.Wrapf(err, "parsing seed file %s", path)
	}
	return seqs, nil
}
