package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/movy/movefuzz/pkg/move"
)

func writeFixture(t *testing.T, fx ledgerFixture) string {
	t.Helper()
	data, err := json.Marshal(fx)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func sampleFixture() ledgerFixture {
	return ledgerFixture{
		Packages: []fixturePackage{{
			ID: "0x1",
			Modules: []fixtureModule{{
				Name: "vault",
				Functions: []fixtureFunction{{
					Name:    "withdraw",
					Params:  []move.SignatureToken{move.U64()},
					Returns: []move.SignatureToken{move.Bool()},
				}},
				StructAbilities: map[string]move.Abilities{
					"Vault": move.Abilities(0),
				},
			}},
		}},
		Objects: []fixtureObject{{
			ID:      "0x3",
			Version: 1,
			Type:    move.U64(),
			Owner:   fixtureOwner{Kind: "address", Address: "0x9"},
		}},
	}
}

func TestLoadLedgerFixtureBuildsPackageAndObject(t *testing.T) {
	path := writeFixture(t, sampleFixture())

	led, packages, err := loadLedgerFixture(path)
	require.NoError(t, err)
	require.Len(t, packages, 1)
	require.Len(t, packages[0].Modules, 1)
	require.Len(t, packages[0].Modules[0].Functions, 1)

	objID, err := move.AddressFromHex("0x3")
	require.NoError(t, err)
	info, err := led.GetMoveObjectInfo(objID)
	require.NoError(t, err)
	require.EqualValues(t, 1, info.Version)
}

func TestToPackageAbiStructAbilitiesClosureResolvesOwnModule(t *testing.T) {
	abi, err := toPackageAbi(sampleFixture().Packages[0])
	require.NoError(t, err)
	fn := abi.Modules[0].Functions[0]
	pkgAddr, _ := move.AddressFromHex("0x1")
	got := fn.StructAbilities(move.StructTag{Address: pkgAddr, Module: "vault", Name: "Vault"})
	require.Equal(t, move.Abilities(0), got, "expected zero abilities for Vault")
}

func TestLoadSeedSequencesRoundTrips(t *testing.T) {
	seqs := []move.MoveSequence{{
		Inputs: []move.InputArgument{{Kind: move.InputPureU64, PureBytes: []byte{1}}},
	}}
	data, err := json.Marshal(seqs)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := loadSeedSequences(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Inputs, 1)
}

func TestLoadLedgerFixtureRejectsUnknownOwnerKind(t *testing.T) {
	fx := sampleFixture()
	fx.Objects[0].Owner = fixtureOwner{Kind: "bogus"}
	path := writeFixture(t, fx)

	_, _, err := loadLedgerFixture(path)
	require.Error(t, err, "expected an error for an unknown owner kind")
}
